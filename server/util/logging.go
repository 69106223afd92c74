package util

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "mediacycle"

// NewLogger builds the root logger. Debug mode writes human readable output;
// otherwise each entry is one JSON line.
func NewLogger(debug bool, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if debug {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return newLogger(out, debug, level)
}

func newLogger(out io.Writer, debug bool, level string) zerolog.Logger {
	lvl := ParseLevel(level)
	if debug && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger().
		Level(lvl)
}

// ParseLevel maps a config value to a zerolog level, defaulting to info.
func ParseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return level
}

// WithRequest derives a request-scoped logger carrying method, path and owner.
func WithRequest(l zerolog.Logger, r *http.Request, owner string) zerolog.Logger {
	ctx := l.With().
		Str("method", r.Method).
		Str("path", r.URL.Path)
	if owner != "" {
		ctx = ctx.Str("owner", owner)
	}

	return ctx.Logger()
}

// ContextWithLogger stores the request logger in context for downstream handlers.
func ContextWithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// FromContext retrieves a request logger from context, or a disabled logger when absent.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		l := zerolog.Nop()
		return &l
	}

	return zerolog.Ctx(ctx)
}
