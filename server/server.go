package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/media"
	"github.com/indieinfra/mediacycle/schedule"
	"github.com/indieinfra/mediacycle/server/handler/health"
	"github.com/indieinfra/mediacycle/server/handler/promote"
	"github.com/indieinfra/mediacycle/server/handler/upload"
	"github.com/indieinfra/mediacycle/server/middleware"
	"github.com/indieinfra/mediacycle/server/state"
	"github.com/indieinfra/mediacycle/server/util"
	"github.com/indieinfra/mediacycle/storage/blob"
	blobfactory "github.com/indieinfra/mediacycle/storage/blob/factory"
	"github.com/indieinfra/mediacycle/storage/metadata"
	metadatafactory "github.com/indieinfra/mediacycle/storage/metadata/factory"
)

const shutdownTimeout = 10 * time.Second

// StartServer serves the media API until SIGINT or SIGTERM arrives.
func StartServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, cfg, util.NewLogger(cfg.Debug, cfg.LogLevel))
}

// Serve wires the stores, the media manager and the sweep scheduler, then serves HTTP
// until ctx is cancelled. In-flight requests get shutdownTimeout to finish.
func Serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := initializeState(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup(st)

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler:           newMux(st),
		ReadHeaderTimeout: 10 * time.Second,
	}

	gcDone := make(chan error, 1)
	gcCtx, stopGC := context.WithCancel(ctx)
	defer stopGC()
	go func() { gcDone <- st.GC.Run(gcCtx) }()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("serving http requests")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down http server")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown: %w", err)
	}

	stopGC()
	if err := <-gcDone; err != nil && serveErr == nil {
		serveErr = err
	}

	return serveErr
}

func newMux(st *state.MediacycleState) *http.ServeMux {
	owned := func(endpoint string, h http.Handler) http.Handler {
		return middleware.Instrument(endpoint, middleware.RequireOwner(st.Cfg, st.Log, h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /media", owned("media", upload.HandleMediaUpload(st)))
	mux.Handle("POST /promote", owned("promote", promote.HandlePromote(st)))
	mux.Handle("POST /reconcile", owned("reconcile", promote.HandleReconcile(st)))
	mux.Handle("GET /healthz", health.HandleHealth(st))
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func initializeState(cfg *config.Config, log zerolog.Logger) (*state.MediacycleState, error) {
	blobs, err := initializeBlobStore(&cfg.Storage.Blob)
	if err != nil {
		return nil, err
	}

	meta, err := initializeMetadataStore(&cfg.Storage.Metadata)
	if err != nil {
		return nil, err
	}

	manager, err := media.NewManager(&cfg.Media, meta, blobs, log)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("initialize media manager: %w", err)
	}

	runner, err := schedule.NewRunner(cfg.GC, manager.Reclaimer, log)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("initialize gc schedule: %w", err)
	}

	return &state.MediacycleState{
		Cfg:      cfg,
		Log:      log,
		Metadata: meta,
		Blobs:    blobs,
		Media:    manager,
		GC:       runner,
	}, nil
}

func initializeBlobStore(cfg *config.Blob) (blob.Store, error) {
	store, err := blobfactory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize blob store: %w", err)
	}

	return blob.Instrument(store, cfg.Strategy), nil
}

func initializeMetadataStore(cfg *config.Metadata) (metadata.Store, error) {
	store, err := metadatafactory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize metadata store: %w", err)
	}

	return store, nil
}

func cleanup(st *state.MediacycleState) {
	if st == nil || st.Metadata == nil {
		return
	}

	if err := st.Metadata.Close(); err != nil {
		st.Log.Error().Err(err).Msg("failed to close metadata store")
	}
}
