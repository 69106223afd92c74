// Package schedule runs the orphan sweep on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/media"
)

// Sweeper is the job the runner drives.
type Sweeper interface {
	Sweep(ctx context.Context) media.SweepStats
}

// Runner triggers Sweep on the configured schedule. At most one sweep runs at a time.
type Runner struct {
	cfg     config.GC
	spec    string
	sweeper Sweeper
	log     zerolog.Logger
	cron    *cron.Cron

	mu      sync.Mutex
	last    media.SweepStats
	lastRun time.Time
}

func NewRunner(cfg config.GC, sweeper Sweeper, log zerolog.Logger) (*Runner, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("sweeper is required")
	}

	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultGCSchedule
	}
	if cfg.Timezone == "" {
		cfg.Timezone = config.DefaultGCTimezone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultGCTimeout
	}

	spec := cfg.Schedule
	if !strings.HasPrefix(spec, "CRON_TZ=") && !strings.HasPrefix(spec, "TZ=") {
		spec = "CRON_TZ=" + cfg.Timezone + " " + spec
	}
	if _, err := config.CronParser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid gc schedule %q: %w", spec, err)
	}

	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}

	return &Runner{
		cfg:     cfg,
		spec:    spec,
		sweeper: sweeper,
		log:     log,
		cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}, nil
}

// Spec returns the effective cron expression, including its timezone.
func (r *Runner) Spec() string {
	return r.spec
}

// Run blocks until ctx is cancelled, sweeping on schedule. A sweep in flight when
// ctx ends is waited for.
func (r *Runner) Run(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info().Msg("gc disabled by config")
		<-ctx.Done()
		return nil
	}

	if _, err := r.cron.AddFunc(r.spec, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}

	r.cron.Start()
	r.log.Info().Str("schedule", r.spec).Msg("gc scheduler started")

	<-ctx.Done()

	stopped := r.cron.Stop()
	<-stopped.Done()
	r.log.Info().Msg("gc scheduler stopped")

	return nil
}

// RunOnce performs a single sweep bounded by the configured timeout.
func (r *Runner) RunOnce(ctx context.Context) media.SweepStats {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	started := time.Now()
	stats := r.sweeper.Sweep(ctx)

	r.mu.Lock()
	r.last = stats
	r.lastRun = started
	r.mu.Unlock()

	if ctx.Err() == context.DeadlineExceeded {
		r.log.Warn().Dur("timeout", r.cfg.Timeout).Msg("sweep hit its timeout, remaining work left for the next run")
	}

	return stats
}

// Last returns the stats and start time of the most recent sweep.
func (r *Runner) Last() (media.SweepStats, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastRun
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
