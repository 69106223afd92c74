package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/media"
)

type countingSweeper struct {
	calls    atomic.Int32
	deadline atomic.Bool
}

func (c *countingSweeper) Sweep(ctx context.Context) media.SweepStats {
	c.calls.Add(1)
	_, ok := ctx.Deadline()
	c.deadline.Store(ok)
	return media.SweepStats{MetadataDeleted: 2, BlobsDeleted: 1}
}

func TestNewRunner_Defaults(t *testing.T) {
	r, err := NewRunner(config.GC{Enabled: true}, &countingSweeper{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}
	if r.Spec() != "CRON_TZ=UTC 0 3 * * *" {
		t.Fatalf("unexpected spec: %s", r.Spec())
	}
	if r.cfg.Timeout != config.DefaultGCTimeout {
		t.Fatalf("unexpected timeout: %v", r.cfg.Timeout)
	}
}

func TestNewRunner_Timezone(t *testing.T) {
	r, err := NewRunner(config.GC{Schedule: "@daily", Timezone: "Europe/Berlin"}, &countingSweeper{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}
	if r.Spec() != "CRON_TZ=Europe/Berlin @daily" {
		t.Fatalf("unexpected spec: %s", r.Spec())
	}

	explicit, err := NewRunner(config.GC{Schedule: "CRON_TZ=Asia/Tokyo 0 4 * * *"}, &countingSweeper{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}
	if explicit.Spec() != "CRON_TZ=Asia/Tokyo 0 4 * * *" {
		t.Fatalf("explicit timezone must be kept, got %s", explicit.Spec())
	}
}

func TestNewRunner_Errors(t *testing.T) {
	if _, err := NewRunner(config.GC{}, nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error without sweeper")
	}
	if _, err := NewRunner(config.GC{Schedule: "not a schedule"}, &countingSweeper{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
	if _, err := NewRunner(config.GC{Timezone: "Mars/Olympus"}, &countingSweeper{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestRunOnce(t *testing.T) {
	sweeper := &countingSweeper{}
	r, err := NewRunner(config.GC{Timeout: time.Minute}, sweeper, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	stats := r.RunOnce(context.Background())
	if stats.MetadataDeleted != 2 || sweeper.calls.Load() != 1 {
		t.Fatalf("unexpected run: %+v calls=%d", stats, sweeper.calls.Load())
	}
	if !sweeper.deadline.Load() {
		t.Fatalf("sweep must run with a deadline")
	}

	last, at := r.Last()
	if last.BlobsDeleted != 1 || at.IsZero() {
		t.Fatalf("unexpected last run: %+v at %v", last, at)
	}
}

func TestRun_Disabled(t *testing.T) {
	sweeper := &countingSweeper{}
	r, err := NewRunner(config.GC{Enabled: false, Schedule: "@every 1s"}, sweeper, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sweeper.calls.Load() != 0 {
		t.Fatalf("disabled runner must not sweep")
	}
}

func TestRun_SweepsOnSchedule(t *testing.T) {
	sweeper := &countingSweeper{}
	r, err := NewRunner(config.GC{Enabled: true, Schedule: "@every 1s"}, sweeper, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for sweeper.calls.Load() == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("no sweep within 5s")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
