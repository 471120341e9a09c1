package service

import (
	"context"
	"sync"
	"time"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/services/catalogsync/domain"

	"github.com/google/uuid"
)

// ErrRunning is returned by Launch while another run holds the lock
var ErrRunning = perr.New(perr.ErrorCodeConflict, "a catalog sync is already running")

// Runner runs one sync
type Runner interface {
	RunSync(ctx context.Context) (domain.SyncStats, error)
}

// HolderFunc reports the current run lock holder, empty when free
type HolderFunc func(ctx context.Context) (string, error)

// Trigger launches runs on a process-lifetime context so a run outlives
// the request that asked for it
type Trigger struct {
	base   context.Context
	run    Runner
	holder HolderFunc
	seller string

	wg sync.WaitGroup
}

var _ domain.Launcher = (*Trigger)(nil)

// NewTrigger builds a Trigger; holder may be nil to skip the busy check
func NewTrigger(base context.Context, run Runner, holder HolderFunc, seller string) *Trigger {
	return &Trigger{base: base, run: run, holder: holder, seller: seller}
}

// Launch starts a run in the background. A held lock is reported as
// ErrRunning up front; a race past that check ends as lock_denied.
func (t *Trigger) Launch(ctx context.Context) (string, error) {
	if t.holder != nil {
		h, err := t.holder(ctx)
		if err != nil {
			return "", err
		}
		if h != "" {
			return "", ErrRunning
		}
	}

	runID := uuid.NewString()
	rctx := logger.WithRun(t.base, runID, t.seller)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		logger.C(rctx).Info().Str("trigger", "manual").Msg("manual sync launched")
		if _, err := t.run.RunSync(rctx); err != nil {
			logger.C(rctx).Warn().Err(err).Msg("manual sync failed")
		}
	}()
	return runID, nil
}

// Wait blocks until launched runs finish or timeout passes; false on timeout
func (t *Trigger) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
