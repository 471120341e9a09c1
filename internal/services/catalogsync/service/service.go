// Package service provides the change detector and the sync orchestrator
package service

import (
	"context"
	"time"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/platform/metrics"
	"catalogsync/internal/services/catalogsync/domain"

	"github.com/google/uuid"
)

const defaultReleaseTimeout = 10 * time.Second

// Config holds the per-deployment run settings
type Config struct {
	Seller string
	Mode   domain.Mode

	// ReleaseTimeout bounds the lock release after a run; <=0 -> 10s
	ReleaseTimeout time.Duration
}

// Orchestrator drives one sync run: lock, then fetch, detect, apply and
// fingerprint batch by batch, then release
type Orchestrator struct {
	Fetch    domain.Fetcher
	Detect   *Detector
	Apply    domain.Applier
	State    domain.StateStore
	Lock     domain.RunLock
	Recorder domain.RunRecorder // optional
	Cfg      Config

	now   func() time.Time
	newID func() string
}

// New constructs the orchestrator; recorder may be nil
func New(
	f domain.Fetcher,
	state domain.StateStore,
	apply domain.Applier,
	lock domain.RunLock,
	recorder domain.RunRecorder,
	cfg Config,
) *Orchestrator {
	if f == nil || state == nil || apply == nil || lock == nil {
		panic("service.Orchestrator requires fetcher, state, applier and lock")
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = defaultReleaseTimeout
	}
	return &Orchestrator{
		Fetch:    f,
		Detect:   NewDetector(state),
		Apply:    apply,
		State:    state,
		Lock:     lock,
		Recorder: recorder,
		Cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// RunSync performs one run. A held lock is not an error: the returned stats
// carry OutcomeLockDenied and zero counters. On failure the stats so far are
// returned together with the error, after the lock is released.
func (o *Orchestrator) RunSync(ctx context.Context) (domain.SyncStats, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = o.newID()
	}
	ctx = logger.WithRun(ctx, runID, o.Cfg.Seller)
	log := logger.C(ctx)

	stats := domain.SyncStats{
		RunID:     runID,
		Seller:    o.Cfg.Seller,
		Mode:      o.Cfg.Mode,
		Outcome:   domain.OutcomeRunning,
		StartedAt: o.now(),
	}

	ok, err := o.Lock.Acquire(ctx)
	if err != nil {
		stats.EndedAt = o.now()
		stats.Outcome = domain.OutcomeFailed
		stats.Error = err.Error()
		metrics.RecordRun(string(stats.Outcome), stats.Duration(), stats.EndedAt)
		log.Error().Err(err).Msg("catalog sync could not take the run lock")
		return stats, err
	}
	if !ok {
		stats.EndedAt = o.now()
		stats.Outcome = domain.OutcomeLockDenied
		metrics.RecordRun(string(stats.Outcome), 0, stats.EndedAt)
		log.Info().Msg("another catalog sync is already running, skipping")
		return stats, nil
	}
	defer o.release(ctx)

	log.Info().Str("mode", string(o.Cfg.Mode)).Msg("catalog sync started")
	o.record(ctx, stats, true)

	err = o.loop(ctx, &stats)

	stats.EndedAt = o.now()
	if err != nil {
		stats.Outcome = domain.OutcomeFailed
		stats.Error = err.Error()
	} else {
		stats.Outcome = domain.OutcomeOK
	}
	logSummary(log, stats)
	metrics.RecordRun(string(stats.Outcome), stats.Duration(), stats.EndedAt)
	o.record(ctx, stats, false)
	return stats, err
}

func (o *Orchestrator) loop(ctx context.Context, stats *domain.SyncStats) error {
	pager := o.Fetch.Paginate(o.Cfg.Seller)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := pager.Next(ctx)
		stats.Batches++
		stats.Pages += b.Pages
		stats.FailedPages += b.FailedPages
		stats.Filtered += b.Filtered
		stats.Rejected += b.Rejected
		if err != nil {
			return err
		}
		if len(b.Records) > 0 {
			if err := o.process(ctx, stats, b.Records); err != nil {
				return err
			}
		}
		if b.Done {
			return nil
		}
	}
}

// process runs detect, apply and fingerprint write for one batch.
// Fingerprints are written only after the apply succeeded.
func (o *Orchestrator) process(ctx context.Context, stats *domain.SyncStats, recs []domain.SourceRecord) error {
	log := logger.C(ctx)
	stats.Fetched += len(recs)
	metrics.AddRecords("fetched", len(recs))

	changed, err := o.Detect.FilterChanged(ctx, recs)
	if err != nil {
		return perr.WithOp(err, "detect")
	}
	stats.Changed += len(changed)
	stats.Skipped += len(recs) - len(changed)
	metrics.AddRecords("changed", len(changed))
	metrics.AddRecords("skipped", len(recs)-len(changed))

	if len(changed) == 0 {
		log.Debug().Int("fetched", len(recs)).Msg("batch unchanged")
		return nil
	}

	targets := make([]domain.TargetUpdateRecord, len(changed))
	fps := make(map[string]domain.Fingerprint, len(changed))
	for i, c := range changed {
		targets[i] = ToTarget(c.Record)
		fps[c.SKU] = c.Fingerprint
	}

	n, err := o.Apply.ApplyChanges(ctx, targets)
	stats.Updated += n
	if err != nil {
		return err
	}
	metrics.AddRecords("updated", int(n))

	if err := o.State.Set(ctx, fps); err != nil {
		return err
	}
	stats.HashesUpdated += len(fps)

	log.Info().
		Int("fetched", len(recs)).
		Int("changed", len(changed)).
		Int64("updated", n).
		Msg("batch applied")
	return nil
}

func (o *Orchestrator) release(ctx context.Context) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.Cfg.ReleaseTimeout)
	defer cancel()
	if err := o.Lock.Release(rctx); err != nil {
		logger.C(ctx).Error().Err(err).Msg("run lock release failed, it will expire on its ttl")
	}
}

// record writes run history; failures are logged and never change the run
func (o *Orchestrator) record(ctx context.Context, s domain.SyncStats, start bool) {
	if o.Recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.Cfg.ReleaseTimeout)
	defer cancel()
	var err error
	if start {
		err = o.Recorder.StartRun(rctx, s)
	} else {
		err = o.Recorder.FinishRun(rctx, s)
	}
	if err != nil {
		logger.C(ctx).Warn().Err(err).Bool("start", start).Msg("run history write failed")
	}
}
