// Package schedule fires sync runs on a wall-clock cron in a fixed time zone
package schedule

import (
	"context"
	"time"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/services/catalogsync/domain"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultSpec fires at 00:00, 06:00, 12:00 and 18:00 (with a seconds field)
	DefaultSpec = "0 0 0,6,12,18 * * *"
	// DefaultZone is the zone the schedule is read in
	DefaultZone = "America/Argentina/Buenos_Aires"
)

// Runner is what a tick triggers
type Runner interface {
	RunSync(ctx context.Context) (domain.SyncStats, error)
}

// Options configures a Scheduler; zero values take defaults
type Options struct {
	Spec     string
	Location *time.Location
	Seller   string
}

// Scheduler owns a cron with one job. Ticks that land while the previous
// run is still going are skipped, not queued.
type Scheduler struct {
	c      *cron.Cron
	sched  cron.Schedule
	run    Runner
	loc    *time.Location
	seller string
	log    *logger.Logger

	base context.Context
}

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates the spec and builds a stopped Scheduler
func New(run Runner, o Options) (*Scheduler, error) {
	if run == nil {
		return nil, perr.New(perr.ErrorCodeInvalidArgument, "schedule requires a runner")
	}
	if o.Spec == "" {
		o.Spec = DefaultSpec
	}
	if o.Location == nil {
		loc, err := time.LoadLocation(DefaultZone)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "load zone %s", DefaultZone)
		}
		o.Location = loc
	}
	sched, err := parser.Parse(o.Spec)
	if err != nil {
		return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "bad schedule %q", o.Spec), "schedule")
	}

	log := logger.Named("schedule")
	cl := cronLogger{l: log}
	s := &Scheduler{
		run:    run,
		sched:  sched,
		loc:    o.Location,
		seller: o.Seller,
		log:    log,
		base:   context.Background(),
	}
	s.c = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(o.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.c.AddJob(o.Spec, cron.FuncJob(s.tick)); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "bad schedule %q", o.Spec)
	}
	return s, nil
}

// Next returns the first fire time strictly after t, in the scheduler's zone
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t.In(s.loc))
}

// Run starts the cron and blocks until ctx is done, then waits for an
// in-flight run to finish or for grace to pass
func (s *Scheduler) Run(ctx context.Context, grace time.Duration) error {
	s.base = ctx
	s.c.Start()
	s.log.Info().
		Str("zone", s.loc.String()).
		Time("next", s.Next(time.Now())).
		Msg("schedule started")

	<-ctx.Done()
	stopped := s.c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(grace):
		s.log.Warn().Dur("grace", grace).Msg("schedule stopped with a run still in flight")
	}
	return nil
}

func (s *Scheduler) tick() {
	runID := uuid.NewString()
	ctx := logger.WithRun(s.base, runID, s.seller)
	logger.C(ctx).Info().Str("trigger", "schedule").Msg("scheduled sync firing")
	if _, err := s.run.RunSync(ctx); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("scheduled sync failed")
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct{ l *logger.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug().Fields(kv).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error().Err(err).Fields(kv).Msg(msg)
}
