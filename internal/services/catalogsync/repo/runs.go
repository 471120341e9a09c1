package repo

import (
	"context"

	"catalogsync/internal/modkit/repokit"
	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/services/catalogsync/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Runs implements domain.RunRecorder and domain.RunLister
type Runs struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[Storage]
}

var (
	_ domain.RunRecorder = (*Runs)(nil)
	_ domain.RunLister   = (*Runs)(nil)
)

// NewRuns builds the run history store
func NewRuns(db repokit.TxRunner, b repokit.Binder[Storage]) *Runs {
	return &Runs{DB: db, Binder: b}
}

// StartRun inserts the running row
func (r *Runs) StartRun(ctx context.Context, s domain.SyncStats) error {
	return perr.FromPostgres(repokit.MustBind(r.Binder, r.DB).InsertRun(ctx, s), "record run start failed")
}

// FinishRun stores the outcome
func (r *Runs) FinishRun(ctx context.Context, s domain.SyncStats) error {
	return perr.FromPostgres(repokit.MustBind(r.Binder, r.DB).FinishRun(ctx, s), "record run finish failed")
}

// ListRuns pages through history newest first; limit is clamped to [1,200]
func (r *Runs) ListRuns(ctx context.Context, seller string, limit, offset int) ([]domain.SyncStats, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)
	out, err := repokit.MustBind(r.Binder, r.DB).ListRuns(ctx, seller, limit, offset)
	if err != nil {
		return nil, perr.FromPostgres(err, "list runs failed")
	}
	return out, nil
}
