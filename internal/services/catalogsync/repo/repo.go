// Package repo provides the Postgres side of catalog sync: the product upsert
// and the run history
package repo

import (
	"context"
	"math"
	"time"

	"catalogsync/internal/modkit/repokit"
	"catalogsync/internal/platform/store"
	pstrings "catalogsync/internal/platform/strings"
	tim "catalogsync/internal/platform/time"
	"catalogsync/internal/services/catalogsync/domain"
)

type pg struct{ q repokit.Queryer }

// NewPG binds Storage to postgres
func NewPG() repokit.Binder[Storage] {
	return repokit.BindFunc[Storage](func(q repokit.Queryer) Storage { return &pg{q: q} })
}

// Storage is the sql surface the applier and the run recorder use
type Storage interface {
	UpsertProducts(ctx context.Context, recs []domain.TargetUpdateRecord) (int64, error)
	InsertRun(ctx context.Context, s domain.SyncStats) error
	FinishRun(ctx context.Context, s domain.SyncStats) error
	ListRuns(ctx context.Context, seller string, limit, offset int) ([]domain.SyncStats, error)
}

// UpsertProducts writes recs in one statement; rows whose values already
// match are left alone and not counted
func (s *pg) UpsertProducts(ctx context.Context, recs []domain.TargetUpdateRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	skus := make([]string, len(recs))
	prices := make([]string, len(recs))
	stocks := make([]int32, len(recs))
	statuses := make([]string, len(recs))
	leads := make([]*int32, len(recs))
	for i, r := range recs {
		skus[i] = r.SKU
		prices[i] = r.Price.StringFixed(2)
		stocks[i] = int32(r.Stock)
		statuses[i] = string(r.Status)
		if r.LeadTimeDays != nil && *r.LeadTimeDays >= math.MinInt32 && *r.LeadTimeDays <= math.MaxInt32 {
			v := int32(*r.LeadTimeDays)
			leads[i] = &v
		}
	}

	return store.Exec(ctx, s.q, `
		INSERT INTO products AS p (sku, price, stock, status, lead_time_days, updated_at)
		SELECT u.sku, u.price::numeric(14,2), u.stock, u.status, u.lead_time_days, now()
		FROM unnest($1::text[], $2::text[], $3::int4[], $4::text[], $5::int4[])
			AS u(sku, price, stock, status, lead_time_days)
		ON CONFLICT (sku) DO UPDATE SET
			price          = EXCLUDED.price,
			stock          = EXCLUDED.stock,
			status         = EXCLUDED.status,
			lead_time_days = EXCLUDED.lead_time_days,
			updated_at     = now()
		WHERE (p.price, p.stock, p.status, p.lead_time_days)
			IS DISTINCT FROM (EXCLUDED.price, EXCLUDED.stock, EXCLUDED.status, EXCLUDED.lead_time_days)`,
		skus, prices, stocks, statuses, leads,
	)
}

// InsertRun records a run as started
func (s *pg) InsertRun(ctx context.Context, r domain.SyncStats) error {
	_, err := store.Exec(ctx, s.q, `
		INSERT INTO product_sync_runs (id, seller, mode, status, started_at)
		VALUES ($1, $2, $3, 'running', $4)
		ON CONFLICT (id) DO NOTHING`,
		r.RunID, r.Seller, string(r.Mode), r.StartedAt.UTC(),
	)
	return err
}

// FinishRun stores the final counters and outcome of a run
func (s *pg) FinishRun(ctx context.Context, r domain.SyncStats) error {
	finished := tim.Or(r.EndedAt, time.Now())
	_, err := store.Exec(ctx, s.q, `
		UPDATE product_sync_runs SET
			status = $2, batches = $3, pages = $4, failed_pages = $5,
			fetched = $6, changed = $7, updated = $8, hashes_updated = $9,
			skipped = $10, filtered = $11, rejected = $12,
			finished_at = $13, error = $14
		WHERE id = $1`,
		r.RunID, string(r.Outcome), r.Batches, r.Pages, r.FailedPages,
		r.Fetched, r.Changed, r.Updated, r.HashesUpdated,
		r.Skipped, r.Filtered, r.Rejected,
		finished.UTC(), pstrings.SQLNull(r.Error),
	)
	return err
}

// ListRuns returns runs newest first; an empty seller lists every seller
func (s *pg) ListRuns(ctx context.Context, seller string, limit, offset int) ([]domain.SyncStats, error) {
	return store.Many(ctx, s.q, scanRun, `
		SELECT id::text, seller, mode, status, batches, pages, failed_pages,
		       fetched, changed, updated, hashes_updated, skipped, filtered, rejected,
		       started_at, finished_at, coalesce(error, '')
		FROM product_sync_runs
		WHERE ($1::text = '' OR seller = $1)
		ORDER BY started_at DESC, id
		LIMIT $2 OFFSET $3`,
		seller, limit, offset,
	)
}

func scanRun(row store.Row) (domain.SyncStats, error) {
	var (
		r        domain.SyncStats
		mode     string
		status   string
		finished *time.Time
	)
	if err := row.Scan(
		&r.RunID, &r.Seller, &mode, &status, &r.Batches, &r.Pages, &r.FailedPages,
		&r.Fetched, &r.Changed, &r.Updated, &r.HashesUpdated, &r.Skipped, &r.Filtered, &r.Rejected,
		&r.StartedAt, &finished, &r.Error,
	); err != nil {
		return domain.SyncStats{}, err
	}
	r.Mode = domain.Mode(mode)
	r.Outcome = domain.Outcome(status)
	r.EndedAt = tim.Deref(finished)
	return r, nil
}
