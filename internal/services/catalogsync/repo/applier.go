package repo

import (
	"context"
	"slices"

	"catalogsync/internal/modkit/repokit"
	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/services/catalogsync/domain"
)

// DefaultChunk is the row count of one upsert statement
const DefaultChunk = 500

// Applier implements domain.Applier; each chunk commits on its own
type Applier struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[Storage]
	Chunk  int
}

var _ domain.Applier = (*Applier)(nil)

// NewApplier builds an Applier; chunk <= 0 takes DefaultChunk
func NewApplier(db repokit.TxRunner, b repokit.Binder[Storage], chunk int) *Applier {
	if db == nil {
		panic("repo.Applier requires a non nil TxRunner")
	}
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return &Applier{DB: db, Binder: b, Chunk: chunk}
}

// ApplyChanges upserts recs chunk by chunk and sums the affected rows.
// A failed chunk rolls back alone; earlier chunks stay committed.
func (a *Applier) ApplyChanges(ctx context.Context, recs []domain.TargetUpdateRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	var total int64
	for chunk := range slices.Chunk(recs, a.Chunk) {
		rows := collapse(chunk)
		var n int64
		err := repokit.WithTx(ctx, a.DB, func(q repokit.Queryer) error {
			var err error
			n, err = repokit.MustBind(a.Binder, q).UpsertProducts(ctx, rows)
			return err
		})
		if err != nil {
			return total, perr.WithOp(perr.FromPostgresf(err, "upsert of %d products failed", len(rows)), "repo.apply")
		}
		total += n
	}
	return total, nil
}

// collapse keeps the last record per sku at the position of its first
// occurrence; ON CONFLICT cannot touch one row twice in a statement
func collapse(in []domain.TargetUpdateRecord) []domain.TargetUpdateRecord {
	idx := make(map[string]int, len(in))
	out := make([]domain.TargetUpdateRecord, 0, len(in))
	for _, r := range in {
		if i, ok := idx[r.SKU]; ok {
			out[i] = r
			continue
		}
		idx[r.SKU] = len(out)
		out = append(out, r)
	}
	return out
}
