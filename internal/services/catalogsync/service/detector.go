package service

import (
	"context"

	"catalogsync/internal/core/fingerprint"
	"catalogsync/internal/services/catalogsync/domain"
)

// Detector keeps the records whose fingerprint differs from the stored one.
// It only reads the state store.
type Detector struct {
	State domain.StateStore
	Hash  func(domain.SourceRecord) domain.Fingerprint
}

// NewDetector builds a Detector over state
func NewDetector(state domain.StateStore) *Detector {
	return &Detector{State: state, Hash: fingerprint.Compute}
}

// FilterChanged returns the changed subset of recs in input order.
// A sku seen twice keeps its last record at the first position.
func (d *Detector) FilterChanged(ctx context.Context, recs []domain.SourceRecord) ([]domain.ChangedRecord, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	pos := make(map[string]int, len(recs))
	cands := make([]domain.ChangedRecord, 0, len(recs))
	for _, r := range recs {
		c := domain.ChangedRecord{SKU: r.SKU, Fingerprint: d.Hash(r), Record: r}
		if i, ok := pos[r.SKU]; ok {
			cands[i] = c
			continue
		}
		pos[r.SKU] = len(cands)
		cands = append(cands, c)
	}

	skus := make([]string, len(cands))
	for i, c := range cands {
		skus[i] = c.SKU
	}
	stored, err := d.State.Get(ctx, skus)
	if err != nil {
		return nil, err
	}

	out := cands[:0]
	for _, c := range cands {
		if prev, ok := stored[c.SKU]; ok && prev == c.Fingerprint {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
