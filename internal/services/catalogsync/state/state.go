// Package state keeps sku fingerprints in a single Redis hash
package state

import (
	"context"
	"maps"
	"slices"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/store"
	"catalogsync/internal/services/catalogsync/domain"
)

const (
	// DefaultKey is the hash that holds every fingerprint
	DefaultKey = "automeli_products_state"
	// DefaultChunk bounds fields per HMGET or HSET round trip
	DefaultChunk = 5000
)

// Store implements domain.StateStore over a KV hash
type Store struct {
	kv    store.KV
	key   string
	chunk int
}

// Option configures Store
type Option func(*Store)

// WithKey overrides the hash key
func WithKey(k string) Option {
	return func(s *Store) {
		if k != "" {
			s.key = k
		}
	}
}

// WithChunk overrides the per-command field count
func WithChunk(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.chunk = n
		}
	}
}

// New builds a Store
func New(kv store.KV, opts ...Option) *Store {
	s := &Store{kv: kv, key: DefaultKey, chunk: DefaultChunk}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ domain.StateStore = (*Store)(nil)

// Get returns the stored fingerprint of every sku that has one.
// Absent skus are missing from the map; duplicates are looked up once.
func (s *Store) Get(ctx context.Context, skus []string) (map[string]domain.Fingerprint, error) {
	out := make(map[string]domain.Fingerprint, len(skus))
	uniq := dedupe(skus)
	for chunk := range slices.Chunk(uniq, s.chunk) {
		vals, err := s.kv.HMGet(ctx, s.key, chunk...)
		if err != nil {
			return nil, perr.WithOp(perr.FromRedis(err, "state read failed"), "state.get")
		}
		if len(vals) != len(chunk) {
			return nil, perr.Newf(perr.ErrorCodeUnavailable, "state read returned %d values for %d fields", len(vals), len(chunk))
		}
		for i, v := range vals {
			if fp, ok := v.(string); ok && fp != "" {
				out[chunk[i]] = domain.Fingerprint(fp)
			}
		}
	}
	return out, nil
}

// Set writes fps in chunks. Chunks already written stay written if a later one fails.
func (s *Store) Set(ctx context.Context, fps map[string]domain.Fingerprint) error {
	if len(fps) == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(fps))
	for chunk := range slices.Chunk(keys, s.chunk) {
		vals := make(map[string]string, len(chunk))
		for _, k := range chunk {
			vals[k] = string(fps[k])
		}
		if _, err := s.kv.HSet(ctx, s.key, vals); err != nil {
			return perr.WithOp(perr.FromRedis(err, "state write failed"), "state.set")
		}
	}
	return nil
}

// Len reports how many skus have a fingerprint
func (s *Store) Len(ctx context.Context) (int64, error) {
	n, err := s.kv.HLen(ctx, s.key)
	if err != nil {
		return 0, perr.FromRedis(err, "state len failed")
	}
	return n, nil
}

// Reset drops every fingerprint, forcing the next run to re-apply the whole catalog
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.kv.Del(ctx, s.key)
	return perr.FromRedis(err, "state reset failed")
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
