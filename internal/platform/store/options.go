package store

import (
	"catalogsync/internal/platform/logger"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger used by subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithKV installs an already-open KV seam; Open then skips dialing redis
func WithKV(kv KV) Option {
	return func(s *Store) error {
		s.KV = kv
		return nil
	}
}

// WithPG installs an already-open sql seam; Open then skips dialing postgres
func WithPG(q TxRunner) Option {
	return func(s *Store) error {
		s.PG = q
		return nil
	}
}
