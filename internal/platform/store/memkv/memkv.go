// Package memkv is an in-process stand-in for the redis KV seam.
// It honours TTLs lazily and is safe for concurrent use.
package memkv

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by every call after Close
var ErrClosed = errors.New("memkv: closed")

type entry struct {
	val     string
	expires time.Time // zero means no expiry
}

// KV is a map-backed KV; strings and hashes live in separate namespaces
type KV struct {
	mu      sync.Mutex
	strs    map[string]entry
	hashes  map[string]map[string]string
	closed  bool
	now     func() time.Time
	failing error
	failOps map[string]error
}

// New returns an empty KV
func New() *KV {
	return &KV{
		strs:   map[string]entry{},
		hashes: map[string]map[string]string{},
		now:    time.Now,
	}
}

// SetClock replaces the time source; tests use it to expire keys
func (m *KV) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// FailWith makes every subsequent call return err until cleared with nil
func (m *KV) FailWith(err error) {
	m.mu.Lock()
	m.failing = err
	m.mu.Unlock()
}

// FailOn makes only the named operation (for example "HSet") return err until cleared with nil
func (m *KV) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failOps, op)
		return
	}
	if m.failOps == nil {
		m.failOps = map[string]error{}
	}
	m.failOps[op] = err
}

func (m *KV) guard(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed {
		return ErrClosed
	}
	if m.failing != nil {
		return m.failing
	}
	return m.failOps[op]
}

// live returns the string entry for key, dropping it when expired
func (m *KV) live(key string) (entry, bool) {
	e, ok := m.strs[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.strs, key)
		return entry{}, false
	}
	return e, true
}

// SetNX stores value only when key is absent or expired
func (m *KV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ctx, "SetNX"); err != nil {
		return false, err
	}
	if _, ok := m.live(key); ok {
		return false, nil
	}
	e := entry{val: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.strs[key] = e
	return true, nil
}

// Get returns a string value
func (m *KV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ctx, "Get"); err != nil {
		return "", false, err
	}
	e, ok := m.live(key)
	return e.val, ok, nil
}

// Del removes string or hash keys and reports how many existed
func (m *KV) Del(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ctx, "Del"); err != nil {
		return 0, err
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.live(k); ok {
			delete(m.strs, k)
			n++
		}
		if _, ok := m.hashes[k]; ok {
			delete(m.hashes, k)
			n++
		}
	}
	return n, nil
}

// HMGet mirrors redis: one slot per field, nil when absent
func (m *KV) HMGet(ctx context.Context, key string, fields ...string) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ctx, "HMGet"); err != nil {
		return nil, err
	}
	h := m.hashes[key]
	out := make([]any, len(fields))
	for i, f := range fields {
		if v, ok := h[f]; ok {
			out[i] = v
		}
	}
	return out, nil
}

// HSet upserts fields and reports how many were new
func (m *KV) HSet(ctx context.Context, key string, values map[string]string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ctx, "HSet"); err != nil {
		return 0, err
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string, len(values))
		m.hashes[key] = h
	}
	var added int64
	for f, v := range values {
		if _, exists := h[f]; !exists {
			added++
		}
		h[f] = v
	}
	return added, nil
}

// HLen reports the field count of a hash
func (m *KV) HLen(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ctx, "HLen"); err != nil {
		return 0, err
	}
	return int64(len(m.hashes[key])), nil
}

// CompareAndDelete deletes key only while it holds value
func (m *KV) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(ctx, "CompareAndDelete"); err != nil {
		return false, err
	}
	e, ok := m.live(key)
	if !ok || e.val != value {
		return false, nil
	}
	delete(m.strs, key)
	return true, nil
}

// Ping reports closed or injected failures
func (m *KV) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guard(ctx, "Ping")
}

// Close marks the KV closed
func (m *KV) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Hash returns a copy of a hash, for assertions
func (m *KV) Hash(key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out
}
