// Package lock is the cross-process run lock: SET NX with a TTL, released by DEL
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/platform/store"
	"catalogsync/internal/services/catalogsync/domain"

	"github.com/google/uuid"
)

const (
	// DefaultKey names the lock
	DefaultKey = "automeli_sync:running"
	// DefaultTTL bounds how long a crashed holder blocks later runs
	DefaultTTL = 4 * time.Hour
)

// Options configures a Lock
type Options struct {
	Key string
	TTL time.Duration

	// Fenced releases only while the key still holds this holder's token.
	// Off by default: release is an unconditional DEL.
	Fenced bool

	// FailOpen treats a KV error on acquire as acquired
	FailOpen bool
}

// Lock implements domain.RunLock
type Lock struct {
	kv   store.KV
	opts Options
	now  func() time.Time

	mu    sync.Mutex
	token string
}

var _ domain.RunLock = (*Lock)(nil)

// New builds a Lock
func New(kv store.KV, o Options) *Lock {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	return &Lock{kv: kv, opts: o, now: time.Now}
}

// Acquire tries once to take the lock; false means another holder has it
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	token := fmt.Sprintf("%d:%s", l.now().UnixMilli(), runID)

	ok, err := l.kv.SetNX(ctx, l.opts.Key, token, l.opts.TTL)
	if err != nil {
		if l.opts.FailOpen && ctx.Err() == nil {
			logger.C(ctx).Warn().Err(err).Str("key", l.opts.Key).Msg("run lock unavailable, proceeding without it")
			return true, nil
		}
		return false, perr.WithOp(perr.FromRedis(err, "run lock acquire failed"), "lock.acquire")
	}
	if ok {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release drops the lock. Releasing an absent lock is not an error.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if l.opts.Fenced {
		if token == "" {
			return nil
		}
		ok, err := l.kv.CompareAndDelete(ctx, l.opts.Key, token)
		if err != nil {
			return perr.WithOp(perr.FromRedis(err, "run lock release failed"), "lock.release")
		}
		if !ok {
			logger.C(ctx).Warn().Str("key", l.opts.Key).Msg("run lock no longer held by this run")
		}
		return nil
	}

	if _, err := l.kv.Del(ctx, l.opts.Key); err != nil {
		return perr.WithOp(perr.FromRedis(err, "run lock release failed"), "lock.release")
	}
	return nil
}

// Holder returns the current lock value, empty when free
func (l *Lock) Holder(ctx context.Context) (string, error) {
	v, ok, err := l.kv.Get(ctx, l.opts.Key)
	if err != nil {
		return "", perr.FromRedis(err, "run lock read failed")
	}
	if !ok {
		return "", nil
	}
	return v, nil
}
