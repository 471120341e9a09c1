package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catalogsync/internal/platform/store/memkv"
	"catalogsync/internal/platform/store/pg"
	"catalogsync/internal/platform/store/rds"

	"github.com/cenkalti/backoff/v5"
)

// pingBackoff is the boot-time ping schedule shared by every backend
func pingBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 150 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// waitReady pings until the backend answers or the attempts run out
func waitReady(ctx context.Context, name string, tries int, timeout time.Duration, ping func(context.Context) error) error {
	if tries <= 0 {
		tries = 20
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return struct{}{}, ping(toCtx)
	}, backoff.WithBackOff(pingBackoff()), backoff.WithMaxTries(uint(tries)))
	if err != nil {
		return fmt.Errorf("%s ping failed after %d attempts: %w", name, tries, err)
	}
	return nil
}

// openPG opens pg and wraps it with our sql adapter once the pool answers
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:              cfg.PG.URL,
		MaxConns:         cfg.PG.MaxConns,
		SlowMs:           cfg.PG.SlowQueryMs,
		AppName:          cfg.AppName,
		StatementTimeout: cfg.PG.StatementTimeout,
		MaxConnIdle:      cfg.PG.MaxConnIdle,
	}, tracer)
	if err != nil {
		return nil, err
	}

	// ping the pool directly so boot noise stays out of the sql trace
	if err := waitReady(ctx, "postgres", cfg.PG.ConnectRetries, cfg.PG.PingTimeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p), nil
}

// openKV dials redis, or builds the in-process map for memory:// URLs
func openKV(ctx context.Context, cfg Config, s *Store) (KV, error) {
	if strings.HasPrefix(cfg.KV.URL, "memory://") {
		s.Log.Warn().Msg("kv: using in-process memory store; state is lost on exit")
		return memkv.New(), nil
	}

	var tracer rds.CommandTracer
	if cfg.KV.LogCmds {
		tracer = rds.Tracer(s.Log)
	}
	c, err := rds.Open(ctx, rds.Config{URL: cfg.KV.URL, DB: cfg.KV.DB, Name: cfg.AppName}, tracer)
	if err != nil {
		return nil, err
	}
	if err := waitReady(ctx, "redis", cfg.KV.ConnectRetries, cfg.KV.PingTimeout, func(ctx context.Context) error {
		return c.Client.Ping(ctx).Err()
	}); err != nil {
		_ = c.Close()
		return nil, err
	}
	return newKVAdapter(c), nil
}
