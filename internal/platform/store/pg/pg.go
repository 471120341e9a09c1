// Package pg opens the pgx pool the product applier and run history write through
package pg

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool; zero values keep pgx defaults
type Config struct {
	URL      string
	MaxConns int32
	SlowMs   int

	// AppName is reported as application_name in pg_stat_activity
	AppName string

	// StatementTimeout is the session default for statement_timeout
	StatementTimeout time.Duration

	// MaxConnIdle closes pooled connections idle for longer; the worker sits
	// idle for hours between scheduled runs
	MaxConnIdle time.Duration
}

// PG is the pool plus the tracer the sql adapter reports to
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL, applies cfg and builds the pool. It does not ping.
func Open(ctx context.Context, cfg Config, tracer QueryTracer) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnIdle > 0 {
		pcfg.MaxConnIdleTime = cfg.MaxConnIdle
	}
	params := pcfg.ConnConfig.RuntimeParams
	if cfg.AppName != "" {
		params["application_name"] = cfg.AppName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &PG{Pool: pool, Tracer: tracer, SlowMs: cfg.SlowMs}, nil
}

// Close closes the pool; nil safe
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
