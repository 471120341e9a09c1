package store

import (
	"context"
	"io/fs"

	perr "catalogsync/internal/platform/errors"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in fsys to the store's postgres
func Migrate(ctx context.Context, s *Store, fsys fs.FS) error {
	if s == nil || s.PG == nil {
		return perr.New(perr.ErrorCodeInvalidArgument, "migrate: postgres is not configured")
	}
	pool, ok := PoolOf(s.PG)
	if !ok {
		return perr.New(perr.ErrorCodeInvalidArgument, "migrate: postgres seam has no pool")
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetLogger(gooseLogger{s})
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect("postgres"); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "set goose dialect")
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return perr.FromPostgres(err, "run migrations")
	}
	return nil
}

// gooseLogger routes goose output into the store logger
type gooseLogger struct{ s *Store }

func (g gooseLogger) Fatalf(format string, v ...any) { g.s.Log.Error().Msgf(format, v...) }
func (g gooseLogger) Printf(format string, v ...any) { g.s.Log.Info().Str("component", "goose").Msgf(format, v...) }
