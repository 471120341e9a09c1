package app

import (
	"context"

	"catalogsync/internal/platform/config"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/platform/store"
	"catalogsync/migrations"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, _, err := openStore(ctx, config.New(), "migrate")
			if err != nil {
				return err
			}
			defer closeStore(st)
			return applyMigrations(ctx, st)
		},
	}
}

func applyMigrations(ctx context.Context, st *store.Store) error {
	if err := store.Migrate(ctx, st, migrations.FS); err != nil {
		return err
	}
	logger.Get().Info().Msg("migrations applied")
	return nil
}
