package app

import (
	"context"
	"os/signal"
	"syscall"

	"catalogsync/internal/modkit/module"
	"catalogsync/internal/platform/config"
	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/services/catalogsync/domain"
	syncmod "catalogsync/internal/services/catalogsync/module"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sync now and exit; a held lock is not an error",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runOnce(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations first")
	return cmd
}

func runOnce(ctx context.Context, migrate bool) error {
	cfg := config.New()
	st, deps, err := openStore(ctx, cfg, "run")
	if err != nil {
		return err
	}
	defer closeStore(st)

	if migrate {
		if err := applyMigrations(ctx, st); err != nil {
			return err
		}
	}

	m, err := syncmod.New(ctx, deps)
	if err != nil {
		return err
	}
	ports := module.MustPortsOf[syncmod.Ports](m)

	stats, err := ports.Runner.RunSync(ctx)
	if err != nil {
		return err
	}
	if stats.Outcome == domain.OutcomeLockDenied {
		logger.Get().Warn().Msg("another sync holds the lock; nothing done")
	}
	if stats.Outcome == domain.OutcomeFailed {
		return perr.New(perr.ErrorCodeUnknown, "sync failed")
	}
	return nil
}
