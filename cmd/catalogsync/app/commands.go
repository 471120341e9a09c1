// Package app holds the catalogsync cobra commands
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"catalogsync/internal/core/version"
	"catalogsync/internal/modkit"
	"catalogsync/internal/platform/config"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/platform/store"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogsync",
		Short:         "Incremental Automeli catalog sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newRunCmd(), newWorkerCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information as json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := json.MarshalIndent(version.Info(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

// openStore dials postgres and redis from SERVICE_PGSQL_* and SERVICE_REDIS_*
func openStore(ctx context.Context, cfg config.Conf, component string) (*store.Store, modkit.Deps, error) {
	sc := store.ConfigFromEnv(cfg, "catalogsync-"+component)
	st, err := store.Open(ctx, sc, store.WithLogger(*logger.Named(component)))
	if err != nil {
		return nil, modkit.Deps{}, err
	}
	return st, modkit.FromStore(cfg, st), nil
}

func closeStore(st *store.Store) {
	if err := st.Close(context.Background()); err != nil {
		logger.Get().Error().Err(err).Msg("failed to close store")
	}
}
