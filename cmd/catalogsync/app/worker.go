package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"catalogsync/internal/modkit/httpkit"
	"catalogsync/internal/modkit/module"
	"catalogsync/internal/platform/config"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/platform/metrics"
	phttp "catalogsync/internal/platform/net/http"
	syncmod "catalogsync/internal/services/catalogsync/module"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// workerOptions reads CORE_API_*
type workerOptions struct {
	Addr        string
	CORSOrigins []string
	Timeout     time.Duration
	Profiler    bool
	Grace       time.Duration
}

func workerFromConfig(cfg config.Conf) workerOptions {
	a := cfg.Prefix("CORE_API_")
	return workerOptions{
		Addr:        a.MayPort("PORT", 4000),
		CORSOrigins: a.MayCSV("CORS_ORIGINS", nil),
		Timeout:     a.MayDuration("TIMEOUT", 30*time.Second),
		Profiler:    a.MayBool("PPROF", false),
		Grace:       a.MayDuration("SHUTDOWN_GRACE", 15*time.Second),
	}
}

func newWorkerCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduler and the HTTP API until signalled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations first")
	return cmd
}

func runWorker(ctx context.Context, migrate bool) error {
	log := logger.Named("worker")
	cfg := config.New()
	wo := workerFromConfig(cfg)

	st, deps, err := openStore(ctx, cfg, "worker")
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.Guard(ctx); err != nil {
		return err
	}
	if migrate {
		if err := applyMigrations(ctx, st); err != nil {
			return err
		}
	}

	// detached HTTP-triggered runs outlive requests but not the process
	base, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRuns()

	m, err := syncmod.New(base, deps)
	if err != nil {
		return err
	}
	ports := module.MustPortsOf[syncmod.Ports](m)

	srv := phttp.NewServer(phttp.ServerOptions{Addr: wo.Addr, ShutdownGrace: wo.Grace}, func(mux *chi.Mux) {
		mux.Handle("/metrics", metrics.Handler())
	})
	r := srv.Router()
	phttp.MountProfiler(r, "/debug", wo.Profiler)
	httpkit.MountAPIV1(r, httpkit.CommonStack(httpkit.StackOptions{
		CORSOrigins: wo.CORSOrigins,
		Timeout:     wo.Timeout,
	}), func(api httpkit.Router) {
		module.MountAll(api, m)
	})

	next := ports.Scheduler.Next(time.Now())
	log.Info().
		Str("seller", m.Options().Seller).
		Str("mode", m.Options().Mode).
		Time("next_run", next).
		Msg("worker started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ports.Scheduler.Run(gctx, wo.Grace) })
	g.Go(func() error { return srv.Run(gctx) })
	err = g.Wait()

	if !ports.Launcher.Wait(wo.Grace) {
		log.Warn().Dur("grace", wo.Grace).Msg("detached runs still going; cancelling")
		cancelRuns()
		ports.Launcher.Wait(5 * time.Second)
	}
	log.Info().Msg("worker stopped")
	return err
}
