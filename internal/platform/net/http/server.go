package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"catalogsync/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// ServerOptions configures Server; zero values take defaults
type ServerOptions struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownGrace     time.Duration
}

// Server is a thin wrapper over chi + stdlib http.Server
type Server struct {
	mux   *chi.Mux
	srv   *stdhttp.Server
	grace time.Duration
}

// NewServer creates a server; opts receive the *chi.Mux so callers can mount routes/mw
func NewServer(o ServerOptions, opts ...func(*chi.Mux)) *Server {
	if o.Addr == "" {
		o.Addr = ":4000"
	}
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = 10 * time.Second
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = 15 * time.Second
	}
	m := chi.NewRouter()
	for _, fn := range opts {
		fn(m)
	}
	return &Server{
		mux:   m,
		grace: o.ShutdownGrace,
		srv: &stdhttp.Server{
			Addr:              o.Addr,
			Handler:           m,
			ReadHeaderTimeout: o.ReadHeaderTimeout,
		},
	}
}

// Router returns a Router facade over the internal chi mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Addr returns the listening address
func (s *Server) Addr() string { return s.srv.Addr }

// Run serves until ctx is done, then shuts down within the grace period
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("http")
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http listening")
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.grace)
	defer cancel()
	log.Info().Msg("http shutting down")
	if err := s.srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}
