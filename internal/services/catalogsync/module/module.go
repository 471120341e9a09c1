// Package module wires the catalog sync engine as a modkit.Module
package module

import (
	"context"

	"catalogsync/internal/adapters/catalog/automeli"
	"catalogsync/internal/modkit"
	"catalogsync/internal/modkit/httpkit"
	modreg "catalogsync/internal/modkit/module"
	"catalogsync/internal/modkit/repokit"
	perr "catalogsync/internal/platform/errors"
	phttp "catalogsync/internal/platform/net/http"

	"catalogsync/internal/services/catalogsync/domain"
	"catalogsync/internal/services/catalogsync/fetch"
	synchttp "catalogsync/internal/services/catalogsync/http"
	"catalogsync/internal/services/catalogsync/lock"
	"catalogsync/internal/services/catalogsync/repo"
	"catalogsync/internal/services/catalogsync/schedule"
	"catalogsync/internal/services/catalogsync/service"
	"catalogsync/internal/services/catalogsync/state"
)

// Name is the module and registry name
const Name = "catalogsync"

// Ports exported by the catalogsync module
type Ports struct {
	Runner    *service.Orchestrator
	Launcher  *service.Trigger
	Runs      domain.RunLister
	Scheduler *schedule.Scheduler
	Lock      *lock.Lock
	State     *state.Store
}

// Module implements modkit.Module for the sync engine
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
	b     modkit.Built
}

// New validates options from deps.Cfg and wires every component.
// base is the process lifetime context detached runs inherit.
func New(base context.Context, deps modkit.Deps, extra ...modkit.Option) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return NewWithOptions(base, deps, opts, extra...)
}

// NewWithOptions wires the module from explicit options
func NewWithOptions(base context.Context, deps modkit.Deps, opts Options, extra ...modkit.Option) (*Module, error) {
	if deps.KV == nil {
		return nil, perr.New(perr.ErrorCodeInvalidArgument, "catalogsync requires a KV store")
	}
	if deps.PG == nil {
		return nil, perr.New(perr.ErrorCodeInvalidArgument, "catalogsync requires postgres")
	}

	client, err := automeli.New(automeli.Options{
		BaseURL:      opts.BaseURL,
		UserAgent:    opts.UserAgent,
		Timeout:      opts.Timeout,
		RPS:          opts.RPS,
		Burst:        opts.Burst,
		ListingTypes: opts.ListingTypes,
		AppStatus:    opts.AppStatus,
	})
	if err != nil {
		return nil, err
	}

	fetcher := fetch.Fetcher{
		Client: client,
		Mode:   domain.Mode(opts.Mode),
		Policy: fetch.Policy{Attempts: opts.Retries, Base: opts.RetryBase},
		Pages: fetch.PageOptions{
			Width:            opts.PageWidth,
			Concurrency:      opts.PageConcurrency,
			MaxFailedBatches: opts.MaxFailedBatches,
		},
	}

	st := state.New(deps.KV, state.WithKey(opts.StateKey))
	lk := lock.New(deps.KV, lock.Options{
		Key:      opts.LockKey,
		TTL:      opts.LockTTL,
		Fenced:   opts.LockFenced,
		FailOpen: opts.LockFailOpen,
	})

	db := deps.PG
	if opts.StatementTimeout > 0 {
		db = repokit.WithBeginHooks(db, repokit.StatementTimeout(opts.StatementTimeout))
	}
	applier := repo.NewApplier(db, repo.NewPG(), opts.ApplyChunk)
	runs := repo.NewRuns(db, repo.NewPG())

	var recorder domain.RunRecorder
	if opts.RecordRuns {
		recorder = runs
	}

	orch := service.New(fetcher, st, applier, lk, recorder, service.Config{
		Seller:         opts.Seller,
		Mode:           domain.Mode(opts.Mode),
		ReleaseTimeout: opts.ReleaseTimeout,
	})

	sched, err := schedule.New(orch, schedule.Options{
		Spec:     opts.Schedule,
		Location: opts.Location,
		Seller:   opts.Seller,
	})
	if err != nil {
		return nil, err
	}

	trig := service.NewTrigger(base, orch, lk.Holder, opts.Seller)

	m := &Module{deps: deps, opts: opts}
	m.ports = Ports{
		Runner:    orch,
		Launcher:  trig,
		Runs:      runs,
		Scheduler: sched,
		Lock:      lk,
		State:     st,
	}

	defaults := []modkit.Option{
		modkit.WithName(Name),
		modkit.WithPrefix("/sync"),
		modkit.WithPorts(m.ports),
		modkit.WithRegister(func(r phttp.Router) {
			synchttp.Register(r, trig, runs, lk.Holder)
		}),
	}
	m.b = modkit.Build(append(defaults, extra...)...)
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Prefix returns the mount prefix under the API root
func (m *Module) Prefix() string { return m.b.Prefix }

// MountRoutes mounts the sync endpoints under Prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.b.Prefix, m.b.Mw, m.b.Register)
}

// Register builds the module and publishes its ports in the registry
func Register(base context.Context, deps modkit.Deps) (*Module, error) {
	m, err := New(base, deps)
	if err != nil {
		return nil, err
	}
	modreg.Register(m.Name(), m.Ports())
	return m, nil
}
