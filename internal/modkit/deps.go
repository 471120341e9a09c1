// Package modkit provides module wiring and core deps
package modkit

import (
	"catalogsync/internal/modkit/repokit"
	"catalogsync/internal/platform/config"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log *logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	KV  store.KV
}

// FromStore builds Deps from an opened store
func FromStore(cfg config.Conf, st *store.Store) Deps {
	d := Deps{Log: logger.Named("modkit"), Cfg: cfg}
	if st != nil {
		d.PG = st.PG
		d.KV = st.KV
	}
	return d
}
