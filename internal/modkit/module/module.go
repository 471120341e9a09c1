// Package module holds the process-wide module registry and port lookups
package module

import (
	"catalogsync/internal/modkit"
	phttp "catalogsync/internal/platform/net/http"
)

// Module is the modkit contract, re-exported so callers need one import
type Module = modkit.Module

// MountAll registers each module's ports under its name and mounts its routes on r
func MountAll(r phttp.Router, mods ...Module) {
	for _, m := range mods {
		Register(m.Name(), m.Ports())
		m.MountRoutes(r)
	}
}
