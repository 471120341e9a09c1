package module

import (
	"slices"
	"sync"

	"catalogsync/internal/platform/logger"
)

// registry holds each module's ports by name for lookups during composition
var registry = struct {
	sync.RWMutex
	ports map[string]any
}{ports: map[string]any{}}

// Register publishes ports under name; a second call for the same name replaces the first
func Register(name string, ports any) {
	registry.Lock()
	_, dup := registry.ports[name]
	registry.ports[name] = ports
	registry.Unlock()
	if dup {
		logger.Named("modkit").Warn().Str("module", name).Msg("module ports replaced")
	}
}

// PortsAs returns the ports registered under name when they are a T
func PortsAs[T any](name string) (T, bool) {
	registry.RLock()
	v, ok := registry.ports[name]
	registry.RUnlock()
	out, ok2 := v.(T)
	return out, ok && ok2
}

// Names lists registered modules in sorted order
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	out := make([]string, 0, len(registry.ports))
	for n := range registry.ports {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Reset empties the registry; tests call it in cleanup
func Reset() {
	registry.Lock()
	registry.ports = map[string]any{}
	registry.Unlock()
}
