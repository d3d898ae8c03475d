package observability

import (
	"fmt"
	"slices"
	"sync"
)

// The named-observer registry lets commands and config files select event
// sinks by name instead of wiring concrete types. "noop" and "slog" are built
// in; Register installs more, or replaces the built-ins, at startup.
var (
	registryMu sync.RWMutex
	registry   = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(nil),
	}
)

// Register installs obs under name, replacing any previous registration.
func Register(name string, obs Observer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = obs
}

// Lookup returns the observer registered under name.
func Lookup(name string) (Observer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	obs, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no observer registered as %q", name)
	}
	return obs, nil
}

// Names returns the registered observer names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
