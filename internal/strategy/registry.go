package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh strategy instance. Each session gets its own
// instances; the framework never reuses one across sessions.
type Factory func() Strategy

var (
	regMu    sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds a strategy factory under a unique name. Typically called
// from a strategy package's init. Panics on duplicate names.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("strategy: duplicate registration of %q", name))
	}
	registry[name] = f
}

// Exists reports whether a strategy name is registered.
func Exists(name string) bool {
	regMu.RLock()
	defer regMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Build instantiates a registered strategy.
func Build(name string) (Strategy, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy: a strategy named %q could not be found", name)
	}
	return f(), nil
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
