package stage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arnodel/struckstream/stream"
)

// A Factory builds the transformer of a stage from its options.
type Factory func(opts Options) (stream.Transformer, error)

type entry struct {
	description string
	factory     Factory
}

var (
	registryMu sync.RWMutex
	registry   = map[string]entry{}
)

// Register makes a stage available by name.  It is meant to be called from
// init functions and panics if the name is already taken.
func Register(name, description string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("stage: Register factory is nil for " + name)
	}
	if _, dup := registry[name]; dup {
		panic("stage: Register called twice for " + name)
	}
	registry[name] = entry{description: description, factory: f}
}

// Lookup returns the factory of a registered stage.
func Lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[name]
	return e.factory, ok
}

// Describe returns the description a stage was registered with.
func Describe(name string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name].description
}

// Names returns the names of all registered stages, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a registered stage.
func New(name string, opts Options) (stream.Transformer, error) {
	f, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", name)
	}
	t, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", name, err)
	}
	return t, nil
}
