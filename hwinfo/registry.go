package hwinfo

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// Factory builds the capability table of one generation
type Factory func() Capabilities

var (
	registryMu sync.RWMutex
	factories  = make(map[Generation]Factory)
)

// ErrUnknownGeneration is returned by Lookup when no factory was registered for a tag
var ErrUnknownGeneration = errors.New("unknown hardware generation")

// Register registers a capability factory for a generation. This is called from init() in this package;
// registering the same tag twice replaces the earlier factory.
func Register(generation Generation, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[generation] = factory
}

// Unregister removes a generation from the registry. This is useful for testing.
func Unregister(generation Generation) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, generation)
}

// Lookup builds the capability table for a generation
func Lookup(generation Generation) (Capabilities, error) {
	registryMu.RLock()
	factory, ok := factories[generation]
	registryMu.RUnlock()

	if !ok {
		return Capabilities{}, errors.Wrapf(ErrUnknownGeneration, "generation %q", generation)
	}

	caps := factory()
	caps.Generation = generation
	return caps, nil
}

// Available returns the registered generation tags in sorted order
func Available() []Generation {
	registryMu.RLock()
	defer registryMu.RUnlock()

	generations := make([]Generation, 0, len(factories))
	for generation := range factories {
		generations = append(generations, generation)
	}
	sort.Slice(generations, func(i, j int) bool { return generations[i] < generations[j] })
	return generations
}
