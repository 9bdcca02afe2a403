package mailcompact

import (
	"fmt"
	"sort"
	"sync"

	"github.com/infodancer/mailcompact/errors"
)

// LockerFactory creates a Locker from the lock section of the config.
// Factories read their backend-specific settings from config.Options and
// return errors.ErrLockerConfigInvalid when required ones are missing.
type LockerFactory func(config LockConfig) (Locker, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]LockerFactory)
)

// RegisterLocker adds a lock backend factory to the registry. Backends call
// it from init, so importing a backend package for side effects makes its
// name selectable through LockConfig.Backend.
// It panics if called with an empty name or nil factory,
// or if the name is already registered.
func RegisterLocker(name string, factory LockerFactory) {
	if name == "" {
		panic("mailcompact: RegisterLocker called with empty name")
	}
	if factory == nil {
		panic("mailcompact: RegisterLocker called with nil factory")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic("mailcompact: RegisterLocker called twice for " + name)
	}
	registry[name] = factory
}

// OpenLocker creates the Locker named by config.Backend. The returned
// Locker is not yet holding any mailbox; locks are taken per batch by the
// Coordinator.
func OpenLocker(config LockConfig) (Locker, error) {
	registryMu.RLock()
	factory, ok := registry[config.Backend]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", errors.ErrLockerNotRegistered, config.Backend, RegisteredLockers())
	}
	return factory(config)
}

// RegisteredLockers returns a sorted list of registered lock backend names.
func RegisteredLockers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
