package driver

import "sync"

var (
	engineIndex = make(map[string]Driver)
	regMu       = &sync.RWMutex{}
)

// Register registers an engine [Driver] under the given name in the global
// registry. Engine packages call this from init; importing the package is
// what makes the engine available.
func Register(name string, drv Driver) {
	regMu.Lock()
	engineIndex[name] = drv
	regMu.Unlock()
}

// Get retrieves a registered [Driver] by name, or nil if no engine package
// registered under that name has been imported.
func Get(name string) Driver {
	regMu.RLock()
	d := engineIndex[name]
	regMu.RUnlock()
	return d
}

// All returns the names of all registered engines.
func All() []string {
	regMu.RLock()
	names := make([]string, 0, len(engineIndex))
	for n := range engineIndex {
		names = append(names, n)
	}
	regMu.RUnlock()
	return names
}
