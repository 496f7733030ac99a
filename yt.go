package yt

import (
	"fmt"
	"sync"
)

// Frontend is a format adapter: it recognizes an on-disk layout and loads
// it into a Dataset. Frontends register themselves with Register,
// typically from an init function, and are consulted in registration
// order by Load.
type Frontend interface {
	// Name identifies the format (e.g. "ramses").
	Name() string

	// Probe reports whether path looks like this format. It must be
	// cheap and side-effect free.
	Probe(path string) bool

	// Open loads the dataset at path. It fails atomically: on error no
	// partial Dataset is returned.
	Open(path string, opts ...Option) (*Dataset, error)
}

var registry struct {
	mu        sync.RWMutex
	frontends []Frontend
}

// Register adds a frontend to the dispatch table. Registering two
// frontends with the same name panics, mirroring the registration rules
// of database/sql drivers.
func Register(f Frontend) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for _, existing := range registry.frontends {
		if existing.Name() == f.Name() {
			panic(fmt.Sprintf("yt: frontend %q registered twice", f.Name()))
		}
	}
	registry.frontends = append(registry.frontends, f)
}

// Frontends returns the names of all registered frontends.
func Frontends() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, len(registry.frontends))
	for i, f := range registry.frontends {
		names[i] = f.Name()
	}
	return names
}

// Probe returns the name of the first frontend that recognizes path.
func Probe(path string) (string, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	for _, f := range registry.frontends {
		if f.Probe(path) {
			return f.Name(), true
		}
	}
	return "", false
}

// Load opens the dataset at path with the first frontend whose Probe
// accepts it, or fails with ErrFormat when none does.
func Load(path string, opts ...Option) (*Dataset, error) {
	registry.mu.RLock()
	frontends := make([]Frontend, len(registry.frontends))
	copy(frontends, registry.frontends)
	registry.mu.RUnlock()

	for _, f := range frontends {
		if f.Probe(path) {
			ds, err := f.Open(path, opts...)
			if err != nil {
				return nil, fmt.Errorf("loading %s as %s: %w", path, f.Name(), err)
			}
			return ds, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFormat, path)
}
