package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

var (
	// ErrLoad marks a module that could not be imported.
	ErrLoad = errors.New("module load failed")
	// ErrNotRegistered is returned by StaticImporter for unknown paths so a
	// Chain can fall through to the next importer.
	ErrNotRegistered = errors.New("module not registered")
)

// Export is one named value exported by a module.
type Export struct {
	Name  string
	Value any
}

// Exports is an ordered export list.
type Exports []Export

// Lookup returns the value exported under name.
func (e Exports) Lookup(name string) (any, bool) {
	for _, x := range e {
		if x.Name == name {
			return x.Value, true
		}
	}
	return nil, false
}

// Importer resolves a module path to its exports. refresh bypasses any
// importer-side cache.
type Importer interface {
	Import(ctx context.Context, path string, refresh bool) (Exports, error)
}

// StaticImporter serves pre-registered modules keyed by absolute path.
type StaticImporter struct {
	mu   sync.RWMutex
	mods map[string]Exports
}

// NewStaticImporter returns an empty StaticImporter.
func NewStaticImporter() *StaticImporter {
	return &StaticImporter{mods: make(map[string]Exports)}
}

// Register makes exports available under path, replacing any previous
// registration.
func (s *StaticImporter) Register(path string, exports ...Export) {
	key := normalizePath(path)
	s.mu.Lock()
	s.mods[key] = append(Exports(nil), exports...)
	s.mu.Unlock()
}

// Unregister removes path.
func (s *StaticImporter) Unregister(path string) {
	s.mu.Lock()
	delete(s.mods, normalizePath(path))
	s.mu.Unlock()
}

// Import implements Importer.
func (s *StaticImporter) Import(ctx context.Context, path string, _ bool) (Exports, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	mod, ok := s.mods[normalizePath(path)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	return append(Exports(nil), mod...), nil
}

// Chain tries importers in order, moving on only when one reports
// ErrNotRegistered.
type Chain []Importer

// Import implements Importer.
func (c Chain) Import(ctx context.Context, path string, refresh bool) (Exports, error) {
	for _, imp := range c {
		exports, err := imp.Import(ctx, path, refresh)
		if errors.Is(err, ErrNotRegistered) {
			continue
		}
		return exports, err
	}
	return nil, fmt.Errorf("%w: no importer for %s", ErrNotRegistered, path)
}

func normalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
