package render

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrRendererNotFound is returned by Get for names nobody registered.
	ErrRendererNotFound = errors.New("render: renderer not found")
	// ErrDuplicateRenderer is returned when two renderers share a name.
	ErrDuplicateRenderer = errors.New("render: renderer already registered")
)

// Registry maps renderer names to renderers. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Renderer
}

// NewRegistry returns a registry holding renderers.
func NewRegistry(renderers ...Renderer) (*Registry, error) {
	r := &Registry{byName: make(map[string]Renderer, len(renderers))}
	if err := r.Register(renderers...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds renderers under their Name. It stops at the first invalid
// or duplicate entry; entries before it stay registered.
func (r *Registry) Register(renderers ...Renderer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, renderer := range renderers {
		if renderer == nil || renderer.Name() == "" {
			return errors.New("render: renderer must be non-nil and named")
		}
		name := renderer.Name()
		if _, taken := r.byName[name]; taken {
			return fmt.Errorf("%w: %q", ErrDuplicateRenderer, name)
		}
		r.byName[name] = renderer
	}
	return nil
}

// Get returns the renderer registered as name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	renderer, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRendererNotFound, name)
	}
	return renderer, nil
}

// Names lists the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
