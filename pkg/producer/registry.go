package producer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// ErrDisabled is returned by a Factory whose module is turned off. Discover
// skips it without a warning.
var ErrDisabled = errors.New("producer disabled")

// Factory builds a producer. It returns an error when the module cannot run
// (missing configuration, unavailable collaborator) and ErrDisabled when it is switched off.
type Factory func(ctx context.Context) (Producer, error)

type entry struct {
	name    string
	factory Factory
}

// Registry keeps factories in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	names   map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds a factory under name. Names must be unique.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return errmodel.Validation("bad_factory", "factory name is empty", nil)
	}
	if f == nil {
		return errmodel.Validation("bad_factory", "factory is nil", map[string]any{"name": name})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names == nil {
		r.names = make(map[string]bool)
	}
	if r.names[name] {
		return errmodel.Conflict("duplicate_factory", fmt.Sprintf("producer %q already registered", name), map[string]any{"name": name})
	}
	r.names[name] = true
	r.entries = append(r.entries, entry{name: name, factory: f})
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.name)
	}
	return out
}

// Discover builds every registered producer in registration order. Factories
// that fail, panic or return nil are skipped with a warning on logger; a nil
// logger discards warnings.
func (r *Registry) Discover(ctx context.Context, logger *log.Logger) []Producer {
	r.mu.RLock()
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	out := make([]Producer, 0, len(entries))
	for _, e := range entries {
		p, err := build(ctx, e.factory)
		switch {
		case errors.Is(err, ErrDisabled):
			continue
		case err != nil:
			warn(logger, "skipping producer %s: %v", e.name, err)
			continue
		case p == nil:
			warn(logger, "skipping producer %s: factory returned no producer", e.name)
			continue
		}
		out = append(out, p)
	}
	return out
}

func build(ctx context.Context, f Factory) (p Producer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errmodel.System("factory_panic", fmt.Sprint(rec), nil, nil)
		}
	}()
	return f(ctx)
}

func warn(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf("warning: "+format, args...)
	}
}
