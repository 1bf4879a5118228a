// Package producer defines the capability implemented by every tracking module
// and the registry the orchestrator discovers modules from.
package producer

import (
	"context"

	"github.com/TGBox/stat-tracker/pkg/store"
)

// Producer yields raw records for "now". Side effects such as network calls or
// file reads are the producer's own business; a collaborator failure should
// normally be reported as a diagnostic record rather than an error.
type Producer interface {
	// Name is the canonical module name, used as the default source_module.
	Name() string
	// Produce returns the records to append. An empty result is valid.
	Produce(ctx context.Context) ([]store.Record, error)
}

// Describer is implemented by producers that publish a JSON Schema for the
// value of each event type they emit. Event types missing from the map are not checked.
type Describer interface {
	Schemas() map[string][]byte
}

// Func adapts a function to the Producer interface.
type Func struct {
	ModuleName string
	Fn         func(ctx context.Context) ([]store.Record, error)
}

func (f Func) Name() string { return f.ModuleName }

func (f Func) Produce(ctx context.Context) ([]store.Record, error) {
	if f.Fn == nil {
		return nil, nil
	}
	return f.Fn(ctx)
}
