// Package location records the tracked current location and the places
// visited before it.
package location

import (
	"context"

	"github.com/TGBox/stat-tracker/pkg/config"
	"github.com/TGBox/stat-tracker/pkg/errmodel"
	"github.com/TGBox/stat-tracker/pkg/producer"
	"github.com/TGBox/stat-tracker/pkg/store"
	"github.com/TGBox/stat-tracker/pkg/tracker"
	"github.com/TGBox/stat-tracker/pkg/validate"
)

// Name is the canonical module name.
const Name = "location_tracker"

// EventCurrent is the only event type.
const EventCurrent = "location_current"

// Current is the value of a location_current event.
type Current struct {
	Current string   `json:"current"`
	History []string `json:"history"`
}

// Producer reports a Location tracker.
type Producer struct {
	loc *tracker.Location
}

// New wraps loc.
func New(loc *tracker.Location) *Producer { return &Producer{loc: loc} }

// FromVisits builds a tracker that starts at visits[0] and moved through
// the rest in order.
func FromVisits(visits []string) (*tracker.Location, error) {
	if len(visits) == 0 {
		return nil, errmodel.Validation(tracker.ErrInvalidLocation.Code, "no location given", nil)
	}
	loc, err := tracker.NewLocation(visits[0])
	if err != nil {
		return nil, err
	}
	for _, v := range visits[1:] {
		if err := loc.Update(v); err != nil {
			return nil, err
		}
	}
	return loc, nil
}

// Factory builds the producer from the configured visits, falling back to
// the configured place.
func Factory(cfg config.Config) producer.Factory {
	return func(ctx context.Context) (producer.Producer, error) {
		if !cfg.Location.Enabled {
			return nil, producer.ErrDisabled
		}
		visits := cfg.Location.Visited
		if len(visits) == 0 {
			visits = []string{cfg.Place.Name}
		}
		loc, err := FromVisits(visits)
		if err != nil {
			return nil, err
		}
		return New(loc), nil
	}
}

func (p *Producer) Name() string { return Name }

var currentSchema = validate.MustSchemaFor[Current]()

func (p *Producer) Schemas() map[string][]byte {
	return map[string][]byte{EventCurrent: currentSchema}
}

func (p *Producer) Produce(context.Context) ([]store.Record, error) {
	return []store.Record{{
		EventType: EventCurrent,
		Value:     Current{Current: p.loc.Current(), History: p.loc.History()},
	}}, nil
}
