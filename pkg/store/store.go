// Package store defines the append-only event log contract.
// Implementations must provide identical semantics across backends
// so that a log written by one can be read by another.
package store

import (
	"context"
	"time"
)

// Defaults applied by Append when a record leaves a field empty.
const (
	DefaultSourceModule = "unknown"
	DefaultEventType    = "generic_event"
)

// TimestampLayout is the ISO-8601 layout of every stored timestamp, defaulted
// or supplied by a producer through FormatTimestamp. UTC with fixed microsecond
// precision keeps lexicographic and chronological order aligned.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTimestamp renders t in TimestampLayout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Record is a raw record as returned by a producer. Every field is optional.
type Record struct {
	Timestamp    string
	SourceModule string
	EventType    string
	Value        any
}

// Event is the persisted, immutable representation of a record.
type Event struct {
	ID           int64  `json:"id"`
	Timestamp    string `json:"timestamp"`
	SourceModule string `json:"source_module"`
	EventType    string `json:"event_type"`
	Value        Value  `json:"value"`
}

// ListOptions narrows List results. Zero values mean no filter.
type ListOptions struct {
	SourceModule string
	EventType    string
	Limit        int
}

// EventStore persists and retrieves events.
type EventStore interface {
	// Init ensures the schema exists. It is idempotent and never drops data.
	Init(ctx context.Context) error
	// Append applies defaults, encodes the value and stores one event in its own transaction.
	Append(ctx context.Context, r Record) (Event, error)
	// List returns events ascending by timestamp, then id.
	List(ctx context.Context, opts ListOptions) ([]Event, error)
}

// Normalize applies the record defaults and converts the value into its tagged form.
func Normalize(r Record, now time.Time) (Event, error) {
	v, err := ValueOf(r.Value)
	if err != nil {
		return Event{}, err
	}
	ev := Event{
		Timestamp:    r.Timestamp,
		SourceModule: r.SourceModule,
		EventType:    r.EventType,
		Value:        v,
	}
	if ev.Timestamp == "" {
		ev.Timestamp = FormatTimestamp(now)
	}
	if ev.SourceModule == "" {
		ev.SourceModule = DefaultSourceModule
	}
	if ev.EventType == "" {
		ev.EventType = DefaultEventType
	}
	return ev, nil
}
