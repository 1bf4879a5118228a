package tracker

import (
	"fmt"
	"strings"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// Location tracks the current place and every place ever set.
type Location struct {
	current string
	history []string
}

// NewLocation seeds the tracker with initial, which must not be blank.
func NewLocation(initial string) (*Location, error) {
	if strings.TrimSpace(initial) == "" {
		return nil, ErrInvalidLocation
	}
	return &Location{current: initial, history: []string{initial}}, nil
}

// Current returns the current location.
func (l *Location) Current() string { return l.current }

// Update sets the current location and appends it to the history.
func (l *Location) Update(loc string) error {
	if strings.TrimSpace(loc) == "" {
		return ErrInvalidLocation
	}
	l.current = loc
	l.history = append(l.history, loc)
	return nil
}

// History returns a copy of the history, oldest first.
func (l *Location) History() []string {
	out := make([]string, len(l.history))
	copy(out, l.history)
	return out
}

// Find returns the first index of loc in the history.
func (l *Location) Find(loc string) (int, error) {
	for i, h := range l.history {
		if h == loc {
			return i, nil
		}
	}
	return -1, errmodel.NotFound(ErrLocationNotFound.Code, "location not in history", map[string]any{"location": loc})
}

// ResetHistory empties the history. The current location is kept.
func (l *Location) ResetHistory() { l.history = nil }

func (l *Location) String() string {
	return fmt.Sprintf("Location(current=%q, history=%d)", l.current, len(l.history))
}
