package holiday

import (
	"context"
	"time"

	"github.com/TGBox/stat-tracker/pkg/config"
	"github.com/TGBox/stat-tracker/pkg/errmodel"
	"github.com/TGBox/stat-tracker/pkg/tracker"
)

// Appointments lists the personal appointments between two dates, inclusive.
type Appointments interface {
	Appointments(ctx context.Context, from, to time.Time) ([]tracker.Appointment, error)
}

// Static serves a fixed set of appointments.
type Static []tracker.Appointment

// StaticFromConfig converts configured appointments. Dates must be YYYY-MM-DD.
func StaticFromConfig(in []config.Appointment) (Static, error) {
	out := make(Static, 0, len(in))
	for _, a := range in {
		d, err := time.Parse(tracker.DateLayout, a.Date)
		if err != nil {
			return nil, errmodel.Validation(tracker.ErrInvalidDate.Code, "appointment date must be YYYY-MM-DD",
				map[string]any{"title": a.Title, "date": a.Date})
		}
		out = append(out, tracker.Appointment{Title: a.Title, Date: d, Time: a.Time, Description: a.Description})
	}
	return out, nil
}

func (s Static) Appointments(_ context.Context, from, to time.Time) ([]tracker.Appointment, error) {
	from, to = tracker.Day(from), tracker.Day(to)
	var out []tracker.Appointment
	for _, a := range s {
		d := tracker.Day(a.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
