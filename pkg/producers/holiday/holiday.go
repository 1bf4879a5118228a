// Package holiday produces reminders for this week's public holidays and
// personal appointments.
package holiday

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/TGBox/stat-tracker/pkg/config"
	"github.com/TGBox/stat-tracker/pkg/errmodel"
	"github.com/TGBox/stat-tracker/pkg/producer"
	"github.com/TGBox/stat-tracker/pkg/store"
	"github.com/TGBox/stat-tracker/pkg/tracker"
	"github.com/TGBox/stat-tracker/pkg/validate"
)

// Name is the canonical module name.
const Name = "holiday_and_appointment_tracker"

// Event types.
const (
	EventHolidayReminder     = "weekly_holiday_reminder"
	EventAppointmentReminder = "weekly_appointment_reminder"
	EventAppointmentConflict = "appointment_conflict"
	EventHolidayFetchFailed  = "holiday_fetch_failed"

	NoData = "no_data_available"
)

// HolidayReminder is the value of a weekly_holiday_reminder event.
type HolidayReminder struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	LocalName string `json:"local_name"`
	Type      string `json:"type"`
}

// AppointmentReminder is the value of a weekly_appointment_reminder event.
// Time is null for all-day appointments.
type AppointmentReminder struct {
	Date        string  `json:"date"`
	Time        *string `json:"time"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
}

// Conflict is the value of an appointment_conflict event.
type Conflict struct {
	Date   string `json:"date"`
	Time   string `json:"time,omitempty"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Producer emits the reminders of the current Monday to Sunday week.
type Producer struct {
	holidays     Holidays
	appointments Appointments
	country      string
	loc          *time.Location
	now          func() time.Time
	logger       *log.Logger
}

// Option configures a Producer.
type Option func(*Producer)

// WithClock overrides the clock that decides the current week.
func WithClock(now func() time.Time) Option { return func(p *Producer) { p.now = now } }

// WithLogger sets the logger for collaborator failures.
func WithLogger(l *log.Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.logger = l
		}
	}
}

// New constructs a Producer. Either source may be nil.
func New(holidays Holidays, appointments Appointments, country string, loc *time.Location, opts ...Option) *Producer {
	if loc == nil {
		loc = time.Local
	}
	p := &Producer{
		holidays:     holidays,
		appointments: appointments,
		country:      country,
		loc:          loc,
		now:          time.Now,
		logger:       log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Factory builds the producer from configuration.
func Factory(cfg config.Config, logger *log.Logger) producer.Factory {
	return func(ctx context.Context) (producer.Producer, error) {
		if !cfg.Holiday.Enabled {
			return nil, producer.ErrDisabled
		}
		static, err := StaticFromConfig(cfg.Holiday.Appointments)
		if err != nil {
			return nil, err
		}
		var h Holidays
		if cfg.Holiday.BaseURL != "" {
			h = NewNager(cfg.Holiday.BaseURL, cfg.Holiday.Timeout)
		}
		return New(h, static, cfg.Holiday.CountryCode, cfg.TimeZone(), WithLogger(logger)), nil
	}
}

func (p *Producer) Name() string { return Name }

var (
	holidaySchema     = validate.MustSchemaFor[HolidayReminder]()
	appointmentSchema = validate.MustSchemaFor[AppointmentReminder]()
	conflictSchema    = validate.MustSchemaFor[Conflict]()
)

func (p *Producer) Schemas() map[string][]byte {
	return map[string][]byte{
		EventHolidayReminder:     holidaySchema,
		EventAppointmentReminder: appointmentSchema,
		EventAppointmentConflict: conflictSchema,
	}
}

// Week returns the Monday and Sunday of the week containing t.
func Week(t time.Time) (monday, sunday time.Time) {
	d := tracker.Day(t)
	offset := (int(d.Weekday()) + 6) % 7
	monday = d.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// Produce emits the week's holidays first, then its appointments. An
// appointment the calendar rejects becomes an appointment_conflict event.
func (p *Producer) Produce(ctx context.Context) ([]store.Record, error) {
	monday, sunday := Week(p.now().In(p.loc))
	var (
		out []store.Record
		cal tracker.Calendar
	)

	holidays, err := p.fetchHolidays(ctx, monday, sunday)
	if err != nil {
		p.logger.Printf("%s: holiday fetch failed: %v", Name, err)
		out = append(out, store.Record{EventType: EventHolidayFetchFailed, Value: NoData})
	}
	for _, h := range holidays {
		d, err := time.Parse(tracker.DateLayout, h.Date)
		if err != nil {
			p.logger.Printf("%s: skipping holiday %q with bad date %q", Name, h.Name, h.Date)
			continue
		}
		if d.Before(monday) || d.After(sunday) {
			continue
		}
		if err := cal.AddHoliday(tracker.Holiday{Name: h.Name, Date: d}); err != nil {
			p.logger.Printf("%s: skipping holiday %q: %v", Name, h.Name, err)
			continue
		}
		out = append(out, store.Record{
			EventType: EventHolidayReminder,
			Value:     HolidayReminder{Date: h.Date, Name: h.Name, LocalName: h.LocalName, Type: "public_holiday"},
		})
	}

	if p.appointments == nil {
		return out, nil
	}
	appts, err := p.appointments.Appointments(ctx, monday, sunday)
	if err != nil {
		p.logger.Printf("%s: reading appointments failed: %v", Name, err)
		return out, nil
	}
	for _, a := range appts {
		date := tracker.Day(a.Date).Format(tracker.DateLayout)
		if err := cal.AddAppointment(a); err != nil {
			p.logger.Printf("%s: appointment %q rejected: %v", Name, a.Title, err)
			out = append(out, store.Record{
				EventType: EventAppointmentConflict,
				Value:     Conflict{Date: date, Time: a.Time, Title: a.Title, Reason: errmodel.From(err).Message},
			})
			continue
		}
		var clock *string
		if a.Time != "" {
			clock = &a.Time
		}
		out = append(out, store.Record{
			EventType: EventAppointmentReminder,
			Value: AppointmentReminder{
				Date:        date,
				Time:        clock,
				Title:       a.Title,
				Description: a.Description,
				Type:        "personal_appointment",
			},
		})
	}
	return out, nil
}

// fetchHolidays queries every year the week touches.
func (p *Producer) fetchHolidays(ctx context.Context, monday, sunday time.Time) ([]PublicHoliday, error) {
	if p.holidays == nil {
		return nil, nil
	}
	var out []PublicHoliday
	for year := monday.Year(); year <= sunday.Year(); year++ {
		hs, err := p.holidays.PublicHolidays(ctx, year, p.country)
		if err != nil {
			return out, err
		}
		out = append(out, hs...)
	}
	return out, nil
}
