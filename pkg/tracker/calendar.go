package tracker

import (
	"time"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// DateLayout is the calendar date layout used for keys and payloads.
const DateLayout = "2006-01-02"

// Holiday is a named calendar date.
type Holiday struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Appointment is a titled entry on a date. An empty Time means all-day.
type Appointment struct {
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Day truncates t to its calendar date in t's location and returns it at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type appointmentKey struct {
	date string
	time string
}

// Calendar tracks holidays (one per date) and appointments (one per date and time).
// An appointment may not fall on a holiday. Adding a holiday does not revisit
// appointments already on that date.
type Calendar struct {
	holidays     []Holiday
	appointments []Appointment
	holidayIdx   map[string]int
	apptIdx      map[appointmentKey]int
}

// NewCalendar returns an empty calendar. The zero Calendar is also ready to use.
func NewCalendar() *Calendar {
	return &Calendar{
		holidayIdx: make(map[string]int),
		apptIdx:    make(map[appointmentKey]int),
	}
}

// AddHoliday inserts h. It fails with ErrHolidayAlreadyExists when its date is taken.
func (c *Calendar) AddHoliday(h Holiday) error {
	c.lazyInit()
	h.Date = Day(h.Date)
	key := h.Date.Format(DateLayout)
	if i, ok := c.holidayIdx[key]; ok {
		return errmodel.Conflict(ErrHolidayAlreadyExists.Code, "a holiday already exists on this date",
			map[string]any{"date": key, "existing": c.holidays[i].Name, "name": h.Name})
	}
	c.holidayIdx[key] = len(c.holidays)
	c.holidays = append(c.holidays, h)
	return nil
}

// RemoveHoliday deletes the holiday on date or fails with ErrHolidayNotFound.
func (c *Calendar) RemoveHoliday(date time.Time) error {
	key := Day(date).Format(DateLayout)
	i, ok := c.holidayIdx[key]
	if !ok {
		return errmodel.NotFound(ErrHolidayNotFound.Code, "no holiday on this date", map[string]any{"date": key})
	}
	c.holidays = append(c.holidays[:i], c.holidays[i+1:]...)
	c.reindexHolidays()
	return nil
}

// HolidayOn returns the holiday on date, if any.
func (c *Calendar) HolidayOn(date time.Time) (Holiday, bool) {
	i, ok := c.holidayIdx[Day(date).Format(DateLayout)]
	if !ok {
		return Holiday{}, false
	}
	return c.holidays[i], true
}

// AddAppointment inserts a. It fails with ErrAppointmentConflict when the date
// has a holiday or the same date and time is already booked, and with
// ErrInvalidTime when Time is set but not HH:MM.
func (c *Calendar) AddAppointment(a Appointment) error {
	c.lazyInit()
	a.Date = Day(a.Date)
	if err := validTime(a.Time); err != nil {
		return err
	}
	key := appointmentKey{date: a.Date.Format(DateLayout), time: a.Time}
	if h, ok := c.HolidayOn(a.Date); ok {
		return errmodel.Conflict(ErrAppointmentConflict.Code, "appointment falls on a holiday",
			map[string]any{"date": key.date, "holiday": h.Name, "title": a.Title})
	}
	if i, ok := c.apptIdx[key]; ok {
		return errmodel.Conflict(ErrAppointmentConflict.Code, "an appointment already exists at this date and time",
			map[string]any{"date": key.date, "time": key.time, "existing": c.appointments[i].Title, "title": a.Title})
	}
	c.apptIdx[key] = len(c.appointments)
	c.appointments = append(c.appointments, a)
	return nil
}

// RemoveAppointment deletes the appointment at exactly date and clock or fails
// with ErrAppointmentNotFound.
func (c *Calendar) RemoveAppointment(date time.Time, clock string) error {
	key := appointmentKey{date: Day(date).Format(DateLayout), time: clock}
	i, ok := c.apptIdx[key]
	if !ok {
		return errmodel.NotFound(ErrAppointmentNotFound.Code, "no appointment at this date and time",
			map[string]any{"date": key.date, "time": clock})
	}
	c.appointments = append(c.appointments[:i], c.appointments[i+1:]...)
	c.reindexAppointments()
	return nil
}

// Holidays returns the holidays in insertion order. The result is never nil.
func (c *Calendar) Holidays() []Holiday {
	out := make([]Holiday, len(c.holidays))
	copy(out, c.holidays)
	return out
}

// Appointments returns the appointments in insertion order. The result is never nil.
func (c *Calendar) Appointments() []Appointment {
	out := make([]Appointment, len(c.appointments))
	copy(out, c.appointments)
	return out
}

func (c *Calendar) lazyInit() {
	if c.holidayIdx == nil {
		c.holidayIdx = make(map[string]int)
	}
	if c.apptIdx == nil {
		c.apptIdx = make(map[appointmentKey]int)
	}
}

func (c *Calendar) reindexHolidays() {
	clear(c.holidayIdx)
	for i, h := range c.holidays {
		c.holidayIdx[h.Date.Format(DateLayout)] = i
	}
}

func (c *Calendar) reindexAppointments() {
	clear(c.apptIdx)
	for i, a := range c.appointments {
		c.apptIdx[appointmentKey{date: a.Date.Format(DateLayout), time: a.Time}] = i
	}
}

func validTime(clock string) error {
	if clock == "" {
		return nil
	}
	if len(clock) != 5 {
		return errmodel.Validation(ErrInvalidTime.Code, "time must be HH:MM", map[string]any{"time": clock})
	}
	if _, err := time.Parse("15:04", clock); err != nil {
		return errmodel.Validation(ErrInvalidTime.Code, "time must be HH:MM", map[string]any{"time": clock})
	}
	return nil
}
