// Package tracker holds the in-memory domain trackers. Trackers enforce their
// invariants at mutation time and assume a single owner; callers that share a
// tracker across goroutines must synchronize access themselves.
package tracker

import "github.com/TGBox/stat-tracker/pkg/errmodel"

// Sentinel errors. Raised errors carry context and match these with errors.Is.
var (
	ErrHolidayAlreadyExists = errmodel.Conflict("holiday_already_exists", "a holiday already exists on this date", nil)
	ErrHolidayNotFound      = errmodel.NotFound("holiday_not_found", "no holiday on this date", nil)
	ErrAppointmentConflict  = errmodel.Conflict("appointment_conflict", "appointment conflicts with a holiday or another appointment", nil)
	ErrAppointmentNotFound  = errmodel.NotFound("appointment_not_found", "no appointment at this date and time", nil)
	ErrInvalidTime          = errmodel.Validation("invalid_time", "time must be HH:MM", nil)

	ErrInvalidItem     = errmodel.Validation("invalid_item", "item name must not be blank", nil)
	ErrInvalidQuantity = errmodel.Validation("invalid_quantity", "quantity must be a positive integer", nil)
	ErrItemNotFound    = errmodel.NotFound("item_not_found", "item is not on the list", nil)

	ErrInvalidDate        = errmodel.Validation("invalid_date", "date must be YYYY-MM-DD", nil)
	ErrInvalidTemperature = errmodel.Validation("invalid_temperature", "temperature must be a finite number", nil)
	ErrNoRecords          = errmodel.NotFound("no_records", "no weather records", nil)

	ErrInvalidLocation  = errmodel.Validation("invalid_location", "location must not be blank", nil)
	ErrLocationNotFound = errmodel.NotFound("location_not_found", "location not in history", nil)
)
