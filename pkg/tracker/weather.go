package tracker

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// WeatherRecord is one temperature reading for a date.
type WeatherRecord struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
}

// Weather is an append-only list of temperature readings.
type Weather struct {
	records []WeatherRecord
}

// AddRecord validates and appends a reading. date must be YYYY-MM-DD.
func (w *Weather) AddRecord(date string, temperature float64) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return errmodel.Validation(ErrInvalidDate.Code, "date must be YYYY-MM-DD", map[string]any{"date": date})
	}
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return errmodel.Validation(ErrInvalidTemperature.Code, "temperature must be a finite number", map[string]any{"temperature": fmt.Sprint(temperature)})
	}
	w.records = append(w.records, WeatherRecord{Date: date, Temperature: temperature})
	return nil
}

// ParseTemperature converts a decoded numeric value into a temperature.
// Strings, booleans and other non-numeric values fail with ErrInvalidTemperature.
func ParseTemperature(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, invalidTemperature(v)
		}
		f = parsed
	default:
		return 0, invalidTemperature(v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalidTemperature(v)
	}
	return f, nil
}

func invalidTemperature(v any) error {
	return errmodel.Validation(ErrInvalidTemperature.Code, "temperature must be a finite number",
		map[string]any{"temperature": fmt.Sprint(v), "type": fmt.Sprintf("%T", v)})
}

// Records returns a copy of the readings in insertion order.
func (w *Weather) Records() []WeatherRecord {
	out := make([]WeatherRecord, len(w.records))
	copy(out, w.records)
	return out
}

// AverageTemperature returns the mean, or 0 when there are no readings.
func (w *Weather) AverageTemperature() float64 {
	if len(w.records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range w.records {
		sum += r.Temperature
	}
	return sum / float64(len(w.records))
}

// MaxTemperature returns the highest reading or ErrNoRecords.
func (w *Weather) MaxTemperature() (float64, error) {
	if len(w.records) == 0 {
		return 0, ErrNoRecords
	}
	m := w.records[0].Temperature
	for _, r := range w.records[1:] {
		m = max(m, r.Temperature)
	}
	return m, nil
}

// MinTemperature returns the lowest reading or ErrNoRecords.
func (w *Weather) MinTemperature() (float64, error) {
	if len(w.records) == 0 {
		return 0, ErrNoRecords
	}
	m := w.records[0].Temperature
	for _, r := range w.records[1:] {
		m = min(m, r.Temperature)
	}
	return m, nil
}
