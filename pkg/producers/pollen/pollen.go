// Package pollen produces today's pollen levels for the configured place.
package pollen

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
const Name = "pollen_tracker"

// Event types and their fixed values.
const (
	EventDaily            = "pollen_forecast_daily"
	EventFetchFailed      = "pollen_fetch_failed"
	EventNoDataToday      = "pollen_no_data_today"
	EventExtractionFailed = "pollen_extraction_failed"

	NoData          = "no_data_available"
	NoDataToday     = "no_data_for_current_day"
	NoSpecificData  = "no_specific_pollen_data"
	hourLayout      = "2006-01-02T15:04"
	highLevelCutoff = 100
)

var errNoHourly = errmodel.Validation("no_hourly_data", "response has no hourly block", nil)

// Level is a pollen load class from 0 (none) to 4 (very high).
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelModerate
	LevelHigh
	LevelVeryHigh
)

// LevelOf classifies a concentration in grains/m³.
func LevelOf(concentration float64) Level {
	switch {
	case concentration <= 0:
		return LevelNone
	case concentration < 30:
		return LevelLow
	case concentration < highLevelCutoff:
		return LevelModerate
	case concentration < 200:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "None"
	case LevelLow:
		return "Low"
	case LevelModerate:
		return "Moderate"
	case LevelHigh:
		return "High"
	case LevelVeryHigh:
		return "Very high"
	default:
		return "Unknown"
	}
}

// IsHigh reports whether the level warrants a warning.
func (l Level) IsHigh() bool { return l >= LevelHigh }

// Reading is today's value for one pollen type. Concentration is nil when
// the API had no sample; Level is then -1.
type Reading struct {
	Concentration *float64 `json:"concentration"`
	Level         int      `json:"level"`
	Description   string   `json:"description"`
}

// Daily is the value of a pollen_forecast_daily event.
type Daily struct {
	Date        string             `json:"date"`
	PollenTypes map[string]Reading `json:"pollen_types"`
}

// Producer emits pollen events for one place.
type Producer struct {
	src    Source
	place  config.Place
	loc    *time.Location
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Producer.
type Option func(*Producer)

// WithClock overrides the clock that decides what "today" is.
func WithClock(now func() time.Time) Option { return func(p *Producer) { p.now = now } }

// WithLogger sets the logger for collaborator failures.
func WithLogger(l *log.Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.logger = l
		}
	}
}

// New constructs a Producer.
func New(src Source, place config.Place, loc *time.Location, opts ...Option) *Producer {
	if loc == nil {
		loc = time.Local
	}
	p := &Producer{src: src, place: place, loc: loc, now: time.Now, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Factory builds the producer from configuration.
func Factory(cfg config.Config, logger *log.Logger) producer.Factory {
	return func(ctx context.Context) (producer.Producer, error) {
		if !cfg.Pollen.Enabled {
			return nil, producer.ErrDisabled
		}
		if cfg.Pollen.BaseURL == "" {
			return nil, errmodel.Validation("missing_config", "pollen.base_url is empty", nil)
		}
		src := NewOpenMeteo(cfg.Pollen.BaseURL, cfg.Pollen.Timeout)
		return New(src, cfg.Place, cfg.TimeZone(), WithLogger(logger)), nil
	}
}

func (p *Producer) Name() string { return Name }

var dailySchema = validate.MustSchemaFor[Daily]()

func (p *Producer) Schemas() map[string][]byte {
	return map[string][]byte{EventDaily: dailySchema}
}

// Produce takes the first sample of today for every pollen type.
func (p *Producer) Produce(ctx context.Context) ([]store.Record, error) {
	hourly, err := p.src.Hourly(ctx, p.place.Latitude, p.place.Longitude, p.place.Timezone)
	if err != nil {
		p.logger.Printf("%s: fetch failed: %v", Name, err)
		return []store.Record{{EventType: EventFetchFailed, Value: NoData}}, nil
	}

	today := p.now().In(p.loc).Format(tracker.DateLayout)
	idx := -1
	for i, ts := range hourly.Time {
		t, err := time.ParseInLocation(hourLayout, ts, p.loc)
		if err == nil && t.Format(tracker.DateLayout) == today {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.logger.Printf("%s: no samples for %s", Name, today)
		return []store.Record{{EventType: EventNoDataToday, Value: NoDataToday}}, nil
	}

	readings := make(map[string]Reading, len(hourly.Series))
	for name, values := range hourly.Series {
		if idx >= len(values) || values[idx] == nil {
			readings[name] = Reading{Level: -1, Description: "Unknown"}
			continue
		}
		c := *values[idx]
		lvl := LevelOf(c)
		readings[name] = Reading{Concentration: &c, Level: int(lvl), Description: lvl.String()}
		if lvl.IsHigh() {
			p.logger.Printf("%s: %s pollen is %s (%g grains/m³)", Name, name, lvl, c)
		}
	}
	if len(readings) == 0 {
		return []store.Record{{EventType: EventExtractionFailed, Value: NoSpecificData}}, nil
	}
	return []store.Record{{
		EventType: EventDaily,
		Value:     Daily{Date: today, PollenTypes: readings},
	}}, nil
}
