// Package weather produces today's forecast at fixed hours plus a daily
// temperature summary.
package weather

import (
	"context"
	"io"
	"log"
	"slices"
	"time"

	"github.com/TGBox/stat-tracker/pkg/config"
	"github.com/TGBox/stat-tracker/pkg/errmodel"
	"github.com/TGBox/stat-tracker/pkg/producer"
	"github.com/TGBox/stat-tracker/pkg/store"
	"github.com/TGBox/stat-tracker/pkg/tracker"
	"github.com/TGBox/stat-tracker/pkg/validate"
)

// Name is the canonical module name.
const Name = "weather_tracker"

// Event types.
const (
	EventForecast     = "weather_forecast"
	EventDailySummary = "weather_daily_summary"
	EventFetchFailed  = "weather_fetch_failed"
)

// NoData is the value of a fetch failure event.
const NoData = "no_data_available"

const hourLayout = "2006-01-02T15:04"

var errNoHourly = errmodel.Validation("no_hourly_data", "response has no hourly block", nil)

// Forecast is one forecast point.
type Forecast struct {
	Time                     string  `json:"time"`
	TemperatureCelsius       float64 `json:"temperature_celsius"`
	WeatherDescription       string  `json:"weather_description"`
	PrecipitationProbability float64 `json:"precipitation_probability_percent"`
	WindSpeedKmh             float64 `json:"wind_speed_kmh"`
}

// ForecastValue is the value of a weather_forecast event.
type ForecastValue struct {
	Forecast Forecast `json:"forecast"`
	Warnings []string `json:"warnings"`
}

// Summary is the value of a weather_daily_summary event.
type Summary struct {
	Date    string  `json:"date"`
	Place   string  `json:"place"`
	Samples int     `json:"samples"`
	Average float64 `json:"average_celsius"`
	Min     float64 `json:"min_celsius"`
	Max     float64 `json:"max_celsius"`
}

// Producer emits weather events for one place.
type Producer struct {
	src    Source
	place  config.Place
	hours  []int
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

// New constructs a Producer for place, sampling the given hours of the day.
func New(src Source, place config.Place, hours []int, loc *time.Location, opts ...Option) *Producer {
	if loc == nil {
		loc = time.Local
	}
	p := &Producer{
		src:    src,
		place:  place,
		hours:  hours,
		loc:    loc,
		now:    time.Now,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Factory builds the producer from configuration.
func Factory(cfg config.Config, logger *log.Logger) producer.Factory {
	return func(ctx context.Context) (producer.Producer, error) {
		if !cfg.Weather.Enabled {
			return nil, producer.ErrDisabled
		}
		if cfg.Weather.BaseURL == "" {
			return nil, errmodel.Validation("missing_config", "weather.base_url is empty", nil)
		}
		src := NewOpenMeteo(cfg.Weather.BaseURL, cfg.Weather.Timeout)
		return New(src, cfg.Place, cfg.Weather.TargetHours, cfg.TimeZone(), WithLogger(logger)), nil
	}
}

func (p *Producer) Name() string { return Name }

func (p *Producer) Schemas() map[string][]byte {
	return map[string][]byte{
		EventForecast:     forecastSchema,
		EventDailySummary: summarySchema,
	}
}

var (
	forecastSchema = validate.MustSchemaFor[ForecastValue]()
	summarySchema  = validate.MustSchemaFor[Summary]()
)

// Produce fetches the forecast and returns one record per target hour of
// today, followed by the daily summary. A fetch failure yields a single
// weather_fetch_failed record.
func (p *Producer) Produce(ctx context.Context) ([]store.Record, error) {
	hourly, err := p.src.Hourly(ctx, p.place.Latitude, p.place.Longitude, p.place.Timezone)
	if err != nil {
		p.logger.Printf("%s: fetch failed: %v", Name, err)
		return []store.Record{{EventType: EventFetchFailed, Value: NoData}}, nil
	}

	today := p.now().In(p.loc).Format(tracker.DateLayout)
	var (
		out   []store.Record
		stats tracker.Weather
	)
	for i, ts := range hourly.Time {
		t, err := time.ParseInLocation(hourLayout, ts, p.loc)
		if err != nil {
			p.logger.Printf("%s: skipping unparsable time %q", Name, ts)
			continue
		}
		if t.Format(tracker.DateLayout) != today || !slices.Contains(p.hours, t.Hour()) {
			continue
		}
		f := Forecast{
			Time:                     t.Format("15:04"),
			TemperatureCelsius:       at(hourly.Temperature, i),
			WeatherDescription:       Describe(at(hourly.WeatherCode, i)),
			PrecipitationProbability: at(hourly.PrecipitationProbability, i),
			WindSpeedKmh:             at(hourly.WindSpeed, i),
		}
		if err := stats.AddRecord(today, f.TemperatureCelsius); err != nil {
			p.logger.Printf("%s: skipping %s: %v", Name, ts, err)
			continue
		}
		out = append(out, store.Record{
			Timestamp: store.FormatTimestamp(t),
			EventType: EventForecast,
			Value: ForecastValue{
				Forecast: f,
				Warnings: Warnings(f.WeatherDescription, f.WindSpeedKmh, f.PrecipitationProbability),
			},
		})
	}
	if len(out) == 0 {
		p.logger.Printf("%s: no forecast for the target hours of %s", Name, today)
		return out, nil
	}
	minT, _ := stats.MinTemperature()
	maxT, _ := stats.MaxTemperature()
	out = append(out, store.Record{
		EventType: EventDailySummary,
		Value: Summary{
			Date:    today,
			Place:   p.place.Name,
			Samples: len(stats.Records()),
			Average: stats.AverageTemperature(),
			Min:     minT,
			Max:     maxT,
		},
	})
	return out, nil
}

// at tolerates hourly series shorter than the time axis.
func at[T int | float64](v []T, i int) T {
	var zero T
	if i < len(v) {
		return v[i]
	}
	return zero
}
