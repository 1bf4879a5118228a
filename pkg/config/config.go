// Package config loads stat-tracker settings: built-in defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`

	Place     Place          `yaml:"place"`
	Weather   WeatherConfig  `yaml:"weather"`
	Pollen    PollenConfig   `yaml:"pollen"`
	Holiday   HolidayConfig  `yaml:"holiday"`
	Shopping  ShoppingConfig `yaml:"shopping"`
	Browser   BrowserConfig  `yaml:"browser"`
	Location  LocationConfig `yaml:"location"`
	Telemetry Telemetry      `yaml:"telemetry"`
}

// Place is the location weather and pollen are fetched for.
type Place struct {
	Name      string  `yaml:"name"      env:"STAT_TRACKER_PLACE"`
	Latitude  float64 `yaml:"latitude"  env:"STAT_TRACKER_LATITUDE"`
	Longitude float64 `yaml:"longitude" env:"STAT_TRACKER_LONGITUDE"`
	Timezone  string  `yaml:"timezone"  env:"STAT_TRACKER_TIMEZONE"`
}

type WeatherConfig struct {
	Enabled     bool          `yaml:"enabled"      env:"STAT_TRACKER_WEATHER_ENABLED"`
	BaseURL     string        `yaml:"base_url"     env:"STAT_TRACKER_WEATHER_URL"`
	TargetHours []int         `yaml:"target_hours" env:"STAT_TRACKER_WEATHER_HOURS" envSeparator:","`
	Timeout     time.Duration `yaml:"timeout"`
}

type PollenConfig struct {
	Enabled bool          `yaml:"enabled"  env:"STAT_TRACKER_POLLEN_ENABLED"`
	BaseURL string        `yaml:"base_url" env:"STAT_TRACKER_POLLEN_URL"`
	Timeout time.Duration `yaml:"timeout"`
}

type HolidayConfig struct {
	Enabled      bool          `yaml:"enabled"      env:"STAT_TRACKER_HOLIDAY_ENABLED"`
	BaseURL      string        `yaml:"base_url"     env:"STAT_TRACKER_HOLIDAY_URL"`
	CountryCode  string        `yaml:"country_code" env:"STAT_TRACKER_COUNTRY"`
	Timeout      time.Duration `yaml:"timeout"`
	Appointments []Appointment `yaml:"appointments"`
}

// Appointment is a calendar entry supplied through configuration.
type Appointment struct {
	Title       string `yaml:"title"`
	Date        string `yaml:"date"`
	Time        string `yaml:"time"`
	Description string `yaml:"description"`
}

type ShoppingConfig struct {
	Enabled     bool   `yaml:"enabled"     env:"STAT_TRACKER_SHOPPING_ENABLED"`
	ImagePath   string `yaml:"image_path"  env:"STAT_TRACKER_SHOPPING_IMAGE"`
	Instruction string `yaml:"instruction"`
	// Provider selects the vision backend: "gemini" or "openai".
	Provider     string        `yaml:"provider" env:"STAT_TRACKER_VISION_PROVIDER"`
	Model        string        `yaml:"model"    env:"STAT_TRACKER_VISION_MODEL"`
	GoogleAPIKey string        `yaml:"-"        env:"GOOGLE_API_KEY"`
	OpenAIAPIKey string        `yaml:"-"        env:"OPENAI_API_KEY"`
	Timeout      time.Duration `yaml:"timeout"`
}

type BrowserConfig struct {
	Enabled    bool          `yaml:"enabled"     env:"STAT_TRACKER_BROWSER_ENABLED"`
	PlacesPath string        `yaml:"places_path" env:"STAT_TRACKER_PLACES_PATH"`
	Pattern    string        `yaml:"pattern"`
	Window     time.Duration `yaml:"window"`
}

type LocationConfig struct {
	Enabled bool     `yaml:"enabled" env:"STAT_TRACKER_LOCATION_ENABLED"`
	Visited []string `yaml:"visited"`
}

type Telemetry struct {
	ServiceName string `yaml:"service_name"`
	// Stdout exports traces to stdout.
	Stdout bool `yaml:"stdout" env:"STAT_TRACKER_TRACE_STDOUT"`
	// MetricsFile, when set, receives the run metrics in the node exporter textfile format.
	MetricsFile string `yaml:"metrics_file" env:"STAT_TRACKER_METRICS_FILE"`
	// OTLPEndpoint receives traces over OTLP/HTTP when set.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
}

// DefaultInstruction asks the vision model for the items on a shopping list.
const DefaultInstruction = `Extract the list of items from this shopping list. Answer with a JSON object with a key "items" whose value is an array of strings, one entry per line, keeping any quantity written next to an item. Example: {"items": ["2x Milk", "Bread", "6 Eggs"]}`

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabaseURL: "sqlite:file:statistics.db?_pragma=busy_timeout(5000)",
		Place: Place{
			Name:      "Ulm",
			Latitude:  48.4011,
			Longitude: 9.9876,
			Timezone:  "Europe/Berlin",
		},
		Weather: WeatherConfig{
			Enabled:     true,
			BaseURL:     "https://api.open-meteo.com/v1/forecast",
			TargetHours: []int{8, 14, 18, 22},
			Timeout:     10 * time.Second,
		},
		Pollen: PollenConfig{
			Enabled: true,
			BaseURL: "https://air-quality-api.open-meteo.com/v1/air-quality",
			Timeout: 10 * time.Second,
		},
		Holiday: HolidayConfig{
			Enabled:     true,
			BaseURL:     "https://date.nager.at/api/v3",
			CountryCode: "DE",
			Timeout:     10 * time.Second,
		},
		Shopping: ShoppingConfig{
			Enabled:     false,
			Instruction: DefaultInstruction,
			Provider:    "gemini",
			Timeout:     60 * time.Second,
		},
		Browser: BrowserConfig{
			Enabled: false,
			Pattern: "%youtube.com/watch%",
			Window:  24 * time.Hour,
		},
		Location: LocationConfig{Enabled: true},
		Telemetry: Telemetry{
			ServiceName: "stat-tracker",
		},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("database_url is empty"))
	}
	if c.Place.Latitude < -90 || c.Place.Latitude > 90 {
		errs = append(errs, fmt.Errorf("place.latitude %v out of range", c.Place.Latitude))
	}
	if c.Place.Longitude < -180 || c.Place.Longitude > 180 {
		errs = append(errs, fmt.Errorf("place.longitude %v out of range", c.Place.Longitude))
	}
	if c.Place.Timezone != "" {
		if _, err := time.LoadLocation(c.Place.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("place.timezone: %w", err))
		}
	}
	for _, h := range c.Weather.TargetHours {
		if h < 0 || h > 23 {
			errs = append(errs, fmt.Errorf("weather.target_hours: %d is not an hour of the day", h))
		}
	}
	if c.Holiday.Enabled && len(c.Holiday.CountryCode) != 2 {
		errs = append(errs, fmt.Errorf("holiday.country_code %q must be a two-letter code", c.Holiday.CountryCode))
	}
	for i, a := range c.Holiday.Appointments {
		if _, err := time.Parse("2006-01-02", a.Date); err != nil {
			errs = append(errs, fmt.Errorf("holiday.appointments[%d].date %q must be YYYY-MM-DD", i, a.Date))
		}
	}
	switch c.Shopping.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("shopping.provider %q must be gemini or openai", c.Shopping.Provider))
	}
	if c.Browser.Window < 0 {
		errs = append(errs, errors.New("browser.window must not be negative"))
	}
	return errors.Join(errs...)
}

// TimeZone returns the configured time zone, falling back to the local zone.
func (c Config) TimeZone() *time.Location {
	if c.Place.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Place.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
