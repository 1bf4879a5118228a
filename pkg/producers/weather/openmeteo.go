package weather

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/TGBox/stat-tracker/internal/httpjson"
)

// Hourly is the hourly forecast block of an Open-Meteo response.
// Slices are index-aligned with Time.
type Hourly struct {
	Time                     []string  `json:"time"`
	Temperature              []float64 `json:"temperature_2m"`
	WeatherCode              []int     `json:"weather_code"`
	PrecipitationProbability []float64 `json:"precipitation_probability"`
	WindSpeed                []float64 `json:"wind_speed_10m"`
}

// Source fetches today's hourly forecast for a coordinate.
type Source interface {
	Hourly(ctx context.Context, lat, lon float64, timezone string) (Hourly, error)
}

// OpenMeteo is the Open-Meteo forecast API client.
type OpenMeteo struct {
	BaseURL string
	Client  *httpjson.Client
}

// NewOpenMeteo returns a client for baseURL.
func NewOpenMeteo(baseURL string, timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{BaseURL: baseURL, Client: httpjson.New(timeout)}
}

func (o *OpenMeteo) Hourly(ctx context.Context, lat, lon float64, timezone string) (Hourly, error) {
	q := url.Values{
		"latitude":      {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(lon, 'f', -1, 64)},
		"hourly":        {"temperature_2m,weather_code,precipitation_probability,wind_speed_10m"},
		"forecast_days": {"1"},
	}
	if timezone != "" {
		q.Set("timezone", timezone)
	}
	var res struct {
		Hourly *Hourly `json:"hourly"`
	}
	if err := o.Client.GetJSON(ctx, o.BaseURL, q, &res); err != nil {
		return Hourly{}, err
	}
	if res.Hourly == nil {
		return Hourly{}, errNoHourly
	}
	return *res.Hourly, nil
}
