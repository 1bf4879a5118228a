package pollen

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TGBox/stat-tracker/internal/httpjson"
	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// Types are the pollen series requested from the air-quality API.
var Types = []string{"alder", "birch", "grass", "mugwort", "olive", "ragweed"}

const suffix = "_pollen"

// Hourly holds the hourly pollen series keyed by pollen type (without the
// "_pollen" suffix). Values are index-aligned with Time; nil marks a gap.
type Hourly struct {
	Time   []string
	Series map[string][]*float64
}

// Source fetches today's hourly pollen concentrations for a coordinate.
type Source interface {
	Hourly(ctx context.Context, lat, lon float64, timezone string) (Hourly, error)
}

// OpenMeteo is the Open-Meteo air-quality API client.
type OpenMeteo struct {
	BaseURL string
	Client  *httpjson.Client
}

// NewOpenMeteo returns a client for baseURL.
func NewOpenMeteo(baseURL string, timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{BaseURL: baseURL, Client: httpjson.New(timeout)}
}

func (o *OpenMeteo) Hourly(ctx context.Context, lat, lon float64, timezone string) (Hourly, error) {
	series := make([]string, len(Types))
	for i, t := range Types {
		series[i] = t + suffix
	}
	q := url.Values{
		"latitude":      {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(lon, 'f', -1, 64)},
		"hourly":        {strings.Join(series, ",")},
		"forecast_days": {"1"},
	}
	if timezone != "" {
		q.Set("timezone", timezone)
	}
	var res struct {
		Hourly map[string]json.RawMessage `json:"hourly"`
	}
	if err := o.Client.GetJSON(ctx, o.BaseURL, q, &res); err != nil {
		return Hourly{}, err
	}
	if res.Hourly == nil {
		return Hourly{}, errNoHourly
	}
	return parseHourly(res.Hourly)
}

// parseHourly keeps the time axis and every key ending in "_pollen".
func parseHourly(raw map[string]json.RawMessage) (Hourly, error) {
	out := Hourly{Series: make(map[string][]*float64)}
	if t, ok := raw["time"]; ok {
		if err := json.Unmarshal(t, &out.Time); err != nil {
			return Hourly{}, errmodel.Validation("bad_response", "hourly.time is not a list of strings", map[string]any{"error": err.Error()})
		}
	}
	for key, v := range raw {
		name, ok := strings.CutSuffix(key, suffix)
		if !ok {
			continue
		}
		var values []*float64
		if err := json.Unmarshal(v, &values); err != nil {
			return Hourly{}, errmodel.Validation("bad_response", "pollen series is not numeric", map[string]any{"series": key, "error": err.Error()})
		}
		out.Series[name] = values
	}
	return out, nil
}
