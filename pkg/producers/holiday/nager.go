package holiday

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/TGBox/stat-tracker/internal/httpjson"
	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// PublicHoliday is one entry of the Nager.Date PublicHolidays endpoint.
type PublicHoliday struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Global      bool     `json:"global"`
	Types       []string `json:"types"`
}

// Holidays lists the public holidays of a year.
type Holidays interface {
	PublicHolidays(ctx context.Context, year int, countryCode string) ([]PublicHoliday, error)
}

// Nager is the date.nager.at client.
type Nager struct {
	BaseURL string
	Client  *httpjson.Client
}

// NewNager returns a client for baseURL, e.g. https://date.nager.at/api/v3.
func NewNager(baseURL string, timeout time.Duration) *Nager {
	return &Nager{BaseURL: baseURL, Client: httpjson.New(timeout)}
}

func (n *Nager) PublicHolidays(ctx context.Context, year int, countryCode string) ([]PublicHoliday, error) {
	u, err := url.JoinPath(n.BaseURL, "PublicHolidays", strconv.Itoa(year), countryCode)
	if err != nil {
		return nil, errmodel.Validation("bad_url", "invalid holiday API URL", map[string]any{"url": n.BaseURL})
	}
	var out []PublicHoliday
	if err := n.Client.GetJSON(ctx, u, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
