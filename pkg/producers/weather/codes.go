package weather

import (
	"fmt"
	"strings"
)

// wmoCodes describes the WMO weather interpretation codes Open-Meteo reports.
var wmoCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Light rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Light snowfall",
	73: "Moderate snowfall",
	75: "Heavy snowfall",
	77: "Snow grains",
	80: "Light rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Light snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with light hail",
	99: "Thunderstorm with heavy hail",
}

// Describe returns the description for a WMO code, or "Unknown".
func Describe(code int) string {
	if d, ok := wmoCodes[code]; ok {
		return d
	}
	return "Unknown"
}

// Warning thresholds.
const (
	WindWarningKmh     = 40
	RainWarningPercent = 70
)

// Warnings returns the warnings for one forecast point. The result is never nil.
func Warnings(description string, windKmh, precipitationPercent float64) []string {
	out := []string{}
	desc := strings.ToLower(description)
	if windKmh >= WindWarningKmh {
		out = append(out, fmt.Sprintf("Wind warning: wind speed of %g km/h expected.", windKmh))
	}
	if precipitationPercent >= RainWarningPercent && (strings.Contains(desc, "rain") || strings.Contains(desc, "shower")) {
		out = append(out, fmt.Sprintf("Precipitation warning: high chance of rain (%g%%) expected.", precipitationPercent))
	}
	if strings.Contains(desc, "thunderstorm") {
		out = append(out, "Thunderstorm warning: thunderstorms expected.")
	}
	if strings.Contains(desc, "fog") {
		out = append(out, "Visibility warning: fog expected.")
	}
	return out
}
