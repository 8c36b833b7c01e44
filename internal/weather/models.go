// Package weather defines the domain model for per-city weather data:
// the merged current+forecast bundle, the provider contract, and the
// error taxonomy shared by the fetch pipeline.
package weather

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors. Services translate transport and provider failures into
// these before they reach the coordinator; callers match with errors.Is.
var (
	ErrLocationNotFound             = errors.New("location could not be resolved to a region")
	ErrInvalidAdministrativeCode    = errors.New("invalid administrative code")
	ErrNetwork                      = errors.New("network request failed")
	ErrDataParsing                  = errors.New("provider returned unusable data")
	ErrCityNotFound                 = errors.New("city not found in region table")
	ErrLocationAuthorizationDenied  = errors.New("location authorization denied")
	ErrLocationAuthorizationTimeout = errors.New("location authorization timed out")
	ErrNetworkUnavailable           = errors.New("network unavailable")
	ErrMissingCredentials           = errors.New("provider API key not configured")
)

// APIError is a failure reported inside a provider's response payload,
// separate from the HTTP status.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider api error: %s", e.Message)
}

// Provider fetches weather data for an administrative region.
type Provider interface {
	// CurrentConditions fetches live conditions for an administrative code.
	CurrentConditions(ctx context.Context, adcode string) ([]CurrentConditions, error)

	// Forecast fetches the daily forecast for an administrative code.
	Forecast(ctx context.Context, adcode string) ([]DailyForecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// CityWeatherBundle is the unit of truth for one city: the merged
// current-conditions and forecast payloads. Display names keep insertion
// order.
type CityWeatherBundle struct {
	CityNames []string            `json:"city_names"`
	Current   []CurrentConditions `json:"current"`
	Forecast  []DailyForecast     `json:"forecast"`
}

// Valid reports whether the bundle may be cached or published. Both halves
// must be present; a partial bundle is never surfaced as success.
func (b *CityWeatherBundle) Valid() bool {
	return b != nil && len(b.Current) > 0 && len(b.Forecast) > 0
}

// DisplayName returns the primary display name for the bundle.
func (b *CityWeatherBundle) DisplayName() string {
	if len(b.CityNames) == 0 {
		return ""
	}
	return b.CityNames[0]
}

// CurrentConditions is one live observation as reported by the provider.
// Fields keep the provider's string typing; values are immutable once
// decoded. ReportTime is formatted "2006-01-02 15:04:05".
type CurrentConditions struct {
	Province         string `json:"province"`
	City             string `json:"city"`
	Adcode           string `json:"adcode"`
	Weather          string `json:"weather"`
	Temperature      string `json:"temperature"`
	WindDirection    string `json:"winddirection"`
	WindPower        string `json:"windpower"`
	Humidity         string `json:"humidity"`
	ReportTime       string `json:"reporttime"`
	TemperatureFloat string `json:"temperature_float"`
	HumidityFloat    string `json:"humidity_float"`
}

// DailyForecast is one forecast day. Date is "2006-01-02"; Week is the
// weekday index "1".."7". Ordered by date ascending within a bundle.
type DailyForecast struct {
	Date             string `json:"date"`
	Week             string `json:"week"`
	DayWeather       string `json:"dayweather"`
	NightWeather     string `json:"nightweather"`
	DayTemperature   string `json:"daytemp"`
	NightTemperature string `json:"nighttemp"`
	DayWind          string `json:"daywind"`
	NightWind        string `json:"nightwind"`
	DayPower         string `json:"daypower"`
	NightPower       string `json:"nightpower"`
	DayTempFloat     string `json:"daytemp_float"`
	NightTempFloat   string `json:"nighttemp_float"`
}
