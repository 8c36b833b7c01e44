package models

import "github.com/skycastapp/skycast/internal/weather"

// WeatherResponse is the API shape of a fetched city bundle.
type WeatherResponse struct {
	City     string                    `json:"city"`
	Current  weather.CurrentConditions `json:"current"`
	Forecast []weather.DailyForecast   `json:"forecast"`
}

// NewWeatherResponse converts a bundle into its API shape. The bundle is
// assumed valid: both halves present.
func NewWeatherResponse(bundle *weather.CityWeatherBundle) WeatherResponse {
	return WeatherResponse{
		City:     bundle.DisplayName(),
		Current:  bundle.Current[0],
		Forecast: bundle.Forecast,
	}
}

// BatchFetchRequest asks for several cities in one call.
type BatchFetchRequest struct {
	Cities []string `json:"cities" validate:"required,min=1"`
}

// BatchFetchResponse carries per-city outcomes: failures do not void the
// successes.
type BatchFetchResponse struct {
	Results  []WeatherResponse `json:"results"`
	Failures map[string]string `json:"failures,omitempty"`
}

// RegionResult is one region search hit.
type RegionResult struct {
	Name     string `json:"name"`
	Adcode   string `json:"adcode"`
	Citycode string `json:"citycode,omitempty"`
}

// CreateCardRequest pins a city card.
type CreateCardRequest struct {
	City string `json:"city" validate:"required"`
}

// ReorderCardsRequest rearranges the card list. IDs must cover every
// existing card exactly once.
type ReorderCardsRequest struct {
	IDs []string `json:"ids" validate:"required"`
}
