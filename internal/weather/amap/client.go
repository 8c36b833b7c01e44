// Package amap implements the weather.Provider contract against the AMap
// weather API.
package amap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/skycastapp/skycast/internal/gateway"
	"github.com/skycastapp/skycast/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "amap"

	// DefaultBaseURL is the AMap weather endpoint.
	DefaultBaseURL = "https://restapi.amap.com/v3/weather/weatherInfo"

	// extensionsLive selects the current-conditions payload.
	extensionsLive = "base"

	// extensionsForecast selects the forecast payload.
	extensionsForecast = "all"
)

// ClientConfig holds configuration for the AMap weather client.
type ClientConfig struct {
	// APIKey is the AMap API key (required).
	APIKey string

	// BaseURL is the endpoint URL (optional, defaults to the AMap API).
	BaseURL string

	// Gateway executes the outbound calls (required).
	Gateway *gateway.Gateway

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AMap weather API client.
type Client struct {
	apiKey  string
	baseURL string
	gateway *gateway.Gateway
	logger  zerolog.Logger
}

// NewClient creates a new AMap weather client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		gateway: cfg.Gateway,
		logger:  cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// CurrentConditions fetches live conditions for an administrative code.
func (c *Client) CurrentConditions(ctx context.Context, adcode string) ([]weather.CurrentConditions, error) {
	var payload weatherResponse
	if err := c.query(ctx, adcode, extensionsLive, &payload); err != nil {
		return nil, err
	}

	return payload.Lives, nil
}

// Forecast fetches the daily forecast for an administrative code. The
// provider nests the casts inside a per-city forecast wrapper; the first
// wrapper carries the requested region.
func (c *Client) Forecast(ctx context.Context, adcode string) ([]weather.DailyForecast, error) {
	var payload weatherResponse
	if err := c.query(ctx, adcode, extensionsForecast, &payload); err != nil {
		return nil, err
	}

	if len(payload.Forecasts) == 0 {
		return nil, nil
	}

	return payload.Forecasts[0].Casts, nil
}

func (c *Client) query(ctx context.Context, adcode, extensions string, payload *weatherResponse) error {
	if c.apiKey == "" {
		return weather.ErrMissingCredentials
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("city", adcode)
	params.Set("extensions", extensions)

	resp, err := c.gateway.Get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code %d", weather.ErrNetwork, resp.StatusCode)
	}

	if err := json.Unmarshal(resp.Body, payload); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrDataParsing, err)
	}

	if payload.Status != "1" {
		if payload.Info == "INVALID_PARAMS" {
			return fmt.Errorf("%w: %s", weather.ErrInvalidAdministrativeCode, adcode)
		}
		return &weather.APIError{Message: payload.Info}
	}

	return nil
}

// AMap API response structure. Lives is present for extensions=base,
// Forecasts for extensions=all.
type weatherResponse struct {
	Status    string                      `json:"status"`
	Count     string                      `json:"count"`
	Info      string                      `json:"info"`
	Infocode  string                      `json:"infocode"`
	Lives     []weather.CurrentConditions `json:"lives"`
	Forecasts []forecastWrapper           `json:"forecasts"`
}

type forecastWrapper struct {
	City       string                  `json:"city"`
	Adcode     string                  `json:"adcode"`
	Province   string                  `json:"province"`
	ReportTime string                  `json:"reporttime"`
	Casts      []weather.DailyForecast `json:"casts"`
}
