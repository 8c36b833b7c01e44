// Package amap implements the geocode.Client contract against the AMap
// reverse-geocoding API.
package amap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/skycastapp/skycast/internal/gateway"
	"github.com/skycastapp/skycast/internal/geocode"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "amap-regeo"

	// DefaultBaseURL is the AMap reverse-geocoding endpoint.
	DefaultBaseURL = "https://restapi.amap.com/v3/geocode/regeo"
)

// ClientConfig holds configuration for the AMap geocoding client.
type ClientConfig struct {
	// APIKey is the AMap API key (required).
	APIKey string

	// BaseURL is the endpoint URL (optional, defaults to the AMap API).
	BaseURL string

	// Gateway executes the outbound call (required).
	Gateway *gateway.Gateway

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AMap reverse-geocoding client.
type Client struct {
	apiKey  string
	baseURL string
	gateway *gateway.Gateway
	logger  zerolog.Logger
}

// NewClient creates a new AMap geocoding client.
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

// ReverseGeocode resolves a coordinate to an address.
func (c *Client) ReverseGeocode(ctx context.Context, lon, lat float64) (*geocode.Address, error) {
	if c.apiKey == "" {
		return nil, geocode.ErrInvalidCredentials
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("location", fmt.Sprintf("%.6f,%.6f", lon, lat))
	params.Set("output", "JSON")
	params.Set("extensions", "base")

	resp, err := c.gateway.Get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if err := mapStatusCode(resp.StatusCode); err != nil {
		return nil, err
	}

	var payload regeoResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if payload.Status != "1" || payload.Infocode != "10000" {
		return nil, &geocode.APIError{Message: payload.Info}
	}

	return &geocode.Address{
		Province:  payload.Regeocode.AddressComponent.Province,
		District:  payload.Regeocode.AddressComponent.District,
		Formatted: payload.Regeocode.FormattedAddress,
	}, nil
}

// mapStatusCode translates provider HTTP status codes to domain errors.
func mapStatusCode(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized:
		return geocode.ErrInvalidCredentials
	case code == http.StatusTooManyRequests:
		return geocode.ErrRateLimited
	case code >= 500:
		return geocode.ErrServer
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

// AMap API response structures.

type regeoResponse struct {
	Status    string `json:"status"`
	Infocode  string `json:"infocode"`
	Info      string `json:"info"`
	Regeocode struct {
		AddressComponent struct {
			Province string `json:"province"`
			District string `json:"district"`
		} `json:"addressComponent"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"regeocode"`
}
