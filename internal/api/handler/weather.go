// Package handler provides HTTP handlers for the SkyCast API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skycastapp/skycast/internal/api/models"
	"github.com/skycastapp/skycast/internal/api/response"
	"github.com/skycastapp/skycast/internal/coordinator"
	"github.com/skycastapp/skycast/internal/gateway"
	"github.com/skycastapp/skycast/internal/weather"
)

// WeatherHandler handles weather fetch endpoints.
type WeatherHandler struct {
	coordinator *coordinator.Coordinator
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(c *coordinator.Coordinator) *WeatherHandler {
	return &WeatherHandler{coordinator: c}
}

// GetCity handles GET /v1/weather/{city} - fetch one city's bundle.
func (h *WeatherHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	if city == "" {
		response.BadRequest(w, r, "city is required", nil)
		return
	}

	bundle, err := h.coordinator.FetchWeather(r.Context(), city)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewWeatherResponse(bundle))
}

// GetByCoordinate handles GET /v1/weather?lon=&lat= - fetch by coordinate.
func (h *WeatherHandler) GetByCoordinate(w http.ResponseWriter, r *http.Request) {
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if lonErr != nil || latErr != nil {
		response.BadRequest(w, r, "lon and lat query parameters are required", []models.FieldError{
			{Field: "lon", Message: "must be a valid longitude"},
			{Field: "lat", Message: "must be a valid latitude"},
		})
		return
	}

	bundle, err := h.coordinator.FetchByCoordinate(r.Context(), lon, lat)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewWeatherResponse(bundle))
}

// Batch handles POST /v1/weather:batch - fetch several cities at once.
// Partial failures do not void the successful results.
func (h *WeatherHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if len(req.Cities) == 0 {
		response.BadRequest(w, r, "cities must not be empty", []models.FieldError{
			{Field: "cities", Message: "at least one city is required"},
		})
		return
	}

	results, err := h.coordinator.FetchMany(r.Context(), req.Cities)

	resp := models.BatchFetchResponse{}
	for _, bundle := range results {
		resp.Results = append(resp.Results, models.NewWeatherResponse(bundle))
	}
	sort.Slice(resp.Results, func(i, j int) bool {
		return resp.Results[i].City < resp.Results[j].City
	})

	if err != nil {
		var merr coordinator.MultipleErrors
		if !errors.As(err, &merr) {
			writeWeatherError(w, r, err)
			return
		}
		resp.Failures = make(map[string]string, len(merr))
		for city, cityErr := range merr {
			resp.Failures[city] = cityErr.Error()
		}
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// writeWeatherError maps fetch pipeline errors onto problem responses.
func writeWeatherError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, weather.ErrCityNotFound),
		errors.Is(err, weather.ErrLocationNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, gateway.ErrThrottled):
		response.TooManyRequests(w, r, "upstream call throttled, retry shortly")
	case errors.Is(err, weather.ErrNetworkUnavailable),
		errors.Is(err, weather.ErrNetwork),
		errors.Is(err, weather.ErrDataParsing):
		response.ServiceUnavailable(w, r, err.Error())
	default:
		response.InternalError(w, r, "weather fetch failed")
	}
}
