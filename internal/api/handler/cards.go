package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skycastapp/skycast/internal/api/models"
	"github.com/skycastapp/skycast/internal/api/response"
	"github.com/skycastapp/skycast/internal/cards"
	"github.com/skycastapp/skycast/internal/coordinator"
)

// CardsHandler handles the pinned city card endpoints.
type CardsHandler struct {
	manager     *cards.Manager
	coordinator *coordinator.Coordinator
}

// NewCardsHandler creates a new CardsHandler.
func NewCardsHandler(manager *cards.Manager, c *coordinator.Coordinator) *CardsHandler {
	return &CardsHandler{manager: manager, coordinator: c}
}

// List handles GET /v1/cards - the cards in display order.
func (h *CardsHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.manager.List())
}

// Create handles POST /v1/cards - fetch a city and pin it. Pinning an
// already-pinned region refreshes its snapshot instead of duplicating it.
func (h *CardsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if req.City == "" {
		response.BadRequest(w, r, "city is required", []models.FieldError{
			{Field: "city", Message: "must not be empty"},
		})
		return
	}

	bundle, err := h.coordinator.FetchWeather(r.Context(), req.City)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}

	entry, err := h.manager.Add(r.Context(), cards.FromBundle(bundle))
	if err != nil {
		response.InternalError(w, r, "persisting card failed")
		return
	}

	response.Created(w, r, "/v1/cards/"+entry.ID, entry)
}

// Delete handles DELETE /v1/cards/{cardId}.
func (h *CardsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cardId")

	if err := h.manager.Remove(r.Context(), id); err != nil {
		if errors.Is(err, cards.ErrCardNotFound) {
			response.NotFound(w, r, "card not found")
			return
		}
		response.InternalError(w, r, "removing card failed")
		return
	}

	response.NoContent(w, r)
}

// Reorder handles PUT /v1/cards:order - rearrange the card list.
func (h *CardsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if err := h.manager.Reorder(r.Context(), req.IDs); err != nil {
		if errors.Is(err, cards.ErrCardNotFound) {
			response.NotFound(w, r, "unknown card id in order")
			return
		}
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	response.JSON(w, r, http.StatusOK, h.manager.List())
}
