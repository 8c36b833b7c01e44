package handler

import (
	"net/http"

	"github.com/skycastapp/skycast/internal/api/models"
	"github.com/skycastapp/skycast/internal/api/response"
	"github.com/skycastapp/skycast/internal/region"
)

// RegionsHandler handles region search endpoints.
type RegionsHandler struct {
	regions *region.Service
}

// NewRegionsHandler creates a new RegionsHandler.
func NewRegionsHandler(regions *region.Service) *RegionsHandler {
	return &RegionsHandler{regions: regions}
}

// Search handles GET /v1/regions/search?q= - fuzzy region search, prefix
// matches ranked before contains matches.
func (h *RegionsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		response.BadRequest(w, r, "q query parameter is required", []models.FieldError{
			{Field: "q", Message: "must not be empty"},
		})
		return
	}

	matches, err := h.regions.Search(r.Context(), query)
	if err != nil {
		response.InternalError(w, r, "region search failed")
		return
	}

	results := make([]models.RegionResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, models.RegionResult{
			Name:     m.Name,
			Adcode:   m.Adcode,
			Citycode: m.Citycode,
		})
	}

	response.JSON(w, r, http.StatusOK, results)
}
