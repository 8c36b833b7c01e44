package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/skycastapp/skycast/internal/api/models"
	"github.com/skycastapp/skycast/internal/api/response"
)

// ReadyCheck probes one dependency; a nil error means ready.
type ReadyCheck func(ctx context.Context) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    map[string]ReadyCheck
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, checks map[string]ReadyCheck) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		checks:    checks,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Every
// registered dependency must answer.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	for name, check := range h.checks {
		sub := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := check(r.Context()); err != nil {
			detail := err.Error()
			sub.Status = models.HealthStatusFail
			sub.Detail = &detail
			status.Status = models.HealthStatusFail
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	code := http.StatusOK
	if status.Status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, status)
}
