package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/gptstar/internal/agent"
	"github.com/jwebster45206/gptstar/pkg/storage"
)

type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Components map[string]any `json:"components"`
}

// StatusReporter is implemented by agent.Driver.
type StatusReporter interface {
	Status() agent.Status
}

type HealthHandler struct {
	storage storage.Storage // nil when running without a journal
	driver  StatusReporter
	logger  *slog.Logger
}

func NewHealthHandler(storage storage.Storage, driver StatusReporter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		driver:  driver,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]any)
	overallStatus := "healthy"

	switch {
	case h.storage == nil:
		components["journal"] = "disabled"
	case h.storage.Ping(ctx) != nil:
		h.logger.Warn("Journal health check failed")
		components["journal"] = "unhealthy"
		overallStatus = "degraded"
	default:
		components["journal"] = "healthy"
	}

	if h.driver != nil {
		components["driver"] = h.driver.Status()
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "gptstar",
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
