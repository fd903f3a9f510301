package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"licensegate/pkg/contracts"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health and version HTTP requests
type HealthHandler struct {
	storage Pinger
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(storage Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		storage: storage,
		logger:  logger.With(slog.String("handler", "health")),
		started: time.Now(),
	}
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := "ok"
	httpStatus := http.StatusOK
	if h.storage != nil {
		if err := h.storage.Ping(ctx); err != nil {
			h.logger.ErrorContext(ctx, "storage ping failed",
				slog.String("error", err.Error()),
			)
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	render.Status(r, httpStatus)
	render.JSON(w, r, map[string]interface{}{
		"status":    status,
		"uptime":    time.Since(h.started).String(),
		"version":   contracts.Version,
		"timestamp": time.Now().UTC(),
	})
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
