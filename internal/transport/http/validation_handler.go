// Package http contains the chi HTTP handlers for licensegate. Handlers
// are thin translations of the service contracts into request/response
// shapes and carry no decision logic of their own.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "licensegate/internal/errors"
	"licensegate/internal/infrastructure"
	"licensegate/internal/license"
	"licensegate/internal/services"
	"licensegate/pkg/contracts/domain"
)

// validate checks the validator tags on contract types.
var validate = validator.New()

// ValidationHandler handles license validation HTTP requests
type ValidationHandler struct {
	service services.ValidationService
	logger  *slog.Logger
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(service services.ValidationService, logger *slog.Logger) *ValidationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "validation")),
	}
}

// Routes returns a chi router for license validation endpoints
func (h *ValidationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Timeout(10 * time.Second))

	r.Post("/validate", h.Validate)
	r.Get("/status", h.Status)
	return r
}

// ValidationResponse is the wire shape of a verdict.
type ValidationResponse struct {
	*domain.Verdict
	TraceID string `json:"trace_id,omitempty"`
}

// Validate handles POST /api/license/validate
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	var req domain.ValidationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.logger.WarnContext(ctx, "malformed validation request",
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apierrors.InvalidRequestWithError(err).WithTrace(traceID))
		return
	}
	if err := validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error(),
		).WithTrace(traceID))
		return
	}

	verdict, err := h.service.Validate(ctx, &req)
	if err != nil {
		render.Render(w, r, apierrors.StorageWithError(err).WithTrace(traceID))
		return
	}

	render.JSON(w, r, &ValidationResponse{Verdict: verdict, TraceID: traceID})
}

// StatusResponse wraps the status diagnostics with the trace ID.
type StatusResponse struct {
	*services.LicenseStatusResponse
	TraceID string `json:"trace_id,omitempty"`
}

// Status handles GET /api/license/status?key=KEY
func (h *ValidationHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	key := r.URL.Query().Get("key")
	if key == "" {
		render.Render(w, r, apierrors.ErrMissingParameter.WithTrace(traceID))
		return
	}

	status, err := h.service.Status(ctx, key)
	if errors.Is(err, license.ErrLicenseNotFound) {
		render.Render(w, r, apierrors.New(
			http.StatusNotFound, "LICENSE_NOT_FOUND", "The license key was not found",
		).WithTrace(traceID))
		return
	}
	if err != nil {
		render.Render(w, r, apierrors.StorageWithError(err).WithTrace(traceID))
		return
	}

	render.JSON(w, r, &StatusResponse{LicenseStatusResponse: status, TraceID: traceID})
}
