package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "licensegate/internal/errors"
	"licensegate/internal/infrastructure"
	"licensegate/internal/registry"
	"licensegate/internal/services"
	"licensegate/pkg/contracts/domain"
)

// ModuleHandler handles module registry HTTP requests
type ModuleHandler struct {
	service services.ModuleService
	logger  *slog.Logger
}

// NewModuleHandler creates a new module handler
func NewModuleHandler(service services.ModuleService, logger *slog.Logger) *ModuleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModuleHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "modules")),
	}
}

// Routes returns a chi router for module registry endpoints
func (h *ModuleHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/resolve", h.Resolve)
	return r
}

// ModuleListResponse is the wire shape of the available-module listing.
type ModuleListResponse struct {
	Modules []domain.Module `json:"modules"`
	Count   int             `json:"count"`
	TraceID string          `json:"trace_id,omitempty"`
}

// List handles GET /api/modules
func (h *ModuleHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	mods, err := h.service.List(ctx)
	if err != nil {
		render.Render(w, r, apierrors.StorageWithError(err).WithTrace(traceID))
		return
	}
	if mods == nil {
		mods = []domain.Module{}
	}
	render.JSON(w, r, &ModuleListResponse{Modules: mods, Count: len(mods), TraceID: traceID})
}

// ModuleResponse is the wire shape of a single resolved module.
type ModuleResponse struct {
	Module  *domain.Module `json:"module"`
	TraceID string         `json:"trace_id,omitempty"`
}

// Resolve handles GET /api/modules/resolve?token=TOKEN
func (h *ModuleHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		render.Render(w, r, apierrors.ErrMissingParameter.WithTrace(traceID))
		return
	}

	mod, err := h.service.Resolve(ctx, token)
	if errors.Is(err, registry.ErrModuleNotFound) {
		render.Render(w, r, apierrors.ErrModuleNotFound.WithTrace(traceID))
		return
	}
	if err != nil {
		render.Render(w, r, apierrors.StorageWithError(err).WithTrace(traceID))
		return
	}
	render.JSON(w, r, &ModuleResponse{Module: mod, TraceID: traceID})
}

// AdminHandler handles administrative operations.
type AdminHandler struct {
	service services.ModuleService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service services.ModuleService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "admin")),
	}
}

// Routes returns a chi router for administrative endpoints
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/migrate-modules", h.MigrateModules)
	return r
}

// MigrationResponse is the wire shape of a reconciliation run.
type MigrationResponse struct {
	*domain.MigrationReport
	TraceID string `json:"trace_id,omitempty"`
}

// MigrateModules handles POST /api/admin/migrate-modules. The operation is
// idempotent; re-running after a partial migration only copies what is
// still missing.
func (h *AdminHandler) MigrateModules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	report, err := h.service.Migrate(ctx)
	if err != nil {
		render.Render(w, r, apierrors.StorageWithError(err).WithTrace(traceID))
		return
	}
	render.JSON(w, r, &MigrationResponse{MigrationReport: report, TraceID: traceID})
}
