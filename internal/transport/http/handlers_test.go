package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/internal/license"
	"licensegate/internal/registry"
	"licensegate/internal/services"
	"licensegate/pkg/contracts/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubValidationService struct {
	verdict *domain.Verdict
	status  *services.LicenseStatusResponse
	err     error
}

func (s *stubValidationService) Validate(ctx context.Context, req *domain.ValidationRequest) (*domain.Verdict, error) {
	return s.verdict, s.err
}

func (s *stubValidationService) Status(ctx context.Context, key string) (*services.LicenseStatusResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.status, nil
}

type stubModuleService struct {
	modules []domain.Module
	module  *domain.Module
	report  *domain.MigrationReport
	err     error
}

func (s *stubModuleService) List(ctx context.Context) ([]domain.Module, error) {
	return s.modules, s.err
}

func (s *stubModuleService) Resolve(ctx context.Context, token string) (*domain.Module, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.module, nil
}

func (s *stubModuleService) Migrate(ctx context.Context) (*domain.MigrationReport, error) {
	return s.report, s.err
}

func TestValidateEndpoint(t *testing.T) {
	svc := &stubValidationService{verdict: &domain.Verdict{
		Allow:        true,
		Reason:       domain.ReasonAllowed,
		Status:       domain.LicenseStatusActive,
		ResolvedSlug: "policies",
		Entitlements: []string{"policies"},
		CheckedAt:    time.Now().UTC(),
	}}
	handler := NewValidationHandler(svc, testLogger)

	body, _ := json.Marshal(domain.ValidationRequest{
		LicenseKey: "LIC-1",
		Domain:     "app.acme.com",
		Capability: "policies",
	})
	req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ValidationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Allow)
	assert.Equal(t, domain.ReasonAllowed, resp.Reason)
	assert.Equal(t, "policies", resp.ResolvedSlug)
}

func TestValidateEndpointRejectsMalformedBody(t *testing.T) {
	handler := NewValidationHandler(&stubValidationService{}, testLogger)

	req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateEndpointRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing license key", body: `{"capability": "policies"}`},
		{name: "missing capability", body: `{"license_key": "LIC-1"}`},
		{name: "negative active users", body: `{"license_key": "LIC-1", "capability": "policies", "active_users": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewValidationHandler(&stubValidationService{}, testLogger)
			req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()

			handler.Routes().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestValidateEndpointStorageFault(t *testing.T) {
	handler := NewValidationHandler(&stubValidationService{err: errors.New("disk I/O error")}, testLogger)

	body := []byte(`{"license_key": "LIC-1", "capability": "policies"}`)
	req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	svc := &stubValidationService{status: &services.LicenseStatusResponse{
		LicenseKey:    "LIC-1",
		Customer:      "acme",
		LicenseStatus: domain.LicenseStatusActive,
		UserLimit:     5,
		Modules:       []string{"policies"},
	}}
	handler := NewValidationHandler(svc, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/status?key=LIC-1", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "LIC-1", resp.LicenseKey)
	assert.Equal(t, domain.LicenseStatusActive, resp.LicenseStatus)
}

func TestStatusEndpointRequiresKey(t *testing.T) {
	handler := NewValidationHandler(&stubValidationService{}, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpointUnknownKey(t *testing.T) {
	handler := NewValidationHandler(&stubValidationService{err: license.ErrLicenseNotFound}, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/status?key=NOPE", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "LICENSE_NOT_FOUND", resp["error_code"])
}

func TestModuleListEndpoint(t *testing.T) {
	svc := &stubModuleService{modules: []domain.Module{
		{Slug: "customers", Name: "Customer Management", Source: domain.ModuleSourceCurrent},
		{Slug: "tasks", Name: "Task Tracking", Source: domain.ModuleSourceCurrent},
	}}
	handler := NewModuleHandler(svc, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ModuleListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "customers", resp.Modules[0].Slug)
}

func TestModuleListEndpointEmptyIsAnArray(t *testing.T) {
	handler := NewModuleHandler(&stubModuleService{}, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"modules":[]`)
}

func TestModuleResolveEndpoint(t *testing.T) {
	svc := &stubModuleService{module: &domain.Module{
		Slug:   "customers",
		Source: domain.ModuleSourceCurrent,
	}}
	handler := NewModuleHandler(svc, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/resolve?token=customers-view", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ModuleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Module)
	assert.Equal(t, "customers", resp.Module.Slug)
}

func TestModuleResolveEndpointNotFound(t *testing.T) {
	handler := NewModuleHandler(&stubModuleService{err: registry.ErrModuleNotFound}, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/resolve?token=ghost", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModuleResolveEndpointRequiresToken(t *testing.T) {
	handler := NewModuleHandler(&stubModuleService{}, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/resolve", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMigrateModulesEndpoint(t *testing.T) {
	svc := &stubModuleService{report: &domain.MigrationReport{Copied: 3, Skipped: 2}}
	handler := NewAdminHandler(svc, testLogger)

	req := httptest.NewRequest(http.MethodPost, "/migrate-modules", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp MigrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Copied)
	assert.Equal(t, 2, resp.Skipped)
}

func TestMigrateModulesEndpointFault(t *testing.T) {
	handler := NewAdminHandler(&stubModuleService{err: errors.New("database is locked")}, testLogger)

	req := httptest.NewRequest(http.MethodPost, "/migrate-modules", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestHealthCheckEndpoint(t *testing.T) {
	handler := NewHealthHandler(stubPinger{}, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHealthCheckEndpointDegraded(t *testing.T) {
	handler := NewHealthHandler(stubPinger{err: errors.New("connection refused")}, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}

func TestVersionEndpoint(t *testing.T) {
	handler := NewHealthHandler(nil, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	handler.Version(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
}
