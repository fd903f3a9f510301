// Package services provides the business-logic layer between the HTTP
// transport and the validation core: request-scoped logging, metrics and
// response shaping around the decision engine and module registry.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"licensegate/internal/license"
	"licensegate/pkg/contracts/domain"
)

var (
	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "licensegate_verdicts_total",
		Help: "Validation verdicts by reason code.",
	}, []string{"reason"})

	validationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licensegate_validation_errors_total",
		Help: "Validation calls that failed with a storage or configuration fault.",
	})

	validationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "licensegate_validation_duration_seconds",
		Help:    "Latency of validation decisions.",
		Buckets: prometheus.DefBuckets,
	})
)

// ValidationService provides business logic for license validation
type ValidationService interface {
	Validate(ctx context.Context, req *domain.ValidationRequest) (*domain.Verdict, error)
	Status(ctx context.Context, key string) (*LicenseStatusResponse, error)
}

// LicenseStatusResponse is the license status diagnostic payload.
type LicenseStatusResponse struct {
	LicenseKey    string               `json:"license_key"`
	Customer      string               `json:"customer,omitempty"`
	LicenseStatus domain.LicenseStatus `json:"license_status"`
	Perpetual     bool                 `json:"perpetual"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
	DaysLeft      int                  `json:"days_left,omitempty"`
	UserLimit     int                  `json:"user_limit"`
	Modules       []string             `json:"modules"`
	Timestamp     time.Time            `json:"timestamp"`
}

// validationService implements ValidationService
type validationService struct {
	engine *license.Engine
	store  license.Store
	logger *slog.Logger
}

// NewValidationService creates a new validation service
func NewValidationService(engine *license.Engine, store license.Store, logger *slog.Logger) ValidationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &validationService{
		engine: engine,
		store:  store,
		logger: logger.With(slog.String("service", "validation")),
	}
}

// Validate runs a single validation query through the decision engine.
func (s *validationService) Validate(ctx context.Context, req *domain.ValidationRequest) (*domain.Verdict, error) {
	start := time.Now()
	maskedKey := license.MaskLicenseKey(req.LicenseKey)

	s.logger.DebugContext(ctx, "validation started",
		slog.String("operation", "validate"),
		slog.String("license_key", maskedKey),
		slog.String("capability", req.Capability),
		slog.String("domain", req.Domain),
	)

	verdict, err := s.engine.Decide(ctx, license.Request{
		LicenseKey:  req.LicenseKey,
		Domain:      req.Domain,
		Capability:  req.Capability,
		ActiveUsers: req.ActiveUsers,
	})
	latency := time.Since(start)
	validationDuration.Observe(latency.Seconds())

	if err != nil {
		validationErrorsTotal.Inc()
		s.logger.ErrorContext(ctx, "validation failed",
			slog.String("operation", "validate"),
			slog.String("license_key", maskedKey),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("validate %s: %w", maskedKey, err)
	}

	verdictsTotal.WithLabelValues(string(verdict.Reason)).Inc()
	s.logger.InfoContext(ctx, "validation completed",
		slog.String("operation", "validate"),
		slog.String("license_key", maskedKey),
		slog.String("capability", req.Capability),
		slog.Bool("allow", verdict.Allow),
		slog.String("reason", string(verdict.Reason)),
		slog.String("resolved_slug", verdict.ResolvedSlug),
		slog.Bool("overage", verdict.Overage),
		slog.Duration("latency", latency),
	)
	return verdict, nil
}

// Status returns status diagnostics for a license key. An unknown key maps
// to license.ErrLicenseNotFound for the transport layer to translate.
func (s *validationService) Status(ctx context.Context, key string) (*LicenseStatusResponse, error) {
	maskedKey := license.MaskLicenseKey(key)

	lic, err := s.store.License(ctx, key)
	if err != nil {
		if !errors.Is(err, license.ErrLicenseNotFound) {
			s.logger.ErrorContext(ctx, "status lookup failed",
				slog.String("license_key", maskedKey),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	now := time.Now()
	resp := &LicenseStatusResponse{
		LicenseKey:    lic.Key,
		Customer:      lic.Customer,
		LicenseStatus: license.ComputeStatus(lic, now),
		Perpetual:     lic.Perpetual(),
		ExpiresAt:     lic.ExpiresAt,
		UserLimit:     lic.UserLimit,
		Modules:       lic.AllowedModules,
		Timestamp:     now,
	}
	if lic.ExpiresAt != nil {
		resp.DaysLeft = daysLeft(now, *lic.ExpiresAt)
	}

	s.logger.InfoContext(ctx, "status check completed",
		slog.String("license_key", maskedKey),
		slog.String("license_status", string(resp.LicenseStatus)),
		slog.Int("days_left", resp.DaysLeft),
	)
	return resp, nil
}

// daysLeft truncates both instants to day precision before subtracting to
// avoid fractional-day drift around midnight.
func daysLeft(now, expiry time.Time) int {
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	expiryDay := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, expiry.Location())
	return int(expiryDay.Sub(nowDay).Hours() / 24)
}
