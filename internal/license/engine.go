package license

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"licensegate/internal/registry"
	"licensegate/pkg/contracts/domain"
)

// CapabilityResolver resolves an ambiguous capability token (module slug or
// view parameter) to a canonical module record. Implementations return
// registry.ErrModuleNotFound when the token matches nothing in either
// schema generation.
type CapabilityResolver interface {
	ResolveCapability(ctx context.Context, token string) (*domain.Module, error)
}

// Request is a single validation query. Domain is optional: when empty the
// domain check is skipped and the validation is license+capability only.
// ActiveUsers may carry a count reported by the client deployment; when nil
// the engine consults its SeatSource instead.
type Request struct {
	LicenseKey  string
	Domain      string
	Capability  string
	ActiveUsers *int
}

// Engine is the access decision engine. It owns no data: every Decide call
// reads fresh snapshots through the injected sources, so administrator
// edits and expiry transitions take effect on the very next request.
type Engine struct {
	store    Store
	modules  CapabilityResolver
	settings SettingsSource
	seats    SeatSource
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source. Used by tests to pin the
// expiry boundary.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a decision engine. seats may be nil when callers always
// supply the active-user count on the request; settings must not be nil.
func NewEngine(store Store, modules CapabilityResolver, settings SettingsSource, seats SeatSource, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		modules:  modules,
		settings: settings,
		seats:    seats,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide produces an ALLOW/DENY verdict for the request.
//
// The check chain is strictly ordered and short-circuits: unknown key,
// inactive status, domain binding, then capability membership in the
// effective entitlement set. A verdict denied at an early step carries no
// diagnostic context from later steps. Storage faults return a nil verdict
// and a non-nil error; they never masquerade as a deny reason.
func (e *Engine) Decide(ctx context.Context, req Request) (*domain.Verdict, error) {
	now := e.now()

	lic, err := e.store.License(ctx, req.LicenseKey)
	if errors.Is(err, ErrLicenseNotFound) {
		return &domain.Verdict{
			Reason:    domain.ReasonInvalidLicense,
			CheckedAt: now,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve license: %w", err)
	}

	status := ComputeStatus(lic, now)
	if status != domain.LicenseStatusActive {
		return &domain.Verdict{
			Reason:    domain.ReasonLicenseInactive,
			Status:    status,
			CheckedAt: now,
		}, nil
	}

	if req.Domain != "" && !DomainAllowed(lic, req.Domain) {
		return &domain.Verdict{
			Reason:    domain.ReasonDomainNotAllowed,
			Status:    status,
			CheckedAt: now,
		}, nil
	}

	// An unresolved token is checked as a literal slug. This preserves
	// behavior for capabilities not yet registered as module records,
	// such as core system views.
	slug := req.Capability
	mod, err := e.modules.ResolveCapability(ctx, req.Capability)
	if err != nil && !errors.Is(err, registry.ErrModuleNotFound) {
		return nil, fmt.Errorf("resolve capability %q: %w", req.Capability, err)
	}
	if mod != nil {
		slug = mod.Slug
	}

	activeUsers, err := e.activeUsers(ctx, lic, req)
	if err != nil {
		return nil, fmt.Errorf("active user count for %q: %w", lic.Customer, err)
	}

	var restricted []string
	if activeUsers > lic.UserLimit {
		restricted, err = e.settings.RestrictedModules(ctx)
		if err != nil {
			return nil, fmt.Errorf("restricted module set: %w", err)
		}
	}

	entitlements, overage := EffectiveEntitlements(lic, activeUsers, restricted)

	verdict := &domain.Verdict{
		Reason:       domain.ReasonModuleNotLicensed,
		Status:       status,
		ResolvedSlug: slug,
		Entitlements: entitlements,
		Overage:      overage,
		CheckedAt:    now,
	}
	if overage {
		verdict.ActiveUsers = activeUsers
	}
	if slices.Contains(entitlements, slug) {
		verdict.Allow = true
		verdict.Reason = domain.ReasonAllowed
	}
	return verdict, nil
}

func (e *Engine) activeUsers(ctx context.Context, lic *domain.License, req Request) (int, error) {
	if req.ActiveUsers != nil {
		return *req.ActiveUsers, nil
	}
	if e.seats == nil {
		return 0, nil
	}
	return e.seats.ActiveUsers(ctx, lic.Customer)
}
