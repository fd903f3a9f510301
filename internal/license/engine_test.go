package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/internal/registry"
	"licensegate/pkg/contracts/domain"
)

type fakeStore struct {
	licenses map[string]*domain.License
	err      error
}

func (f *fakeStore) License(ctx context.Context, key string) (*domain.License, error) {
	if f.err != nil {
		return nil, f.err
	}
	lic, ok := f.licenses[key]
	if !ok {
		return nil, ErrLicenseNotFound
	}
	return lic, nil
}

type fakeResolver struct {
	modules map[string]*domain.Module // token (slug or view param) -> module
	err     error
}

func (f *fakeResolver) ResolveCapability(ctx context.Context, token string) (*domain.Module, error) {
	if f.err != nil {
		return nil, f.err
	}
	mod, ok := f.modules[token]
	if !ok {
		return nil, registry.ErrModuleNotFound
	}
	return mod, nil
}

type fakeSettings struct {
	restricted []string
	err        error
}

func (f *fakeSettings) RestrictedModules(ctx context.Context) ([]string, error) {
	return f.restricted, f.err
}

type fakeSeats struct {
	count int
	err   error
}

func (f *fakeSeats) ActiveUsers(ctx context.Context, customer string) (int, error) {
	return f.count, f.err
}

func intPtr(n int) *int { return &n }

func testLicense() *domain.License {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.License{
		Key:            "LIC-1",
		Customer:       "acme",
		Status:         domain.LicenseStatusActive,
		ExpiresAt:      &expiry,
		UserLimit:      5,
		AllowedModules: []string{"policies", "tasks"},
		AllowedDomains: []string{"*.acme.com"},
	}
}

func newTestEngine(store Store, resolver CapabilityResolver, settings SettingsSource, seats SeatSource) *Engine {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return NewEngine(store, resolver, settings, seats, WithClock(func() time.Time { return now }))
}

func TestDecideAllowsLicensedModuleOnAllowedDomain(t *testing.T) {
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}},
		&fakeResolver{},
		&fakeSettings{},
		&fakeSeats{count: 3},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Domain:     "app.acme.com",
		Capability: "policies",
	})
	require.NoError(t, err)

	assert.True(t, verdict.Allow)
	assert.Equal(t, domain.ReasonAllowed, verdict.Reason)
	assert.Equal(t, "policies", verdict.ResolvedSlug)
	assert.Equal(t, []string{"policies", "tasks"}, verdict.Entitlements)
	assert.False(t, verdict.Overage)
}

func TestDecideDeniesUnlistedDomain(t *testing.T) {
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}},
		&fakeResolver{},
		&fakeSettings{},
		&fakeSeats{count: 3},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Domain:     "evil.com",
		Capability: "policies",
	})
	require.NoError(t, err)

	assert.False(t, verdict.Allow)
	assert.Equal(t, domain.ReasonDomainNotAllowed, verdict.Reason)
	assert.Empty(t, verdict.ResolvedSlug)
	assert.Empty(t, verdict.Entitlements)
}

func TestDecideSkipsDomainCheckWhenAbsent(t *testing.T) {
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}},
		&fakeResolver{},
		&fakeSettings{},
		&fakeSeats{count: 3},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Capability: "tasks",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Allow)
}

func TestDecideOverageNarrowsEntitlements(t *testing.T) {
	store := &fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}}
	settings := &fakeSettings{restricted: []string{"license-management"}}

	engine := newTestEngine(store, &fakeResolver{}, settings, &fakeSeats{count: 6})

	// The overage override denies a module the license would normally grant.
	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Domain:     "app.acme.com",
		Capability: "policies",
	})
	require.NoError(t, err)
	assert.False(t, verdict.Allow)
	assert.Equal(t, domain.ReasonModuleNotLicensed, verdict.Reason)
	assert.Equal(t, []string{"license-management"}, verdict.Entitlements)
	assert.True(t, verdict.Overage)
	assert.Equal(t, 6, verdict.ActiveUsers)

	// The restricted set itself stays reachable.
	verdict, err = engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Domain:     "app.acme.com",
		Capability: "license-management",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Allow)
	assert.Equal(t, domain.ReasonAllowed, verdict.Reason)
}

func TestDecideAtLimitKeepsNormalEntitlements(t *testing.T) {
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}},
		&fakeResolver{},
		&fakeSettings{restricted: []string{"license-management"}},
		&fakeSeats{count: 5},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Capability: "policies",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Allow)
	assert.False(t, verdict.Overage)
}

func TestDecideRequestCountOverridesSeatSource(t *testing.T) {
	// The seat source would report overage, but the request carries 2.
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}},
		&fakeResolver{},
		&fakeSettings{},
		&fakeSeats{count: 100},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey:  "LIC-1",
		Capability:  "policies",
		ActiveUsers: intPtr(2),
	})
	require.NoError(t, err)
	assert.True(t, verdict.Allow)
	assert.False(t, verdict.Overage)
}

func TestDecideResolvesViewParameterToSlug(t *testing.T) {
	lic := testLicense()
	lic.AllowedModules = []string{"customers"}
	resolver := &fakeResolver{modules: map[string]*domain.Module{
		"customers-view": {Slug: "customers", Source: domain.ModuleSourceCurrent},
	}}

	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": lic}},
		resolver,
		&fakeSettings{},
		&fakeSeats{count: 1},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Domain:     "app.acme.com",
		Capability: "customers-view",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Allow)
	assert.Equal(t, "customers", verdict.ResolvedSlug)
}

func TestDecideUnknownTokenCheckedAsLiteralSlug(t *testing.T) {
	lic := testLicense()
	lic.AllowedModules = []string{"system-dashboard"}

	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": lic}},
		&fakeResolver{}, // resolves nothing
		&fakeSettings{},
		&fakeSeats{count: 1},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Capability: "system-dashboard",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Allow)
	assert.Equal(t, "system-dashboard", verdict.ResolvedSlug)
}

func TestDecideUnknownKeyShortCircuits(t *testing.T) {
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{}},
		&fakeResolver{err: errors.New("resolver must not be called")},
		&fakeSettings{err: errors.New("settings must not be called")},
		&fakeSeats{err: errors.New("seats must not be called")},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "NOPE",
		Domain:     "app.acme.com",
		Capability: "policies",
	})
	require.NoError(t, err)

	assert.False(t, verdict.Allow)
	assert.Equal(t, domain.ReasonInvalidLicense, verdict.Reason)
	// No domain or module evaluation happened: the diagnostic context is
	// empty.
	assert.Empty(t, verdict.ResolvedSlug)
	assert.Empty(t, verdict.Entitlements)
	assert.Empty(t, verdict.Status)
}

func TestDecideInactiveStatuses(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*domain.License)
		expected domain.LicenseStatus
	}{
		{
			name:     "suspended",
			mutate:   func(l *domain.License) { l.Status = domain.LicenseStatusSuspended },
			expected: domain.LicenseStatusSuspended,
		},
		{
			name:     "invalid",
			mutate:   func(l *domain.License) { l.Status = domain.LicenseStatusInvalid },
			expected: domain.LicenseStatusInvalid,
		},
		{
			name: "expired by time",
			mutate: func(l *domain.License) {
				past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
				l.ExpiresAt = &past
			},
			expected: domain.LicenseStatusExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lic := testLicense()
			tt.mutate(lic)
			engine := newTestEngine(
				&fakeStore{licenses: map[string]*domain.License{"LIC-1": lic}},
				&fakeResolver{},
				&fakeSettings{},
				&fakeSeats{count: 1},
			)

			// Valid domain and capability must not rescue an inactive
			// license.
			verdict, err := engine.Decide(context.Background(), Request{
				LicenseKey: "LIC-1",
				Domain:     "app.acme.com",
				Capability: "policies",
			})
			require.NoError(t, err)
			assert.False(t, verdict.Allow)
			assert.Equal(t, domain.ReasonLicenseInactive, verdict.Reason)
			assert.Equal(t, tt.expected, verdict.Status)
		})
	}
}

func TestDecideStorageFaultPropagates(t *testing.T) {
	storageErr := errors.New("connection refused")
	engine := newTestEngine(
		&fakeStore{err: storageErr},
		&fakeResolver{},
		&fakeSettings{},
		&fakeSeats{},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Capability: "policies",
	})
	require.Error(t, err)
	assert.Nil(t, verdict)
	assert.ErrorIs(t, err, storageErr)
}

func TestDecideResolverFaultPropagates(t *testing.T) {
	resolverErr := errors.New("registry query failed")
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}},
		&fakeResolver{err: resolverErr},
		&fakeSettings{},
		&fakeSeats{},
	)

	verdict, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Capability: "policies",
	})
	require.Error(t, err)
	assert.Nil(t, verdict)
	assert.ErrorIs(t, err, resolverErr)
}

func TestDecideSettingsFaultPropagatesOnOverage(t *testing.T) {
	settingsErr := errors.New("malformed restricted_modules setting")
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}},
		&fakeResolver{},
		&fakeSettings{err: settingsErr},
		&fakeSeats{count: 6},
	)

	_, err := engine.Decide(context.Background(), Request{
		LicenseKey: "LIC-1",
		Capability: "policies",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, settingsErr)
}

func TestDecideIsDeterministic(t *testing.T) {
	engine := newTestEngine(
		&fakeStore{licenses: map[string]*domain.License{"LIC-1": testLicense()}},
		&fakeResolver{},
		&fakeSettings{},
		&fakeSeats{count: 3},
	)
	req := Request{LicenseKey: "LIC-1", Domain: "app.acme.com", Capability: "policies"}

	first, err := engine.Decide(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
