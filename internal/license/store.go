package license

import (
	"context"
	"errors"

	"licensegate/pkg/contracts/domain"
)

// ErrLicenseNotFound is returned by Store implementations when no license
// record exists for the given key. The decision engine turns it into an
// invalid_license verdict; any other error propagates to the caller as a
// storage fault.
var ErrLicenseNotFound = errors.New("license not found")

// Store resolves license records by key. Lookups are exact and
// case-sensitive; implementations must not cache across calls because
// administrator edits must take effect on the very next request.
type Store interface {
	License(ctx context.Context, key string) (*domain.License, error)
}

// SeatSource supplies the number of currently active users for a customer.
// The core treats the count as authoritative and does not validate its
// provenance.
type SeatSource interface {
	ActiveUsers(ctx context.Context, customer string) (int, error)
}

// SettingsSource supplies the administrator-configured restricted module
// set used when a license is over its user limit. An empty set means the
// setting is unconfigured and the hardcoded default applies.
type SettingsSource interface {
	RestrictedModules(ctx context.Context) ([]string, error)
}
