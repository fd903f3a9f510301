package license

import (
	"licensegate/pkg/contracts/domain"
)

// DefaultRestrictedModules is the safety-net entitlement set applied when
// a license is over its user limit and no restricted set has been
// configured. It keeps exactly the tools a customer needs to fix the
// overage reachable, so they are never fully locked out.
var DefaultRestrictedModules = []string{
	"license-management",
	"customer-representative-management",
}

// EffectiveEntitlements applies the seat/overage policy. The user limit is
// inclusive: a count equal to the limit keeps the license's normal
// allowed-module set. Above the limit the administrator-configured
// restricted set replaces it entirely, regardless of what the license
// would normally grant; an empty restricted set falls back to
// DefaultRestrictedModules.
//
// The policy is pure given its inputs: it does not count users itself.
func EffectiveEntitlements(lic *domain.License, activeUsers int, restricted []string) (entitlements []string, overage bool) {
	if activeUsers <= lic.UserLimit {
		return lic.AllowedModules, false
	}
	if len(restricted) == 0 {
		restricted = DefaultRestrictedModules
	}
	return restricted, true
}
