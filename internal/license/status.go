package license

import (
	"time"

	"licensegate/pkg/contracts/domain"
)

// ComputeStatus derives the effective status of a license at the given
// instant. Stored non-active flags (suspended, invalid, or an explicitly
// stored expired) short-circuit before any expiry math: a suspended
// license is never "expired", it is simply suspended. For stored-active
// licenses a nil expiry means perpetual; otherwise the license is valid
// strictly before the expiry instant, so now == expiry is already expired.
func ComputeStatus(lic *domain.License, now time.Time) domain.LicenseStatus {
	if lic.Status != domain.LicenseStatusActive {
		return lic.Status
	}
	if lic.ExpiresAt == nil {
		return domain.LicenseStatusActive
	}
	if now.Before(*lic.ExpiresAt) {
		return domain.LicenseStatusActive
	}
	return domain.LicenseStatusExpired
}
