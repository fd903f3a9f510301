// Package domain contains the core domain models for licensegate.
// These types serve as the Single Source of Truth (SSOT) for all layers of
// the application: storage, decision core, services and transport.
package domain

import (
	"time"
)

// LicenseStatus represents the status of a license. The active/expired
// transition is derived from the expiry date at check time; suspended and
// invalid are administrator-set stored flags.
type LicenseStatus string

const (
	LicenseStatusActive    LicenseStatus = "active"
	LicenseStatusExpired   LicenseStatus = "expired"
	LicenseStatusSuspended LicenseStatus = "suspended"
	LicenseStatusInvalid   LicenseStatus = "invalid"
)

// License represents a stored license record. The key is an opaque unique
// identifier looked up in storage, not a self-verifying token.
type License struct {
	Key            string        `json:"license_key" db:"license_key" validate:"required"`
	Customer       string        `json:"customer" db:"customer"`
	Status         LicenseStatus `json:"status" db:"status" validate:"required"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	UserLimit      int           `json:"user_limit" db:"user_limit" validate:"min=1"`
	AllowedModules []string      `json:"allowed_modules" db:"allowed_modules"`
	AllowedDomains []string      `json:"allowed_domains" db:"allowed_domains"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Perpetual reports whether the license never expires.
func (l *License) Perpetual() bool {
	return l.ExpiresAt == nil
}

// Reason is the machine-readable verdict reason code. Deny reasons are
// results, never errors: a deny is an expected, common outcome.
type Reason string

const (
	// ReasonAllowed is included for symmetry in the Verdict type.
	ReasonAllowed Reason = "allowed"
	// ReasonInvalidLicense means the key was not found in storage.
	ReasonInvalidLicense Reason = "invalid_license"
	// ReasonLicenseInactive means the license was found but its computed
	// status is not active. The Verdict carries the specific status.
	ReasonLicenseInactive Reason = "license_inactive"
	// ReasonDomainNotAllowed means a domain was given and no allowed-domain
	// pattern matched it.
	ReasonDomainNotAllowed Reason = "domain_not_allowed"
	// ReasonModuleNotLicensed means the resolved capability is not in the
	// effective entitlement set.
	ReasonModuleNotLicensed Reason = "module_not_licensed"
)

// Verdict is the decision result returned synchronously to the caller.
// Client deployments use the diagnostic context (resolved slug, effective
// entitlement set) to decide which UI affordances to hide, not just to
// allow or deny a single action.
type Verdict struct {
	Allow        bool          `json:"allow"`
	Reason       Reason        `json:"reason"`
	Status       LicenseStatus `json:"license_status,omitempty"`
	ResolvedSlug string        `json:"resolved_slug,omitempty"`
	Entitlements []string      `json:"entitlements,omitempty"`
	ActiveUsers  int           `json:"active_users,omitempty"`
	Overage      bool          `json:"overage,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
}
