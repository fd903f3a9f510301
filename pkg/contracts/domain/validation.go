package domain

// ValidationRequest is the wire payload of a validation query from a
// client deployment. Capability is ambiguous at intake: it may be a module
// slug or a view parameter, and the module registry disambiguates it.
// Domain is optional; when absent the domain check is skipped. ActiveUsers
// is the seat count reported by the deployment's session tracker; when
// absent the server-side count is used.
type ValidationRequest struct {
	LicenseKey  string `json:"license_key" validate:"required"`
	Domain      string `json:"domain,omitempty" validate:"omitempty,max=253"`
	Capability  string `json:"capability" validate:"required"`
	ActiveUsers *int   `json:"active_users,omitempty" validate:"omitempty,min=0"`
}
