package domain

import "traceflow-backend/internal/models"

// Identity is the resolved caller, threaded explicitly into every mutating
// engine operation. There is no ambient current-user state.
type Identity struct {
	UserID         uint
	UserName       string
	OrganizationID *uint // nil for platform admins
	Role           models.UserRole
}

// RequireOrganization returns the caller's organization id, or an
// Unauthorized error for callers without an organization context.
func (id Identity) RequireOrganization() (uint, error) {
	if id.OrganizationID == nil {
		return 0, Unauthorized("user has no organization context")
	}
	return *id.OrganizationID, nil
}
