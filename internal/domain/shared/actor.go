package shared

import "github.com/google/uuid"

// Role is a portal user role
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleCustomer Role = "CUSTOMER"
)

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleCustomer:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to platform staff
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Actor is the authenticated caller of an application operation
type Actor struct {
	UserID    uuid.UUID
	Username  string
	Role      Role
	CompanyID *uuid.UUID
}

// IsStaff reports whether the actor is platform staff
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// IsAdmin reports whether the actor is an administrator
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAccessCompany reports whether the actor may see resources owned by companyID.
// Staff see everything; customers only their own company.
func (a Actor) CanAccessCompany(companyID uuid.UUID) bool {
	if a.IsStaff() {
		return true
	}
	return a.CompanyID != nil && *a.CompanyID == companyID
}

// RequireCompanyAccess returns ErrForbidden when the actor may not see companyID
func (a Actor) RequireCompanyAccess(companyID uuid.UUID) error {
	if !a.CanAccessCompany(companyID) {
		return ErrForbidden
	}
	return nil
}

// RequireStaff returns ErrForbidden for non-staff actors
func (a Actor) RequireStaff() error {
	if !a.IsStaff() {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin returns ErrForbidden for non-admin actors
func (a Actor) RequireAdmin() error {
	if !a.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
