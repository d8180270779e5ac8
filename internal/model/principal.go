package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleTechnician   Role = "technician"
)

// Principal is the authenticated caller, decoded from the access token and
// passed explicitly into every service call.
type Principal struct {
	UserID       uuid.UUID
	Role         Role
	Name         string
	Approved     bool
	TechnicianID *uuid.UUID
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsReceptionist() bool {
	return p.Role == RoleReceptionist
}

func (p Principal) IsTechnician() bool {
	return p.Role == RoleTechnician
}

// IsStaff reports whether the principal may register and manage claims.
func (p Principal) IsStaff() bool {
	return p.IsAdmin() || p.IsReceptionist()
}
