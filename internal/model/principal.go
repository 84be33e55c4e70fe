package model

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCitizen  Role = "citizen"
	RoleOperator Role = "operator"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

var roles = []Role{RoleCitizen, RoleOperator, RoleManager, RoleAdmin}

// ParseRole accepts any casing and rejects unknown roles.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// IsStaff reports whether the role works on tickets of a municipality.
func (r Role) IsStaff() bool {
	return r == RoleOperator || r == RoleManager || r == RoleAdmin
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID         uuid.UUID
	Email          string
	Role           Role
	MunicipalityID *uuid.UUID
}

func (p Principal) IsCitizen() bool  { return p.Role == RoleCitizen }
func (p Principal) IsOperator() bool { return p.Role == RoleOperator }
func (p Principal) IsManager() bool  { return p.Role == RoleManager }
func (p Principal) IsAdmin() bool    { return p.Role == RoleAdmin }

// InMunicipality is false for principals without a municipality.
func (p Principal) InMunicipality(id uuid.UUID) bool {
	return p.MunicipalityID != nil && *p.MunicipalityID == id
}
