package model

import (
	"log/slog"
	"strings"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
	RoleAdminBoard Role = "admin-board"
)

// Stored role strings as written by the mobile client.
const (
	rawCustomer   = "musteri"
	rawTechnician = "teknisyen"
	rawAdmin      = "yonetim"
	rawAdminBoard = "yonetim_kurulu"
)

var roleAliases = map[string]Role{
	rawCustomer:   RoleCustomer,
	rawTechnician: RoleTechnician,
	rawAdmin:      RoleAdmin,
	rawAdminBoard: RoleAdminBoard,

	string(RoleCustomer):   RoleCustomer,
	string(RoleTechnician): RoleTechnician,
	string(RoleAdmin):      RoleAdmin,
	string(RoleAdminBoard): RoleAdminBoard,
}

// NormalizeRole coerces an untrusted role string into the closed role set.
// Unrecognized input falls back to RoleCustomer, the least-privileged role.
func NormalizeRole(raw string) Role {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return r
	}
	slog.Warn("unknown role coerced to customer", "raw_role", raw)
	return RoleCustomer
}

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleTechnician, RoleAdmin, RoleAdminBoard:
		return true
	}
	return false
}

// IsAdmin reports whether the role has administrative ticket powers.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleAdminBoard
}

// Stored returns the role string persisted in the users table.
func (r Role) Stored() string {
	switch r {
	case RoleTechnician:
		return rawTechnician
	case RoleAdmin:
		return rawAdmin
	case RoleAdminBoard:
		return rawAdminBoard
	default:
		return rawCustomer
	}
}
