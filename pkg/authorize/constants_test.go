package authorize

import (
	"testing"
)

func TestIsValidDomain(t *testing.T) {
	tests := []struct {
		name     string
		domain   Domain
		expected bool
	}{
		{"sys domain", DomainSys, true},
		{"wildcard domain", WildcardDomain, true},
		{"empty domain", Domain(""), false},
		{"random string", Domain("random"), false},
		{"user scope", Domain("user:550e8400-e29b-41d4-a716-446655440000"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidDomain(tt.domain); got != tt.expected {
				t.Errorf("IsValidDomain(%q) = %v, want %v", tt.domain, got, tt.expected)
			}
		})
	}
}

func TestRoleFor(t *testing.T) {
	tests := []struct {
		name string
		want Role
	}{
		{"customer", RoleCustomer},
		{"technician", RoleTechnician},
		{"admin", RoleAdmin},
		{" Admin-Board ", RoleAdminBoard},
	}
	for _, tt := range tests {
		if got := RoleFor(tt.name); got != tt.want {
			t.Errorf("RoleFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
		if _, ok := KnownRoles[RoleFor(tt.name)]; !ok {
			t.Errorf("RoleFor(%q) is not a known role", tt.name)
		}
	}
}

func TestRoleDisplayNames(t *testing.T) {
	for role := range KnownRoles {
		if RoleDisplayNamesTR[role] == "" {
			t.Errorf("role %q has no display name", role)
		}
	}
}

func TestKnownResources(t *testing.T) {
	for _, r := range []Resource{ResourceTicket, ResourceTicketStatus, ResourceTeam, ResourceAudit, ResourcePhoto} {
		if _, ok := KnownResources[r]; !ok {
			t.Errorf("resource %q missing from KnownResources", r)
		}
	}
	if _, ok := KnownResources[WildcardResource]; ok {
		t.Error("wildcard must not be listed as a known resource")
	}
}
