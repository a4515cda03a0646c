package authorize

import (
	"context"
	"log/slog"
)

// DefaultPolicies is the baseline role matrix. Services still apply
// ownership and state checks on top of it.
func DefaultPolicies() []PermissionPolicy {
	// Every signed-in role manages its own profile and session.
	self := func(r Role) []PermissionPolicy {
		return []PermissionPolicy{
			{r, DomainSys, ResourceProfile, WildcardAction, EffectAllow},
			{r, DomainSys, ResourceAuthSession, WildcardAction, EffectAllow},
			{r, DomainSys, ResourceProject, ActionList, EffectAllow},
			{r, DomainSys, ResourceProject, ActionRead, EffectAllow},
			{r, DomainSys, ResourcePhoto, ActionCreate, EffectAllow},
			{r, DomainSys, ResourcePhoto, ActionRead, EffectAllow},
			{r, DomainSys, ResourcePhoto, ActionDelete, EffectAllow},
		}
	}

	customer := append(self(RoleCustomer),
		PermissionPolicy{RoleCustomer, DomainSys, ResourceTicket, ActionCreate, EffectAllow},
		PermissionPolicy{RoleCustomer, DomainSys, ResourceTicket, ActionRead, EffectAllow},
		PermissionPolicy{RoleCustomer, DomainSys, ResourceTicket, ActionList, EffectAllow},
		PermissionPolicy{RoleCustomer, DomainSys, ResourceTicketStatus, ActionUpdate, EffectAllow},
		PermissionPolicy{RoleCustomer, DomainSys, ResourceTicketReply, ActionCreate, EffectAllow},
		PermissionPolicy{RoleCustomer, DomainSys, ResourceTicketRating, ActionCreate, EffectAllow},
	)

	technician := append(self(RoleTechnician),
		PermissionPolicy{RoleTechnician, DomainSys, ResourceTicket, ActionRead, EffectAllow},
		PermissionPolicy{RoleTechnician, DomainSys, ResourceTicket, ActionList, EffectAllow},
		PermissionPolicy{RoleTechnician, DomainSys, ResourceTicketStatus, ActionUpdate, EffectAllow},
		PermissionPolicy{RoleTechnician, DomainSys, ResourceTicketReply, ActionCreate, EffectAllow},
		PermissionPolicy{RoleTechnician, DomainSys, ResourceTeam, ActionList, EffectAllow},
		PermissionPolicy{RoleTechnician, DomainSys, ResourceTeam, ActionRead, EffectAllow},
	)

	// The board reads everything and runs dispatch, but cannot delete tickets
	// or manage accounts.
	board := append(self(RoleAdminBoard),
		PermissionPolicy{RoleAdminBoard, DomainSys, WildcardResource, ActionRead, EffectAllow},
		PermissionPolicy{RoleAdminBoard, DomainSys, WildcardResource, ActionList, EffectAllow},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceTicketStatus, ActionUpdate, EffectAllow},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceTicketAssignment, ActionUpdate, EffectAllow},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceTicketReply, ActionCreate, EffectAllow},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceTeam, WildcardAction, EffectAllow},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceProject, WildcardAction, EffectAllow},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceTicket, ActionDelete, EffectDeny},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceUser, ActionCreate, EffectDeny},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceUser, ActionUpdate, EffectDeny},
		PermissionPolicy{RoleAdminBoard, DomainSys, ResourceUser, ActionDelete, EffectDeny},
	)

	admin := []PermissionPolicy{
		{RoleAdmin, DomainSys, WildcardResource, WildcardAction, EffectAllow},
	}

	all := append(customer, technician...)
	all = append(all, board...)
	return append(all, admin...)
}

// SeedDefaultPolicies writes DefaultPolicies. Existing rows are left alone.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	logger := slog.Default()

	policies := DefaultPolicies()
	added := 0
	for _, p := range policies {
		ok, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
		if err != nil {
			logger.Error("failed to add policy", "policy", p, "error", err)
			return err
		}
		if ok {
			added++
			logger.Debug("added policy", "role", p.Subject, "resource", p.Object, "action", p.Action, "effect", p.Effect)
		}
	}

	logger.Info("seeded default RBAC policies", "count", len(policies), "added", added)
	return nil
}
