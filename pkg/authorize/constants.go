package authorize

import "strings"

type Action string
type Resource string
type Role string
type Domain string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

const (
	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionDelete: {}, ActionList: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	// Identity / auth
	ResourceUser        Resource = "user"
	ResourceProfile     Resource = "profile"
	ResourceAuthSession Resource = "auth_session"

	// Tickets
	ResourceTicket           Resource = "ticket"
	ResourceTicketStatus     Resource = "ticket_status"
	ResourceTicketAssignment Resource = "ticket_assignment"
	ResourceTicketReply      Resource = "ticket_reply"
	ResourceTicketRating     Resource = "ticket_rating"
	ResourceTicketStats      Resource = "ticket_stats"
	ResourcePhoto            Resource = "photo"

	// Organisation
	ResourceTeam    Resource = "team"
	ResourceProject Resource = "project"
	ResourceAudit   Resource = "audit_log"
)

var KnownResources = map[Resource]struct{}{
	ResourceUser: {}, ResourceProfile: {}, ResourceAuthSession: {},
	ResourceTicket: {}, ResourceTicketStatus: {}, ResourceTicketAssignment: {},
	ResourceTicketReply: {}, ResourceTicketRating: {}, ResourceTicketStats: {}, ResourcePhoto: {},
	ResourceTeam: {}, ResourceProject: {}, ResourceAudit: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// Policy subjects. A request is enforced with the caller's profile role, so
// no per-user grouping rows are needed.

const (
	WildcardRole Role = "*"

	RoleCustomer   Role = "role:customer"
	RoleTechnician Role = "role:technician"
	RoleAdmin      Role = "role:admin"
	RoleAdminBoard Role = "role:admin-board"
)

var KnownRoles = map[Role]struct{}{
	RoleCustomer:   {},
	RoleTechnician: {},
	RoleAdmin:      {},
	RoleAdminBoard: {},
}

// Turkish display names
var RoleDisplayNamesTR = map[Role]string{
	RoleCustomer:   "Müşteri",
	RoleTechnician: "Teknisyen",
	RoleAdmin:      "Yönetici",
	RoleAdminBoard: "Yönetim Kurulu",
}

// RoleFor maps a profile role name ("customer", "admin-board", ...) to its
// policy subject.
func RoleFor(name string) Role {
	return Role("role:" + strings.ToLower(strings.TrimSpace(name)))
}

// ----------------------------
// Domains
// ----------------------------

const (
	DomainSys      Domain = "sys"
	WildcardDomain Domain = "*"
)

// IsValidDomain checks whether d is a recognised domain string.
func IsValidDomain(d Domain) bool {
	return d == DomainSys || d == WildcardDomain
}

// ----------------------------
// Casbin tuple helpers
// ----------------------------

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// Permission rows: p, role, domain, resource, action, eft
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}
