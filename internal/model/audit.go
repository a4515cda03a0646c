package model

import (
	"fmt"
	"time"
)

type AuditAction string

const (
	AuditUserLogin             AuditAction = "user_login"
	AuditLoginBlocked          AuditAction = "login_blocked"
	AuditUserLogout            AuditAction = "user_logout"
	AuditUserSignup            AuditAction = "user_signup"
	AuditUserCreated           AuditAction = "user_created"
	AuditUserUpdated           AuditAction = "user_updated"
	AuditUserRoleChanged       AuditAction = "user_role_changed"
	AuditUserActivationChanged AuditAction = "user_activation_changed"
	AuditUserDeleted           AuditAction = "user_deleted"
	AuditPasswordChanged       AuditAction = "password_changed"
	AuditAdminProfileRecovered AuditAction = "admin_profile_recovered"
	AuditTicketCreated         AuditAction = "ticket_created"
	AuditTicketStatusChanged   AuditAction = "ticket_status_changed"
	AuditTicketAssigned        AuditAction = "ticket_assigned"
	AuditTicketTechnicianSet   AuditAction = "ticket_technician_assigned"
	AuditTicketRated           AuditAction = "ticket_rated"
	AuditTicketDeleted         AuditAction = "ticket_deleted"
	AuditTeamCreated           AuditAction = "team_created"
	AuditTeamUpdated           AuditAction = "team_updated"
	AuditTeamDeleted           AuditAction = "team_deleted"
	AuditTeamMemberAdded       AuditAction = "team_member_added"
	AuditTeamMemberRemoved     AuditAction = "team_member_removed"
	AuditProjectCreated        AuditAction = "project_created"
	AuditProjectUpdated        AuditAction = "project_updated"
	AuditProjectDeleted        AuditAction = "project_deleted"
)

var knownAuditActions = map[AuditAction]struct{}{
	AuditUserLogin: {}, AuditLoginBlocked: {}, AuditUserLogout: {}, AuditUserSignup: {},
	AuditUserCreated: {}, AuditUserUpdated: {}, AuditUserRoleChanged: {}, AuditUserActivationChanged: {},
	AuditUserDeleted: {}, AuditPasswordChanged: {}, AuditAdminProfileRecovered: {},
	AuditTicketCreated: {}, AuditTicketStatusChanged: {}, AuditTicketAssigned: {}, AuditTicketTechnicianSet: {},
	AuditTicketRated: {}, AuditTicketDeleted: {},
	AuditTeamCreated: {}, AuditTeamUpdated: {}, AuditTeamDeleted: {}, AuditTeamMemberAdded: {}, AuditTeamMemberRemoved: {},
	AuditProjectCreated: {}, AuditProjectUpdated: {}, AuditProjectDeleted: {},
}

func ParseAuditAction(s string) (AuditAction, error) {
	a := AuditAction(s)
	if _, ok := knownAuditActions[a]; !ok {
		return "", fmt.Errorf("unknown audit action %q", s)
	}
	return a, nil
}

func (a AuditAction) Valid() bool {
	_, ok := knownAuditActions[a]
	return ok
}

type AuditEntry struct {
	ID         string         `json:"id"`
	Action     AuditAction    `json:"action"`
	ActorID    string         `json:"actor_id,omitempty"`
	ActorEmail string         `json:"actor_email,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	TargetType string         `json:"target_type,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
