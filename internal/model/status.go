package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus     = errors.New("invalid ticket status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrTeamRequired      = errors.New("assignment requires a team")
)

type Status string

const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusOnHold     Status = "on_hold"
	StatusResolved   Status = "resolved"
	StatusCancelled  Status = "cancelled"
	StatusClosed     Status = "closed"
)

// ActiveStatuses block team deletion while any ticket of the team is in one of them.
var ActiveStatuses = []Status{StatusNew, StatusAssigned, StatusInProgress, StatusOnHold}

// HistoryStatuses make up the history tab.
var HistoryStatuses = []Status{StatusResolved, StatusCancelled, StatusClosed}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusNew, StatusAssigned, StatusInProgress, StatusOnHold,
		StatusResolved, StatusCancelled, StatusClosed:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled || s == StatusClosed
}

// Active is the complement of Terminal.
func (s Status) Active() bool { return !s.Terminal() }

type transition struct {
	from, to Status
}

// forward transitions and the roles that may take them
var transitions = map[transition][]Role{
	{StatusNew, StatusAssigned}:        {RoleAdmin, RoleAdminBoard},
	{StatusAssigned, StatusInProgress}: {RoleTechnician, RoleAdmin, RoleAdminBoard},
	{StatusInProgress, StatusOnHold}:   {RoleTechnician, RoleAdmin, RoleAdminBoard},
	{StatusOnHold, StatusInProgress}:   {RoleTechnician, RoleAdmin, RoleAdminBoard},
	{StatusInProgress, StatusResolved}: {RoleTechnician, RoleAdmin, RoleAdminBoard},
	{StatusNew, StatusCancelled}:       {RoleCustomer},
	{StatusResolved, StatusClosed}:     {RoleAdmin, RoleAdminBoard},
}

// TransitionInput is what CheckTransition needs to know about the ticket
// and the caller.
type TransitionInput struct {
	From     Status
	To       Status
	Role     Role
	IsOwner  bool // caller created the ticket
	HasTeam  bool // ticket has, or is being given, a team
	Assigned bool // ticket currently has a team or technician
}

// CheckTransition validates a status change. Admins may override the
// forward-only rule, but entering assigned always needs a team and a ticket
// never transitions to its own status.
func CheckTransition(in TransitionInput) error {
	if _, err := ParseStatus(string(in.To)); err != nil {
		return err
	}
	if in.From == in.To {
		return fmt.Errorf("%w: ticket is already %s", ErrInvalidTransition, in.To)
	}
	if in.To == StatusAssigned && !in.HasTeam {
		return ErrTeamRequired
	}
	if in.Role.IsAdmin() {
		return nil
	}

	roles, ok := transitions[transition{in.From, in.To}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, in.From, in.To)
	}
	permitted := false
	for _, r := range roles {
		if r == in.Role {
			permitted = true
			break
		}
	}
	if !permitted {
		return fmt.Errorf("%w: %s may not move %s -> %s", ErrInvalidTransition, in.Role, in.From, in.To)
	}

	if in.To == StatusCancelled && (!in.IsOwner || in.Assigned) {
		return fmt.Errorf("%w: only the creator can cancel an unassigned ticket", ErrInvalidTransition)
	}
	return nil
}
