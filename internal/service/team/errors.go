package team

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("team not found")
	ErrForbidden            = errors.New("not authorized to manage teams")
	ErrNameRequired         = errors.New("team name is required")
	ErrInvalidColor         = errors.New("color must be a hex value like #1E88E5")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotTechnician        = errors.New("only technicians can join a team")
	ErrTeamHasActiveTickets = errors.New("team has active tickets")
)

// ActiveTicketsError blocks deletion of a team that still has open work.
type ActiveTicketsError struct {
	Count int64
}

func (e *ActiveTicketsError) Error() string {
	return fmt.Sprintf("%s: %d", ErrTeamHasActiveTickets, e.Count)
}

func (e *ActiveTicketsError) Unwrap() error { return ErrTeamHasActiveTickets }
