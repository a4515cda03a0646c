package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Alijeyrad/destek_backend/internal/events"
	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/team"
)

const maxReplyLen = 2000

func (s *ticketService) UpdateStatus(ctx context.Context, caller model.Actor, id string, req UpdateStatusRequest) (*model.Ticket, error) {
	t, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	to, err := model.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	// technicians may only move work that is theirs
	if caller.Role == model.RoleTechnician {
		mine, err := s.assignedTo(ctx, caller, t)
		if err != nil {
			return nil, err
		}
		if !mine {
			return nil, ErrForbidden
		}
	}

	// a move to assigned goes to the named team, or back to the current one
	var tm *model.Team
	if to == model.StatusAssigned {
		teamID := req.TeamID
		if teamID == "" {
			teamID = t.AssignedTeamID
		}
		if teamID != "" {
			if tm, err = s.lookupTeam(ctx, teamID); err != nil {
				return nil, err
			}
		}
	}

	err = model.CheckTransition(model.TransitionInput{
		From:     t.Status,
		To:       to,
		Role:     caller.Role,
		IsOwner:  t.CreatorID == caller.ID,
		HasTeam:  tm != nil,
		Assigned: t.IsAssigned(),
	})
	if err != nil {
		return nil, err
	}

	if to == model.StatusResolved {
		if err := s.checkPhotos(req.ResolutionPhotos); err != nil {
			return nil, err
		}
	}

	prev := t.Status
	now := s.now()
	t.Status = to
	switch to {
	case model.StatusAssigned:
		if t.AssignedTeamID != tm.ID {
			t.AssignedTeamID, t.AssignedTeamName = tm.ID, tm.Name
		}
		t.AssignedAt = &now
	case model.StatusResolved:
		t.ResolvedAt = &now
		if len(req.ResolutionPhotos) > 0 {
			t.ResolutionPhotos = req.ResolutionPhotos
		}
		if note := strings.TrimSpace(req.ResolutionNote); note != "" {
			t.ResolutionNote = note
		}
	case model.StatusClosed:
		t.ClosedAt = &now
	case model.StatusCancelled:
		t.CancelledAt = &now
	}

	if to == model.StatusAssigned {
		if err := s.saveAssigned(ctx, t); err != nil {
			return nil, err
		}
		s.announceAssigned(ctx, caller, t, prev, tm.MemberIDs)
		return t, nil
	}

	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	s.log(ctx, model.AuditTicketStatusChanged, caller, t, map[string]any{"from": string(prev), "to": string(to)})
	s.publish(ctx, events.KindStatusChanged, caller, t, prev)
	s.notifyStatus(ctx, caller, t)
	return t, nil
}

// AssignToTeam gives the ticket to a team and moves it to assigned. The
// team name is copied onto the ticket as it is now.
func (s *ticketService) AssignToTeam(ctx context.Context, caller model.Actor, id, teamID, teamName string) (*model.Ticket, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	tm, err := s.lookupTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	prev := t.Status
	if prev != model.StatusAssigned {
		err := model.CheckTransition(model.TransitionInput{
			From: prev, To: model.StatusAssigned, Role: caller.Role, HasTeam: true, Assigned: t.IsAssigned(),
		})
		if err != nil {
			return nil, err
		}
	}

	name := strings.TrimSpace(teamName)
	if name == "" {
		name = tm.Name
	}
	now := s.now()
	t.AssignedTeamID = tm.ID
	t.AssignedTeamName = name
	t.Status = model.StatusAssigned
	t.AssignedAt = &now

	if err := s.saveAssigned(ctx, t); err != nil {
		return nil, err
	}

	s.announceAssigned(ctx, caller, t, prev, tm.MemberIDs)
	return t, nil
}

// saveAssigned stores t under a shared lock on its team row. A team delete
// running at the same time either counts this ticket or makes the save
// fail with ErrTeamNotFound.
func (s *ticketService) saveAssigned(ctx context.Context, t *model.Ticket) error {
	return s.db.InTx(ctx, func(tx *repo.Client) error {
		if _, err := tx.Teams.Lock(ctx, t.AssignedTeamID, repo.LockShare); err != nil {
			if repo.IsNotFound(err) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("lock team: %w", err)
		}
		return saveTo(ctx, tx, t)
	})
}

func (s *ticketService) announceAssigned(ctx context.Context, caller model.Actor, t *model.Ticket, prev model.Status, members []string) {
	s.log(ctx, model.AuditTicketAssigned, caller, t, map[string]any{
		"team_id": t.AssignedTeamID, "team_name": t.AssignedTeamName, "from": string(prev),
	})
	s.publish(ctx, events.KindAssigned, caller, t, prev)
	s.notifyAssigned(ctx, t, members)
}

func (s *ticketService) AssignTechnician(ctx context.Context, caller model.Actor, id, technicianID string) (*model.Ticket, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.db.Users.Get(ctx, technicianID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrTechnicianNotFound
		}
		return nil, fmt.Errorf("get technician: %w", err)
	}
	if p.Role != model.RoleTechnician {
		return nil, ErrNotTechnician
	}

	t.AssignedTechnicianID = p.ID
	t.AssignedTechnicianName = p.FullName()
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	s.log(ctx, model.AuditTicketTechnicianSet, caller, t, map[string]any{"technician_id": p.ID})
	s.publish(ctx, events.KindTechnicianAssigned, caller, t, "")
	s.notify.NotifyUser(ctx, p.ID, "Size yeni iş atandı", t.Title, pushData(t))
	return t, nil
}

func (s *ticketService) Reply(ctx context.Context, caller model.Actor, id, text string) (*model.Ticket, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrReplyEmpty
	}
	if utf8.RuneCountInString(text) > maxReplyLen {
		return nil, fmt.Errorf("%w: at most %d characters", ErrReplyTooLong, maxReplyLen)
	}
	t, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	t.Replies = append(t.Replies, model.Reply{
		AuthorID:   caller.ID,
		AuthorName: caller.Name,
		Role:       caller.Role,
		Text:       text,
		CreatedAt:  s.now(),
	})
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	s.publish(ctx, events.KindReplied, caller, t, "")
	s.notifyReply(ctx, caller, t)
	return t, nil
}

// Rate records the creator's one-time rating of finished work.
func (s *ticketService) Rate(ctx context.Context, caller model.Actor, id string, stars int, comment string) (*model.Ticket, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case t.CreatorID != caller.ID:
		return nil, ErrForbidden
	case t.Status != model.StatusResolved && t.Status != model.StatusClosed:
		return nil, ErrNotRateable
	case t.Rating != nil:
		return nil, ErrAlreadyRated
	case stars < 1 || stars > 5:
		return nil, ErrInvalidRating
	}

	t.Rating = &model.Rating{Stars: stars, Comment: strings.TrimSpace(comment), RatedAt: s.now()}
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	s.log(ctx, model.AuditTicketRated, caller, t, map[string]any{"stars": stars})
	s.publish(ctx, events.KindRated, caller, t, "")
	return t, nil
}

func (s *ticketService) lookupTeam(ctx context.Context, teamID string) (*model.Team, error) {
	tm, err := s.teams.Get(ctx, teamID)
	if err != nil {
		if errors.Is(err, team.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return tm, nil
}

func (s *ticketService) save(ctx context.Context, t *model.Ticket) error {
	return saveTo(ctx, s.db, t)
}

func saveTo(ctx context.Context, db *repo.Client, t *model.Ticket) error {
	if err := db.Tickets.Update(ctx, t); err != nil {
		if repo.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update ticket: %w", err)
	}
	return nil
}
