package team

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
)

const defaultColor = "#1E88E5"

var reColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Name      string
	Color     string
	MemberIDs []string
}

// UpdateRequest changes only the fields that are set. A rename does not
// touch the team name copied onto already assigned tickets.
type UpdateRequest struct {
	Name   *string
	Color  *string
	Active *bool
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, caller model.Actor, req CreateRequest) (*model.Team, error)
	Get(ctx context.Context, id string) (*model.Team, error)
	List(ctx context.Context) ([]*model.Team, error)
	Update(ctx context.Context, caller model.Actor, id string, req UpdateRequest) (*model.Team, error)
	Delete(ctx context.Context, caller model.Actor, id string) error
	AddMember(ctx context.Context, caller model.Actor, teamID, uid string) (*model.Team, error)
	RemoveMember(ctx context.Context, caller model.Actor, teamID, uid string) (*model.Team, error)
	// TeamsOf returns the ids of the teams uid belongs to.
	TeamsOf(ctx context.Context, uid string) ([]string, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type teamService struct {
	db    *repo.Client
	audit audit.Service
	now   func() time.Time
}

func New(db *repo.Client, a audit.Service) Service {
	return &teamService{db: db, audit: a, now: func() time.Time { return time.Now().UTC() }}
}

func (s *teamService) Create(ctx context.Context, caller model.Actor, req CreateRequest) (*model.Team, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = defaultColor
	}
	if !reColor.MatchString(color) {
		return nil, ErrInvalidColor
	}

	members := make([]string, 0, len(req.MemberIDs))
	for _, uid := range req.MemberIDs {
		if slices.Contains(members, uid) {
			continue
		}
		if err := s.checkTechnician(ctx, uid); err != nil {
			return nil, err
		}
		members = append(members, uid)
	}

	now := s.now()
	t := &model.Team{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      name,
		Color:     color,
		MemberIDs: members,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Teams.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	s.log(ctx, model.AuditTeamCreated, caller, t.ID, map[string]any{"name": t.Name, "members": len(members)})
	return t, nil
}

func (s *teamService) Get(ctx context.Context, id string) (*model.Team, error) {
	t, err := s.db.Teams.Get(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

func (s *teamService) List(ctx context.Context) ([]*model.Team, error) {
	teams, err := s.db.Teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (s *teamService) Update(ctx context.Context, caller model.Actor, id string, req UpdateRequest) (*model.Team, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		changes["name"] = name
		t.Name = name
	}
	if req.Color != nil {
		if !reColor.MatchString(*req.Color) {
			return nil, ErrInvalidColor
		}
		changes["color"] = *req.Color
		t.Color = *req.Color
	}
	if req.Active != nil {
		changes["active"] = *req.Active
		t.Active = *req.Active
	}

	t.UpdatedAt = s.now()
	if err := s.db.Teams.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}
	s.log(ctx, model.AuditTeamUpdated, caller, t.ID, changes)
	return t, nil
}

// Delete refuses while any ticket in an active status is assigned to the
// team. Terminal tickets keep their copied team name. The team row stays
// locked from the count to the delete so no assignment can land in between.
func (s *teamService) Delete(ctx context.Context, caller model.Actor, id string) error {
	if !caller.Role.IsAdmin() {
		return ErrForbidden
	}

	var name string
	err := s.db.InTx(ctx, func(tx *repo.Client) error {
		t, err := tx.Teams.Lock(ctx, id, repo.LockUpdate)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock team: %w", err)
		}
		name = t.Name

		n, err := tx.Tickets.CountByTeam(ctx, id, model.ActiveStatuses)
		if err != nil {
			return fmt.Errorf("count team tickets: %w", err)
		}
		if n > 0 {
			return &ActiveTicketsError{Count: n}
		}

		if err := tx.Teams.Delete(ctx, id); err != nil {
			if repo.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("delete team: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log(ctx, model.AuditTeamDeleted, caller, id, map[string]any{"name": name})
	return nil
}

func (s *teamService) AddMember(ctx context.Context, caller model.Actor, teamID, uid string) (*model.Team, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	t, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if t.HasMember(uid) {
		return t, nil
	}
	if err := s.checkTechnician(ctx, uid); err != nil {
		return nil, err
	}

	t.MemberIDs = append(t.MemberIDs, uid)
	t.UpdatedAt = s.now()
	if err := s.db.Teams.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("add team member: %w", err)
	}
	s.log(ctx, model.AuditTeamMemberAdded, caller, t.ID, map[string]any{"user_id": uid})
	return t, nil
}

func (s *teamService) RemoveMember(ctx context.Context, caller model.Actor, teamID, uid string) (*model.Team, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	t, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !t.HasMember(uid) {
		return t, nil
	}

	t.MemberIDs = slices.DeleteFunc(t.MemberIDs, func(id string) bool { return id == uid })
	t.UpdatedAt = s.now()
	if err := s.db.Teams.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("remove team member: %w", err)
	}
	s.log(ctx, model.AuditTeamMemberRemoved, caller, t.ID, map[string]any{"user_id": uid})
	return t, nil
}

func (s *teamService) TeamsOf(ctx context.Context, uid string) ([]string, error) {
	teams, err := s.db.Teams.ListByMember(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list teams of member: %w", err)
	}
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (s *teamService) checkTechnician(ctx context.Context, uid string) error {
	p, err := s.db.Users.Get(ctx, uid)
	if err != nil {
		if repo.IsNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}
	if p.Role != model.RoleTechnician {
		return ErrNotTechnician
	}
	return nil
}

func (s *teamService) log(ctx context.Context, action model.AuditAction, caller model.Actor, id string, details map[string]any) {
	s.audit.Log(ctx, audit.Entry{Action: action, Actor: caller, TargetID: id, TargetType: "team", Details: details})
}
