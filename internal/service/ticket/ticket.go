package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/destek_backend/config"
	"github.com/Alijeyrad/destek_backend/internal/events"
	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	"github.com/Alijeyrad/destek_backend/internal/service/notification"
	"github.com/Alijeyrad/destek_backend/internal/service/team"
	"github.com/Alijeyrad/destek_backend/pkg/phone"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Location    model.Location
	Phone       string
	Photos      []string
}

type UpdateStatusRequest struct {
	Status string
	// TeamID is used when an admin moves a ticket straight to assigned.
	TeamID           string
	ResolutionNote   string
	ResolutionPhotos []string
}

type Tab string

const (
	TabAll     Tab = ""
	TabActive  Tab = "active"
	TabHistory Tab = "history"
)

// ListRequest selects a page of tickets for the caller. Status, Urgent and
// Unassigned apply to administrators only, and at most one of them does:
// status wins over urgent, urgent over unassigned.
type ListRequest struct {
	Tab        Tab
	Status     string
	Urgent     bool
	Unassigned bool
	Cursor     string
	PageSize   int
}

type Page struct {
	Items      []*model.Ticket `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

type Snapshot struct {
	Items []*model.Ticket `json:"items"`
	At    time.Time       `json:"at"`
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// PhotoChecker validates a photo reference, either an inline data URI or a
// stored blob key.
type PhotoChecker interface {
	CheckPhoto(ref string) error
}

type Config struct {
	MaxPhotos       int
	PhoneRegion     string
	HeadSize        int
	DefaultPageSize int
	MaxPageSize     int
}

func DefaultConfig() Config {
	return Config{
		MaxPhotos:       5,
		PhoneRegion:     phone.DefaultRegion,
		HeadSize:        20,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

func FromCentralConfig(c *config.Config) Config {
	cfg := DefaultConfig()
	if c.Tickets.MaxPhotos > 0 {
		cfg.MaxPhotos = c.Tickets.MaxPhotos
	}
	if c.Tickets.PhoneRegion != "" {
		cfg.PhoneRegion = c.Tickets.PhoneRegion
	}
	if c.Feed.HeadSize > 0 {
		cfg.HeadSize = c.Feed.HeadSize
	}
	if c.Feed.DefaultPageSize > 0 {
		cfg.DefaultPageSize = c.Feed.DefaultPageSize
	}
	if c.Feed.MaxPageSize > 0 {
		cfg.MaxPageSize = c.Feed.MaxPageSize
	}
	return cfg
}

type Deps struct {
	DB     *repo.Client
	Teams  team.Service
	Audit  audit.Service
	Notify notification.Service
	Bus    events.Bus
	Photos PhotoChecker // optional
	Config Config
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, caller model.Actor, req CreateRequest) (*model.Ticket, error)
	Get(ctx context.Context, caller model.Actor, id string) (*model.Ticket, error)
	List(ctx context.Context, caller model.Actor, req ListRequest) (*Page, error)
	ListForTechnician(ctx context.Context, caller model.Actor, req ListRequest) (*Page, error)
	// Watch emits the head window now and again after every ticket change.
	// The history tab gets a single snapshot.
	Watch(ctx context.Context, caller model.Actor, req ListRequest) (<-chan Snapshot, error)

	UpdateStatus(ctx context.Context, caller model.Actor, id string, req UpdateStatusRequest) (*model.Ticket, error)
	AssignToTeam(ctx context.Context, caller model.Actor, id, teamID, teamName string) (*model.Ticket, error)
	AssignTechnician(ctx context.Context, caller model.Actor, id, technicianID string) (*model.Ticket, error)
	Reply(ctx context.Context, caller model.Actor, id, text string) (*model.Ticket, error)
	Rate(ctx context.Context, caller model.Actor, id string, stars int, comment string) (*model.Ticket, error)
	Delete(ctx context.Context, caller model.Actor, id string) error
	Stats(ctx context.Context, caller model.Actor) (*model.TicketStats, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type ticketService struct {
	db     *repo.Client
	teams  team.Service
	audit  audit.Service
	notify notification.Service
	bus    events.Bus
	photos PhotoChecker
	cfg    Config
	now    func() time.Time
}

func New(d Deps) Service {
	return &ticketService{
		db:     d.DB,
		teams:  d.Teams,
		audit:  d.Audit,
		notify: d.Notify,
		bus:    d.Bus,
		photos: d.Photos,
		cfg:    d.Config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *ticketService) Create(ctx context.Context, caller model.Actor, req CreateRequest) (*model.Ticket, error) {
	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		return nil, ErrTitleRequired
	case strings.TrimSpace(req.Description) == "":
		return nil, ErrDescriptionRequired
	case strings.TrimSpace(req.Category) == "":
		return nil, ErrCategoryRequired
	case strings.TrimSpace(req.Location.Project) == "":
		return nil, ErrLocationRequired
	}
	if err := s.checkPhotos(req.Photos); err != nil {
		return nil, err
	}

	creatorPhone := strings.TrimSpace(req.Phone)
	if creatorPhone == "" {
		if p, err := s.db.Users.Get(ctx, caller.ID); err == nil {
			creatorPhone = p.Phone
		}
	}
	if e164, err := phone.Normalize(creatorPhone, s.cfg.PhoneRegion); err == nil {
		creatorPhone = e164
	} else {
		slog.Debug("ticket phone kept as entered", "err", err)
	}

	now := s.now()
	t := &model.Ticket{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Priority:    model.NormalizePriority(req.Priority),
		Status:      model.StatusNew,
		Location: model.Location{
			Project: strings.TrimSpace(req.Location.Project),
			Block:   strings.TrimSpace(req.Location.Block),
			Unit:    strings.TrimSpace(req.Location.Unit),
		},
		CreatorID:    caller.ID,
		CreatorName:  caller.Name,
		CreatorEmail: caller.Email,
		CreatorPhone: creatorPhone,
		Photos:       req.Photos,
		Replies:      []model.Reply{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.Tickets.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.log(ctx, model.AuditTicketCreated, caller, t, map[string]any{"priority": string(t.Priority), "category": t.Category})
	s.publish(ctx, events.KindCreated, caller, t, "")
	s.notifyCreated(ctx, t)
	return t, nil
}

func (s *ticketService) Get(ctx context.Context, caller model.Actor, id string) (*model.Ticket, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canSee(ctx, caller, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *ticketService) Delete(ctx context.Context, caller model.Actor, id string) error {
	if caller.Role != model.RoleAdmin {
		return ErrForbidden
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.Tickets.Delete(ctx, id); err != nil {
		if repo.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete ticket: %w", err)
	}
	s.log(ctx, model.AuditTicketDeleted, caller, t, map[string]any{"title": t.Title, "status": string(t.Status)})
	s.publish(ctx, events.KindDeleted, caller, t, "")
	return nil
}

func (s *ticketService) Stats(ctx context.Context, caller model.Actor) (*model.TicketStats, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	st, err := s.db.Tickets.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("ticket stats: %w", err)
	}
	return st, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *ticketService) load(ctx context.Context, id string) (*model.Ticket, error) {
	t, err := s.db.Tickets.Get(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// canSee: customers see their own tickets, technicians see tickets given to
// them or their teams plus every new ticket, administrators see everything.
func (s *ticketService) canSee(ctx context.Context, caller model.Actor, t *model.Ticket) (bool, error) {
	switch {
	case caller.Role.IsAdmin():
		return true, nil
	case caller.Role == model.RoleTechnician:
		if t.Status == model.StatusNew {
			return true, nil
		}
		return s.assignedTo(ctx, caller, t)
	default:
		return t.CreatorID == caller.ID, nil
	}
}

func (s *ticketService) assignedTo(ctx context.Context, caller model.Actor, t *model.Ticket) (bool, error) {
	if t.AssignedTechnicianID == caller.ID {
		return true, nil
	}
	if t.AssignedTeamID == "" {
		return false, nil
	}
	teams, err := s.teams.TeamsOf(ctx, caller.ID)
	if err != nil {
		return false, err
	}
	return slices.Contains(teams, t.AssignedTeamID), nil
}

func (s *ticketService) checkPhotos(photos []string) error {
	if len(photos) > s.cfg.MaxPhotos {
		return fmt.Errorf("%w: at most %d", ErrTooManyPhotos, s.cfg.MaxPhotos)
	}
	if s.photos == nil {
		return nil
	}
	for i, p := range photos {
		if err := s.photos.CheckPhoto(p); err != nil {
			return fmt.Errorf("%w: photo %d: %w", ErrInvalidPhoto, i+1, err)
		}
	}
	return nil
}

func (s *ticketService) log(ctx context.Context, action model.AuditAction, caller model.Actor, t *model.Ticket, details map[string]any) {
	s.audit.Log(ctx, audit.Entry{Action: action, Actor: caller, TargetID: t.ID, TargetType: "ticket", Details: details})
}

func (s *ticketService) publish(ctx context.Context, kind events.Kind, caller model.Actor, t *model.Ticket, prev model.Status) {
	if s.bus == nil {
		return
	}
	ev := events.TicketEvent{
		Kind:         kind,
		TicketID:     t.ID,
		Title:        t.Title,
		Status:       t.Status,
		PrevStatus:   prev,
		CreatorID:    t.CreatorID,
		TeamID:       t.AssignedTeamID,
		TechnicianID: t.AssignedTechnicianID,
		ActorID:      caller.ID,
		At:           s.now(),
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		slog.Warn("publish ticket event failed", "ticket_id", t.ID, "kind", kind, "err", err)
	}
}
