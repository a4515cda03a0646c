// Package repo defines the storage contracts the services depend on. The
// gormrepo package implements them on PostgreSQL and the memory package
// implements them in process.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Alijeyrad/destek_backend/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// Cursor is a keyset position in a created_at DESC, id DESC ordering.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether a row at (createdAt, id) sorts after the cursor,
// i.e. belongs to the next page.
func (c Cursor) Before(createdAt time.Time, id string) bool {
	if !createdAt.Equal(c.CreatedAt) {
		return createdAt.Before(c.CreatedAt)
	}
	return id < c.ID
}

type AccountRepository interface {
	Create(ctx context.Context, a *model.Account) error
	Get(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, ids []string) error
}

type UserFilter struct {
	Role         *model.Role
	Active       *bool
	HasPushToken bool
	IDs          []string
}

type UserRepository interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	Create(ctx context.Context, p *model.Profile) error
	// Upsert writes the whole profile, creating it when missing.
	Upsert(ctx context.Context, p *model.Profile) error
	Update(ctx context.Context, p *model.Profile) error
	List(ctx context.Context, f UserFilter) ([]*model.Profile, error)
	Delete(ctx context.Context, ids []string) error
}

// Assignee matches tickets given to a technician directly or to any of the
// technician's teams.
type Assignee struct {
	TechnicianID string
	TeamIDs      []string
}

type TicketQuery struct {
	CreatorID  string
	Statuses   []model.Status
	Priority   model.Priority
	Unassigned bool
	AssignedTo *Assignee
	TeamID     string
	After      *Cursor
	Limit      int
}

type TicketRepository interface {
	Create(ctx context.Context, t *model.Ticket) error
	Get(ctx context.Context, id string) (*model.Ticket, error)
	Update(ctx context.Context, t *model.Ticket) error
	Delete(ctx context.Context, id string) error
	DeleteByCreators(ctx context.Context, creatorIDs []string) (int64, error)
	// Query returns tickets newest first.
	Query(ctx context.Context, q TicketQuery) ([]*model.Ticket, error)
	CountByTeam(ctx context.Context, teamID string, statuses []model.Status) (int64, error)
	Stats(ctx context.Context) (*model.TicketStats, error)
}

// LockMode is the row lock strength taken by TeamRepository.Lock.
type LockMode string

const (
	LockShare  LockMode = "SHARE"
	LockUpdate LockMode = "UPDATE"
)

type TeamRepository interface {
	Create(ctx context.Context, t *model.Team) error
	Get(ctx context.Context, id string) (*model.Team, error)
	// Lock reads the team and holds a row lock until the surrounding InTx
	// ends. Outside a transaction it behaves like Get.
	Lock(ctx context.Context, id string, mode LockMode) (*model.Team, error)
	List(ctx context.Context) ([]*model.Team, error)
	ListByMember(ctx context.Context, uid string) ([]*model.Team, error)
	Update(ctx context.Context, t *model.Team) error
	Delete(ctx context.Context, id string) error
}

type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	Get(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context) ([]*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id string) error
}

type AuditQuery struct {
	Action   model.AuditAction
	ActorID  string
	TargetID string
	After    *Cursor
	Limit    int
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, e *model.AuditEntry) error
	List(ctx context.Context, q AuditQuery) ([]*model.AuditEntry, error)
}

// Client groups the repositories. InTx runs fn against repositories bound to
// a single transaction.
type Client struct {
	Accounts AccountRepository
	Users    UserRepository
	Tickets  TicketRepository
	Teams    TeamRepository
	Projects ProjectRepository
	Audit    AuditRepository

	inTx func(ctx context.Context, fn func(tx *Client) error) error
}

// NewClient assembles a Client. A nil inTx runs fn on the client itself.
func NewClient(
	accounts AccountRepository,
	users UserRepository,
	tickets TicketRepository,
	teams TeamRepository,
	projects ProjectRepository,
	audit AuditRepository,
	inTx func(ctx context.Context, fn func(tx *Client) error) error,
) *Client {
	return &Client{
		Accounts: accounts,
		Users:    users,
		Tickets:  tickets,
		Teams:    teams,
		Projects: projects,
		Audit:    audit,
		inTx:     inTx,
	}
}

func (c *Client) InTx(ctx context.Context, fn func(tx *Client) error) error {
	if c.inTx == nil {
		return fn(c)
	}
	return c.inTx(ctx, fn)
}
