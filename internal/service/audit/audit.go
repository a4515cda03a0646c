package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
)

// keys removed from details before anything is written
var sensitiveKeys = map[string]struct{}{
	"password": {},
	"token":    {},
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type Entry struct {
	Action     model.AuditAction
	Actor      model.Actor
	TargetID   string
	TargetType string
	Details    map[string]any
	// Timestamp is ignored; entries are stamped when written.
	Timestamp time.Time
}

type ListRequest struct {
	Action   string
	ActorID  string
	TargetID string
	Cursor   string
	PageSize int
}

type Page struct {
	Items      []*model.AuditEntry `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Log records e in the background. It never fails the caller.
	Log(ctx context.Context, e Entry)
	List(ctx context.Context, caller model.Actor, req ListRequest) (*Page, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type auditService struct {
	db       *repo.Client
	dispatch dispatch.Submitter
	now      func() time.Time
}

func New(db *repo.Client, d dispatch.Submitter) Service {
	return &auditService{db: db, dispatch: d, now: func() time.Time { return time.Now().UTC() }}
}

func (s *auditService) Log(_ context.Context, e Entry) {
	entry := &model.AuditEntry{
		Action:     e.Action,
		ActorID:    e.Actor.ID,
		ActorEmail: e.Actor.Email,
		TargetID:   e.TargetID,
		TargetType: e.TargetType,
		Details:    Strip(e.Details),
	}

	s.dispatch.Submit("audit."+string(e.Action), func(ctx context.Context) error {
		if !entry.Action.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidAction, entry.Action)
		}
		entry.CreatedAt = s.now()
		if err := s.db.Audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
}

func (s *auditService) List(ctx context.Context, caller model.Actor, req ListRequest) (*Page, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}

	q := repo.AuditQuery{ActorID: req.ActorID, TargetID: req.TargetID}
	if req.Action != "" {
		a, err := model.ParseAuditAction(req.Action)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
		}
		q.Action = a
	}

	after, err := repo.DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	q.After = after

	size := req.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	q.Limit = size

	items, err := s.db.Audit.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	page := &Page{Items: items, HasMore: len(items) == size}
	if page.HasMore {
		last := items[len(items)-1]
		page.NextCursor = repo.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// Strip returns a copy of details without sensitive keys, at any depth.
func Strip(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		if _, drop := sensitiveKeys[strings.ToLower(k)]; drop {
			continue
		}
		out[k] = stripValue(v)
	}
	return out
}

func stripValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return Strip(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = stripValue(e)
		}
		return out
	default:
		return v
	}
}
