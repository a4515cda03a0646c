package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
)

func (s *ticketService) List(ctx context.Context, caller model.Actor, req ListRequest) (*Page, error) {
	if caller.Role == model.RoleTechnician {
		return s.ListForTechnician(ctx, caller, req)
	}

	q, size, err := s.baseQuery(req)
	if err != nil {
		return nil, err
	}

	if caller.Role.IsAdmin() {
		switch {
		case req.Status != "":
			st, err := model.ParseStatus(req.Status)
			if err != nil {
				return nil, err
			}
			if q.Statuses != nil && !slices.Contains(q.Statuses, st) {
				return &Page{Items: []*model.Ticket{}}, nil
			}
			q.Statuses = []model.Status{st}
		case req.Urgent:
			q.Priority = model.PriorityUrgent
		case req.Unassigned:
			q.Unassigned = true
		}
	} else {
		q.CreatorID = caller.ID
	}

	items, err := s.db.Tickets.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return newPage(items, size), nil
}

// ListForTechnician merges the technician's assigned work with every new
// ticket. The two reads run concurrently; the merged list is re-sorted
// newest first and cut to the page size.
func (s *ticketService) ListForTechnician(ctx context.Context, caller model.Actor, req ListRequest) (*Page, error) {
	base, size, err := s.baseQuery(req)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.TeamsOf(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	mine := base
	mine.AssignedTo = &repo.Assignee{TechnicianID: caller.ID, TeamIDs: teams}

	var (
		assigned []*model.Ticket
		fresh    []*model.Ticket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assigned, err = s.db.Tickets.Query(gctx, mine)
		return err
	})
	if base.Statuses == nil || slices.Contains(base.Statuses, model.StatusNew) {
		open := base
		open.Statuses = []model.Status{model.StatusNew}
		g.Go(func() error {
			var err error
			fresh, err = s.db.Tickets.Query(gctx, open)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list technician tickets: %w", err)
	}

	byID := make(map[string]*model.Ticket, len(assigned)+len(fresh))
	for _, t := range assigned {
		byID[t.ID] = t
	}
	for _, t := range fresh {
		byID[t.ID] = t
	}
	merged := make([]*model.Ticket, 0, len(byID))
	for _, t := range byID {
		merged = append(merged, t)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Before(merged[j]) })
	if len(merged) > size {
		merged = merged[:size]
	}
	return newPage(merged, size), nil
}

// MergeHeadTail returns head followed by the tail items whose ids are not
// in head, in tail order.
func MergeHeadTail(head, tail []*model.Ticket) []*model.Ticket {
	seen := make(map[string]struct{}, len(head))
	out := make([]*model.Ticket, 0, len(head)+len(tail))
	for _, t := range head {
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	for _, t := range tail {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *ticketService) Watch(ctx context.Context, caller model.Actor, req ListRequest) (<-chan Snapshot, error) {
	req.Cursor = ""
	req.PageSize = s.cfg.HeadSize

	// subscribe before the first read so no change slips between them
	var changes <-chan struct{}
	subCtx, cancel := context.WithCancel(ctx)
	if req.Tab != TabHistory && s.bus != nil {
		evs, err := s.bus.Subscribe(subCtx)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subscribe to ticket changes: %w", err)
		}
		changes = coalesce(evs)
	}

	first, err := s.List(ctx, caller, req)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan Snapshot, 1)
	out <- Snapshot{Items: first.Items, At: s.now()}
	if changes == nil {
		cancel()
		close(out)
		return out, nil
	}

	go func() {
		defer close(out)
		defer cancel()
		for range changes {
			page, err := s.List(ctx, caller, req)
			if err != nil {
				slog.Warn("live ticket refresh failed", "user_id", caller.ID, "err", err)
				continue
			}
			select {
			case out <- Snapshot{Items: page.Items, At: s.now()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// coalesce turns a burst of events into a single wake-up.
func coalesce[T any](in <-chan T) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range in {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out
}

func (s *ticketService) baseQuery(req ListRequest) (repo.TicketQuery, int, error) {
	after, err := repo.DecodeCursor(req.Cursor)
	if err != nil {
		return repo.TicketQuery{}, 0, err
	}
	size := req.PageSize
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}

	q := repo.TicketQuery{After: after, Limit: size}
	switch req.Tab {
	case TabAll:
	case TabActive:
		q.Statuses = model.ActiveStatuses
	case TabHistory:
		q.Statuses = model.HistoryStatuses
	default:
		return repo.TicketQuery{}, 0, fmt.Errorf("%w: %q", ErrInvalidTab, req.Tab)
	}
	return q, size, nil
}

// newPage sets HasMore when the page came back full; a short page is the end.
func newPage(items []*model.Ticket, size int) *Page {
	p := &Page{Items: items, HasMore: len(items) == size}
	if p.Items == nil {
		p.Items = []*model.Ticket{}
	}
	if p.HasMore {
		last := items[len(items)-1]
		p.NextCursor = repo.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return p
}
