package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/service/ticket"
)

// keepAlive is how often an idle live stream writes a comment line. A failed
// write is how a closed client connection is noticed.
const keepAlive = 15 * time.Second

type TicketHandler struct {
	svc ticket.Service
}

func NewTicketHandler(svc ticket.Service) *TicketHandler {
	return &TicketHandler{svc: svc}
}

func mapTicketError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ticket.ErrNotFound),
		errors.Is(err, ticket.ErrTeamNotFound),
		errors.Is(err, ticket.ErrTechnicianNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, ticket.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, ticket.ErrInvalidTransition),
		errors.Is(err, ticket.ErrNotRateable),
		errors.Is(err, ticket.ErrAlreadyRated):
		return conflict(c, err.Error())
	case errors.Is(err, ticket.ErrTitleRequired),
		errors.Is(err, ticket.ErrDescriptionRequired),
		errors.Is(err, ticket.ErrCategoryRequired),
		errors.Is(err, ticket.ErrLocationRequired),
		errors.Is(err, ticket.ErrTooManyPhotos),
		errors.Is(err, ticket.ErrInvalidPhoto),
		errors.Is(err, ticket.ErrNotTechnician),
		errors.Is(err, ticket.ErrReplyEmpty),
		errors.Is(err, ticket.ErrReplyTooLong),
		errors.Is(err, ticket.ErrInvalidTab),
		errors.Is(err, ticket.ErrInvalidRating),
		errors.Is(err, ticket.ErrInvalidStatus),
		errors.Is(err, ticket.ErrTeamRequired),
		errors.Is(err, ticket.ErrInvalidCursor):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

type listQuery struct {
	Tab        string `query:"tab"`
	Status     string `query:"status"`
	Urgent     bool   `query:"urgent"`
	Unassigned bool   `query:"unassigned"`
	Cursor     string `query:"cursor"`
	PageSize   int    `query:"page_size"`
	TailCursor string `query:"tail_cursor"`
	TailSize   int    `query:"tail_size"`
}

func (q listQuery) request() ticket.ListRequest {
	return ticket.ListRequest{
		Tab:        ticket.Tab(q.Tab),
		Status:     q.Status,
		Urgent:     q.Urgent,
		Unassigned: q.Unassigned,
		Cursor:     q.Cursor,
		PageSize:   q.PageSize,
	}
}

// GET /tickets?tab=active&status=&urgent=&unassigned=&cursor=&page_size=
func (h *TicketHandler) List(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var q listQuery
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	page, err := h.svc.List(c.Context(), actor, q.request())
	if err != nil {
		return mapTicketError(c, err)
	}

	return ok(c, page)
}

// GET /tickets/live?tab=active&tail_cursor=&tail_size=&page_size=
//
// Streams the head window as server-sent events. When tail_cursor is given,
// tail_size tickets starting at it (page_size when unset, never more than
// the feed's max page size) are read once and merged under every head
// snapshot. A client that loaded several pages passes their total.
func (h *TicketHandler) Live(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var q listQuery
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	req := q.request()

	var tail []*model.Ticket
	if q.TailCursor != "" {
		tr := req
		tr.Cursor = q.TailCursor
		if q.TailSize > 0 {
			tr.PageSize = q.TailSize
		}
		page, err := h.svc.List(c.Context(), actor, tr)
		if err != nil {
			return mapTicketError(c, err)
		}
		tail = page.Items
	}

	// The stream outlives the handler, so it runs on a context that keeps
	// the request values but is cancelled only when the client goes away.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Context()))
	snapshots, err := h.svc.Watch(ctx, actor, req)
	if err != nil {
		cancel()
		return mapTicketError(c, err)
	}

	encode := c.App().Config().JSONEncoder
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		tick := time.NewTicker(keepAlive)
		defer tick.Stop()

		for {
			select {
			case snap, open := <-snapshots:
				if !open {
					return
				}
				snap.Items = ticket.MergeHeadTail(snap.Items, tail)
				data, err := encode(snap)
				if err != nil {
					slog.Error("encode live snapshot", "error", err)
					return
				}
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			case <-tick.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}

// POST /tickets
func (h *TicketHandler) Create(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Category    string         `json:"category"`
		Priority    string         `json:"priority"`
		Location    model.Location `json:"location"`
		Phone       string         `json:"phone"`
		Photos      []string       `json:"photos"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	t, err := h.svc.Create(c.Context(), actor, ticket.CreateRequest{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		Priority:    body.Priority,
		Location:    body.Location,
		Phone:       body.Phone,
		Photos:      body.Photos,
	})
	if err != nil {
		return mapTicketError(c, err)
	}

	return created(c, t)
}

// GET /tickets/:id
func (h *TicketHandler) Get(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	t, err := h.svc.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return mapTicketError(c, err)
	}

	return ok(c, t)
}

// PATCH /tickets/:id/status
func (h *TicketHandler) UpdateStatus(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Status           string   `json:"status"`
		TeamID           string   `json:"team_id"`
		ResolutionNote   string   `json:"resolution_note"`
		ResolutionPhotos []string `json:"resolution_photos"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Status == "" {
		return badRequest(c, "status is required")
	}

	t, err := h.svc.UpdateStatus(c.Context(), actor, c.Params("id"), ticket.UpdateStatusRequest{
		Status:           body.Status,
		TeamID:           body.TeamID,
		ResolutionNote:   body.ResolutionNote,
		ResolutionPhotos: body.ResolutionPhotos,
	})
	if err != nil {
		return mapTicketError(c, err)
	}

	return ok(c, t)
}

// POST /tickets/:id/assign
func (h *TicketHandler) AssignToTeam(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		TeamID   string `json:"team_id"`
		TeamName string `json:"team_name"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.TeamID == "" {
		return badRequest(c, "team_id is required")
	}

	t, err := h.svc.AssignToTeam(c.Context(), actor, c.Params("id"), body.TeamID, body.TeamName)
	if err != nil {
		return mapTicketError(c, err)
	}

	return ok(c, t)
}

// POST /tickets/:id/technician
func (h *TicketHandler) AssignTechnician(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		TechnicianID string `json:"technician_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.TechnicianID == "" {
		return badRequest(c, "technician_id is required")
	}

	t, err := h.svc.AssignTechnician(c.Context(), actor, c.Params("id"), body.TechnicianID)
	if err != nil {
		return mapTicketError(c, err)
	}

	return ok(c, t)
}

// POST /tickets/:id/replies
func (h *TicketHandler) Reply(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	t, err := h.svc.Reply(c.Context(), actor, c.Params("id"), body.Text)
	if err != nil {
		return mapTicketError(c, err)
	}

	return created(c, t)
}

// POST /tickets/:id/rating
func (h *TicketHandler) Rate(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Stars   int    `json:"stars"`
		Comment string `json:"comment"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	t, err := h.svc.Rate(c.Context(), actor, c.Params("id"), body.Stars, body.Comment)
	if err != nil {
		return mapTicketError(c, err)
	}

	return ok(c, t)
}

// DELETE /tickets/:id
func (h *TicketHandler) Delete(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	if err := h.svc.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return mapTicketError(c, err)
	}

	return noContent(c)
}

// GET /tickets/stats
func (h *TicketHandler) Stats(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	stats, err := h.svc.Stats(c.Context(), actor)
	if err != nil {
		return mapTicketError(c, err)
	}

	return ok(c, stats)
}
