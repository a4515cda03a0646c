package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/service/team"
)

type TeamHandler struct {
	svc team.Service
}

func NewTeamHandler(svc team.Service) *TeamHandler {
	return &TeamHandler{svc: svc}
}

func mapTeamError(c fiber.Ctx, err error) error {
	var active *team.ActiveTicketsError
	switch {
	case errors.As(err, &active):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":          active.Error(),
			"active_tickets": active.Count,
		})
	case errors.Is(err, team.ErrNotFound), errors.Is(err, team.ErrUserNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, team.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, team.ErrTeamHasActiveTickets):
		return conflict(c, err.Error())
	case errors.Is(err, team.ErrNameRequired),
		errors.Is(err, team.ErrInvalidColor),
		errors.Is(err, team.ErrNotTechnician):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// GET /teams
func (h *TeamHandler) List(c fiber.Ctx) error {
	teams, err := h.svc.List(c.Context())
	if err != nil {
		return mapTeamError(c, err)
	}
	return ok(c, teams)
}

// GET /teams/:id
func (h *TeamHandler) Get(c fiber.Ctx) error {
	t, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return mapTeamError(c, err)
	}
	return ok(c, t)
}

// POST /teams
func (h *TeamHandler) Create(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Name      string   `json:"name"`
		Color     string   `json:"color"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	t, err := h.svc.Create(c.Context(), actor, team.CreateRequest{
		Name:      body.Name,
		Color:     body.Color,
		MemberIDs: body.MemberIDs,
	})
	if err != nil {
		return mapTeamError(c, err)
	}

	return created(c, t)
}

// PATCH /teams/:id
func (h *TeamHandler) Update(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Name   *string `json:"name"`
		Color  *string `json:"color"`
		Active *bool   `json:"active"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	t, err := h.svc.Update(c.Context(), actor, c.Params("id"), team.UpdateRequest{
		Name:   body.Name,
		Color:  body.Color,
		Active: body.Active,
	})
	if err != nil {
		return mapTeamError(c, err)
	}

	return ok(c, t)
}

// DELETE /teams/:id
// Refused with 409 while active tickets are assigned to the team.
func (h *TeamHandler) Delete(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	if err := h.svc.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return mapTeamError(c, err)
	}

	return noContent(c)
}

// POST /teams/:id/members
func (h *TeamHandler) AddMember(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.UserID == "" {
		return badRequest(c, "user_id is required")
	}

	t, err := h.svc.AddMember(c.Context(), actor, c.Params("id"), body.UserID)
	if err != nil {
		return mapTeamError(c, err)
	}

	return ok(c, t)
}

// DELETE /teams/:id/members/:uid
func (h *TeamHandler) RemoveMember(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	t, err := h.svc.RemoveMember(c.Context(), actor, c.Params("id"), c.Params("uid"))
	if err != nil {
		return mapTeamError(c, err)
	}

	return ok(c, t)
}
