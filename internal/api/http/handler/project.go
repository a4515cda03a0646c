package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/service/project"
)

type ProjectHandler struct {
	svc project.Service
}

func NewProjectHandler(svc project.Service) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

func mapProjectError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, project.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, project.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, project.ErrNameTaken):
		return conflict(c, err.Error())
	case errors.Is(err, project.ErrNameRequired), errors.Is(err, project.ErrInvalidBlock):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

type projectBody struct {
	Name   string        `json:"name"`
	Blocks []model.Block `json:"blocks"`
}

func (b projectBody) request() project.Request {
	return project.Request{Name: b.Name, Blocks: b.Blocks}
}

// GET /projects
func (h *ProjectHandler) List(c fiber.Ctx) error {
	projects, err := h.svc.List(c.Context())
	if err != nil {
		return mapProjectError(c, err)
	}
	return ok(c, projects)
}

// GET /projects/:id
func (h *ProjectHandler) Get(c fiber.Ctx) error {
	p, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return mapProjectError(c, err)
	}
	return ok(c, p)
}

// POST /projects
func (h *ProjectHandler) Create(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body projectBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.svc.Create(c.Context(), actor, body.request())
	if err != nil {
		return mapProjectError(c, err)
	}

	return created(c, p)
}

// PATCH /projects/:id
func (h *ProjectHandler) Update(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body projectBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.svc.Update(c.Context(), actor, c.Params("id"), body.request())
	if err != nil {
		return mapProjectError(c, err)
	}

	return ok(c, p)
}

// DELETE /projects/:id
func (h *ProjectHandler) Delete(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	if err := h.svc.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return mapProjectError(c, err)
	}

	return noContent(c)
}
