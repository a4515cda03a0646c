package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/service/user"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

func mapUserError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, user.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, user.ErrEmailAlreadyExists):
		return conflict(c, err.Error())
	case errors.Is(err, user.ErrSelfAction),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidPhone),
		errors.Is(err, user.ErrInvalidPushToken),
		errors.Is(err, user.ErrNameRequired),
		errors.Is(err, user.ErrNoUsers),
		errors.Is(err, password.ErrTooShort):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// GET /api/v1/users/me
func (h *UserHandler) GetMe(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	u, err := h.svc.GetMe(c.Context(), actor)
	if err != nil {
		return mapUserError(c, err)
	}

	return ok(c, u)
}

// PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Phone     *string `json:"phone"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := h.svc.UpdateMe(c.Context(), actor, user.UpdateMeRequest{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
	})
	if err != nil {
		return mapUserError(c, err)
	}

	return ok(c, result)
}

// PUT /api/v1/users/me/push-token
func (h *UserHandler) RegisterPushToken(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.RegisterPushToken(c.Context(), actor, body.Token); err != nil {
		return mapUserError(c, err)
	}

	return noContent(c)
}

// GET /api/v1/users?role=technician&active=true
func (h *UserHandler) List(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	req := user.ListRequest{Role: c.Query("role")}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "active must be true or false")
		}
		req.Active = &active
	}

	users, err := h.svc.List(c.Context(), actor, req)
	if err != nil {
		return mapUserError(c, err)
	}

	return ok(c, users)
}

// POST /api/v1/users
func (h *UserHandler) Provision(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
		Role      string `json:"role"`
		Specialty string `json:"specialty"`
		Password  string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.Provision(c.Context(), actor, user.ProvisionRequest{
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
		Role:      body.Role,
		Specialty: body.Specialty,
		Password:  body.Password,
	})
	if err != nil {
		return mapUserError(c, err)
	}

	return created(c, res)
}

// PATCH /api/v1/users/:id/role
func (h *UserHandler) SetRole(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Role == "" {
		return badRequest(c, "role is required")
	}

	p, err := h.svc.SetRole(c.Context(), actor, c.Params("id"), body.Role)
	if err != nil {
		return mapUserError(c, err)
	}

	return ok(c, p)
}

// PATCH /api/v1/users/:id/active
func (h *UserHandler) SetActive(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Active == nil {
		return badRequest(c, "active is required")
	}

	p, err := h.svc.SetActive(c.Context(), actor, c.Params("id"), *body.Active)
	if err != nil {
		return mapUserError(c, err)
	}

	return ok(c, p)
}

// POST /api/v1/users/batch-delete
func (h *UserHandler) BatchDelete(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	n, err := h.svc.BatchDelete(c.Context(), actor, body.IDs)
	if err != nil {
		return mapUserError(c, err)
	}

	return ok(c, fiber.Map{"deleted": n})
}
