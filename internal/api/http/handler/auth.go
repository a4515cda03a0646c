package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/service/auth"
	"github.com/Alijeyrad/destek_backend/pkg/reqctx"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func mapAuthError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrAccountInactive):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		return conflict(c, err.Error())
	case errors.Is(err, auth.ErrProfileNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, auth.ErrWrongPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidPhone),
		errors.Is(err, auth.ErrNameRequired),
		errors.Is(err, password.ErrTooShort):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(c fiber.Ctx) error {
	var body struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.SignUp(c.Context(), auth.SignUpRequest{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
	})
	if err != nil {
		return mapAuthError(c, err)
	}

	return created(c, res)
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return badRequest(c, "email and password are required")
	}

	res, err := h.svc.Login(c.Context(), auth.LoginRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		return mapAuthError(c, err)
	}

	return ok(c, res)
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	tokens, err := h.svc.Refresh(c.Context(), body.RefreshToken)
	if err != nil {
		return mapAuthError(c, err)
	}

	return ok(c, tokens)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}
	sess, valid := reqctx.SessionFromContext(c.Context())
	if !valid {
		return unauthorized(c)
	}

	if err := h.svc.Logout(c.Context(), actor, sess.ID); err != nil {
		return mapAuthError(c, err)
	}

	return noContent(c)
}

// POST /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.ChangePassword(c.Context(), actor, body.OldPassword, body.NewPassword); err != nil {
		return mapAuthError(c, err)
	}

	return noContent(c)
}

// POST /api/v1/auth/reauthenticate
// Confirms the caller's password before a sensitive client-side action.
func (h *AuthHandler) Reauthenticate(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.Reauthenticate(c.Context(), actor.ID, body.Password); err != nil {
		return mapAuthError(c, err)
	}

	return noContent(c)
}
