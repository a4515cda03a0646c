package router

import (
	"github.com/Alijeyrad/destek_backend/internal/api/http/handler"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
	"github.com/gofiber/fiber/v3"
)

func (r *Router) registerAuthRoutes(
	api fiber.Router,
	h *handler.AuthHandler,
	authRequired fiber.Handler,
	signInLimit fiber.Handler,
	requirePerm permFunc,
) {
	group := api.Group("/auth")
	group.Post("/signup", signInLimit, h.SignUp)
	group.Post("/login", signInLimit, h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", authRequired, requirePerm(authorize.ResourceAuthSession, authorize.ActionDelete), h.Logout)
	group.Post("/password", authRequired, requirePerm(authorize.ResourceAuthSession, authorize.ActionUpdate), h.ChangePassword)
	group.Post("/reauthenticate", authRequired, signInLimit, h.Reauthenticate)
}
