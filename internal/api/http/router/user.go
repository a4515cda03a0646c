package router

import (
	"github.com/Alijeyrad/destek_backend/internal/api/http/handler"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
	"github.com/gofiber/fiber/v3"
)

func (r *Router) registerUserRoutes(api fiber.Router, h *handler.UserHandler, authRequired fiber.Handler, requirePerm permFunc) {
	users := api.Group("/users", authRequired)
	users.Get("/me", requirePerm(authorize.ResourceProfile, authorize.ActionRead), h.GetMe)
	users.Patch("/me", requirePerm(authorize.ResourceProfile, authorize.ActionUpdate), h.UpdateMe)
	users.Put("/me/push-token", requirePerm(authorize.ResourceProfile, authorize.ActionUpdate), h.RegisterPushToken)

	// administration
	users.Get("/", requirePerm(authorize.ResourceUser, authorize.ActionList), h.List)
	users.Post("/", requirePerm(authorize.ResourceUser, authorize.ActionCreate), h.Provision)
	users.Post("/batch-delete", requirePerm(authorize.ResourceUser, authorize.ActionDelete), h.BatchDelete)
	users.Patch("/:id/role", requirePerm(authorize.ResourceUser, authorize.ActionUpdate), h.SetRole)
	users.Patch("/:id/active", requirePerm(authorize.ResourceUser, authorize.ActionUpdate), h.SetActive)
}
