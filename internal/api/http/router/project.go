package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/api/http/handler"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
)

func (r *Router) registerProjectRoutes(api fiber.Router, h *handler.ProjectHandler, authRequired fiber.Handler, requirePerm permFunc) {
	projects := api.Group("/projects", authRequired)
	projects.Get("/", requirePerm(authorize.ResourceProject, authorize.ActionList), h.List)
	projects.Post("/", requirePerm(authorize.ResourceProject, authorize.ActionCreate), h.Create)
	projects.Get("/:id", requirePerm(authorize.ResourceProject, authorize.ActionRead), h.Get)
	projects.Patch("/:id", requirePerm(authorize.ResourceProject, authorize.ActionUpdate), h.Update)
	projects.Delete("/:id", requirePerm(authorize.ResourceProject, authorize.ActionDelete), h.Delete)
}

func (r *Router) registerAuditRoutes(api fiber.Router, h *handler.AuditHandler, authRequired fiber.Handler, requirePerm permFunc) {
	api.Get("/audit-logs", authRequired, requirePerm(authorize.ResourceAudit, authorize.ActionList), h.List)
}
