package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/api/http/handler"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
)

func (r *Router) registerTeamRoutes(api fiber.Router, h *handler.TeamHandler, authRequired fiber.Handler, requirePerm permFunc) {
	teams := api.Group("/teams", authRequired)
	teams.Get("/", requirePerm(authorize.ResourceTeam, authorize.ActionList), h.List)
	teams.Post("/", requirePerm(authorize.ResourceTeam, authorize.ActionCreate), h.Create)

	t := teams.Group("/:id")
	t.Get("/", requirePerm(authorize.ResourceTeam, authorize.ActionRead), h.Get)
	t.Patch("/", requirePerm(authorize.ResourceTeam, authorize.ActionUpdate), h.Update)
	t.Delete("/", requirePerm(authorize.ResourceTeam, authorize.ActionDelete), h.Delete)
	t.Post("/members", requirePerm(authorize.ResourceTeam, authorize.ActionUpdate), h.AddMember)
	t.Delete("/members/:uid", requirePerm(authorize.ResourceTeam, authorize.ActionUpdate), h.RemoveMember)
}
