package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/api/http/handler"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
)

func (r *Router) registerTicketRoutes(
	api fiber.Router,
	th *handler.TicketHandler,
	authRequired fiber.Handler,
	requirePerm permFunc,
) {
	tickets := api.Group("/tickets", authRequired)

	tickets.Get("/", requirePerm(authorize.ResourceTicket, authorize.ActionList), th.List)
	tickets.Post("/", requirePerm(authorize.ResourceTicket, authorize.ActionCreate), th.Create)
	tickets.Get("/live", requirePerm(authorize.ResourceTicket, authorize.ActionList), th.Live)
	tickets.Get("/stats", requirePerm(authorize.ResourceTicketStats, authorize.ActionRead), th.Stats)

	t := tickets.Group("/:id")
	t.Get("/", requirePerm(authorize.ResourceTicket, authorize.ActionRead), th.Get)
	t.Delete("/", requirePerm(authorize.ResourceTicket, authorize.ActionDelete), th.Delete)
	t.Patch("/status", requirePerm(authorize.ResourceTicketStatus, authorize.ActionUpdate), th.UpdateStatus)
	t.Post("/assign", requirePerm(authorize.ResourceTicketAssignment, authorize.ActionUpdate), th.AssignToTeam)
	t.Post("/technician", requirePerm(authorize.ResourceTicketAssignment, authorize.ActionUpdate), th.AssignTechnician)
	t.Post("/replies", requirePerm(authorize.ResourceTicketReply, authorize.ActionCreate), th.Reply)
	t.Post("/rating", requirePerm(authorize.ResourceTicketRating, authorize.ActionCreate), th.Rate)
}
