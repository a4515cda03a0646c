package router

import (
	"github.com/Alijeyrad/destek_backend/internal/api/http/handler"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
	"github.com/gofiber/fiber/v3"
)

func (r *Router) registerFileRoutes(
	api fiber.Router,
	h *handler.FileHandler,
	authRequired fiber.Handler,
	requirePerm permFunc,
) {
	files := api.Group("/files", authRequired)
	files.Post("/photos", requirePerm(authorize.ResourcePhoto, authorize.ActionCreate), h.UploadPhoto)
	files.Get("/photos", requirePerm(authorize.ResourcePhoto, authorize.ActionRead), h.PhotoURL)
	files.Delete("/photos", requirePerm(authorize.ResourcePhoto, authorize.ActionDelete), h.DeletePhoto)
}
