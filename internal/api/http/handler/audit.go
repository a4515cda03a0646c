package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
)

type AuditHandler struct {
	svc audit.Service
}

func NewAuditHandler(svc audit.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /audit-logs?action=&actor_id=&target_id=&cursor=&page_size=
func (h *AuditHandler) List(c fiber.Ctx) error {
	actor, valid := caller(c)
	if !valid {
		return unauthorized(c)
	}

	var q struct {
		Action   string `query:"action"`
		ActorID  string `query:"actor_id"`
		TargetID string `query:"target_id"`
		Cursor   string `query:"cursor"`
		PageSize int    `query:"page_size"`
	}
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	page, err := h.svc.List(c.Context(), actor, audit.ListRequest{
		Action:   q.Action,
		ActorID:  q.ActorID,
		TargetID: q.TargetID,
		Cursor:   q.Cursor,
		PageSize: q.PageSize,
	})
	switch {
	case err == nil:
		return ok(c, page)
	case errors.Is(err, audit.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, audit.ErrInvalidAction), errors.Is(err, repo.ErrInvalidCursor):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
