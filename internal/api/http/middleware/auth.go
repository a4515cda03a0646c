package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/destek_backend/internal/model"
	pasetotoken "github.com/Alijeyrad/destek_backend/pkg/paseto"
	"github.com/Alijeyrad/destek_backend/pkg/reqctx"
)

// SessionResolver is the part of the auth service the middleware needs.
type SessionResolver interface {
	CheckSession(ctx context.Context, sessionID string) error
	Resolve(ctx context.Context, uid, email string) (*model.Profile, error)
}

// AuthRequired validates a Bearer PASETO access token, checks its session and
// resolves the caller's profile. On success the claims are stored in
// c.Locals(pasetotoken.CtxKeyClaims) and the session and profile are attached
// to the request context.
func AuthRequired(mgr *pasetotoken.Manager, sessions SessionResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		tok, ok := pasetotoken.BearerToken(c.Get("Authorization"))
		if !ok {
			return unauthorized(c)
		}

		// Only access tokens are accepted on protected routes
		claims, err := mgr.VerifyType(tok, pasetotoken.TokenTypeAccess)
		if err != nil {
			return unauthorized(c)
		}

		ctx := c.Context()
		if err := sessions.CheckSession(ctx, claims.SessionID); err != nil {
			return unauthorized(c)
		}

		profile, err := sessions.Resolve(ctx, claims.UserID, claims.Email)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			slog.ErrorContext(ctx, "resolve profile failed", "user_id", claims.UserID, "error", err)
			return unauthorized(c)
		}
		if !profile.Active {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "account is deactivated"})
		}

		ctx = reqctx.WithSession(ctx, &reqctx.Session{
			ID:     claims.SessionID,
			UserID: claims.UserID,
			Email:  claims.Email,
		})
		ctx = reqctx.WithProfile(ctx, profile)
		c.SetContext(ctx)
		c.Locals(pasetotoken.CtxKeyClaims, claims)

		return c.Next()
	}
}

// ActorFromFiber returns the caller resolved by AuthRequired.
func ActorFromFiber(c fiber.Ctx) (model.Actor, bool) {
	return reqctx.ActorFromContext(c.Context())
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
}
