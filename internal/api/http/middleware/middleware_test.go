package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
	pasetotoken "github.com/Alijeyrad/destek_backend/pkg/paseto"
	"github.com/Alijeyrad/destek_backend/pkg/reqctx"
)

type fakeSessions struct {
	sessions map[string]bool
	profiles map[string]*model.Profile
}

func (f *fakeSessions) CheckSession(_ context.Context, sid string) error {
	if !f.sessions[sid] {
		return errors.New("session not found")
	}
	return nil
}

func (f *fakeSessions) Resolve(_ context.Context, uid, email string) (*model.Profile, error) {
	if p, ok := f.profiles[uid]; ok {
		return p, nil
	}
	return model.MinimalProfile(uid, email), nil
}

type roleAuth struct {
	allowed map[authorize.Role]bool
}

func (a roleAuth) Enforce(_ context.Context, role authorize.Role, _ authorize.Domain, _ authorize.Resource, _ authorize.Action) (bool, error) {
	return a.allowed[role], nil
}

func (a roleAuth) MustEnforce(ctx context.Context, role authorize.Role, d authorize.Domain, o authorize.Resource, act authorize.Action) error {
	ok, _ := a.Enforce(ctx, role, d, o, act)
	if !ok {
		return authorize.ErrForbidden
	}
	return nil
}

func (roleAuth) AddPermission(context.Context, authorize.Role, authorize.Domain, authorize.Resource, authorize.Action, authorize.PolicyEffect) (bool, error) {
	return false, nil
}

func (roleAuth) RemovePermission(context.Context, authorize.Role, authorize.Domain, authorize.Resource, authorize.Action, authorize.PolicyEffect) (bool, error) {
	return false, nil
}

func newManager(t *testing.T) *pasetotoken.Manager {
	t.Helper()
	m, err := pasetotoken.New(pasetotoken.Config{Mode: pasetotoken.ModeLocal, Issuer: "destek", Audience: "destek-app"}, pasetotoken.NewLocalKeys())
	require.NoError(t, err)
	return m
}

func newApp(mgr *pasetotoken.Manager, s SessionResolver, extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(RequestID())
	app.Use(AuthRequired(mgr, s))
	for _, h := range extra {
		app.Use(h)
	}
	app.Get("/me", func(c fiber.Ctx) error {
		actor, ok := ActorFromFiber(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		sess, _ := reqctx.SessionFromContext(c.Context())
		return c.SendString(actor.ID + "|" + string(actor.Role) + "|" + sess.ID + "|" + reqctx.RequestIDFromContext(c.Context()))
	})
	return app
}

func get(t *testing.T, app *fiber.App, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(body)
}

func TestAuthRequired(t *testing.T) {
	mgr := newManager(t)
	s := &fakeSessions{
		sessions: map[string]bool{"s-1": true, "s-2": true},
		profiles: map[string]*model.Profile{
			"u-1": {ID: "u-1", Role: model.RoleTechnician, Active: true},
			"u-2": {ID: "u-2", Role: model.RoleCustomer, Active: false},
		},
	}
	app := newApp(mgr, s)

	access, err := mgr.IssueAccess(pasetotoken.Subject{UserID: "u-1", Email: "usta@example.com", SessionID: "s-1"})
	require.NoError(t, err)
	code, body := get(t, app, access)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "u-1|technician|s-1|req-1", body)

	t.Run("missing token", func(t *testing.T) {
		code, _ := get(t, app, "")
		assert.Equal(t, fiber.StatusUnauthorized, code)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		refresh, err := mgr.IssueRefresh(pasetotoken.Subject{UserID: "u-1"})
		require.NoError(t, err)
		code, _ := get(t, app, refresh)
		assert.Equal(t, fiber.StatusUnauthorized, code)
	})

	t.Run("unknown session", func(t *testing.T) {
		tok, _ := mgr.IssueAccess(pasetotoken.Subject{UserID: "u-1", SessionID: "gone"})
		code, _ := get(t, app, tok)
		assert.Equal(t, fiber.StatusUnauthorized, code)
	})

	t.Run("inactive profile", func(t *testing.T) {
		tok, _ := mgr.IssueAccess(pasetotoken.Subject{UserID: "u-2", SessionID: "s-2"})
		code, _ := get(t, app, tok)
		assert.Equal(t, fiber.StatusForbidden, code)
	})

	t.Run("missing profile resolves minimal customer", func(t *testing.T) {
		tok, _ := mgr.IssueAccess(pasetotoken.Subject{UserID: "u-9", Email: "new@example.com", SessionID: "s-1"})
		code, body := get(t, app, tok)
		assert.Equal(t, fiber.StatusOK, code)
		assert.Equal(t, "u-9|customer|s-1|req-1", body)
	})
}

func TestRequirePermission(t *testing.T) {
	mgr := newManager(t)
	s := &fakeSessions{
		sessions: map[string]bool{"s-1": true},
		profiles: map[string]*model.Profile{
			"adm":  {ID: "adm", Role: model.RoleAdmin, Active: true},
			"cust": {ID: "cust", Role: model.RoleCustomer, Active: true},
		},
	}
	auth := roleAuth{allowed: map[authorize.Role]bool{authorize.RoleAdmin: true}}
	app := newApp(mgr, s, RequirePermission(auth, authorize.ResourceTicketStats, authorize.ActionRead))

	adm, _ := mgr.IssueAccess(pasetotoken.Subject{UserID: "adm", SessionID: "s-1"})
	code, _ := get(t, app, adm)
	assert.Equal(t, fiber.StatusOK, code)

	cust, _ := mgr.IssueAccess(pasetotoken.Subject{UserID: "cust", SessionID: "s-1"})
	code, _ = get(t, app, cust)
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestRequirePermission_WithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/x", RequirePermission(roleAuth{}, authorize.ResourceTicket, authorize.ActionRead), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	res, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}
