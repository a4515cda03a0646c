package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/repo/memory"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
)

var admin = model.Actor{ID: "adm", Email: "ops@dnadestek.com", Role: model.RoleAdmin}

func TestStrip(t *testing.T) {
	in := map[string]any{
		"Password": "hunter2",
		"note":     "ok",
		"nested": map[string]any{
			"TOKEN": "abc",
			"keep":  1,
			"deeper": []any{
				map[string]any{"password": "x", "id": "t1"},
			},
		},
	}
	got := Strip(in)

	assert.Equal(t, map[string]any{
		"note": "ok",
		"nested": map[string]any{
			"keep": 1,
			"deeper": []any{
				map[string]any{"id": "t1"},
			},
		},
	}, got)
	assert.Contains(t, in, "Password", "input must not be mutated")
	assert.Nil(t, Strip(nil))
}

func TestLog_StampsServerTimeAndStrips(t *testing.T) {
	db := memory.New()
	svc := New(db, dispatch.Inline{}).(*auditService)
	fixed := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	svc.Log(context.Background(), Entry{
		Action:    model.AuditUserLogin,
		Actor:     admin,
		Details:   map[string]any{"token": "secret", "ip": "10.0.0.1"},
		Timestamp: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	entries, err := db.Audit.List(context.Background(), repo.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].CreatedAt.Equal(fixed))
	assert.Equal(t, map[string]any{"ip": "10.0.0.1"}, entries[0].Details)
	assert.Equal(t, "ops@dnadestek.com", entries[0].ActorEmail)
}

type failingAudit struct {
	repo.AuditRepository
}

func (failingAudit) Append(context.Context, *model.AuditEntry) error {
	return errors.New("database unavailable")
}

func TestLog_FailureIsSwallowed(t *testing.T) {
	db := memory.New()
	db.Audit = failingAudit{db.Audit}
	svc := New(db, dispatch.Inline{})

	assert.NotPanics(t, func() {
		svc.Log(context.Background(), Entry{Action: model.AuditTicketCreated, Actor: admin})
	})
}

func TestLog_UnknownActionDropped(t *testing.T) {
	db := memory.New()
	svc := New(db, dispatch.Inline{})
	svc.Log(context.Background(), Entry{Action: "made_up"})

	entries, err := db.Audit.List(context.Background(), repo.AuditQuery{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestList(t *testing.T) {
	db := memory.New()
	svc := New(db, dispatch.Inline{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Log(ctx, Entry{Action: model.AuditUserLogin, Actor: admin})
	}
	svc.Log(ctx, Entry{Action: model.AuditTeamCreated, Actor: admin})

	_, err := svc.List(ctx, model.Actor{ID: "c", Role: model.RoleCustomer}, ListRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.List(ctx, admin, ListRequest{Action: "nope"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	page, err := svc.List(ctx, admin, ListRequest{Action: "user_login", PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	next, err := svc.List(ctx, admin, ListRequest{Action: "user_login", PageSize: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.False(t, next.HasMore)

	board := model.Actor{ID: "b", Role: model.RoleAdminBoard}
	_, err = svc.List(ctx, board, ListRequest{})
	assert.NoError(t, err)
}
