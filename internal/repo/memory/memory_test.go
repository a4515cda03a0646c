package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
)

func seedTickets(t *testing.T, c *repo.Client, store *Store) []*model.Ticket {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	specs := []struct {
		creator string
		status  model.Status
		team    string
		tech    string
	}{
		{"c1", model.StatusNew, "", ""},
		{"c1", model.StatusAssigned, "team-a", ""},
		{"c2", model.StatusInProgress, "team-b", "tech-1"},
		{"c2", model.StatusResolved, "", "tech-1"},
		{"c3", model.StatusNew, "", ""},
	}
	var out []*model.Ticket
	for i, s := range specs {
		at := base.Add(time.Duration(i) * time.Minute)
		store.SetClock(func() time.Time { return at })
		tk := &model.Ticket{
			Title:                "t",
			Status:               s.status,
			Priority:             model.PriorityNormal,
			CreatorID:            s.creator,
			AssignedTeamID:       s.team,
			AssignedTechnicianID: s.tech,
		}
		require.NoError(t, c.Tickets.Create(context.Background(), tk))
		out = append(out, tk)
	}
	return out
}

func TestTickets_QueryOrderAndFilters(t *testing.T) {
	store := NewStore()
	c := store.Client()
	ctx := context.Background()
	seeded := seedTickets(t, c, store)

	all, err := c.Tickets.Query(ctx, repo.TicketQuery{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, seeded[4].ID, all[0].ID, "newest first")

	mine, err := c.Tickets.Query(ctx, repo.TicketQuery{CreatorID: "c1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	unassigned, err := c.Tickets.Query(ctx, repo.TicketQuery{Unassigned: true})
	require.NoError(t, err)
	assert.Len(t, unassigned, 2)

	assigned, err := c.Tickets.Query(ctx, repo.TicketQuery{
		AssignedTo: &repo.Assignee{TechnicianID: "tech-1", TeamIDs: []string{"team-a"}},
	})
	require.NoError(t, err)
	assert.Len(t, assigned, 3)

	history, err := c.Tickets.Query(ctx, repo.TicketQuery{Statuses: model.HistoryStatuses})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, seeded[3].ID, history[0].ID)
}

func TestTickets_QueryKeyset(t *testing.T) {
	store := NewStore()
	c := store.Client()
	ctx := context.Background()
	seedTickets(t, c, store)

	page1, err := c.Tickets.Query(ctx, repo.TicketQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)

	last := page1[len(page1)-1]
	page2, err := c.Tickets.Query(ctx, repo.TicketQuery{
		Limit: 2,
		After: &repo.Cursor{CreatedAt: last.CreatedAt, ID: last.ID},
	})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.True(t, last.Before(page2[0]))
	for _, a := range page1 {
		for _, b := range page2 {
			assert.NotEqual(t, a.ID, b.ID)
		}
	}
}

func TestTickets_StoredCopiesAreIsolated(t *testing.T) {
	c := New()
	ctx := context.Background()

	tk := &model.Ticket{Title: "a", Status: model.StatusNew, Photos: []string{"p1"}}
	require.NoError(t, c.Tickets.Create(ctx, tk))
	tk.Photos[0] = "mutated"

	got, err := c.Tickets.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, got.Photos)

	got.Title = "changed"
	again, _ := c.Tickets.Get(ctx, tk.ID)
	assert.Equal(t, "a", again.Title)
}

func TestTickets_CountByTeamAndStats(t *testing.T) {
	store := NewStore()
	c := store.Client()
	ctx := context.Background()
	seeded := seedTickets(t, c, store)

	n, err := c.Tickets.CountByTeam(ctx, "team-b", model.ActiveStatuses)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rated := seeded[3]
	rated.Rating = &model.Rating{Stars: 4}
	require.NoError(t, c.Tickets.Update(ctx, rated))

	stats, err := c.Tickets.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.Total)
	assert.EqualValues(t, 2, stats.ByStatus[model.StatusNew])
	assert.EqualValues(t, 1, stats.RatedCount)
	assert.InDelta(t, 4.0, stats.AverageRating, 0.001)
}

func TestUsers_EmailUniqueAndPushToken(t *testing.T) {
	c := New()
	ctx := context.Background()

	p := &model.Profile{ID: "u1", Email: "Ali@Example.com", Role: model.RoleCustomer, Active: true, PushToken: "ExponentPushToken[x]"}
	require.NoError(t, c.Users.Create(ctx, p))

	err := c.Users.Create(ctx, &model.Profile{ID: "u2", Email: "ali@example.com"})
	assert.ErrorIs(t, err, repo.ErrConflict)

	got, err := c.Users.GetByEmail(ctx, " ALI@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[x]", got.PushToken)

	withToken, err := c.Users.List(ctx, repo.UserFilter{HasPushToken: true})
	require.NoError(t, err)
	assert.Len(t, withToken, 1)

	_, err = c.Users.Get(ctx, "missing")
	assert.True(t, repo.IsNotFound(err))
}

func TestTeams_ListByMember(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Teams.Create(ctx, &model.Team{Name: "Elektrik", MemberIDs: []string{"t1", "t2"}}))
	require.NoError(t, c.Teams.Create(ctx, &model.Team{Name: "Su", MemberIDs: []string{"t2"}}))

	got, err := c.Teams.ListByMember(ctx, "t2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Elektrik", got[0].Name)

	got, err = c.Teams.ListByMember(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAudit_ListFilters(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Audit.Append(ctx, &model.AuditEntry{Action: model.AuditUserLogin, ActorID: "a"}))
	require.NoError(t, c.Audit.Append(ctx, &model.AuditEntry{Action: model.AuditTicketCreated, ActorID: "a", TargetID: "t"}))
	require.NoError(t, c.Audit.Append(ctx, &model.AuditEntry{Action: model.AuditUserLogin, ActorID: "b"}))

	logins, err := c.Audit.List(ctx, repo.AuditQuery{Action: model.AuditUserLogin})
	require.NoError(t, err)
	assert.Len(t, logins, 2)

	byTarget, err := c.Audit.List(ctx, repo.AuditQuery{TargetID: "t"})
	require.NoError(t, err)
	assert.Len(t, byTarget, 1)
}
