package ticket

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"sync"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/destek_backend/internal/events"
	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/repo/memory"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	"github.com/Alijeyrad/destek_backend/internal/service/notification"
	"github.com/Alijeyrad/destek_backend/internal/service/team"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
	"github.com/Alijeyrad/destek_backend/pkg/email"
	"github.com/Alijeyrad/destek_backend/pkg/push"
)

// ---------------------------------------------------------------------------
// fixture
// ---------------------------------------------------------------------------

type pushLog struct {
	mu   sync.Mutex
	msgs []push.Message
}

func (p *pushLog) Enabled() bool { return true }

func (p *pushLog) Send(_ context.Context, m push.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, m)
	return nil
}

func (p *pushLog) to(token string) []push.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []push.Message
	for _, m := range p.msgs {
		if m.To == token {
			out = append(out, m)
		}
	}
	return out
}

type mailLog struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *mailLog) Enabled() bool { return true }

func (m *mailLog) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

var (
	admin    = model.Actor{ID: "adm", Email: "ops@dnadestek.com", Name: "Operasyon", Role: model.RoleAdmin}
	board    = model.Actor{ID: "brd", Name: "Kurul", Role: model.RoleAdminBoard}
	cust1    = model.Actor{ID: "c1", Email: "c1@example.com", Name: "Ayşe Yılmaz", Role: model.RoleCustomer}
	cust2    = model.Actor{ID: "c2", Email: "c2@example.com", Name: "Can Demir", Role: model.RoleCustomer}
	tech1    = model.Actor{ID: "t1", Name: "Usta Bir", Role: model.RoleTechnician}
	tech2    = model.Actor{ID: "t2", Name: "Usta İki", Role: model.RoleTechnician}
	baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	db     *repo.Client
	bus    *events.MemoryBus
	pushes *pushLog
	mails  *mailLog
	teams  team.Service
	svc    Service
	teamA  *model.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memory.New()

	for _, p := range []*model.Profile{
		{ID: "adm", Email: "ops@dnadestek.com", FirstName: "Operasyon", Role: model.RoleAdmin, Active: true, PushToken: "ExponentPushToken[adm]"},
		{ID: "brd", Email: "brd@dnadestek.com", Role: model.RoleAdminBoard, Active: true, PushToken: "ExponentPushToken[brd]"},
		{ID: "c1", Email: "c1@example.com", FirstName: "Ayşe", Phone: "+905321234567", Role: model.RoleCustomer, Active: true, PushToken: "ExponentPushToken[c1]"},
		{ID: "c2", Email: "c2@example.com", Role: model.RoleCustomer, Active: true},
		{ID: "t1", Email: "t1@example.com", FirstName: "Usta", LastName: "Bir", Role: model.RoleTechnician, Active: true, PushToken: "ExponentPushToken[t1]"},
		{ID: "t2", Email: "t2@example.com", Role: model.RoleTechnician, Active: true},
	} {
		require.NoError(t, db.Users.Create(ctx, p))
	}

	bus := events.NewMemoryBus()
	t.Cleanup(func() { _ = bus.Close() })

	pushes, mails := &pushLog{}, &mailLog{}
	au := audit.New(db, dispatch.Inline{})
	teams := team.New(db, au)
	notify := notification.New(notification.Deps{
		DB: db, Dispatch: dispatch.Inline{}, Push: pushes, Mail: mails, Operators: []string{"ops@dnadestek.com"},
	})

	teamA, err := teams.Create(ctx, admin, team.CreateRequest{Name: "Tesisat", MemberIDs: []string{"t1"}})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.HeadSize = 5
	return &fixture{
		db:     db,
		bus:    bus,
		pushes: pushes,
		mails:  mails,
		teams:  teams,
		teamA:  teamA,
		svc: New(Deps{
			DB: db, Teams: teams, Audit: au, Notify: notify, Bus: bus, Config: cfg,
		}),
	}
}

// put stores a ticket directly, i minutes after baseTime.
func (f *fixture) put(t *testing.T, id, creator string, status model.Status, i int, mods ...func(*model.Ticket)) *model.Ticket {
	t.Helper()
	tk := &model.Ticket{
		ID:        id,
		Title:     "Talep " + id,
		Category:  "tesisat",
		Priority:  model.PriorityNormal,
		Status:    status,
		CreatorID: creator,
		CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
	}
	for _, m := range mods {
		m(tk)
	}
	require.NoError(t, f.db.Tickets.Create(context.Background(), tk))
	return tk
}

func ids(items []*model.Ticket) []string {
	out := make([]string, 0, len(items))
	for _, t := range items {
		out = append(out, t.ID)
	}
	return out
}

func tickets(list ...string) []*model.Ticket {
	out := []*model.Ticket{}
	for _, id := range list {
		out = append(out, &model.Ticket{ID: id})
	}
	return out
}

// teamLocks records row locks and can pretend the team vanished.
type teamLocks struct {
	repo.TeamRepository
	mu    sync.Mutex
	modes []repo.LockMode
	gone  bool
}

func (l *teamLocks) Lock(ctx context.Context, id string, mode repo.LockMode) (*model.Team, error) {
	l.mu.Lock()
	l.modes = append(l.modes, mode)
	gone := l.gone
	l.mu.Unlock()
	if gone {
		return nil, repo.ErrNotFound
	}
	return l.TeamRepository.Lock(ctx, id, mode)
}

func validCreate() CreateRequest {
	return CreateRequest{
		Title:       "Banyo su kaçağı",
		Description: "Lavabonun altından su geliyor",
		Category:    "tesisat",
		Location:    model.Location{Project: "Vadi Evleri", Block: "A", Unit: "12"},
	}
}

// ---------------------------------------------------------------------------
// create
// ---------------------------------------------------------------------------

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.bus.Subscribe(ctx)
	require.NoError(t, err)

	tk, err := f.svc.Create(ctx, cust1, validCreate())
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, tk.Status)
	assert.Equal(t, model.PriorityNormal, tk.Priority)
	assert.Equal(t, "c1", tk.CreatorID)
	assert.Equal(t, "Ayşe Yılmaz", tk.CreatorName)
	assert.Equal(t, "+905321234567", tk.CreatorPhone, "phone falls back to the profile")

	// every admin with a token, not the board member
	adminPush := f.pushes.to("ExponentPushToken[adm]")
	require.Len(t, adminPush, 1)
	assert.Contains(t, adminPush[0].Body, "Banyo su kaçağı")
	assert.Empty(t, f.pushes.to("ExponentPushToken[brd]"))
	assert.Empty(t, f.mails.sent, "normal priority sends no mail")

	select {
	case ev := <-sub:
		assert.Equal(t, events.KindCreated, ev.Kind)
		assert.Equal(t, tk.ID, ev.TicketID)
	case <-time.After(time.Second):
		t.Fatal("no created event")
	}

	entries, err := f.db.Audit.List(ctx, repo.AuditQuery{TargetID: tk.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditTicketCreated, entries[0].Action)
}

func TestCreate_UrgentMailsOperators(t *testing.T) {
	f := newFixture(t)
	req := validCreate()
	req.Priority = "URGENT"
	req.Phone = "0532 765 43 21"

	tk, err := f.svc.Create(context.Background(), cust2, req)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityUrgent, tk.Priority)
	assert.Equal(t, "+905327654321", tk.CreatorPhone)

	require.Len(t, f.mails.sent, 1)
	assert.Equal(t, []string{"ops@dnadestek.com"}, f.mails.sent[0].To)
	assert.Contains(t, f.mails.sent[0].Subject, "Banyo su kaçağı")
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(r *CreateRequest)
		want   error
	}{
		{"no title", func(r *CreateRequest) { r.Title = " " }, ErrTitleRequired},
		{"no description", func(r *CreateRequest) { r.Description = "" }, ErrDescriptionRequired},
		{"no category", func(r *CreateRequest) { r.Category = "" }, ErrCategoryRequired},
		{"no project", func(r *CreateRequest) { r.Location.Project = "" }, ErrLocationRequired},
		{"six photos", func(r *CreateRequest) { r.Photos = make([]string, 6) }, ErrTooManyPhotos},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(&req)
			_, err := f.svc.Create(context.Background(), cust1, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	req := validCreate()
	req.Phone = "dahili 204"
	req.Priority = "whenever"
	tk, err := f.svc.Create(context.Background(), cust1, req)
	require.NoError(t, err)
	assert.Equal(t, "dahili 204", tk.CreatorPhone, "unparsable phone is kept verbatim")
	assert.Equal(t, model.PriorityNormal, tk.Priority)
}

// ---------------------------------------------------------------------------
// queries
// ---------------------------------------------------------------------------

func TestList_CustomerSeesOwnTickets(t *testing.T) {
	f := newFixture(t)
	f.put(t, "a", "c1", model.StatusNew, 1)
	f.put(t, "b", "c2", model.StatusNew, 2)
	f.put(t, "c", "c1", model.StatusClosed, 3)

	page, err := f.svc.List(context.Background(), cust1, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(page.Items))
	assert.False(t, page.HasMore)

	page, err = f.svc.List(context.Background(), cust1, ListRequest{Tab: TabActive})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(page.Items))
}

func TestList_AdminFilterPrecedence(t *testing.T) {
	f := newFixture(t)
	f.put(t, "new-normal", "c1", model.StatusNew, 1)
	f.put(t, "new-urgent", "c1", model.StatusNew, 2, func(tk *model.Ticket) { tk.Priority = model.PriorityUrgent })
	f.put(t, "prog-urgent", "c2", model.StatusInProgress, 3, func(tk *model.Ticket) {
		tk.Priority = model.PriorityUrgent
		tk.AssignedTeamID = f.teamA.ID
	})
	f.put(t, "closed", "c2", model.StatusClosed, 4, func(tk *model.Ticket) { tk.AssignedTechnicianID = "t1" })

	tests := []struct {
		name string
		req  ListRequest
		want []string
	}{
		{"no filter", ListRequest{}, []string{"closed", "prog-urgent", "new-urgent", "new-normal"}},
		{"status only", ListRequest{Status: "in_progress"}, []string{"prog-urgent"}},
		{"status beats urgent", ListRequest{Status: "new", Urgent: true}, []string{"new-urgent", "new-normal"}},
		{"urgent beats unassigned", ListRequest{Urgent: true, Unassigned: true}, []string{"prog-urgent", "new-urgent"}},
		{"unassigned", ListRequest{Unassigned: true}, []string{"new-urgent", "new-normal"}},
		{"history tab", ListRequest{Tab: TabHistory}, []string{"closed"}},
		{"status outside tab", ListRequest{Tab: TabHistory, Status: "new"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.List(context.Background(), board, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
		})
	}

	_, err := f.svc.List(context.Background(), admin, ListRequest{Status: "open"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.svc.List(context.Background(), admin, ListRequest{Tab: "archive"})
	assert.ErrorIs(t, err, ErrInvalidTab)
}

func TestListForTechnician_MergesAssignedAndNew(t *testing.T) {
	f := newFixture(t)
	f.put(t, "new-1", "c1", model.StatusNew, 1)
	f.put(t, "mine-direct", "c1", model.StatusInProgress, 2, func(tk *model.Ticket) { tk.AssignedTechnicianID = "t1" })
	f.put(t, "mine-team", "c2", model.StatusAssigned, 3, func(tk *model.Ticket) { tk.AssignedTeamID = f.teamA.ID })
	f.put(t, "other", "c2", model.StatusInProgress, 4, func(tk *model.Ticket) { tk.AssignedTechnicianID = "t2" })
	// new and already mine: must appear once
	f.put(t, "new-mine", "c2", model.StatusNew, 5, func(tk *model.Ticket) { tk.AssignedTechnicianID = "t1" })
	f.put(t, "done-mine", "c2", model.StatusResolved, 6, func(tk *model.Ticket) { tk.AssignedTechnicianID = "t1" })

	page, err := f.svc.List(context.Background(), tech1, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"done-mine", "new-mine", "mine-team", "mine-direct", "new-1"}, ids(page.Items))

	page, err = f.svc.ListForTechnician(context.Background(), tech1, ListRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"done-mine", "new-mine"}, ids(page.Items))
	assert.True(t, page.HasMore)

	page, err = f.svc.ListForTechnician(context.Background(), tech1, ListRequest{PageSize: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"mine-team", "mine-direct"}, ids(page.Items))

	page, err = f.svc.ListForTechnician(context.Background(), tech1, ListRequest{Tab: TabHistory})
	require.NoError(t, err)
	assert.Equal(t, []string{"done-mine"}, ids(page.Items))

	// no team, nothing assigned: only new tickets
	page, err = f.svc.List(context.Background(), tech2, ListRequest{Tab: TabActive})
	require.NoError(t, err)
	assert.Equal(t, []string{"new-mine", "other", "new-1"}, ids(page.Items))
}

func TestListForTechnician_PagesThroughUnion(t *testing.T) {
	statuses := slices.Concat(model.ActiveStatuses, model.HistoryStatuses)

	union := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		f := newFixture(t)

		var want []*model.Ticket
		n := r.Intn(30)
		for i := 0; i < n; i++ {
			st := statuses[r.Intn(len(statuses))]
			var techID, teamID string
			switch r.Intn(4) {
			case 0:
				techID = "t1"
			case 1:
				techID = "t2"
			case 2:
				teamID = f.teamA.ID
			}
			// few distinct minutes so timestamps collide
			tk := f.put(t, fmt.Sprintf("tk-%02d", i), "c1", st, r.Intn(8), func(tk *model.Ticket) {
				tk.AssignedTechnicianID, tk.AssignedTeamID = techID, teamID
			})
			if st == model.StatusNew || techID == "t1" || teamID == f.teamA.ID {
				want = append(want, tk)
			}
		}
		sort.Slice(want, func(i, j int) bool { return want[i].Before(want[j]) })

		size := 1 + r.Intn(7)
		var got []string
		cursor := ""
		for pages := 0; pages <= n+1; pages++ {
			page, err := f.svc.ListForTechnician(context.Background(), tech1, ListRequest{PageSize: size, Cursor: cursor})
			if err != nil {
				return false
			}
			got = append(got, ids(page.Items)...)
			if !page.HasMore {
				break
			}
			cursor = page.NextCursor
		}
		return slices.Equal(got, ids(want))
	}
	require.NoError(t, quick.Check(union, &quick.Config{MaxCount: 50}))
}

func TestList_KeysetPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 45; i++ {
		// pairs share a timestamp so the id tiebreak is exercised
		f.put(t, fmt.Sprintf("tk-%02d", i), "c1", model.StatusNew, i/2)
	}

	seen := map[string]bool{}
	var sizes []int
	var more []bool
	cursor := ""
	for {
		page, err := f.svc.List(context.Background(), admin, ListRequest{Cursor: cursor})
		require.NoError(t, err)
		sizes = append(sizes, len(page.Items))
		more = append(more, page.HasMore)
		for _, tk := range page.Items {
			assert.False(t, seen[tk.ID], "duplicate %s", tk.ID)
			seen[tk.ID] = true
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []int{20, 20, 5}, sizes)
	assert.Equal(t, []bool{true, true, false}, more)
	assert.Len(t, seen, 45)

	_, err := f.svc.List(context.Background(), admin, ListRequest{Cursor: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidCursor)

	page, err := f.svc.List(context.Background(), admin, ListRequest{PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, page.Items, 45, "page size is capped at 100")
}

func TestMergeHeadTail(t *testing.T) {
	tests := []struct {
		name       string
		head, tail []string
		want       []string
	}{
		{"disjoint", []string{"e", "d"}, []string{"c", "b"}, []string{"e", "d", "c", "b"}},
		{"overlap", []string{"f", "e", "d"}, []string{"d", "c", "e", "b"}, []string{"f", "e", "d", "c", "b"}},
		{"empty tail", []string{"a"}, nil, []string{"a"}},
		{"empty head", nil, []string{"b", "a"}, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(MergeHeadTail(tickets(tt.head...), tickets(tt.tail...))))
		})
	}
}

// distinctIDs maps bytes onto a small id space so head and tail overlap often.
func distinctIDs(raw []uint8) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, b := range raw {
		id := fmt.Sprintf("tk-%02d", b%24)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func TestMergeHeadTail_HeadThenUnseenTail(t *testing.T) {
	merged := func(headRaw, tailRaw []uint8) bool {
		head, tail := distinctIDs(headRaw), distinctIDs(tailRaw)
		got := ids(MergeHeadTail(tickets(head...), tickets(tail...)))

		if !slices.Equal(got[:len(head)], head) {
			return false
		}
		var rest []string
		for _, id := range tail {
			if !slices.Contains(head, id) {
				rest = append(rest, id)
			}
		}
		return slices.Equal(got[len(head):], rest)
	}
	require.NoError(t, quick.Check(merged, nil))
}

func TestGet_AccessRules(t *testing.T) {
	f := newFixture(t)
	f.put(t, "new", "c1", model.StatusNew, 1)
	f.put(t, "team", "c1", model.StatusAssigned, 2, func(tk *model.Ticket) { tk.AssignedTeamID = f.teamA.ID })
	f.put(t, "t2s", "c2", model.StatusInProgress, 3, func(tk *model.Ticket) { tk.AssignedTechnicianID = "t2" })

	tests := []struct {
		caller model.Actor
		id     string
		ok     bool
	}{
		{cust1, "new", true},
		{cust2, "new", false},
		{tech1, "new", true},
		{tech1, "team", true},
		{tech1, "t2s", false},
		{tech2, "t2s", true},
		{board, "t2s", true},
	}
	for _, tt := range tests {
		t.Run(tt.caller.ID+"/"+tt.id, func(t *testing.T) {
			_, err := f.svc.Get(context.Background(), tt.caller, tt.id)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}

	_, err := f.svc.Get(context.Background(), admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ---------------------------------------------------------------------------
// workflow
// ---------------------------------------------------------------------------

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tk, err := f.svc.Create(ctx, cust1, validCreate())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, tech1, tk.ID, UpdateStatusRequest{Status: "in_progress"})
	assert.ErrorIs(t, err, ErrForbidden, "not assigned to the technician yet")

	_, err = f.svc.UpdateStatus(ctx, admin, tk.ID, UpdateStatusRequest{Status: "assigned"})
	assert.ErrorIs(t, err, ErrTeamRequired)

	tk, err = f.svc.AssignToTeam(ctx, admin, tk.ID, f.teamA.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, tk.Status)
	assert.Equal(t, "Tesisat", tk.AssignedTeamName)
	require.NotNil(t, tk.AssignedAt)
	assert.NotEmpty(t, f.pushes.to("ExponentPushToken[t1]"), "team members are told")

	creatorPushes := len(f.pushes.to("ExponentPushToken[c1]"))
	assert.Equal(t, 1, creatorPushes)
	assert.Contains(t, f.pushes.to("ExponentPushToken[c1]")[0].Body, "Tesisat")

	tk, err = f.svc.UpdateStatus(ctx, tech1, tk.ID, UpdateStatusRequest{Status: "in_progress"})
	require.NoError(t, err)
	tk, err = f.svc.UpdateStatus(ctx, tech1, tk.ID, UpdateStatusRequest{Status: "on_hold"})
	require.NoError(t, err)
	tk, err = f.svc.UpdateStatus(ctx, tech1, tk.ID, UpdateStatusRequest{Status: "in_progress"})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, tech1, tk.ID, UpdateStatusRequest{Status: "closed"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	tk, err = f.svc.UpdateStatus(ctx, tech1, tk.ID, UpdateStatusRequest{
		Status: "resolved", ResolutionNote: "Conta değişti", ResolutionPhotos: []string{"tickets/t1/after.jpg"},
	})
	require.NoError(t, err)
	require.NotNil(t, tk.ResolvedAt)
	assert.Equal(t, "Conta değişti", tk.ResolutionNote)
	assert.Equal(t, []string{"tickets/t1/after.jpg"}, tk.ResolutionPhotos)

	tk, err = f.svc.UpdateStatus(ctx, admin, tk.ID, UpdateStatusRequest{Status: "closed"})
	require.NoError(t, err)
	require.NotNil(t, tk.ClosedAt)

	// one push per status change the customer did not make, plus the assignment
	assert.Len(t, f.pushes.to("ExponentPushToken[c1]"), creatorPushes+5)

	entries, err := f.db.Audit.List(ctx, repo.AuditQuery{TargetID: tk.ID, Action: model.AuditTicketStatusChanged})
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestUpdateStatus_CustomerCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "mine", "c1", model.StatusNew, 1)
	f.put(t, "assigned", "c1", model.StatusNew, 2, func(tk *model.Ticket) { tk.AssignedTechnicianID = "t1" })

	tk, err := f.svc.UpdateStatus(ctx, cust1, "mine", UpdateStatusRequest{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, tk.Status)
	require.NotNil(t, tk.CancelledAt)
	assert.Empty(t, f.pushes.to("ExponentPushToken[c1]"), "no push for the customer's own change")

	_, err = f.svc.UpdateStatus(ctx, cust1, "assigned", UpdateStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, cust2, "assigned", UpdateStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, admin, "assigned", UpdateStatusRequest{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_AdminOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "done", "c1", model.StatusClosed, 1, func(tk *model.Ticket) { tk.AssignedTeamID = f.teamA.ID })

	tk, err := f.svc.UpdateStatus(ctx, board, "done", UpdateStatusRequest{Status: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, tk.Status)

	_, err = f.svc.UpdateStatus(ctx, admin, "done", UpdateStatusRequest{Status: "in_progress"})
	assert.ErrorIs(t, err, ErrInvalidTransition, "same status is never a transition")

	f.put(t, "fresh", "c1", model.StatusNew, 2)
	tk, err = f.svc.UpdateStatus(ctx, admin, "fresh", UpdateStatusRequest{Status: "assigned", TeamID: f.teamA.ID})
	require.NoError(t, err)
	assert.Equal(t, f.teamA.ID, tk.AssignedTeamID)
	assert.Equal(t, "Tesisat", tk.AssignedTeamName)
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "x", "c1", model.StatusNew, 1)

	_, err := f.svc.AssignToTeam(ctx, admin, "x", "no-such-team", "")
	assert.ErrorIs(t, err, ErrTeamNotFound)
	_, err = f.svc.AssignToTeam(ctx, tech1, "x", f.teamA.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	tk, err := f.svc.AssignToTeam(ctx, admin, "x", f.teamA.ID, "Tesisat (Gece)")
	require.NoError(t, err)
	assert.Equal(t, "Tesisat (Gece)", tk.AssignedTeamName)
	got := f.pushes.to("ExponentPushToken[c1]")
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Body, "Tesisat (Gece) ekibine atandı")

	_, err = f.svc.AssignTechnician(ctx, admin, "x", "c2")
	assert.ErrorIs(t, err, ErrNotTechnician)
	_, err = f.svc.AssignTechnician(ctx, admin, "x", "ghost")
	assert.ErrorIs(t, err, ErrTechnicianNotFound)

	tk, err = f.svc.AssignTechnician(ctx, admin, "x", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tk.AssignedTechnicianID)
	assert.Equal(t, "Usta Bir", tk.AssignedTechnicianName)
}

func TestUpdateStatus_AssignedAnnouncesTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "x", "c1", model.StatusNew, 1)

	tk, err := f.svc.UpdateStatus(ctx, admin, "x", UpdateStatusRequest{Status: "assigned", TeamID: f.teamA.ID})
	require.NoError(t, err)
	assert.Equal(t, "Tesisat", tk.AssignedTeamName)

	got := f.pushes.to("ExponentPushToken[c1]")
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Body, "Tesisat ekibine atandı")
	assert.Len(t, f.pushes.to("ExponentPushToken[t1]"), 1, "team members are told")

	assigned, err := f.db.Audit.List(ctx, repo.AuditQuery{TargetID: "x", Action: model.AuditTicketAssigned})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
	changed, err := f.db.Audit.List(ctx, repo.AuditQuery{TargetID: "x", Action: model.AuditTicketStatusChanged})
	require.NoError(t, err)
	assert.Empty(t, changed)

	// back to the current team: the copied name is kept
	f.put(t, "y", "c2", model.StatusClosed, 2, func(tk *model.Ticket) {
		tk.AssignedTeamID, tk.AssignedTeamName = f.teamA.ID, "Tesisat (eski)"
	})
	tk, err = f.svc.UpdateStatus(ctx, admin, "y", UpdateStatusRequest{Status: "assigned"})
	require.NoError(t, err)
	assert.Equal(t, "Tesisat (eski)", tk.AssignedTeamName)
}

func TestAssign_HoldsTeamLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	locks := &teamLocks{TeamRepository: f.db.Teams}
	f.db.Teams = locks
	f.put(t, "x", "c1", model.StatusNew, 1)
	f.put(t, "y", "c1", model.StatusNew, 2)

	_, err := f.svc.AssignToTeam(ctx, admin, "x", f.teamA.ID, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, admin, "y", UpdateStatusRequest{Status: "assigned", TeamID: f.teamA.ID})
	require.NoError(t, err)
	assert.Equal(t, []repo.LockMode{repo.LockShare, repo.LockShare}, locks.modes)

	// the team is deleted between the lookup and the save
	f.put(t, "z", "c1", model.StatusNew, 3)
	locks.gone = true
	_, err = f.svc.AssignToTeam(ctx, admin, "z", f.teamA.ID, "")
	assert.ErrorIs(t, err, ErrTeamNotFound)
	stored, err := f.db.Tickets.Get(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, stored.Status)
	assert.Empty(t, stored.AssignedTeamID)
}

func TestReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "x", "c1", model.StatusInProgress, 1, func(tk *model.Ticket) { tk.AssignedTechnicianID = "t1" })

	tk, err := f.svc.Reply(ctx, tech1, "x", "  Yarın 10:00'da geliyorum ")
	require.NoError(t, err)
	require.Len(t, tk.Replies, 1)
	assert.Equal(t, "Yarın 10:00'da geliyorum", tk.Replies[0].Text)
	assert.Equal(t, model.RoleTechnician, tk.Replies[0].Role)
	assert.Len(t, f.pushes.to("ExponentPushToken[c1]"), 1)

	tk, err = f.svc.Reply(ctx, cust1, "x", "Tamam")
	require.NoError(t, err)
	assert.Len(t, tk.Replies, 2)
	assert.Len(t, f.pushes.to("ExponentPushToken[t1]"), 1)

	_, err = f.svc.Reply(ctx, cust1, "x", "   ")
	assert.ErrorIs(t, err, ErrReplyEmpty)
	_, err = f.svc.Reply(ctx, cust2, "x", "merhaba")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "open", "c1", model.StatusInProgress, 1)
	f.put(t, "done", "c1", model.StatusResolved, 2)

	_, err := f.svc.Rate(ctx, cust1, "open", 5, "")
	assert.ErrorIs(t, err, ErrNotRateable)
	_, err = f.svc.Rate(ctx, cust2, "done", 5, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Rate(ctx, cust1, "done", 6, "")
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = f.svc.Rate(ctx, cust1, "done", 0, "")
	assert.ErrorIs(t, err, ErrInvalidRating)

	tk, err := f.svc.Rate(ctx, cust1, "done", 4, " Hızlıydı ")
	require.NoError(t, err)
	assert.Equal(t, 4, tk.Rating.Stars)
	assert.Equal(t, "Hızlıydı", tk.Rating.Comment)

	_, err = f.svc.Rate(ctx, cust1, "done", 5, "")
	assert.ErrorIs(t, err, ErrAlreadyRated)

	st, err := f.svc.Stats(ctx, board)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Total)
	assert.EqualValues(t, 1, st.RatedCount)
	assert.InDelta(t, 4.0, st.AverageRating, 0.001)

	_, err = f.svc.Stats(ctx, cust1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "x", "c1", model.StatusNew, 1)

	assert.ErrorIs(t, f.svc.Delete(ctx, board, "x"), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, admin, "x"))
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, "x"), ErrNotFound)

	entries, err := f.db.Audit.List(ctx, repo.AuditQuery{Action: model.AuditTicketDeleted})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// ---------------------------------------------------------------------------
// live feed
// ---------------------------------------------------------------------------

func recv(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "channel closed")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
	}
	return Snapshot{}
}

func TestWatch_ReemitsOnChange(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i := 0; i < 7; i++ {
		f.put(t, fmt.Sprintf("old-%d", i), "c1", model.StatusNew, i)
	}

	ch, err := f.svc.Watch(ctx, admin, ListRequest{Tab: TabActive, Cursor: "ignored", PageSize: 50})
	require.NoError(t, err)

	first := recv(t, ch)
	assert.Equal(t, []string{"old-6", "old-5", "old-4", "old-3", "old-2"}, ids(first.Items), "head window only")

	created, err := f.svc.Create(context.Background(), cust1, validCreate())
	require.NoError(t, err)

	next := recv(t, ch)
	require.NotEmpty(t, next.Items)
	assert.Equal(t, created.ID, next.Items[0].ID)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "channel closes after cancel")
}

func TestWatch_HistoryIsOneShot(t *testing.T) {
	f := newFixture(t)
	f.put(t, "done", "c1", model.StatusClosed, 1)

	ch, err := f.svc.Watch(context.Background(), cust1, ListRequest{Tab: TabHistory})
	require.NoError(t, err)

	first := recv(t, ch)
	assert.Equal(t, []string{"done"}, ids(first.Items))

	_, ok := <-ch
	assert.False(t, ok, "history subscription is torn down after the first snapshot")
}
