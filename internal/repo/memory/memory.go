// Package memory implements the repo contracts in process. It backs the
// service tests.
package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
)

// Store holds every table behind one lock.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	accounts map[string]*model.Account
	users    map[string]*model.Profile
	tickets  map[string]*model.Ticket
	teams    map[string]*model.Team
	projects map[string]*model.Project
	audit    []*model.AuditEntry
}

func NewStore() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		accounts: map[string]*model.Account{},
		users:    map[string]*model.Profile{},
		tickets:  map[string]*model.Ticket{},
		teams:    map[string]*model.Team{},
		projects: map[string]*model.Project{},
	}
}

// SetClock overrides the timestamp source used for created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Client returns a repo.Client over the store. InTx runs without isolation.
func (s *Store) Client() *repo.Client {
	return repo.NewClient(
		&accounts{s}, &users{s}, &tickets{s}, &teams{s}, &projects{s}, &audit{s}, nil,
	)
}

// New is a shortcut for NewStore().Client().
func New() *repo.Client {
	return NewStore().Client()
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// clone deep-copies through JSON. Fields tagged json:"-" are copied by the
// caller where they matter.
func clone[T any](v *T) *T {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

func cloneProfile(p *model.Profile) *model.Profile {
	out := clone(p)
	out.PushToken = p.PushToken
	return out
}

func cloneAccount(a *model.Account) *model.Account {
	out := *a
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		out.LastLoginAt = &t
	}
	return &out
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// ---- accounts ----

type accounts struct{ s *Store }

func (r *accounts) Create(_ context.Context, a *model.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a.Email = normEmail(a.Email)
	for _, x := range r.s.accounts {
		if x.Email == a.Email {
			return repo.ErrConflict
		}
	}
	if a.ID == "" {
		a.ID = newID()
	}
	if _, ok := r.s.accounts[a.ID]; ok {
		return repo.ErrConflict
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.s.now()
	}
	r.s.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *accounts) Get(_ context.Context, id string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *accounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = normEmail(email)
	for _, a := range r.s.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *accounts) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return repo.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (r *accounts) TouchLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return repo.ErrNotFound
	}
	a.LastLoginAt = &at
	return nil
}

func (r *accounts) Delete(_ context.Context, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.accounts, id)
	}
	return nil
}

// ---- users ----

type users struct{ s *Store }

func (r *users) Get(_ context.Context, id string) (*model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = normEmail(email)
	for _, p := range r.s.users {
		if p.Email == email {
			return cloneProfile(p), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *users) Create(_ context.Context, p *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.Email = normEmail(p.Email)
	if p.ID == "" {
		p.ID = newID()
	}
	if _, ok := r.s.users[p.ID]; ok {
		return repo.ErrConflict
	}
	for _, x := range r.s.users {
		if x.Email == p.Email {
			return repo.ErrConflict
		}
	}
	now := r.s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.s.users[p.ID] = cloneProfile(p)
	return nil
}

func (r *users) Upsert(_ context.Context, p *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.Email = normEmail(p.Email)
	now := r.s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.s.users[p.ID] = cloneProfile(p)
	return nil
}

func (r *users) Update(_ context.Context, p *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.users[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Email = normEmail(p.Email)
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = r.s.now()
	r.s.users[p.ID] = cloneProfile(p)
	return nil
}

func (r *users) List(_ context.Context, f repo.UserFilter) ([]*model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.Profile{}
	for _, p := range r.s.users {
		if f.Role != nil && p.Role != *f.Role {
			continue
		}
		if f.Active != nil && p.Active != *f.Active {
			continue
		}
		if f.HasPushToken && p.PushToken == "" {
			continue
		}
		if len(f.IDs) > 0 && !slices.Contains(f.IDs, p.ID) {
			continue
		}
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *users) Delete(_ context.Context, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.users, id)
	}
	return nil
}

// ---- tickets ----

type tickets struct{ s *Store }

func (r *tickets) Create(_ context.Context, t *model.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	if _, ok := r.s.tickets[t.ID]; ok {
		return repo.ErrConflict
	}
	now := r.s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Replies == nil {
		t.Replies = []model.Reply{}
	}
	r.s.tickets[t.ID] = clone(t)
	return nil
}

func (r *tickets) Get(_ context.Context, id string) (*model.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(t), nil
}

func (r *tickets) Update(_ context.Context, t *model.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.tickets[t.ID]
	if !ok {
		return repo.ErrNotFound
	}
	t.CreatedAt = old.CreatedAt
	t.CreatorID = old.CreatorID
	t.UpdatedAt = r.s.now()
	r.s.tickets[t.ID] = clone(t)
	return nil
}

func (r *tickets) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.tickets, id)
	return nil
}

func (r *tickets) DeleteByCreators(_ context.Context, creatorIDs []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tickets {
		if slices.Contains(creatorIDs, t.CreatorID) {
			delete(r.s.tickets, id)
			n++
		}
	}
	return n, nil
}

func matchTicket(t *model.Ticket, q repo.TicketQuery) bool {
	if q.CreatorID != "" && t.CreatorID != q.CreatorID {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, t.Status) {
		return false
	}
	if q.Priority != "" && t.Priority != q.Priority {
		return false
	}
	if q.Unassigned && t.IsAssigned() {
		return false
	}
	if q.TeamID != "" && t.AssignedTeamID != q.TeamID {
		return false
	}
	if a := q.AssignedTo; a != nil {
		direct := a.TechnicianID != "" && t.AssignedTechnicianID == a.TechnicianID
		viaTeam := t.AssignedTeamID != "" && slices.Contains(a.TeamIDs, t.AssignedTeamID)
		if !direct && !viaTeam {
			return false
		}
	}
	if q.After != nil && !q.After.Before(t.CreatedAt, t.ID) {
		return false
	}
	return true
}

func (r *tickets) Query(_ context.Context, q repo.TicketQuery) ([]*model.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.Ticket{}
	for _, t := range r.s.tickets {
		if matchTicket(t, q) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *tickets) CountByTeam(_ context.Context, teamID string, statuses []model.Status) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, t := range r.s.tickets {
		if t.AssignedTeamID != teamID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, t.Status) {
			continue
		}
		n++
	}
	return n, nil
}

func (r *tickets) Stats(_ context.Context) (*model.TicketStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &model.TicketStats{
		ByStatus:   map[model.Status]int64{},
		ByPriority: map[model.Priority]int64{},
		ByCategory: map[string]int64{},
	}
	var starSum int64
	for _, t := range r.s.tickets {
		stats.Total++
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		stats.ByCategory[t.Category]++
		if t.Rating != nil {
			stats.RatedCount++
			starSum += int64(t.Rating.Stars)
		}
	}
	if stats.RatedCount > 0 {
		stats.AverageRating = float64(starSum) / float64(stats.RatedCount)
	}
	return stats, nil
}

// ---- teams ----

type teams struct{ s *Store }

func (r *teams) Create(_ context.Context, t *model.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	if _, ok := r.s.teams[t.ID]; ok {
		return repo.ErrConflict
	}
	now := r.s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.MemberIDs == nil {
		t.MemberIDs = []string{}
	}
	r.s.teams[t.ID] = clone(t)
	return nil
}

func (r *teams) Get(_ context.Context, id string) (*model.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(t), nil
}

// Lock is Get: the store serializes writes and has no transactions.
func (r *teams) Lock(ctx context.Context, id string, _ repo.LockMode) (*model.Team, error) {
	return r.Get(ctx, id)
}

func (r *teams) list(keep func(*model.Team) bool) []*model.Team {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Team{}
	for _, t := range r.s.teams {
		if keep(t) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *teams) List(_ context.Context) ([]*model.Team, error) {
	return r.list(func(*model.Team) bool { return true }), nil
}

func (r *teams) ListByMember(_ context.Context, uid string) ([]*model.Team, error) {
	return r.list(func(t *model.Team) bool { return t.HasMember(uid) }), nil
}

func (r *teams) Update(_ context.Context, t *model.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.teams[t.ID]
	if !ok {
		return repo.ErrNotFound
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = r.s.now()
	r.s.teams[t.ID] = clone(t)
	return nil
}

func (r *teams) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.teams, id)
	return nil
}

// ---- projects ----

type projects struct{ s *Store }

func (r *projects) Create(_ context.Context, p *model.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.projects {
		if strings.EqualFold(x.Name, p.Name) {
			return repo.ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = newID()
	}
	now := r.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Blocks == nil {
		p.Blocks = []model.Block{}
	}
	r.s.projects[p.ID] = clone(p)
	return nil
}

func (r *projects) Get(_ context.Context, id string) (*model.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(p), nil
}

func (r *projects) List(_ context.Context) ([]*model.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Project{}
	for _, p := range r.s.projects {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *projects) Update(_ context.Context, p *model.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.projects[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	for id, x := range r.s.projects {
		if id != p.ID && strings.EqualFold(x.Name, p.Name) {
			return repo.ErrConflict
		}
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = r.s.now()
	r.s.projects[p.ID] = clone(p)
	return nil
}

func (r *projects) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.projects, id)
	return nil
}

// ---- audit ----

type audit struct{ s *Store }

func (r *audit) Append(_ context.Context, e *model.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.s.now()
	}
	r.s.audit = append(r.s.audit, clone(e))
	return nil
}

func (r *audit) List(_ context.Context, q repo.AuditQuery) ([]*model.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.AuditEntry{}
	for _, e := range r.s.audit {
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if q.ActorID != "" && e.ActorID != q.ActorID {
			continue
		}
		if q.TargetID != "" && e.TargetID != q.TargetID {
			continue
		}
		if q.After != nil && !q.After.Before(e.CreatedAt, e.ID) {
			continue
		}
		out = append(out, clone(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
