package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/repo/memory"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
	pasetotoken "github.com/Alijeyrad/destek_backend/pkg/paseto"
	"github.com/Alijeyrad/destek_backend/pkg/redis"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type memSessions struct {
	mu sync.Mutex
	m  map[string]redis.SessionData
}

func newMemSessions() *memSessions { return &memSessions{m: map[string]redis.SessionData{}} }

func (s *memSessions) Save(_ context.Context, id string, d redis.SessionData, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = d
	return nil
}

func (s *memSessions) Load(_ context.Context, id string) (*redis.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.m[id]
	if !ok {
		return nil, redis.ErrMiss
	}
	return &d, nil
}

func (s *memSessions) Touch(context.Context, string, time.Duration) error { return nil }

func (s *memSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *memSessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

type memCache struct {
	mu sync.Mutex
	m  map[string]model.Profile
}

func (c *memCache) Get(_ context.Context, key string) (*model.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.m[key]
	if !ok {
		return nil, redis.ErrMiss
	}
	return &p, nil
}

func (c *memCache) Set(_ context.Context, key string, v *model.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = *v
	return nil
}

type brokenUsers struct{ repo.UserRepository }

func (brokenUsers) Get(context.Context, string) (*model.Profile, error) {
	return nil, errors.New("connection refused")
}

type slowUsers struct{ repo.UserRepository }

func (slowUsers) Get(ctx context.Context, _ string) (*model.Profile, error) {
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
	}
	return nil, context.DeadlineExceeded
}

// hangingUpsert never completes a write before its deadline.
type hangingUpsert struct{ repo.UserRepository }

func (hangingUpsert) Upsert(ctx context.Context, _ *model.Profile) error {
	<-ctx.Done()
	return ctx.Err()
}

// ---------------------------------------------------------------------------
// fixture
// ---------------------------------------------------------------------------

type fixture struct {
	db       *repo.Client
	sessions *memSessions
	cache    *memCache
	hasher   *password.Hasher
	tokens   *pasetotoken.Manager
	cfg      Config
	recovery ProfileWriter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keys := pasetotoken.NewLocalKeys()
	tokens, err := pasetotoken.New(pasetotoken.Config{Mode: keys.Mode, Issuer: "destek-api", Audience: "destek-app"}, keys)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ProfileTimeout = time.Second
	cfg.RecoveryWriteTimeout = 50 * time.Millisecond
	cfg.AdminEmails = []string{"Ops@DNAdestek.com"}

	return &fixture{
		db:       memory.New(),
		sessions: newMemSessions(),
		cache:    &memCache{m: map[string]model.Profile{}},
		hasher:   password.NewHasher(password.Config{MemoryKiB: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}),
		tokens:   tokens,
		cfg:      cfg,
	}
}

func (f *fixture) service() *authService {
	return New(Deps{
		DB:       f.db,
		Sessions: f.sessions,
		Cache:    f.cache,
		Recovery: f.recovery,
		Tokens:   f.tokens,
		Hasher:   f.hasher,
		Audit:    audit.New(f.db, dispatch.Inline{}),
		Config:   f.cfg,
	}).(*authService)
}

// seed creates an account, and a profile when p is non-nil.
func (f *fixture) seed(t *testing.T, id, email, pass string, p *model.Profile) {
	t.Helper()
	hash, err := f.hasher.Hash(pass)
	require.NoError(t, err)
	require.NoError(t, f.db.Accounts.Create(context.Background(), &model.Account{ID: id, Email: email, PasswordHash: hash}))
	if p != nil {
		p.ID, p.Email = id, email
		require.NoError(t, f.db.Users.Create(context.Background(), p))
	}
}

func (f *fixture) auditActions(t *testing.T) []model.AuditAction {
	t.Helper()
	entries, err := f.db.Audit.List(context.Background(), repo.AuditQuery{})
	require.NoError(t, err)
	out := make([]model.AuditAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestSignUpThenLogin(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	res, err := svc.SignUp(ctx, SignUpRequest{
		Email: " Ayse@Example.com ", Password: "musluk123", FirstName: "Ayşe", LastName: "Yılmaz", Phone: "0532 123 45 67",
	})
	require.NoError(t, err)
	assert.Equal(t, "ayse@example.com", res.Profile.Email)
	assert.Equal(t, model.RoleCustomer, res.Profile.Role)
	assert.Equal(t, "+905321234567", res.Profile.Phone)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	_, err = svc.SignUp(ctx, SignUpRequest{Email: "ayse@example.com", Password: "musluk123", FirstName: "A"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(ctx, LoginRequest{Email: "AYSE@example.com", Password: "musluk123"})
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, login.Profile.ID)
	require.NoError(t, svc.CheckSession(ctx, login.SessionID))

	assert.ElementsMatch(t, []model.AuditAction{model.AuditUserSignup, model.AuditUserLogin}, f.auditActions(t))
}

func TestSignUp_Validation(t *testing.T) {
	svc := newFixture(t).service()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpRequest{Email: "nope", Password: "musluk123", FirstName: "A"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.SignUp(ctx, SignUpRequest{Email: "a@b.co", Password: "123", FirstName: "A"})
	assert.ErrorIs(t, err, password.ErrTooShort)
	_, err = svc.SignUp(ctx, SignUpRequest{Email: "a@b.co", Password: "musluk123"})
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = svc.SignUp(ctx, SignUpRequest{Email: "a@b.co", Password: "musluk123", FirstName: "A", Phone: "abc"})
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", "tech@example.com", "dogru-sifre", &model.Profile{Role: model.RoleTechnician, Active: true})
	svc := f.service()

	_, err := svc.Login(context.Background(), LoginRequest{Email: "tech@example.com", Password: "yanlis"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Zero(t, f.sessions.len())
}

func TestLogin_InactiveProfileIsSignedOut(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", "eski@example.com", "musluk123", &model.Profile{Role: model.RoleCustomer, Active: false})
	svc := f.service()

	_, err := svc.Login(context.Background(), LoginRequest{Email: "eski@example.com", Password: "musluk123"})
	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.Zero(t, f.sessions.len(), "session must be removed")
	assert.Equal(t, []model.AuditAction{model.AuditLoginBlocked}, f.auditActions(t))
}

func TestResolve_TimeoutYieldsMinimalProfile(t *testing.T) {
	f := newFixture(t)
	f.db.Users = slowUsers{f.db.Users}
	f.cfg.ProfileTimeout = 20 * time.Millisecond
	svc := f.service()

	start := time.Now()
	p, err := svc.Resolve(context.Background(), "u1", "x@example.com")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.True(t, p.Minimal)
	assert.Equal(t, model.RoleCustomer, p.Role)
	assert.True(t, p.Active)
	assert.Equal(t, "x@example.com", p.Email)
}

func TestResolve_CacheFallback(t *testing.T) {
	f := newFixture(t)
	f.cache.m["u1"] = model.Profile{ID: "u1", Email: "t@example.com", Role: model.RoleTechnician, Active: true}
	f.db.Users = brokenUsers{f.db.Users}
	svc := f.service()

	p, err := svc.Resolve(context.Background(), "u1", "t@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTechnician, p.Role)

	_, err = svc.Resolve(context.Background(), "u2", "other@example.com")
	assert.Error(t, err)
}

func TestResolve_RefreshesCache(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", "t@example.com", "musluk123", &model.Profile{Role: model.RoleTechnician, Active: true})
	svc := f.service()

	_, err := svc.Resolve(context.Background(), "u1", "t@example.com")
	require.NoError(t, err)
	cached, err := f.cache.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTechnician, cached.Role)
}

func TestResolve_NoProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.service().Resolve(context.Background(), "u1", "someone@example.com")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestResolve_AdminRecoveryThroughDatabase(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	p, err := svc.Resolve(context.Background(), "adm", "ops@dnadestek.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, p.Role)
	assert.True(t, p.Active)

	stored, err := f.db.Users.Get(context.Background(), "adm")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, stored.Role)
	assert.Equal(t, []model.AuditAction{model.AuditAdminProfileRecovered}, f.auditActions(t))
}

func TestResolve_AdminRecoveryFallsBackToREST(t *testing.T) {
	var (
		mu     sync.Mutex
		calls  int
		path   string
		auth   string
		posted model.Profile
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		path, auth = r.Method+" "+r.URL.Path, r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&posted)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newFixture(t)
	f.db.Users = hangingUpsert{f.db.Users}
	f.recovery = NewRESTWriter(srv.URL+"/users/", "svc-token", time.Second)
	svc := f.service()

	p, err := svc.Resolve(context.Background(), "adm", "ops@dnadestek.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, p.Role)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Equal(t, "PUT /users/adm", path)
	assert.Equal(t, "Bearer svc-token", auth)
	assert.Equal(t, model.RoleAdmin, posted.Role)
}

func TestResolve_AdminRecoveryBothTiersFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newFixture(t)
	f.db.Users = hangingUpsert{f.db.Users}
	f.recovery = NewRESTWriter(srv.URL, "svc-token", time.Second)

	_, err := f.service().Resolve(context.Background(), "adm", "ops@dnadestek.com")
	assert.ErrorIs(t, err, ErrRecoveryFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", "t@example.com", "musluk123", &model.Profile{Role: model.RoleTechnician, Active: true})
	svc := f.service()
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "t@example.com", Password: "musluk123"})
	require.NoError(t, err)

	tok, err := svc.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	claims, err := f.tokens.VerifyType(tok.AccessToken, pasetotoken.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, login.SessionID, claims.SessionID)

	_, err = svc.Refresh(ctx, login.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.Logout(ctx, model.ActorFromProfile(login.Profile), login.SessionID))
	_, err = svc.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", "t@example.com", "eski-sifre", &model.Profile{Role: model.RoleTechnician, Active: true})
	svc := f.service()
	ctx := context.Background()
	me := model.Actor{ID: "u1", Email: "t@example.com", Role: model.RoleTechnician}

	assert.ErrorIs(t, svc.ChangePassword(ctx, me, "yanlis", "yeni-sifre"), ErrWrongPassword)
	assert.ErrorIs(t, svc.ChangePassword(ctx, me, "eski-sifre", "kisa"), password.ErrTooShort)
	require.NoError(t, svc.ChangePassword(ctx, me, "eski-sifre", "yeni-sifre"))

	_, err := svc.Login(ctx, LoginRequest{Email: "t@example.com", Password: "eski-sifre"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Email: "t@example.com", Password: "yeni-sifre"})
	assert.NoError(t, err)
}
