package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/destek_backend/config"
	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	pasetotoken "github.com/Alijeyrad/destek_backend/pkg/paseto"
	"github.com/Alijeyrad/destek_backend/pkg/phone"
	"github.com/Alijeyrad/destek_backend/pkg/redis"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type SignUpRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

type LoginRequest struct {
	Email    string
	Password string
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until the access token expires
}

type LoginResponse struct {
	Tokens    AuthTokens     `json:"tokens"`
	Profile   *model.Profile `json:"profile"`
	SessionID string         `json:"-"`
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// SessionStore holds sign-in sessions. Load returns redis.ErrMiss for an
// unknown or expired session.
type SessionStore interface {
	Save(ctx context.Context, id string, d redis.SessionData, ttl time.Duration) error
	Load(ctx context.Context, id string) (*redis.SessionData, error)
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// ProfileCache is the last-known copy of each profile, keyed by uid.
type ProfileCache interface {
	Get(ctx context.Context, key string) (*model.Profile, error)
	Set(ctx context.Context, key string, v *model.Profile) error
}

// ProfileWriter is the secondary write path used when recovering an admin
// profile through the database does not succeed.
type ProfileWriter interface {
	Put(ctx context.Context, p *model.Profile) error
}

type Config struct {
	SessionTTL           time.Duration
	ProfileTimeout       time.Duration
	RecoveryWriteTimeout time.Duration
	AdminEmails          []string
	PhoneRegion          string
}

func DefaultConfig() Config {
	return Config{
		SessionTTL:           30 * 24 * time.Hour,
		ProfileTimeout:       5 * time.Second,
		RecoveryWriteTimeout: 5 * time.Second,
		PhoneRegion:          phone.DefaultRegion,
	}
}

func FromCentralConfig(c *config.Config) Config {
	cfg := DefaultConfig()
	a := c.Authentication
	if a.SessionTTLMinutes > 0 {
		cfg.SessionTTL = time.Duration(a.SessionTTLMinutes) * time.Minute
	}
	if a.ProfileTimeoutSeconds > 0 {
		cfg.ProfileTimeout = time.Duration(a.ProfileTimeoutSeconds) * time.Second
	}
	if a.Recovery.WriteTimeoutSeconds > 0 {
		cfg.RecoveryWriteTimeout = time.Duration(a.Recovery.WriteTimeoutSeconds) * time.Second
	}
	cfg.AdminEmails = a.AdminEmails
	if c.Tickets.PhoneRegion != "" {
		cfg.PhoneRegion = c.Tickets.PhoneRegion
	}
	return cfg
}

type Deps struct {
	DB       *repo.Client
	Sessions SessionStore
	Cache    ProfileCache  // optional
	Recovery ProfileWriter // optional
	Tokens   *pasetotoken.Manager
	Hasher   *password.Hasher
	Audit    audit.Service
	Config   Config
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	// Resolve returns the profile for a signed-in account. It does not check
	// whether the profile is active.
	Resolve(ctx context.Context, uid, email string) (*model.Profile, error)
	CheckSession(ctx context.Context, sessionID string) error
	Logout(ctx context.Context, caller model.Actor, sessionID string) error
	Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Reauthenticate(ctx context.Context, uid, pass string) error
	ChangePassword(ctx context.Context, caller model.Actor, oldPass, newPass string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type authService struct {
	db       *repo.Client
	sessions SessionStore
	cache    ProfileCache
	recovery ProfileWriter
	tokens   *pasetotoken.Manager
	hasher   *password.Hasher
	audit    audit.Service
	cfg      Config
	admins   map[string]struct{}
	now      func() time.Time
}

func New(d Deps) Service {
	admins := make(map[string]struct{}, len(d.Config.AdminEmails))
	for _, e := range d.Config.AdminEmails {
		admins[normEmail(e)] = struct{}{}
	}
	return &authService{
		db:       d.DB,
		sessions: d.Sessions,
		cache:    d.Cache,
		recovery: d.Recovery,
		tokens:   d.Tokens,
		hasher:   d.Hasher,
		audit:    d.Audit,
		cfg:      d.Config,
		admins:   admins,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// ---------------------------------------------------------------------------
// SignUp
// ---------------------------------------------------------------------------

func (s *authService) SignUp(ctx context.Context, req SignUpRequest) (*LoginResponse, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, ErrInvalidEmail
	}
	email := normEmail(addr.Address)

	if err := password.CheckPolicy(req.Password); err != nil {
		return nil, err
	}
	first := strings.TrimSpace(req.FirstName)
	if first == "" {
		return nil, ErrNameRequired
	}
	ph, err := phone.Normalize(req.Phone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, ErrInvalidPhone
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	uid := uuid.Must(uuid.NewV7()).String()
	profile := &model.Profile{
		ID:        uid,
		Email:     email,
		FirstName: first,
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     ph,
		Role:      model.RoleCustomer,
		Active:    true,
		CreatedBy: uid,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.InTx(ctx, func(tx *repo.Client) error {
		if err := tx.Accounts.Create(ctx, &model.Account{ID: uid, Email: email, PasswordHash: hash, CreatedAt: now}); err != nil {
			return err
		}
		return tx.Users.Create(ctx, profile)
	})
	if err != nil {
		if repo.IsConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	actor := model.ActorFromProfile(profile)
	s.audit.Log(ctx, audit.Entry{Action: model.AuditUserSignup, Actor: actor, TargetID: uid, TargetType: "user"})

	sid, tokens, err := s.createSession(ctx, uid, email)
	if err != nil {
		return nil, err
	}
	s.cacheProfile(ctx, profile)
	return &LoginResponse{Tokens: *tokens, Profile: profile, SessionID: sid}, nil
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	acc, err := s.db.Accounts.GetByEmail(ctx, normEmail(req.Email))
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if err := s.hasher.Verify(acc.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if s.hasher.NeedsRehash(acc.PasswordHash) {
		s.rehash(ctx, acc.ID, req.Password)
	}

	sid, tokens, err := s.createSession(ctx, acc.ID, acc.Email)
	if err != nil {
		return nil, err
	}

	p, err := s.Resolve(ctx, acc.ID, acc.Email)
	if err != nil {
		s.dropSession(ctx, sid)
		return nil, err
	}

	actor := model.ActorFromProfile(p)
	if !p.Active {
		s.dropSession(ctx, sid)
		s.audit.Log(ctx, audit.Entry{
			Action:     model.AuditLoginBlocked,
			Actor:      actor,
			TargetID:   acc.ID,
			TargetType: "user",
			Details:    map[string]any{"reason": "inactive"},
		})
		return nil, ErrAccountInactive
	}

	if err := s.db.Accounts.TouchLogin(ctx, acc.ID, s.now()); err != nil {
		slog.Warn("record last login failed", "user_id", acc.ID, "err", err)
	}
	s.audit.Log(ctx, audit.Entry{Action: model.AuditUserLogin, Actor: actor, TargetID: acc.ID, TargetType: "user"})

	return &LoginResponse{Tokens: *tokens, Profile: p, SessionID: sid}, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *authService) CheckSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionNotFound
	}
	if _, err := s.sessions.Load(ctx, sessionID); err != nil {
		if errors.Is(err, redis.ErrMiss) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("load session: %w", err)
	}
	return nil
}

func (s *authService) Logout(ctx context.Context, caller model.Actor, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{Action: model.AuditUserLogout, Actor: caller, TargetID: caller.ID, TargetType: "user"})
	return nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.tokens.VerifyType(refreshToken, pasetotoken.TokenTypeRefresh)
	if err != nil || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if err := s.CheckSession(ctx, claims.SessionID); err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, claims.SessionID, s.cfg.SessionTTL); err != nil {
		slog.Warn("extend session failed", "session_id", claims.SessionID, "err", err)
	}

	access, err := s.tokens.IssueAccess(pasetotoken.Subject{
		UserID:    claims.UserID,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refreshToken, // unchanged until logout
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// ---------------------------------------------------------------------------
// Passwords
// ---------------------------------------------------------------------------

func (s *authService) Reauthenticate(ctx context.Context, uid, pass string) error {
	acc, err := s.db.Accounts.Get(ctx, uid)
	if err != nil {
		if repo.IsNotFound(err) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("get account: %w", err)
	}
	if err := s.hasher.Verify(acc.PasswordHash, pass); err != nil {
		return ErrWrongPassword
	}
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, caller model.Actor, oldPass, newPass string) error {
	if err := s.Reauthenticate(ctx, caller.ID, oldPass); err != nil {
		return err
	}
	if err := password.CheckPolicy(newPass); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPass)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.Accounts.UpdatePasswordHash(ctx, caller.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{Action: model.AuditPasswordChanged, Actor: caller, TargetID: caller.ID, TargetType: "user"})
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *authService) createSession(ctx context.Context, uid, email string) (string, *AuthTokens, error) {
	sid := uuid.Must(uuid.NewV7()).String()

	if err := s.sessions.Save(ctx, sid, redis.SessionData{UserID: uid, Email: email, CreatedAt: s.now()}, s.cfg.SessionTTL); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	sub := pasetotoken.Subject{UserID: uid, Email: email, SessionID: sid}
	access, err := s.tokens.IssueAccess(sub)
	if err != nil {
		return "", nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(sub)
	if err != nil {
		return "", nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return sid, &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *authService) dropSession(ctx context.Context, sid string) {
	if err := s.sessions.Delete(ctx, sid); err != nil {
		slog.Warn("delete session failed", "session_id", sid, "err", err)
	}
}

func (s *authService) rehash(ctx context.Context, uid, pass string) {
	hash, err := s.hasher.Hash(pass)
	if err == nil {
		err = s.db.Accounts.UpdatePasswordHash(ctx, uid, hash)
	}
	if err != nil {
		slog.Warn("password rehash failed", "user_id", uid, "err", err)
	}
}
