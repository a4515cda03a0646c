package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	"github.com/Alijeyrad/destek_backend/internal/service/notification"
	"github.com/Alijeyrad/destek_backend/pkg/email"
	"github.com/Alijeyrad/destek_backend/pkg/phone"
	"github.com/Alijeyrad/destek_backend/pkg/push"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type UpdateMeRequest struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

type ListRequest struct {
	Role   string
	Active *bool
}

type ProvisionRequest struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	Specialty string
	// Password is generated when empty.
	Password string
}

type ProvisionResult struct {
	Profile *model.Profile `json:"profile"`
	// Password is set only when it was generated.
	Password string `json:"password,omitempty"`
}

type Config struct {
	AppName        string
	PhoneRegion    string
	PasswordLength int
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	GetMe(ctx context.Context, caller model.Actor) (*model.Profile, error)
	UpdateMe(ctx context.Context, caller model.Actor, req UpdateMeRequest) (*model.Profile, error)
	// RegisterPushToken stores the device token; an empty token clears it.
	RegisterPushToken(ctx context.Context, caller model.Actor, token string) error

	List(ctx context.Context, caller model.Actor, req ListRequest) ([]*model.Profile, error)
	Provision(ctx context.Context, caller model.Actor, req ProvisionRequest) (*ProvisionResult, error)
	SetRole(ctx context.Context, caller model.Actor, uid, role string) (*model.Profile, error)
	SetActive(ctx context.Context, caller model.Actor, uid string, active bool) (*model.Profile, error)
	BatchDelete(ctx context.Context, caller model.Actor, ids []string) (int64, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type userService struct {
	db     *repo.Client
	hasher *password.Hasher
	audit  audit.Service
	notify notification.Service
	cfg    Config
	now    func() time.Time
}

func New(db *repo.Client, hasher *password.Hasher, a audit.Service, n notification.Service, cfg Config) Service {
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = phone.DefaultRegion
	}
	return &userService{
		db:     db,
		hasher: hasher,
		audit:  a,
		notify: n,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) GetMe(ctx context.Context, caller model.Actor) (*model.Profile, error) {
	return s.get(ctx, caller.ID)
}

func (s *userService) UpdateMe(ctx context.Context, caller model.Actor, req UpdateMeRequest) (*model.Profile, error) {
	p, err := s.get(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	changed := []string{}
	if req.FirstName != nil {
		first := strings.TrimSpace(*req.FirstName)
		if first == "" {
			return nil, ErrNameRequired
		}
		p.FirstName = first
		changed = append(changed, "first_name")
	}
	if req.LastName != nil {
		p.LastName = strings.TrimSpace(*req.LastName)
		changed = append(changed, "last_name")
	}
	if req.Phone != nil {
		ph, err := phone.Normalize(*req.Phone, s.cfg.PhoneRegion)
		if err != nil {
			return nil, ErrInvalidPhone
		}
		p.Phone = ph
		changed = append(changed, "phone")
	}
	if len(changed) == 0 {
		return p, nil
	}

	if err := s.db.Users.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.log(ctx, model.AuditUserUpdated, caller, p.ID, map[string]any{"fields": changed})
	return p, nil
}

func (s *userService) RegisterPushToken(ctx context.Context, caller model.Actor, token string) error {
	token = strings.TrimSpace(token)
	if token != "" && !push.ValidToken(token) {
		return ErrInvalidPushToken
	}
	p, err := s.get(ctx, caller.ID)
	if err != nil {
		return err
	}
	if p.PushToken == token {
		return nil
	}
	p.PushToken = token
	if err := s.db.Users.Update(ctx, p); err != nil {
		return fmt.Errorf("store push token: %w", err)
	}
	return nil
}

func (s *userService) List(ctx context.Context, caller model.Actor, req ListRequest) ([]*model.Profile, error) {
	if !caller.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	f := repo.UserFilter{Active: req.Active}
	if req.Role != "" {
		r := model.NormalizeRole(req.Role)
		f.Role = &r
	}
	users, err := s.db.Users.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Provision creates an account and profile for someone else. The welcome
// mail carries the password, so it is only sent when mail is configured.
func (s *userService) Provision(ctx context.Context, caller model.Actor, req ProvisionRequest) (*ProvisionResult, error) {
	if caller.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, ErrInvalidEmail
	}
	addrEmail := strings.ToLower(addr.Address)
	first := strings.TrimSpace(req.FirstName)
	if first == "" {
		return nil, ErrNameRequired
	}
	ph, err := phone.Normalize(req.Phone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, ErrInvalidPhone
	}

	pass, generated := req.Password, ""
	if pass == "" {
		pass = password.Generate(s.cfg.PasswordLength)
		generated = pass
	} else if err := password.CheckPolicy(pass); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	p := &model.Profile{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Email:     addrEmail,
		FirstName: first,
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     ph,
		Role:      model.NormalizeRole(req.Role),
		Specialty: strings.TrimSpace(req.Specialty),
		Active:    true,
		CreatedBy: caller.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.InTx(ctx, func(tx *repo.Client) error {
		if err := tx.Accounts.Create(ctx, &model.Account{ID: p.ID, Email: p.Email, PasswordHash: hash, CreatedAt: now}); err != nil {
			return err
		}
		return tx.Users.Create(ctx, p)
	})
	if err != nil {
		if repo.IsConflict(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("provision user: %w", err)
	}

	s.log(ctx, model.AuditUserCreated, caller, p.ID, map[string]any{"email": p.Email, "role": string(p.Role)})
	s.notify.Email(ctx, email.BuildWelcomeEmail(email.WelcomeData{
		AppName:   s.cfg.AppName,
		FirstName: p.FirstName,
		Email:     p.Email,
		Password:  pass,
		Role:      string(p.Role),
	}))

	return &ProvisionResult{Profile: p, Password: generated}, nil
}

func (s *userService) SetRole(ctx context.Context, caller model.Actor, uid, role string) (*model.Profile, error) {
	if caller.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if uid == caller.ID {
		return nil, ErrSelfAction
	}
	p, err := s.get(ctx, uid)
	if err != nil {
		return nil, err
	}

	prev := p.Role
	p.Role = model.NormalizeRole(role)
	if p.Role == prev {
		return p, nil
	}
	if err := s.db.Users.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	s.log(ctx, model.AuditUserRoleChanged, caller, uid, map[string]any{"from": string(prev), "to": string(p.Role)})
	return p, nil
}

func (s *userService) SetActive(ctx context.Context, caller model.Actor, uid string, active bool) (*model.Profile, error) {
	if caller.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if uid == caller.ID {
		return nil, ErrSelfAction
	}
	p, err := s.get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p.Active == active {
		return p, nil
	}
	p.Active = active
	if err := s.db.Users.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update activation: %w", err)
	}
	s.log(ctx, model.AuditUserActivationChanged, caller, uid, map[string]any{"active": active})
	return p, nil
}

// BatchDelete removes the profiles, their accounts and every ticket they
// created in one transaction. It returns the number of deleted tickets.
func (s *userService) BatchDelete(ctx context.Context, caller model.Actor, ids []string) (int64, error) {
	if caller.Role != model.RoleAdmin {
		return 0, ErrForbidden
	}
	if len(ids) == 0 {
		return 0, ErrNoUsers
	}
	for _, id := range ids {
		if id == caller.ID {
			return 0, ErrSelfAction
		}
	}

	var removed int64
	err := s.db.InTx(ctx, func(tx *repo.Client) error {
		n, err := tx.Tickets.DeleteByCreators(ctx, ids)
		if err != nil {
			return fmt.Errorf("delete tickets: %w", err)
		}
		removed = n
		if err := tx.Users.Delete(ctx, ids); err != nil {
			return fmt.Errorf("delete profiles: %w", err)
		}
		if err := tx.Accounts.Delete(ctx, ids); err != nil {
			return fmt.Errorf("delete accounts: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.log(ctx, model.AuditUserDeleted, caller, id, map[string]any{"batch_size": len(ids)})
	}
	return removed, nil
}

func (s *userService) get(ctx context.Context, uid string) (*model.Profile, error) {
	p, err := s.db.Users.Get(ctx, uid)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return p, nil
}

func (s *userService) log(ctx context.Context, action model.AuditAction, caller model.Actor, uid string, details map[string]any) {
	s.audit.Log(ctx, audit.Entry{Action: action, Actor: caller, TargetID: uid, TargetType: "user", Details: details})
}
