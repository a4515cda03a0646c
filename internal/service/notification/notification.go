package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
	"github.com/Alijeyrad/destek_backend/pkg/email"
	"github.com/Alijeyrad/destek_backend/pkg/push"
)

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

type Pusher interface {
	Enabled() bool
	Send(ctx context.Context, m push.Message) error
}

type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, m email.Message) error
}

type Texter interface {
	IsEnabled() bool
	SendTemplate(ctx context.Context, phone string, params map[string]string) error
}

type Deps struct {
	DB       *repo.Client
	Dispatch dispatch.Submitter
	Push     Pusher
	Mail     Mailer
	SMS      Texter
	// Operators receive urgent-ticket mail.
	Operators []string
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

// Service sends notifications in the background. None of its methods report
// delivery failures to the caller.
type Service interface {
	Push(ctx context.Context, token, title, body string, data map[string]any)
	NotifyUser(ctx context.Context, uid, title, body string, data map[string]any)
	NotifyRole(ctx context.Context, role model.Role, title, body string, data map[string]any)
	EmailOperators(ctx context.Context, m email.Message)
	Email(ctx context.Context, m email.Message)
	SMS(ctx context.Context, phone string, params map[string]string)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type notificationService struct {
	d Deps
}

func New(d Deps) Service {
	return &notificationService{d: d}
}

func (s *notificationService) Push(_ context.Context, token, title, body string, data map[string]any) {
	if !s.pushEnabled() || token == "" {
		return
	}
	msg := push.Message{To: token, Title: title, Body: body, Data: data}
	s.d.Dispatch.Submit("notify.push", func(ctx context.Context) error {
		return s.d.Push.Send(ctx, msg)
	})
}

func (s *notificationService) NotifyUser(_ context.Context, uid, title, body string, data map[string]any) {
	if !s.pushEnabled() || uid == "" {
		return
	}
	s.d.Dispatch.Submit("notify.user", func(ctx context.Context) error {
		p, err := s.d.DB.Users.Get(ctx, uid)
		if err != nil {
			if repo.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("get user: %w", err)
		}
		if p.PushToken == "" {
			return nil
		}
		return s.d.Push.Send(ctx, push.Message{To: p.PushToken, Title: title, Body: body, Data: data})
	})
}

func (s *notificationService) NotifyRole(_ context.Context, role model.Role, title, body string, data map[string]any) {
	if !s.pushEnabled() {
		return
	}
	s.d.Dispatch.Submit("notify.role."+string(role), func(ctx context.Context) error {
		active := true
		users, err := s.d.DB.Users.List(ctx, repo.UserFilter{Role: &role, Active: &active, HasPushToken: true})
		if err != nil {
			return fmt.Errorf("list %s users: %w", role, err)
		}
		sent := 0
		for _, u := range users {
			if err := s.d.Push.Send(ctx, push.Message{To: u.PushToken, Title: title, Body: body, Data: data}); err != nil {
				slog.Warn("push to user failed", "user_id", u.ID, "err", err)
				continue
			}
			sent++
		}
		slog.Debug("role notified", "role", role, "recipients", len(users), "sent", sent)
		return nil
	})
}

func (s *notificationService) EmailOperators(_ context.Context, m email.Message) {
	if s.d.Mail == nil || !s.d.Mail.Enabled() {
		return
	}
	if len(s.d.Operators) == 0 {
		slog.Warn("operator email skipped", "err", ErrNoOperator)
		return
	}
	m.To = s.d.Operators
	s.d.Dispatch.Submit("notify.email", func(ctx context.Context) error {
		return s.d.Mail.Send(ctx, m)
	})
}

func (s *notificationService) Email(_ context.Context, m email.Message) {
	if s.d.Mail == nil || !s.d.Mail.Enabled() || len(m.To) == 0 {
		return
	}
	s.d.Dispatch.Submit("notify.email", func(ctx context.Context) error {
		return s.d.Mail.Send(ctx, m)
	})
}

func (s *notificationService) SMS(_ context.Context, phone string, params map[string]string) {
	if s.d.SMS == nil || !s.d.SMS.IsEnabled() || phone == "" {
		return
	}
	s.d.Dispatch.Submit("notify.sms", func(ctx context.Context) error {
		return s.d.SMS.SendTemplate(ctx, phone, params)
	})
}

func (s *notificationService) pushEnabled() bool {
	return s.d.Push != nil && s.d.Push.Enabled()
}
