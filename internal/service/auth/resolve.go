package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
)

type fetchResult struct {
	profile *model.Profile
	err     error
}

func (s *authService) Resolve(ctx context.Context, uid, email string) (*model.Profile, error) {
	ch := make(chan fetchResult, 1)
	go func() {
		p, err := s.db.Users.Get(ctx, uid)
		ch <- fetchResult{p, err}
	}()

	timer := time.NewTimer(s.cfg.ProfileTimeout)
	defer timer.Stop()

	var r fetchResult
	select {
	case r = <-ch:
	case <-timer.C:
		slog.Warn("profile read timed out, using minimal profile", "user_id", uid, "timeout", s.cfg.ProfileTimeout)
		return model.MinimalProfile(uid, email), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	switch {
	case r.err == nil:
		s.cacheProfile(ctx, r.profile)
		return r.profile, nil
	case repo.IsNotFound(r.err):
		if _, ok := s.admins[normEmail(email)]; ok {
			return s.recoverAdmin(ctx, uid, email)
		}
		return nil, ErrProfileNotFound
	}

	slog.Warn("profile read failed, trying cache", "user_id", uid, "err", r.err)
	if s.cache != nil {
		if p, err := s.cache.Get(ctx, uid); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("get profile: %w", r.err)
}

// recoverAdmin writes a default admin profile for an allow-listed account.
// The database and the REST fallback are each tried once.
func (s *authService) recoverAdmin(ctx context.Context, uid, email string) (*model.Profile, error) {
	p := model.DefaultAdminProfile(uid, normEmail(email), s.now())

	wctx, cancel := context.WithTimeout(ctx, s.cfg.RecoveryWriteTimeout)
	dbErr := s.db.Users.Upsert(wctx, p)
	if dbErr == nil && wctx.Err() != nil {
		dbErr = wctx.Err()
	}
	cancel()

	via := "database"
	if dbErr != nil {
		slog.Warn("admin profile write failed", "user_id", uid, "err", dbErr)
		if s.recovery == nil {
			return nil, fmt.Errorf("%w: %w", ErrRecoveryFailed, dbErr)
		}
		if err := s.recovery.Put(ctx, p); err != nil {
			slog.Error("admin profile recovery failed", "user_id", uid, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrRecoveryFailed, errors.Join(dbErr, err))
		}
		via = "rest"
	}

	slog.Info("admin profile recovered", "user_id", uid, "via", via)
	s.audit.Log(ctx, audit.Entry{
		Action:     model.AuditAdminProfileRecovered,
		Actor:      model.ActorFromProfile(p),
		TargetID:   uid,
		TargetType: "user",
		Details:    map[string]any{"via": via},
	})
	s.cacheProfile(ctx, p)
	return p, nil
}

func (s *authService) cacheProfile(ctx context.Context, p *model.Profile) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, p.ID, p); err != nil {
		slog.Warn("cache profile failed", "user_id", p.ID, "err", err)
	}
}
