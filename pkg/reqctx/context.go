package reqctx

import (
	"context"
	"time"

	"github.com/Alijeyrad/destek_backend/internal/model"
)

type ctxKey int

const (
	keyRequestMeta ctxKey = iota
	keySession
	keyProfile
)

// RequestMeta holds per-request metadata set by HTTP middleware.
type RequestMeta struct {
	RequestID   string
	ClientIP    string
	UserAgent   string
	RequestedAt time.Time
}

func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, keyRequestMeta, meta)
}

func RequestMetaFromContext(ctx context.Context) (*RequestMeta, bool) {
	meta, ok := ctx.Value(keyRequestMeta).(*RequestMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns "" when no metadata is attached.
func RequestIDFromContext(ctx context.Context) string {
	if meta, ok := RequestMetaFromContext(ctx); ok {
		return meta.RequestID
	}
	return ""
}

// Session identifies the signed-in account behind a request.
type Session struct {
	ID     string
	UserID string
	Email  string
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, keySession, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(keySession).(*Session)
	return s, ok && s != nil
}

func WithProfile(ctx context.Context, p *model.Profile) context.Context {
	return context.WithValue(ctx, keyProfile, p)
}

func ProfileFromContext(ctx context.Context) (*model.Profile, bool) {
	p, ok := ctx.Value(keyProfile).(*model.Profile)
	return p, ok && p != nil
}

// ActorFromContext returns the caller resolved by the auth middleware.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	p, ok := ProfileFromContext(ctx)
	if !ok {
		return model.Actor{}, false
	}
	return model.ActorFromProfile(p), true
}
