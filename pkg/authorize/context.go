package authorize

import (
	"context"
	"errors"

	"github.com/Alijeyrad/destek_backend/pkg/reqctx"
)

var ErrNoSubjectInContext = errors.New("no subject found in context")

// RoleFromContext returns the policy subject for the caller resolved by the
// auth middleware.
func RoleFromContext(ctx context.Context) (Role, error) {
	actor, ok := reqctx.ActorFromContext(ctx)
	if !ok || actor.Role == "" {
		return "", ErrNoSubjectInContext
	}
	return RoleFor(string(actor.Role)), nil
}

// EnforceContext checks the caller in ctx against object/action in the
// system domain.
func EnforceContext(ctx context.Context, auth IAuthorization, object Resource, action Action) error {
	role, err := RoleFromContext(ctx)
	if err != nil {
		return err
	}
	return auth.MustEnforce(ctx, role, DomainSys, object, action)
}
