// Package identity carries the caller's identity through a request context.
package identity

import (
	"context"

	"github.com/tripeco/identity-service/internal/core/domain"
)

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p. Role may be empty when the
// identity came from a trusted gateway header.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(domain.Principal)
	if !ok || p.UserID == "" {
		return domain.Principal{}, false
	}
	return p, true
}

// Provider resolves the current user from the request context.
type Provider struct{}

func (Provider) CurrentUserID(ctx context.Context) (string, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return "", domain.ErrMissingIdentity
	}
	return p.UserID, nil
}
