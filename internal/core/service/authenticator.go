package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/ports"
)

// Authenticator turns an email/password pair into a Principal.
type Authenticator struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
}

func NewAuthenticator(repo ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger) *Authenticator {
	return &Authenticator{repo: repo, hasher: hasher, log: log}
}

// Authenticate never reveals the password in errors or logs. The disabled
// flag is only consulted once the password matched.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (domain.Principal, error) {
	user, err := a.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Principal{}, domain.ErrAuthUserNotFound
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("authenticate: find user: %w", err)
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		return domain.Principal{}, domain.ErrBadCredentials
	}
	if user.Disabled {
		return domain.Principal{}, domain.ErrAccountDisabled
	}

	a.log.Info().Str("user_id", user.ID).Msg("user authenticated")
	return domain.Principal{UserID: user.ID, Role: user.Role}, nil
}
