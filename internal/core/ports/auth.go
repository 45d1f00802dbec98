package ports

import (
	"context"

	"github.com/tripeco/identity-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords with a salted adaptive function.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// PasswordPolicy generates passwords and checks candidate strength.
type PasswordPolicy interface {
	Generate() (string, error)
	Validate(candidate string) error
}

// TokenService issues and verifies stateless signed tokens.
type TokenService interface {
	Issue(subject string, role domain.Role) (string, error)
	Verify(token string) (domain.Principal, error)
}

// Authenticator resolves a credential into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (domain.Principal, error)
}

// IdentityProvider resolves the user id of the caller of the current request.
type IdentityProvider interface {
	CurrentUserID(ctx context.Context) (string, error)
}
