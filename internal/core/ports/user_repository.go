package ports

import (
	"context"

	"github.com/tripeco/identity-service/internal/core/domain"
)

// UserRepository defines persistence operations for users.
// Email lookups are case-insensitive and the store must enforce a unique
// index on email; a duplicate insert returns domain.ErrEmailInUse.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindByID returns an error matching domain.ErrUserNotFound when absent.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	// Save inserts the user when ID is empty and replaces it otherwise.
	// The returned user carries the assigned ID.
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	DeleteByID(ctx context.Context, id string) error
}
