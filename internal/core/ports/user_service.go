package ports

import (
	"context"

	"github.com/tripeco/identity-service/internal/core/domain"
)

// RegisterUserInput carries the profile of a new user. The password is
// always generated by the service.
type RegisterUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	ZipCode   string
	Role      domain.Role
}

// UpdateUserInput is a partial profile update; nil fields are left untouched.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
	ZipCode   *string
	Role      *domain.Role
	Disabled  *bool
}

// UserService defines the user lifecycle use cases.
type UserService interface {
	Register(ctx context.Context, input RegisterUserInput) (*domain.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	ResendPassword(ctx context.Context, id string) error
	Update(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	Current(ctx context.Context) (*domain.User, error)
}
