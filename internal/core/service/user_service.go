package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/ports"
)

// UserService implements the user lifecycle.
type UserService struct {
	repo     ports.UserRepository
	hasher   ports.PasswordHasher
	policy   ports.PasswordPolicy
	notifier ports.Notifier
	identity ports.IdentityProvider
	log      zerolog.Logger
	now      func() time.Time
}

func NewUserService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	policy ports.PasswordPolicy,
	notifier ports.Notifier,
	identity ports.IdentityProvider,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		policy:   policy,
		notifier: notifier,
		identity: identity,
		log:      log,
		now:      time.Now,
	}
}

// Register creates a user with a generated password and hands the plaintext
// to the notifier. Delivery is asynchronous and its failure does not undo the
// registration.
func (s *UserService) Register(ctx context.Context, in ports.RegisterUserInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("register: check email: %w", err)
	}
	if exists {
		return nil, domain.NewEmailInUse(email)
	}

	plain, hash, err := s.newPassword()
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	now := s.now().UTC()
	saved, err := s.repo.Save(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Address:      in.Address,
		ZipCode:      in.ZipCode,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrEmailInUse) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("register: save user: %w", err)
	}

	s.log.Info().Str("user_id", saved.ID).Str("role", saved.Role.String()).Msg("user registered")
	s.notifier.NotifyNewUser(ctx, *saved, plain)
	return saved, nil
}

// ChangePassword replaces the password of the calling user. The new password
// is checked against the policy before anything is loaded.
func (s *UserService) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}

	id, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return domain.ErrBadOldPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()

	if _, err := s.repo.Save(ctx, user); err != nil {
		return fmt.Errorf("change password: save user: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// ResendPassword regenerates the password of a user and notifies them again.
func (s *UserService) ResendPassword(ctx context.Context, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	plain, hash, err := s.newPassword()
	if err != nil {
		return fmt.Errorf("resend password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return fmt.Errorf("resend password: save user: %w", err)
	}

	s.log.Info().Str("user_id", saved.ID).Msg("password regenerated")
	s.notifier.NotifyNewUser(ctx, *saved, plain)
	return nil
}

func (s *UserService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	setIf(&user.FirstName, in.FirstName)
	setIf(&user.LastName, in.LastName)
	setIf(&user.Phone, in.Phone)
	setIf(&user.Address, in.Address)
	setIf(&user.ZipCode, in.ZipCode)
	setIf(&user.Role, in.Role)
	setIf(&user.Disabled, in.Disabled)
	user.UpdatedAt = s.now().UTC()

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return saved, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

func (s *UserService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) FindByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	return s.repo.FindByRole(ctx, role)
}

func (s *UserService) FindAll(ctx context.Context) ([]*domain.User, error) {
	return s.repo.FindAll(ctx)
}

// Current returns the record of the calling user.
func (s *UserService) Current(ctx context.Context) (*domain.User, error) {
	id, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) newPassword() (plain, hash string, err error) {
	plain, err = s.policy.Generate()
	if err != nil {
		return "", "", fmt.Errorf("generate password: %w", err)
	}
	hash, err = s.hasher.Hash(plain)
	if err != nil {
		return "", "", fmt.Errorf("hash password: %w", err)
	}
	return plain, hash, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
