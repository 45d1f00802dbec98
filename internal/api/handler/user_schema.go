package handler

import (
	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/ports"
)

// ── Requests ─────────────────────────────────────────────────────────────────

type registerUserRequest struct {
	Email     string `json:"email" validate:"required,email,max=254" example:"ana@example.com"`
	FirstName string `json:"first_name" validate:"required,max=100" example:"Ana"`
	LastName  string `json:"last_name" validate:"required,max=100" example:"Lopez"`
	Phone     string `json:"phone" validate:"max=32" example:"+54 11 5555-0100"`
	Address   string `json:"address" validate:"max=255" example:"Av. Corrientes 1234"`
	ZipCode   string `json:"zip_code" validate:"max=16" example:"C1043"`
	Role      string `json:"role" validate:"required,role" example:"USER"`
}

type updateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
	ZipCode   *string `json:"zip_code" validate:"omitempty,max=16"`
	Role      *string `json:"role" validate:"omitempty,role" example:"ADMIN"`
	Disabled  *bool   `json:"disabled"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ── Responses ────────────────────────────────────────────────────────────────

// UserResponse is the public profile of a user.
type UserResponse struct {
	ID        string      `json:"id" example:"65f1c0d2e4b0a1b2c3d4e5f6"`
	Email     string      `json:"email" example:"ana@example.com"`
	FirstName string      `json:"first_name" example:"Ana"`
	LastName  string      `json:"last_name" example:"Lopez"`
	Phone     string      `json:"phone"`
	Address   string      `json:"address"`
	ZipCode   string      `json:"zip_code"`
	Role      domain.Role `json:"role" swaggertype:"string" enums:"ADMIN,USER"`
	Disabled  bool        `json:"disabled"`
}

// UserCurrent is the reduced view returned for the calling user.
type UserCurrent struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role" swaggertype:"string" enums:"ADMIN,USER"`
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func (r registerUserRequest) toInput() ports.RegisterUserInput {
	role, _ := domain.ParseRole(r.Role)
	return ports.RegisterUserInput{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Address:   r.Address,
		ZipCode:   r.ZipCode,
		Role:      role,
	}
}

func (r updateUserRequest) toInput() ports.UpdateUserInput {
	in := ports.UpdateUserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Address:   r.Address,
		ZipCode:   r.ZipCode,
		Disabled:  r.Disabled,
	}
	if r.Role != nil {
		if role, ok := domain.ParseRole(*r.Role); ok {
			in.Role = &role
		}
	}
	return in
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Address:   u.Address,
		ZipCode:   u.ZipCode,
		Role:      u.Role,
		Disabled:  u.Disabled,
	}
}

func toUserResponses(users []*domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toUserCurrent(u *domain.User) UserCurrent {
	return UserCurrent{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}
