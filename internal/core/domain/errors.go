package domain

import (
	"errors"
	"fmt"
)

const genericMessage = "Unable to process your request, please try again."

// ValidationKind classifies client-caused failures.
type ValidationKind int

const (
	KindNotFound ValidationKind = iota + 1
	KindWeakPassword
	KindBadOldPassword
	KindEmailInUse
	KindMalformedCredentials
	KindMissingIdentity
	KindInvalidRequest
	KindForbidden
)

// ValidationError is a client-caused failure carrying a user-facing message
// and a developer diagnostic. Two ValidationErrors match under errors.Is when
// their kinds are equal, so callers compare against the sentinels below.
type ValidationError struct {
	Kind      ValidationKind
	Message   string
	Developer string
}

func (e *ValidationError) Error() string {
	if e.Developer != "" {
		return e.Developer
	}
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrUserNotFound = &ValidationError{
		Kind:      KindNotFound,
		Message:   "User not found. Try again.",
		Developer: "user not found",
	}
	ErrPasswordTooWeak = &ValidationError{
		Kind:      KindWeakPassword,
		Message:   "New password should have at least 8 characters and uppercase, lowercase and symbol.",
		Developer: "Password doesn't meet password rules.",
	}
	ErrBadOldPassword = &ValidationError{
		Kind:      KindBadOldPassword,
		Message:   "Your old password is incorrect.",
		Developer: "Old password sent is incorrect.",
	}
	ErrEmailInUse = &ValidationError{
		Kind:      KindEmailInUse,
		Message:   "The email is already in use.",
		Developer: "email already exists",
	}
	ErrMalformedCredentials = &ValidationError{
		Kind:      KindMalformedCredentials,
		Message:   genericMessage,
		Developer: "malformed credential payload",
	}
	ErrMissingIdentity = &ValidationError{
		Kind:      KindMissingIdentity,
		Message:   genericMessage,
		Developer: "User Id not found in header",
	}
	ErrInvalidRequest = &ValidationError{
		Kind:      KindInvalidRequest,
		Message:   genericMessage,
		Developer: "request failed validation",
	}
	ErrForbidden = &ValidationError{
		Kind:      KindForbidden,
		Message:   "You are not allowed to perform this action.",
		Developer: "role not allowed for route",
	}
)

// NewUserNotFound reports a missing user record by id.
func NewUserNotFound(id string) error {
	return &ValidationError{
		Kind:      KindNotFound,
		Message:   ErrUserNotFound.Message,
		Developer: fmt.Sprintf("User with id=%s not found", id),
	}
}

// NewEmailInUse reports a registration attempt for an existing email.
func NewEmailInUse(email string) error {
	return &ValidationError{
		Kind:      KindEmailInUse,
		Message:   ErrEmailInUse.Message,
		Developer: fmt.Sprintf("User with email=%s already exists", email),
	}
}

// NewMalformedCredentials reports a credential payload that could not be parsed.
func NewMalformedCredentials(cause error) error {
	return &ValidationError{
		Kind:      KindMalformedCredentials,
		Message:   ErrMalformedCredentials.Message,
		Developer: fmt.Sprintf("malformed credential payload: %v", cause),
	}
}

// NewInvalidRequest reports a request body that failed field validation.
func NewInvalidRequest(detail string) error {
	return &ValidationError{
		Kind:      KindInvalidRequest,
		Message:   ErrInvalidRequest.Message,
		Developer: detail,
	}
}

// AuthReason identifies why an authentication attempt failed.
type AuthReason int

const (
	AuthUserNotFound AuthReason = iota + 1
	AuthBadCredentials
	AuthAccountDisabled
)

func (r AuthReason) String() string {
	switch r {
	case AuthUserNotFound:
		return "user_not_found"
	case AuthBadCredentials:
		return "bad_credentials"
	case AuthAccountDisabled:
		return "account_disabled"
	default:
		return "unknown"
	}
}

// AuthError is an authentication failure. It always surfaces as 401.
type AuthError struct {
	Reason    AuthReason
	Developer string
}

func (e *AuthError) Error() string { return e.Developer }

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Reason == e.Reason
}

var (
	ErrAuthUserNotFound = &AuthError{Reason: AuthUserNotFound, Developer: "user not found"}
	ErrBadCredentials   = &AuthError{Reason: AuthBadCredentials, Developer: "Invalid password"}
	ErrAccountDisabled  = &AuthError{Reason: AuthAccountDisabled, Developer: "User account is disabled"}
)

// Token verification failures.
var (
	ErrTokenMalformed    = errors.New("token is malformed")
	ErrTokenBadSignature = errors.New("token signature is invalid")
	ErrTokenExpired      = errors.New("token is expired")
)
