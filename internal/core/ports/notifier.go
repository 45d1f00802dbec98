package ports

import (
	"context"
	"errors"

	"github.com/tripeco/identity-service/internal/core/domain"
)

// Notifier delivers account notifications. Implementations must not block the
// caller on delivery and must not report delivery failures back to it.
type Notifier interface {
	NotifyNewUser(ctx context.Context, user domain.User, password string)
}

// NewUserMessage is the payload handed to a Mailer for one-time password delivery.
type NewUserMessage struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Mailer performs the actual delivery of a notification.
type Mailer interface {
	SendNewUser(ctx context.Context, msg NewUserMessage) error
}

// DeliveryDedup records which notifications were already handed to the mailer.
type DeliveryDedup interface {
	// Claim returns true when key was not seen before and is now reserved.
	Claim(ctx context.Context, key string) (bool, error)
}

// ErrDeliverySkipped is returned by a Mailer that deliberately did not send,
// for example outside production for recipients other than the test inbox.
var ErrDeliverySkipped = errors.New("notification delivery skipped")
