package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDedupTTL = 24 * time.Hour
	keyPrefix       = "identity:notify:"
)

// DeliveryDedup reserves notification keys in Redis so a job is handed to
// the mailer at most once while the key lives.
// Key format: identity:notify:<job key>
type DeliveryDedup struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeliveryDedup(client *redis.Client, ttl time.Duration) *DeliveryDedup {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DeliveryDedup{client: client, ttl: ttl}
}

// Claim reports true when the key was free and is now reserved.
func (d *DeliveryDedup) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}
