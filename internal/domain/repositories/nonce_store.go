package repositories

import (
	"context"
	"time"
)

// NonceStore keeps one-time login challenges
type NonceStore interface {
	Put(ctx context.Context, address, nonce string, ttl time.Duration) error
	// Consume returns the stored nonce and deletes it.
	Consume(ctx context.Context, address string) (string, error)
}
