package redis

import (
	"context"
	"errors"
	"strings"
	"time"
)

const noncePrefix = "auth:nonce:"

// ErrNonceNotFound is returned when no challenge is pending for an address
var ErrNonceNotFound = errors.New("nonce not found or expired")

// NonceStore keeps one-time login challenges in Redis
type NonceStore struct{}

var (
	setNonceValue    = Set
	getDelNonceValue = GetDel
)

// NewNonceStore creates a new nonce store
func NewNonceStore() *NonceStore {
	return &NonceStore{}
}

// Put stores nonce for address, replacing any pending one
func (s *NonceStore) Put(ctx context.Context, address, nonce string, ttl time.Duration) error {
	return setNonceValue(ctx, nonceKey(address), nonce, ttl)
}

// Consume returns the pending nonce and deletes it, so a signature can be used once
func (s *NonceStore) Consume(ctx context.Context, address string) (string, error) {
	nonce, err := getDelNonceValue(ctx, nonceKey(address))
	if err != nil {
		if IsNil(err) {
			return "", ErrNonceNotFound
		}
		return "", err
	}
	return nonce, nil
}

func nonceKey(address string) string {
	return noncePrefix + strings.ToLower(address)
}
