package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"value-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore using Redis SET NX. The stored
// value is the entry id that claimed the nonce, so a client retrying the
// same entry is not mistaken for a replay.
type NonceStore struct {
	client *goredis.Client
	prefix string
}

// NewNonceStore creates a new Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: keyPrefix,
	}
}

// Claim binds nonce to entryID for senderID.
// Returns false if a different entry already holds the nonce.
func (s *NonceStore) Claim(ctx context.Context, senderID, nonce, entryID string, ttl time.Duration) (bool, error) {
	key := s.prefix + domain.BuildNonceKey(senderID, nonce)
	result, err := s.client.SetArgs(ctx, key, entryID, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err == nil {
		return result == "OK", nil
	}
	if !errors.Is(err, goredis.Nil) {
		return false, fmt.Errorf("redis nonce claim: %w", err)
	}

	// Key already exists
	holder, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// Expired between the two calls; try once more.
			return s.client.SetNX(ctx, key, entryID, ttl).Result()
		}
		return false, fmt.Errorf("redis nonce lookup: %w", err)
	}
	return holder == entryID, nil
}
