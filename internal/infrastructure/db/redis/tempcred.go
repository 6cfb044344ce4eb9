package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/konekta/identity/internal/core/domain"
)

const tempCredTTL = 24 * time.Hour

// TempCredStore tracks which accounts currently hold a server-generated
// temporary credential. Entries expire on their own after tempCredTTL; login
// with an expired temporary credential fails the hash check and the user has
// to register again.
// Key format: tempcred:<normalized_email>
type TempCredStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTempCredStore creates a TempCredStore wrapping the given Redis client.
func NewTempCredStore(client *redis.Client) *TempCredStore {
	return &TempCredStore{client: client, ttl: tempCredTTL}
}

// Mark records that a temporary credential is outstanding for this account.
func (s *TempCredStore) Mark(ctx context.Context, email string) error {
	return s.client.Set(ctx, s.key(email), "1", s.ttl).Err()
}

// IsOutstanding reports whether the account still has an unexpired temporary
// credential.
func (s *TempCredStore) IsOutstanding(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(email)).Result()
	if err != nil {
		return false, fmt.Errorf("temp credential check: %w", err)
	}
	return n > 0, nil
}

// Clear retires the temporary credential, typically after the user sets a
// password of their own.
func (s *TempCredStore) Clear(ctx context.Context, email string) error {
	return s.client.Del(ctx, s.key(email)).Err()
}

func (s *TempCredStore) key(email string) string {
	return "tempcred:" + domain.NormalizeEmail(email)
}
