package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
)

const keyPrefix = "session:"

// Store keeps opaque session tokens in Redis. Every successful Resolve
// extends the session by the full TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Create(ctx context.Context, accountID string) (string, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, keyPrefix+token, accountID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Resolve returns the account behind token, or ErrUnauthenticated when the
// session is missing or expired.
func (s *Store) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", entity.ErrUnauthenticated
	}
	accountID, err := s.rdb.GetEx(ctx, keyPrefix+token, s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", entity.ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	return accountID, nil
}

func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// TTL is how long an idle session stays valid.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
