package redis

// Package redis provides Redis-based adapters for the bulkhaus system.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
)

// SessionStore is a Redis-based session store for production use.
// It handles TTL semantics automatically based on session ExpiresAt.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: "session:",
	}
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := s.prefix + sess.ID
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	key := s.prefix + id
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// Redis TTL should have evicted expired sessions already; check
	// anyway so a clock-skewed write cannot resurrect one.
	if time.Now().After(sess.ExpiresAt) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	key := s.prefix + id
	return s.client.Del(ctx, key).Err()
}

// DeleteByUser removes every stored session belonging to userID and
// reports how many were deleted. Sessions are keyed by session ID only,
// so this scans the keyspace; it runs on role changes and suspensions,
// not on any hot path.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}

	deleted := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", sessionScanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan sessions: %w", err)
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return deleted, fmt.Errorf("redis get: %w", err)
			}

			var sess domainauth.Session
			if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
				continue
			}
			if sess.UserID != userID {
				continue
			}
			if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
				return deleted, fmt.Errorf("redis del: %w", delErr)
			}
			deleted++
		}

		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

const sessionScanBatch = 200

// ErrNotFound is returned when a session is not found.
type notFoundError struct{}

func (notFoundError) Error() string { return "session not found" }

var ErrNotFound error = notFoundError{}
