package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps checkout sessions in Redis so that any worker in a
// multi-process deployment can resolve a session created by another. Entries
// expire server-side via the key TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis at %s: %w", addr, err)
	}

	slog.Info("Redis session store initialized", "addr", addr, "ttl", ttl.String())
	return &RedisStore{client: client, ttl: ttl}, nil
}

func sessionKey(sessionID string) string {
	return "checkout:session:" + sessionID
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*CheckoutSession, bool, error) {
	payload, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading session %s: %w", sessionID, err)
	}

	var s CheckoutSession
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, false, fmt.Errorf("error decoding session %s: %w", sessionID, err)
	}
	return &s, true, nil
}

func (r *RedisStore) Put(ctx context.Context, s *CheckoutSession) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("error encoding session %s: %w", s.SessionID, err)
	}
	if err := r.client.Set(ctx, sessionKey(s.SessionID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("error storing session %s: %w", s.SessionID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("error deleting session %s: %w", sessionID, err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
