// Package session stores identity sessions in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"showcase/api/internal/store"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// RedisStore keeps one key per session token hash, expiring with the session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and checks the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	client, err := Dial(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStoreWithClient(client), nil
}

// Dial parses redisURL and pings the server.
func Dial(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "identity:",
	}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

// SaveSession writes the session, replacing any earlier state for the token.
func (s *RedisStore) SaveSession(ctx context.Context, tokenHash string, sess store.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if sess.ExpiresAt.IsZero() {
		ttl = defaultTTL
	}
	if ttl <= 0 {
		return s.RevokeSession(ctx, tokenHash)
	}

	if err := s.client.Set(ctx, s.key(tokenHash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) LookupSession(ctx context.Context, tokenHash string) (store.Session, error) {
	payload, err := s.client.Get(ctx, s.key(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return store.Session{}, store.ErrSessionNotFound
	}
	if err != nil {
		return store.Session{}, fmt.Errorf("lookup session: %w", err)
	}

	var sess store.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return store.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.Role == "" {
		sess.Role = "visitor"
	}
	return sess, nil
}

func (s *RedisStore) RevokeSession(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
