package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionData is the identity blob stored under session:<id>.
type SessionData struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// SessionStore keeps login sessions in Redis.
type SessionStore interface {
	Create(ctx context.Context, data SessionData) (string, error)
	Get(ctx context.Context, sessionID string) (*SessionData, error)
	Update(ctx context.Context, sessionID string, data SessionData) error
	Delete(ctx context.Context, sessionID string) error
}

type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) getKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Create stores data under a fresh random 32-byte session id.
func (s *RedisSessionStore) Create(ctx context.Context, data SessionData) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	sessionID := hex.EncodeToString(buf)

	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.getKey(sessionID), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return sessionID, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*SessionData, error) {
	raw, err := s.client.Get(ctx, s.getKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var data SessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Update overwrites the blob while keeping the remaining TTL.
func (s *RedisSessionStore) Update(ctx context.Context, sessionID string, data SessionData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	err = s.client.SetArgs(ctx, s.getKey(sessionID), payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err == redis.Nil {
		return ErrSessionNotFound
	}
	return err
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.getKey(sessionID)).Err()
}
