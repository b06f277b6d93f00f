package vincere

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNoToken is returned when no credentials are stored for an owner key.
var ErrNoToken = errors.New("no stored credentials for owner")

// TokenStore persists per-owner credentials across pipeline runs.
// The refresh guard reads the current pair and writes back rotated tokens.
type TokenStore interface {
	Get(ctx context.Context, ownerKey string) (Credentials, error)
	Put(ctx context.Context, ownerKey string, creds Credentials) error
}

// MemoryTokenStore is a process-local TokenStore for single-instance
// deployments and tests.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	creds map[string]Credentials
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{creds: make(map[string]Credentials)}
}

func (s *MemoryTokenStore) Get(ctx context.Context, ownerKey string) (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[ownerKey]
	if !ok {
		return Credentials{}, ErrNoToken
	}
	return c, nil
}

func (s *MemoryTokenStore) Put(ctx context.Context, ownerKey string, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[ownerKey] = creds
	return nil
}

// RedisTokenStore keeps credentials in Redis so that multiple service
// instances share rotated refresh tokens.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore creates a TokenStore backed by the given Redis client.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) key(ownerKey string) string {
	return "vincere:tokens:" + ownerKey
}

func (s *RedisTokenStore) Get(ctx context.Context, ownerKey string) (Credentials, error) {
	data, err := s.client.Get(ctx, s.key(ownerKey)).Bytes()
	if err == redis.Nil {
		return Credentials{}, ErrNoToken
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("redis get credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse stored credentials: %w", err)
	}
	return creds, nil
}

func (s *RedisTokenStore) Put(ctx context.Context, ownerKey string, creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	// Refresh tokens are long-lived; no TTL.
	if err := s.client.Set(ctx, s.key(ownerKey), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set credentials: %w", err)
	}
	return nil
}
