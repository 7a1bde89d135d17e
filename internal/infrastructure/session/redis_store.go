package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis so every instance sees the same active tenant
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(redisCfg config.RedisConfig, sessionCfg config.SessionConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, sessionCfg.KeyPrefix, sessionCfg.TTL), nil
}

// NewRedisStoreWithClient creates a store on an existing client
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "erp:session:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return s.keyPrefix + userID
}

// SetActiveTenant stores the tenant id with the session TTL
func (s *RedisStore) SetActiveTenant(ctx context.Context, userID string, tenantID uuid.UUID) error {
	if err := validate(userID, tenantID); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(userID), tenantID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store active tenant: %w", err)
	}
	return nil
}

// ActiveTenant reads the stored tenant id
func (s *RedisStore) ActiveTenant(ctx context.Context, userID string) (uuid.UUID, bool, error) {
	if userID == "" {
		return uuid.Nil, false, ErrUserRequired
	}
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to read active tenant: %w", err)
	}
	tenantID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt active tenant for user %s: %w", userID, err)
	}
	return tenantID, true, nil
}

// Clear deletes the user's session key
func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear active tenant: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
