package session

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ActiveTenant(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("unknown user has no session", func(t *testing.T) {
		_, found, err := store.ActiveTenant(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("stored tenant is restored", func(t *testing.T) {
		require.NoError(t, store.SetActiveTenant(ctx, "user-1", tenantID))
		got, found, err := store.ActiveTenant(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, tenantID, got)
	})

	t.Run("switching replaces the tenant", func(t *testing.T) {
		other := uuid.New()
		require.NoError(t, store.SetActiveTenant(ctx, "user-1", other))
		got, _, err := store.ActiveTenant(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, other, got)
	})

	t.Run("clear forgets the session", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, "user-1"))
		_, found, err := store.ActiveTenant(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("rejects missing ids", func(t *testing.T) {
		assert.ErrorIs(t, store.SetActiveTenant(ctx, "", tenantID), ErrUserRequired)
		assert.Error(t, store.SetActiveTenant(ctx, "user-2", uuid.Nil))
		_, _, err := store.ActiveTenant(ctx, "")
		assert.ErrorIs(t, err, ErrUserRequired)
	})
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	require.NoError(t, store.SetActiveTenant(ctx, "user-1", uuid.New()))

	now = now.Add(2 * time.Minute)
	_, found, err := store.ActiveTenant(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, found)

	store.cleanup()
	assert.Equal(t, 0, store.Size())
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestFactory_CreateStore(t *testing.T) {
	redisCfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("memory backend", func(t *testing.T) {
		store, err := NewFactory(redisCfg, config.SessionConfig{Backend: "memory", TTL: time.Hour}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		store, err := NewFactory(redisCfg, config.SessionConfig{Backend: "redis", TTL: time.Hour}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		_, err := NewFactory(redisCfg, config.SessionConfig{Backend: "redis"}, WithInMemoryFallback(false)).CreateStore()
		assert.Error(t, err)
	})
}
