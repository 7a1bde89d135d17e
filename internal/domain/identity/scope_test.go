package identity

import (
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScope_RequireTenant(t *testing.T) {
	assert.ErrorIs(t, Scope{}.RequireTenant(), shared.ErrTenantRequired)
	assert.NoError(t, NewScope(uuid.New(), Actor{}).RequireTenant())
}

func TestScope_RequireActor(t *testing.T) {
	t.Run("tenant checked first", func(t *testing.T) {
		err := NewScope(uuid.Nil, Actor{ID: "u1"}).RequireActor()
		assert.ErrorIs(t, err, shared.ErrTenantRequired)
	})

	t.Run("missing actor", func(t *testing.T) {
		err := NewScope(uuid.New(), Actor{Name: "no id"}).RequireActor()
		assert.ErrorIs(t, err, shared.ErrActorRequired)
	})

	t.Run("resolved", func(t *testing.T) {
		assert.NoError(t, NewScope(uuid.New(), Actor{ID: "u1"}).RequireActor())
	})
}

func TestScope_WithTenant(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	s := NewScope(a, Actor{ID: "u1"})
	other := s.WithTenant(b)

	assert.Equal(t, a, s.TenantID)
	assert.Equal(t, b, other.TenantID)
	assert.Equal(t, "u1", other.Actor.ID)
}
