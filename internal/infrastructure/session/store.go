// Package session persists the active organization each user selected, so a
// returning user resumes in the same tenant.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserRequired is returned when a session operation has no user id
var ErrUserRequired = errors.New("session: user id is required")

// Store keeps the active tenant per user
type Store interface {
	// SetActiveTenant records the tenant the user is working in
	SetActiveTenant(ctx context.Context, userID string, tenantID uuid.UUID) error
	// ActiveTenant returns the stored tenant; found is false when none is stored or it expired
	ActiveTenant(ctx context.Context, userID string) (tenantID uuid.UUID, found bool, err error)
	// Clear forgets the user's active tenant
	Clear(ctx context.Context, userID string) error
	Close() error
}

func validate(userID string, tenantID uuid.UUID) error {
	if userID == "" {
		return ErrUserRequired
	}
	if tenantID == uuid.Nil {
		return errors.New("session: tenant id is required")
	}
	return nil
}
