// Package identity holds the acting user and the organization an operation runs under.
package identity

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// Actor is the authenticated user performing an operation
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsZero reports whether no actor identity is resolved
func (a Actor) IsZero() bool {
	return a.ID == ""
}

// Scope is the explicit tenant and actor context passed to every data-access call.
// A zero TenantID means no organization is selected.
type Scope struct {
	TenantID uuid.UUID
	Actor    Actor
}

// NewScope creates a scope for the given tenant and actor
func NewScope(tenantID uuid.UUID, actor Actor) Scope {
	return Scope{TenantID: tenantID, Actor: actor}
}

// HasTenant reports whether a tenant is selected
func (s Scope) HasTenant() bool {
	return s.TenantID != uuid.Nil
}

// RequireTenant fails when no tenant is selected
func (s Scope) RequireTenant() error {
	if !s.HasTenant() {
		return shared.ErrTenantRequired
	}
	return nil
}

// RequireActor fails when no tenant is selected or no actor is resolved.
// Used by mutating operations.
func (s Scope) RequireActor() error {
	if err := s.RequireTenant(); err != nil {
		return err
	}
	if s.Actor.IsZero() {
		return shared.ErrActorRequired
	}
	return nil
}

// WithTenant returns a copy of the scope bound to another tenant
func (s Scope) WithTenant(tenantID uuid.UUID) Scope {
	s.TenantID = tenantID
	return s
}
