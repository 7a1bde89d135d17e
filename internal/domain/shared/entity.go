package shared

import (
	"time"
)

// Audit field names as stored in documents
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldCreatedBy = "createdBy"
	FieldUpdatedBy = "updatedBy"
	FieldIsActive  = "isActive"
)

// AuditFields are stamped by the data-access layer on every write.
// Values supplied by callers are ignored.
type AuditFields struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy"`
	UpdatedBy string    `json:"updatedBy"`
}

// Entity is the base interface for all tenant-scoped documents
type Entity interface {
	GetID() string
	SetID(id string)
}

// BaseEntity provides the id and audit fields shared by all documents
type BaseEntity struct {
	ID string `json:"id"`
	AuditFields
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() string {
	return e.ID
}

// SetID sets the entity ID
func (e *BaseEntity) SetID(id string) {
	e.ID = id
}
