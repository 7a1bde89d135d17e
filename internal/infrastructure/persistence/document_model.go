package persistence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DocumentModel is one tenant-scoped document row.
// (tenant_id, collection, doc_id) is unique; Version increases on every write.
type DocumentModel struct {
	TenantID   uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Collection string            `gorm:"type:varchar(100);primaryKey"`
	DocID      string            `gorm:"column:doc_id;type:varchar(100);primaryKey"`
	Data       datatypes.JSONMap `gorm:"type:jsonb;not null"`
	Version    int64             `gorm:"not null;default:1"`
	CreatedAt  time.Time         `gorm:"not null"`
	UpdatedAt  time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// AutoMigrate creates or updates the documents table
func AutoMigrate(db *Database) error {
	return db.DB.AutoMigrate(&DocumentModel{})
}
