// Package tenant provides tenant scoping for GORM queries.
//
// Every query against tenant-owned tables carries an explicit tenant id:
//
//	tdb := tenant.NewTenantDB(gormDB)
//	tdb.WithTenant(scope.TenantID).WithContext(ctx).Find(&rows) // WHERE tenant_id = '...'
//
// A guard callback can be registered to reject statements that forget the filter.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the tenant id column shared by tenant-owned tables
const Column = "tenant_id"

// ErrTenantIDRequired is returned when a tenant-owned table is accessed without a tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// TenantScope applies tenant filtering to GORM queries
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: Column},
			Value:  tenantID,
		})
	}
}

// TenantDB wraps GORM DB with explicit tenant scoping
type TenantDB struct {
	db *gorm.DB
}

// NewTenantDB creates a new TenantDB
func NewTenantDB(db *gorm.DB) *TenantDB {
	return &TenantDB{db: db}
}

// WithTenant returns a new session scoped to tenantID. A nil tenant yields a
// session that fails every statement with ErrTenantIDRequired.
func (t *TenantDB) WithTenant(tenantID uuid.UUID) *gorm.DB {
	return t.db.Session(&gorm.Session{NewDB: true}).Scopes(TenantScope(tenantID))
}
