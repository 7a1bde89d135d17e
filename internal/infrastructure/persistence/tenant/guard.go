package tenant

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Guard rejects query, update and delete statements on tenant-owned tables that
// carry no tenant_id condition
type Guard struct {
	tables map[string]struct{}
}

// NewGuard creates a guard for the given tables
func NewGuard(tables ...string) *Guard {
	g := &Guard{tables: make(map[string]struct{}, len(tables))}
	for _, t := range tables {
		g.tables[t] = struct{}{}
	}
	return g
}

// Register installs the guard callbacks on db
func (g *Guard) Register(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenant:guard_query", g.check); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenant:guard_update", g.check); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant:guard_delete", g.check); err != nil {
		return err
	}
	return db.Callback().Row().Before("gorm:row").Register("tenant:guard_row", g.check)
}

func (g *Guard) check(db *gorm.DB) {
	if db.Statement.Unscoped || db.Error != nil {
		return
	}
	if _, ok := g.tables[db.Statement.Table]; !ok {
		return
	}
	if !HasTenantCondition(db.Statement) {
		_ = db.AddError(ErrTenantIDRequired)
	}
}

// HasTenantCondition checks if a tenant_id condition is present in the WHERE clause
func HasTenantCondition(stmt *gorm.Statement) bool {
	c, ok := stmt.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if exprContainsTenant(expr) {
			return true
		}
	}
	return false
}

func exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return isTenantColumn(e.Column)
	case clause.IN:
		return isTenantColumn(e.Column)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if exprContainsTenant(cond) {
				return true
			}
		}
	}
	return false
}

func isTenantColumn(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == Column
	case string:
		return c == Column
	}
	return false
}
