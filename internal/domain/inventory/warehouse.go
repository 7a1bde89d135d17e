package inventory

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
)

// DefaultWarehouseMarkerID is the settings document that records the current default warehouse.
// Every default switch writes it, so concurrent switches conflict and serialise.
const DefaultWarehouseMarkerID = "defaultWarehouse"

// Warehouse is a physical or logical stock location
type Warehouse struct {
	shared.BaseEntity
	Code      string `json:"code"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone,omitempty"`
	IsActive  bool   `json:"isActive"`
	IsDefault bool   `json:"isDefault"`
}

// DefaultWarehouseMarker is stored under settings/defaultWarehouse
type DefaultWarehouseMarker struct {
	WarehouseID string `json:"warehouseId"`
}

// Normalize trims the warehouse code and name and upper-cases the code
func (w *Warehouse) Normalize() {
	w.Code = strings.ToUpper(strings.TrimSpace(w.Code))
	w.Name = strings.TrimSpace(w.Name)
}

// Validate checks the warehouse invariants
func (w *Warehouse) Validate() error {
	if w.Code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse code cannot be empty")
	}
	if len(w.Code) > 50 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse code cannot exceed 50 characters")
	}
	if w.Name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Warehouse name cannot be empty")
	}
	return nil
}

// ErrWarehouseCodeExists is returned when a code is already taken within the tenant
var ErrWarehouseCodeExists = shared.NewDomainError(shared.CodeAlreadyExists, "Warehouse code already exists")
