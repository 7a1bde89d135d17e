package inventory

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypeIn         MovementType = "in"
	MovementTypeOut        MovementType = "out"
	MovementTypeTransfer   MovementType = "transfer"
	MovementTypeAdjustment MovementType = "adjustment"
)

// MovementTypes lists every movement type
var MovementTypes = []MovementType{MovementTypeIn, MovementTypeOut, MovementTypeTransfer, MovementTypeAdjustment}

// IsValid checks if the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeTransfer, MovementTypeAdjustment:
		return true
	}
	return false
}

// StockMovement records one change of stock. MovementNumber is minted from the
// stockMovement sequence when the movement is created.
type StockMovement struct {
	shared.BaseEntity
	MovementNumber  string          `json:"movementNumber"`
	Date            time.Time       `json:"date"`
	Type            MovementType    `json:"type"`
	ProductID       string          `json:"productId"`
	ProductSKU      string          `json:"productSku"`
	ProductName     string          `json:"productName"`
	FromWarehouseID string          `json:"fromWarehouseId,omitempty"`
	ToWarehouseID   string          `json:"toWarehouseId,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	TotalCost       decimal.Decimal `json:"totalCost"`
	ReferenceType   string          `json:"referenceType,omitempty"`
	ReferenceID     string          `json:"referenceId,omitempty"`
	ReferenceNumber string          `json:"referenceNumber,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// Validate checks the movement invariants and fills in the total cost
func (m *StockMovement) Validate() error {
	if !m.Type.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid movement type: "+string(m.Type))
	}
	if m.ProductID == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product ID is required")
	}
	if !m.Quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	switch m.Type {
	case MovementTypeIn:
		if m.ToWarehouseID == "" {
			return shared.NewDomainError(shared.CodeInvalidInput, "Destination warehouse is required")
		}
	case MovementTypeOut:
		if m.FromWarehouseID == "" {
			return shared.NewDomainError(shared.CodeInvalidInput, "Source warehouse is required")
		}
	case MovementTypeTransfer:
		if m.FromWarehouseID == "" || m.ToWarehouseID == "" {
			return shared.NewDomainError(shared.CodeInvalidInput, "Transfer requires source and destination warehouses")
		}
		if m.FromWarehouseID == m.ToWarehouseID {
			return shared.NewDomainError(shared.CodeInvalidInput, "Transfer source and destination must differ")
		}
	}
	if m.UnitCost.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unit cost cannot be negative")
	}
	m.TotalCost = m.Quantity.Mul(m.UnitCost)
	return nil
}

// TouchesWarehouse reports whether the movement leaves or enters the warehouse
func (m *StockMovement) TouchesWarehouse(warehouseID string) bool {
	return m.FromWarehouseID == warehouseID || m.ToWarehouseID == warehouseID
}

// InRange reports whether the movement date is within [start, end]
func (m *StockMovement) InRange(start, end time.Time) bool {
	return !m.Date.Before(start) && !m.Date.After(end)
}
