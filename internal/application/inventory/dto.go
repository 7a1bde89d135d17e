package inventory

import (
	"time"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Stock DTOs
// =============================================================================

// CreateStockRequest opens a stock record for a product in a warehouse
type CreateStockRequest struct {
	ProductID     string           `json:"productId" binding:"required"`
	ProductSKU    string           `json:"productSku"`
	ProductName   string           `json:"productName"`
	WarehouseID   string           `json:"warehouseId" binding:"required"`
	WarehouseName string           `json:"warehouseName"`
	Quantity      *decimal.Decimal `json:"quantity"`
	AverageCost   *decimal.Decimal `json:"averageCost"`
}

// StockChangeRequest addresses the stock of a product in a warehouse
type StockChangeRequest struct {
	ProductID   string          `json:"productId" binding:"required"`
	WarehouseID string          `json:"warehouseId" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// StockListFilter narrows a stock listing
type StockListFilter struct {
	ProductID   string `form:"productId"`
	WarehouseID string `form:"warehouseId"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// =============================================================================
// Warehouse DTOs
// =============================================================================

// CreateWarehouseRequest represents a request to create a warehouse.
// A blank code is replaced by the next number of the warehouse series.
type CreateWarehouseRequest struct {
	Code      string `json:"code" binding:"max=50"`
	Name      string `json:"name" binding:"required,min=1,max=200"`
	Address   string `json:"address" binding:"max=500"`
	Phone     string `json:"phone" binding:"max=50"`
	IsActive  *bool  `json:"isActive"`
	IsDefault bool   `json:"isDefault"`
}

// UpdateWarehouseRequest represents a partial warehouse update
type UpdateWarehouseRequest struct {
	Code      *string `json:"code" binding:"omitempty,min=1,max=50"`
	Name      *string `json:"name" binding:"omitempty,min=1,max=200"`
	Address   *string `json:"address" binding:"omitempty,max=500"`
	Phone     *string `json:"phone" binding:"omitempty,max=50"`
	IsActive  *bool   `json:"isActive"`
	IsDefault *bool   `json:"isDefault"`
}

// =============================================================================
// Stock movement DTOs
// =============================================================================

// CreateMovementRequest represents a request to record a stock movement
type CreateMovementRequest struct {
	Date            *time.Time             `json:"date"`
	Type            inventory.MovementType `json:"type" binding:"required,oneof=in out transfer adjustment"`
	ProductID       string                 `json:"productId" binding:"required"`
	ProductSKU      string                 `json:"productSku"`
	ProductName     string                 `json:"productName"`
	FromWarehouseID string                 `json:"fromWarehouseId"`
	ToWarehouseID   string                 `json:"toWarehouseId"`
	Quantity        decimal.Decimal        `json:"quantity"`
	Unit            string                 `json:"unit"`
	UnitCost        decimal.Decimal        `json:"unitCost"`
	ReferenceType   string                 `json:"referenceType"`
	ReferenceID     string                 `json:"referenceId"`
	ReferenceNumber string                 `json:"referenceNumber"`
	Notes           string                 `json:"notes" binding:"max=1000"`
}

// MovementListFilter narrows a movement listing
type MovementListFilter struct {
	ProductID   string     `form:"productId"`
	WarehouseID string     `form:"warehouseId"`
	Type        string     `form:"type" binding:"omitempty,oneof=in out transfer adjustment"`
	From        *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit       int        `form:"limit" binding:"omitempty,min=1,max=1000"`
}
