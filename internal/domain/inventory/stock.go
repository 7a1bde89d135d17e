package inventory

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is used when no threshold is given
var DefaultLowStockThreshold = decimal.NewFromInt(10)

// Stock is the quantity of one product held in one warehouse.
// Invariant: Quantity >= 0, AvailableQuantity >= 0, ReservedQuantity >= 0.
type Stock struct {
	shared.BaseEntity
	ProductID         string          `json:"productId"`
	ProductSKU        string          `json:"productSku"`
	ProductName       string          `json:"productName"`
	WarehouseID       string          `json:"warehouseId"`
	WarehouseName     string          `json:"warehouseName"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReservedQuantity  decimal.Decimal `json:"reservedQuantity"`
	AvailableQuantity decimal.Decimal `json:"availableQuantity"`
	AverageCost       decimal.Decimal `json:"averageCost"`
	TotalValue        decimal.Decimal `json:"totalValue"`
	LastMovementAt    *time.Time      `json:"lastMovementAt,omitempty"`
}

// Adjust applies a signed quantity change to both the on-hand and available quantity.
// The stock is left untouched when either would become negative.
func (s *Stock) Adjust(delta decimal.Decimal, at time.Time) error {
	if delta.IsZero() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Adjustment quantity cannot be zero")
	}
	quantity := s.Quantity.Add(delta)
	available := s.AvailableQuantity.Add(delta)
	if quantity.IsNegative() || available.IsNegative() {
		return shared.ErrInsufficientStock
	}

	s.Quantity = quantity
	s.AvailableQuantity = available
	s.TotalValue = quantity.Mul(s.AverageCost)
	s.LastMovementAt = &at
	return nil
}

// Reserve moves qty from available to reserved
func (s *Stock) Reserve(qty decimal.Decimal, at time.Time) error {
	if err := requirePositive(qty); err != nil {
		return err
	}
	if s.AvailableQuantity.LessThan(qty) {
		return shared.NewDomainError(shared.CodeInsufficientStock, "Insufficient available stock")
	}

	s.AvailableQuantity = s.AvailableQuantity.Sub(qty)
	s.ReservedQuantity = s.ReservedQuantity.Add(qty)
	s.LastMovementAt = &at
	return nil
}

// Release moves qty from reserved back to available
func (s *Stock) Release(qty decimal.Decimal, at time.Time) error {
	if err := requirePositive(qty); err != nil {
		return err
	}
	if s.ReservedQuantity.LessThan(qty) {
		return shared.ErrInsufficientReserved
	}

	s.ReservedQuantity = s.ReservedQuantity.Sub(qty)
	s.AvailableQuantity = s.AvailableQuantity.Add(qty)
	s.LastMovementAt = &at
	return nil
}

// IsLow reports whether available stock is positive but under threshold
func (s *Stock) IsLow(threshold decimal.Decimal) bool {
	return s.AvailableQuantity.IsPositive() && s.AvailableQuantity.LessThan(threshold)
}

// IsOut reports whether nothing is available
func (s *Stock) IsOut() bool {
	return s.AvailableQuantity.IsZero()
}

// QuantityPatch returns the fields changed by Adjust, Reserve or Release
func (s *Stock) QuantityPatch() map[string]any {
	patch := map[string]any{
		FieldQuantity:          s.Quantity.String(),
		FieldReservedQuantity:  s.ReservedQuantity.String(),
		FieldAvailableQuantity: s.AvailableQuantity.String(),
		FieldTotalValue:        s.TotalValue.String(),
	}
	if s.LastMovementAt != nil {
		patch[FieldLastMovementAt] = s.LastMovementAt.UTC().Format(time.RFC3339Nano)
	}
	return patch
}

// StockSummary aggregates a set of stock records
type StockSummary struct {
	TotalValue    decimal.Decimal `json:"totalValue"`
	TotalItems    int             `json:"totalItems"`
	LowStockItems int             `json:"lowStockItems"`
	OutOfStock    int             `json:"outOfStockItems"`
}

// Summarize computes totals over stocks. Low stock here counts every record under
// the threshold, including empty ones.
func Summarize(stocks []Stock, threshold decimal.Decimal) StockSummary {
	sum := StockSummary{TotalValue: decimal.Zero, TotalItems: len(stocks)}
	for i := range stocks {
		sum.TotalValue = sum.TotalValue.Add(stocks[i].TotalValue)
		if stocks[i].AvailableQuantity.LessThan(threshold) {
			sum.LowStockItems++
		}
		if stocks[i].IsOut() {
			sum.OutOfStock++
		}
	}
	return sum
}

func requirePositive(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	return nil
}
