// Package inventory applies the stock, warehouse and stock movement rules on top of
// the tenant-scoped repositories.
package inventory

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/application/scoped"
	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const stockServiceName = "StockService"

// Stock operations as reported in metrics
const (
	opAdjust  = "adjust"
	opReserve = "reserve"
	opRelease = "release"
)

// StockService handles stock levels. Adjust, reserve and release are
// transactional read-modify-writes of one stock document.
type StockService struct {
	store   docstore.Store
	stocks  *scoped.Repository[inventory.Stock]
	metrics *telemetry.BusinessMetrics
	now     func() time.Time
}

// NewStockService creates a new StockService
func NewStockService(store docstore.Store, metrics *telemetry.BusinessMetrics) *StockService {
	if metrics == nil {
		metrics = telemetry.DefaultBusinessMetrics()
	}
	return &StockService{
		store:   store,
		stocks:  scoped.NewRepository[inventory.Stock](store, inventory.CollectionStock),
		metrics: metrics,
		now:     time.Now,
	}
}

// StockID is the id of the stock document for a product in a warehouse
func StockID(productID, warehouseID string) string {
	return productID + "_" + warehouseID
}

// Create opens the stock record for a product in a warehouse.
// A second record for the same pair is rejected with ALREADY_EXISTS.
func (s *StockService) Create(ctx context.Context, scope identity.Scope, req CreateStockRequest) (*inventory.Stock, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	if req.ProductID == "" || req.WarehouseID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product and warehouse are required")
	}

	stock := &inventory.Stock{
		ProductID:     req.ProductID,
		ProductSKU:    req.ProductSKU,
		ProductName:   req.ProductName,
		WarehouseID:   req.WarehouseID,
		WarehouseName: req.WarehouseName,
	}
	if req.AverageCost != nil {
		stock.AverageCost = *req.AverageCost
	}
	if req.Quantity != nil {
		stock.Quantity = *req.Quantity
	}
	if stock.Quantity.IsNegative() || stock.AverageCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity and cost cannot be negative")
	}
	stock.AvailableQuantity = stock.Quantity
	stock.TotalValue = stock.Quantity.Mul(stock.AverageCost)

	doc, err := s.stocks.CreateDocument(scope, stock)
	if err != nil {
		return nil, err
	}
	id := StockID(req.ProductID, req.WarehouseID)
	key := s.stocks.Key(scope, id)
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, err := tx.Get(key)
		if err != nil {
			return err
		}
		if snap.Exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Stock record already exists for this product and warehouse")
		}
		return tx.Set(key, doc)
	})
	if err != nil {
		return nil, err
	}
	return s.stocks.MustGet(ctx, scope, id)
}

// GetByID returns one stock record
func (s *StockService) GetByID(ctx context.Context, scope identity.Scope, id string) (*inventory.Stock, error) {
	return s.stocks.MustGet(ctx, scope, id)
}

// List returns stock records matching the filter
func (s *StockService) List(ctx context.Context, scope identity.Scope, filter StockListFilter) ([]inventory.Stock, error) {
	q := shared.NewQuery().Order(inventory.FieldProductID, shared.OrderAsc)
	if filter.ProductID != "" {
		q = q.Where(inventory.FieldProductID, shared.OpEqual, filter.ProductID)
	}
	if filter.WarehouseID != "" {
		q = q.Where(inventory.FieldWarehouseID, shared.OpEqual, filter.WarehouseID)
	}
	return s.stocks.GetAll(ctx, scope, q.WithLimit(filter.Limit).WithOffset(filter.Offset))
}

// GetByProduct returns the stock of a product, optionally in one warehouse only
func (s *StockService) GetByProduct(ctx context.Context, scope identity.Scope, productID, warehouseID string) ([]inventory.Stock, error) {
	return s.List(ctx, scope, StockListFilter{ProductID: productID, WarehouseID: warehouseID})
}

// GetByWarehouse returns every stock record held in a warehouse
func (s *StockService) GetByWarehouse(ctx context.Context, scope identity.Scope, warehouseID string) ([]inventory.Stock, error) {
	return s.List(ctx, scope, StockListFilter{WarehouseID: warehouseID})
}

// GetLowStock returns records whose available quantity is positive but under
// threshold. A nil threshold uses the default of 10.
func (s *StockService) GetLowStock(ctx context.Context, scope identity.Scope, threshold *decimal.Decimal) ([]inventory.Stock, error) {
	limit := inventory.DefaultLowStockThreshold
	if threshold != nil {
		limit = *threshold
	}
	q := shared.NewQuery().
		Where(inventory.FieldAvailableQuantity, shared.OpGreater, decimal.Zero).
		Where(inventory.FieldAvailableQuantity, shared.OpLess, limit).
		Order(inventory.FieldAvailableQuantity, shared.OrderAsc)
	return s.stocks.GetAll(ctx, scope, q)
}

// GetOutOfStock returns records with nothing available
func (s *StockService) GetOutOfStock(ctx context.Context, scope identity.Scope) ([]inventory.Stock, error) {
	q := shared.NewQuery().Where(inventory.FieldAvailableQuantity, shared.OpLessEqual, decimal.Zero)
	return s.stocks.GetAll(ctx, scope, q)
}

// GetSummary aggregates the stock of the tenant, or of one warehouse when warehouseID is set
func (s *StockService) GetSummary(ctx context.Context, scope identity.Scope, warehouseID string, threshold *decimal.Decimal) (*inventory.StockSummary, error) {
	stocks, err := s.List(ctx, scope, StockListFilter{WarehouseID: warehouseID})
	if err != nil {
		return nil, err
	}
	limit := inventory.DefaultLowStockThreshold
	if threshold != nil {
		limit = *threshold
	}
	summary := inventory.Summarize(stocks, limit)
	return &summary, nil
}

// AdjustStock applies a signed quantity change. A change that would make the
// on-hand or available quantity negative fails with INSUFFICIENT_STOCK and
// writes nothing.
func (s *StockService) AdjustStock(ctx context.Context, scope identity.Scope, productID, warehouseID string, delta decimal.Decimal) (*inventory.Stock, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	if delta.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Adjustment quantity cannot be zero")
	}
	return s.change(ctx, scope, opAdjust, productID, warehouseID, delta, func(stock *inventory.Stock, at time.Time) error {
		return stock.Adjust(delta, at)
	})
}

// ReserveStock moves qty from available to reserved
func (s *StockService) ReserveStock(ctx context.Context, scope identity.Scope, productID, warehouseID string, qty decimal.Decimal) (*inventory.Stock, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	return s.change(ctx, scope, opReserve, productID, warehouseID, qty, func(stock *inventory.Stock, at time.Time) error {
		return stock.Reserve(qty, at)
	})
}

// ReleaseReservedStock moves qty from reserved back to available
func (s *StockService) ReleaseReservedStock(ctx context.Context, scope identity.Scope, productID, warehouseID string, qty decimal.Decimal) (*inventory.Stock, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	return s.change(ctx, scope, opRelease, productID, warehouseID, qty, func(stock *inventory.Stock, at time.Time) error {
		return stock.Release(qty, at)
	})
}

// locate finds the stock document of a product in a warehouse
func (s *StockService) locate(ctx context.Context, scope identity.Scope, productID, warehouseID string) (docstore.Key, error) {
	q := shared.NewQuery().
		Where(inventory.FieldProductID, shared.OpEqual, productID).
		Where(inventory.FieldWarehouseID, shared.OpEqual, warehouseID).
		WithLimit(1)
	found, err := s.stocks.GetAll(ctx, scope, q)
	if err != nil {
		return docstore.Key{}, err
	}
	if len(found) == 0 {
		return docstore.Key{}, shared.NewDomainError(shared.CodeNotFound, "Stock record not found for product in warehouse")
	}
	return s.stocks.Key(scope, found[0].ID), nil
}

func (s *StockService) change(
	ctx context.Context,
	scope identity.Scope,
	op, productID, warehouseID string,
	qty decimal.Decimal,
	apply func(*inventory.Stock, time.Time) error,
) (*inventory.Stock, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, stockServiceName, op, scope,
		telemetry.AttrProductID, productID,
		telemetry.AttrWarehouseID, warehouseID,
		telemetry.AttrQuantity, qty.String(),
	)
	defer span.End()

	key, err := s.locate(ctx, scope, productID, warehouseID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *inventory.Stock
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, err := tx.Get(key)
		if err != nil {
			return err
		}
		if !snap.Exists {
			return docstore.NotFound(key)
		}
		stock, err := s.stocks.Decode(*snap)
		if err != nil {
			return err
		}
		if err := apply(stock, s.now().UTC()); err != nil {
			return err
		}
		patch, err := s.stocks.UpdatePatch(scope, stock.QuantityPatch())
		if err != nil {
			return err
		}
		result = stock
		return tx.Update(key, patch)
	})

	outcome := "ok"
	if err != nil {
		outcome = shared.CodeOf(err)
		if outcome == "" {
			outcome = "error"
		}
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("stock change rejected",
			zap.String("operation", op),
			zap.String("product_id", productID),
			zap.String("warehouse_id", warehouseID),
			zap.String("quantity", qty.String()),
			zap.Error(err),
		)
	}
	s.metrics.RecordStockChange(ctx, op, outcome)
	if err != nil {
		return nil, err
	}
	return result, nil
}
