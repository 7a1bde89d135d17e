package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/application/scoped"
	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultRecentMovements is the page size of GetRecent when none is given
const DefaultRecentMovements = 10

// MovementService records stock movements and answers movement history queries
type MovementService struct {
	movements *scoped.Repository[inventory.StockMovement]
	numbers   NumberGenerator
	now       func() time.Time
}

// NewMovementService creates a new MovementService
func NewMovementService(store docstore.Store, numbers NumberGenerator) *MovementService {
	return &MovementService{
		movements: scoped.NewRepository[inventory.StockMovement](store, inventory.CollectionStockMovements),
		numbers:   numbers,
		now:       time.Now,
	}
}

// Create validates and stores a movement under the next stockMovement number
func (s *MovementService) Create(ctx context.Context, scope identity.Scope, req CreateMovementRequest) (*inventory.StockMovement, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}

	movement := &inventory.StockMovement{
		Type:            req.Type,
		ProductID:       req.ProductID,
		ProductSKU:      req.ProductSKU,
		ProductName:     req.ProductName,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		Quantity:        req.Quantity,
		Unit:            strings.TrimSpace(req.Unit),
		UnitCost:        req.UnitCost,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	if req.Date != nil {
		movement.Date = req.Date.UTC()
	} else {
		movement.Date = s.now().UTC()
	}
	if movement.Unit == "" {
		movement.Unit = inventory.DefaultUnit
	}
	if err := movement.Validate(); err != nil {
		return nil, err
	}

	number, err := s.numbers.GenerateNumber(ctx, scope, numbering.DocumentTypeStockMovement)
	if err != nil {
		return nil, err
	}
	movement.MovementNumber = number

	id, err := s.movements.Create(ctx, scope, movement)
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("stock movement recorded",
		zap.String("movement_id", id),
		zap.String("movement_number", number),
		zap.String("type", string(movement.Type)),
	)
	return movement, nil
}

// GetByID retrieves a movement by ID
func (s *MovementService) GetByID(ctx context.Context, scope identity.Scope, id string) (*inventory.StockMovement, error) {
	return s.movements.MustGet(ctx, scope, id)
}

func byDateDesc() shared.Query {
	return shared.NewQuery().Order(inventory.FieldMovementDate, shared.OrderDesc)
}

// List returns movements matching the filter, newest first
func (s *MovementService) List(ctx context.Context, scope identity.Scope, filter MovementListFilter) ([]inventory.StockMovement, error) {
	q := byDateDesc()
	if filter.ProductID != "" {
		q = q.Where(inventory.FieldProductID, shared.OpEqual, filter.ProductID)
	}
	if filter.Type != "" {
		q = q.Where(inventory.FieldMovementType, shared.OpEqual, filter.Type)
	}
	if filter.From != nil {
		q = q.Where(inventory.FieldMovementDate, shared.OpGreaterEqual, filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where(inventory.FieldMovementDate, shared.OpLessEqual, filter.To.UTC())
	}
	if filter.WarehouseID == "" {
		return s.movements.GetAll(ctx, scope, q.WithLimit(filter.Limit))
	}

	// a warehouse matches either end of a movement, so both sides are queried and merged
	from, err := s.movements.GetAll(ctx, scope, q.Where(inventory.FieldFromWarehouseID, shared.OpEqual, filter.WarehouseID))
	if err != nil {
		return nil, err
	}
	to, err := s.movements.GetAll(ctx, scope, q.Where(inventory.FieldToWarehouseID, shared.OpEqual, filter.WarehouseID))
	if err != nil {
		return nil, err
	}
	merged := lo.UniqBy(append(from, to...), func(m inventory.StockMovement) string { return m.ID })
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date.After(merged[j].Date) })
	if filter.Limit > 0 && len(merged) > filter.Limit {
		merged = merged[:filter.Limit]
	}
	return merged, nil
}

// GetByProduct returns the movements of a product, newest first
func (s *MovementService) GetByProduct(ctx context.Context, scope identity.Scope, productID string) ([]inventory.StockMovement, error) {
	return s.List(ctx, scope, MovementListFilter{ProductID: productID})
}

// GetByWarehouse returns the movements leaving or entering a warehouse, newest first
func (s *MovementService) GetByWarehouse(ctx context.Context, scope identity.Scope, warehouseID string) ([]inventory.StockMovement, error) {
	return s.List(ctx, scope, MovementListFilter{WarehouseID: warehouseID})
}

// GetByType returns the movements of one type, newest first
func (s *MovementService) GetByType(ctx context.Context, scope identity.Scope, movementType inventory.MovementType) ([]inventory.StockMovement, error) {
	if !movementType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid movement type: "+string(movementType))
	}
	return s.List(ctx, scope, MovementListFilter{Type: string(movementType)})
}

// GetByDateRange returns the movements dated within [start, end], newest first
func (s *MovementService) GetByDateRange(ctx context.Context, scope identity.Scope, start, end time.Time) ([]inventory.StockMovement, error) {
	if end.Before(start) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Date range end is before its start")
	}
	return s.List(ctx, scope, MovementListFilter{From: &start, To: &end})
}

// GetRecent returns the n newest movements
func (s *MovementService) GetRecent(ctx context.Context, scope identity.Scope, n int) ([]inventory.StockMovement, error) {
	if n <= 0 {
		n = DefaultRecentMovements
	}
	return s.movements.GetAll(ctx, scope, byDateDesc().WithLimit(n))
}

// CountByType returns the number of movements per type. Every type is present in the result.
func (s *MovementService) CountByType(ctx context.Context, scope identity.Scope) (map[inventory.MovementType]int, error) {
	counts := make(map[inventory.MovementType]int, len(inventory.MovementTypes))
	for _, t := range inventory.MovementTypes {
		n, err := s.movements.Count(ctx, scope, shared.NewQuery().Where(inventory.FieldMovementType, shared.OpEqual, string(t)))
		if err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, nil
}
