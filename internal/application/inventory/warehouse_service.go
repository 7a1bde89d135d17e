package inventory

import (
	"context"
	"strings"

	"github.com/erp/backoffice/internal/application/scoped"
	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// NumberGenerator issues document numbers
type NumberGenerator interface {
	GenerateNumber(ctx context.Context, scope identity.Scope, docType numbering.DocumentType) (string, error)
}

// WarehouseService handles warehouse-related business operations.
// At most one warehouse per tenant is the default; every switch of the default
// runs in one transaction that also rewrites the settings/defaultWarehouse marker.
type WarehouseService struct {
	store      docstore.Store
	warehouses *scoped.Repository[inventory.Warehouse]
	numbers    NumberGenerator
}

// NewWarehouseService creates a new WarehouseService
func NewWarehouseService(store docstore.Store, numbers NumberGenerator) *WarehouseService {
	return &WarehouseService{
		store:      store,
		warehouses: scoped.NewRepository[inventory.Warehouse](store, inventory.CollectionWarehouses),
		numbers:    numbers,
	}
}

func markerKey(scope identity.Scope) docstore.Key {
	return docstore.Collection(scope.TenantID, numbering.SettingsCollection).Doc(inventory.DefaultWarehouseMarkerID)
}

// Create creates a new warehouse
func (s *WarehouseService) Create(ctx context.Context, scope identity.Scope, req CreateWarehouseRequest) (*inventory.Warehouse, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}

	warehouse := &inventory.Warehouse{
		Code:     req.Code,
		Name:     req.Name,
		Address:  strings.TrimSpace(req.Address),
		Phone:    strings.TrimSpace(req.Phone),
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	warehouse.Normalize()
	if warehouse.Name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Warehouse name cannot be empty")
	}

	if warehouse.Code == "" {
		code, err := s.numbers.GenerateNumber(ctx, scope, numbering.DocumentTypeWarehouse)
		if err != nil {
			return nil, err
		}
		warehouse.Code = code
	}
	if err := warehouse.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.codeTaken(ctx, scope, warehouse.Code, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, inventory.ErrWarehouseCodeExists
	}

	if !req.IsDefault {
		id, err := s.warehouses.Create(ctx, scope, warehouse)
		if err != nil {
			return nil, err
		}
		logger.L(ctx).Info("warehouse created", zap.String("warehouse_id", id), zap.String("code", warehouse.Code))
		return warehouse, nil
	}

	warehouse.IsDefault = true
	doc, err := s.warehouses.CreateDocument(scope, warehouse)
	if err != nil {
		return nil, err
	}
	id := docstore.NewID()
	err = s.switchDefault(ctx, scope, id, false, func(tx docstore.Tx, key docstore.Key) error {
		return tx.Set(key, doc)
	})
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("default warehouse created", zap.String("warehouse_id", id), zap.String("code", warehouse.Code))
	return s.warehouses.MustGet(ctx, scope, id)
}

// GetByID retrieves a warehouse by ID
func (s *WarehouseService) GetByID(ctx context.Context, scope identity.Scope, id string) (*inventory.Warehouse, error) {
	return s.warehouses.MustGet(ctx, scope, id)
}

// GetByCode retrieves a warehouse by code
func (s *WarehouseService) GetByCode(ctx context.Context, scope identity.Scope, code string) (*inventory.Warehouse, error) {
	found, err := s.warehouses.GetAll(ctx, scope, shared.NewQuery().
		Where(inventory.FieldCode, shared.OpEqual, strings.ToUpper(strings.TrimSpace(code))).
		WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Warehouse not found")
	}
	return &found[0], nil
}

// List returns every warehouse ordered by code
func (s *WarehouseService) List(ctx context.Context, scope identity.Scope) ([]inventory.Warehouse, error) {
	return s.warehouses.GetAll(ctx, scope, shared.NewQuery().Order(inventory.FieldCode, shared.OrderAsc))
}

// ListActive returns the active warehouses ordered by name
func (s *WarehouseService) ListActive(ctx context.Context, scope identity.Scope) ([]inventory.Warehouse, error) {
	return s.warehouses.GetAll(ctx, scope, shared.NewQuery().
		Where(shared.FieldIsActive, shared.OpEqual, true).
		Order("name", shared.OrderAsc))
}

// GetDefault returns the active default warehouse; found is false when none is set
func (s *WarehouseService) GetDefault(ctx context.Context, scope identity.Scope) (*inventory.Warehouse, bool, error) {
	found, err := s.warehouses.GetAll(ctx, scope, shared.NewQuery().
		Where(inventory.FieldIsDefault, shared.OpEqual, true).
		Where(shared.FieldIsActive, shared.OpEqual, true).
		WithLimit(1))
	if err != nil {
		return nil, false, err
	}
	if len(found) == 0 {
		return nil, false, nil
	}
	return &found[0], true, nil
}

// Update applies a partial update. Setting isDefault makes the warehouse the only default.
func (s *WarehouseService) Update(ctx context.Context, scope identity.Scope, id string, req UpdateWarehouseRequest) (*inventory.Warehouse, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	warehouse, err := s.warehouses.MustGet(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		warehouse.Code = *req.Code
	}
	if req.Name != nil {
		warehouse.Name = *req.Name
	}
	warehouse.Normalize()
	if err := warehouse.Validate(); err != nil {
		return nil, err
	}

	patch := docstore.Document{}
	if req.Code != nil {
		taken, err := s.codeTaken(ctx, scope, warehouse.Code, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, inventory.ErrWarehouseCodeExists
		}
		patch[inventory.FieldCode] = warehouse.Code
	}
	if req.Name != nil {
		patch["name"] = warehouse.Name
	}
	if req.Address != nil {
		patch["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		patch["phone"] = strings.TrimSpace(*req.Phone)
	}
	deactivate := req.IsActive != nil && !*req.IsActive
	if deactivate && req.IsDefault != nil && *req.IsDefault {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "An inactive warehouse cannot be the default")
	}
	if req.IsActive != nil && *req.IsActive {
		patch[shared.FieldIsActive] = true
	}

	if len(patch) > 0 {
		if err := s.warehouses.Update(ctx, scope, id, patch); err != nil {
			return nil, err
		}
	}

	switch {
	case deactivate:
		err = s.unsetDefault(ctx, scope, id, docstore.Document{shared.FieldIsActive: false})
	case req.IsDefault != nil && *req.IsDefault:
		err = s.SetDefault(ctx, scope, id)
	case req.IsDefault != nil:
		err = s.unsetDefault(ctx, scope, id, nil)
	}
	if err != nil {
		return nil, err
	}
	return s.warehouses.MustGet(ctx, scope, id)
}

// SetDefault makes the warehouse the tenant's only default
func (s *WarehouseService) SetDefault(ctx context.Context, scope identity.Scope, id string) error {
	if err := scope.RequireActor(); err != nil {
		return err
	}
	patch, err := s.warehouses.UpdatePatch(scope, docstore.Document{inventory.FieldIsDefault: true})
	if err != nil {
		return err
	}
	err = s.switchDefault(ctx, scope, id, true, func(tx docstore.Tx, key docstore.Key) error {
		return tx.Update(key, patch)
	})
	if err != nil {
		return err
	}
	logger.L(ctx).Info("default warehouse changed", zap.String("warehouse_id", id))
	return nil
}

// switchDefault makes id the default in one transaction: every previous default is
// unset, write stores the target and the marker is pointed at id. When mustExist is
// set the target is read first and a missing target fails with NOT_FOUND.
func (s *WarehouseService) switchDefault(
	ctx context.Context,
	scope identity.Scope,
	id string,
	mustExist bool,
	write func(tx docstore.Tx, key docstore.Key) error,
) error {
	current, err := s.warehouses.GetWhere(ctx, scope, inventory.FieldIsDefault, shared.OpEqual, true)
	if err != nil {
		return err
	}
	unset, err := s.warehouses.UpdatePatch(scope, docstore.Document{inventory.FieldIsDefault: false})
	if err != nil {
		return err
	}
	target := s.warehouses.Key(scope, id)
	marker := markerKey(scope)

	return s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		markerSnap, err := tx.Get(marker)
		if err != nil {
			return err
		}
		candidates := make([]string, 0, len(current)+1)
		for i := range current {
			candidates = append(candidates, current[i].ID)
		}
		if prevID, _ := markerSnap.Data[inventory.FieldWarehouseID].(string); prevID != "" {
			candidates = append(candidates, prevID)
		}

		// previous defaults are read so a concurrent change to them aborts the commit
		var previous []docstore.Key
		seen := map[string]bool{id: true}
		for _, prevID := range candidates {
			if seen[prevID] {
				continue
			}
			seen[prevID] = true
			k := s.warehouses.Key(scope, prevID)
			snap, err := tx.Get(k)
			if err != nil {
				return err
			}
			if snap.Exists {
				previous = append(previous, k)
			}
		}
		if mustExist {
			snap, err := tx.Get(target)
			if err != nil {
				return err
			}
			if !snap.Exists {
				return docstore.NotFound(target)
			}
		}

		for _, k := range previous {
			if err := tx.Update(k, unset); err != nil {
				return err
			}
		}
		if err := write(tx, target); err != nil {
			return err
		}
		return tx.Set(marker, docstore.Document{inventory.FieldWarehouseID: id})
	})
}

// unsetDefault clears isDefault on id together with fields, and drops the marker
// when it points at id, in one transaction
func (s *WarehouseService) unsetDefault(ctx context.Context, scope identity.Scope, id string, fields docstore.Document) error {
	change := docstore.Document{inventory.FieldIsDefault: false}
	for k, v := range fields {
		change[k] = v
	}
	patch, err := s.warehouses.UpdatePatch(scope, change)
	if err != nil {
		return err
	}
	key := s.warehouses.Key(scope, id)
	marker := markerKey(scope)
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		markerSnap, err := tx.Get(marker)
		if err != nil {
			return err
		}
		snap, err := tx.Get(key)
		if err != nil {
			return err
		}
		if !snap.Exists {
			return docstore.NotFound(key)
		}
		if err := tx.Update(key, patch); err != nil {
			return err
		}
		if prevID, _ := markerSnap.Data[inventory.FieldWarehouseID].(string); prevID == id {
			return tx.Delete(marker)
		}
		return nil
	})
}

// Delete soft-deletes the warehouse. A deleted warehouse stops being the default.
func (s *WarehouseService) Delete(ctx context.Context, scope identity.Scope, id string) error {
	if err := scope.RequireActor(); err != nil {
		return err
	}
	if err := s.unsetDefault(ctx, scope, id, docstore.Document{shared.FieldIsActive: false}); err != nil {
		return err
	}
	logger.L(ctx).Info("warehouse deactivated", zap.String("warehouse_id", id))
	return nil
}

// CheckCodeExists reports whether code is used by a warehouse other than excludeID.
// Lookup failures are logged and read as false.
func (s *WarehouseService) CheckCodeExists(ctx context.Context, scope identity.Scope, code, excludeID string) bool {
	taken, err := s.codeTaken(ctx, scope, strings.ToUpper(strings.TrimSpace(code)), excludeID)
	if err != nil {
		logger.L(ctx).Warn("warehouse code check failed", zap.String("code", code), zap.Error(err))
		return false
	}
	return taken
}

func (s *WarehouseService) codeTaken(ctx context.Context, scope identity.Scope, code, excludeID string) (bool, error) {
	found, err := s.warehouses.GetWhere(ctx, scope, inventory.FieldCode, shared.OpEqual, code)
	if err != nil {
		return false, err
	}
	for i := range found {
		if found[i].ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}
