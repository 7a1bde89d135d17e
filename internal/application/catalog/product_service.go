// Package catalog manages the tenant's products.
package catalog

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

// ErrSKUExists is returned when a SKU is already used within the tenant
var ErrSKUExists = shared.NewDomainError(shared.CodeAlreadyExists, "Product SKU already exists")

// ProductService handles product-related business operations
type ProductService struct {
	products *scoped.Repository[inventory.Product]
	numbers  NumberGenerator
}

// NewProductService creates a new ProductService
func NewProductService(store docstore.Store, numbers NumberGenerator) *ProductService {
	return &ProductService{
		products: scoped.NewRepository[inventory.Product](store, inventory.CollectionProducts),
		numbers:  numbers,
	}
}

// Create creates a new product. A blank SKU is minted from the product series.
func (s *ProductService) Create(ctx context.Context, scope identity.Scope, req CreateProductRequest) (*inventory.Product, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}

	product := &inventory.Product{
		SKU:                strings.TrimSpace(req.SKU),
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		Category:           strings.TrimSpace(req.Category),
		Unit:               strings.TrimSpace(req.Unit),
		Cost:               req.Cost,
		Price:              req.Price,
		MinStock:           req.MinStock,
		MaxStock:           req.MaxStock,
		Images:             req.Images,
		HasVariants:        req.HasVariants,
		SalesAccountID:     req.SalesAccountID,
		PurchaseAccountID:  req.PurchaseAccountID,
		InventoryAccountID: req.InventoryAccountID,
	}
	product.ApplyDefaults(inventory.ProductFlags{
		IsActive:       req.IsActive,
		IsSellable:     req.IsSellable,
		IsPurchasable:  req.IsPurchasable,
		TrackInventory: req.TrackInventory,
	})
	if err := product.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, scope, product)
}

func (s *ProductService) create(ctx context.Context, scope identity.Scope, product *inventory.Product) (*inventory.Product, error) {
	if product.NeedsSKU() {
		sku, err := s.numbers.GenerateNumber(ctx, scope, numbering.DocumentTypeProduct)
		if err != nil {
			return nil, err
		}
		product.SKU = sku
	} else {
		taken, err := s.skuTaken(ctx, scope, product.SKU, "")
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrSKUExists
		}
	}

	id, err := s.products.Create(ctx, scope, product)
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("product created", zap.String("product_id", id), zap.String("sku", product.SKU))
	return product, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, scope identity.Scope, id string) (*inventory.Product, error) {
	return s.products.MustGet(ctx, scope, id)
}

// GetBySKU retrieves a product by SKU; found is false when no product has it
func (s *ProductService) GetBySKU(ctx context.Context, scope identity.Scope, sku string) (*inventory.Product, bool, error) {
	found, err := s.products.GetAll(ctx, scope, shared.NewQuery().
		Where(inventory.FieldSKU, shared.OpEqual, strings.TrimSpace(sku)).
		WithLimit(1))
	if err != nil {
		return nil, false, err
	}
	if len(found) == 0 {
		return nil, false, nil
	}
	return &found[0], true, nil
}

// List returns products matching the filter ordered by name
func (s *ProductService) List(ctx context.Context, scope identity.Scope, filter ProductListFilter) ([]inventory.Product, error) {
	q := shared.NewQuery().Order("name", shared.OrderAsc)
	if filter.Category != "" {
		q = q.Where(inventory.FieldCategory, shared.OpEqual, filter.Category)
	}
	if filter.ActiveOnly {
		q = q.Where(shared.FieldIsActive, shared.OpEqual, true)
	}
	if filter.SellableOnly {
		q = q.Where(inventory.FieldIsSellable, shared.OpEqual, true)
	}
	if filter.PurchasableOnly {
		q = q.Where(inventory.FieldIsPurchasable, shared.OpEqual, true)
	}
	return s.products.GetAll(ctx, scope, q.WithLimit(filter.Limit).WithOffset(filter.Offset))
}

// GetByCategory returns the products of a category
func (s *ProductService) GetByCategory(ctx context.Context, scope identity.Scope, category string) ([]inventory.Product, error) {
	return s.List(ctx, scope, ProductListFilter{Category: category})
}

// GetActive returns the active products
func (s *ProductService) GetActive(ctx context.Context, scope identity.Scope) ([]inventory.Product, error) {
	return s.List(ctx, scope, ProductListFilter{ActiveOnly: true})
}

// GetSellable returns the active products that can be sold
func (s *ProductService) GetSellable(ctx context.Context, scope identity.Scope) ([]inventory.Product, error) {
	return s.List(ctx, scope, ProductListFilter{ActiveOnly: true, SellableOnly: true})
}

// GetPurchasable returns the active products that can be bought
func (s *ProductService) GetPurchasable(ctx context.Context, scope identity.Scope) ([]inventory.Product, error) {
	return s.List(ctx, scope, ProductListFilter{ActiveOnly: true, PurchasableOnly: true})
}

// Update applies a partial update after validating the merged product
func (s *ProductService) Update(ctx context.Context, scope identity.Scope, id string, req UpdateProductRequest) (*inventory.Product, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	product, err := s.products.MustGet(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	patch := docstore.Document{}
	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		if sku != product.SKU {
			taken, err := s.skuTaken(ctx, scope, sku, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrSKUExists
			}
		}
		product.SKU = sku
		patch[inventory.FieldSKU] = sku
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
		patch["name"] = product.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
		patch["description"] = product.Description
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
		patch[inventory.FieldCategory] = product.Category
	}
	if req.Unit != nil {
		product.Unit = strings.TrimSpace(*req.Unit)
		patch["unit"] = product.Unit
	}
	if req.Cost != nil {
		product.Cost = *req.Cost
		patch["cost"] = product.Cost
	}
	if req.Price != nil {
		product.Price = *req.Price
		patch["price"] = product.Price
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
		patch["minStock"] = product.MinStock
	}
	if req.MaxStock != nil {
		product.MaxStock = *req.MaxStock
		patch["maxStock"] = product.MaxStock
	}
	if req.Images != nil {
		product.Images = req.Images
		patch["images"] = product.Images
	}
	if req.TrackInventory != nil {
		patch["trackInventory"] = *req.TrackInventory
	}
	if req.IsActive != nil {
		patch[shared.FieldIsActive] = *req.IsActive
	}
	if req.IsSellable != nil {
		patch[inventory.FieldIsSellable] = *req.IsSellable
	}
	if req.IsPurchasable != nil {
		patch[inventory.FieldIsPurchasable] = *req.IsPurchasable
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if len(patch) > 0 {
		if err := s.products.Update(ctx, scope, id, patch); err != nil {
			return nil, err
		}
	}
	return s.products.MustGet(ctx, scope, id)
}

// Delete deactivates the product, or removes it when hard is set
func (s *ProductService) Delete(ctx context.Context, scope identity.Scope, id string, hard bool) error {
	if err := scope.RequireActor(); err != nil {
		return err
	}
	if !hard {
		return s.products.SoftDelete(ctx, scope, id)
	}
	if _, err := s.products.MustGet(ctx, scope, id); err != nil {
		return err
	}
	if err := s.products.Remove(ctx, scope, id); err != nil {
		return err
	}
	logger.L(ctx).Info("product removed", zap.String("product_id", id))
	return nil
}

// Duplicate copies a product under a freshly minted SKU and a "(Copy)" name
func (s *ProductService) Duplicate(ctx context.Context, scope identity.Scope, id string) (*inventory.Product, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	source, err := s.products.MustGet(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	copied := source.Duplicate("")
	if err := copied.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, scope, copied)
}

// CheckSKUExists reports whether sku is used by a product other than excludeID.
// Lookup failures are logged and read as false.
func (s *ProductService) CheckSKUExists(ctx context.Context, scope identity.Scope, sku, excludeID string) bool {
	taken, err := s.skuTaken(ctx, scope, strings.TrimSpace(sku), excludeID)
	if err != nil {
		logger.L(ctx).Warn("product sku check failed", zap.String("sku", sku), zap.Error(err))
		return false
	}
	return taken
}

func (s *ProductService) skuTaken(ctx context.Context, scope identity.Scope, sku, excludeID string) (bool, error) {
	found, err := s.products.GetWhere(ctx, scope, inventory.FieldSKU, shared.OpEqual, sku)
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
