package inventory

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultUnit is applied to products created without a unit
const DefaultUnit = "pcs"

// Product is a catalog item that may be stocked in warehouses
type Product struct {
	shared.BaseEntity
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Category           string          `json:"category"`
	Unit               string          `json:"unit"`
	Cost               decimal.Decimal `json:"cost"`
	Price              decimal.Decimal `json:"price"`
	MinStock           decimal.Decimal `json:"minStock"`
	MaxStock           decimal.Decimal `json:"maxStock"`
	Images             []string        `json:"images"`
	HasVariants        bool            `json:"hasVariants"`
	TrackInventory     bool            `json:"trackInventory"`
	IsActive           bool            `json:"isActive"`
	IsSellable         bool            `json:"isSellable"`
	IsPurchasable      bool            `json:"isPurchasable"`
	SalesAccountID     string          `json:"salesAccountId,omitempty"`
	PurchaseAccountID  string          `json:"purchaseAccountId,omitempty"`
	InventoryAccountID string          `json:"inventoryAccountId,omitempty"`
}

// ProductFlags carries the optional boolean flags of a new product; nil means default (true)
type ProductFlags struct {
	IsActive       *bool
	IsSellable     *bool
	IsPurchasable  *bool
	TrackInventory *bool
}

// ApplyDefaults fills in the defaults for a product about to be created
func (p *Product) ApplyDefaults(flags ProductFlags) {
	p.IsActive = boolOr(flags.IsActive, true)
	p.IsSellable = boolOr(flags.IsSellable, true)
	p.IsPurchasable = boolOr(flags.IsPurchasable, true)
	p.TrackInventory = boolOr(flags.TrackInventory, true)
	if strings.TrimSpace(p.Unit) == "" {
		p.Unit = DefaultUnit
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

// Validate checks the product invariants
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	if len(p.Name) > 200 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot exceed 200 characters")
	}
	if p.Cost.IsNegative() || p.Price.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product cost and price cannot be negative")
	}
	if p.MaxStock.IsPositive() && p.MinStock.GreaterThan(p.MaxStock) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Minimum stock cannot exceed maximum stock")
	}
	return nil
}

// NeedsSKU reports whether a SKU must be minted for the product
func (p *Product) NeedsSKU() bool {
	return strings.TrimSpace(p.SKU) == ""
}

// Duplicate returns a copy of the product without identity or audit fields,
// carrying the new SKU and a "(Copy)" name suffix
func (p *Product) Duplicate(sku string) *Product {
	cp := *p
	cp.BaseEntity = shared.BaseEntity{}
	cp.SKU = sku
	cp.Name = p.Name + " (Copy)"
	cp.Images = append([]string{}, p.Images...)
	return &cp
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
