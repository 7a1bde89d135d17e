package catalog

import (
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product.
// A blank SKU is replaced by the next number of the product series.
type CreateProductRequest struct {
	SKU                string          `json:"sku" binding:"max=100"`
	Name               string          `json:"name" binding:"required,min=1,max=200"`
	Description        string          `json:"description" binding:"max=2000"`
	Category           string          `json:"category" binding:"max=100"`
	Unit               string          `json:"unit" binding:"max=20"`
	Cost               decimal.Decimal `json:"cost"`
	Price              decimal.Decimal `json:"price"`
	MinStock           decimal.Decimal `json:"minStock"`
	MaxStock           decimal.Decimal `json:"maxStock"`
	Images             []string        `json:"images" binding:"omitempty,dive,url"`
	HasVariants        bool            `json:"hasVariants"`
	TrackInventory     *bool           `json:"trackInventory"`
	IsActive           *bool           `json:"isActive"`
	IsSellable         *bool           `json:"isSellable"`
	IsPurchasable      *bool           `json:"isPurchasable"`
	SalesAccountID     string          `json:"salesAccountId"`
	PurchaseAccountID  string          `json:"purchaseAccountId"`
	InventoryAccountID string          `json:"inventoryAccountId"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	SKU            *string          `json:"sku" binding:"omitempty,min=1,max=100"`
	Name           *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description    *string          `json:"description" binding:"omitempty,max=2000"`
	Category       *string          `json:"category" binding:"omitempty,max=100"`
	Unit           *string          `json:"unit" binding:"omitempty,min=1,max=20"`
	Cost           *decimal.Decimal `json:"cost"`
	Price          *decimal.Decimal `json:"price"`
	MinStock       *decimal.Decimal `json:"minStock"`
	MaxStock       *decimal.Decimal `json:"maxStock"`
	Images         []string         `json:"images" binding:"omitempty,dive,url"`
	TrackInventory *bool            `json:"trackInventory"`
	IsActive       *bool            `json:"isActive"`
	IsSellable     *bool            `json:"isSellable"`
	IsPurchasable  *bool            `json:"isPurchasable"`
}

// ProductListFilter narrows a product listing
type ProductListFilter struct {
	Category        string `form:"category"`
	ActiveOnly      bool   `form:"active"`
	SellableOnly    bool   `form:"sellable"`
	PurchasableOnly bool   `form:"purchasable"`
	Limit           int    `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset          int    `form:"offset" binding:"omitempty,min=0"`
}
