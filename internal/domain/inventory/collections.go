// Package inventory holds the product, warehouse, stock and stock movement documents
// together with the stock quantity rules.
package inventory

// Collection names under a tenant
const (
	CollectionProducts       = "products"
	CollectionWarehouses     = "warehouses"
	CollectionStock          = "stock"
	CollectionStockMovements = "stock_movements"
)

// Field names used in queries and patches
const (
	FieldSKU               = "sku"
	FieldCategory          = "category"
	FieldIsSellable        = "isSellable"
	FieldIsPurchasable     = "isPurchasable"
	FieldCode              = "code"
	FieldIsDefault         = "isDefault"
	FieldProductID         = "productId"
	FieldWarehouseID       = "warehouseId"
	FieldFromWarehouseID   = "fromWarehouseId"
	FieldToWarehouseID     = "toWarehouseId"
	FieldMovementType      = "type"
	FieldMovementDate      = "date"
	FieldQuantity          = "quantity"
	FieldReservedQuantity  = "reservedQuantity"
	FieldAvailableQuantity = "availableQuantity"
	FieldTotalValue        = "totalValue"
	FieldLastMovementAt    = "lastMovementAt"
)
