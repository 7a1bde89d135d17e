package handler

import (
	"context"

	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StockHandler handles stock levels and reservations
type StockHandler struct {
	BaseHandler
	stockService *inventoryapp.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *inventoryapp.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// Create opens the stock record of a product in a warehouse
// POST /stock
func (h *StockHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	stock, err := h.stockService.Create(c.Request.Context(), h.scope(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, stock)
}

// List returns stock records matching the filter
// GET /stock?productId=&warehouseId=&limit=&offset=
func (h *StockHandler) List(c *gin.Context) {
	var filter inventoryapp.StockListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	stocks, err := h.stockService.List(c.Request.Context(), h.scope(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.List(c, stocks, len(stocks), filter.Limit, filter.Offset)
}

// GetByID returns one stock record
// GET /stock/:id
func (h *StockHandler) GetByID(c *gin.Context) {
	stock, err := h.stockService.GetByID(c.Request.Context(), h.scope(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock)
}

// GetByProduct returns the stock of a product, optionally in one warehouse
// GET /stock/products/:productId?warehouseId=
func (h *StockHandler) GetByProduct(c *gin.Context) {
	stocks, err := h.stockService.GetByProduct(c.Request.Context(), h.scope(c), c.Param("productId"), c.Query("warehouseId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.List(c, stocks, len(stocks), 0, 0)
}

// GetLowStock returns records with some but less than threshold available
// GET /stock/low?threshold=10
func (h *StockHandler) GetLowStock(c *gin.Context) {
	threshold, err := queryDecimal(c, "threshold")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	stocks, err := h.stockService.GetLowStock(c.Request.Context(), h.scope(c), threshold)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.List(c, stocks, len(stocks), 0, 0)
}

// GetOutOfStock returns records with nothing available
// GET /stock/out
func (h *StockHandler) GetOutOfStock(c *gin.Context) {
	stocks, err := h.stockService.GetOutOfStock(c.Request.Context(), h.scope(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.List(c, stocks, len(stocks), 0, 0)
}

// GetSummary returns the totals of all or one warehouse
// GET /stock/summary?warehouseId=&threshold=
func (h *StockHandler) GetSummary(c *gin.Context) {
	threshold, err := queryDecimal(c, "threshold")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	summary, err := h.stockService.GetSummary(c.Request.Context(), h.scope(c), c.Query("warehouseId"), threshold)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Adjust changes the on-hand quantity by a signed delta
// POST /stock/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	h.change(c, h.stockService.AdjustStock)
}

// Reserve sets aside available quantity
// POST /stock/reserve
func (h *StockHandler) Reserve(c *gin.Context) {
	h.change(c, h.stockService.ReserveStock)
}

// Release returns reserved quantity to available
// POST /stock/release
func (h *StockHandler) Release(c *gin.Context) {
	h.change(c, h.stockService.ReleaseReservedStock)
}

type stockChange func(ctx context.Context, scope identity.Scope, productID, warehouseID string, qty decimal.Decimal) (*inventory.Stock, error)

func (h *StockHandler) change(c *gin.Context, apply stockChange) {
	var req inventoryapp.StockChangeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	stock, err := apply(c.Request.Context(), h.scope(c), req.ProductID, req.WarehouseID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock)
}
