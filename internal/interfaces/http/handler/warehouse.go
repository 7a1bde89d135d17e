package handler

import (
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/gin-gonic/gin"
)

// WarehouseHandler handles warehouse-related API endpoints
type WarehouseHandler struct {
	BaseHandler
	warehouseService *inventoryapp.WarehouseService
}

// NewWarehouseHandler creates a new WarehouseHandler
func NewWarehouseHandler(warehouseService *inventoryapp.WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{warehouseService: warehouseService}
}

// ExistsResponse answers a uniqueness probe
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// Create creates a warehouse
// POST /warehouses
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	warehouse, err := h.warehouseService.Create(c.Request.Context(), h.scope(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, warehouse)
}

// List returns the warehouses ordered by code, or only the active ones by name
// GET /warehouses?active=true
func (h *WarehouseHandler) List(c *gin.Context) {
	var (
		warehouses []inventory.Warehouse
		err        error
	)
	if queryBool(c, "active") {
		warehouses, err = h.warehouseService.ListActive(c.Request.Context(), h.scope(c))
	} else {
		warehouses, err = h.warehouseService.List(c.Request.Context(), h.scope(c))
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.List(c, warehouses, len(warehouses), 0, 0)
}

// GetByID returns one warehouse
// GET /warehouses/:id
func (h *WarehouseHandler) GetByID(c *gin.Context) {
	warehouse, err := h.warehouseService.GetByID(c.Request.Context(), h.scope(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, warehouse)
}

// GetDefault returns the default warehouse
// GET /warehouses/default
func (h *WarehouseHandler) GetDefault(c *gin.Context) {
	warehouse, found, err := h.warehouseService.GetDefault(c.Request.Context(), h.scope(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !found {
		h.NotFound(c, "No default warehouse")
		return
	}
	h.Success(c, warehouse)
}

// CheckCode reports whether a code is used by another warehouse
// GET /warehouses/check-code?code=WH-001&excludeId=...
func (h *WarehouseHandler) CheckCode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		h.BadRequest(c, "code is required")
		return
	}
	exists := h.warehouseService.CheckCodeExists(c.Request.Context(), h.scope(c), code, c.Query("excludeId"))
	h.Success(c, ExistsResponse{Exists: exists})
}

// Update applies a partial update
// PUT /warehouses/:id
func (h *WarehouseHandler) Update(c *gin.Context) {
	var req inventoryapp.UpdateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	warehouse, err := h.warehouseService.Update(c.Request.Context(), h.scope(c), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, warehouse)
}

// SetDefault makes the warehouse the only default one
// POST /warehouses/:id/default
func (h *WarehouseHandler) SetDefault(c *gin.Context) {
	if err := h.warehouseService.SetDefault(c.Request.Context(), h.scope(c), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Delete soft-deletes a warehouse
// DELETE /warehouses/:id
func (h *WarehouseHandler) Delete(c *gin.Context) {
	if err := h.warehouseService.Delete(c.Request.Context(), h.scope(c), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
