package handler

import (
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// MovementHandler handles the stock movement journal
type MovementHandler struct {
	BaseHandler
	movementService *inventoryapp.MovementService
}

// NewMovementHandler creates a new MovementHandler
func NewMovementHandler(movementService *inventoryapp.MovementService) *MovementHandler {
	return &MovementHandler{movementService: movementService}
}

// Create records a movement under the next movement number
// POST /stock-movements
func (h *MovementHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	movement, err := h.movementService.Create(c.Request.Context(), h.scope(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, movement)
}

// List returns movements matching the filter, newest first
// GET /stock-movements?productId=&warehouseId=&type=&from=&to=&limit=
func (h *MovementHandler) List(c *gin.Context) {
	var filter inventoryapp.MovementListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		h.HandleError(c, shared.NewDomainError(shared.CodeInvalidInput, "Date range end is before its start"))
		return
	}
	movements, err := h.movementService.List(c.Request.Context(), h.scope(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.List(c, movements, len(movements), filter.Limit, 0)
}

// GetByID returns one movement
// GET /stock-movements/:id
func (h *MovementHandler) GetByID(c *gin.Context) {
	movement, err := h.movementService.GetByID(c.Request.Context(), h.scope(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// GetRecent returns the newest movements
// GET /stock-movements/recent?limit=10
func (h *MovementHandler) GetRecent(c *gin.Context) {
	n, err := queryInt(c, "limit", inventoryapp.DefaultRecentMovements)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	movements, err := h.movementService.GetRecent(c.Request.Context(), h.scope(c), n)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.List(c, movements, len(movements), n, 0)
}

// CountByType returns the number of movements per type
// GET /stock-movements/counts
func (h *MovementHandler) CountByType(c *gin.Context) {
	counts, err := h.movementService.CountByType(c.Request.Context(), h.scope(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counts)
}
