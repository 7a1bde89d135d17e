package handler

import (
	"github.com/erp/backoffice/internal/application/catalog"
	"github.com/gin-gonic/gin"
)

// ProductHandler handles product catalog endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalog.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalog.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// Create creates a product, minting a SKU when none is given
// POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalog.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.productService.Create(c.Request.Context(), h.scope(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// List returns products matching the filter, ordered by name
// GET /products?category=&active=&sellable=&purchasable=&limit=&offset=
func (h *ProductHandler) List(c *gin.Context) {
	var filter catalog.ProductListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	products, err := h.productService.List(c.Request.Context(), h.scope(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.List(c, products, len(products), filter.Limit, filter.Offset)
}

// GetByID returns one product
// GET /products/:id
func (h *ProductHandler) GetByID(c *gin.Context) {
	product, err := h.productService.GetByID(c.Request.Context(), h.scope(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// GetBySKU returns the product holding a SKU
// GET /products/sku/:sku
func (h *ProductHandler) GetBySKU(c *gin.Context) {
	product, found, err := h.productService.GetBySKU(c.Request.Context(), h.scope(c), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !found {
		h.NotFound(c, "Product not found")
		return
	}
	h.Success(c, product)
}

// CheckSKU reports whether a SKU is used by another product
// GET /products/check-sku?sku=&excludeId=
func (h *ProductHandler) CheckSKU(c *gin.Context) {
	sku := c.Query("sku")
	if sku == "" {
		h.BadRequest(c, "sku is required")
		return
	}
	exists := h.productService.CheckSKUExists(c.Request.Context(), h.scope(c), sku, c.Query("excludeId"))
	h.Success(c, ExistsResponse{Exists: exists})
}

// Update applies a partial update
// PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var req catalog.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.productService.Update(c.Request.Context(), h.scope(c), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Duplicate copies a product under a new SKU
// POST /products/:id/duplicate
func (h *ProductHandler) Duplicate(c *gin.Context) {
	product, err := h.productService.Duplicate(c.Request.Context(), h.scope(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Delete soft-deletes a product, or removes it with ?hard=true
// DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.productService.Delete(c.Request.Context(), h.scope(c), c.Param("id"), queryBool(c, "hard")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
