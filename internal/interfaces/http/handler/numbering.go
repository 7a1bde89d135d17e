package handler

import (
	numberingapp "github.com/erp/backoffice/internal/application/numbering"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/gin-gonic/gin"
)

// NumberingHandler exposes the document number sequences of the active organization
type NumberingHandler struct {
	BaseHandler
	numberingService *numberingapp.Service
}

// NewNumberingHandler creates a new NumberingHandler
func NewNumberingHandler(numberingService *numberingapp.Service) *NumberingHandler {
	return &NumberingHandler{numberingService: numberingService}
}

// NumberResponse carries a formatted document number
type NumberResponse struct {
	DocumentType numbering.DocumentType `json:"documentType"`
	Number       string                 `json:"number"`
}

// UpdateFormatRequest replaces the template of a sequence
type UpdateFormatRequest struct {
	Format string `json:"format" binding:"required,max=100"`
}

// ResetCounterRequest restarts a sequence
type ResetCounterRequest struct {
	Start int64 `json:"start" binding:"required,min=1"`
}

// documentType parses the :type path parameter
func (h *NumberingHandler) documentType(c *gin.Context) (numbering.DocumentType, bool) {
	docType, err := numbering.ParseDocumentType(c.Param("type"))
	if err != nil {
		h.HandleError(c, err)
		return "", false
	}
	return docType, true
}

// Generate issues the next number of a sequence
// POST /numbering/sequences/:type/next
func (h *NumberingHandler) Generate(c *gin.Context) {
	docType, ok := h.documentType(c)
	if !ok {
		return
	}
	number, err := h.numberingService.GenerateNumber(c.Request.Context(), h.scope(c), docType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, NumberResponse{DocumentType: docType, Number: number})
}

// Preview shows the number the next Generate would issue without consuming it
// GET /numbering/sequences/:type/preview
func (h *NumberingHandler) Preview(c *gin.Context) {
	docType, ok := h.documentType(c)
	if !ok {
		return
	}
	number, err := h.numberingService.PreviewNextNumber(c.Request.Context(), h.scope(c), docType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NumberResponse{DocumentType: docType, Number: number})
}

// GetSettings returns the templates and counters, creating the defaults on first use
// GET /numbering/settings
func (h *NumberingHandler) GetSettings(c *gin.Context) {
	settings, err := h.numberingService.GetSettings(c.Request.Context(), h.scope(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// InitializeSettings writes the default settings unless they already exist
// POST /numbering/settings/initialize
func (h *NumberingHandler) InitializeSettings(c *gin.Context) {
	settings, err := h.numberingService.InitializeSettings(c.Request.Context(), h.scope(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// UpdateFormat replaces the template of a sequence
// PUT /numbering/sequences/:type/format
func (h *NumberingHandler) UpdateFormat(c *gin.Context) {
	docType, ok := h.documentType(c)
	if !ok {
		return
	}
	var req UpdateFormatRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.numberingService.UpdateFormat(c.Request.Context(), h.scope(c), docType, req.Format); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ResetCounter restarts a sequence at the given number
// PUT /numbering/sequences/:type/counter
func (h *NumberingHandler) ResetCounter(c *gin.Context) {
	docType, ok := h.documentType(c)
	if !ok {
		return
	}
	var req ResetCounterRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.numberingService.ResetCounter(c.Request.Context(), h.scope(c), docType, req.Start); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
