package handler

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHandler manages the active organization of the calling user
type SessionHandler struct {
	BaseHandler
	sessions session.Store
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions session.Store) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SelectOrganizationRequest selects the organization later requests run under
type SelectOrganizationRequest struct {
	OrganizationID string `json:"organizationId" binding:"required,uuid"`
}

// OrganizationResponse reports the active organization
type OrganizationResponse struct {
	OrganizationID *string `json:"organizationId"`
}

// Current returns the organization the request runs under, or null
// GET /session/organization
func (h *SessionHandler) Current(c *gin.Context) {
	scope := h.scope(c)
	if !scope.HasTenant() {
		h.Success(c, OrganizationResponse{})
		return
	}
	id := scope.TenantID.String()
	h.Success(c, OrganizationResponse{OrganizationID: &id})
}

// Select persists the active organization of the user.
// Membership is not checked here: the external identity provider decides which
// organizations a user may act for, and a gateway in front of this API enforces it.
// PUT /session/organization
func (h *SessionHandler) Select(c *gin.Context) {
	scope := h.scope(c)
	if scope.Actor.IsZero() {
		h.HandleError(c, shared.ErrActorRequired)
		return
	}
	var req SelectOrganizationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	tenantID := uuid.MustParse(req.OrganizationID)
	if err := h.sessions.SetActiveTenant(c.Request.Context(), scope.Actor.ID, tenantID); err != nil {
		h.HandleError(c, err)
		return
	}
	logger.L(c.Request.Context()).Info("Active organization selected", zap.String("organization_id", req.OrganizationID))
	h.Success(c, OrganizationResponse{OrganizationID: &req.OrganizationID})
}

// Clear forgets the active organization of the user
// DELETE /session/organization
func (h *SessionHandler) Clear(c *gin.Context) {
	scope := h.scope(c)
	if scope.Actor.IsZero() {
		h.HandleError(c, shared.ErrActorRequired)
		return
	}
	if err := h.sessions.Clear(c.Request.Context(), scope.Actor.ID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
