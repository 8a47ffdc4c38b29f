package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/telepresence-hub/backend/internal/model"
	"github.com/telepresence-hub/backend/internal/repository"
)

// InviteHandler handles HTTP requests for driver invitation tokens.
type InviteHandler struct {
	invites *repository.InviteRepository
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(invites *repository.InviteRepository) *InviteHandler {
	return &InviteHandler{invites: invites}
}

// InviteResponse represents an invite token in API responses.
type InviteResponse struct {
	Token     string `json:"token"`
	CreatedAt string `json:"createdAt"`
}

// Create handles POST /api/invites - generates a new invite token.
func (h *InviteHandler) Create(c *gin.Context) {
	invite := &model.Invite{
		Token:     uuid.New().String(),
		CreatedAt: time.Now(),
	}

	if err := h.invites.Create(c.Request.Context(), invite); err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create invite: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, InviteResponse{
		Token:     invite.Token,
		CreatedAt: invite.CreatedAt.Format(time.RFC3339),
	})
}

// List handles GET /api/invites - lists outstanding invite tokens.
func (h *InviteHandler) List(c *gin.Context) {
	invites, err := h.invites.List(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list invites: "+err.Error())
		return
	}

	response := make([]InviteResponse, len(invites))
	for i, invite := range invites {
		response[i] = InviteResponse{
			Token:     invite.Token,
			CreatedAt: invite.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, response)
}

// Delete handles DELETE /api/invites/:token - revokes an invite token.
func (h *InviteHandler) Delete(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invite token is required")
		return
	}

	if err := h.invites.Delete(c.Request.Context(), token); err != nil {
		if errors.Is(err, model.ErrInviteNotFound) {
			sendError(c, http.StatusNotFound, "INVITE_NOT_FOUND", "Invite not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete invite: "+err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the invite handler routes on a Gin router group.
func (h *InviteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invites := rg.Group("/invites")
	{
		invites.POST("", h.Create)
		invites.GET("", h.List)
		invites.DELETE("/:token", h.Delete)
	}
}
