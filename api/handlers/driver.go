package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/telepresence-hub/backend/internal/model"
	"github.com/telepresence-hub/backend/internal/repository"
)

// DriverHandler handles HTTP requests for authorized drivers.
type DriverHandler struct {
	drivers *repository.DriverRepository
	invites *repository.InviteRepository
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(drivers *repository.DriverRepository, invites *repository.InviteRepository) *DriverHandler {
	return &DriverHandler{drivers: drivers, invites: invites}
}

// DriverResponse represents an authorized driver in API responses.
type DriverResponse struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Admin     bool   `json:"admin"`
	CreatedAt string `json:"createdAt"`
}

// RedeemRequest is the payload for redeeming an invite token.
type RedeemRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Redeem handles POST /api/drivers/redeem - consumes an invite token and
// enrolls the calling user as a driver. The token is single use.
func (h *DriverHandler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}
	if req.Token == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invite token is required")
		return
	}

	ctx := c.Request.Context()

	if err := h.invites.Consume(ctx, req.Token); err != nil {
		if errors.Is(err, model.ErrInviteNotFound) {
			sendError(c, http.StatusForbidden, "INVITE_INVALID", "Invite token is invalid or already used")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to redeem invite: "+err.Error())
		return
	}

	driver := &model.Driver{
		UserID:    getUserID(c),
		Email:     req.Email,
		Admin:     false,
		CreatedAt: time.Now(),
	}
	if err := h.drivers.Upsert(ctx, driver); err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to enroll driver: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, DriverResponse{
		UserID:    driver.UserID,
		Email:     driver.Email,
		Admin:     driver.Admin,
		CreatedAt: driver.CreatedAt.Format(time.RFC3339),
	})
}

// List handles GET /api/drivers - lists authorized drivers.
func (h *DriverHandler) List(c *gin.Context) {
	drivers, err := h.drivers.List(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list drivers: "+err.Error())
		return
	}

	response := make([]DriverResponse, len(drivers))
	for i, driver := range drivers {
		response[i] = DriverResponse{
			UserID:    driver.UserID,
			Email:     driver.Email,
			Admin:     driver.Admin,
			CreatedAt: driver.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, response)
}

// Delete handles DELETE /api/drivers/:userId - revokes a driver's access.
func (h *DriverHandler) Delete(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "User ID is required")
		return
	}

	if err := h.drivers.Delete(c.Request.Context(), userID); err != nil {
		if errors.Is(err, model.ErrDriverNotFound) {
			sendError(c, http.StatusNotFound, "DRIVER_NOT_FOUND", "Driver not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete driver: "+err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the driver handler routes on a Gin router group.
func (h *DriverHandler) RegisterRoutes(rg *gin.RouterGroup) {
	drivers := rg.Group("/drivers")
	{
		drivers.POST("/redeem", h.Redeem)
		drivers.GET("", h.List)
		drivers.DELETE("/:userId", h.Delete)
	}
}
