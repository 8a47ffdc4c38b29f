package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/telepresence-hub/backend/internal/model"
	"github.com/telepresence-hub/backend/internal/registry"
	"github.com/telepresence-hub/backend/internal/repository"
)

// RobotHandler handles HTTP requests for robot management.
type RobotHandler struct {
	robots   *repository.RobotRepository
	registry *registry.Registry
}

// NewRobotHandler creates a new RobotHandler.
func NewRobotHandler(robots *repository.RobotRepository, reg *registry.Registry) *RobotHandler {
	return &RobotHandler{
		robots:   robots,
		registry: reg,
	}
}

// RobotResponse represents a robot in API responses. Live is whether any
// connection is currently bound to the robot's identity.
type RobotResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Live      bool   `json:"live"`
	CreatedAt string `json:"createdAt"`
}

// CreatedRobotResponse is returned once at creation time and is the only
// place the private secret appears.
type CreatedRobotResponse struct {
	RobotResponse
	Secret string `json:"secret"`
}

func (h *RobotHandler) toResponse(r *model.Robot) RobotResponse {
	return RobotResponse{
		ID:        r.ID,
		Name:      r.Name,
		Location:  r.Location,
		Live:      h.registry.IsActive(r.ID),
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/robots - registers a new robot.
func (h *RobotHandler) Create(c *gin.Context) {
	var req model.CreateRobotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	secret := uuid.New().String()
	robot := &model.Robot{
		ID:        model.RobotIDFromSecret(secret),
		Secret:    secret,
		Name:      req.Name,
		Location:  req.Location,
		CreatedAt: time.Now(),
	}

	if err := h.robots.Create(c.Request.Context(), robot); err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create robot: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, CreatedRobotResponse{
		RobotResponse: h.toResponse(robot),
		Secret:        secret,
	})
}

// List handles GET /api/robots - lists all robots with their live status.
func (h *RobotHandler) List(c *gin.Context) {
	robots, err := h.robots.List(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list robots: "+err.Error())
		return
	}

	response := make([]RobotResponse, len(robots))
	for i, robot := range robots {
		response[i] = h.toResponse(robot)
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/robots/:id - gets a specific robot.
func (h *RobotHandler) Get(c *gin.Context) {
	robotID := c.Param("id")
	if robotID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Robot ID is required")
		return
	}

	robot, err := h.robots.GetByID(c.Request.Context(), robotID)
	if err != nil {
		if errors.Is(err, model.ErrRobotNotFound) {
			sendError(c, http.StatusNotFound, "ROBOT_NOT_FOUND", "Robot "+robotID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get robot: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, h.toResponse(robot))
}

// Delete handles DELETE /api/robots/:id - removes a robot.
func (h *RobotHandler) Delete(c *gin.Context) {
	robotID := c.Param("id")
	if robotID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Robot ID is required")
		return
	}

	if err := h.robots.Delete(c.Request.Context(), robotID); err != nil {
		if errors.Is(err, model.ErrRobotNotFound) {
			sendError(c, http.StatusNotFound, "ROBOT_NOT_FOUND", "Robot "+robotID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete robot: "+err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the robot handler routes on a Gin router group.
func (h *RobotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	robots := rg.Group("/robots")
	{
		robots.POST("", h.Create)
		robots.GET("", h.List)
		robots.GET("/:id", h.Get)
		robots.DELETE("/:id", h.Delete)
	}
}
