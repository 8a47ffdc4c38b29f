package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/telepresence-hub/backend/internal/model"
	"github.com/telepresence-hub/backend/internal/repository"
)

// ActionHandler handles HTTP requests for smart-action management,
// including the fiducial marker and icon asset uploads.
type ActionHandler struct {
	actions  *repository.ActionRepository
	assetDir string
}

// NewActionHandler creates a new ActionHandler. assetDir is the root under
// which fiducial/, ar-icon/ and ar-icon-confirm/ asset files are stored.
func NewActionHandler(actions *repository.ActionRepository, assetDir string) *ActionHandler {
	return &ActionHandler{
		actions:  actions,
		assetDir: assetDir,
	}
}

// ActionResponse represents a smart action in API responses.
type ActionResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	WebhookURL string `json:"webhookUrl"`
	CreatedAt  string `json:"createdAt"`
}

func toActionResponse(a *model.SmartAction) ActionResponse {
	return ActionResponse{
		ID:         a.ID,
		Name:       a.Name,
		WebhookURL: a.WebhookURL,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

// assetPaths returns the on-disk asset locations for an action id.
func (h *ActionHandler) assetPaths(id string) []string {
	return []string{
		filepath.Join(h.assetDir, "fiducial", id+".patt"),
		filepath.Join(h.assetDir, "ar-icon", id+".png"),
		filepath.Join(h.assetDir, "ar-icon-confirm", id+".png"),
	}
}

// Create handles POST /api/actions - creates a smart action from a
// multipart form carrying the name, webhook URL and three asset files.
func (h *ActionHandler) Create(c *gin.Context) {
	name := c.PostForm("name")
	webhook := c.PostForm("webhook")
	if name == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", model.ErrNameRequired.Error())
		return
	}
	if webhook == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", model.ErrWebhookRequired.Error())
		return
	}

	fiducial, err := c.FormFile("fiducial")
	if err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Fiducial marker file is required")
		return
	}
	icon, err := c.FormFile("arIcon")
	if err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "AR icon file is required")
		return
	}
	iconConfirm, err := c.FormFile("arIconConfirm")
	if err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "AR confirm icon file is required")
		return
	}

	action := &model.SmartAction{
		ID:         uuid.New().String(),
		Name:       name,
		WebhookURL: webhook,
		CreatedAt:  time.Now(),
	}

	paths := h.assetPaths(action.ID)
	uploads := []struct {
		file *multipart.FileHeader
		path string
	}{
		{fiducial, paths[0]},
		{icon, paths[1]},
		{iconConfirm, paths[2]},
	}
	for _, u := range uploads {
		if err := os.MkdirAll(filepath.Dir(u.path), 0755); err != nil {
			sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to prepare asset directory: "+err.Error())
			return
		}
		if err := c.SaveUploadedFile(u.file, u.path); err != nil {
			h.removeAssets(action.ID)
			sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store asset: "+err.Error())
			return
		}
	}

	if err := h.actions.Create(c.Request.Context(), action); err != nil {
		h.removeAssets(action.ID)
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create smart action: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, toActionResponse(action))
}

// List handles GET /api/actions - lists all smart actions.
func (h *ActionHandler) List(c *gin.Context) {
	actions, err := h.actions.List(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list smart actions: "+err.Error())
		return
	}

	response := make([]ActionResponse, len(actions))
	for i, action := range actions {
		response[i] = toActionResponse(action)
	}

	c.JSON(http.StatusOK, response)
}

// Delete handles DELETE /api/actions/:id - removes a smart action and its
// asset files.
func (h *ActionHandler) Delete(c *gin.Context) {
	actionID := c.Param("id")
	if actionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Action ID is required")
		return
	}

	if err := h.actions.Delete(c.Request.Context(), actionID); err != nil {
		if errors.Is(err, model.ErrActionNotFound) {
			sendError(c, http.StatusNotFound, "ACTION_NOT_FOUND", "Smart action "+actionID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete smart action: "+err.Error())
		return
	}

	h.removeAssets(actionID)
	c.Status(http.StatusNoContent)
}

// removeAssets deletes the asset files for an action id; missing files are
// ignored.
func (h *ActionHandler) removeAssets(id string) {
	for _, path := range h.assetPaths(id) {
		os.Remove(path)
	}
}

// RegisterRoutes registers the smart-action handler routes on a Gin router
// group.
func (h *ActionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	actions := rg.Group("/actions")
	{
		actions.POST("", h.Create)
		actions.GET("", h.List)
		actions.DELETE("/:id", h.Delete)
	}
}
