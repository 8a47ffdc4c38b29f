package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/telepresence-hub/backend/internal/relay"
)

// SocketHandler upgrades HTTP requests into relay WebSocket connections.
type SocketHandler struct {
	relayHandler *relay.Handler
}

// NewSocketHandler creates a new SocketHandler.
func NewSocketHandler(relayHandler *relay.Handler) *SocketHandler {
	return &SocketHandler{relayHandler: relayHandler}
}

// Attach handles GET /api/socket - upgrades to a relay WebSocket
// connection. Identity binding happens via the first relay message
// (robot-alive or join-robot), not at upgrade time.
func (h *SocketHandler) Attach(c *gin.Context) {
	if err := h.relayHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// Upgrade failures are already written to the response.
		return
	}
}

// RegisterRoutes registers the socket handler routes on a Gin router group.
func (h *SocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/socket", h.Attach)
}
