package relay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/telepresence-hub/backend/internal/model"
	"github.com/telepresence-hub/backend/internal/registry"
	"github.com/telepresence-hub/backend/internal/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// ActionDispatcher fires smart-action side effects. Implementations must
// not block the caller.
type ActionDispatcher interface {
	Dispatch(actionID string)
	DispatchURL(url string)
}

// DirectoryService resolves presence cards and forwards chat messages to
// the external directory API.
type DirectoryService interface {
	GetPresenceCard(ctx context.Context, robotID, userID string) (*model.PresenceCard, error)
	SendChat(ctx context.Context, chatID, content string) error
}

// Handler owns the live connection table and routes inbound relay messages.
// Messages from one origin are handled in submission order: each connection
// has a single read pump that feeds handleMessage synchronously.
type Handler struct {
	registry   *registry.Registry
	rooms      *room.Manager
	dispatcher ActionDispatcher
	directory  DirectoryService

	mu        sync.RWMutex
	clients   map[string]*Client
	throttles map[string]*throttle
}

// NewHandler creates a relay handler over the given collaborators.
func NewHandler(reg *registry.Registry, rooms *room.Manager, dispatcher ActionDispatcher, dir DirectoryService) *Handler {
	return &Handler{
		registry:   reg,
		rooms:      rooms,
		dispatcher: dispatcher,
		directory:  dir,
		clients:    make(map[string]*Client),
		throttles:  make(map[string]*throttle),
	}
}

// HandleConnection upgrades an HTTP request to a WebSocket relay
// connection and runs its pumps.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, uuid.New().String())
	h.addClient(client)

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

func (h *Handler) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID()] = client
	h.throttles[client.ID()] = newThrottle(clickWindow)
}

// removeClient tears down a disconnected client: registry cleanup first
// (the registry is the source of truth), then room membership.
func (h *Handler) removeClient(client *Client) {
	h.mu.Lock()
	delete(h.clients, client.ID())
	delete(h.throttles, client.ID())
	h.mu.Unlock()

	// Unregister triggers the robot-disconnected broadcast for robot-bound
	// connections; Leave notifies the session of the departed peer.
	h.registry.Unregister(client.ID())
	h.rooms.Leave(client.ID())

	client.Close()
}

// Client returns the live client for a connection id, if still connected.
func (h *Handler) Client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	return client, ok
}

// ClientCount returns the number of live connections.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleMessage validates and routes one inbound message from a client.
// Malformed messages are dropped and logged; they never surface to peers.
func (h *Handler) HandleMessage(client *Client, msg *Message) {
	if !msg.validate() {
		log.Printf("Dropping malformed %q message from %s", msg.Kind, client.ID())
		return
	}

	msg.Origin = client.ID()

	switch msg.Kind {
	case KindRobotAlive:
		h.handleRobotAlive(client, msg)
	case KindJoinRobot:
		h.handleJoinRobot(client, msg)
	case KindControl, KindHealth:
		h.relayToSession(msg)
	case KindClickToDrive:
		h.handleClickToDrive(client, msg)
	case KindTriggerAction:
		h.handleTriggerAction(msg)
	case KindChat:
		h.handleChat(msg)
	case KindGetOfficeCard:
		h.handleGetOfficeCard(client, msg)
	}
}

// handleRobotAlive binds the connection to the robot identity and joins it
// to its own session as the robot member.
func (h *Handler) handleRobotAlive(client *Client, msg *Message) {
	h.registry.Register(client.ID(), msg.RobotID)
	h.rooms.Join(client.ID(), msg.RobotID, msg.RobotID, room.RoleRobot)
}

// handleJoinRobot joins a driver connection to the robot's session. The
// peer-joined broadcast to prior members is emitted by the room manager.
func (h *Handler) handleJoinRobot(client *Client, msg *Message) {
	h.rooms.Join(client.ID(), msg.RobotID, msg.UserID, room.RoleDriver)

	// A driver joining an offline robot still gets a session, but is told
	// immediately that the robot is not there.
	if !h.rooms.RobotOnline(msg.RobotID) {
		h.sendTo(client.ID(), &Message{Kind: KindRobotOffline, Target: msg.RobotID})
	}
}

func (h *Handler) handleClickToDrive(client *Client, msg *Message) {
	// Hover previews are throttled per origin; committed clicks pass.
	if !msg.Attempt {
		h.mu.RLock()
		limiter := h.throttles[client.ID()]
		h.mu.RUnlock()
		if limiter != nil && !limiter.allow(time.Now()) {
			return
		}
	}
	h.relayToSession(msg)
}

// handleTriggerAction schedules the webhook side effect. The dispatcher is
// asynchronous by contract, so the relay loop never waits on it.
func (h *Handler) handleTriggerAction(msg *Message) {
	if msg.ActionID != "" {
		h.dispatcher.Dispatch(msg.ActionID)
		return
	}
	h.dispatcher.DispatchURL(msg.URL)
}

func (h *Handler) handleChat(msg *Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.directory.SendChat(ctx, msg.ChatID, msg.Content); err != nil {
			log.Printf("Chat relay to %s failed: %v", msg.ChatID, err)
		}
	}()
}

// handleGetOfficeCard resolves a presence card off the relay loop and
// enqueues the response to the requesting connection when it completes. If
// the requester disconnected in the meantime the result is discarded.
func (h *Handler) handleGetOfficeCard(client *Client, msg *Message) {
	connID := client.ID()
	robotID := msg.Target
	userID := msg.UserID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		card, err := h.directory.GetPresenceCard(ctx, robotID, userID)
		reply := &Message{Kind: KindOfficeCard, Target: robotID, UserID: userID}
		if err != nil {
			log.Printf("Presence lookup for %s failed: %v", userID, err)
			reply.Card = &model.PresenceCard{
				UserID:   userID,
				Presence: model.PresenceError,
				Color:    "gray",
			}
		} else {
			reply.Card = card
		}
		h.sendTo(connID, reply)
	}()
}

// relayToSession fans a message out to the members of the target robot's
// session. A missing session delivers to nobody; that is not an error.
func (h *Handler) relayToSession(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %q message: %v", msg.Kind, err)
		return
	}

	if msg.Kind == KindHealth {
		h.rooms.UpdateHealth(msg.Target, msg.Status)
	}

	for _, connID := range h.rooms.Members(msg.Target) {
		h.sendRaw(connID, data)
	}
}

// BroadcastToSession sends a server-originated message to all members of a
// robot's session.
func (h *Handler) BroadcastToSession(robotID string, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %q message: %v", msg.Kind, err)
		return
	}
	for _, connID := range h.rooms.Members(robotID) {
		h.sendRaw(connID, data)
	}
}

// SendToConns sends a message to an explicit recipient list.
func (h *Handler) SendToConns(connIDs []string, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %q message: %v", msg.Kind, err)
		return
	}
	for _, connID := range connIDs {
		h.sendRaw(connID, data)
	}
}

func (h *Handler) sendTo(connID string, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %q message: %v", msg.Kind, err)
		return
	}
	h.sendRaw(connID, data)
}

func (h *Handler) sendRaw(connID string, data []byte) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		client.Send(data)
	}
}

// readPump pumps messages from the WebSocket connection into HandleMessage.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.removeClient(client)
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			continue
		}

		h.HandleMessage(client, &msg)
	}
}

// writePump pumps queued messages to the WebSocket connection.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The handler closed the channel
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Send each message in a separate WebSocket frame so the
			// frontend can JSON.parse each frame independently.
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queuedMsg := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queuedMsg); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
