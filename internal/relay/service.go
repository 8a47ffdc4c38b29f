package relay

import (
	"log"

	"github.com/telepresence-hub/backend/internal/registry"
	"github.com/telepresence-hub/backend/internal/room"
)

// Service composes the relay handler with the identity registry and the
// session manager, wiring their change events to socket broadcasts. Create
// one per server process.
type Service struct {
	registry *registry.Registry
	rooms    *room.Manager
	handler  *Handler
}

// NewService creates the relay service and installs the event wiring.
func NewService(reg *registry.Registry, rooms *room.Manager, dispatcher ActionDispatcher, dir DirectoryService) *Service {
	handler := NewHandler(reg, rooms, dispatcher, dir)

	s := &Service{
		registry: reg,
		rooms:    rooms,
		handler:  handler,
	}

	// Unregistering a robot-bound connection announces the freed identity
	// to whatever is left of its session.
	reg.SetOnRobotRemoved(func(robotID string) {
		log.Printf("Robot %s disconnected", robotID)
		handler.BroadcastToSession(robotID, &Message{
			Kind:   KindRobotDisconnected,
			Target: robotID,
		})
	})

	rooms.SetOnEvent(func(ev room.Event) {
		s.handleRoomEvent(ev)
	})

	return s
}

// handleRoomEvent translates membership changes into relay messages for the
// affected session members.
func (s *Service) handleRoomEvent(ev room.Event) {
	if len(ev.Recipients) == 0 {
		return
	}

	var msg *Message
	switch ev.Kind {
	case room.EventPeerJoined:
		msg = &Message{Kind: KindUserConnected, Target: ev.RobotID, UserID: ev.PeerID}
	case room.EventPeerLeft:
		msg = &Message{Kind: KindUserDisconnected, Target: ev.RobotID, UserID: ev.PeerID}
	case room.EventRobotOffline:
		msg = &Message{Kind: KindRobotOffline, Target: ev.RobotID}
	default:
		return
	}

	s.handler.SendToConns(ev.Recipients, msg)
}

// Handler returns the relay handler.
func (s *Service) Handler() *Handler {
	return s.handler
}

// Close closes all live relay connections.
func (s *Service) Close() {
	s.handler.mu.Lock()
	clients := make([]*Client, 0, len(s.handler.clients))
	for _, client := range s.handler.clients {
		clients = append(clients, client)
	}
	s.handler.clients = make(map[string]*Client)
	s.handler.throttles = make(map[string]*throttle)
	s.handler.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
