package relay

import (
	"encoding/json"

	"github.com/telepresence-hub/backend/internal/model"
)

// Kind represents the type of relay message.
type Kind string

const (
	// Client -> Server message kinds
	KindRobotAlive    Kind = "robot-alive"
	KindJoinRobot     Kind = "join-robot"
	KindControl       Kind = "control-msg"
	KindClickToDrive  Kind = "click-to-drive"
	KindHealth        Kind = "health-msg"
	KindTriggerAction Kind = "trigger-action"
	KindChat          Kind = "chat-msg"
	KindGetOfficeCard Kind = "get-office-card"

	// Server -> Client message kinds
	KindOfficeCard        Kind = "office-card"
	KindUserConnected     Kind = "user-connected"
	KindUserDisconnected  Kind = "user-disconnected"
	KindRobotOffline      Kind = "robot-offline"
	KindRobotDisconnected Kind = "robot-disconnected"
)

// Message is the tagged union carried on the relay channel. Target is the
// robot identity the message concerns; Origin is annotated by the server
// with the submitting connection id before fan-out.
type Message struct {
	Kind     Kind                `json:"kind"`
	Target   string              `json:"target,omitempty"`
	Origin   string              `json:"origin,omitempty"`
	RobotID  string              `json:"robotId,omitempty"`
	UserID   string              `json:"userId,omitempty"`
	Content  string              `json:"content,omitempty"`
	XCoord   *float64            `json:"xCoord,omitempty"`
	YCoord   *float64            `json:"yCoord,omitempty"`
	Attempt  bool                `json:"attempt,omitempty"`
	Type     string              `json:"type,omitempty"`
	Status   json.RawMessage     `json:"status,omitempty"`
	ActionID string              `json:"actionId,omitempty"`
	URL      string              `json:"url,omitempty"`
	ChatID   string              `json:"chatId,omitempty"`
	Card     *model.PresenceCard `json:"card,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// NewClickMessage builds a click-to-drive message. attempt=false denotes a
// hover preview, attempt=true a committed click.
func NewClickMessage(x, y float64, attempt bool, target string) *Message {
	return &Message{
		Kind:    KindClickToDrive,
		Target:  target,
		XCoord:  &x,
		YCoord:  &y,
		Attempt: attempt,
	}
}

// validate checks the structural requirements for an inbound message kind.
// A false return means the message is dropped (and logged) at ingress.
func (m *Message) validate() bool {
	switch m.Kind {
	case KindRobotAlive:
		return m.RobotID != ""
	case KindJoinRobot:
		return m.RobotID != "" && m.UserID != ""
	case KindControl, KindHealth:
		return m.Target != ""
	case KindClickToDrive:
		if m.Target == "" || m.XCoord == nil || m.YCoord == nil {
			return false
		}
		return *m.XCoord >= 0 && *m.XCoord <= 1 && *m.YCoord >= 0 && *m.YCoord <= 1
	case KindTriggerAction:
		return m.ActionID != "" || m.URL != ""
	case KindChat:
		return m.ChatID != "" && m.Content != ""
	case KindGetOfficeCard:
		return m.Target != "" && m.UserID != ""
	default:
		return false
	}
}
