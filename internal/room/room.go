// Package room groups connections into logical robot sessions and emits
// membership change events for the relay to broadcast.
package room

import (
	"sync"
)

// Role describes how a connection participates in a robot session.
type Role string

const (
	RoleDriver Role = "driver"
	RoleRobot  Role = "robot"
)

// EventKind identifies a membership change.
type EventKind string

const (
	EventPeerJoined   EventKind = "peer-joined"
	EventPeerLeft     EventKind = "peer-left"
	EventRobotOffline EventKind = "robot-offline"
)

// Event describes a membership change in a robot session. Recipients is the
// set of member connection ids that should be notified; the connection that
// caused the change is excluded.
type Event struct {
	Kind       EventKind
	RobotID    string
	ConnID     string
	PeerID     string
	Role       Role
	Recipients []string
}

type session struct {
	robotID    string
	members    map[string]Role
	peerIDs    map[string]string // connID -> displayed peer/driver id
	robotConn  string            // conn id of the robot member, "" if offline
	lastHealth []byte            // last health payload relayed for this robot
}

// Manager owns the mapping of connections to robot sessions. A connection
// belongs to at most one session; joining a second session implies leaving
// the first.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session // keyed by robot identity
	index    map[string]string   // connID -> robot identity
	onEvent  func(Event)
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		index:    make(map[string]string),
	}
}

// SetOnEvent sets the callback invoked for membership change events. The
// callback runs outside the manager lock.
func (m *Manager) SetOnEvent(callback func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = callback
}

// Join adds a connection to the session for robotID, creating the session
// if absent. peerID is the joining party's displayed identity (driver user
// id, or the robot identity itself for the robot connection). Existing
// members are notified so WebRTC offer/answer exchange can begin.
func (m *Manager) Join(connID, robotID, peerID string, role Role) {
	m.mu.Lock()

	// A connection is in at most one session at a time.
	var leaveEvents []Event
	if prior, ok := m.index[connID]; ok && prior != robotID {
		leaveEvents = m.leaveLocked(connID)
	}

	sess, ok := m.sessions[robotID]
	if !ok {
		sess = &session{
			robotID: robotID,
			members: make(map[string]Role),
			peerIDs: make(map[string]string),
		}
		m.sessions[robotID] = sess
	}

	recipients := sess.memberIDsExcept(connID)
	sess.members[connID] = role
	sess.peerIDs[connID] = peerID
	if role == RoleRobot {
		sess.robotConn = connID
	}
	m.index[connID] = robotID
	onEvent := m.onEvent
	m.mu.Unlock()

	if onEvent != nil {
		for _, ev := range leaveEvents {
			onEvent(ev)
		}
		onEvent(Event{
			Kind:       EventPeerJoined,
			RobotID:    robotID,
			ConnID:     connID,
			PeerID:     peerID,
			Role:       role,
			Recipients: recipients,
		})
	}
}

// Leave removes a connection from whatever session it belongs to. Remaining
// members are notified; a robot-role leave additionally marks the session's
// robot offline. An empty session is deleted. Unknown connections are a
// no-op.
func (m *Manager) Leave(connID string) {
	m.mu.Lock()
	events := m.leaveLocked(connID)
	onEvent := m.onEvent
	m.mu.Unlock()

	if onEvent != nil {
		for _, ev := range events {
			onEvent(ev)
		}
	}
}

// leaveLocked removes connID from its session and returns the events to
// emit once the lock is released.
func (m *Manager) leaveLocked(connID string) []Event {
	robotID, ok := m.index[connID]
	if !ok {
		return nil
	}
	delete(m.index, connID)

	sess, ok := m.sessions[robotID]
	if !ok {
		return nil
	}

	role := sess.members[connID]
	peerID := sess.peerIDs[connID]
	delete(sess.members, connID)
	delete(sess.peerIDs, connID)

	wasRobot := sess.robotConn == connID
	if wasRobot {
		sess.robotConn = ""
	}

	recipients := sess.memberIDsExcept(connID)
	if len(sess.members) == 0 {
		delete(m.sessions, robotID)
	}

	events := []Event{{
		Kind:       EventPeerLeft,
		RobotID:    robotID,
		ConnID:     connID,
		PeerID:     peerID,
		Role:       role,
		Recipients: recipients,
	}}
	if wasRobot && len(recipients) > 0 {
		events = append(events, Event{
			Kind:       EventRobotOffline,
			RobotID:    robotID,
			ConnID:     connID,
			PeerID:     peerID,
			Role:       role,
			Recipients: recipients,
		})
	}
	return events
}

// Members returns the member connection ids of the session for robotID.
// A missing session yields an empty slice, not an error.
func (m *Manager) Members(robotID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[robotID]
	if !ok {
		return nil
	}
	return sess.memberIDsExcept("")
}

// SessionFor returns the robot identity of the session a connection belongs
// to, if any.
func (m *Manager) SessionFor(connID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	robotID, ok := m.index[connID]
	return robotID, ok
}

// RobotOnline reports whether the session for robotID currently contains
// its robot connection.
func (m *Manager) RobotOnline(robotID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[robotID]
	return ok && sess.robotConn != ""
}

// UpdateHealth records the last health payload relayed for a robot. A
// missing session is a no-op.
func (m *Manager) UpdateHealth(robotID string, snapshot []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[robotID]; ok {
		sess.lastHealth = snapshot
	}
}

// LastHealth returns the last recorded health payload for a robot, or nil.
func (m *Manager) LastHealth(robotID string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[robotID]; ok {
		return sess.lastHealth
	}
	return nil
}

// SessionCount returns the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (s *session) memberIDsExcept(connID string) []string {
	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		if id != connID {
			ids = append(ids, id)
		}
	}
	return ids
}
