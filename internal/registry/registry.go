// Package registry tracks which transport connections are bound to which
// robot identities. It is the single source of truth for robot liveness;
// session membership is cleaned up against it on disconnect.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Binding records one connection's robot identity.
type Binding struct {
	ConnID  string
	RobotID string
	BoundAt time.Time
}

// Registry maps connection ids to robot identities. Process-lifetime only;
// create one per server and inject it where needed.
type Registry struct {
	mu       sync.RWMutex
	byConn   map[string]Binding
	onRemove func(robotID string)
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byConn: make(map[string]Binding),
	}
}

// SetOnRobotRemoved sets the callback invoked when Unregister frees a
// robot-bound connection. The callback runs outside the registry lock so it
// may schedule notification work without deadlocking.
func (r *Registry) SetOnRobotRemoved(callback func(robotID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemove = callback
}

// Register binds a connection to a robot identity. Idempotent: a repeat
// call for the same connection overwrites the prior binding.
func (r *Registry) Register(connID, robotID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[connID] = Binding{
		ConnID:  connID,
		RobotID: robotID,
		BoundAt: time.Now(),
	}
}

// Unregister removes the binding for a connection and returns the robot
// identity it was bound to. Unknown connections are a no-op, not an error.
func (r *Registry) Unregister(connID string) (string, bool) {
	r.mu.Lock()
	binding, ok := r.byConn[connID]
	if ok {
		delete(r.byConn, connID)
	}
	onRemove := r.onRemove
	r.mu.Unlock()

	if !ok {
		return "", false
	}

	if onRemove != nil {
		onRemove(binding.RobotID)
	}
	return binding.RobotID, true
}

// RobotFor returns the robot identity bound to a connection, if any.
func (r *Registry) RobotFor(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.byConn[connID]
	return binding.RobotID, ok
}

// ActiveRobots returns the sorted set of currently bound robot identities.
func (r *Registry) ActiveRobots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.byConn))
	robots := make([]string, 0, len(r.byConn))
	for _, binding := range r.byConn {
		if !seen[binding.RobotID] {
			seen[binding.RobotID] = true
			robots = append(robots, binding.RobotID)
		}
	}
	sort.Strings(robots)
	return robots
}

// IsActive reports whether any connection is currently bound to the robot.
func (r *Registry) IsActive(robotID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, binding := range r.byConn {
		if binding.RobotID == robotID {
			return true
		}
	}
	return false
}

// Count returns the number of bound connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
