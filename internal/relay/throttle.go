package relay

import (
	"sync"
	"time"
)

// clickWindow is the minimum spacing between relayed hover previews from a
// single origin. Committed clicks always pass.
const clickWindow = 200 * time.Millisecond

// throttle rate-limits hover previews from one origin connection. It never
// reorders messages; it only drops previews that arrive inside the window.
type throttle struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
}

func newThrottle(window time.Duration) *throttle {
	return &throttle{window: window}
}

// allow reports whether an event at the given time may pass, and if so
// consumes the window.
func (t *throttle) allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() && now.Sub(t.last) < t.window {
		return false
	}
	t.last = now
	return true
}
