package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/telepresence-hub/backend/internal/model"
	"github.com/telepresence-hub/backend/internal/registry"
	"github.com/telepresence-hub/backend/internal/room"
)

// stubDispatcher records dispatch calls without side effects.
type stubDispatcher struct {
	mu      sync.Mutex
	actions []string
	urls    []string
}

func (d *stubDispatcher) Dispatch(actionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = append(d.actions, actionID)
}

func (d *stubDispatcher) DispatchURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
}

// stubDirectory serves canned presence cards.
type stubDirectory struct {
	mu    sync.Mutex
	card  *model.PresenceCard
	err   error
	chats []string
}

func (s *stubDirectory) GetPresenceCard(ctx context.Context, robotID, userID string) (*model.PresenceCard, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.card, nil
}

func (s *stubDirectory) SendChat(ctx context.Context, chatID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, chatID+":"+content)
	return nil
}

// blockingDirectory blocks lookups until released, for testing pending
// lookups that outlive their requester.
type blockingDirectory struct {
	release chan struct{}
}

func (b *blockingDirectory) GetPresenceCard(ctx context.Context, robotID, userID string) (*model.PresenceCard, error) {
	<-b.release
	return &model.PresenceCard{UserID: userID, Presence: model.PresenceAvailable, Color: "green"}, nil
}

func (b *blockingDirectory) SendChat(ctx context.Context, chatID, content string) error {
	return nil
}

// newTestService builds a fully wired relay service with stub collaborators.
func newTestService(dir DirectoryService) (*Service, *stubDispatcher) {
	dispatcher := &stubDispatcher{}
	if dir == nil {
		dir = &stubDirectory{}
	}
	svc := NewService(registry.New(), room.NewManager(), dispatcher, dir)
	return svc, dispatcher
}

// newTestClient creates a relay client without a real WebSocket connection
// and registers it with the handler.
func newTestClient(h *Handler, connID string) *Client {
	client := &Client{
		id:   connID,
		conn: nil,
		send: make(chan []byte, 256),
	}
	h.addClient(client)
	return client
}

// receiveMessage reads one queued message from a client or fails the test.
func receiveMessage(t *testing.T, client *Client, timeout time.Duration) *Message {
	t.Helper()
	select {
	case data, ok := <-client.SendChan():
		if !ok {
			t.Fatal("client send channel closed")
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to unmarshal relayed message: %v", err)
		}
		return &msg
	case <-time.After(timeout):
		t.Fatal("timed out waiting for relayed message")
		return nil
	}
}

// drainOne returns the next message if one is queued, or nil.
func drainOne(client *Client) *Message {
	select {
	case data := <-client.SendChan():
		var msg Message
		if json.Unmarshal(data, &msg) != nil {
			return nil
		}
		return &msg
	default:
		return nil
	}
}

func TestControlMessageScopedToSession(t *testing.T) {
	svc, _ := newTestService(nil)
	h := svc.Handler()

	robotA := newTestClient(h, "conn-robot-a")
	robotB := newTestClient(h, "conn-robot-b")
	driver := newTestClient(h, "conn-driver")

	h.HandleMessage(robotA, &Message{Kind: KindRobotAlive, RobotID: "R-A"})
	h.HandleMessage(robotB, &Message{Kind: KindRobotAlive, RobotID: "R-B"})
	h.HandleMessage(driver, &Message{Kind: KindJoinRobot, RobotID: "R-A", UserID: "D-1"})

	// Drain the join announcement sent to the robot.
	if msg := receiveMessage(t, robotA, time.Second); msg.Kind != KindUserConnected || msg.UserID != "D-1" {
		t.Errorf("expected user-connected for D-1, got %+v", msg)
	}

	h.HandleMessage(driver, &Message{Kind: KindControl, Target: "R-A", Content: "forward"})

	msg := receiveMessage(t, robotA, time.Second)
	if msg.Kind != KindControl || msg.Target != "R-A" || msg.Content != "forward" {
		t.Errorf("unexpected relayed message: %+v", msg)
	}
	if msg.Origin != "conn-driver" {
		t.Errorf("expected origin annotation conn-driver, got %q", msg.Origin)
	}

	// The other robot's session must not see R-A traffic.
	if stray := drainOne(robotB); stray != nil {
		t.Errorf("robot B received out-of-session message: %+v", stray)
	}
}

func TestMalformedMessageDropped(t *testing.T) {
	svc, dispatcher := newTestService(nil)
	h := svc.Handler()

	robot := newTestClient(h, "conn-robot")
	h.HandleMessage(robot, &Message{Kind: KindRobotAlive, RobotID: "R-1"})

	// Missing target: dropped, not relayed, not an error.
	h.HandleMessage(robot, &Message{Kind: KindControl, Content: "forward"})

	// Coordinates out of range: dropped.
	x, y := 1.5, 0.5
	h.HandleMessage(robot, &Message{Kind: KindClickToDrive, Target: "R-1", XCoord: &x, YCoord: &y, Attempt: true})

	// Trigger with neither action id nor URL: dropped.
	h.HandleMessage(robot, &Message{Kind: KindTriggerAction})

	if stray := drainOne(robot); stray != nil {
		t.Errorf("malformed message was relayed: %+v", stray)
	}
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if len(dispatcher.actions)+len(dispatcher.urls) != 0 {
		t.Error("malformed trigger must not reach the dispatcher")
	}
}

func TestMissingTargetDeliversToNobody(t *testing.T) {
	svc, _ := newTestService(nil)
	h := svc.Handler()

	robot := newTestClient(h, "conn-robot")
	h.HandleMessage(robot, &Message{Kind: KindRobotAlive, RobotID: "R-1"})

	// Target references a robot with no session: accepted, delivered nowhere.
	h.HandleMessage(robot, &Message{Kind: KindControl, Target: "R-unknown", Content: "forward"})

	if stray := drainOne(robot); stray != nil {
		t.Errorf("message for unknown target was delivered: %+v", stray)
	}
}

func TestHoverPreviewThrottled(t *testing.T) {
	svc, _ := newTestService(nil)
	h := svc.Handler()

	robot := newTestClient(h, "conn-robot")
	driver := newTestClient(h, "conn-driver")

	h.HandleMessage(robot, &Message{Kind: KindRobotAlive, RobotID: "R-1"})
	h.HandleMessage(driver, &Message{Kind: KindJoinRobot, RobotID: "R-1", UserID: "D-1"})
	receiveMessage(t, robot, time.Second) // user-connected

	x, y := 0.3, 0.7
	preview := &Message{Kind: KindClickToDrive, Target: "R-1", XCoord: &x, YCoord: &y}

	h.HandleMessage(driver, preview)
	h.HandleMessage(driver, preview)

	first := receiveMessage(t, robot, time.Second)
	if first.Kind != KindClickToDrive || first.Attempt {
		t.Errorf("expected hover preview, got %+v", first)
	}
	if second := drainOne(robot); second != nil {
		t.Errorf("second preview inside the window should be throttled, got %+v", second)
	}

	// Committed clicks always pass, even inside the window.
	commit := &Message{Kind: KindClickToDrive, Target: "R-1", XCoord: &x, YCoord: &y, Attempt: true}
	h.HandleMessage(driver, commit)
	if msg := receiveMessage(t, robot, time.Second); !msg.Attempt {
		t.Errorf("committed click was not relayed: %+v", msg)
	}
}

func TestTriggerActionReachesDispatcher(t *testing.T) {
	svc, dispatcher := newTestService(nil)
	h := svc.Handler()

	driver := newTestClient(h, "conn-driver")

	h.HandleMessage(driver, &Message{Kind: KindTriggerAction, ActionID: "action-42"})
	h.HandleMessage(driver, &Message{Kind: KindTriggerAction, URL: "https://hooks.example.com/fire"})

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if len(dispatcher.actions) != 1 || dispatcher.actions[0] != "action-42" {
		t.Errorf("expected action-42 dispatched, got %v", dispatcher.actions)
	}
	if len(dispatcher.urls) != 1 || dispatcher.urls[0] != "https://hooks.example.com/fire" {
		t.Errorf("expected raw URL dispatched, got %v", dispatcher.urls)
	}
}

func TestOfficeCardDeliveredToRequester(t *testing.T) {
	dir := &stubDirectory{card: &model.PresenceCard{
		UserID:      "U-1",
		DisplayName: "Ada Lovelace",
		Presence:    model.PresenceAvailable,
		Color:       "green",
	}}
	svc, _ := newTestService(dir)
	h := svc.Handler()

	driver := newTestClient(h, "conn-driver")

	h.HandleMessage(driver, &Message{Kind: KindGetOfficeCard, Target: "R-1", UserID: "U-1"})

	msg := receiveMessage(t, driver, time.Second)
	if msg.Kind != KindOfficeCard || msg.Card == nil {
		t.Fatalf("expected office-card reply, got %+v", msg)
	}
	if msg.Card.DisplayName != "Ada Lovelace" || msg.Card.Presence != model.PresenceAvailable {
		t.Errorf("unexpected card: %+v", msg.Card)
	}
}

func TestOfficeCardLookupFailureDegradesToError(t *testing.T) {
	dir := &stubDirectory{err: context.DeadlineExceeded}
	svc, _ := newTestService(dir)
	h := svc.Handler()

	driver := newTestClient(h, "conn-driver")

	h.HandleMessage(driver, &Message{Kind: KindGetOfficeCard, Target: "R-1", UserID: "U-1"})

	msg := receiveMessage(t, driver, time.Second)
	if msg.Kind != KindOfficeCard || msg.Card == nil {
		t.Fatalf("expected office-card reply, got %+v", msg)
	}
	if msg.Card.Presence != model.PresenceError || msg.Card.Color != "gray" {
		t.Errorf("expected Error/gray degradation, got %+v", msg.Card)
	}
}

func TestJoinOfflineRobotSignalsRobotOffline(t *testing.T) {
	svc, _ := newTestService(nil)
	h := svc.Handler()

	driver := newTestClient(h, "conn-driver")
	h.HandleMessage(driver, &Message{Kind: KindJoinRobot, RobotID: "R-ghost", UserID: "D-1"})

	msg := receiveMessage(t, driver, time.Second)
	if msg.Kind != KindRobotOffline || msg.Target != "R-ghost" {
		t.Errorf("expected robot-offline signal, got %+v", msg)
	}
}
