package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/telepresence-hub/backend/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in    string
		label model.PresenceLabel
		color string
	}{
		{"Available", model.PresenceAvailable, "green"},
		{"available", model.PresenceAvailable, "green"},
		{"AvailableIdle", model.PresenceAvailable, "green"},
		{"Away", model.PresenceAway, "yellow"},
		{"BeRightBack", model.PresenceAway, "yellow"},
		{"Busy", model.PresenceBusy, "red"},
		{"BusyIdle", model.PresenceBusy, "red"},
		{"DoNotDisturb", model.PresenceDoNotDisturb, "red"},
		{"Offline", model.PresenceOffline, "gray"},
		{"PresenceUnknown", model.PresenceOffline, "gray"},
		{"xyz-unknown", model.PresenceError, "gray"},
		{"", model.PresenceError, "gray"},
	}

	for _, tc := range cases {
		label, color := Classify(tc.in)
		if label != tc.label || color != tc.color {
			t.Errorf("Classify(%q) = %s/%s, want %s/%s", tc.in, label, color, tc.label, tc.color)
		}
	}
}

// newDirectoryServer serves the two-step profile + presence lookup and
// counts upstream calls.
func newDirectoryServer(profileCalls, presenceCalls *int32, availability string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/presence") {
			atomic.AddInt32(presenceCalls, 1)
			json.NewEncoder(w).Encode(map[string]string{"availability": availability})
			return
		}
		atomic.AddInt32(profileCalls, 1)
		json.NewEncoder(w).Encode(map[string]string{
			"id":          "U-1",
			"displayName": "Grace Hopper",
			"mail":        "grace@example.com",
		})
	}))
}

func TestGetPresenceCardAggregatesLookups(t *testing.T) {
	var profileCalls, presenceCalls int32
	server := newDirectoryServer(&profileCalls, &presenceCalls, "Busy")
	defer server.Close()

	adapter := NewAdapter(server.URL, "test-token")

	card, err := adapter.GetPresenceCard(context.Background(), "R-1", "U-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if card.DisplayName != "Grace Hopper" {
		t.Errorf("unexpected display name %q", card.DisplayName)
	}
	if card.Presence != model.PresenceBusy || card.Color != "red" {
		t.Errorf("unexpected presence %s/%s", card.Presence, card.Color)
	}
	if card.IconRef == "" {
		t.Error("expected an icon reference")
	}
	if profileCalls != 1 || presenceCalls != 1 {
		t.Errorf("expected one call pair, got %d/%d", profileCalls, presenceCalls)
	}
}

func TestConcurrentLookupsAreCoalesced(t *testing.T) {
	var profileCalls, presenceCalls int32
	gate := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/presence") {
			atomic.AddInt32(&presenceCalls, 1)
			json.NewEncoder(w).Encode(map[string]string{"availability": "Available"})
			return
		}
		<-gate // hold the first lookup open so duplicates pile up
		atomic.AddInt32(&profileCalls, 1)
		json.NewEncoder(w).Encode(map[string]string{"displayName": "Grace Hopper"})
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, "test-token")

	const callers = 5
	var wg sync.WaitGroup
	cards := make([]*model.PresenceCard, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			cards[idx], errs[idx] = adapter.GetPresenceCard(context.Background(), "R-1", "U-1")
		}(i)
	}

	// Give every caller time to join the in-flight lookup before the
	// upstream responds.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if cards[i] != cards[0] {
			t.Errorf("caller %d received a different result instance", i)
		}
	}

	if got := atomic.LoadInt32(&profileCalls); got != 1 {
		t.Errorf("expected 1 coalesced profile lookup, got %d", got)
	}
	if got := atomic.LoadInt32(&presenceCalls); got != 1 {
		t.Errorf("expected 1 coalesced presence lookup, got %d", got)
	}
}

func TestPresenceFailureDegradesToOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/presence") {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"displayName": "Grace Hopper"})
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, "test-token")

	card, err := adapter.GetPresenceCard(context.Background(), "R-1", "U-1")
	if err != nil {
		t.Fatalf("presence failure must not fail the card: %v", err)
	}
	if card.Presence != model.PresenceOffline || card.Color != "gray" {
		t.Errorf("expected Offline/gray degradation, got %s/%s", card.Presence, card.Color)
	}
	if card.DisplayName != "Grace Hopper" {
		t.Errorf("profile data should survive presence failure, got %q", card.DisplayName)
	}
}

func TestProfileFailureIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, "test-token")

	if _, err := adapter.GetPresenceCard(context.Background(), "R-1", "U-ghost"); err == nil {
		t.Fatal("expected profile lookup failure to surface as an error")
	}
}

func TestSendChat(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, "test-token")

	if err := adapter.SendChat(context.Background(), "chat-9", "hello there"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/chats/chat-9/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	body, _ := gotBody["body"].(map[string]interface{})
	if body["content"] != "hello there" {
		t.Errorf("unexpected chat body: %v", gotBody)
	}
}
