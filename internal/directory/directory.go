// Package directory queries the external directory API for occupant
// profiles and presence, aggregating them into session-scoped display
// cards.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/telepresence-hub/backend/internal/model"
)

// Adapter performs the profile and presence lookups against the directory
// API. Duplicate lookups for the same (robot, user) pair while one is in
// flight are coalesced into a single upstream call pair.
type Adapter struct {
	baseURL string
	token   string
	client  *http.Client
	group   singleflight.Group
}

// NewAdapter creates a directory adapter. baseURL is the directory API
// root; token is the bearer token used for all calls.
func NewAdapter(baseURL, token string) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type userProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
}

type userPresence struct {
	Availability string `json:"availability"`
	Activity     string `json:"activity"`
}

// GetPresenceCard resolves the aggregated office card for one occupant:
// profile lookup first, then presence, classified into a display label.
// A presence lookup failure degrades to Offline; only a profile failure is
// an error.
func (a *Adapter) GetPresenceCard(ctx context.Context, robotID, userID string) (*model.PresenceCard, error) {
	key := robotID + "/" + userID

	result, err, _ := a.group.Do(key, func() (interface{}, error) {
		return a.lookupCard(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.PresenceCard), nil
}

func (a *Adapter) lookupCard(ctx context.Context, userID string) (*model.PresenceCard, error) {
	profile, err := a.fetchProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}

	card := &model.PresenceCard{
		UserID:      userID,
		DisplayName: profile.DisplayName,
	}

	presence, err := a.fetchPresence(ctx, userID)
	if err != nil {
		// The card is still useful without live presence.
		card.Presence = model.PresenceOffline
		card.Color = "gray"
	} else {
		card.Presence, card.Color = Classify(presence.Availability)
	}
	card.IconRef = iconRef(card.Presence)

	return card, nil
}

func (a *Adapter) fetchProfile(ctx context.Context, userID string) (*userProfile, error) {
	var profile userProfile
	if err := a.getJSON(ctx, "/users/"+userID, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (a *Adapter) fetchPresence(ctx context.Context, userID string) (*userPresence, error) {
	var presence userPresence
	if err := a.getJSON(ctx, "/users/"+userID+"/presence", &presence); err != nil {
		return nil, err
	}
	return &presence, nil
}

// SendChat forwards a chat message to the directory chat endpoint.
func (a *Adapter) SendChat(ctx context.Context, chatID, content string) error {
	body, err := json.Marshal(map[string]interface{}{
		"body": map[string]string{"content": content},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/chats/"+chatID+"/messages", strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("chat send returned status %d", resp.StatusCode)
	}
	return nil
}

func (a *Adapter) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("directory returned status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// iconRef picks the static presence icon for a label.
func iconRef(label model.PresenceLabel) string {
	return "/assets/presence/" + strings.ToLower(string(label)) + ".png"
}
