// Package dispatch fires smart-action webhooks as independent units of
// work, decoupled from the relay loop.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/telepresence-hub/backend/internal/repository"
)

const (
	requestTimeout = 10 * time.Second
	retryBackoff   = 500 * time.Millisecond
)

// Bridge resolves smart actions to their webhook targets and issues the
// outbound calls. Dispatch methods return immediately; delivery happens on
// a separate goroutine with one retried attempt, and the outcome is logged
// either way.
type Bridge struct {
	actions *repository.ActionRepository
	client  *http.Client
	backoff time.Duration
}

// NewBridge creates a dispatch bridge over the action record store.
func NewBridge(actions *repository.ActionRepository) *Bridge {
	return &Bridge{
		actions: actions,
		client:  &http.Client{Timeout: requestTimeout},
		backoff: retryBackoff,
	}
}

// Dispatch resolves the action's webhook target and fires it. The resolve
// happens on the dispatch goroutine so a slow record store cannot stall the
// caller.
func (b *Bridge) Dispatch(actionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		action, err := b.actions.GetByID(ctx, actionID)
		if err != nil {
			log.Printf("Smart action %s not dispatched: %v", actionID, err)
			return
		}

		if err := b.Deliver(action.WebhookURL); err != nil {
			log.Printf("Smart action %s webhook failed: %v", actionID, err)
			return
		}
		log.Printf("Smart action %s dispatched", actionID)
	}()
}

// DispatchURL fires a raw webhook URL carried directly on a trigger
// message.
func (b *Bridge) DispatchURL(url string) {
	go func() {
		if err := b.Deliver(url); err != nil {
			log.Printf("Webhook %s failed: %v", url, err)
		}
	}()
}

// Deliver issues the webhook GET, retrying once after a short backoff. It
// is synchronous; the Dispatch methods wrap it in a goroutine.
func (b *Bridge) Deliver(url string) error {
	err := b.attempt(url)
	if err == nil {
		return nil
	}

	time.Sleep(b.backoff)
	if retryErr := b.attempt(url); retryErr == nil {
		return nil
	}
	return err
}

func (b *Bridge) attempt(url string) error {
	resp, err := b.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
