package model

import "time"

// SmartAction is a configured fiducial-marker-to-webhook mapping that a
// driver can trigger from the AR overlay. The marker pattern and icon
// assets are stored on disk keyed by the action ID.
type SmartAction struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	WebhookURL string    `json:"webhookUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Invite is an outstanding driver invitation token.
type Invite struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

// Driver is an allow-listed remote driver account.
type Driver struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"createdAt"`
}
