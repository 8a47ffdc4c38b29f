package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Robot represents a registered telepresence robot.
//
// The public ID is the hash of the private secret. Driver-facing surfaces
// only ever see the ID; the robot-side page authenticates by presenting the
// secret, which is issued once at creation time.
type Robot struct {
	ID        string    `json:"id"`
	Secret    string    `json:"-"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// RobotIDFromSecret derives the public robot identity from its private secret.
func RobotIDFromSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// CreateRobotRequest represents a request to register a new robot.
type CreateRobotRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

// Validate validates the create robot request.
func (r *CreateRobotRequest) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	return nil
}
