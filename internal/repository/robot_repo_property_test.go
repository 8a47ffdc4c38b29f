package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/telepresence-hub/backend/internal/db"
	"github.com/telepresence-hub/backend/internal/model"
)

// generateID generates a unique ID for testing.
func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Any robot created in the store is retrievable by both its public identity
// and its private secret, and deleting it removes both lookup paths.
func TestRobotRoundTripProperty(t *testing.T) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer database.Close()

	repo := NewRobotRepository(database)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("created robots are retrievable and deletable", prop.ForAll(
		func(name, location string) bool {
			secret := generateID()
			robot := &model.Robot{
				ID:        model.RobotIDFromSecret(secret),
				Secret:    secret,
				Name:      name,
				Location:  location,
				CreatedAt: time.Now(),
			}

			if err := repo.Create(ctx, robot); err != nil {
				return false
			}

			byID, err := repo.GetByID(ctx, robot.ID)
			if err != nil || byID.Name != name || byID.Location != location {
				return false
			}

			bySecret, err := repo.GetBySecret(ctx, secret)
			if err != nil || bySecret.ID != robot.ID {
				return false
			}

			if err := repo.Delete(ctx, robot.ID); err != nil {
				return false
			}

			_, err = repo.GetByID(ctx, robot.ID)
			return err == model.ErrRobotNotFound
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestRobotIDDerivation(t *testing.T) {
	id1 := model.RobotIDFromSecret("secret-a")
	id2 := model.RobotIDFromSecret("secret-a")
	id3 := model.RobotIDFromSecret("secret-b")

	if id1 != id2 {
		t.Error("identity derivation must be deterministic")
	}
	if id1 == id3 {
		t.Error("distinct secrets must derive distinct identities")
	}
	if len(id1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(id1))
	}
}
