package directory

import (
	"strings"

	"github.com/telepresence-hub/backend/internal/model"
)

// Classify maps a raw directory availability string to a presence label and
// display color. Matching is case-insensitive; unrecognized values classify
// as Error rather than failing.
func Classify(availability string) (model.PresenceLabel, string) {
	switch strings.ToLower(availability) {
	case "available", "availableidle":
		return model.PresenceAvailable, "green"
	case "away", "berightback":
		return model.PresenceAway, "yellow"
	case "busy", "busyidle":
		return model.PresenceBusy, "red"
	case "donotdisturb":
		return model.PresenceDoNotDisturb, "red"
	case "offline", "presenceunknown":
		return model.PresenceOffline, "gray"
	default:
		return model.PresenceError, "gray"
	}
}
