package model

// PresenceLabel is the normalized availability classification for a
// directory occupant.
type PresenceLabel string

const (
	PresenceAvailable    PresenceLabel = "Available"
	PresenceAway         PresenceLabel = "Away"
	PresenceBusy         PresenceLabel = "Busy"
	PresenceDoNotDisturb PresenceLabel = "Do-not-disturb"
	PresenceOffline      PresenceLabel = "Offline"
	PresenceError        PresenceLabel = "Error"
)

// PresenceCard is the aggregated directory display data for one building
// occupant, shown inside a robot session.
type PresenceCard struct {
	UserID       string        `json:"userId"`
	DisplayName  string        `json:"displayName"`
	Presence     PresenceLabel `json:"presence"`
	Color        string        `json:"color"`
	IconRef      string        `json:"iconRef,omitempty"`
}
