package domain

import "time"

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// PresenceEntry records the hub-side view of a user identity.
// One per user that has ever connected during the process lifetime;
// entries flip to offline on disconnect but are never deleted.
type PresenceEntry struct {
	UserID   UserID    `json:"userId"`
	Username string    `json:"username"`
	Status   Status    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}
