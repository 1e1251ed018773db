// Package presence merges the raw online/offline feed with each user's
// privacy settings into the status that is safe to display.
package presence

import (
	"errors"
	"time"
)

// ErrPresenceUnavailable marks a failed presence or privacy lookup. Callers
// degrade the affected users to offline instead of failing.
var ErrPresenceUnavailable = errors.New("presence unavailable")

// Status is the raw presence of a user, independent of privacy.
type Status struct {
	UserID     int       `json:"user_id"`
	Online     bool      `json:"online"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// PrivacySettings is owned by the user profile.
type PrivacySettings struct {
	HideOnlineStatus bool `json:"hide_online_status"`
}

// DisplayPresence is derived and never persisted.
type DisplayPresence struct {
	UserID int  `json:"user_id"`
	Online bool `json:"online"`
}

// Display maps user ids to their display-safe presence.
type Display map[int]DisplayPresence

// For returns the presence of id, offline when id is unknown.
func (d Display) For(id int) DisplayPresence {
	if p, ok := d[id]; ok {
		return p
	}
	return DisplayPresence{UserID: id}
}

// Fuse computes the display presence for every user in raw.
//
// online = raw.Online && !privacy.HideOnlineStatus. A user with no privacy
// record is shown as-is (the platform default is visible). Fuse is pure and
// returns a fresh map; call it again on every presence batch.
func Fuse(raw map[int]Status, privacy map[int]PrivacySettings) Display {
	out := make(Display, len(raw))
	for id, s := range raw {
		online := s.Online
		if p, ok := privacy[id]; ok && p.HideOnlineStatus {
			online = false
		}
		out[id] = DisplayPresence{UserID: id, Online: online}
	}
	return out
}

// Offline returns a display map with every id offline. Used when presence
// or privacy could not be loaded.
func Offline(ids []int) Display {
	out := make(Display, len(ids))
	for _, id := range ids {
		out[id] = DisplayPresence{UserID: id}
	}
	return out
}

// IsOnline applies the heartbeat rule the platform uses for last_online:
// a user is online when seen within window of now.
func IsOnline(lastSeen, now time.Time, window time.Duration) bool {
	return !lastSeen.IsZero() && now.Sub(lastSeen) <= window
}
