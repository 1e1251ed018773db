package presence

import (
	"context"
	"fmt"
)

type StatusSource interface {
	Statuses(ctx context.Context, userIDs []int) (map[int]Status, error)
}

type PrivacySource interface {
	Settings(ctx context.Context, userIDs []int) (map[int]PrivacySettings, error)
}

// Lookup loads raw presence and privacy for ids and fuses them. On any
// error it returns every id offline together with an error wrapping
// ErrPresenceUnavailable, so callers can log and carry on. A nil privacy
// source means nobody hides their status; a nil status source means
// everyone is offline.
func Lookup(ctx context.Context, statuses StatusSource, privacy PrivacySource, ids []int) (Display, error) {
	if len(ids) == 0 || statuses == nil {
		return Offline(ids), nil
	}

	raw, err := statuses.Statuses(ctx, ids)
	if err != nil {
		return Offline(ids), fmt.Errorf("%w: statuses: %w", ErrPresenceUnavailable, err)
	}

	var settings map[int]PrivacySettings
	if privacy != nil {
		settings, err = privacy.Settings(ctx, ids)
		if err != nil {
			return Offline(ids), fmt.Errorf("%w: privacy: %w", ErrPresenceUnavailable, err)
		}
	}
	return Fuse(raw, settings), nil
}
