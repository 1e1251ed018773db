package discovery

import (
	"iter"
	"sync/atomic"

	"gitea.kood.tech/petrkubec/nearby/presence"
	"gitea.kood.tech/petrkubec/nearby/units"
)

// NearbyCandidate is a user found by Discover. It lives only as long as the
// query result it came from.
type NearbyCandidate struct {
	UserID         int                      `json:"user_id"`
	Coordinates    Coordinate               `json:"coordinates"`
	DistanceMeters float64                  `json:"distance_meters"`
	Presence       presence.DisplayPresence `json:"presence"`
}

// DistanceLabel formats the distance for the viewer's measurement system.
func (c NearbyCandidate) DistanceLabel(sys units.System) string {
	return units.FormatDistance(c.DistanceMeters, sys)
}

// Results is the ordered output of one Discover call. It can be consumed
// once; refreshing means calling Discover again.
type Results struct {
	candidates []NearbyCandidate
	consumed   atomic.Bool
}

func newResults(c []NearbyCandidate) *Results {
	return &Results{candidates: c}
}

// Len is the number of candidates, whether or not they were consumed.
func (r *Results) Len() int { return len(r.candidates) }

// All yields the candidates nearest first. Only the first iteration yields
// anything; later iterations are empty.
func (r *Results) All() iter.Seq[NearbyCandidate] {
	return func(yield func(NearbyCandidate) bool) {
		if !r.consumed.CompareAndSwap(false, true) {
			return
		}
		for _, c := range r.candidates {
			if !yield(c) {
				return
			}
		}
	}
}

// Collect drains All into a slice.
func (r *Results) Collect() []NearbyCandidate {
	out := make([]NearbyCandidate, 0, len(r.candidates))
	for c := range r.All() {
		out = append(out, c)
	}
	return out
}
