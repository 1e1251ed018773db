// Package discovery ranks the people near a point: it queries a spatial
// index, re-checks distances, applies favorites, attaches display-safe
// presence and orders the result by distance.
package discovery

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"gitea.kood.tech/petrkubec/nearby/filters"
	"gitea.kood.tech/petrkubec/nearby/presence"
)

// Hit is one row returned by a spatial index.
type Hit struct {
	UserID      int
	Coordinates Coordinate
}

// Index answers radius queries over a maintained spatial index. Results may
// be a superset of the radius; order is unspecified.
type Index interface {
	QueryNearby(ctx context.Context, center Coordinate, radiusMeters float64, pred filters.Predicate, excludeUserID int) ([]Hit, error)
}

type PresenceReader interface {
	Statuses(ctx context.Context, userIDs []int) (map[int]presence.Status, error)
}

type PrivacyReader interface {
	Settings(ctx context.Context, userIDs []int) (map[int]presence.PrivacySettings, error)
}

type Favorites interface {
	IsFavorite(ctx context.Context, requesterID, candidateID int) (bool, error)
}

// FavoritesLister is an optional batch form of Favorites. When the
// Favorites collaborator implements it, Discover does one lookup instead of
// one per candidate.
type FavoritesLister interface {
	FavoritesOf(ctx context.Context, requesterID int) (map[int]bool, error)
}

// Ranker is safe for concurrent use; it only holds collaborator references.
type Ranker struct {
	index     Index
	presence  PresenceReader
	privacy   PrivacyReader
	favorites Favorites
	log       logrus.FieldLogger
}

func NewRanker(index Index, presence PresenceReader, privacy PrivacyReader, favorites Favorites, log logrus.FieldLogger) *Ranker {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Ranker{
		index:     index,
		presence:  presence,
		privacy:   privacy,
		favorites: favorites,
		log:       log,
	}
}

// Discover returns the candidates within radiusMeters of center that match
// fs, nearest first. A set fs.MaxDistanceMeters narrows the radius.
//
// ErrInvalidQuery is returned before any collaborator is called.
// ErrDiscoveryUnavailable wraps index and favorites failures. Presence and
// privacy failures do not fail the query; affected users are shown offline.
func (r *Ranker) Discover(ctx context.Context, center Coordinate, radiusMeters float64, fs filters.FilterSet, requesterID int) (*Results, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters <= 0 {
		return nil, fmt.Errorf("%w: radius %v must be positive", ErrInvalidQuery, radiusMeters)
	}
	if limit, ok := fs.DistanceCap(); ok && limit < radiusMeters {
		radiusMeters = limit
	}

	pred, _ := filters.Composer{}.Compose(fs)

	hits, err := r.index.QueryNearby(ctx, center, radiusMeters, pred, requesterID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: spatial query: %w", ErrDiscoveryUnavailable, err)
	}

	candidates := make([]NearbyCandidate, 0, len(hits))
	seen := make(map[int]bool, len(hits))
	for _, h := range hits {
		if h.UserID == requesterID || seen[h.UserID] || h.Coordinates.Validate() != nil {
			continue
		}
		d := Haversine(center, h.Coordinates)
		// The index may over-fetch; the radius is enforced here regardless.
		if d > radiusMeters {
			continue
		}
		seen[h.UserID] = true
		candidates = append(candidates, NearbyCandidate{
			UserID:         h.UserID,
			Coordinates:    h.Coordinates,
			DistanceMeters: d,
		})
	}

	if fs.FavoritesOnly {
		candidates, err = r.keepFavorites(ctx, requesterID, candidates)
		if err != nil {
			return nil, err
		}
	}

	ids := make([]int, len(candidates))
	for i, c := range candidates {
		ids[i] = c.UserID
	}
	display := r.displayPresence(ctx, ids)
	for i := range candidates {
		candidates[i].Presence = display.For(candidates[i].UserID)
	}

	slices.SortFunc(candidates, func(a, b NearbyCandidate) int {
		if c := cmp.Compare(a.DistanceMeters, b.DistanceMeters); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	return newResults(candidates), nil
}

func (r *Ranker) keepFavorites(ctx context.Context, requesterID int, candidates []NearbyCandidate) ([]NearbyCandidate, error) {
	if r.favorites == nil || len(candidates) == 0 {
		return candidates[:0], nil
	}

	if lister, ok := r.favorites.(FavoritesLister); ok {
		favs, err := lister.FavoritesOf(ctx, requesterID)
		if err != nil {
			return nil, fmt.Errorf("%w: favorites: %w", ErrDiscoveryUnavailable, err)
		}
		return slices.DeleteFunc(candidates, func(c NearbyCandidate) bool { return !favs[c.UserID] }), nil
	}

	kept := candidates[:0]
	for _, c := range candidates {
		ok, err := r.favorites.IsFavorite(ctx, requesterID, c.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: favorites: %w", ErrDiscoveryUnavailable, err)
		}
		if ok {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// displayPresence never fails: on any lookup error every user is offline.
// A privacy error must not fall back to "visible", so it degrades too.
func (r *Ranker) displayPresence(ctx context.Context, ids []int) presence.Display {
	display, err := presence.Lookup(ctx, r.presence, r.privacy, ids)
	if err != nil {
		r.log.WithError(err).
			WithField("users", len(ids)).
			Warn("Presence lookup failed, showing users offline")
	}
	return display
}
