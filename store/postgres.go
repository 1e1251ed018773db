// Package store holds the platform-side collaborators discovery consumes:
// the Postgres-backed spatial query, presence, privacy and favorites, and
// their Redis equivalents.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"gitea.kood.tech/petrkubec/nearby/discovery"
	"gitea.kood.tech/petrkubec/nearby/filters"
	"gitea.kood.tech/petrkubec/nearby/presence"
)

// DefaultPresenceWindow is how recent last_online must be to count as online.
const DefaultPresenceWindow = 90 * time.Second

// Postgres implements discovery.Index, discovery.PresenceReader and
// discovery.Favorites over the platform database.
type Postgres struct {
	DB     *sql.DB
	Window time.Duration
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db, Window: DefaultPresenceWindow}
}

// queryArgs numbers placeholders as arguments are added.
type queryArgs []any

func (a *queryArgs) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// QueryNearby narrows by bounding box and compiles the predicate into SQL.
// The box is a superset of the radius circle; the ranker re-checks distance.
func (p *Postgres) QueryNearby(ctx context.Context, center discovery.Coordinate, radiusMeters float64, pred filters.Predicate, excludeUserID int) ([]discovery.Hit, error) {
	box := discovery.BoundingBox(center, radiusMeters)

	var args queryArgs
	where := []string{
		"p.is_complete = TRUE",
		"p.location_lat IS NOT NULL",
		"p.location_lon IS NOT NULL",
		"p.user_id <> " + args.add(excludeUserID),
		fmt.Sprintf("p.location_lat BETWEEN %s AND %s", args.add(box.MinLat), args.add(box.MaxLat)),
		fmt.Sprintf("p.location_lon BETWEEN %s AND %s", args.add(box.MinLon), args.add(box.MaxLon)),
	}
	if pred.Age != nil {
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM age(p.birth_date))::int BETWEEN %s AND %s",
			args.add(pred.Age.Min), args.add(pred.Age.Max)))
	}
	if pred.HeightCm != nil {
		where = append(where, fmt.Sprintf("p.height_cm BETWEEN %s AND %s", args.add(pred.HeightCm.Min), args.add(pred.HeightCm.Max)))
	}
	if pred.WeightKg != nil {
		where = append(where, fmt.Sprintf("p.weight_kg BETWEEN %s AND %s", args.add(pred.WeightKg.Min), args.add(pred.WeightKg.Max)))
	}
	if len(pred.EventTypes) > 0 {
		where = append(where, "p.event_types && "+args.add(pq.Array(pred.EventTypes)))
	}
	if pred.Dates != nil {
		where = append(where, "p.next_event_at IS NOT NULL")
		if !pred.Dates.From.IsZero() {
			where = append(where, "p.next_event_at >= "+args.add(pred.Dates.From))
		}
		if !pred.Dates.To.IsZero() {
			where = append(where, "p.next_event_at <= "+args.add(pred.Dates.To))
		}
	}

	query := `
		SELECT p.user_id, p.location_lat, p.location_lon
		FROM profiles p
		WHERE ` + strings.Join(where, "\n\t\t  AND ")

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []discovery.Hit
	for rows.Next() {
		var h discovery.Hit
		if err := rows.Scan(&h.UserID, &h.Coordinates.Latitude, &h.Coordinates.Longitude); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Statuses reads last_online for every id; users without a row are omitted.
func (p *Postgres) Statuses(ctx context.Context, userIDs []int) (map[int]presence.Status, error) {
	out := make(map[int]presence.Status, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := p.DB.QueryContext(ctx, `
		SELECT id, last_online,
		       COALESCE(last_online > NOW() - make_interval(secs => $2), FALSE) AS online
		FROM users
		WHERE id = ANY($1)
	`, pq.Array(userIDs), p.window().Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s presence.Status
		var lastOnline sql.NullTime
		if err := rows.Scan(&s.UserID, &lastOnline, &s.Online); err != nil {
			return nil, err
		}
		if lastOnline.Valid {
			s.LastSeenAt = lastOnline.Time
		}
		out[s.UserID] = s
	}
	return out, rows.Err()
}

// Touch marks userID as online now and returns the new status.
func (p *Postgres) Touch(ctx context.Context, userID int) (presence.Status, error) {
	var lastOnline time.Time
	err := p.DB.QueryRowContext(ctx,
		`UPDATE users SET last_online = NOW() WHERE id = $1 RETURNING last_online`, userID,
	).Scan(&lastOnline)
	if err != nil {
		return presence.Status{}, err
	}
	return presence.Status{UserID: userID, Online: true, LastSeenAt: lastOnline}, nil
}

func (p *Postgres) window() time.Duration {
	if p.Window <= 0 {
		return DefaultPresenceWindow
	}
	return p.Window
}

func (p *Postgres) IsFavorite(ctx context.Context, requesterID, candidateID int) (bool, error) {
	var ok bool
	err := p.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM favorites WHERE user_id = $1 AND target_user_id = $2
		)
	`, requesterID, candidateID).Scan(&ok)
	return ok, err
}

// FavoritesOf returns the set of users requesterID has favorited.
func (p *Postgres) FavoritesOf(ctx context.Context, requesterID int) (map[int]bool, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT target_user_id FROM favorites WHERE user_id = $1`, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favs := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		favs[id] = true
	}
	return favs, rows.Err()
}
