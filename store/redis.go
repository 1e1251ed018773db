package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"gitea.kood.tech/petrkubec/nearby/discovery"
	"gitea.kood.tech/petrkubec/nearby/filters"
	"gitea.kood.tech/petrkubec/nearby/presence"
)

const (
	geoKey          = "geo:users"
	profileKeyFmt   = "profile:%d"
	presenceKeyFmt  = "presence:%d"
	eventTypesField = "event_types"
)

// RedisGeo keeps user locations in a GEO set and the filterable attributes
// in one hash per user.
type RedisGeo struct {
	Client goredis.UniversalClient
}

func NewRedisGeo(client goredis.UniversalClient) *RedisGeo {
	return &RedisGeo{Client: client}
}

// Upsert stores the location and attributes of one user.
func (g *RedisGeo) Upsert(ctx context.Context, userID int, at discovery.Coordinate, attrs filters.Attributes) error {
	if err := at.Validate(); err != nil {
		return err
	}
	fields := map[string]any{
		"age":           attrs.Age,
		"height_cm":     attrs.HeightCm,
		"weight_kg":     attrs.WeightKg,
		eventTypesField: strings.Join(attrs.EventTypes, ","),
		"next_event_at": "",
	}
	if !attrs.NextEventAt.IsZero() {
		fields["next_event_at"] = attrs.NextEventAt.UTC().Format(time.RFC3339)
	}

	pipe := g.Client.TxPipeline()
	pipe.GeoAdd(ctx, geoKey, &goredis.GeoLocation{
		Name:      strconv.Itoa(userID),
		Longitude: at.Longitude,
		Latitude:  at.Latitude,
	})
	pipe.HSet(ctx, fmt.Sprintf(profileKeyFmt, userID), fields)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove drops a user from the index.
func (g *RedisGeo) Remove(ctx context.Context, userID int) error {
	pipe := g.Client.TxPipeline()
	pipe.ZRem(ctx, geoKey, strconv.Itoa(userID))
	pipe.Del(ctx, fmt.Sprintf(profileKeyFmt, userID))
	_, err := pipe.Exec(ctx)
	return err
}

// QueryNearby runs GEORADIUS and, when pred constrains anything, checks the
// attribute hash of every hit.
func (g *RedisGeo) QueryNearby(ctx context.Context, center discovery.Coordinate, radiusMeters float64, pred filters.Predicate, excludeUserID int) ([]discovery.Hit, error) {
	locs, err := g.Client.GeoRadius(ctx, geoKey, center.Longitude, center.Latitude, &goredis.GeoRadiusQuery{
		Radius:    radiusMeters,
		Unit:      "m",
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, err
	}

	hits := make([]discovery.Hit, 0, len(locs))
	for _, loc := range locs {
		id, err := strconv.Atoi(loc.Name)
		if err != nil || id == excludeUserID {
			continue
		}
		hits = append(hits, discovery.Hit{
			UserID:      id,
			Coordinates: discovery.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude},
		})
	}
	if pred.IsEmpty() || len(hits) == 0 {
		return hits, nil
	}

	pipe := g.Client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(hits))
	for i, h := range hits {
		cmds[i] = pipe.HGetAll(ctx, fmt.Sprintf(profileKeyFmt, h.UserID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	matched := hits[:0]
	for i, h := range hits {
		if pred.Matches(parseAttributes(cmds[i].Val())) {
			matched = append(matched, h)
		}
	}
	return matched, nil
}

// parseAttributes reads a profile hash. Missing or malformed fields stay
// zero, which active constraints treat as unknown.
func parseAttributes(m map[string]string) filters.Attributes {
	var a filters.Attributes
	a.Age, _ = strconv.Atoi(m["age"])
	a.HeightCm, _ = strconv.Atoi(m["height_cm"])
	a.WeightKg, _ = strconv.Atoi(m["weight_kg"])
	if v := m[eventTypesField]; v != "" {
		a.EventTypes = strings.Split(v, ",")
	}
	if v := m["next_event_at"]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			a.NextEventAt = t
		}
	}
	return a
}

// RedisPresence tracks heartbeats as keys that expire after Window.
type RedisPresence struct {
	Client goredis.UniversalClient
	Window time.Duration
}

func NewRedisPresence(client goredis.UniversalClient, window time.Duration) *RedisPresence {
	if window <= 0 {
		window = DefaultPresenceWindow
	}
	return &RedisPresence{Client: client, Window: window}
}

// Touch records a heartbeat for userID.
func (p *RedisPresence) Touch(ctx context.Context, userID int) (presence.Status, error) {
	now := time.Now().UTC()
	err := p.Client.Set(ctx, fmt.Sprintf(presenceKeyFmt, userID), now.Unix(), p.Window).Err()
	if err != nil {
		return presence.Status{}, err
	}
	return presence.Status{UserID: userID, Online: true, LastSeenAt: now}, nil
}

// Statuses reports every id with a live heartbeat as online. Expired ids are
// omitted.
func (p *RedisPresence) Statuses(ctx context.Context, userIDs []int) (map[int]presence.Status, error) {
	out := make(map[int]presence.Status, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = fmt.Sprintf(presenceKeyFmt, id)
	}
	vals, err := p.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		status := presence.Status{UserID: userIDs[i], Online: true}
		if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
			status.LastSeenAt = time.Unix(unix, 0).UTC()
		}
		out[userIDs[i]] = status
	}
	return out, nil
}
