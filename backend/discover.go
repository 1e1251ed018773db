package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gitea.kood.tech/petrkubec/nearby/discovery"
	"gitea.kood.tech/petrkubec/nearby/filters"
	"gitea.kood.tech/petrkubec/nearby/units"
)

type candidateJSON struct {
	UserID         int     `json:"user_id"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	DistanceMeters float64 `json:"distance_meters"`
	Distance       string  `json:"distance"`
	Online         bool    `json:"online"`
}

type discoverResponse struct {
	Candidates    []candidateJSON `json:"candidates"`
	ActiveFilters []string        `json:"active_filters"`
}

// parseSystem reads ?units=, defaulting to metric.
func parseSystem(q url.Values) (units.System, error) {
	v := q.Get("units")
	if v == "" {
		return units.Metric, nil
	}
	sys, ok := units.ParseSystem(v)
	if !ok {
		return 0, fmt.Errorf("units: unknown system %q", v)
	}
	return sys, nil
}

// parseFilters builds a FilterSet from query parameters. Heights are in cm
// and weights in kg, or inches and pounds when sys is imperial. Distances
// are always meters.
func parseFilters(q url.Values, sys units.System) (filters.FilterSet, error) {
	var fs filters.FilterSet

	age, ok, err := intPair(q, "age_min", "age_max", filters.AgeRange())
	if err != nil {
		return fs, err
	}
	if ok {
		fs = fs.WithAge(age[0], age[1])
	}

	heightDefaults := filters.HeightCmRange()
	weightDefaults := filters.WeightKgRange()
	toCm := func(v int) int { return v }
	toKg := func(v int) int { return v }
	if sys == units.Imperial {
		toCm = func(in int) int { return units.FeetInchesToCm(0, in) }
		toKg = func(lbs int) int { return units.LbsToKg(float64(lbs)) }
		lo, hi, _ := heightDefaults.Bounds()
		heightDefaults = filters.NewRange(cmToInches(lo), cmToInches(hi))
		wlo, whi, _ := weightDefaults.Bounds()
		weightDefaults = filters.NewRange(units.KgToLbs(float64(wlo)), units.KgToLbs(float64(whi)))
	}

	height, ok, err := intPair(q, "height_min", "height_max", heightDefaults)
	if err != nil {
		return fs, err
	}
	if ok {
		fs = fs.WithHeightCm(toCm(height[0]), toCm(height[1]))
	}

	weight, ok, err := intPair(q, "weight_min", "weight_max", weightDefaults)
	if err != nil {
		return fs, err
	}
	if ok {
		fs = fs.WithWeightKg(toKg(weight[0]), toKg(weight[1]))
	}

	if v := q.Get("max_distance"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(m) || m < 0 {
			return fs, fmt.Errorf("max_distance: invalid value %q", v)
		}
		fs = fs.WithMaxDistance(m)
	}

	if v := q.Get("event_types"); v != "" {
		fs = fs.WithEventTypes(strings.Split(v, ",")...)
	}

	from, err := parseDate(q.Get("from"))
	if err != nil {
		return fs, fmt.Errorf("from: %w", err)
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		return fs, fmt.Errorf("to: %w", err)
	}
	if !to.IsZero() && len(q.Get("to")) == len(time.DateOnly) {
		// A bare date includes the whole day.
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() || !to.IsZero() {
		fs = fs.WithDates(from, to)
	}

	if v := q.Get("favorites_only"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fs, fmt.Errorf("favorites_only: invalid value %q", v)
		}
		fs = fs.WithFavoritesOnly(on)
	}
	return fs, nil
}

func cmToInches(cm int) int {
	feet, inches := units.CmToFeetInches(float64(cm))
	return feet*12 + inches
}

// intPair reads an optional min/max pair. A missing side takes the default
// bound; ok is false when neither side is present.
func intPair(q url.Values, minKey, maxKey string, defaults filters.Range[int]) ([2]int, bool, error) {
	lo, hi, _ := defaults.Bounds()
	out := [2]int{lo, hi}
	present := false
	for i, key := range []string{minKey, maxKey} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return out, false, fmt.Errorf("%s: invalid value %q", key, v)
		}
		out[i] = n
		present = true
	}
	return out, present, nil
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	}
	return t, nil
}

func parseCenter(q url.Values) (discovery.Coordinate, float64, error) {
	var c discovery.Coordinate
	var err error
	if c.Latitude, err = requiredFloat(q, "lat"); err != nil {
		return c, 0, err
	}
	if c.Longitude, err = requiredFloat(q, "lon"); err != nil {
		return c, 0, err
	}
	radius, err := requiredFloat(q, "radius")
	return c, radius, err
}

func requiredFloat(q url.Values, key string) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, fmt.Errorf("%s: required", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid value %q", key, v)
	}
	return f, nil
}

func newDiscoverRetryPolicy(cfg Config) retrypolicy.RetryPolicy[*discovery.Results] {
	base := cfg.DiscoverRetryBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return retrypolicy.NewBuilder[*discovery.Results]().
		HandleIf(func(_ *discovery.Results, err error) bool {
			return discovery.IsRetryable(err)
		}).
		WithBackoff(base, 20*base).
		WithMaxRetries(max(cfg.DiscoverMaxRetries, 0)).
		WithJitterFactor(0.1).
		Build()
}

// discover runs the ranker under the retry policy. Only
// ErrDiscoveryUnavailable is retried; the caller sees the last ranker error.
func (a *app) discover(ctx context.Context, center discovery.Coordinate, radius float64, fs filters.FilterSet, requesterID int) (*discovery.Results, error) {
	var lastErr error
	res, err := failsafe.With(a.retry).WithContext(ctx).Get(func() (*discovery.Results, error) {
		res, err := a.ranker.Discover(ctx, center, radius, fs, requesterID)
		lastErr = err
		return res, err
	})
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, err
}

type discoverQuery struct {
	center  discovery.Coordinate
	radius  float64
	filters filters.FilterSet
	system  units.System
}

func parseDiscoverQuery(q url.Values) (discoverQuery, error) {
	var dq discoverQuery
	var err error
	if dq.system, err = parseSystem(q); err != nil {
		return dq, err
	}
	if dq.center, dq.radius, err = parseCenter(q); err != nil {
		return dq, err
	}
	dq.filters, err = parseFilters(q, dq.system)
	return dq, err
}

func (a *app) discoverHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		start := time.Now()
		userID, _ := userIDFromContext(r.Context())

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		log := a.log.WithFields(logrus.Fields{"request_id": requestID, "user_id": userID})

		status, outcome := a.serveDiscover(w, r, log, userID)
		a.metrics.discoverRequests.WithLabelValues(outcome).Inc()
		a.metrics.discoverDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		log.WithFields(logrus.Fields{"status": status, "outcome": outcome}).Debug("Discover finished")
	}
}

func (a *app) serveDiscover(w http.ResponseWriter, r *http.Request, log *logrus.Entry, userID int) (int, string) {
	dq, err := parseDiscoverQuery(r.URL.Query())
	if err == nil {
		var res *discovery.Results
		res, err = a.discover(r.Context(), dq.center, dq.radius, dq.filters, userID)
		if err == nil {
			return a.writeCandidates(w, log, dq, res), "ok"
		}
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.WithError(err).Info("Discover canceled")
		writeError(w, http.StatusServiceUnavailable, "canceled")
		return http.StatusServiceUnavailable, "canceled"
	case errors.Is(err, discovery.ErrDiscoveryUnavailable):
		log.WithError(err).Error("Discover failed after retries")
		writeError(w, http.StatusServiceUnavailable, "discovery_unavailable")
		return http.StatusServiceUnavailable, "unavailable"
	default:
		// Parse errors and ErrInvalidQuery alike.
		log.WithError(err).Debug("Rejected discover query")
		writeError(w, http.StatusBadRequest, "invalid_query")
		return http.StatusBadRequest, "invalid"
	}
}

func (a *app) writeCandidates(w http.ResponseWriter, log *logrus.Entry, dq discoverQuery, res *discovery.Results) int {
	resp := discoverResponse{
		Candidates:    make([]candidateJSON, 0, res.Len()),
		ActiveFilters: filters.Composer{System: dq.system}.ActiveLabels(dq.filters),
	}
	for c := range res.All() {
		resp.Candidates = append(resp.Candidates, candidateJSON{
			UserID:         c.UserID,
			Lat:            c.Coordinates.Latitude,
			Lon:            c.Coordinates.Longitude,
			DistanceMeters: c.DistanceMeters,
			Distance:       c.DistanceLabel(dq.system),
			Online:         c.Presence.Online,
		})
	}
	a.metrics.discoverResults.Observe(float64(len(resp.Candidates)))
	log.WithFields(logrus.Fields{"radius_m": dq.radius, "results": len(resp.Candidates)}).Info("Discover served")
	writeJSON(w, http.StatusOK, resp)
	return http.StatusOK
}
