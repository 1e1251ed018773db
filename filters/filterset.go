package filters

import (
	"math"
	"slices"
	"strings"
	"time"
)

// DateRange bounds an event date. A zero From or To leaves that side open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (d DateRange) IsZero() bool { return d.From.IsZero() && d.To.IsZero() }

func (d DateRange) Contains(t time.Time) bool {
	if !d.From.IsZero() && t.Before(d.From) {
		return false
	}
	if !d.To.IsZero() && t.After(d.To) {
		return false
	}
	return true
}

// FilterSet is an immutable set of discovery filters. Every field is
// optional: nil pointers, an empty EventTypes and a false FavoritesOnly all
// mean "no constraint". The With* methods return modified copies.
type FilterSet struct {
	Age               *Range[int] `json:"age,omitempty"`
	HeightCm          *Range[int] `json:"height_cm,omitempty"`
	WeightKg          *Range[int] `json:"weight_kg,omitempty"`
	MaxDistanceMeters *float64    `json:"max_distance_meters,omitempty"` // nil is "Any Distance"
	EventTypes        []string    `json:"event_types,omitempty"`         // sorted, lower-case, unique
	Dates             *DateRange  `json:"dates,omitempty"`
	FavoritesOnly     bool        `json:"favorites_only"`
}

func (fs FilterSet) WithAge(lo, hi int) FilterSet {
	r := AgeRange().Between(lo, hi)
	fs.Age = &r
	return fs
}

func (fs FilterSet) WithHeightCm(lo, hi int) FilterSet {
	r := HeightCmRange().Between(lo, hi)
	fs.HeightCm = &r
	return fs
}

func (fs FilterSet) WithWeightKg(lo, hi int) FilterSet {
	r := WeightKgRange().Between(lo, hi)
	fs.WeightKg = &r
	return fs
}

// WithMaxDistance sets the distance cap; non-positive or non-finite values
// reset it to "Any Distance".
func (fs FilterSet) WithMaxDistance(meters float64) FilterSet {
	if meters <= 0 || math.IsInf(meters, 0) || math.IsNaN(meters) {
		fs.MaxDistanceMeters = nil
		return fs
	}
	fs.MaxDistanceMeters = &meters
	return fs
}

func (fs FilterSet) WithEventTypes(types ...string) FilterSet {
	fs.EventTypes = normalizeEventTypes(types)
	return fs
}

func (fs FilterSet) WithDates(from, to time.Time) FilterSet {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		to = from
	}
	fs.Dates = &DateRange{From: from, To: to}
	return fs
}

func (fs FilterSet) WithFavoritesOnly(on bool) FilterSet {
	fs.FavoritesOnly = on
	return fs
}

func normalizeEventTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Active field checks. A field is active iff it differs from its default.

func activeRange(r *Range[int]) bool { return r != nil && !r.IsDefault() }

// DistanceCap returns the active distance cap in meters.
func (fs FilterSet) DistanceCap() (float64, bool) {
	if fs.MaxDistanceMeters == nil {
		return 0, false
	}
	m := *fs.MaxDistanceMeters
	if m <= 0 || math.IsInf(m, 0) || math.IsNaN(m) {
		return 0, false
	}
	return m, true
}

func (fs FilterSet) datesActive() bool { return fs.Dates != nil && !fs.Dates.IsZero() }
