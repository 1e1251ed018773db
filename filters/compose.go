package filters

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"gitea.kood.tech/petrkubec/nearby/units"
)

// Attributes are the candidate fields a Predicate is evaluated against.
// Zero values mean "unknown".
type Attributes struct {
	Age         int
	HeightCm    int
	WeightKg    int
	EventTypes  []string
	NextEventAt time.Time
}

// Predicate is the conjunction of a FilterSet's active attribute filters.
// Distance and favorites are not attribute filters: the ranker enforces
// them against the radius and the favorites lookup.
type Predicate struct {
	Age        *Range[int]
	HeightCm   *Range[int]
	WeightKg   *Range[int]
	EventTypes []string
	Dates      *DateRange
}

// IsEmpty reports whether the predicate accepts everything.
func (p Predicate) IsEmpty() bool {
	return p.Age == nil && p.HeightCm == nil && p.WeightKg == nil &&
		len(p.EventTypes) == 0 && p.Dates == nil
}

// Matches evaluates the predicate. An unknown attribute never satisfies an
// active constraint on it.
func (p Predicate) Matches(a Attributes) bool {
	if !matchRange(p.Age, a.Age) || !matchRange(p.HeightCm, a.HeightCm) || !matchRange(p.WeightKg, a.WeightKg) {
		return false
	}
	if len(p.EventTypes) > 0 {
		found := false
		for _, t := range a.EventTypes {
			if _, ok := slices.BinarySearch(p.EventTypes, strings.ToLower(t)); ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if p.Dates != nil {
		if a.NextEventAt.IsZero() || !p.Dates.Contains(a.NextEventAt) {
			return false
		}
	}
	return true
}

func matchRange(r *Range[int], v int) bool {
	if r == nil {
		return true
	}
	return v > 0 && r.Contains(v)
}

// Composer turns a FilterSet into a Predicate plus the labels of its active
// filters, rendered in System.
type Composer struct {
	System units.System
}

const dateLabelLayout = "Jan 2"

// Compose returns the predicate and the active labels. Labels always come in
// the same field order (distance, age, height, weight, event types, dates,
// favorites) regardless of the order the filters were set in.
func (c Composer) Compose(fs FilterSet) (Predicate, []string) {
	var p Predicate
	labels := []string{}

	if m, ok := fs.DistanceCap(); ok {
		labels = append(labels, "Within "+units.FormatDistance(m, c.System))
	}
	if activeRange(fs.Age) {
		p.Age = fs.Age
		labels = append(labels, fmt.Sprintf("Age %d - %d", fs.Age.Min, fs.Age.Max))
	}
	if activeRange(fs.HeightCm) {
		p.HeightCm = fs.HeightCm
		labels = append(labels, "Height "+
			units.FormatHeight(float64(fs.HeightCm.Min), units.Centimeter, c.System)+" - "+
			units.FormatHeight(float64(fs.HeightCm.Max), units.Centimeter, c.System))
	}
	if activeRange(fs.WeightKg) {
		p.WeightKg = fs.WeightKg
		labels = append(labels, "Weight "+
			units.FormatWeight(float64(fs.WeightKg.Min), units.Kilogram, c.System)+" - "+
			units.FormatWeight(float64(fs.WeightKg.Max), units.Kilogram, c.System))
	}
	if types := normalizeEventTypes(fs.EventTypes); len(types) > 0 {
		p.EventTypes = types
		labels = append(labels, "Events: "+strings.Join(types, ", "))
	}
	if fs.datesActive() {
		d := *fs.Dates
		p.Dates = &d
		labels = append(labels, dateLabel(d))
	}
	if fs.FavoritesOnly {
		labels = append(labels, "Favorites only")
	}
	return p, labels
}

// ActiveLabels is Compose without the predicate.
func (c Composer) ActiveLabels(fs FilterSet) []string {
	_, labels := c.Compose(fs)
	return labels
}

// ClearAll resets every filter to its default. Calling it any number of
// times yields the same empty label sequence.
func (c Composer) ClearAll() (FilterSet, []string) {
	return FilterSet{}, []string{}
}

func dateLabel(d DateRange) string {
	switch {
	case d.From.IsZero():
		return "Until " + d.To.Format(dateLabelLayout)
	case d.To.IsZero():
		return "From " + d.From.Format(dateLabelLayout)
	}
	return "Dates: " + d.From.Format(dateLabelLayout) + " - " + d.To.Format(dateLabelLayout)
}
