package filters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gitea.kood.tech/petrkubec/nearby/units"
)

func TestComposeLabels(t *testing.T) {
	c := Composer{System: units.Metric}

	t.Run("Empty filter set has no labels and an empty predicate", func(t *testing.T) {
		p, labels := c.Compose(FilterSet{})
		assert.Empty(t, labels)
		assert.NotNil(t, labels)
		assert.True(t, p.IsEmpty())
	})

	t.Run("Default ranges are not active", func(t *testing.T) {
		fs := FilterSet{}.WithAge(0, 500).WithHeightCm(120, 220)
		p, labels := c.Compose(fs)
		assert.Empty(t, labels)
		assert.True(t, p.IsEmpty())
	})

	t.Run("Label order does not depend on modification order", func(t *testing.T) {
		a := FilterSet{}.
			WithFavoritesOnly(true).
			WithEventTypes("Hiking", "concert").
			WithWeightKg(60, 80).
			WithAge(25, 35).
			WithMaxDistance(3100)
		b := FilterSet{}.
			WithMaxDistance(3100).
			WithAge(25, 35).
			WithWeightKg(60, 80).
			WithEventTypes("concert", "hiking", "hiking").
			WithFavoritesOnly(true)

		want := []string{
			"Within 3.1 km",
			"Age 25 - 35",
			"Weight 60 kg - 80 kg",
			"Events: concert, hiking",
			"Favorites only",
		}
		assert.Equal(t, want, c.ActiveLabels(a))
		assert.Equal(t, want, c.ActiveLabels(b))
	})

	t.Run("Imperial labels", func(t *testing.T) {
		imp := Composer{System: units.Imperial}
		fs := FilterSet{}.WithHeightCm(170, 183).WithMaxDistance(3100)
		assert.Equal(t, []string{"Within 1.9 mi", `Height 5'7" - 6'0"`}, imp.ActiveLabels(fs))
	})

	t.Run("Date labels", func(t *testing.T) {
		from := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, []string{"Dates: Jan 2 - Jan 5"}, c.ActiveLabels(FilterSet{}.WithDates(from, to)))
		assert.Equal(t, []string{"From Jan 2"}, c.ActiveLabels(FilterSet{}.WithDates(from, time.Time{})))
		assert.Equal(t, []string{"Until Jan 5"}, c.ActiveLabels(FilterSet{}.WithDates(time.Time{}, to)))
		assert.Empty(t, c.ActiveLabels(FilterSet{}.WithDates(time.Time{}, time.Time{})))
	})

	t.Run("Non-positive distance means any distance", func(t *testing.T) {
		fs := FilterSet{}.WithMaxDistance(5000).WithMaxDistance(0)
		assert.Nil(t, fs.MaxDistanceMeters)
		assert.Empty(t, c.ActiveLabels(fs))
	})
}

func TestClearAll(t *testing.T) {
	c := Composer{}
	states := []FilterSet{
		{},
		FilterSet{}.WithAge(20, 30).WithFavoritesOnly(true),
		FilterSet{}.WithEventTypes("party").WithMaxDistance(1000).WithWeightKg(50, 60),
	}
	for _, fs := range states {
		_ = c.ActiveLabels(fs)
		cleared, labels := c.ClearAll()
		assert.Empty(t, labels)
		assert.Empty(t, c.ActiveLabels(cleared))

		again, labels := c.ClearAll()
		assert.Equal(t, cleared, again)
		assert.Empty(t, labels)
	}
}

func TestPredicateMatches(t *testing.T) {
	c := Composer{}
	next := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	fs := FilterSet{}.
		WithAge(25, 35).
		WithHeightCm(160, 190).
		WithEventTypes("concert").
		WithDates(next.Add(-24*time.Hour), next.Add(24*time.Hour))
	p, _ := c.Compose(fs)

	match := Attributes{Age: 30, HeightCm: 175, EventTypes: []string{"Concert", "party"}, NextEventAt: next}
	assert.True(t, p.Matches(match))

	tooOld := match
	tooOld.Age = 40
	assert.False(t, p.Matches(tooOld))

	unknownHeight := match
	unknownHeight.HeightCm = 0
	assert.False(t, p.Matches(unknownHeight))

	otherEvents := match
	otherEvents.EventTypes = []string{"hiking"}
	assert.False(t, p.Matches(otherEvents))

	noEvent := match
	noEvent.NextEventAt = time.Time{}
	assert.False(t, p.Matches(noEvent))

	// Weight is not filtered, so an unknown weight is fine.
	assert.True(t, Predicate{}.Matches(Attributes{}))
}
