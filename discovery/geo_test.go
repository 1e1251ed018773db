package discovery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	t.Run("Same point is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Haversine(helsinki, helsinki))
	})

	t.Run("Helsinki to Tampere is about 160km", func(t *testing.T) {
		tampere := Coordinate{Latitude: 61.4978, Longitude: 23.7610}
		d := Haversine(helsinki, tampere)
		assert.InDelta(t, 160000, d, 5000)
		assert.InDelta(t, d, Haversine(tampere, helsinki), 1e-6)
	})
}

func TestCoordinateValidate(t *testing.T) {
	assert.NoError(t, Coordinate{Latitude: 90, Longitude: 180}.Validate())
	assert.NoError(t, Coordinate{Latitude: -90, Longitude: -180}.Validate())
	assert.ErrorIs(t, Coordinate{Latitude: 90.01}.Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Coordinate{Longitude: 180.5}.Validate(), ErrInvalidQuery)
}

func TestBoundingBox(t *testing.T) {
	t.Run("Box contains points on the radius", func(t *testing.T) {
		b := BoundingBox(helsinki, 10000)
		p := north(helsinki, 10000)
		assert.LessOrEqual(t, p.Latitude, b.MaxLat+1e-9)
		assert.Less(t, b.MinLon, helsinki.Longitude)
		assert.Greater(t, b.MaxLon, helsinki.Longitude)
		// Longitude span grows with latitude.
		assert.Greater(t, b.MaxLon-b.MinLon, b.MaxLat-b.MinLat)
	})

	t.Run("High latitude box contains the eastmost point of the circle", func(t *testing.T) {
		for _, tc := range []struct {
			lat, radius float64
		}{
			{60, 1000000},
			{70, 300000},
			{65, 500000},
		} {
			center := Coordinate{Latitude: tc.lat, Longitude: 25}
			b := BoundingBox(center, tc.radius)

			// Tangent point of a slightly smaller circle, so it is strictly
			// inside the radius.
			r := 0.999 * tc.radius / earthRadiusMeters
			phi := tc.lat * math.Pi / 180
			east := Coordinate{
				Latitude:  math.Asin(math.Sin(phi)/math.Cos(r)) * 180 / math.Pi,
				Longitude: 25 + math.Asin(math.Sin(r)/math.Cos(phi))*180/math.Pi,
			}
			west := Coordinate{Latitude: east.Latitude, Longitude: 50 - east.Longitude}

			assert.Less(t, Haversine(center, east), tc.radius)
			assert.LessOrEqual(t, east.Longitude, b.MaxLon, "lat %v radius %v", tc.lat, tc.radius)
			assert.GreaterOrEqual(t, west.Longitude, b.MinLon, "lat %v radius %v", tc.lat, tc.radius)
			assert.GreaterOrEqual(t, east.Latitude, b.MinLat)
			assert.LessOrEqual(t, east.Latitude, b.MaxLat)
		}
	})

	t.Run("Antimeridian widens to full longitude", func(t *testing.T) {
		b := BoundingBox(Coordinate{Latitude: 0, Longitude: 179.99}, 50000)
		assert.Equal(t, -180.0, b.MinLon)
		assert.Equal(t, 180.0, b.MaxLon)
	})

	t.Run("Pole widens to full longitude", func(t *testing.T) {
		b := BoundingBox(Coordinate{Latitude: 89.99, Longitude: 10}, 50000)
		assert.Equal(t, 90.0, b.MaxLat)
		assert.Equal(t, -180.0, b.MinLon)
	})
}
