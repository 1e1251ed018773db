package discovery

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000

// Coordinate is a WGS 84 point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate reports ErrInvalidQuery for non-finite or out-of-range values.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) || math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("%w: coordinate is not finite", ErrInvalidQuery)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidQuery, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidQuery, c.Longitude)
	}
	return nil
}

// Haversine formula for great-circle distance in meters
func Haversine(a, b Coordinate) float64 {
	dLat := (b.Latitude - a.Latitude) * (math.Pi / 180)
	dLon := (b.Longitude - a.Longitude) * (math.Pi / 180)
	lat1 := a.Latitude * (math.Pi / 180)
	lat2 := b.Latitude * (math.Pi / 180)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// Box is a latitude/longitude bounding box in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBox returns a box containing every point within radiusMeters of
// center. Near the poles or across the antimeridian the longitude span
// widens to the full [-180, 180].
func BoundingBox(center Coordinate, radiusMeters float64) Box {
	dLat := radiusMeters / earthRadiusMeters * (180 / math.Pi)
	b := Box{
		MinLat: math.Max(center.Latitude-dLat, -90),
		MaxLat: math.Min(center.Latitude+dLat, 90),
		MinLon: -180,
		MaxLon: 180,
	}
	if b.MinLat == -90 || b.MaxLat == 90 {
		return b
	}
	// The widest longitude on the circle is at its tangent point, where
	// sin(dLon) = sin(r) / cos(lat). dLat/cos(lat) underestimates it.
	r := radiusMeters / earthRadiusMeters
	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	if math.Sin(r) >= cosLat {
		return b
	}
	dLon := math.Asin(math.Sin(r)/cosLat) * 180 / math.Pi
	if center.Longitude-dLon < -180 || center.Longitude+dLon > 180 {
		return b
	}
	b.MinLon = center.Longitude - dLon
	b.MaxLon = center.Longitude + dLon
	return b
}
