package valueobjects

import (
	"errors"
	"math"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Coordinate is an immutable WGS84 point.
type Coordinate struct {
	latitude  float64
	longitude float64
}

// NewCoordinate creates a Coordinate, rejecting out-of-range values.
func NewCoordinate(latitude, longitude float64) (Coordinate, error) {
	if latitude < -90 || latitude > 90 {
		return Coordinate{}, errors.New("latitude must be between -90 and 90")
	}
	if longitude < -180 || longitude > 180 {
		return Coordinate{}, errors.New("longitude must be between -180 and 180")
	}
	return Coordinate{latitude: latitude, longitude: longitude}, nil
}

// Latitude returns the latitude in degrees
func (c Coordinate) Latitude() float64 { return c.latitude }

// Longitude returns the longitude in degrees
func (c Coordinate) Longitude() float64 { return c.longitude }

// DistanceMeters computes the great-circle distance to another point using
// the haversine formula. Non-negative, symmetric, and zero for identical
// points within floating-point tolerance.
func (c Coordinate) DistanceMeters(other Coordinate) float64 {
	latDistance := toRadians(other.latitude - c.latitude)
	lonDistance := toRadians(other.longitude - c.longitude)

	a := math.Sin(latDistance/2)*math.Sin(latDistance/2) +
		math.Cos(toRadians(c.latitude))*math.Cos(toRadians(other.latitude))*
			math.Sin(lonDistance/2)*math.Sin(lonDistance/2)
	angle := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * angle
}

// Equals checks if two Coordinates have identical values
func (c Coordinate) Equals(other Coordinate) bool {
	return c.latitude == other.latitude && c.longitude == other.longitude
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
