package valueobjects

import "errors"

// SafeZone is a circular geofence around a home coordinate. A point exactly
// on the boundary counts as inside.
type SafeZone struct {
	center       Coordinate
	radiusMeters float64
}

// NewSafeZone creates a SafeZone, rejecting non-positive radii.
func NewSafeZone(center Coordinate, radiusMeters float64) (SafeZone, error) {
	if radiusMeters <= 0 {
		return SafeZone{}, errors.New("safe zone radius must be positive")
	}
	return SafeZone{center: center, radiusMeters: radiusMeters}, nil
}

// Center returns the zone's home coordinate
func (z SafeZone) Center() Coordinate { return z.center }

// RadiusMeters returns the zone's radius
func (z SafeZone) RadiusMeters() float64 { return z.radiusMeters }

// Contains reports whether p lies within the zone, boundary inclusive.
func (z SafeZone) Contains(p Coordinate) bool {
	return z.center.DistanceMeters(p) <= z.radiusMeters
}

// DistanceFromCenter returns the distance from the zone center to p.
func (z SafeZone) DistanceFromCenter(p Coordinate) float64 {
	return z.center.DistanceMeters(p)
}

// Equals checks if two SafeZones have identical values
func (z SafeZone) Equals(other SafeZone) bool {
	return z.center.Equals(other.center) && z.radiusMeters == other.radiusMeters
}
