package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoordinate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		latitude  float64
		longitude float64
		wantErr   bool
	}{
		{"valid", 37.5, 127.0, false},
		{"north pole", 90, 0, false},
		{"south pole", -90, 0, false},
		{"date line", 0, 180, false},
		{"latitude too high", 90.0001, 0, true},
		{"latitude too low", -91, 0, true},
		{"longitude too high", 0, 180.5, true},
		{"longitude too low", 0, -181, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCoordinate(tt.latitude, tt.longitude)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDistanceMeters_ZeroForIdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{37.5000, 127.0000},
		{-33.8688, 151.2093},
		{89.9, -179.9},
	}

	for _, p := range points {
		c, err := NewCoordinate(p[0], p[1])
		require.NoError(t, err)
		assert.InDelta(t, 0, c.DistanceMeters(c), 1e-6)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a, err := NewCoordinate(37.5000, 127.0000)
	require.NoError(t, err)
	b, err := NewCoordinate(37.5665, 126.9780)
	require.NoError(t, err)

	assert.Equal(t, a.DistanceMeters(b), b.DistanceMeters(a))
}

func TestDistanceMeters_KnownDistances(t *testing.T) {
	// One degree of latitude is about 111.19 km on a sphere of radius 6371 km.
	a, err := NewCoordinate(0, 0)
	require.NoError(t, err)
	b, err := NewCoordinate(1, 0)
	require.NoError(t, err)

	expected := earthRadiusMeters * math.Pi / 180
	assert.InDelta(t, expected, a.DistanceMeters(b), 0.01)
}

func TestDistanceMeters_NonNegative(t *testing.T) {
	a, err := NewCoordinate(-45.0, -170.0)
	require.NoError(t, err)
	b, err := NewCoordinate(45.0, 170.0)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, a.DistanceMeters(b), 0.0)
}
