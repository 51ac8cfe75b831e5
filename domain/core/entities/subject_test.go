package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guard-backend/domain/core/valueobjects"
	"guard-backend/domain/events"
)

func mustCoordinate(t *testing.T, lat, lon float64) valueobjects.Coordinate {
	t.Helper()
	c, err := valueobjects.NewCoordinate(lat, lon)
	require.NoError(t, err)
	return c
}

func mustZone(t *testing.T, lat, lon, radius float64) valueobjects.SafeZone {
	t.Helper()
	z, err := valueobjects.NewSafeZone(mustCoordinate(t, lat, lon), radius)
	require.NoError(t, err)
	return z
}

func TestNewSubject_StartsUnconfigured(t *testing.T) {
	s := NewSubject("device-1")

	assert.Equal(t, GeofenceUnconfigured, s.State())
	assert.Nil(t, s.Zone())
	assert.False(t, s.ID().IsZero())
	assert.Empty(t, s.DomainEvents())
}

func TestRecordPosition_UnconfiguredNeverAlerts(t *testing.T) {
	s := NewSubject("device-1")

	// Far from anywhere; without a zone there is nothing to evaluate.
	event := s.RecordPosition(mustCoordinate(t, 37.5, 127.0), time.Now())

	assert.Nil(t, event)
	assert.Equal(t, GeofenceUnconfigured, s.State())
	assert.Empty(t, s.DomainEvents())
}

func TestConfigureSafeZone_StartsInside(t *testing.T) {
	s := NewSubject("device-1")

	s.ConfigureSafeZone(mustZone(t, 37.5, 127.0, 100))

	assert.Equal(t, GeofenceInside, s.State())
	require.Len(t, s.DomainEvents(), 1)
	assert.Equal(t, "subject.safe_zone_configured", s.DomainEvents()[0].GetEventType())
}

func TestRecordPosition_ExitRaisesSingleEvent(t *testing.T) {
	s := NewSubject("device-1")
	s.ConfigureSafeZone(mustZone(t, 37.5, 127.0, 100))
	s.ClearEvents()

	// About 150 m north of center.
	outside := mustCoordinate(t, 37.50135, 127.0)

	event := s.RecordPosition(outside, time.Now())
	require.NotNil(t, event)
	exited, ok := event.(events.ZoneExited)
	require.True(t, ok)
	assert.Greater(t, exited.DistanceMeters, 100.0)
	assert.Equal(t, GeofenceOutside, s.State())

	// Same verdict again: no further event.
	event = s.RecordPosition(outside, time.Now())
	assert.Nil(t, event)
	assert.Len(t, s.DomainEvents(), 1)
}

func TestRecordPosition_ReturnRaisesEnterEvent(t *testing.T) {
	s := NewSubject("device-1")
	s.ConfigureSafeZone(mustZone(t, 37.5, 127.0, 100))
	s.ClearEvents()

	outside := mustCoordinate(t, 37.50135, 127.0)
	inside := mustCoordinate(t, 37.5001, 127.0)

	require.NotNil(t, s.RecordPosition(outside, time.Now()))

	event := s.RecordPosition(inside, time.Now())
	require.NotNil(t, event)
	_, ok := event.(events.ZoneEntered)
	assert.True(t, ok)
	assert.Equal(t, GeofenceInside, s.State())
}

func TestRecordPosition_InsideSamplesStayQuiet(t *testing.T) {
	s := NewSubject("device-1")
	s.ConfigureSafeZone(mustZone(t, 37.5, 127.0, 100))
	s.ClearEvents()

	for i := 0; i < 5; i++ {
		event := s.RecordPosition(mustCoordinate(t, 37.5001, 127.0), time.Now())
		assert.Nil(t, event)
	}
	assert.Empty(t, s.DomainEvents())
	assert.Equal(t, GeofenceInside, s.State())
}

func TestRecordPosition_BoundaryCountsAsInside(t *testing.T) {
	s := NewSubject("device-1")

	center := mustCoordinate(t, 0, 0)
	boundary := mustCoordinate(t, 0, 0.0009)
	zone, err := valueobjects.NewSafeZone(center, center.DistanceMeters(boundary))
	require.NoError(t, err)
	s.ConfigureSafeZone(zone)
	s.ClearEvents()

	event := s.RecordPosition(boundary, time.Now())
	assert.Nil(t, event)
	assert.Equal(t, GeofenceInside, s.State())
}

func TestRecordPosition_UpdatesLastSeenAndVersion(t *testing.T) {
	s := NewSubject("device-1")
	before := s.Version()

	at := time.Now().Add(-time.Minute)
	s.RecordPosition(mustCoordinate(t, 37.5, 127.0), at)

	assert.Equal(t, at, s.LastSeenAt())
	assert.Greater(t, s.Version(), before)
}

func TestClearSafeZone_ReturnsToUnconfigured(t *testing.T) {
	s := NewSubject("device-1")
	s.ConfigureSafeZone(mustZone(t, 37.5, 127.0, 100))
	s.ClearEvents()

	s.ClearSafeZone()

	assert.Equal(t, GeofenceUnconfigured, s.State())
	require.Len(t, s.DomainEvents(), 1)
	assert.Equal(t, "subject.safe_zone_cleared", s.DomainEvents()[0].GetEventType())

	// Clearing an already cleared zone is a no-op.
	s.ClearEvents()
	s.ClearSafeZone()
	assert.Empty(t, s.DomainEvents())
}

func TestSignalEmergency_DoesNotTouchGeofenceState(t *testing.T) {
	s := NewSubject("device-1")
	s.ConfigureSafeZone(mustZone(t, 37.5, 127.0, 100))
	s.ClearEvents()

	pos := mustCoordinate(t, 37.6, 127.1)
	event := s.SignalEmergency(&pos, time.Now())

	require.NotNil(t, event)
	assert.Equal(t, "subject.emergency_signaled", event.GetEventType())
	assert.Equal(t, GeofenceInside, s.State())
}

func TestSignalEmergency_PositionOptional(t *testing.T) {
	s := NewSubject("device-1")

	event := s.SignalEmergency(nil, time.Now())

	signaled, ok := event.(events.EmergencySignaled)
	require.True(t, ok)
	assert.Nil(t, signaled.Latitude)
	assert.Nil(t, signaled.Longitude)
}

func TestReconstructSubject_RaisesNoEvents(t *testing.T) {
	id := valueobjects.NewSubjectID()
	zone := mustZone(t, 37.5, 127.0, 100)
	now := time.Now()

	s := ReconstructSubject(id, "device-1", &zone, false, now, now, now, 7)

	assert.Equal(t, GeofenceOutside, s.State())
	assert.Equal(t, 7, s.Version())
	assert.Empty(t, s.DomainEvents())
}
