package entities

import (
	"time"

	"guard-backend/domain/core/valueobjects"
	"guard-backend/domain/events"
)

// GeofenceState is the monitoring state of a subject's safe zone.
type GeofenceState string

const (
	GeofenceUnconfigured GeofenceState = "unconfigured"
	GeofenceInside       GeofenceState = "inside"
	GeofenceOutside      GeofenceState = "outside"
)

// Subject is the protected party whose position is monitored. It owns the
// geofence state machine: the safe zone configuration and the inside/outside
// flag, which only RecordPosition may flip.
type Subject struct {
	id         valueobjects.SubjectID
	deviceID   string
	zone       *valueobjects.SafeZone
	insideZone bool
	lastSeenAt time.Time
	createdAt  time.Time
	updatedAt  time.Time
	version    int

	// Domain events raised during this aggregate's lifetime
	events []events.DomainEvent
}

// NewSubject creates a subject at registration time. No zone is configured
// and no position has been seen yet.
func NewSubject(deviceID string) *Subject {
	now := time.Now()
	return &Subject{
		id:        valueobjects.NewSubjectID(),
		deviceID:  deviceID,
		createdAt: now,
		updatedAt: now,
		version:   0,
	}
}

// ReconstructSubject rebuilds a subject from persistence without raising events.
func ReconstructSubject(
	id valueobjects.SubjectID,
	deviceID string,
	zone *valueobjects.SafeZone,
	insideZone bool,
	lastSeenAt time.Time,
	createdAt time.Time,
	updatedAt time.Time,
	version int,
) *Subject {
	return &Subject{
		id:         id,
		deviceID:   deviceID,
		zone:       zone,
		insideZone: insideZone,
		lastSeenAt: lastSeenAt,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		version:    version,
	}
}

// ID returns the subject's identifier
func (s *Subject) ID() valueobjects.SubjectID { return s.id }

// DeviceID returns the registering device's identifier
func (s *Subject) DeviceID() string { return s.deviceID }

// Zone returns the configured safe zone, or nil when unconfigured
func (s *Subject) Zone() *valueobjects.SafeZone { return s.zone }

// LastSeenAt returns the receive time of the most recently processed sample
func (s *Subject) LastSeenAt() time.Time { return s.lastSeenAt }

// CreatedAt returns the registration time
func (s *Subject) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last mutation time
func (s *Subject) UpdatedAt() time.Time { return s.updatedAt }

// Version returns the optimistic-concurrency version
func (s *Subject) Version() int { return s.version }

// State returns the current geofence state.
func (s *Subject) State() GeofenceState {
	if s.zone == nil {
		return GeofenceUnconfigured
	}
	if s.insideZone {
		return GeofenceInside
	}
	return GeofenceOutside
}

// InsideSafeZone reports the stored inside flag. Meaningful only when a zone
// is configured.
func (s *Subject) InsideSafeZone() bool { return s.insideZone }

// ConfigureSafeZone sets or replaces the safe zone. A newly configured zone
// assumes the subject starts inside it, matching how zones are set from the
// subject's home.
func (s *Subject) ConfigureSafeZone(zone valueobjects.SafeZone) {
	s.zone = &zone
	s.insideZone = true
	s.touch()
	s.raise(events.NewSafeZoneConfigured(s.id, zone, time.Now()))
}

// ClearSafeZone removes the safe zone and returns the subject to the
// unconfigured state.
func (s *Subject) ClearSafeZone() {
	if s.zone == nil {
		return
	}
	s.zone = nil
	s.insideZone = false
	s.touch()
	s.raise(events.NewSafeZoneCleared(s.id, time.Now()))
}

// RecordPosition runs the geofence transition function for a new sample and
// returns the raised transition event, or nil when the verdict is unchanged.
//
// The machine has three states: unconfigured (no zone, nothing to evaluate),
// inside, and outside. A point exactly on the boundary counts as inside.
// Repeated samples with the same verdict never re-raise an event, so replaying
// a sample is harmless.
func (s *Subject) RecordPosition(p valueobjects.Coordinate, at time.Time) events.DomainEvent {
	s.lastSeenAt = at
	s.touch()

	if s.zone == nil {
		return nil
	}

	distance := s.zone.DistanceFromCenter(p)
	nowInside := distance <= s.zone.RadiusMeters()

	switch {
	case s.insideZone && !nowInside:
		s.insideZone = false
		event := events.NewZoneExited(s.id, p, distance, at)
		s.raise(event)
		return event

	case !s.insideZone && nowInside:
		s.insideZone = true
		event := events.NewZoneEntered(s.id, p, at)
		s.raise(event)
		return event

	default:
		return nil
	}
}

// SignalEmergency raises the SOS event. It does not touch the geofence state.
func (s *Subject) SignalEmergency(position *valueobjects.Coordinate, at time.Time) events.DomainEvent {
	event := events.NewEmergencySignaled(s.id, position, at)
	s.raise(event)
	return event
}

// DomainEvents returns events raised since the last ClearEvents call.
func (s *Subject) DomainEvents() []events.DomainEvent {
	return s.events
}

// ClearEvents clears accumulated domain events after they are dispatched.
func (s *Subject) ClearEvents() {
	s.events = nil
}

func (s *Subject) touch() {
	s.updatedAt = time.Now()
	s.version++
}

func (s *Subject) raise(event events.DomainEvent) {
	s.events = append(s.events, event)
}
