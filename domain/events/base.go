package events

import (
	"time"

	"guard-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Subject events

// ZoneExited is raised when a subject's position first falls outside the
// configured safe zone.
type ZoneExited struct {
	BaseEvent
	SubjectID      valueobjects.SubjectID `json:"subject_id"`
	Latitude       float64                `json:"latitude"`
	Longitude      float64                `json:"longitude"`
	DistanceMeters float64                `json:"distance_meters"`
}

// NewZoneExited creates a ZoneExited event
func NewZoneExited(subjectID valueobjects.SubjectID, position valueobjects.Coordinate, distanceMeters float64, timestamp time.Time) ZoneExited {
	return ZoneExited{
		BaseEvent: BaseEvent{
			AggregateID: subjectID.String(),
			EventType:   "subject.zone_exited",
			Timestamp:   timestamp,
			Version:     1,
		},
		SubjectID:      subjectID,
		Latitude:       position.Latitude(),
		Longitude:      position.Longitude(),
		DistanceMeters: distanceMeters,
	}
}

// ZoneEntered is raised when a subject's position first falls back inside the
// configured safe zone.
type ZoneEntered struct {
	BaseEvent
	SubjectID valueobjects.SubjectID `json:"subject_id"`
	Latitude  float64                `json:"latitude"`
	Longitude float64                `json:"longitude"`
}

// NewZoneEntered creates a ZoneEntered event
func NewZoneEntered(subjectID valueobjects.SubjectID, position valueobjects.Coordinate, timestamp time.Time) ZoneEntered {
	return ZoneEntered{
		BaseEvent: BaseEvent{
			AggregateID: subjectID.String(),
			EventType:   "subject.zone_entered",
			Timestamp:   timestamp,
			Version:     1,
		},
		SubjectID: subjectID,
		Latitude:  position.Latitude(),
		Longitude: position.Longitude(),
	}
}

// EmergencySignaled is raised when a subject triggers the SOS path.
type EmergencySignaled struct {
	BaseEvent
	SubjectID valueobjects.SubjectID `json:"subject_id"`
	Latitude  *float64               `json:"latitude,omitempty"`
	Longitude *float64               `json:"longitude,omitempty"`
}

// NewEmergencySignaled creates an EmergencySignaled event
func NewEmergencySignaled(subjectID valueobjects.SubjectID, position *valueobjects.Coordinate, timestamp time.Time) EmergencySignaled {
	e := EmergencySignaled{
		BaseEvent: BaseEvent{
			AggregateID: subjectID.String(),
			EventType:   "subject.emergency_signaled",
			Timestamp:   timestamp,
			Version:     1,
		},
		SubjectID: subjectID,
	}
	if position != nil {
		lat := position.Latitude()
		lon := position.Longitude()
		e.Latitude = &lat
		e.Longitude = &lon
	}
	return e
}

// SafeZoneConfigured is raised when a guardian sets or replaces a subject's
// safe zone.
type SafeZoneConfigured struct {
	BaseEvent
	SubjectID    valueobjects.SubjectID `json:"subject_id"`
	Latitude     float64                `json:"latitude"`
	Longitude    float64                `json:"longitude"`
	RadiusMeters float64                `json:"radius_meters"`
}

// NewSafeZoneConfigured creates a SafeZoneConfigured event
func NewSafeZoneConfigured(subjectID valueobjects.SubjectID, zone valueobjects.SafeZone, timestamp time.Time) SafeZoneConfigured {
	return SafeZoneConfigured{
		BaseEvent: BaseEvent{
			AggregateID: subjectID.String(),
			EventType:   "subject.safe_zone_configured",
			Timestamp:   timestamp,
			Version:     1,
		},
		SubjectID:    subjectID,
		Latitude:     zone.Center().Latitude(),
		Longitude:    zone.Center().Longitude(),
		RadiusMeters: zone.RadiusMeters(),
	}
}

// SafeZoneCleared is raised when a guardian removes a subject's safe zone.
type SafeZoneCleared struct {
	BaseEvent
	SubjectID valueobjects.SubjectID `json:"subject_id"`
}

// NewSafeZoneCleared creates a SafeZoneCleared event
func NewSafeZoneCleared(subjectID valueobjects.SubjectID, timestamp time.Time) SafeZoneCleared {
	return SafeZoneCleared{
		BaseEvent: BaseEvent{
			AggregateID: subjectID.String(),
			EventType:   "subject.safe_zone_cleared",
			Timestamp:   timestamp,
			Version:     1,
		},
		SubjectID: subjectID,
	}
}
