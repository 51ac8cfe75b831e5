package entities

import (
	"time"

	"github.com/google/uuid"

	"guard-backend/domain/core/valueobjects"
)

// AlertKind classifies entries in the alert ledger.
type AlertKind string

const (
	AlertZoneExit  AlertKind = "ZONE_EXIT"
	AlertZoneEnter AlertKind = "ZONE_ENTER"
	AlertEmergency AlertKind = "EMERGENCY"
)

// Ledger messages are fixed per kind so clients can render them verbatim.
const (
	MessageZoneExit  = "left safe zone"
	MessageZoneEnter = "returned to safe zone"
	MessageEmergency = "emergency signal received"
)

// AlertEvent is an immutable alert ledger entry. Exactly one entry is written
// per zone transition and per emergency signal.
type AlertEvent struct {
	ID         string
	SubjectID  valueobjects.SubjectID
	Kind       AlertKind
	Message    string
	Latitude   *float64
	Longitude  *float64
	OccurredAt time.Time
	CreatedAt  time.Time
}

// NewZoneExitAlert records a subject leaving the safe zone.
func NewZoneExitAlert(subjectID valueobjects.SubjectID, position valueobjects.Coordinate, occurredAt time.Time) AlertEvent {
	return newAlert(subjectID, AlertZoneExit, MessageZoneExit, &position, occurredAt)
}

// NewZoneEnterAlert records a subject returning to the safe zone.
func NewZoneEnterAlert(subjectID valueobjects.SubjectID, position valueobjects.Coordinate, occurredAt time.Time) AlertEvent {
	return newAlert(subjectID, AlertZoneEnter, MessageZoneEnter, &position, occurredAt)
}

// NewEmergencyAlert records an SOS signal. Position is optional; the device
// may not have a fix when the button is pressed.
func NewEmergencyAlert(subjectID valueobjects.SubjectID, position *valueobjects.Coordinate, occurredAt time.Time) AlertEvent {
	return newAlert(subjectID, AlertEmergency, MessageEmergency, position, occurredAt)
}

func newAlert(subjectID valueobjects.SubjectID, kind AlertKind, message string, position *valueobjects.Coordinate, occurredAt time.Time) AlertEvent {
	a := AlertEvent{
		ID:         uuid.New().String(),
		SubjectID:  subjectID,
		Kind:       kind,
		Message:    message,
		OccurredAt: occurredAt,
		CreatedAt:  time.Now(),
	}
	if position != nil {
		lat := position.Latitude()
		lon := position.Longitude()
		a.Latitude = &lat
		a.Longitude = &lon
	}
	return a
}
