package entities

import (
	"time"

	"github.com/google/uuid"

	"guard-backend/domain/core/valueobjects"
)

// PositionSample is one admitted location report. RecordedAt is the client's
// claimed capture time and is kept for display only; ReceivedAt is assigned at
// admission and is the authoritative ordering key.
type PositionSample struct {
	ID         string
	SubjectID  valueobjects.SubjectID
	Position   valueobjects.Coordinate
	RecordedAt time.Time
	ReceivedAt time.Time
}

// NewPositionSample stamps a sample with its admission time and a fresh ID.
func NewPositionSample(subjectID valueobjects.SubjectID, position valueobjects.Coordinate, recordedAt time.Time) PositionSample {
	return PositionSample{
		ID:         uuid.New().String(),
		SubjectID:  subjectID,
		Position:   position,
		RecordedAt: recordedAt,
		ReceivedAt: time.Now(),
	}
}
