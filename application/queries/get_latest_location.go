package queries

import (
	"time"

	"guard-backend/pkg/utils"
)

// GetLatestLocationQuery fetches a subject's most recently received sample.
type GetLatestLocationQuery struct {
	SubjectID string `validate:"required,uuid"`
}

// Validate checks the query's fields
func (q GetLatestLocationQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetLocationHistoryQuery fetches samples received within a window,
// newest first.
type GetLocationHistoryQuery struct {
	SubjectID string    `validate:"required,uuid"`
	From      time.Time `validate:"required"`
	To        time.Time `validate:"required"`
	Limit     int       `validate:"gte=0,lte=1000"`
}

// Validate checks the query's fields
func (q GetLocationHistoryQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// LocationView is the read model for one position sample.
type LocationView struct {
	SubjectID  string    `json:"subject_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
	ReceivedAt time.Time `json:"received_at"`
}
