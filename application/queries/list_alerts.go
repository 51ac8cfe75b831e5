package queries

import (
	"time"

	"guard-backend/pkg/utils"
)

// ListAlertsQuery fetches a subject's alert history, newest first.
type ListAlertsQuery struct {
	SubjectID string `validate:"required,uuid"`
	Limit     int    `validate:"gte=0,lte=500"`
}

// Validate checks the query's fields
func (q ListAlertsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// AlertView is the read model for one alert ledger entry.
type AlertView struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
