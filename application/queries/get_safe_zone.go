package queries

import (
	"guard-backend/pkg/utils"
)

// GetSafeZoneQuery fetches a subject's zone configuration and current
// geofence state.
type GetSafeZoneQuery struct {
	SubjectID string `validate:"required,uuid"`
}

// Validate checks the query's fields
func (q GetSafeZoneQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// SafeZoneView is the read model for a subject's geofence configuration.
// Zone fields are nil when no zone is configured.
type SafeZoneView struct {
	SubjectID    string   `json:"subject_id"`
	State        string   `json:"state"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RadiusMeters *float64 `json:"radius_meters,omitempty"`
}
