package commands

import (
	"guard-backend/pkg/utils"
)

// ConfigureSafeZoneCommand sets or replaces a subject's safe zone.
type ConfigureSafeZoneCommand struct {
	SubjectID    string  `json:"subject_id" validate:"required,uuid"`
	Latitude     float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusMeters float64 `json:"radius_meters" validate:"gt=0"`
}

// Validate checks the command's fields
func (c ConfigureSafeZoneCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ClearSafeZoneCommand removes a subject's safe zone, returning the subject
// to the unconfigured state.
type ClearSafeZoneCommand struct {
	SubjectID string `json:"subject_id" validate:"required,uuid"`
}

// Validate checks the command's fields
func (c ClearSafeZoneCommand) Validate() error {
	return utils.ValidateStruct(c)
}
