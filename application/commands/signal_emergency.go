package commands

import (
	"fmt"

	"guard-backend/pkg/utils"
)

// SignalEmergencyCommand triggers the SOS path for a subject. Position is
// optional; the device may not have a fix when the button is pressed.
type SignalEmergencyCommand struct {
	SubjectID string   `json:"subject_id" validate:"required,uuid"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Validate checks the command's fields
func (c SignalEmergencyCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be provided together")
	}
	if c.Latitude != nil {
		if *c.Latitude < -90 || *c.Latitude > 90 {
			return fmt.Errorf("latitude must be between -90 and 90")
		}
		if *c.Longitude < -180 || *c.Longitude > 180 {
			return fmt.Errorf("longitude must be between -180 and 180")
		}
	}
	return nil
}
