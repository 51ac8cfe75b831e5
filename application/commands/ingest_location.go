package commands

import (
	"time"

	"guard-backend/pkg/utils"
)

// IngestLocationCommand admits one position report into the pipeline.
// RecordedAt is the client's claimed capture time; it is stored for display
// and never influences processing order.
type IngestLocationCommand struct {
	SubjectID  string    `json:"subject_id" validate:"required,uuid"`
	Latitude   float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64   `json:"longitude" validate:"gte=-180,lte=180"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Validate checks the command's fields
func (c IngestLocationCommand) Validate() error {
	return utils.ValidateStruct(c)
}
