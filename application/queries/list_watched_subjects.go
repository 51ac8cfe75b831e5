package queries

import (
	"time"

	"guard-backend/pkg/utils"
)

// ListWatchedSubjectsQuery fetches every subject a guardian watches.
type ListWatchedSubjectsQuery struct {
	GuardianID string `validate:"required"`
}

// Validate checks the query's fields
func (q ListWatchedSubjectsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// WatchedSubjectView is one entry in a guardian's watch list.
type WatchedSubjectView struct {
	SubjectID string    `json:"subject_id"`
	LinkedAt  time.Time `json:"linked_at"`
}
