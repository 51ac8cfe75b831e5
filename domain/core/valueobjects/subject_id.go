package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// SubjectID is a value object identifying a protected subject.
// Value objects are immutable and have no identity beyond their value.
type SubjectID struct {
	value string
}

// NewSubjectID creates a new random SubjectID
func NewSubjectID() SubjectID {
	return SubjectID{value: uuid.New().String()}
}

// NewSubjectIDFromString creates a SubjectID from an existing string
func NewSubjectIDFromString(id string) (SubjectID, error) {
	if id == "" {
		return SubjectID{}, errors.New("subject ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return SubjectID{}, errors.New("subject ID must be a valid UUID")
	}
	return SubjectID{value: id}, nil
}

// String returns the string representation of the SubjectID
func (id SubjectID) String() string {
	return id.value
}

// Equals checks if two SubjectIDs are equal
func (id SubjectID) Equals(other SubjectID) bool {
	return id.value == other.value
}

// IsZero checks if the SubjectID is the zero value
func (id SubjectID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id SubjectID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *SubjectID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := NewSubjectIDFromString(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
