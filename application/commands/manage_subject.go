package commands

import (
	"guard-backend/pkg/utils"
)

// RegisterSubjectCommand enrolls a new protected subject.
type RegisterSubjectCommand struct {
	DeviceID string `json:"device_id" validate:"required,min=1,max=128"`
}

// Validate checks the command's fields
func (c RegisterSubjectCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// LinkGuardianCommand attaches a guardian to a subject. PushToken is the
// guardian device's push endpoint; an empty token means the guardian gets no
// push but still appears in the directory.
type LinkGuardianCommand struct {
	SubjectID  string `json:"subject_id" validate:"required,uuid"`
	GuardianID string `json:"guardian_id" validate:"required"`
	PushToken  string `json:"push_token" validate:"max=4096"`
}

// Validate checks the command's fields
func (c LinkGuardianCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UnlinkGuardianCommand detaches a guardian from a subject.
type UnlinkGuardianCommand struct {
	SubjectID  string `json:"subject_id" validate:"required,uuid"`
	GuardianID string `json:"guardian_id" validate:"required"`
}

// Validate checks the command's fields
func (c UnlinkGuardianCommand) Validate() error {
	return utils.ValidateStruct(c)
}
