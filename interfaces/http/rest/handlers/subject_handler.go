package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	cmdhandlers "guard-backend/application/commands/handlers"
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

// SubjectHandler handles subject enrollment and guardian links.
type SubjectHandler struct {
	commandBus *bus.CommandBus
	manage     *cmdhandlers.ManageSubjectHandler
	logger     *zap.Logger
}

// NewSubjectHandler creates a new subject handler
func NewSubjectHandler(
	commandBus *bus.CommandBus,
	manage *cmdhandlers.ManageSubjectHandler,
	logger *zap.Logger,
) *SubjectHandler {
	return &SubjectHandler{
		commandBus: commandBus,
		manage:     manage,
		logger:     logger,
	}
}

// RegisterSubjectRequest is the body for enrolling a subject.
type RegisterSubjectRequest struct {
	DeviceID string `json:"device_id"`
}

// RegisterSubjectResponse returns the generated subject identifier.
type RegisterSubjectResponse struct {
	SubjectID string    `json:"subject_id"`
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterSubject handles POST /subjects
func (h *SubjectHandler) RegisterSubject(w http.ResponseWriter, r *http.Request) {
	var req RegisterSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	subject, err := h.manage.Register(r.Context(), commands.RegisterSubjectCommand{
		DeviceID: req.DeviceID,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, RegisterSubjectResponse{
		SubjectID: subject.ID().String(),
		DeviceID:  subject.DeviceID(),
		CreatedAt: subject.CreatedAt(),
	})
}

// LinkGuardianRequest is the body for attaching a guardian.
type LinkGuardianRequest struct {
	GuardianID string `json:"guardian_id"`
	PushToken  string `json:"push_token"`
}

// LinkGuardian handles POST /subjects/{subjectID}/guardians
func (h *SubjectHandler) LinkGuardian(w http.ResponseWriter, r *http.Request) {
	var req LinkGuardianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	cmd := commands.LinkGuardianCommand{
		SubjectID:  chi.URLParam(r, "subjectID"),
		GuardianID: req.GuardianID,
		PushToken:  req.PushToken,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, map[string]string{
		"subject_id":  cmd.SubjectID,
		"guardian_id": cmd.GuardianID,
	})
}

// UnlinkGuardian handles DELETE /subjects/{subjectID}/guardians/{guardianID}
func (h *SubjectHandler) UnlinkGuardian(w http.ResponseWriter, r *http.Request) {
	cmd := commands.UnlinkGuardianCommand{
		SubjectID:  chi.URLParam(r, "subjectID"),
		GuardianID: chi.URLParam(r, "guardianID"),
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"subject_id":  cmd.SubjectID,
		"guardian_id": cmd.GuardianID,
	})
}
