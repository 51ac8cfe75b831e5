package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

// SOSHandler handles emergency signals.
type SOSHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewSOSHandler creates a new SOS handler
func NewSOSHandler(commandBus *bus.CommandBus, logger *zap.Logger) *SOSHandler {
	return &SOSHandler{
		commandBus: commandBus,
		logger:     logger,
	}
}

// SignalEmergencyRequest optionally carries the device's last known fix.
type SignalEmergencyRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// SignalEmergency handles POST /subjects/{subjectID}/sos. The body is
// optional; a bare POST still raises the alert.
func (h *SOSHandler) SignalEmergency(w http.ResponseWriter, r *http.Request) {
	var req SignalEmergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	cmd := commands.SignalEmergencyCommand{
		SubjectID: chi.URLParam(r, "subjectID"),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusAccepted, map[string]string{
		"subject_id": cmd.SubjectID,
		"status":     "signaled",
	})
}
