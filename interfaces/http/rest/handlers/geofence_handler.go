package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	"guard-backend/application/queries"
	querybus "guard-backend/application/queries/bus"
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

// GeofenceHandler handles safe zone configuration and reads.
type GeofenceHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewGeofenceHandler creates a new geofence handler
func NewGeofenceHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *GeofenceHandler {
	return &GeofenceHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// ConfigureSafeZoneRequest is the body for setting or replacing a zone.
type ConfigureSafeZoneRequest struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// ConfigureSafeZone handles PUT /subjects/{subjectID}/safezone
func (h *GeofenceHandler) ConfigureSafeZone(w http.ResponseWriter, r *http.Request) {
	var req ConfigureSafeZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	cmd := commands.ConfigureSafeZoneCommand{
		SubjectID:    chi.URLParam(r, "subjectID"),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"subject_id": cmd.SubjectID,
		"state":      "inside",
	})
}

// ClearSafeZone handles DELETE /subjects/{subjectID}/safezone
func (h *GeofenceHandler) ClearSafeZone(w http.ResponseWriter, r *http.Request) {
	cmd := commands.ClearSafeZoneCommand{
		SubjectID: chi.URLParam(r, "subjectID"),
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"subject_id": cmd.SubjectID,
		"state":      "unconfigured",
	})
}

// GetSafeZone handles GET /subjects/{subjectID}/safezone
func (h *GeofenceHandler) GetSafeZone(w http.ResponseWriter, r *http.Request) {
	query := queries.GetSafeZoneQuery{
		SubjectID: chi.URLParam(r, "subjectID"),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
