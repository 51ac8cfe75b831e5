package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	"guard-backend/application/queries"
	querybus "guard-backend/application/queries/bus"
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

// LocationHandler handles position ingestion and location reads.
type LocationHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *LocationHandler {
	return &LocationHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// IngestLocationRequest is the body for one position report. RecordedAt is
// the device's claimed capture time and is stored for display only.
type IngestLocationRequest struct {
	SubjectID  string    `json:"subject_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IngestLocation handles POST /locations
func (h *LocationHandler) IngestLocation(w http.ResponseWriter, r *http.Request) {
	var req IngestLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, appErrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	cmd := commands.IngestLocationCommand{
		SubjectID:  req.SubjectID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		RecordedAt: req.RecordedAt,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusAccepted, map[string]string{
		"subject_id": req.SubjectID,
		"status":     "recorded",
	})
}

// GetLatestLocation handles GET /subjects/{subjectID}/locations/latest
func (h *LocationHandler) GetLatestLocation(w http.ResponseWriter, r *http.Request) {
	query := queries.GetLatestLocationQuery{
		SubjectID: chi.URLParam(r, "subjectID"),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetLocationHistory handles GET /subjects/{subjectID}/locations.
// The window is given by the from and to query parameters in RFC 3339.
func (h *LocationHandler) GetLocationHistory(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeParam(r, "from")
	if err != nil {
		respondError(w, err)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		respondError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, appErrors.NewValidationError("limit must be a non-negative integer"))
			return
		}
	}

	query := queries.GetLocationHistoryQuery{
		SubjectID: chi.URLParam(r, "subjectID"),
		From:      from,
		To:        to,
		Limit:     limit,
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, appErrors.NewValidationError(name + " query parameter is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.NewValidationError(name + " must be an RFC 3339 timestamp")
	}
	return t, nil
}
