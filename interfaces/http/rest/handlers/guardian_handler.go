package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"guard-backend/application/queries"
	querybus "guard-backend/application/queries/bus"
	"guard-backend/pkg/common"
)

// GuardianHandler handles guardian-side reads.
type GuardianHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewGuardianHandler creates a new guardian handler
func NewGuardianHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *GuardianHandler {
	return &GuardianHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// ListWatchedSubjects handles GET /guardians/{guardianID}/subjects
func (h *GuardianHandler) ListWatchedSubjects(w http.ResponseWriter, r *http.Request) {
	query := queries.ListWatchedSubjectsQuery{
		GuardianID: chi.URLParam(r, "guardianID"),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
