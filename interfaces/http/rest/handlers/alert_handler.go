package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"guard-backend/application/queries"
	querybus "guard-backend/application/queries/bus"
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
)

// Dashboard stats default to the trailing 24 hours when no window is given.
const defaultDashboardWindow = 24 * time.Hour

// AlertHandler handles alert history and dashboard reads.
type AlertHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// ListAlerts handles GET /subjects/{subjectID}/alerts
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, appErrors.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	query := queries.ListAlertsQuery{
		SubjectID: chi.URLParam(r, "subjectID"),
		Limit:     limit,
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetDashboard handles GET /admin/dashboard
func (h *AlertHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-defaultDashboardWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, appErrors.NewValidationError("since must be an RFC 3339 timestamp"))
			return
		}
		since = parsed
	}

	query := queries.GetDashboardStatsQuery{Since: since}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
