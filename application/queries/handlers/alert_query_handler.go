package handlers

import (
	"context"
	"time"

	"guard-backend/application/ports"
	"guard-backend/application/queries"
	"guard-backend/application/queries/bus"
	"guard-backend/domain/core/entities"
	"guard-backend/domain/core/valueobjects"
	"guard-backend/pkg/auth"
	appErrors "guard-backend/pkg/errors"
)

const (
	defaultAlertLimit    = 50
	recentEmergencyLimit = 5
)

// AlertQueryHandler serves alert history reads and the admin dashboard
// aggregation.
type AlertQueryHandler struct {
	alerts    ports.AlertLedger
	directory ports.GuardianDirectory
	dashboard ports.DashboardReader
}

// NewAlertQueryHandler creates the alert query handler
func NewAlertQueryHandler(alerts ports.AlertLedger, directory ports.GuardianDirectory, dashboard ports.DashboardReader) *AlertQueryHandler {
	return &AlertQueryHandler{
		alerts:    alerts,
		directory: directory,
		dashboard: dashboard,
	}
}

// Handle implements bus.QueryHandler
func (h *AlertQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.ListAlertsQuery:
		return h.list(ctx, q)
	case queries.GetDashboardStatsQuery:
		return h.stats(ctx, q)
	default:
		return nil, appErrors.NewInternalError("invalid query type for alert query handler", nil)
	}
}

func (h *AlertQueryHandler) list(ctx context.Context, q queries.ListAlertsQuery) (interface{}, error) {
	subjectID, err := valueobjects.NewSubjectIDFromString(q.SubjectID)
	if err != nil {
		return nil, appErrors.NewValidationError(err.Error())
	}
	if err := authorizeSubjectAccess(ctx, h.directory, subjectID); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultAlertLimit
	}
	alerts, err := h.alerts.ListBySubject(ctx, subjectID, limit)
	if err != nil {
		return nil, err
	}

	return toAlertViews(alerts), nil
}

func toAlertViews(alerts []entities.AlertEvent) []queries.AlertView {
	views := make([]queries.AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, queries.AlertView{
			ID:         a.ID,
			SubjectID:  a.SubjectID.String(),
			Kind:       string(a.Kind),
			Message:    a.Message,
			Latitude:   a.Latitude,
			Longitude:  a.Longitude,
			OccurredAt: a.OccurredAt,
		})
	}
	return views
}

func (h *AlertQueryHandler) stats(ctx context.Context, q queries.GetDashboardStatsQuery) (interface{}, error) {
	claims, err := auth.GetUserFromContext(ctx)
	if err != nil || claims.Role != auth.RoleAdmin {
		return nil, appErrors.NewUnauthorizedError("admin role required")
	}

	exits, err := h.alerts.CountByKindSince(ctx, entities.AlertZoneExit, q.Since)
	if err != nil {
		return nil, err
	}
	enters, err := h.alerts.CountByKindSince(ctx, entities.AlertZoneEnter, q.Since)
	if err != nil {
		return nil, err
	}
	emergencies, err := h.alerts.CountByKindSince(ctx, entities.AlertEmergency, q.Since)
	if err != nil {
		return nil, err
	}
	recent, err := h.alerts.RecentByKind(ctx, entities.AlertEmergency, recentEmergencyLimit)
	if err != nil {
		return nil, err
	}

	totalSubjects, err := h.dashboard.CountSubjects(ctx)
	if err != nil {
		return nil, err
	}
	activeSubjects, err := h.dashboard.CountActiveSubjects(ctx, q.Since)
	if err != nil {
		return nil, err
	}
	links, err := h.dashboard.CountGuardianLinks(ctx)
	if err != nil {
		return nil, err
	}

	return queries.DashboardStats{
		Since:              q.Since,
		TotalSubjects:      totalSubjects,
		ActiveSubjects:     activeSubjects,
		TotalGuardianLinks: links,
		ZoneExits:          exits,
		ZoneEnters:         enters,
		Emergencies:        emergencies,
		TotalAlerts:        exits + enters + emergencies,
		RecentEmergencies:  toAlertViews(recent),
		GeneratedAt:        time.Now(),
	}, nil
}
