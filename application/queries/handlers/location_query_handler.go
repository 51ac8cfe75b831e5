package handlers

import (
	"context"

	"guard-backend/application/ports"
	"guard-backend/application/queries"
	"guard-backend/application/queries/bus"
	"guard-backend/domain/core/entities"
	"guard-backend/domain/core/valueobjects"
	appErrors "guard-backend/pkg/errors"
)

const defaultHistoryLimit = 100

// LocationQueryHandler serves latest-position and history reads.
type LocationQueryHandler struct {
	ledger    ports.LocationLedger
	directory ports.GuardianDirectory
}

// NewLocationQueryHandler creates the location query handler
func NewLocationQueryHandler(ledger ports.LocationLedger, directory ports.GuardianDirectory) *LocationQueryHandler {
	return &LocationQueryHandler{
		ledger:    ledger,
		directory: directory,
	}
}

// Handle implements bus.QueryHandler
func (h *LocationQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.GetLatestLocationQuery:
		return h.latest(ctx, q)
	case queries.GetLocationHistoryQuery:
		return h.history(ctx, q)
	default:
		return nil, appErrors.NewInternalError("invalid query type for location query handler", nil)
	}
}

func (h *LocationQueryHandler) latest(ctx context.Context, q queries.GetLatestLocationQuery) (interface{}, error) {
	subjectID, err := valueobjects.NewSubjectIDFromString(q.SubjectID)
	if err != nil {
		return nil, appErrors.NewValidationError(err.Error())
	}
	if err := authorizeSubjectAccess(ctx, h.directory, subjectID); err != nil {
		return nil, err
	}

	sample, err := h.ledger.Latest(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return toLocationView(*sample), nil
}

func (h *LocationQueryHandler) history(ctx context.Context, q queries.GetLocationHistoryQuery) (interface{}, error) {
	subjectID, err := valueobjects.NewSubjectIDFromString(q.SubjectID)
	if err != nil {
		return nil, appErrors.NewValidationError(err.Error())
	}
	if err := authorizeSubjectAccess(ctx, h.directory, subjectID); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	samples, err := h.ledger.History(ctx, subjectID, q.From, q.To, limit)
	if err != nil {
		return nil, err
	}

	views := make([]queries.LocationView, 0, len(samples))
	for _, s := range samples {
		views = append(views, toLocationView(s))
	}
	return views, nil
}

func toLocationView(s entities.PositionSample) queries.LocationView {
	return queries.LocationView{
		SubjectID:  s.SubjectID.String(),
		Latitude:   s.Position.Latitude(),
		Longitude:  s.Position.Longitude(),
		RecordedAt: s.RecordedAt,
		ReceivedAt: s.ReceivedAt,
	}
}
