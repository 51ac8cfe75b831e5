package handlers

import (
	"context"

	"guard-backend/application/ports"
	"guard-backend/application/queries"
	"guard-backend/application/queries/bus"
	appErrors "guard-backend/pkg/errors"
)

// GuardianQueryHandler serves guardian-side reads.
type GuardianQueryHandler struct {
	directory ports.GuardianDirectory
}

// NewGuardianQueryHandler creates the guardian query handler
func NewGuardianQueryHandler(directory ports.GuardianDirectory) *GuardianQueryHandler {
	return &GuardianQueryHandler{directory: directory}
}

// Handle implements bus.QueryHandler
func (h *GuardianQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListWatchedSubjectsQuery)
	if !ok {
		return nil, appErrors.NewInternalError("invalid query type for guardian query handler", nil)
	}

	if err := authorizeGuardianAccess(ctx, q.GuardianID); err != nil {
		return nil, err
	}

	links, err := h.directory.ListSubjects(ctx, q.GuardianID)
	if err != nil {
		return nil, err
	}

	views := make([]queries.WatchedSubjectView, 0, len(links))
	for _, link := range links {
		views = append(views, queries.WatchedSubjectView{
			SubjectID: link.SubjectID.String(),
			LinkedAt:  link.LinkedAt,
		})
	}
	return views, nil
}
