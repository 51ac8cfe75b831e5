package handlers

import (
	"context"

	"guard-backend/application/ports"
	"guard-backend/application/queries"
	"guard-backend/application/queries/bus"
	"guard-backend/domain/core/valueobjects"
	appErrors "guard-backend/pkg/errors"
)

// SafeZoneQueryHandler serves zone configuration reads.
type SafeZoneQueryHandler struct {
	subjects  ports.SubjectRepository
	directory ports.GuardianDirectory
}

// NewSafeZoneQueryHandler creates the safe zone query handler
func NewSafeZoneQueryHandler(subjects ports.SubjectRepository, directory ports.GuardianDirectory) *SafeZoneQueryHandler {
	return &SafeZoneQueryHandler{
		subjects:  subjects,
		directory: directory,
	}
}

// Handle implements bus.QueryHandler
func (h *SafeZoneQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetSafeZoneQuery)
	if !ok {
		return nil, appErrors.NewInternalError("invalid query type for safe zone query handler", nil)
	}

	subjectID, err := valueobjects.NewSubjectIDFromString(q.SubjectID)
	if err != nil {
		return nil, appErrors.NewValidationError(err.Error())
	}
	if err := authorizeSubjectAccess(ctx, h.directory, subjectID); err != nil {
		return nil, err
	}

	subject, err := h.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	view := queries.SafeZoneView{
		SubjectID: subject.ID().String(),
		State:     string(subject.State()),
	}
	if zone := subject.Zone(); zone != nil {
		lat := zone.Center().Latitude()
		lon := zone.Center().Longitude()
		radius := zone.RadiusMeters()
		view.Latitude = &lat
		view.Longitude = &lon
		view.RadiusMeters = &radius
	}
	return view, nil
}
