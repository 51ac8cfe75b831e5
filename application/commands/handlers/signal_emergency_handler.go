package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guard-backend/application/commands"
	"guard-backend/application/commands/bus"
	"guard-backend/application/ports"
	"guard-backend/application/services"
	"guard-backend/domain/core/entities"
	"guard-backend/domain/core/valueobjects"
	"guard-backend/domain/events"
	appErrors "guard-backend/pkg/errors"
	"guard-backend/pkg/observability"
)

// SignalEmergencyHandler runs the SOS path: append an EMERGENCY ledger entry
// and fan out to every linked guardian. It never touches the geofence state,
// so no subject lock is needed.
type SignalEmergencyHandler struct {
	subjects  ports.SubjectRepository
	uow       ports.UnitOfWork
	fanout    *services.NotificationFanout
	publisher ports.EventPublisher
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewSignalEmergencyHandler creates the SOS handler
func NewSignalEmergencyHandler(
	subjects ports.SubjectRepository,
	uow ports.UnitOfWork,
	fanout *services.NotificationFanout,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *SignalEmergencyHandler {
	return &SignalEmergencyHandler{
		subjects:  subjects,
		uow:       uow,
		fanout:    fanout,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Handle implements bus.CommandHandler
func (h *SignalEmergencyHandler) Handle(ctx context.Context, cmd bus.Command) error {
	signal, ok := cmd.(commands.SignalEmergencyCommand)
	if !ok {
		return appErrors.NewInternalError("invalid command type for signal emergency handler", nil)
	}

	subjectID, err := valueobjects.NewSubjectIDFromString(signal.SubjectID)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}
	if err := requireSubjectPrincipal(ctx, subjectID); err != nil {
		return err
	}

	subject, err := h.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}

	var position *valueobjects.Coordinate
	if signal.Latitude != nil && signal.Longitude != nil {
		p, err := valueobjects.NewCoordinate(*signal.Latitude, *signal.Longitude)
		if err != nil {
			return appErrors.NewValidationError(err.Error())
		}
		position = &p
	}

	now := time.Now()
	event := subject.SignalEmergency(position, now)
	alert := entities.NewEmergencyAlert(subjectID, position, now)

	// A subject with zero guardians still gets a ledger entry; the fanout
	// simply has no recipients.
	entries, stageErr := h.fanout.Stage(ctx, alert)
	if stageErr != nil {
		h.logger.Warn("failed to stage emergency notifications",
			zap.String("subject_id", subjectID.String()),
			zap.Error(stageErr))
		entries = nil
	}

	if err := h.uow.CommitTransition(ctx, ports.TransitionCommit{
		Alert:  &alert,
		Outbox: entries,
	}); err != nil {
		return err
	}
	subject.ClearEvents()

	go h.fanout.Deliver(context.Background(), entries)
	go h.publish(event)

	h.metrics.Count(observability.MetricEmergencySignals, 1, nil)
	return nil
}

func (h *SignalEmergencyHandler) publish(event events.DomainEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish domain event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err))
	}
}
