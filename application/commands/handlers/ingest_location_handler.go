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
	"guard-backend/pkg/common"
	appErrors "guard-backend/pkg/errors"
	"guard-backend/pkg/observability"
)

// IngestLocationHandler is the ingestion engine. It admits one sample at a
// time per subject: an in-process mutex serializes goroutines on this
// instance and the distributed lock serializes across instances. The order
// samples pass admission is the order they are processed.
type IngestLocationHandler struct {
	subjects  ports.SubjectRepository
	ledger    ports.LocationLedger
	uow       ports.UnitOfWork
	lock      ports.SubjectLock
	local     *common.KeyedMutex
	fanout    *services.NotificationFanout
	publisher ports.EventPublisher
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewIngestLocationHandler creates the ingestion handler
func NewIngestLocationHandler(
	subjects ports.SubjectRepository,
	ledger ports.LocationLedger,
	uow ports.UnitOfWork,
	lock ports.SubjectLock,
	local *common.KeyedMutex,
	fanout *services.NotificationFanout,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *IngestLocationHandler {
	return &IngestLocationHandler{
		subjects:  subjects,
		ledger:    ledger,
		uow:       uow,
		lock:      lock,
		local:     local,
		fanout:    fanout,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Handle implements bus.CommandHandler
func (h *IngestLocationHandler) Handle(ctx context.Context, cmd bus.Command) error {
	ingest, ok := cmd.(commands.IngestLocationCommand)
	if !ok {
		return appErrors.NewInternalError("invalid command type for ingest location handler", nil)
	}
	start := time.Now()

	subjectID, err := valueobjects.NewSubjectIDFromString(ingest.SubjectID)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}
	position, err := valueobjects.NewCoordinate(ingest.Latitude, ingest.Longitude)
	if err != nil {
		return appErrors.NewValidationError(err.Error())
	}
	if err := requireSubjectPrincipal(ctx, subjectID); err != nil {
		return err
	}

	unlock := h.local.Lock(subjectID.String())
	defer unlock()

	release, err := h.lock.Acquire(ctx, subjectID)
	if err != nil {
		return appErrors.NewUnavailableError("could not acquire subject lock", err)
	}
	defer release()

	subject, err := h.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}

	sample := entities.NewPositionSample(subjectID, position, ingest.RecordedAt)
	if err := h.ledger.Append(ctx, sample); err != nil {
		return err
	}

	event := subject.RecordPosition(position, sample.ReceivedAt)
	if event == nil {
		if err := h.subjects.Save(ctx, subject); err != nil {
			return err
		}
		h.finishMetrics(start)
		return nil
	}

	alert := alertFromTransition(event, position, sample.ReceivedAt)

	// Fanout is best-effort: a directory outage drops the pushes but never
	// the ledger entry.
	entries, stageErr := h.fanout.Stage(ctx, alert)
	if stageErr != nil {
		h.logger.Warn("failed to stage notifications",
			zap.String("subject_id", subjectID.String()),
			zap.String("alert_kind", string(alert.Kind)),
			zap.Error(stageErr))
		entries = nil
	}

	if err := h.uow.CommitTransition(ctx, ports.TransitionCommit{
		Subject: subject,
		Alert:   &alert,
		Outbox:  entries,
	}); err != nil {
		return err
	}
	subject.ClearEvents()

	// Delivery and event publication happen after the caller is acked.
	go h.fanout.Deliver(context.Background(), entries)
	go h.publish(event)

	h.metrics.Count(observability.MetricZoneTransitions, 1, map[string]string{
		"Kind": string(alert.Kind),
	})
	h.finishMetrics(start)
	return nil
}

func (h *IngestLocationHandler) publish(event events.DomainEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish domain event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err))
	}
}

func (h *IngestLocationHandler) finishMetrics(start time.Time) {
	h.metrics.Count(observability.MetricSamplesIngested, 1, nil)
	h.metrics.Duration(observability.MetricIngestLatencyMillis, time.Since(start), nil)
}

func alertFromTransition(event events.DomainEvent, position valueobjects.Coordinate, at time.Time) entities.AlertEvent {
	switch e := event.(type) {
	case events.ZoneExited:
		return entities.NewZoneExitAlert(e.SubjectID, position, at)
	case events.ZoneEntered:
		return entities.NewZoneEnterAlert(e.SubjectID, position, at)
	default:
		// RecordPosition only raises the two transition events.
		panic("unexpected transition event type")
	}
}
