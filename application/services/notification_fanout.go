package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guard-backend/application/ports"
	"guard-backend/domain/core/entities"
	"guard-backend/pkg/observability"
)

// Push payload strings are fixed so every guardian sees the same wording.
const (
	pushTitleSafeZone  = "Safe zone alert"
	pushTitleEmergency = "Emergency!"
	pushBodyEmergency  = "An SOS call was made. Please check the app."
)

const (
	deliveryWorkers = 4
	perSendTimeout  = 5 * time.Second
	statusPending   = "pending"
)

// NotificationFanout turns a committed alert into staged outbox entries and
// delivers them to guardian devices. Delivery is best-effort and runs off the
// ingestion path; a push outage never blocks or fails a location report.
type NotificationFanout struct {
	directory         ports.GuardianDirectory
	sender            ports.NotificationSender
	outbox            ports.NotificationOutbox
	logger            *zap.Logger
	metrics           *observability.Metrics
	tracer            *observability.Tracer
	notifyOnZoneEnter bool
}

// NewNotificationFanout creates the fanout service. notifyOnZoneEnter gates
// pushes for return-to-zone alerts; the ledger entry is written either way.
func NewNotificationFanout(
	directory ports.GuardianDirectory,
	sender ports.NotificationSender,
	outbox ports.NotificationOutbox,
	logger *zap.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	notifyOnZoneEnter bool,
) *NotificationFanout {
	return &NotificationFanout{
		directory:         directory,
		sender:            sender,
		outbox:            outbox,
		logger:            logger,
		metrics:           metrics,
		tracer:            tracer,
		notifyOnZoneEnter: notifyOnZoneEnter,
	}
}

// Stage resolves the subject's guardians and builds one outbox entry per
// push-capable guardian. A subject with zero guardians stages nothing, which
// is a valid outcome, not an error.
func (f *NotificationFanout) Stage(ctx context.Context, alert entities.AlertEvent) ([]ports.OutboxEntry, error) {
	if alert.Kind == entities.AlertZoneEnter && !f.notifyOnZoneEnter {
		return nil, nil
	}

	links, err := f.directory.ListGuardians(ctx, alert.SubjectID)
	if err != nil {
		return nil, err
	}

	title, body := payloadFor(alert)
	data := map[string]string{
		"alert_id":   alert.ID,
		"alert_kind": string(alert.Kind),
		"subject_id": alert.SubjectID.String(),
	}

	entries := make([]ports.OutboxEntry, 0, len(links))
	for _, link := range links {
		if link.PushToken == "" {
			continue
		}
		entries = append(entries, ports.OutboxEntry{
			ID:        uuid.New().String(),
			SubjectID: alert.SubjectID,
			AlertID:   alert.ID,
			Token:     link.PushToken,
			Title:     title,
			Body:      body,
			Data:      data,
			Status:    statusPending,
			CreatedAt: time.Now(),
		})
	}
	return entries, nil
}

// Deliver pushes staged entries through a bounded worker pool. Each send gets
// its own timeout so one slow device cannot hold up the rest. Failures are
// marked in the outbox for the retry processor and never returned to the
// caller.
func (f *NotificationFanout) Deliver(ctx context.Context, entries []ports.OutboxEntry) {
	if len(entries) == 0 {
		return
	}

	jobs := make(chan ports.OutboxEntry)
	var wg sync.WaitGroup

	workers := deliveryWorkers
	if len(entries) < workers {
		workers = len(entries)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				f.deliverOne(ctx, entry)
			}
		}()
	}

	for _, entry := range entries {
		jobs <- entry
	}
	close(jobs)
	wg.Wait()
}

func (f *NotificationFanout) deliverOne(ctx context.Context, entry ports.OutboxEntry) {
	sendCtx, cancel := context.WithTimeout(ctx, perSendTimeout)
	defer cancel()

	err := f.tracer.TraceFunction(sendCtx, "fanout.deliver", func(ctx context.Context) error {
		f.tracer.AddAnnotation(ctx, "alert_id", entry.AlertID)
		return f.sender.Send(ctx, ports.PushMessage{
			Token: entry.Token,
			Title: entry.Title,
			Body:  entry.Body,
			Data:  entry.Data,
		})
	})
	if err != nil {
		f.logger.Warn("push delivery failed",
			zap.String("alert_id", entry.AlertID),
			zap.String("subject_id", entry.SubjectID.String()),
			zap.Error(err))
		f.metrics.Count(observability.MetricNotificationsFailed, 1, nil)
		if markErr := f.outbox.MarkRetry(ctx, entry.ID); markErr != nil {
			f.logger.Error("failed to record outbox retry",
				zap.String("entry_id", entry.ID), zap.Error(markErr))
		}
		return
	}

	f.metrics.Count(observability.MetricNotificationsSent, 1, nil)
	if markErr := f.outbox.MarkSent(ctx, entry.ID); markErr != nil {
		f.logger.Error("failed to mark outbox entry sent",
			zap.String("entry_id", entry.ID), zap.Error(markErr))
	}
}

func payloadFor(alert entities.AlertEvent) (title, body string) {
	switch alert.Kind {
	case entities.AlertEmergency:
		return pushTitleEmergency, pushBodyEmergency
	default:
		return pushTitleSafeZone, alert.Message
	}
}
