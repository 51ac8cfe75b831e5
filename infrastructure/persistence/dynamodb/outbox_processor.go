package dynamodb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"guard-backend/application/ports"
	"guard-backend/pkg/observability"
)

// OutboxProcessor is the background retry loop for staged notifications.
// Anything the inline fanout failed to deliver, or that a crash left
// pending, gets picked up here until it succeeds or runs out of attempts.
type OutboxProcessor struct {
	outbox  ports.NotificationOutbox
	sender  ports.NotificationSender
	logger  *zap.Logger
	metrics *observability.Metrics

	batchSize          int
	processingInterval time.Duration
	maxAttempts        int
	sendTimeout        time.Duration
	minEntryAge        time.Duration

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	outbox ports.NotificationOutbox,
	sender ports.NotificationSender,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *OutboxProcessor {
	return &OutboxProcessor{
		outbox:             outbox,
		sender:             sender,
		logger:             logger,
		metrics:            metrics,
		batchSize:          50,
		processingInterval: 5 * time.Second,
		maxAttempts:        3,
		sendTimeout:        5 * time.Second,
		minEntryAge:        30 * time.Second,
		stopChan:           make(chan struct{}),
		stoppedChan:        make(chan struct{}),
	}
}

// Start begins the background processing loop
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("starting notification outbox processor",
		zap.Int("batch_size", op.batchSize),
		zap.Duration("interval", op.processingInterval))

	go op.processLoop(ctx)
}

// Stop gracefully stops the processor
func (op *OutboxProcessor) Stop() {
	close(op.stopChan)
	<-op.stoppedChan
	op.logger.Info("notification outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if err := op.processBatch(ctx); err != nil {
				op.logger.Error("error processing outbox batch", zap.Error(err))
			}
		}
	}
}

func (op *OutboxProcessor) processBatch(ctx context.Context) error {
	pending, err := op.outbox.PendingBatch(ctx, op.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	processed := 0
	for _, entry := range pending {
		// Entries younger than minEntryAge are still owned by the inline
		// fanout; touching them here would deliver the push twice.
		if time.Since(entry.CreatedAt) < op.minEntryAge {
			continue
		}
		op.processEntry(ctx, entry)
		processed++
	}
	if processed > 0 {
		op.logger.Debug("processed pending notifications", zap.Int("count", processed))
	}
	return nil
}

func (op *OutboxProcessor) processEntry(ctx context.Context, entry ports.OutboxEntry) {
	sendCtx, cancel := context.WithTimeout(ctx, op.sendTimeout)
	defer cancel()

	err := op.sender.Send(sendCtx, ports.PushMessage{
		Token: entry.Token,
		Title: entry.Title,
		Body:  entry.Body,
		Data:  entry.Data,
	})
	if err == nil {
		op.metrics.Count(observability.MetricNotificationsSent, 1, nil)
		if markErr := op.outbox.MarkSent(ctx, entry.ID); markErr != nil {
			op.logger.Error("failed to mark notification sent",
				zap.String("entry_id", entry.ID), zap.Error(markErr))
		}
		return
	}

	op.metrics.Count(observability.MetricNotificationsFailed, 1, nil)
	if entry.Attempts+1 >= op.maxAttempts {
		op.logger.Warn("notification permanently failed",
			zap.String("entry_id", entry.ID),
			zap.String("alert_id", entry.AlertID),
			zap.Int("attempts", entry.Attempts+1),
			zap.Error(err))
		if markErr := op.outbox.MarkFailed(ctx, entry.ID); markErr != nil {
			op.logger.Error("failed to mark notification failed",
				zap.String("entry_id", entry.ID), zap.Error(markErr))
		}
		return
	}

	op.logger.Debug("notification send failed, will retry",
		zap.String("entry_id", entry.ID),
		zap.Int("attempts", entry.Attempts+1),
		zap.Error(err))
	if markErr := op.outbox.MarkRetry(ctx, entry.ID); markErr != nil {
		op.logger.Error("failed to record notification attempt",
			zap.String("entry_id", entry.ID), zap.Error(markErr))
	}
}
