// Package messaging composes event publication targets.
package messaging

import (
	"context"

	"go.uber.org/zap"

	"guard-backend/application/ports"
	"guard-backend/domain/events"
)

// CompositePublisher fans one domain event out to several publishers. Each
// target is best-effort; a dashboard outage must not block the event bus.
type CompositePublisher struct {
	targets []ports.EventPublisher
	logger  *zap.Logger
}

// NewCompositePublisher creates a publisher that forwards to all targets
func NewCompositePublisher(logger *zap.Logger, targets ...ports.EventPublisher) *CompositePublisher {
	return &CompositePublisher{
		targets: targets,
		logger:  logger,
	}
}

// Publish implements ports.EventPublisher
func (p *CompositePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	var firstErr error
	for _, target := range p.targets {
		if err := target.Publish(ctx, event); err != nil {
			p.logger.Warn("event publication target failed",
				zap.String("event_type", event.GetEventType()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
