// Package events publishes domain events after a write has committed.
package events

import (
	"context"

	"tourbook/models"

	"go.uber.org/zap"
)

// Publisher delivers domain events. Publishing happens after the store write
// committed, so a failure is reported but never undoes the write.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

// LogPublisher writes events to the log; it is used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event models.Event) error {
	p.logger.Info("domain event",
		zap.String("type", event.Type),
		zap.String("tourId", event.TourID),
		zap.String("entityId", event.EntityID),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
