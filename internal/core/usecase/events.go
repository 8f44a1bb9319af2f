package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

// EventBroadcaster fans one event out to every configured publisher, for
// example the websocket hub and the NATS relay.
type EventBroadcaster struct {
	targets []ports.EventPublisher
	metrics EventMetrics
}

func NewEventBroadcaster(metrics EventMetrics, targets ...ports.EventPublisher) *EventBroadcaster {
	live := make([]ports.EventPublisher, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			live = append(live, t)
		}
	}
	return &EventBroadcaster{targets: live, metrics: metrics}
}

func (b *EventBroadcaster) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, t := range b.targets {
		if err := t.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if b.metrics != nil {
		b.metrics.RecordEvent(string(event.Type))
	}
	return errors.Join(errs...)
}

// publishEvent never fails the calling operation: a lost notification is
// logged and dropped.
func publishEvent(ctx context.Context, publisher ports.EventPublisher, eventType domain.EventType, data map[string]any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, domain.NewEvent(eventType, data)); err != nil {
		slog.Warn("event_publish_failed", "type", string(eventType), "error", err)
	}
}
