package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher is satisfied by the rabbitmq publisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchangeName string, routingKey string, body any) error
}

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// eventSink publishes domain events. Publishing is best-effort: failures are logged, never returned.
type eventSink struct {
	pub      EventPublisher
	exchange string
	log      *zap.Logger
}

func newEventSink(pub EventPublisher, exchange string, log *zap.Logger) eventSink {
	if log == nil {
		log = zap.NewNop()
	}
	return eventSink{pub: pub, exchange: exchange, log: log}
}

func (s eventSink) emit(ctx context.Context, routingKey string, data any) {
	if s.pub == nil || routingKey == "" {
		return
	}
	ev := Event{
		ID:         uuid.New(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	if err := s.pub.PublishJSON(ctx, s.exchange, routingKey, ev); err != nil {
		s.log.Sugar().Warnw("publish event failed", "routing_key", routingKey, "event_id", ev.ID, "err", err)
	}
}
