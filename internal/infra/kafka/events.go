package kafka

import (
	"context"

	"github.com/IBM/sarama"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/infra/config"
	"github.com/evans-manyala/enxero/internal/infra/events"
)

const securityEventsTopic = "auth.security_events"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	appCfg   config.AppSettings
}

func NewEventPublisher(producer *Producer, appCfg config.AppSettings) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg}
}

// PublishSecurityEvent enqueues the event on the security topic keyed by account id.
func (p *EventPublisher) PublishSecurityEvent(ctx context.Context, event domain.SecurityEvent) error {
	envelope := events.NewEnvelope(ctx, p.appCfg, event)
	body, err := envelope.Marshal()
	if err != nil {
		return err
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(securityEventsTopic),
		Key:   sarama.StringEncoder(event.AccountID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(envelope.EventType)},
		},
	}

	select {
	case p.producer.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.EventPublisher = (*EventPublisher)(nil)
