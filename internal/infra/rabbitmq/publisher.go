package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/infra/config"
	"github.com/evans-manyala/enxero/internal/infra/events"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements port.EventPublisher on a durable RabbitMQ topic exchange.
// The routing key is the event type, e.g. auth.account_locked.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	appCfg   config.AppSettings
	logger   *zap.Logger
}

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(cfg config.RabbitMQSettings, appCfg config.AppSettings, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("rabbitmq publisher initialized", zap.String("exchange", cfg.Exchange))

	return &Publisher{conn: conn, ch: ch, exchange: cfg.Exchange, appCfg: appCfg, logger: logger}, nil
}

func (p *Publisher) PublishSecurityEvent(ctx context.Context, event domain.SecurityEvent) error {
	envelope := events.NewEnvelope(ctx, p.appCfg, event)
	body, err := envelope.Marshal()
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    envelope.EventID,
		Type:         envelope.EventType,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, envelope.EventType, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", envelope.EventType, err)
	}
	return nil
}

// Close releases the channel and the connection.
func (p *Publisher) Close() error {
	p.logger.Info("closing rabbitmq publisher")
	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("rabbitmq: close channel: %w", err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("rabbitmq: close connection: %w", err)
		}
	}
	return nil
}

var _ port.EventPublisher = (*Publisher)(nil)
