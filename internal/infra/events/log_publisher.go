package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/infra/logger"
)

// LogPublisher writes security events to the log instead of a broker. Used by the log driver.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishSecurityEvent(ctx context.Context, event domain.SecurityEvent) error {
	fields := []zap.Field{
		zap.String("event_type", EventType(event.Action)),
		zap.String("event_id", event.EventID),
		zap.String("account_id", event.AccountID),
		zap.Time("occurred_at", event.OccurredAt.UTC()),
	}
	if event.IP != nil {
		fields = append(fields, zap.String("ip", logger.MaskIP(*event.IP)))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	logger.WithContext(ctx, p.logger).Info("security event", fields...)
	return nil
}

var _ port.EventPublisher = (*LogPublisher)(nil)
