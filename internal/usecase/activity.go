package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
)

// ClientInfo describes the caller of an auth operation.
type ClientInfo struct {
	IP        string
	UserAgent string
}

func (c ClientInfo) ipPtr() *string {
	return optionalString(c.IP)
}

func (c ClientInfo) userAgentPtr() *string {
	return optionalString(c.UserAgent)
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// ActivityLogger appends audit records and forwards them to the event bus.
type ActivityLogger struct {
	activities port.ActivityRepository
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewActivityLogger constructs an ActivityLogger. events may be nil.
func NewActivityLogger(activities port.ActivityRepository, events port.EventPublisher, logger *zap.Logger) *ActivityLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLogger{
		activities: activities,
		events:     events,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (l *ActivityLogger) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

// Record persists one activity. Publishing is best-effort and never fails the call.
func (l *ActivityLogger) Record(ctx context.Context, accountID string, action domain.ActivityAction, metadata map[string]any, client ClientInfo) error {
	if l == nil {
		return nil
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	activity := domain.Activity{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Action:    action,
		Metadata:  metadata,
		IP:        client.ipPtr(),
		UserAgent: client.userAgentPtr(),
		CreatedAt: l.now(),
	}

	if err := l.activities.Append(ctx, activity); err != nil {
		return fmt.Errorf("append activity %s: %w", action, err)
	}

	if l.events != nil {
		if err := l.events.PublishSecurityEvent(ctx, domain.NewSecurityEvent(activity)); err != nil {
			l.logger.Warn("publish security event failed",
				zap.String("action", string(action)),
				zap.String("account_id", accountID),
				zap.Error(err),
			)
		}
	}
	return nil
}
