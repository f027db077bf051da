package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/infra/config"
)

const schemaVersion = "1.0"

// Envelope is the wire format shared by every broker-backed publisher.
type Envelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   Payload           `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Payload carries the request context of the activity.
type Payload struct {
	Action    domain.ActivityAction `json:"action"`
	IP        *string               `json:"ip,omitempty"`
	UserAgent *string               `json:"user_agent,omitempty"`
	Details   map[string]any        `json:"details,omitempty"`
}

// EventType maps USER_LOGGED_IN to auth.user_logged_in.
func EventType(action domain.ActivityAction) string {
	return "auth." + strings.ToLower(string(action))
}

// NewEnvelope wraps event, stamping service metadata and the active trace id.
func NewEnvelope(ctx context.Context, app config.AppSettings, event domain.SecurityEvent) Envelope {
	id := event.EventID
	if id == "" {
		id = uuid.NewString()
	}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	metadata := map[string]string{
		"service":     app.Name,
		"environment": app.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	return Envelope{
		EventID:   id,
		EventType: EventType(event.Action),
		AccountID: event.AccountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload: Payload{
			Action:    event.Action,
			IP:        event.IP,
			UserAgent: event.UserAgent,
			Details:   event.Metadata,
		},
		Metadata: metadata,
	}
}

// Marshal encodes the envelope as JSON.
func (e Envelope) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event envelope: %w", err)
	}
	return b, nil
}
