package domain

import "time"

// SecurityEvent is the message published to the event bus after an activity is recorded.
type SecurityEvent struct {
	EventID    string
	AccountID  string
	Action     ActivityAction
	OccurredAt time.Time
	IP         *string
	UserAgent  *string
	Metadata   map[string]any
}

// NewSecurityEvent derives a bus event from a persisted activity.
func NewSecurityEvent(activity Activity) SecurityEvent {
	return SecurityEvent{
		EventID:    activity.ID,
		AccountID:  activity.AccountID,
		Action:     activity.Action,
		OccurredAt: activity.CreatedAt,
		IP:         activity.IP,
		UserAgent:  activity.UserAgent,
		Metadata:   activity.Metadata,
	}
}
