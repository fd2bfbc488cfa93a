package models

import "time"

type SecurityEventType string

const (
	EventLoginSucceeded  SecurityEventType = "login_succeeded"
	EventLoginFailed     SecurityEventType = "login_failed"
	EventPasswordChanged SecurityEventType = "password_changed"
	EventAccountUpserted SecurityEventType = "account_upserted"
)

// SecurityEvent is an audit record published for authentication activity.
// Reason holds the internal failure code and never reaches HTTP clients.
type SecurityEvent struct {
	Type       SecurityEventType `json:"type"`
	AccountID  string            `json:"accountId,omitempty"`
	Email      string            `json:"email,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	RemoteIP   string            `json:"remoteIp,omitempty"`
	RequestID  string            `json:"requestId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
