// Package sse streams audit events to connected admin tools as Server-Sent Events.
package sse

import (
	"slices"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/audit"
)

// EventType names an SSE event. Audit events use their audit kind.
type EventType string

const (
	// EventConnected is sent once when a client attaches.
	EventConnected EventType = "connected"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// Used for filtering, not sent.
	userID string
}

// NewAuditEvent wraps an audit event for streaming.
func NewAuditEvent(e audit.Event) Event {
	return Event{
		Type:      EventType(e.Kind),
		Timestamp: e.At,
		Data:      e,
		userID:    e.UserID,
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      map[string]any{},
	}
}

// Filter selects which audit events a client receives.
type Filter struct {
	Kinds  []audit.Kind // Empty matches every kind
	UserID string       // Empty matches every user
}

// matches reports whether e passes the filter. Heartbeats always pass.
func (f Filter) matches(e Event) bool {
	if e.Type == EventHeartbeat {
		return true
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, audit.Kind(e.Type)) {
		return false
	}
	return f.UserID == "" || f.UserID == e.userID
}
