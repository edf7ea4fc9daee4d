// Package queue defines the messages exchanged over the broker and the
// consumer that turns them back into socket notifications.
package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// NotificationEvent is published once per domain change and fanned out to
// every server instance, each of which delivers it to its own sockets.
// Payload is kept raw so the consumer forwards exactly what the producer
// encoded.
type NotificationEvent struct {
	Roles     []string        `json:"roles"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Origin    string          `json:"origin,omitempty"`     // publishing instance
	EmittedAt string          `json:"emitted_at,omitempty"` // RFC3339
}

var errMalformedEvent = errors.New("malformed notification event")

// Validate rejects events that cannot be routed.
func (e NotificationEvent) Validate() error {
	if strings.TrimSpace(e.Event) == "" || len(e.Roles) == 0 {
		return errMalformedEvent
	}
	return nil
}
