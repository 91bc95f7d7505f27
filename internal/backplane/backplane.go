// Package backplane relays connection-scoped events between independently
// running server processes so presence and delivery work when a sender and
// recipient are attached to different processes. Delivery is at-least-once
// and unordered across processes; consumers must tolerate both.
package backplane

import (
	"context"
	"encoding/json"
)

// Event kinds carried over the backplane.
const (
	KindMessage  = "message"
	KindPresence = "presence"
)

// Event is the envelope relayed between processes.
type Event struct {
	// Origin identifies the publishing process so it can skip its own events.
	Origin string `json:"origin"`
	Kind   string `json:"kind"`
	// TargetID is the recipient user for KindMessage events; empty for
	// broadcast-style KindPresence events.
	TargetID string          `json:"target_id,omitempty"`
	Payload  json.RawMessage `json:"payload"`
	TS       int64           `json:"ts"`
}

// Backplane is a publish/subscribe fabric between server processes.
type Backplane interface {
	// Publish sends an event to every subscribed process, including the
	// publisher itself.
	Publish(ctx context.Context, ev Event) error

	// Subscribe returns a channel of events. The channel closes when ctx is
	// cancelled or the backplane is closed.
	Subscribe(ctx context.Context) (<-chan Event, error)

	Close() error
}
