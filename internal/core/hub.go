package core

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/backplane"
	"github.com/avolkov/directline/internal/store"
)

// Hub owns the presence registry, the message router, and the presence
// broadcaster, and bridges them to the cross-process backplane. The transport
// layer talks only to the hub.
type Hub struct {
	registry    *Registry
	router      *Router
	broadcaster *Broadcaster
	bp          backplane.Backplane
	origin      string
	log         *zerolog.Logger
}

// NewHub wires the core components around a shared registry and backplane.
func NewHub(st store.Store, bp backplane.Backplane, logger *zerolog.Logger) *Hub {
	origin := uuid.NewString()
	registry := NewRegistry()

	return &Hub{
		registry:    registry,
		router:      NewRouter(st, registry, bp, origin, logger),
		broadcaster: NewBroadcaster(st, registry, bp, origin, logger),
		bp:          bp,
		origin:      origin,
		log:         logger,
	}
}

// Registry exposes the presence registry for read-only queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect registers an authenticated connection and runs the presence
// broadcast protocol.
func (h *Hub) Connect(ctx context.Context, c *Client) {
	h.broadcaster.Connect(ctx, c)
}

// Disconnect deregisters a connection, announcing offline on the last one.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	h.broadcaster.Disconnect(ctx, c)
}

// Send routes a message from the sender's connection to the recipient.
func (h *Hub) Send(ctx context.Context, sender *Client, to, content string) (*Message, *CoreError) {
	return h.router.Send(ctx, sender, to, content)
}

// Run consumes backplane events until ctx is cancelled. Remote message
// events fan out to local connections of the target user; remote presence
// events are broadcast to every local connection. Events published by this
// process are skipped.
func (h *Hub) Run(ctx context.Context) error {
	events, err := h.bp.Subscribe(ctx)
	if err != nil {
		return err
	}

	for ev := range events {
		if ev.Origin == h.origin {
			continue
		}
		h.handleRemote(ev)
	}

	return ctx.Err()
}

func (h *Hub) handleRemote(ev backplane.Event) {
	switch ev.Kind {
	case backplane.KindMessage:
		var msg Message
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			h.log.Warn().Err(err).Msg("drop malformed remote message")
			return
		}
		for _, c := range h.registry.ConnectionsFor(ev.TargetID) {
			c.Enqueue(&Event{Kind: EventMessageReceive, Message: &msg})
			c.Enqueue(&Event{Kind: EventNotification, Message: &msg})
		}
	case backplane.KindPresence:
		var p presencePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			h.log.Warn().Err(err).Msg("drop malformed remote presence event")
			return
		}
		kind := EventUserOffline
		if p.Online {
			kind = EventUserOnline
		}
		h.registry.Broadcast(&Event{Kind: kind, UserID: p.UserID, Username: p.Username}, nil)
	default:
		h.log.Debug().Str("kind", ev.Kind).Msg("ignore unknown backplane event kind")
	}
}
