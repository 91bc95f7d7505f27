package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/backplane"
	"github.com/avolkov/directline/internal/store"
)

// presencePayload is the backplane representation of an online/offline
// transition.
type presencePayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// Broadcaster announces presence transitions and hands newly connected
// clients the current online roster.
type Broadcaster struct {
	store    store.Store
	registry *Registry
	bp       backplane.Backplane
	origin   string
	log      *zerolog.Logger
}

// NewBroadcaster constructs a presence broadcaster.
func NewBroadcaster(st store.Store, registry *Registry, bp backplane.Backplane, origin string, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		store:    st,
		registry: registry,
		bp:       bp,
		origin:   origin,
		log:      logger,
	}
}

// Connect registers the connection. On the user's first connection it sets
// the persisted online flag and announces user:online to everyone else. The
// roster snapshot is computed after registration and always sent to the new
// connection, excluding the user's own entry.
func (b *Broadcaster) Connect(ctx context.Context, c *Client) {
	first := b.registry.Register(c)

	if first {
		if err := b.store.SetOnline(ctx, c.UserID, true); err != nil {
			b.log.Warn().Err(err).Str("user_id", c.UserID).Msg("persist online flag")
		}

		ev := &Event{Kind: EventUserOnline, UserID: c.UserID, Username: c.Username}
		b.registry.Broadcast(ev, c)
		b.publishPresence(ctx, c, true)
	}

	users, err := b.store.ListOnlineUsers(ctx, c.UserID)
	if err != nil {
		b.log.Error().Err(err).Str("user_id", c.UserID).Msg("load online roster")
		users = nil
	}
	c.Enqueue(&Event{Kind: EventUsersList, Users: users})

	b.log.Info().
		Str("user_id", c.UserID).
		Str("username", c.Username).
		Str("client_id", c.ID).
		Bool("first_connection", first).
		Msg("client connected")
}

// Disconnect removes the connection. Only the user's last disconnect clears
// the online flag and announces user:offline; other live connections keep
// the user online.
func (b *Broadcaster) Disconnect(ctx context.Context, c *Client) {
	last := b.registry.Deregister(c)
	if !last {
		return
	}

	if err := b.store.SetOnline(ctx, c.UserID, false); err != nil {
		b.log.Warn().Err(err).Str("user_id", c.UserID).Msg("clear online flag")
	}

	ev := &Event{Kind: EventUserOffline, UserID: c.UserID, Username: c.Username}
	b.registry.Broadcast(ev, nil)
	b.publishPresence(ctx, c, false)

	b.log.Info().
		Str("user_id", c.UserID).
		Str("username", c.Username).
		Msg("user offline")
}

func (b *Broadcaster) publishPresence(ctx context.Context, c *Client, online bool) {
	payload, err := json.Marshal(presencePayload{
		UserID:   c.UserID,
		Username: c.Username,
		Online:   online,
	})
	if err != nil {
		b.log.Error().Err(err).Msg("marshal presence payload")
		return
	}

	ev := backplane.Event{
		Origin:  b.origin,
		Kind:    backplane.KindPresence,
		Payload: payload,
		TS:      time.Now().Unix(),
	}
	if err := b.bp.Publish(ctx, ev); err != nil {
		b.log.Warn().Err(err).Msg("backplane presence publish failed")
	}
}
