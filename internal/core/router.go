package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/backplane"
	"github.com/avolkov/directline/internal/store"
)

// Router persists direct messages and fans them out to every live connection
// of the recipient, locally and via the backplane for other processes.
type Router struct {
	store    store.Store
	registry *Registry
	bp       backplane.Backplane
	origin   string
	log      *zerolog.Logger
}

// NewRouter constructs a message router.
func NewRouter(st store.Store, registry *Registry, bp backplane.Backplane, origin string, logger *zerolog.Logger) *Router {
	return &Router{
		store:    st,
		registry: registry,
		bp:       bp,
		origin:   origin,
		log:      logger,
	}
}

// Send validates, persists, and delivers a message from the sender's
// connection to userID `to`. The message is durably recorded before any
// delivery event is emitted; if persistence fails nothing is delivered.
// Delivery to recipient connections is best effort per connection and never
// fails the send. A recipient with zero live connections is a silent no-op.
func (r *Router) Send(ctx context.Context, sender *Client, to, content string) (*Message, *CoreError) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, coreError(ErrCodeEmptyContent, "message content must not be empty")
	}

	recipient, err := r.store.GetUserByID(ctx, to)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, coreError(ErrCodeUnknownRecipient, "recipient not found")
		}
		r.log.Error().Err(err).Str("to", to).Msg("resolve recipient")
		return nil, coreError(ErrCodePersistence, "failed to resolve recipient")
	}

	rec := &store.Message{
		ID:        uuid.NewString(),
		FromID:    sender.UserID,
		ToID:      recipient.ID,
		Content:   content,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.SaveMessage(ctx, rec); err != nil {
		r.log.Error().Err(err).Str("from", sender.UserID).Str("to", recipient.ID).Msg("save message")
		return nil, coreError(ErrCodePersistence, "failed to save message")
	}

	msg := &Message{
		ID:        rec.ID,
		From:      sender.Ref(),
		To:        UserRef{ID: recipient.ID, Name: recipient.Name, Username: recipient.Username},
		Content:   rec.Content,
		Read:      rec.Read,
		CreatedAt: rec.CreatedAt,
	}

	// Point-in-time copy: a connection dropping mid-delivery must not affect
	// the iteration or the other connections.
	conns := r.registry.ConnectionsFor(recipient.ID)
	for _, c := range conns {
		if !c.Enqueue(&Event{Kind: EventMessageReceive, Message: msg}) {
			r.log.Debug().Str("client_id", c.ID).Msg("dropped message:receive for slow consumer")
		}
	}

	r.publishMessage(ctx, msg)

	// Acknowledgment goes to the originating connection only. If the sender
	// disconnected while the send was in flight this is a harmless no-op.
	sender.Enqueue(&Event{Kind: EventMessageSent, Message: msg})

	for _, c := range conns {
		c.Enqueue(&Event{Kind: EventNotification, Message: msg})
	}

	return msg, nil
}

// publishMessage relays the message to other processes. Failures degrade to
// local-only delivery; persistence has already succeeded.
func (r *Router) publishMessage(ctx context.Context, msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		r.log.Error().Err(err).Msg("marshal backplane message")
		return
	}

	ev := backplane.Event{
		Origin:   r.origin,
		Kind:     backplane.KindMessage,
		TargetID: msg.To.ID,
		Payload:  payload,
		TS:       time.Now().Unix(),
	}
	if err := r.bp.Publish(ctx, ev); err != nil {
		r.log.Warn().Err(err).Msg("backplane publish failed, delivering locally only")
	}
}
