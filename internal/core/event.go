package core

import (
	"time"

	"github.com/avolkov/directline/internal/store"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessageReceive delivers a message to a recipient connection.
	EventMessageReceive EventKind = iota
	// EventMessageSent acknowledges a send to the originating connection.
	EventMessageSent
	// EventMessageError reports a per-message failure to the sender.
	EventMessageError
	// EventUsersList delivers the online roster to a newly connected client.
	EventUsersList
	// EventUserOnline announces a user's first connection.
	EventUserOnline
	// EventUserOffline announces a user's last disconnection.
	EventUserOffline
	// EventNotification is the compact new-message alert, sent to recipient
	// connections alongside EventMessageReceive.
	EventNotification
)

// UserRef is the user summary embedded in delivered messages.
type UserRef struct {
	ID       string
	Name     string
	Username string
}

// Message is a hydrated message as delivered to live connections.
type Message struct {
	ID        string
	From      UserRef
	To        UserRef
	Content   string
	Read      bool
	CreatedAt time.Time
}

// Event is sent to clients to describe what happened in the system.
// Events are transient; they are generated and discarded per broadcast.
type Event struct {
	Kind     EventKind
	Message  *Message
	Users    []*store.User
	UserID   string
	Username string
	Error    *CoreError
}
