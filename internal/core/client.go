package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/directline/internal/store"
)

// Client is a live connection as seen by the core layer. A single user may
// own many concurrent clients (multiple devices or tabs).
type Client struct {
	// ID is the process-local connection handle.
	ID        string
	UserID    string
	Username  string
	Name      string
	Events    chan *Event
	CreatedAt time.Time
}

// NewClient constructs a client for an authenticated user.
func NewClient(user *store.User) *Client {
	return &Client{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Events:    make(chan *Event, 32),
		CreatedAt: time.Now(),
	}
}

// Enqueue delivers an event to the client's write loop without blocking.
// Returns false when the event was dropped because the consumer is slow or
// the connection is already being torn down.
func (c *Client) Enqueue(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// Ref returns the user summary embedded in delivered messages.
func (c *Client) Ref() UserRef {
	return UserRef{ID: c.UserID, Name: c.Name, Username: c.Username}
}
