package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents an account in the system.
type User struct {
	ID           string
	Name         string
	Username     string
	PasswordHash string
	Online       bool
	LastSeen     time.Time
	CreatedAt    time.Time
}

// Message represents a persisted direct message. Messages are immutable after
// creation; only the read flag is ever updated, and not by this server.
type Message struct {
	ID        string
	FromID    string
	ToID      string
	Content   string
	Read      bool
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, id, name, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers lists all users except excludeID, online first, then by name.
	ListUsers(ctx context.Context, excludeID string) ([]*User, error)

	// ListOnlineUsers lists users whose online flag is set, except excludeID.
	ListOnlineUsers(ctx context.Context, excludeID string) ([]*User, error)

	// SetOnline updates the persisted online flag and last_seen timestamp.
	SetOnline(ctx context.Context, id string, online bool) error

	// ResetOnline clears the online flag for every user. Run at startup so
	// flags left behind by an unclean shutdown are not trusted.
	ResetOnline(ctx context.Context) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListConversation returns up to limit most-recent messages exchanged
	// between two users, in chronological order.
	ListConversation(ctx context.Context, userID, peerID string, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
