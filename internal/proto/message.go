package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Event names are the wire contract.
const (
	InboundTypeMessageSend = "message:send"

	OutboundTypeMessageReceive = "message:receive"
	OutboundTypeMessageSent    = "message:sent"
	OutboundTypeMessageError   = "message:error"
	OutboundTypeUsersList      = "users:list"
	OutboundTypeUserOnline     = "user:online"
	OutboundTypeUserOffline    = "user:offline"
	OutboundTypeNotification   = "notification:new-message"
)

// SendData is the payload of message:send.
type SendData struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// UserRef is the compact user summary embedded in message payloads.
type UserRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// MessagePayload is the full message carried by message:receive and
// message:sent.
type MessagePayload struct {
	ID        string    `json:"id"`
	From      UserRef   `json:"from"`
	To        UserRef   `json:"to"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserPayload is one entry of users:list.
type UserPayload struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// PresencePayload is the payload of user:online and user:offline.
type PresencePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// NotificationPayload is the compact alert sent alongside message:receive,
// letting a client raise a notification without parsing the full message.
type NotificationPayload struct {
	From      UserRef   `json:"from"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload is the payload of message:error.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
