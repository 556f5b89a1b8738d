package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message types
const (
	MessageTypeText = "text"
	MessageTypeCall = "call"
)

// Message delivery statuses. Call-derived messages for missed and
// rejected calls stay at sent so they count unread for the recipient;
// completed calls are recorded as delivered since both parties
// participated.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// Message represents a direct chat message entity
// Maps to messages table
type Message struct {
	MessageID   uuid.UUID              `json:"message_id" db:"message_id"`
	SenderID    uuid.UUID              `json:"sender_id" db:"sender_id"`
	RecipientID uuid.UUID              `json:"recipient_id" db:"recipient_id"`
	Content     string                 `json:"content" db:"content"`
	MessageType string                 `json:"message_type" db:"message_type"` // text, call
	Status      string                 `json:"status" db:"status"`             // sent, delivered, read
	Metadata    map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
}

// MessageResponse is the flattened message payload published on
// message.new events and returned to clients.
type MessageResponse struct {
	MessageID   uuid.UUID              `json:"message_id"`
	SenderID    uuid.UUID              `json:"sender_id"`
	RecipientID uuid.UUID              `json:"recipient_id"`
	Sender      *UserResponse          `json:"sender,omitempty"`
	Content     string                 `json:"content"`
	MessageType string                 `json:"message_type"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
