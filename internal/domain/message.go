package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes text from media messages
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeMedia MessageType = "media"
)

// Message represents a chat message entry in the local cache.
//
// MessageID is a client-generated temporary id while IsPending is true;
// on confirmation the pending entry is replaced in place with the
// canonical entry carrying the permanent backend id. A conversation's
// list never holds two entries for the same logical send.
type Message struct {
	MessageID      uuid.UUID   `json:"message_id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	SenderID       uuid.UUID   `json:"sender_id"`
	Content        string      `json:"content,omitempty"`
	MediaRef       string      `json:"media_ref,omitempty"`
	MessageType    MessageType `json:"message_type"`
	CreatedAt      time.Time   `json:"created_at"`
	IsPending      bool        `json:"is_pending"`
}
