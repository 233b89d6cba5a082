package domain

import (
	"time"

	"github.com/google/uuid"
)

// Participant is the other party of a direct conversation
type Participant struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// ConversationSummary is the cached list entry for a conversation.
// The collection is unordered by key; sorting by recency is a
// presentation concern.
type ConversationSummary struct {
	ConversationID     uuid.UUID   `json:"conversation_id"`
	Participant        Participant `json:"participant"`
	LastMessagePreview string      `json:"last_message_preview,omitempty"`
	UnreadCount        int         `json:"unread_count"`
	LastMessageTime    time.Time   `json:"last_message_time"`
}
