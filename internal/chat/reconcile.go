package chat

import (
	"time"

	"github.com/google/uuid"

	"freightlink-client/internal/domain"
)

// Reconciliation is expressed as pure functions over (previous state,
// server result) so the confirm/rollback asymmetry is testable on its own.

// ConfirmPending replaces the pending entry carrying tempID with the
// canonical entry, in place: same position, list length unchanged.
// Returns false when no pending entry with that id exists (already
// reconciled or rolled back).
func ConfirmPending(messages []domain.Message, tempID uuid.UUID, canonical domain.Message) ([]domain.Message, bool) {
	for i, message := range messages {
		if message.MessageID == tempID && message.IsPending {
			next := make([]domain.Message, len(messages))
			copy(next, messages)
			canonical.IsPending = false
			next[i] = canonical
			return next, true
		}
	}
	return messages, false
}

// RemovePending drops the pending entry carrying tempID outright,
// leaving no artifact of the failed send
func RemovePending(messages []domain.Message, tempID uuid.UUID) ([]domain.Message, bool) {
	for i, message := range messages {
		if message.MessageID == tempID && message.IsPending {
			next := make([]domain.Message, 0, len(messages)-1)
			next = append(next, messages[:i]...)
			next = append(next, messages[i+1:]...)
			return next, true
		}
	}
	return messages, false
}

// MergeOlder prepends an older page before the current window, dropping
// entries the window already holds
func MergeOlder(older, current []domain.Message) []domain.Message {
	seen := make(map[uuid.UUID]bool, len(current))
	for _, message := range current {
		seen[message.MessageID] = true
	}

	merged := make([]domain.Message, 0, len(older)+len(current))
	for _, message := range older {
		if !seen[message.MessageID] {
			merged = append(merged, message)
		}
	}
	return append(merged, current...)
}

// BumpSummary updates a conversation's preview and recency after a send
// or an inbound message. incrementUnread is false for the current user's
// own sends.
func BumpSummary(summaries []domain.ConversationSummary, conversationID uuid.UUID, preview string, at time.Time, incrementUnread bool) []domain.ConversationSummary {
	next := make([]domain.ConversationSummary, len(summaries))
	copy(next, summaries)

	for i := range next {
		if next[i].ConversationID == conversationID {
			next[i].LastMessagePreview = preview
			next[i].LastMessageTime = at
			if incrementUnread {
				next[i].UnreadCount++
			}
			break
		}
	}
	return next
}

// ZeroUnread clears the unread counter for a conversation
func ZeroUnread(summaries []domain.ConversationSummary, conversationID uuid.UUID) []domain.ConversationSummary {
	next := make([]domain.ConversationSummary, len(summaries))
	copy(next, summaries)

	for i := range next {
		if next[i].ConversationID == conversationID {
			next[i].UnreadCount = 0
			break
		}
	}
	return next
}

// UpsertSummary adds a summary when its conversation is unknown, or
// replaces the known one
func UpsertSummary(summaries []domain.ConversationSummary, summary domain.ConversationSummary) []domain.ConversationSummary {
	for i := range summaries {
		if summaries[i].ConversationID == summary.ConversationID {
			next := make([]domain.ConversationSummary, len(summaries))
			copy(next, summaries)
			next[i] = summary
			return next
		}
	}
	return append(append([]domain.ConversationSummary{}, summaries...), summary)
}
