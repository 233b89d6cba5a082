package chat

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"freightlink-client/internal/domain"
	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/errors"
)

// Repository persists conversation summaries and per-conversation message
// lists under the fixed cache namespace
type Repository struct {
	store Store
}

// NewRepository creates a cache repository over a store
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

func messagesKey(conversationID uuid.UUID) string {
	return constants.MessagesKeyPrefix + conversationID.String()
}

// Conversations returns the cached summaries; a missing key yields an
// empty list, not an error
func (r *Repository) Conversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	raw, err := r.store.Get(ctx, constants.ConversationsKey)
	if err == ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summaries []domain.ConversationSummary
	if err := json.Unmarshal([]byte(raw), &summaries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCache, "corrupt cached conversation list", err)
	}
	return summaries, nil
}

// SaveConversations replaces the cached summary list
func (r *Repository) SaveConversations(ctx context.Context, summaries []domain.ConversationSummary) error {
	encoded, err := json.Marshal(summaries)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode conversation list", err)
	}
	return r.store.Set(ctx, constants.ConversationsKey, string(encoded))
}

// Messages returns the cached message list for a conversation
func (r *Repository) Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	raw, err := r.store.Get(ctx, messagesKey(conversationID))
	if err == ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCache, "corrupt cached message list", err)
	}
	return messages, nil
}

// SaveMessages replaces the cached message list for a conversation
func (r *Repository) SaveMessages(ctx context.Context, conversationID uuid.UUID, messages []domain.Message) error {
	encoded, err := json.Marshal(messages)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode message list", err)
	}
	return r.store.Set(ctx, messagesKey(conversationID), string(encoded))
}

// Clear wipes the entire cache namespace. Called on logout.
func (r *Repository) Clear(ctx context.Context) error {
	keys, err := r.store.Keys(ctx, constants.CacheNamespace+"*")
	if err != nil {
		return err
	}
	return r.store.Delete(ctx, keys...)
}
