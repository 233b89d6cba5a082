package chat

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freightlink-client/internal/domain"
	"freightlink-client/internal/notify"
	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/logger"
	"freightlink-client/pkg/metrics"
	"freightlink-client/pkg/retry"
	"freightlink-client/pkg/sanitize"
)

// RemoteAPI is the chat backend contract. Satisfied by api.ChatClient.
type RemoteAPI interface {
	CreateConversation(ctx context.Context, participantID uuid.UUID) (*domain.ConversationSummary, error)
	ListConversations(ctx context.Context) ([]domain.ConversationSummary, error)
	GetMessages(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]domain.Message, error)
	SendMessage(ctx context.Context, conversationID uuid.UUID, content string) (*domain.Message, error)
	SendMedia(ctx context.Context, conversationID uuid.UUID, filename string, payload io.Reader) (*domain.Message, error)
}

// Service is the optimistic conversation/message cache: reads come from
// the local store instantly, writes apply locally first and reconcile
// against the backend result.
type Service struct {
	repo        *Repository
	api         RemoteAPI
	retryPolicy retry.Policy
	notifier    notify.Notifier
	userID      uuid.UUID

	// Serializes cache mutations; sends complete on goroutines
	mu sync.Mutex
}

// NewService creates the cache service for the authenticated user
func NewService(repo *Repository, api RemoteAPI, retryPolicy retry.Policy, notifier notify.Notifier, userID uuid.UUID) *Service {
	return &Service{
		repo:        repo,
		api:         api,
		retryPolicy: retryPolicy,
		notifier:    notifier,
		userID:      userID,
	}
}

// ListConversations returns the cached summaries immediately and kicks
// off a background refresh. On refresh success the cache is fully
// replaced and onRefresh fires with the fresh list. On failure a
// non-empty cache stays displayed with no error; only an empty cache
// surfaces one.
func (s *Service) ListConversations(ctx context.Context, onRefresh func([]domain.ConversationSummary)) []domain.ConversationSummary {
	s.mu.Lock()
	cached, err := s.repo.Conversations(ctx)
	s.mu.Unlock()
	if err != nil {
		logger.Warn("failed to read cached conversations", zap.Error(err))
		cached = nil
	}

	go s.refreshConversations(len(cached) > 0, onRefresh)

	return cached
}

// refreshBudget is the overall deadline for one refresh cycle: a full
// timeout per attempt plus the sleeps between attempts, so the last retry
// is never cut short by the sleeps that preceded it
func refreshBudget(p retry.Policy) time.Duration {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return constants.DefaultTimeout*time.Duration(attempts) + p.Delay*time.Duration(attempts-1)
}

// refreshConversations fetches the authoritative list with the bounded
// retry policy and reconciles the cache
func (s *Service) refreshConversations(hasCached bool, onRefresh func([]domain.ConversationSummary)) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshBudget(s.retryPolicy))
	defer cancel()

	var fresh []domain.ConversationSummary
	err := retry.Do(ctx, s.retryPolicy, "conversation refresh", func(ctx context.Context) error {
		listed, listErr := s.api.ListConversations(ctx)
		if listErr != nil {
			return listErr
		}
		fresh = listed
		return nil
	})

	if err != nil {
		if hasCached {
			// Stale cache keeps being displayed; no error surfaces
			metrics.CacheRefreshTotal.WithLabelValues("stale_fallback").Inc()
			logger.Info("conversation refresh failed, serving stale cache", zap.Error(err))
			return
		}
		metrics.CacheRefreshTotal.WithLabelValues("failure").Inc()
		s.notifier.Notify(notify.LevelError, "Could not load conversations")
		return
	}

	s.mu.Lock()
	saveErr := s.repo.SaveConversations(ctx, fresh)
	s.mu.Unlock()
	if saveErr != nil {
		logger.Warn("failed to persist refreshed conversations", zap.Error(saveErr))
	}

	metrics.CacheRefreshTotal.WithLabelValues("success").Inc()
	if onRefresh != nil {
		onRefresh(fresh)
	}
}

// EnsureConversation guarantees a conversation exists for the target
// participant before its first message fetch. Creation is idempotent on
// the backend: the same pair always yields the same conversation.
func (s *Service) EnsureConversation(ctx context.Context, participantID uuid.UUID) (*domain.ConversationSummary, []domain.Message, error) {
	s.mu.Lock()
	summaries, err := s.repo.Conversations(ctx)
	s.mu.Unlock()
	if err != nil {
		summaries = nil
	}

	var summary *domain.ConversationSummary
	for i := range summaries {
		if summaries[i].Participant.UserID == participantID {
			summary = &summaries[i]
			break
		}
	}

	if summary == nil {
		created, createErr := s.api.CreateConversation(ctx, participantID)
		if createErr != nil {
			return nil, nil, createErr
		}
		summary = created

		s.mu.Lock()
		if saveErr := s.repo.SaveConversations(ctx, UpsertSummary(summaries, *created)); saveErr != nil {
			logger.Warn("failed to cache new conversation", zap.Error(saveErr))
		}
		s.mu.Unlock()
	}

	messages, err := s.api.GetMessages(ctx, summary.ConversationID, 1, constants.DefaultPageSize)
	if err != nil {
		return summary, nil, err
	}

	s.mu.Lock()
	if saveErr := s.repo.SaveMessages(ctx, summary.ConversationID, messages); saveErr != nil {
		logger.Warn("failed to cache message page", zap.Error(saveErr))
	}
	s.mu.Unlock()

	return summary, messages, nil
}

// Messages returns the cached message window for a conversation
func (s *Service) Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Messages(ctx, conversationID)
}

// SendMessage appends a pending entry synchronously and submits in the
// background. The pending entry is replaced in place on success and
// removed outright on failure; onSettled (optional) observes the result.
func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, content string, onSettled func(*domain.Message, error)) *domain.Message {
	content = sanitize.MessageContent(content)
	pending := domain.Message{
		MessageID:      uuid.New(),
		ConversationID: conversationID,
		SenderID:       s.userID,
		Content:        content,
		MessageType:    domain.MessageTypeText,
		CreatedAt:      time.Now(),
		IsPending:      true,
	}

	s.mu.Lock()
	messages, err := s.repo.Messages(ctx, conversationID)
	if err != nil {
		messages = nil
	}
	messages = append(messages, pending)
	if saveErr := s.repo.SaveMessages(ctx, conversationID, messages); saveErr != nil {
		logger.Warn("failed to persist pending message", zap.Error(saveErr))
	}
	s.mu.Unlock()

	go s.settleSend(conversationID, pending.MessageID, content, onSettled)

	return &pending
}

// settleSend reconciles one optimistic send against the backend outcome
func (s *Service) settleSend(conversationID, tempID uuid.UUID, content string, onSettled func(*domain.Message, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()

	canonical, err := s.api.SendMessage(ctx, conversationID, content)

	s.mu.Lock()
	messages, readErr := s.repo.Messages(ctx, conversationID)
	if readErr != nil {
		messages = nil
	}

	if err != nil {
		next, removed := RemovePending(messages, tempID)
		if removed {
			if saveErr := s.repo.SaveMessages(ctx, conversationID, next); saveErr != nil {
				logger.Warn("failed to persist send rollback", zap.Error(saveErr))
			}
		}
		s.mu.Unlock()

		metrics.MessageSendTotal.WithLabelValues("rolled_back").Inc()
		s.notifier.Notify(notify.LevelError, "Message could not be sent")
		if onSettled != nil {
			onSettled(nil, err)
		}
		return
	}

	next, confirmed := ConfirmPending(messages, tempID, *canonical)
	if confirmed {
		if saveErr := s.repo.SaveMessages(ctx, conversationID, next); saveErr != nil {
			logger.Warn("failed to persist confirmed message", zap.Error(saveErr))
		}
	}

	summaries, sumErr := s.repo.Conversations(ctx)
	if sumErr == nil {
		bumped := BumpSummary(summaries, conversationID, canonical.Content, canonical.CreatedAt, false)
		if saveErr := s.repo.SaveConversations(ctx, bumped); saveErr != nil {
			logger.Warn("failed to persist summary bump", zap.Error(saveErr))
		}
	}
	s.mu.Unlock()

	metrics.MessageSendTotal.WithLabelValues("confirmed").Inc()
	if onSettled != nil {
		onSettled(canonical, nil)
	}
}

// SendMedia uploads a media payload and appends the canonical entry once
// the backend returns it. No temporary entry exists for media; the upload
// already blocks the UI behind a visible pending indicator.
func (s *Service) SendMedia(ctx context.Context, conversationID uuid.UUID, filename string, payload io.Reader) (*domain.Message, error) {
	canonical, err := s.api.SendMedia(ctx, conversationID, sanitize.Filename(filename), payload)
	if err != nil {
		metrics.MediaSendTotal.WithLabelValues("failure").Inc()
		s.notifier.Notify(notify.LevelError, "Media could not be sent")
		return nil, err
	}

	s.mu.Lock()
	messages, readErr := s.repo.Messages(ctx, conversationID)
	if readErr != nil {
		messages = nil
	}
	messages = append(messages, *canonical)
	if saveErr := s.repo.SaveMessages(ctx, conversationID, messages); saveErr != nil {
		logger.Warn("failed to persist media message", zap.Error(saveErr))
	}

	summaries, sumErr := s.repo.Conversations(ctx)
	if sumErr == nil {
		bumped := BumpSummary(summaries, conversationID, "[media]", canonical.CreatedAt, false)
		if saveErr := s.repo.SaveConversations(ctx, bumped); saveErr != nil {
			logger.Warn("failed to persist summary bump", zap.Error(saveErr))
		}
	}
	s.mu.Unlock()

	metrics.MediaSendTotal.WithLabelValues("success").Inc()
	return canonical, nil
}

// LoadOlder fetches an older message page and merges it before the
// cached window
func (s *Service) LoadOlder(ctx context.Context, conversationID uuid.UUID, page int) ([]domain.Message, error) {
	older, err := s.api.GetMessages(ctx, conversationID, page, constants.DefaultPageSize)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, readErr := s.repo.Messages(ctx, conversationID)
	if readErr != nil {
		current = nil
	}
	merged := MergeOlder(older, current)
	if saveErr := s.repo.SaveMessages(ctx, conversationID, merged); saveErr != nil {
		logger.Warn("failed to persist merged messages", zap.Error(saveErr))
	}
	return merged, nil
}

// MarkRead clears the cached unread counter for a conversation
func (s *Service) MarkRead(ctx context.Context, conversationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries, err := s.repo.Conversations(ctx)
	if err != nil {
		return err
	}
	return s.repo.SaveConversations(ctx, ZeroUnread(summaries, conversationID))
}

// Clear wipes the whole cache namespace. Called on logout.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Clear(ctx)
}
