package chat

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"freightlink-client/internal/domain"
	"freightlink-client/internal/notify"
	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/errors"
	"freightlink-client/pkg/retry"
)

// MockRemoteAPI is a mock implementation of RemoteAPI
type MockRemoteAPI struct {
	mock.Mock
}

func (m *MockRemoteAPI) CreateConversation(ctx context.Context, participantID uuid.UUID) (*domain.ConversationSummary, error) {
	args := m.Called(ctx, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversationSummary), args.Error(1)
}

func (m *MockRemoteAPI) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversationSummary), args.Error(1)
}

func (m *MockRemoteAPI) GetMessages(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockRemoteAPI) SendMessage(ctx context.Context, conversationID uuid.UUID, content string) (*domain.Message, error) {
	args := m.Called(ctx, conversationID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockRemoteAPI) SendMedia(ctx context.Context, conversationID uuid.UUID, filename string, payload io.Reader) (*domain.Message, error) {
	args := m.Called(ctx, conversationID, filename, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

type serviceFixture struct {
	repo     *Repository
	api      *MockRemoteAPI
	service  *Service
	userID   uuid.UUID
	notified chan string
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	repo := NewRepository(NewMemoryStore())
	mockAPI := new(MockRemoteAPI)
	userID := uuid.New()
	notified := make(chan string, 4)
	notifier := notify.Func(func(level notify.Level, message string) {
		notified <- message
	})

	service := NewService(repo, mockAPI, retry.Policy{Attempts: 1, Delay: time.Millisecond}, notifier, userID)
	return &serviceFixture{
		repo:     repo,
		api:      mockAPI,
		service:  service,
		userID:   userID,
		notified: notified,
	}
}

func waitMessage(t *testing.T, ch <-chan string, what string) string {
	t.Helper()
	select {
	case message := <-ch:
		return message
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

func TestRefreshBudgetCoversRetryDelays(t *testing.T) {
	// Three full attempts separated by two sleeps
	budget := refreshBudget(retry.Policy{Attempts: 3, Delay: 2 * time.Second})
	assert.Equal(t, 3*constants.DefaultTimeout+4*time.Second, budget)

	// A single attempt carries no inter-attempt delay
	assert.Equal(t, constants.DefaultTimeout, refreshBudget(retry.Policy{Attempts: 1, Delay: time.Minute}))

	// Unset policies normalize to one attempt, same as the retry loop
	assert.Equal(t, constants.DefaultTimeout, refreshBudget(retry.Policy{}))
}

func TestSendMessageConfirmReplacesInPlace(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	convID := uuid.New()

	seeded := domain.Message{MessageID: uuid.New(), ConversationID: convID, Content: "earlier"}
	assert.NoError(t, f.repo.SaveMessages(ctx, convID, []domain.Message{seeded}))
	assert.NoError(t, f.repo.SaveConversations(ctx, []domain.ConversationSummary{{ConversationID: convID}}))

	canonical := &domain.Message{
		MessageID:      uuid.New(),
		ConversationID: convID,
		SenderID:       f.userID,
		Content:        "load accepted",
		MessageType:    domain.MessageTypeText,
		CreatedAt:      time.Now(),
	}
	f.api.On("SendMessage", mock.Anything, convID, "load accepted").Return(canonical, nil)

	settled := make(chan *domain.Message, 1)
	pending := f.service.SendMessage(ctx, convID, "load accepted", func(message *domain.Message, err error) {
		assert.NoError(t, err)
		settled <- message
	})

	// The pending entry is visible synchronously
	assert.True(t, pending.IsPending)
	assert.Equal(t, f.userID, pending.SenderID)

	cached, err := f.service.Messages(ctx, convID)
	assert.NoError(t, err)
	assert.Len(t, cached, 2)
	assert.True(t, cached[1].IsPending)
	assert.Equal(t, pending.MessageID, cached[1].MessageID)

	select {
	case confirmed := <-settled:
		assert.Equal(t, canonical.MessageID, confirmed.MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send to settle")
	}

	// Same position and length, the temp id is gone
	cached, err = f.service.Messages(ctx, convID)
	assert.NoError(t, err)
	assert.Len(t, cached, 2)
	assert.Equal(t, canonical.MessageID, cached[1].MessageID)
	assert.False(t, cached[1].IsPending)

	// The conversation summary reflects the send, without an unread bump
	summaries, err := f.repo.Conversations(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "load accepted", summaries[0].LastMessagePreview)
	assert.Equal(t, 0, summaries[0].UnreadCount)
}

func TestSendMessageFailureRemovesPending(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	convID := uuid.New()

	seeded := domain.Message{MessageID: uuid.New(), ConversationID: convID, Content: "earlier"}
	assert.NoError(t, f.repo.SaveMessages(ctx, convID, []domain.Message{seeded}))

	f.api.On("SendMessage", mock.Anything, convID, "doomed").
		Return(nil, errors.New(errors.ErrCodeNetwork, "connection reset"))

	settled := make(chan error, 1)
	f.service.SendMessage(ctx, convID, "doomed", func(message *domain.Message, err error) {
		assert.Nil(t, message)
		settled <- err
	})

	select {
	case err := <-settled:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send to settle")
	}

	assert.Contains(t, waitMessage(t, f.notified, "send failure notification"), "could not be sent")

	// The list is exactly as before the attempt
	cached, err := f.service.Messages(ctx, convID)
	assert.NoError(t, err)
	assert.Len(t, cached, 1)
	assert.Equal(t, seeded.MessageID, cached[0].MessageID)
}

func TestSendMessageSanitizesContent(t *testing.T) {
	f := newServiceFixture(t)
	convID := uuid.New()

	canonical := &domain.Message{MessageID: uuid.New(), ConversationID: convID, Content: "hi"}
	f.api.On("SendMessage", mock.Anything, convID, "hi").Return(canonical, nil)

	settled := make(chan struct{})
	pending := f.service.SendMessage(context.Background(), convID, "  hi\x00 ", func(*domain.Message, error) {
		close(settled)
	})
	assert.Equal(t, "hi", pending.Content)

	select {
	case <-settled:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send to settle")
	}
	f.api.AssertExpectations(t)
}

func TestListConversationsRefreshReplacesCache(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stale := []domain.ConversationSummary{{ConversationID: uuid.New(), LastMessagePreview: "stale"}}
	assert.NoError(t, f.repo.SaveConversations(ctx, stale))

	fresh := []domain.ConversationSummary{
		{ConversationID: uuid.New(), LastMessagePreview: "fresh one"},
		{ConversationID: uuid.New(), LastMessagePreview: "fresh two"},
	}
	f.api.On("ListConversations", mock.Anything).Return(fresh, nil)

	refreshed := make(chan []domain.ConversationSummary, 1)
	cached := f.service.ListConversations(ctx, func(list []domain.ConversationSummary) {
		refreshed <- list
	})

	// Cached data is returned synchronously
	assert.Len(t, cached, 1)
	assert.Equal(t, "stale", cached[0].LastMessagePreview)

	select {
	case list := <-refreshed:
		assert.Len(t, list, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}

	persisted, err := f.repo.Conversations(ctx)
	assert.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestListConversationsServesStaleCacheOnFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stale := []domain.ConversationSummary{{ConversationID: uuid.New(), LastMessagePreview: "stale"}}
	assert.NoError(t, f.repo.SaveConversations(ctx, stale))

	attempted := make(chan struct{})
	f.api.On("ListConversations", mock.Anything).
		Run(func(mock.Arguments) { close(attempted) }).
		Return(nil, errors.New(errors.ErrCodeNetwork, "offline"))

	cached := f.service.ListConversations(ctx, nil)
	assert.Len(t, cached, 1)

	select {
	case <-attempted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh attempt")
	}
	time.Sleep(50 * time.Millisecond)

	// No error surfaced and the stale cache survives untouched
	select {
	case message := <-f.notified:
		t.Fatalf("unexpected notification: %s", message)
	default:
	}
	persisted, err := f.repo.Conversations(ctx)
	assert.NoError(t, err)
	assert.Equal(t, stale, persisted)
}

func TestListConversationsEmptyCacheFailureSurfacesError(t *testing.T) {
	f := newServiceFixture(t)

	f.api.On("ListConversations", mock.Anything).
		Return(nil, errors.New(errors.ErrCodeNetwork, "offline"))

	cached := f.service.ListConversations(context.Background(), nil)
	assert.Empty(t, cached)

	assert.Contains(t, waitMessage(t, f.notified, "refresh failure notification"), "Could not load conversations")
}

func TestEnsureConversationFindsExisting(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	participantID := uuid.New()
	existing := domain.ConversationSummary{
		ConversationID: uuid.New(),
		Participant:    domain.Participant{UserID: participantID, Name: "Haulage Co"},
	}
	assert.NoError(t, f.repo.SaveConversations(ctx, []domain.ConversationSummary{existing}))

	page := []domain.Message{{MessageID: uuid.New(), ConversationID: existing.ConversationID}}
	f.api.On("GetMessages", mock.Anything, existing.ConversationID, 1, mock.AnythingOfType("int")).Return(page, nil)

	summary, messages, err := f.service.EnsureConversation(ctx, participantID)
	assert.NoError(t, err)
	assert.Equal(t, existing.ConversationID, summary.ConversationID)
	assert.Len(t, messages, 1)

	f.api.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything)

	// The first page landed in the cache
	cached, err := f.service.Messages(ctx, existing.ConversationID)
	assert.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestEnsureConversationCreatesWhenUnknown(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	participantID := uuid.New()
	created := &domain.ConversationSummary{
		ConversationID: uuid.New(),
		Participant:    domain.Participant{UserID: participantID},
	}
	f.api.On("CreateConversation", mock.Anything, participantID).Return(created, nil)
	f.api.On("GetMessages", mock.Anything, created.ConversationID, 1, mock.AnythingOfType("int")).
		Return([]domain.Message{}, nil)

	summary, _, err := f.service.EnsureConversation(ctx, participantID)
	assert.NoError(t, err)
	assert.Equal(t, created.ConversationID, summary.ConversationID)

	persisted, err := f.repo.Conversations(ctx)
	assert.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestLoadOlderMergesBeforeWindow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	convID := uuid.New()

	newest := domain.Message{MessageID: uuid.New(), ConversationID: convID, Content: "newest"}
	assert.NoError(t, f.repo.SaveMessages(ctx, convID, []domain.Message{newest}))

	older := []domain.Message{
		{MessageID: uuid.New(), ConversationID: convID, Content: "oldest"},
		{MessageID: uuid.New(), ConversationID: convID, Content: "older"},
	}
	f.api.On("GetMessages", mock.Anything, convID, 2, mock.AnythingOfType("int")).Return(older, nil)

	merged, err := f.service.LoadOlder(ctx, convID, 2)
	assert.NoError(t, err)
	assert.Len(t, merged, 3)
	assert.Equal(t, "oldest", merged[0].Content)
	assert.Equal(t, "newest", merged[2].Content)
}

func TestMarkRead(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	convID := uuid.New()

	assert.NoError(t, f.repo.SaveConversations(ctx, []domain.ConversationSummary{
		{ConversationID: convID, UnreadCount: 5},
	}))

	assert.NoError(t, f.service.MarkRead(ctx, convID))

	persisted, err := f.repo.Conversations(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, persisted[0].UnreadCount)
}

func TestSendMediaAppendsCanonicalEntry(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	convID := uuid.New()

	assert.NoError(t, f.repo.SaveConversations(ctx, []domain.ConversationSummary{{ConversationID: convID}}))

	canonical := &domain.Message{
		MessageID:      uuid.New(),
		ConversationID: convID,
		MediaRef:       "uploads/pod.png",
		MessageType:    domain.MessageTypeMedia,
		CreatedAt:      time.Now(),
	}
	// The upload filename arrives stripped of path components
	f.api.On("SendMedia", mock.Anything, convID, "pod.png", mock.Anything).Return(canonical, nil)

	sent, err := f.service.SendMedia(ctx, convID, "../../pod.png", strings.NewReader("binary"))
	assert.NoError(t, err)
	assert.Equal(t, canonical.MessageID, sent.MessageID)

	cached, err := f.service.Messages(ctx, convID)
	assert.NoError(t, err)
	assert.Len(t, cached, 1)
	assert.Equal(t, domain.MessageTypeMedia, cached[0].MessageType)

	summaries, err := f.repo.Conversations(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "[media]", summaries[0].LastMessagePreview)
}

func TestClearWipesNamespace(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	convID := uuid.New()

	assert.NoError(t, f.repo.SaveConversations(ctx, []domain.ConversationSummary{{ConversationID: convID}}))
	assert.NoError(t, f.repo.SaveMessages(ctx, convID, []domain.Message{{MessageID: uuid.New()}}))

	assert.NoError(t, f.service.Clear(ctx))

	summaries, err := f.repo.Conversations(ctx)
	assert.NoError(t, err)
	assert.Empty(t, summaries)

	messages, err := f.service.Messages(ctx, convID)
	assert.NoError(t, err)
	assert.Empty(t, messages)
}
