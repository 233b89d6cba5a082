package reaction

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"freightlink-client/internal/domain"
	"freightlink-client/internal/notify"
	"freightlink-client/pkg/errors"
)

// MockReactionAPI is a mock implementation of API
type MockReactionAPI struct {
	mock.Mock
}

func (m *MockReactionAPI) React(ctx context.Context, kind domain.PostKind, postID uuid.UUID) error {
	args := m.Called(ctx, kind, postID)
	return args.Error(0)
}

const testWindow = 30 * time.Millisecond

func newTestReconciler(api API, notifier notify.Notifier) *Reconciler {
	if notifier == nil {
		notifier = notify.Func(func(notify.Level, string) {})
	}
	return NewReconciler(api, testWindow, notifier, uuid.New())
}

func waitSubmit(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reaction submit")
	}
}

func TestToggleAppliesOptimistically(t *testing.T) {
	mockAPI := new(MockReactionAPI)
	r := newTestReconciler(mockAPI, nil)
	defer r.Close()

	postID := uuid.New()
	r.Seed(domain.PostKindCargo, postID, false, 4)

	submitted := make(chan struct{})
	mockAPI.On("React", mock.Anything, domain.PostKindCargo, postID).
		Run(func(mock.Arguments) { close(submitted) }).Return(nil)

	state, err := r.Toggle(domain.PostKindCargo, postID)
	assert.NoError(t, err)
	assert.True(t, state.IsLikedByCurrentUser)
	assert.Equal(t, 5, state.Count)

	waitSubmit(t, submitted)
	mockAPI.AssertNumberOfCalls(t, "React", 1)
}

func TestRapidTogglesCollapseToOneSubmit(t *testing.T) {
	mockAPI := new(MockReactionAPI)
	r := newTestReconciler(mockAPI, nil)
	defer r.Close()

	postID := uuid.New()
	r.Seed(domain.PostKindTransport, postID, false, 10)

	submitted := make(chan struct{})
	mockAPI.On("React", mock.Anything, domain.PostKindTransport, postID).
		Run(func(mock.Arguments) { close(submitted) }).Return(nil)

	// Five rapid toggles inside the window: liked, unliked, liked,
	// unliked, liked
	var state domain.ReactionState
	for i := 0; i < 5; i++ {
		var err error
		state, err = r.Toggle(domain.PostKindTransport, postID)
		assert.NoError(t, err)
	}
	assert.True(t, state.IsLikedByCurrentUser)
	assert.Equal(t, 11, state.Count)

	waitSubmit(t, submitted)
	time.Sleep(2 * testWindow)

	// One call reflecting the final state, not five
	mockAPI.AssertNumberOfCalls(t, "React", 1)
	assert.Equal(t, state, r.State(domain.PostKindTransport, postID))
}

func TestDoubleTapLikesOnceWithSingleSubmit(t *testing.T) {
	mockAPI := new(MockReactionAPI)
	r := newTestReconciler(mockAPI, nil)
	defer r.Close()

	postID := uuid.New()
	r.Seed(domain.PostKindReview, postID, false, 4)

	submitted := make(chan struct{})
	mockAPI.On("React", mock.Anything, domain.PostKindReview, postID).
		Run(func(mock.Arguments) { close(submitted) }).Return(nil)

	// Both taps of the gesture land within the window
	first, err := r.Like(domain.PostKindReview, postID)
	assert.NoError(t, err)
	assert.True(t, first.IsLikedByCurrentUser)
	assert.Equal(t, 5, first.Count)

	second, err := r.Like(domain.PostKindReview, postID)
	assert.NoError(t, err)
	assert.True(t, second.IsLikedByCurrentUser)
	assert.Equal(t, 5, second.Count)

	waitSubmit(t, submitted)
	time.Sleep(2 * testWindow)
	mockAPI.AssertNumberOfCalls(t, "React", 1)
	assert.Equal(t, 5, r.State(domain.PostKindReview, postID).Count)
}

func TestSubmitFailureKeepsOptimisticState(t *testing.T) {
	mockAPI := new(MockReactionAPI)
	notified := make(chan string, 1)
	r := newTestReconciler(mockAPI, notify.Func(func(level notify.Level, message string) {
		notified <- message
	}))
	defer r.Close()

	postID := uuid.New()
	r.Seed(domain.PostKindCargo, postID, false, 7)

	submitted := make(chan struct{})
	mockAPI.On("React", mock.Anything, domain.PostKindCargo, postID).
		Run(func(mock.Arguments) { close(submitted) }).
		Return(errors.New(errors.ErrCodeNetwork, "offline"))

	state, err := r.Toggle(domain.PostKindCargo, postID)
	assert.NoError(t, err)
	assert.Equal(t, 8, state.Count)

	waitSubmit(t, submitted)

	select {
	case message := <-notified:
		assert.Contains(t, message, "Reaction")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure notification")
	}

	// No rollback: the toggle stays applied
	assert.Equal(t, state, r.State(domain.PostKindCargo, postID))
}

func TestSeedIgnoredWhileToggleInFlight(t *testing.T) {
	mockAPI := new(MockReactionAPI)
	r := newTestReconciler(mockAPI, nil)
	defer r.Close()

	postID := uuid.New()
	r.Seed(domain.PostKindCargo, postID, false, 2)

	submitted := make(chan struct{})
	mockAPI.On("React", mock.Anything, domain.PostKindCargo, postID).
		Run(func(mock.Arguments) { close(submitted) }).Return(nil)

	state, err := r.Toggle(domain.PostKindCargo, postID)
	assert.NoError(t, err)
	assert.Equal(t, 3, state.Count)

	// A stale authoritative snapshot arriving mid-flight must not clobber
	// the optimistic value
	r.Seed(domain.PostKindCargo, postID, false, 2)
	assert.Equal(t, state, r.State(domain.PostKindCargo, postID))

	waitSubmit(t, submitted)
	time.Sleep(2 * testWindow)

	// Settled: snapshots apply again
	r.Seed(domain.PostKindCargo, postID, true, 9)
	assert.Equal(t, 9, r.State(domain.PostKindCargo, postID).Count)
}

func TestToggleRequiresAuthenticatedUser(t *testing.T) {
	mockAPI := new(MockReactionAPI)
	r := NewReconciler(mockAPI, testWindow, notify.Func(func(notify.Level, string) {}), uuid.Nil)
	defer r.Close()

	_, err := r.Toggle(domain.PostKindCargo, uuid.New())
	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))
	mockAPI.AssertNotCalled(t, "React", mock.Anything, mock.Anything, mock.Anything)
}

func TestCloseCancelsPendingSubmits(t *testing.T) {
	mockAPI := new(MockReactionAPI)
	r := newTestReconciler(mockAPI, nil)

	postID := uuid.New()
	_, err := r.Toggle(domain.PostKindCargo, postID)
	assert.NoError(t, err)

	r.Close()
	time.Sleep(2 * testWindow)

	mockAPI.AssertNotCalled(t, "React", mock.Anything, mock.Anything, mock.Anything)
}

func TestStateDefaultsToZero(t *testing.T) {
	r := newTestReconciler(new(MockReactionAPI), nil)
	defer r.Close()

	state := r.State(domain.PostKindReview, uuid.New())
	assert.False(t, state.IsLikedByCurrentUser)
	assert.Equal(t, 0, state.Count)
}
