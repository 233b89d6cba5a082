// Package reaction implements the debounced, idempotent-intent like
// toggle shared by all post kinds.
package reaction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freightlink-client/internal/domain"
	"freightlink-client/internal/notify"
	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/errors"
	"freightlink-client/pkg/logger"
	"freightlink-client/pkg/metrics"
)

// API submits a reaction toggle. Satisfied by api.ReactionClient.
type API interface {
	React(ctx context.Context, kind domain.PostKind, postID uuid.UUID) error
}

// postState tracks one post's optimistic reaction
type postState struct {
	state domain.ReactionState

	// interacted suppresses re-derivation from authoritative snapshots
	// until the in-flight submit settles
	interacted bool

	timer *time.Timer
	gen   uint64
}

// Reconciler applies reaction toggles optimistically and collapses rapid
// toggles into a single debounced network call reflecting the final state.
type Reconciler struct {
	api      API
	window   time.Duration
	notifier notify.Notifier
	userID   uuid.UUID

	mu    sync.Mutex
	posts map[string]*postState
}

// NewReconciler creates a reconciler for the authenticated user.
// userID must not be nil; toggling requires an authenticated user.
func NewReconciler(api API, window time.Duration, notifier notify.Notifier, userID uuid.UUID) *Reconciler {
	return &Reconciler{
		api:      api,
		window:   window,
		notifier: notifier,
		userID:   userID,
		posts:    make(map[string]*postState),
	}
}

func postKey(kind domain.PostKind, postID uuid.UUID) string {
	return string(kind) + ":" + postID.String()
}

// Seed installs the authoritative reaction snapshot for a post the user
// has not interacted with yet. Ignored while a toggle is unsettled; a
// stale server snapshot must not overwrite a fresher optimistic value.
func (r *Reconciler) Seed(kind domain.PostKind, postID uuid.UUID, liked bool, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps := r.ensureLocked(kind, postID)
	if ps.interacted {
		return
	}
	ps.state = domain.ReactionState{IsLikedByCurrentUser: liked, Count: count}
}

// State returns the current (optimistic) reaction state for a post
func (r *Reconciler) State(kind domain.PostKind, postID uuid.UUID) domain.ReactionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureLocked(kind, postID).state
}

// Toggle flips the like state immediately and schedules a debounced
// submit. A toggle within the window cancels the prior pending submit, so
// N rapid toggles produce at most one network call reflecting the Nth
// state. The optimistic state is never rolled back on failure.
func (r *Reconciler) Toggle(kind domain.PostKind, postID uuid.UUID) (domain.ReactionState, error) {
	if r.userID == uuid.Nil {
		return domain.ReactionState{}, errors.New(errors.ErrCodeUnauthorized, "reaction requires an authenticated user")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ps := r.ensureLocked(kind, postID)
	r.flipLocked(kind, postID, ps)
	return ps.state, nil
}

// Like applies the double-tap gesture: it sets the liked state and never
// unlikes. The second tap of the same gesture is a no-op, so a double-tap
// on an unliked post settles liked with exactly one submit.
func (r *Reconciler) Like(kind domain.PostKind, postID uuid.UUID) (domain.ReactionState, error) {
	if r.userID == uuid.Nil {
		return domain.ReactionState{}, errors.New(errors.ErrCodeUnauthorized, "reaction requires an authenticated user")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ps := r.ensureLocked(kind, postID)
	if ps.state.IsLikedByCurrentUser {
		return ps.state, nil
	}
	r.flipLocked(kind, postID, ps)
	return ps.state, nil
}

// flipLocked applies one optimistic flip and (re)schedules the debounced
// submit. Callers hold r.mu.
func (r *Reconciler) flipLocked(kind domain.PostKind, postID uuid.UUID, ps *postState) {
	ps.state.IsLikedByCurrentUser = !ps.state.IsLikedByCurrentUser
	if ps.state.IsLikedByCurrentUser {
		ps.state.Count++
	} else {
		ps.state.Count--
	}
	ps.interacted = true
	metrics.ReactionTogglesTotal.Inc()

	if ps.timer != nil {
		ps.timer.Stop()
		metrics.ReactionDebounceCancelsTotal.Inc()
	}

	ps.gen++
	gen := ps.gen
	ps.timer = time.AfterFunc(r.window, func() {
		r.submit(kind, postID, gen)
	})
}

// submit sends the settled toggle to the backend. A stale generation
// means a newer toggle superseded this one; it does nothing.
func (r *Reconciler) submit(kind domain.PostKind, postID uuid.UUID, gen uint64) {
	r.mu.Lock()
	ps := r.ensureLocked(kind, postID)
	if ps.gen != gen {
		r.mu.Unlock()
		return
	}
	ps.timer = nil
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()

	err := r.api.React(ctx, kind, postID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if ps.gen == gen {
		// No newer toggle arrived while in flight; authoritative
		// snapshots may drive the state again
		ps.interacted = false
	}

	if err != nil {
		metrics.ReactionSubmitsTotal.WithLabelValues("failure").Inc()
		logger.Warn("reaction submit failed, keeping optimistic state",
			zap.String("post_kind", string(kind)),
			zap.String("post_id", postID.String()),
			zap.Error(err))
		// Deliberately no rollback: reverting would contradict what the
		// user just saw, and a stale failure is indistinguishable from a
		// transient one
		r.notifier.Notify(notify.LevelError, "Reaction could not be saved")
		return
	}
	metrics.ReactionSubmitsTotal.WithLabelValues("success").Inc()
}

// Close cancels every pending submit. Called on logout.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ps := range r.posts {
		if ps.timer != nil {
			ps.timer.Stop()
			ps.timer = nil
		}
		ps.gen++
	}
}

// ensureLocked returns the state for a post, creating it on first touch.
// Callers hold r.mu.
func (r *Reconciler) ensureLocked(kind domain.PostKind, postID uuid.UUID) *postState {
	key := postKey(kind, postID)
	ps, ok := r.posts[key]
	if !ok {
		ps = &postState{}
		r.posts[key] = ps
	}
	return ps
}
