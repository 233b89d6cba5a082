package signaling

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freightlink-client/internal/domain"
	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/logger"
	"freightlink-client/pkg/metrics"
)

// ProfileResolver looks up the human-readable profile behind a user id.
// Satisfied by api.ProfileClient.
type ProfileResolver interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
}

// IncomingCall is an inbound offer resolved to a caller profile,
// ready to be surfaced to the user
type IncomingCall struct {
	Call      Call
	Caller    domain.Profile
	Kind      domain.MediaKind
	CallLogID uuid.UUID
}

// Identity is one live signaling connection keyed by the authenticated
// user. Call sessions borrow calls from it; they never own it.
type Identity struct {
	UserID uuid.UUID

	conn Conn

	mu        sync.Mutex
	destroyed bool
}

// Dial opens an outbound call through this identity
func (i *Identity) Dial(ctx context.Context, peerID uuid.UUID, kind domain.MediaKind, callLogID uuid.UUID) (Call, error) {
	return i.conn.Dial(ctx, peerID, kind, callLogID)
}

// Destroy tears the connection down. Safe to call more than once.
func (i *Identity) Destroy() {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return
	}
	i.destroyed = true
	i.mu.Unlock()

	if err := i.conn.Close(); err != nil {
		logger.Warn("failed to close signaling connection",
			zap.String("user_id", i.UserID.String()),
			zap.Error(err))
	}
	logger.Info("signaling identity destroyed", zap.String("user_id", i.UserID.String()))
}

// IsDestroyed reports whether the identity was torn down
func (i *Identity) IsDestroyed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroyed
}

// Manager owns the process-wide signaling identity. At most one live
// connection exists; acquiring for a different user destroys the prior
// identity first.
type Manager struct {
	service  Service
	profiles ProfileResolver

	mu       sync.Mutex
	identity *Identity
	onOffer  func(IncomingCall)
}

// NewManager creates a signaling identity manager
func NewManager(service Service, profiles ProfileResolver) *Manager {
	return &Manager{
		service:  service,
		profiles: profiles,
	}
}

// SetOfferHandler installs the callback invoked when a resolved inbound
// call is ready to be presented
func (m *Manager) SetOfferHandler(handler func(IncomingCall)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOffer = handler
}

// Acquire returns the identity for userID, connecting if needed.
// Acquiring for the same user is idempotent; acquiring for a different
// user destroys the existing identity first.
func (m *Manager) Acquire(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identity != nil {
		if m.identity.UserID == userID && !m.identity.IsDestroyed() {
			return m.identity, nil
		}
		m.identity.Destroy()
		m.identity = nil
	}

	conn, err := m.service.Connect(ctx, userID)
	if err != nil {
		metrics.SignalingConnectsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.SignalingConnectsTotal.WithLabelValues("success").Inc()

	identity := &Identity{UserID: userID, conn: conn}
	conn.SetOfferHandler(m.handleOffer)
	m.identity = identity

	logger.Info("signaling identity established", zap.String("user_id", userID.String()))
	return identity, nil
}

// Release destroys the current identity if any. No-op when none exists.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identity == nil {
		return
	}
	m.identity.Destroy()
	m.identity = nil
}

// handleOffer is invoked on the connection's read loop; it hands the
// offer to its own goroutine so the profile lookup never stalls frame
// routing or the socket's ping/pong deadlines
func (m *Manager) handleOffer(offer *Offer) {
	go m.resolveOffer(offer)
}

// resolveOffer resolves the caller profile before surfacing an inbound
// call. Offers whose caller cannot be resolved are rejected outright
// rather than presented with missing identity.
func (m *Manager) resolveOffer(offer *Offer) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()

	profile, err := m.profiles.Get(ctx, offer.CallerID)
	if err != nil {
		metrics.SignalingOffersTotal.WithLabelValues("rejected").Inc()
		logger.Warn("rejecting inbound call, caller profile lookup failed",
			zap.String("caller_id", offer.CallerID.String()),
			zap.Error(err))
		if rejectErr := offer.Call.Reject(); rejectErr != nil {
			logger.Warn("failed to reject inbound call", zap.Error(rejectErr))
		}
		return
	}

	m.mu.Lock()
	handler := m.onOffer
	m.mu.Unlock()

	if handler == nil {
		metrics.SignalingOffersTotal.WithLabelValues("rejected").Inc()
		logger.Warn("no offer handler installed, rejecting inbound call",
			zap.String("caller_id", offer.CallerID.String()))
		offer.Call.Reject()
		return
	}

	metrics.SignalingOffersTotal.WithLabelValues("presented").Inc()
	handler(IncomingCall{
		Call:      offer.Call,
		Caller:    *profile,
		Kind:      offer.Kind,
		CallLogID: offer.CallLogID,
	})
}
