package call

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"freightlink-client/internal/domain"
	"freightlink-client/internal/media"
	"freightlink-client/internal/notify"
	"freightlink-client/internal/signaling"
	"freightlink-client/pkg/errors"
)

// Coordinator enforces the single-active-session rule and carries the
// collaborators every session needs. Screens create sessions only
// through it.
type Coordinator struct {
	logs          CallLogAPI
	mediaProvider media.Provider
	notifier      notify.Notifier

	mu     sync.Mutex
	active *Session
}

// NewCoordinator creates a call coordinator
func NewCoordinator(logs CallLogAPI, mediaProvider media.Provider, notifier notify.Notifier) *Coordinator {
	return &Coordinator{
		logs:          logs,
		mediaProvider: mediaProvider,
		notifier:      notifier,
	}
}

// StartOutgoing begins an outgoing call toward a peer. Fails with
// ErrCodeSessionActive while another session is live.
func (c *Coordinator) StartOutgoing(ctx context.Context, dialer Dialer, peerID uuid.UUID, kind domain.MediaKind) (*Session, error) {
	session := newSession(c, domain.CallDirectionOutgoing, kind, peerID)
	if err := c.reserve(session); err != nil {
		return nil, err
	}

	if err := session.startOutgoing(ctx, dialer); err != nil {
		return nil, err
	}
	return session, nil
}

// AcceptIncoming binds a resolved inbound offer into a ringing session.
// The caller then answers or declines it.
func (c *Coordinator) AcceptIncoming(inc signaling.IncomingCall) (*Session, error) {
	session := newSession(c, domain.CallDirectionIncoming, inc.Kind, inc.Caller.UserID)
	if err := c.reserve(session); err != nil {
		// Busy: the offer is rejected so the caller is not left ringing
		inc.Call.Reject()
		return nil, err
	}

	if err := session.startIncoming(inc); err != nil {
		c.release(session)
		return nil, err
	}
	return session, nil
}

// Active returns the live session, or nil
func (c *Coordinator) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// reserve claims the single session slot
func (c *Coordinator) reserve(session *Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return errors.New(errors.ErrCodeSessionActive, "another call session is already active")
	}
	c.active = session
	return nil
}

// release frees the slot when a session ends
func (c *Coordinator) release(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == session {
		c.active = nil
	}
}
