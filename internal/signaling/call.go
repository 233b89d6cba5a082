package signaling

import (
	"sync"

	"github.com/google/uuid"

	"freightlink-client/internal/domain"
	"freightlink-client/internal/media"
)

// Call is a borrowed per-call signaling handle. A call session registers
// its own event handlers on it; the underlying identity stays owned by the
// manager.
type Call interface {
	ID() uuid.UUID
	PeerID() uuid.UUID
	Kind() domain.MediaKind
	CallLogID() uuid.UUID

	Answer(local media.Handle) error
	Reject() error
	Hangup() error
	NotifyMute(kind domain.MediaKind, muted bool) error

	OnRemoteStream(handler func(media.RemoteStream))
	OnClose(handler func())
	OnError(handler func(error))
}

// wsCall is a call riding on a wsConn
type wsCall struct {
	conn      *wsConn
	id        uuid.UUID
	peerID    uuid.UUID
	kind      domain.MediaKind
	callLogID uuid.UUID

	mu             sync.Mutex
	local          media.Handle
	onRemoteStream func(media.RemoteStream)
	onClose        func()
	onError        func(error)
	settled        bool
}

func (c *wsCall) ID() uuid.UUID          { return c.id }
func (c *wsCall) PeerID() uuid.UUID      { return c.peerID }
func (c *wsCall) Kind() domain.MediaKind { return c.kind }
func (c *wsCall) CallLogID() uuid.UUID   { return c.callLogID }

// Answer accepts an inbound call, binding the local media handle
func (c *wsCall) Answer(local media.Handle) error {
	c.mu.Lock()
	c.local = local
	c.mu.Unlock()

	return c.conn.writeFrame(&Frame{
		Type:     FrameTypeAnswer,
		CallID:   c.id,
		TargetID: c.peerID,
	})
}

// Reject declines an inbound call
func (c *wsCall) Reject() error {
	c.conn.removeCall(c.id)
	return c.conn.writeFrame(&Frame{
		Type:     FrameTypeReject,
		CallID:   c.id,
		TargetID: c.peerID,
	})
}

// Hangup leaves the call
func (c *wsCall) Hangup() error {
	c.conn.removeCall(c.id)
	return c.conn.writeFrame(&Frame{
		Type:     FrameTypeLeave,
		CallID:   c.id,
		TargetID: c.peerID,
	})
}

// NotifyMute tells the peer a local track was toggled. Purely
// informational; no renegotiation happens.
func (c *wsCall) NotifyMute(kind domain.MediaKind, muted bool) error {
	frameType := FrameTypeMuteAudio
	if kind == domain.MediaKindVideo {
		frameType = FrameTypeMuteVideo
	}
	return c.conn.writeFrame(&Frame{
		Type:     frameType,
		CallID:   c.id,
		TargetID: c.peerID,
		Muted:    muted,
	})
}

// OnRemoteStream installs the remote stream handler
func (c *wsCall) OnRemoteStream(handler func(media.RemoteStream)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRemoteStream = handler
}

// OnClose installs the close handler
func (c *wsCall) OnClose(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = handler
}

// OnError installs the error handler
func (c *wsCall) OnError(handler func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

func (c *wsCall) fireRemoteStream(stream media.RemoteStream) {
	c.mu.Lock()
	handler := c.onRemoteStream
	c.mu.Unlock()
	if handler != nil {
		handler(stream)
	}
}

// fireClose invokes the close handler once
func (c *wsCall) fireClose() {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	handler := c.onClose
	c.mu.Unlock()
	if handler != nil {
		handler()
	}
}

// fireError invokes the error handler once
func (c *wsCall) fireError(err error) {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	handler := c.onError
	c.mu.Unlock()
	if handler != nil {
		handler(err)
	}
}

// remoteTrack is the peer stream handle surfaced to sessions
type remoteTrack struct {
	mu      sync.Mutex
	stopped bool
}

// Stop releases the remote stream
func (t *remoteTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}
