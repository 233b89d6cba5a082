// Package signaling implements the client side of the call signaling
// exchange: one WebSocket identity per logged-in user, inbound call offers,
// and per-call control frames.
package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"freightlink-client/internal/domain"
	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/errors"
	"freightlink-client/pkg/logger"
)

// Frame types exchanged with the signaling service
const (
	FrameTypeOffer     = "offer"
	FrameTypeAnswer    = "answer"
	FrameTypeReject    = "reject"
	FrameTypeLeave     = "leave"
	FrameTypeConnected = "connected"
	FrameTypeError     = "error"
	FrameTypeMuteAudio = "mute_audio"
	FrameTypeMuteVideo = "mute_video"
)

// Frame is a signaling message on the wire
type Frame struct {
	Type      string           `json:"type"`
	CallID    uuid.UUID        `json:"call_id"`
	SenderID  uuid.UUID        `json:"sender_id,omitempty"`
	TargetID  uuid.UUID        `json:"target_id,omitempty"`
	CallType  domain.MediaKind `json:"call_type,omitempty"`
	CallLogID uuid.UUID        `json:"call_log_id,omitempty"`
	Muted     bool             `json:"muted,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Offer is an inbound call not yet resolved to a caller profile
type Offer struct {
	Call      Call
	CallerID  uuid.UUID
	Kind      domain.MediaKind
	CallLogID uuid.UUID
}

// Service establishes signaling connections
type Service interface {
	Connect(ctx context.Context, userID uuid.UUID) (Conn, error)
}

// Conn is one live signaling connection for a user
type Conn interface {
	SetOfferHandler(handler func(*Offer))
	Dial(ctx context.Context, peerID uuid.UUID, kind domain.MediaKind, callLogID uuid.UUID) (Call, error)
	Close() error
}

// WSService dials the signaling service over WebSocket
type WSService struct {
	url              string
	token            string
	pingInterval     time.Duration
	handshakeTimeout time.Duration
}

// NewWSService creates a WebSocket signaling service client
func NewWSService(url, token string, pingInterval, handshakeTimeout time.Duration) *WSService {
	return &WSService{
		url:              url,
		token:            token,
		pingInterval:     pingInterval,
		handshakeTimeout: handshakeTimeout,
	}
}

// Connect dials the signaling endpoint for the given user
func (s *WSService) Connect(ctx context.Context, userID uuid.UUID) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.handshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, _, err := dialer.DialContext(ctx, s.url+"?user_id="+userID.String(), header)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignaling, "failed to connect to signaling service", err)
	}

	wc := &wsConn{
		conn:         conn,
		userID:       userID,
		pingInterval: s.pingInterval,
		calls:        make(map[uuid.UUID]*wsCall),
		send:         make(chan []byte, 256),
		done:         make(chan struct{}),
	}

	go wc.writePump()
	go wc.readPump()

	return wc, nil
}

// wsConn is the live WebSocket connection
type wsConn struct {
	conn         *websocket.Conn
	userID       uuid.UUID
	pingInterval time.Duration

	mu           sync.Mutex
	calls        map[uuid.UUID]*wsCall
	offerHandler func(*Offer)
	closed       bool

	send chan []byte
	done chan struct{}
}

// SetOfferHandler installs the inbound offer callback
func (c *wsConn) SetOfferHandler(handler func(*Offer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offerHandler = handler
}

// Dial opens an outbound call toward a peer
func (c *wsConn) Dial(ctx context.Context, peerID uuid.UUID, kind domain.MediaKind, callLogID uuid.UUID) (Call, error) {
	call := &wsCall{
		conn:      c,
		id:        uuid.New(),
		peerID:    peerID,
		kind:      kind,
		callLogID: callLogID,
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New(errors.ErrCodeSignaling, "signaling connection is closed")
	}
	c.calls[call.id] = call
	c.mu.Unlock()

	if err := c.writeFrame(&Frame{
		Type:      FrameTypeOffer,
		CallID:    call.id,
		TargetID:  peerID,
		CallType:  kind,
		CallLogID: callLogID,
	}); err != nil {
		c.removeCall(call.id)
		return nil, err
	}

	return call, nil
}

// Close tears the connection down and closes every registered call
func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.conn.Close()
}

// writeFrame queues a frame for the write pump
func (c *wsConn) writeFrame(frame *Frame) error {
	frame.SenderID = c.userID
	frame.Timestamp = time.Now()

	payload, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode signaling frame", err)
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errors.New(errors.ErrCodeSignaling, "signaling connection is closed")
	}
}

// readPump reads frames from the WebSocket and routes them
func (c *wsConn) readPump() {
	defer func() {
		c.closeAllCalls()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.pingInterval * 2))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pingInterval * 2))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("signaling connection closed",
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			logger.Warn("invalid signaling frame",
				zap.String("user_id", c.userID.String()),
				zap.Error(err))
			continue
		}

		c.route(&frame)
	}
}

// writePump writes queued frames and keeps the connection alive
func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// route dispatches one inbound frame
func (c *wsConn) route(frame *Frame) {
	switch frame.Type {
	case FrameTypeOffer:
		call := &wsCall{
			conn:      c,
			id:        frame.CallID,
			peerID:    frame.SenderID,
			kind:      frame.CallType,
			callLogID: frame.CallLogID,
		}

		c.mu.Lock()
		c.calls[call.id] = call
		handler := c.offerHandler
		c.mu.Unlock()

		if handler == nil {
			logger.Warn("inbound offer with no handler installed",
				zap.String("call_id", frame.CallID.String()))
			call.Reject()
			return
		}
		handler(&Offer{
			Call:      call,
			CallerID:  frame.SenderID,
			Kind:      frame.CallType,
			CallLogID: frame.CallLogID,
		})

	case FrameTypeConnected:
		if call := c.callByID(frame.CallID); call != nil {
			call.fireRemoteStream(&remoteTrack{})
		}

	case FrameTypeLeave, FrameTypeReject:
		if call := c.callByID(frame.CallID); call != nil {
			c.removeCall(frame.CallID)
			call.fireClose()
		}

	case FrameTypeError:
		if call := c.callByID(frame.CallID); call != nil {
			c.removeCall(frame.CallID)
			call.fireError(errors.New(errors.ErrCodeSignaling, frame.Reason))
		}

	case FrameTypeMuteAudio, FrameTypeMuteVideo:
		// Informational only; the peer's tracks are its own business

	default:
		logger.Debug("unhandled signaling frame type", zap.String("type", frame.Type))
	}
}

// callByID looks a call up without removing it
func (c *wsConn) callByID(id uuid.UUID) *wsCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

// removeCall unregisters a call
func (c *wsConn) removeCall(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.calls, id)
}

// closeAllCalls fires close on every registered call when the link drops
func (c *wsConn) closeAllCalls() {
	c.mu.Lock()
	pending := make([]*wsCall, 0, len(c.calls))
	for _, call := range c.calls {
		pending = append(pending, call)
	}
	c.calls = make(map[uuid.UUID]*wsCall)
	c.mu.Unlock()

	for _, call := range pending {
		call.fireClose()
	}
}
