// Package call implements the per-call session state machine:
// Idle → Requesting|Ringing → Connecting → Connected → Ended, with the
// terminal call log status derived from the state held before ending.
package call

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freightlink-client/internal/domain"
	"freightlink-client/internal/media"
	"freightlink-client/internal/notify"
	"freightlink-client/internal/signaling"
	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/errors"
	"freightlink-client/pkg/logger"
	"freightlink-client/pkg/metrics"
)

// CallLogAPI mutates the durable call log. Satisfied by api.CallLogClient.
type CallLogAPI interface {
	Create(ctx context.Context, receiverID uuid.UUID, callType domain.MediaKind) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CallLogStatus) error
	Finalize(ctx context.Context, id uuid.UUID, outcome domain.CallOutcome) error
}

// Dialer opens an outbound signaling call. Satisfied by signaling.Identity.
type Dialer interface {
	Dial(ctx context.Context, peerID uuid.UUID, kind domain.MediaKind, callLogID uuid.UUID) (signaling.Call, error)
}

// endCause distinguishes the paths into Ended
type endCause int

const (
	endCauseLocal endCause = iota
	endCauseDecline
	endCauseRemoteClosed
	endCauseRemoteError
	endCauseMediaFailure
)

// Session is one call attempt. Owned exclusively by the screen that
// created it; all transitions are serialized behind its mutex.
type Session struct {
	mu sync.Mutex

	state     domain.CallState
	direction domain.CallDirection
	kind      domain.MediaKind
	peerID    uuid.UUID
	callLogID uuid.UUID

	connectedAt time.Time
	elapsed     int

	local   media.Handle
	remote  media.RemoteStream
	sigCall signaling.Call

	tickStop chan struct{}

	onState func(domain.CallState)
	onTick  func(seconds int)

	logs          CallLogAPI
	mediaProvider media.Provider
	notifier      notify.Notifier
	coordinator   *Coordinator

	now func() time.Time
}

func newSession(co *Coordinator, direction domain.CallDirection, kind domain.MediaKind, peerID uuid.UUID) *Session {
	return &Session{
		state:         domain.CallStateIdle,
		direction:     direction,
		kind:          kind,
		peerID:        peerID,
		logs:          co.logs,
		mediaProvider: co.mediaProvider,
		notifier:      co.notifier,
		coordinator:   co,
		now:           time.Now,
	}
}

// State returns the current lifecycle state
func (s *Session) State() domain.CallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Direction returns who initiated the call
func (s *Session) Direction() domain.CallDirection { return s.direction }

// Kind returns the media profile
func (s *Session) Kind() domain.MediaKind { return s.kind }

// PeerID returns the other party
func (s *Session) PeerID() uuid.UUID { return s.peerID }

// CallLogID returns the remote call log record id, or uuid.Nil when the
// record does not exist yet
func (s *Session) CallLogID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callLogID
}

// Elapsed returns the connected seconds counted so far
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// OnStateChange installs the state observer
func (s *Session) OnStateChange(handler func(domain.CallState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = handler
}

// OnTick installs the per-second duration observer
func (s *Session) OnTick(handler func(seconds int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = handler
}

// transitionLocked moves the state machine, rejecting illegal moves.
// Callers hold s.mu.
func (s *Session) transitionLocked(to domain.CallState) error {
	if !canTransition(s.state, to) {
		return errors.New(errors.ErrCodeCallState,
			fmt.Sprintf("cannot transition call from %s to %s", s.state, to))
	}
	s.state = to
	return nil
}

// notifyState fires the state observer outside the lock
func (s *Session) notifyState(state domain.CallState) {
	s.mu.Lock()
	handler := s.onState
	s.mu.Unlock()
	if handler != nil {
		handler(state)
	}
}

// startOutgoing drives the outgoing flow: create the call log record,
// enter Requesting, acquire media, dial, enter Connecting.
func (s *Session) startOutgoing(ctx context.Context, dialer Dialer) error {
	logID, err := s.logs.Create(ctx, s.peerID, s.kind)
	if err != nil {
		s.endSession(endCauseLocal)
		return errors.Wrap(errors.ErrCodeRemote, "failed to create call log record", err)
	}

	s.mu.Lock()
	s.callLogID = logID
	if err := s.transitionLocked(domain.CallStateRequesting); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.notifyState(domain.CallStateRequesting)
	metrics.CallsStartedTotal.WithLabelValues(string(s.direction), string(s.kind)).Inc()

	local, err := s.mediaProvider.Acquire(ctx, s.kind)
	if err != nil {
		metrics.MediaAcquireFailuresTotal.Inc()
		s.notifier.Notify(notify.LevelError, "Could not access microphone or camera")
		// No signaling is attempted and the log record stays at
		// "connecting"; only local cleanup happens.
		s.endSession(endCauseMediaFailure)
		return errors.Wrap(errors.ErrCodeMedia, "failed to acquire local media", err)
	}

	sigCall, err := dialer.Dial(ctx, s.peerID, s.kind, logID)
	if err != nil {
		local.Stop()
		s.endSession(endCauseLocal)
		return errors.Wrap(errors.ErrCodeSignaling, "failed to dial peer", err)
	}

	s.mu.Lock()
	if err := s.transitionLocked(domain.CallStateConnecting); err != nil {
		// The session ended while media or dialing was in flight. The
		// handle and the dialed call never reached the session state, so
		// teardown cannot see them; release them here.
		s.mu.Unlock()
		local.Stop()
		if hangupErr := sigCall.Hangup(); hangupErr != nil {
			logger.Debug("failed to send hangup", zap.Error(hangupErr))
		}
		return err
	}
	s.local = local
	s.sigCall = sigCall
	s.mu.Unlock()
	s.notifyState(domain.CallStateConnecting)

	s.bindSignaling(sigCall)
	return nil
}

// startIncoming binds an offered call and enters Ringing
func (s *Session) startIncoming(inc signaling.IncomingCall) error {
	s.mu.Lock()
	s.sigCall = inc.Call
	s.callLogID = inc.CallLogID
	if err := s.transitionLocked(domain.CallStateRinging); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.notifyState(domain.CallStateRinging)
	metrics.CallsStartedTotal.WithLabelValues(string(s.direction), string(s.kind)).Inc()

	s.bindSignaling(inc.Call)
	return nil
}

// Answer accepts an incoming call: acquire media first, then bind the
// answer to the signaling exchange
func (s *Session) Answer(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.CallStateRinging {
		state := s.state
		s.mu.Unlock()
		return errors.New(errors.ErrCodeCallState,
			fmt.Sprintf("cannot answer a call in state %s", state))
	}
	sigCall := s.sigCall
	s.mu.Unlock()

	local, err := s.mediaProvider.Acquire(ctx, s.kind)
	if err != nil {
		metrics.MediaAcquireFailuresTotal.Inc()
		s.notifier.Notify(notify.LevelError, "Could not access microphone or camera")
		s.endSession(endCauseMediaFailure)
		return errors.Wrap(errors.ErrCodeMedia, "failed to acquire local media", err)
	}

	if err := sigCall.Answer(local); err != nil {
		local.Stop()
		s.endSession(endCauseLocal)
		return errors.Wrap(errors.ErrCodeSignaling, "failed to answer call", err)
	}

	s.mu.Lock()
	if err := s.transitionLocked(domain.CallStateConnecting); err != nil {
		// The session ended while media was in flight (remote close during
		// the permission prompt); teardown already ran without seeing the
		// handle, so it must be released here
		s.mu.Unlock()
		local.Stop()
		return err
	}
	s.local = local
	logID := s.callLogID
	s.mu.Unlock()
	s.notifyState(domain.CallStateConnecting)

	// Best-effort: the answered mark never blocks the local transition
	if logID != uuid.Nil {
		go s.updateLogStatus(logID, domain.CallLogAnswered)
	}
	return nil
}

// Decline rejects a ringing incoming call. This is the only path that
// persists a "declined" outcome; every other unanswered teardown counts
// as missed.
func (s *Session) Decline() error {
	s.mu.Lock()
	if s.state != domain.CallStateRinging {
		state := s.state
		s.mu.Unlock()
		return errors.New(errors.ErrCodeCallState,
			fmt.Sprintf("cannot decline a call in state %s", state))
	}
	s.mu.Unlock()

	s.endSession(endCauseDecline)
	return nil
}

// HangUp ends the call from the local side. Also the teardown path for
// navigation away from the call screen.
func (s *Session) HangUp() {
	s.endSession(endCauseLocal)
}

// SetMuted toggles the local audio track. Local-only; no renegotiation.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	local := s.local
	sigCall := s.sigCall
	s.mu.Unlock()

	if local != nil {
		local.EnableAudio(!muted)
	}
	if sigCall != nil {
		if err := sigCall.NotifyMute(domain.MediaKindAudio, muted); err != nil {
			logger.Debug("failed to notify peer of mute toggle", zap.Error(err))
		}
	}
}

// SetCameraOff toggles the local video track on video calls
func (s *Session) SetCameraOff(off bool) {
	if s.kind != domain.MediaKindVideo {
		return
	}

	s.mu.Lock()
	local := s.local
	sigCall := s.sigCall
	s.mu.Unlock()

	if local != nil {
		local.EnableVideo(!off)
	}
	if sigCall != nil {
		if err := sigCall.NotifyMute(domain.MediaKindVideo, off); err != nil {
			logger.Debug("failed to notify peer of camera toggle", zap.Error(err))
		}
	}
}

// bindSignaling registers this session's handlers on the borrowed call
func (s *Session) bindSignaling(sigCall signaling.Call) {
	sigCall.OnRemoteStream(s.handleRemoteStream)
	sigCall.OnClose(func() {
		s.endSession(endCauseRemoteClosed)
	})
	sigCall.OnError(func(err error) {
		logger.Warn("signaling error during call",
			zap.String("peer_id", s.peerID.String()),
			zap.Error(err))
		s.notifier.Notify(notify.LevelError, "Call failed")
		s.endSession(endCauseRemoteError)
	})
}

// handleRemoteStream is the only transition into Connected
func (s *Session) handleRemoteStream(stream media.RemoteStream) {
	s.mu.Lock()
	if s.state != domain.CallStateConnecting {
		// Late stream after teardown; release it and walk away
		s.mu.Unlock()
		stream.Stop()
		return
	}
	s.remote = stream
	if err := s.transitionLocked(domain.CallStateConnected); err != nil {
		s.mu.Unlock()
		stream.Stop()
		return
	}
	s.connectedAt = s.now()
	s.elapsed = 0
	s.tickStop = make(chan struct{})
	go s.runTicker(s.tickStop)
	s.mu.Unlock()

	s.notifyState(domain.CallStateConnected)
}

// runTicker counts connected seconds, one tick per second
func (s *Session) runTicker(stop chan struct{}) {
	ticker := time.NewTicker(constants.CallTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.state != domain.CallStateConnected {
				s.mu.Unlock()
				return
			}
			s.elapsed++
			seconds := s.elapsed
			handler := s.onTick
			s.mu.Unlock()
			if handler != nil {
				handler(seconds)
			}
		case <-stop:
			return
		}
	}
}

// endSession is the single path into Ended. Idempotent; releases media
// handles and timers on every call, then persists the outcome best-effort.
func (s *Session) endSession(cause endCause) {
	s.mu.Lock()
	if s.state == domain.CallStateEnded {
		s.mu.Unlock()
		return
	}
	prior := s.state
	s.state = domain.CallStateEnded

	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}

	elapsed := s.elapsed
	if prior == domain.CallStateConnected {
		elapsed = int(s.now().Sub(s.connectedAt) / time.Second)
	}

	local := s.local
	remote := s.remote
	sigCall := s.sigCall
	logID := s.callLogID
	s.local = nil
	s.remote = nil
	s.mu.Unlock()

	if local != nil {
		local.Stop()
	}
	if remote != nil {
		remote.Stop()
	}

	if sigCall != nil {
		switch cause {
		case endCauseLocal:
			if err := sigCall.Hangup(); err != nil {
				logger.Debug("failed to send hangup", zap.Error(err))
			}
		case endCauseDecline:
			if err := sigCall.Reject(); err != nil {
				logger.Debug("failed to send reject", zap.Error(err))
			}
		}
	}

	outcome := DeriveOutcome(prior, s.direction, cause == endCauseDecline, elapsed, s.now())
	metrics.CallOutcomesTotal.WithLabelValues(string(outcome.Status)).Inc()
	if outcome.Status == domain.CallLogCompleted {
		metrics.CallDurationSeconds.Observe(float64(outcome.Duration))
	}

	// Media denial aborts before any log mutation past the initial
	// "connecting" record
	if logID != uuid.Nil && cause != endCauseMediaFailure {
		go s.finalizeLog(logID, outcome)
	}

	s.coordinator.release(s)
	s.notifyState(domain.CallStateEnded)

	logger.Info("call session ended",
		zap.String("peer_id", s.peerID.String()),
		zap.String("prior_state", string(prior)),
		zap.String("status", string(outcome.Status)),
		zap.Int("duration", outcome.Duration))
}

// finalizeLog persists the terminal outcome. Failure is logged and
// otherwise ignored; session cleanup is never gated on the remote log.
func (s *Session) finalizeLog(logID uuid.UUID, outcome domain.CallOutcome) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()

	if err := s.logs.Finalize(ctx, logID, outcome); err != nil {
		metrics.CallLogUpdateFailuresTotal.Inc()
		logger.Warn("failed to persist call outcome",
			zap.String("call_log_id", logID.String()),
			zap.String("status", string(outcome.Status)),
			zap.Error(err))
	}
}

// updateLogStatus pushes a non-terminal status, best-effort
func (s *Session) updateLogStatus(logID uuid.UUID, status domain.CallLogStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()

	if err := s.logs.UpdateStatus(ctx, logID, status); err != nil {
		metrics.CallLogUpdateFailuresTotal.Inc()
		logger.Warn("failed to update call log status",
			zap.String("call_log_id", logID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
