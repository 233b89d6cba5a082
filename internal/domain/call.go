package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallState is the lifecycle state of a local call session.
// Keep values stable because they are surfaced to the UI layer.
type CallState string

const (
	// CallStateIdle is the state before any call activity
	CallStateIdle CallState = "idle"

	// CallStateRequesting is an outgoing call waiting for the peer,
	// entered once the remote call log record exists
	CallStateRequesting CallState = "requesting"

	// CallStateRinging is an incoming call offered but not yet answered
	CallStateRinging CallState = "ringing"

	// CallStateConnecting means local media is acquired and the session
	// is bound to the signaling exchange
	CallStateConnecting CallState = "connecting"

	// CallStateConnected means a remote media stream has arrived
	CallStateConnected CallState = "connected"

	// CallStateEnded is terminal and reachable from every other state
	CallStateEnded CallState = "ended"
)

// CallDirection distinguishes who initiated the call
type CallDirection string

const (
	CallDirectionIncoming CallDirection = "incoming"
	CallDirectionOutgoing CallDirection = "outgoing"
)

// MediaKind is the media profile of a call
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// CallLogStatus is the authoritative backend status of a call log record
type CallLogStatus string

const (
	CallLogConnecting CallLogStatus = "connecting"
	CallLogAnswered   CallLogStatus = "answered"
	CallLogCompleted  CallLogStatus = "completed"
	CallLogMissed     CallLogStatus = "missed"
	CallLogDeclined   CallLogStatus = "declined"
	CallLogCancelled  CallLogStatus = "cancelled"
)

// CallLogRecord is the durable backend-owned record of a call outcome
type CallLogRecord struct {
	ID         uuid.UUID     `json:"id"`
	ReceiverID uuid.UUID     `json:"receiver_id"`
	CallType   MediaKind     `json:"call_type"`
	Status     CallLogStatus `json:"status"`
	Duration   int           `json:"duration,omitempty"` // in seconds
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
}

// CallOutcome is the locally derived terminal result persisted on end
type CallOutcome struct {
	Status   CallLogStatus
	Duration int // seconds, non-zero only when the session was connected
	EndedAt  time.Time
}
