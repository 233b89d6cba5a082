package call

import (
	"time"

	"freightlink-client/internal/domain"
)

// DeriveOutcome computes the terminal call log status from the state the
// session held just before ending.
//
//   - connected sessions complete with their elapsed duration
//   - outgoing sessions that never connected are cancelled
//   - incoming sessions that never connected are declined only when the
//     user explicitly rejected them, otherwise missed
//
// Duration is non-zero only for connected sessions; a connected session
// reports at least one second so a completed call never carries duration 0.
func DeriveOutcome(prior domain.CallState, direction domain.CallDirection, declined bool, elapsedSeconds int, endedAt time.Time) domain.CallOutcome {
	if prior == domain.CallStateConnected {
		if elapsedSeconds < 1 {
			elapsedSeconds = 1
		}
		return domain.CallOutcome{
			Status:   domain.CallLogCompleted,
			Duration: elapsedSeconds,
			EndedAt:  endedAt,
		}
	}

	status := domain.CallLogCancelled
	if direction == domain.CallDirectionIncoming {
		if declined {
			status = domain.CallLogDeclined
		} else {
			status = domain.CallLogMissed
		}
	}

	return domain.CallOutcome{
		Status:   status,
		Duration: 0,
		EndedAt:  endedAt,
	}
}

// validTransitions lists the legal next states per state. Ended is
// reachable from everywhere and handled separately.
var validTransitions = map[domain.CallState]map[domain.CallState]bool{
	domain.CallStateIdle: {
		domain.CallStateRequesting: true,
		domain.CallStateRinging:    true,
	},
	domain.CallStateRequesting: {
		domain.CallStateConnecting: true,
	},
	domain.CallStateRinging: {
		domain.CallStateConnecting: true,
	},
	domain.CallStateConnecting: {
		domain.CallStateConnected: true,
	},
	domain.CallStateConnected: {},
	domain.CallStateEnded:     {},
}

// canTransition reports whether from → to is a legal move
func canTransition(from, to domain.CallState) bool {
	if to == domain.CallStateEnded {
		return from != domain.CallStateEnded
	}
	return validTransitions[from][to]
}
