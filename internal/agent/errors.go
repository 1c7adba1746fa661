// internal/agent/errors.go
package agent

import "errors"

// AbortReason explains why a running plan was discarded. Aborts are ordinary state
// transitions, not errors: the agent releases what it holds and replans.
type AbortReason string

const (
	ReasonAdmissionFailed          AbortReason = "ADMISSION_FAILED"
	ReasonNoTarget                 AbortReason = "NO_TARGET"
	ReasonUnreachable              AbortReason = "UNREACHABLE"
	ReasonInTransitInvalid         AbortReason = "IN_TRANSIT_INVALID"
	ReasonArrivalReservationFailed AbortReason = "ARRIVAL_RESERVATION_FAILED"
	ReasonPostPerformFailed        AbortReason = "POST_PERFORM_FAILED"
	ReasonGoalRemoved              AbortReason = "GOAL_REMOVED"
	ReasonExternal                 AbortReason = "EXTERNAL"
)

var (
	errNilWorld     = errors.New("agent requires a world")
	errNilNavigator = errors.New("agent requires a navigator")
)
