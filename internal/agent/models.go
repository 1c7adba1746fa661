// internal/agent/models.go
package agent

import (
	"time"
)

// State is the agent's current phase in its plan/execute cycle.
type State string

const (
	StateIdle        State = "IDLE"        // No plan; the agent plans on its next tick.
	StatePlanning    State = "PLANNING"    // The agent is selecting a goal and searching for a plan.
	StateExecuting   State = "EXECUTING"   // A plan is queued; the next action is admitted on the next tick.
	StateApproaching State = "APPROACHING" // The agent is walking to the current action's target.
	StateCompleting  State = "COMPLETING"  // The agent is at the target, waiting out the action's duration.
)

// EventType categorizes what happened to an agent.
type EventType string

const (
	EventPlanFound       EventType = "PLAN_FOUND"
	EventPlanFailed      EventType = "PLAN_FAILED" // No goal had a feasible plan.
	EventActionStarted   EventType = "ACTION_STARTED"
	EventActionAborted   EventType = "ACTION_ABORTED"
	EventActionCompleted EventType = "ACTION_COMPLETED"
	EventGoalCompleted   EventType = "GOAL_COMPLETED"
)

// Event is one entry of an agent's activity log.
type Event struct {
	AgentID string        `json:"agent_id"`
	Type    EventType     `json:"type"`
	At      time.Duration `json:"at"`               // Simulated time since the agent woke.
	Goal    string        `json:"goal,omitempty"`   // Goal the event relates to.
	Action  string        `json:"action,omitempty"` // Action the event relates to.
	Plan    []string      `json:"plan,omitempty"`   // Planned action names, for EventPlanFound.
	Cost    float64       `json:"cost,omitempty"`
	Reason  AbortReason   `json:"reason,omitempty"`
}

// EventSink receives agent events. Implementations must not call back into the agent.
type EventSink interface {
	Record(Event)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(Event)

// Record calls f(e).
func (f EventSinkFunc) Record(e Event) { f(e) }

// Stats counts an agent's planning and execution outcomes.
type Stats struct {
	Plans            int `json:"plans"`
	PlanFailures     int `json:"plan_failures"`
	Replans          int `json:"replans"` // Plans made after an abort.
	Aborts           int `json:"aborts"`
	ActionsCompleted int `json:"actions_completed"`
	GoalsCompleted   int `json:"goals_completed"`
}
