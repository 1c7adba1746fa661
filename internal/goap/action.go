// internal/goap/action.go
package goap

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/facts"
	"github.com/xkilldash9x/goap-sim/internal/inventory"
	"github.com/xkilldash9x/goap-sim/internal/navigation"
	"github.com/xkilldash9x/goap-sim/internal/reservation"
	"github.com/xkilldash9x/goap-sim/internal/world"
)

// DefaultCost is the cost given to actions that do not declare one.
const DefaultCost = 1.0

var (
	// ErrDuplicateCondition is returned when a condition list names the same fact twice.
	ErrDuplicateCondition = errors.New("duplicate condition key")
	// ErrNegativeCost is returned for actions with a cost below zero.
	ErrNegativeCost = errors.New("action cost must not be negative")
)

// Condition is one declared fact requirement or effect.
type Condition struct {
	Key   string `yaml:"key" json:"key"`
	Value int    `yaml:"value" json:"value"`
}

// Conditions compiles a declared condition list into a fact set. Each key may
// appear once.
func Conditions(list []Condition) (facts.State, error) {
	out := make(facts.State, len(list))
	for _, c := range list {
		if c.Key == "" {
			return nil, fmt.Errorf("condition with empty key")
		}
		if _, dup := out[c.Key]; dup {
			return nil, fmt.Errorf("%q: %w", c.Key, ErrDuplicateCondition)
		}
		out[c.Key] = c.Value
	}
	return out, nil
}

// Performer is the view of an executing agent that behaviors act through.
type Performer interface {
	ID() string
	Logger() *zap.Logger
	Beliefs() *facts.Store
	Inventory() *inventory.Inventory
	Position() navigation.Vec2
	Navigator() navigation.Navigator
	HasPath() bool
	PathPending() bool
	SetDestination(dest navigation.Vec2) bool
	World() *world.World
}

// Behavior is the three-phase execution contract of an action kind.
type Behavior interface {
	// PrePerform runs at admission. It resolves and validates the target and takes
	// an early reservation where the target asks for one. Returning false rejects
	// the action and the agent replans.
	PrePerform(p Performer, a *Action) bool
	// InTransitValid runs on every tick while the agent approaches the target.
	InTransitValid(p Performer, a *Action) bool
	// PostPerform runs on completion and applies the action's side effects.
	PostPerform(p Performer, a *Action) bool
}

// ReadinessChecker is implemented by behaviors that can rule themselves out of
// planning entirely, independent of the searched state.
type ReadinessChecker interface {
	Ready(a *Action) bool
}

// ActionSpec declares an action before compilation.
type ActionSpec struct {
	Name              string
	Cost              float64
	Duration          time.Duration
	TargetTag         string
	Category          world.Category
	Preconditions     []Condition
	Anticonditions    []Condition
	Aftereffects      []Condition
	RetainReservation bool
	Behavior          Behavior
}

// Action is a compiled capability an agent can plan with. Identity is the pointer:
// Target is resolved at run time and is not part of it.
type Action struct {
	Name              string
	Cost              float64
	Duration          time.Duration
	TargetTag         string
	Category          world.Category
	RetainReservation bool

	Preconditions  facts.State
	Anticonditions facts.State
	Aftereffects   facts.State

	Behavior Behavior
	Target   *world.Object
}

// NewAction compiles a spec's condition lists.
func NewAction(spec ActionSpec) (*Action, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("action name cannot be empty")
	}
	if spec.Cost < 0 {
		return nil, fmt.Errorf("action %q: %w", spec.Name, ErrNegativeCost)
	}
	pre, err := Conditions(spec.Preconditions)
	if err != nil {
		return nil, fmt.Errorf("action %q preconditions: %w", spec.Name, err)
	}
	anti, err := Conditions(spec.Anticonditions)
	if err != nil {
		return nil, fmt.Errorf("action %q anticonditions: %w", spec.Name, err)
	}
	eff, err := Conditions(spec.Aftereffects)
	if err != nil {
		return nil, fmt.Errorf("action %q aftereffects: %w", spec.Name, err)
	}
	return &Action{
		Name:              spec.Name,
		Cost:              spec.Cost,
		Duration:          spec.Duration,
		TargetTag:         spec.TargetTag,
		Category:          spec.Category,
		RetainReservation: spec.RetainReservation,
		Preconditions:     pre,
		Anticonditions:    anti,
		Aftereffects:      eff,
		Behavior:          spec.Behavior,
	}, nil
}

// MustAction is NewAction for static declarations; it panics on error.
func MustAction(spec ActionSpec) *Action {
	a, err := NewAction(spec)
	if err != nil {
		panic(err)
	}
	return a
}

// IsAchievableGiven reports whether every precondition is present in state and
// no anticondition is.
func (a *Action) IsAchievableGiven(state facts.State) bool {
	return state.ContainsAll(a.Preconditions) && !state.ContainsAny(a.Anticonditions)
}

// IsAchievable is the static readiness gate applied before searching.
func (a *Action) IsAchievable() bool {
	if rc, ok := a.Behavior.(ReadinessChecker); ok {
		return rc.Ready(a)
	}
	return true
}

// Point returns the target's reservation point, or nil.
func (a *Action) Point() *reservation.Point {
	if a.Target == nil {
		return nil
	}
	return a.Target.Point()
}

// ReserveEarly takes a slot on the target at admission when the target's policy
// asks for it. Targets without a point or with arrival policy succeed trivially.
func (a *Action) ReserveEarly(holder string) bool {
	p := a.Point()
	if p == nil || p.Policy() != reservation.PolicyOnAdmission {
		return true
	}
	return p.Reserve(holder)
}

// ReserveOnArrival takes a slot on the target once the agent stands at it, for
// targets using the arrival policy.
func (a *Action) ReserveOnArrival(holder string) bool {
	p := a.Point()
	if p == nil || p.Policy() != reservation.PolicyOnArrival {
		return true
	}
	return p.Reserve(holder)
}

// Release gives back any slot holder holds on the target.
func (a *Action) Release(holder string) {
	if p := a.Point(); p != nil {
		p.Unreserve(holder)
	}
}

func (a *Action) String() string { return a.Name }

// BaseBehavior supplies the default phases: admission succeeds, the approach uses
// TargetStillValid and completion succeeds. Concrete behaviors embed it and
// override what they need.
type BaseBehavior struct{}

func (BaseBehavior) PrePerform(Performer, *Action) bool { return true }

func (BaseBehavior) InTransitValid(p Performer, a *Action) bool { return TargetStillValid(p, a) }

func (BaseBehavior) PostPerform(Performer, *Action) bool { return true }
