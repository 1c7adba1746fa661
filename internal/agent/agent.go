package agent

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/facts"
	"github.com/xkilldash9x/goap-sim/internal/goap"
	"github.com/xkilldash9x/goap-sim/internal/inventory"
	"github.com/xkilldash9x/goap-sim/internal/navigation"
	"github.com/xkilldash9x/goap-sim/internal/world"
)

// Config holds the movement settings shared by all agents of a run.
type Config struct {
	// GoalDistance is how close the agent must get to a target to act on it.
	GoalDistance float64
	// Speed is the walking speed in units per second.
	Speed float64
	// PlannerDebug logs every plan found.
	PlannerDebug bool
}

// Params describes one agent.
type Params struct {
	ID        string // Generated when empty.
	Archetype string
	Position  navigation.Vec2
	Navigator navigation.Navigator
	Inventory inventory.Config
	Beliefs   facts.State
	Goals     []*goap.Goal
	Actions   []*goap.Action
}

// Option configures optional agent components.
type Option func(*Agent)

// WithEventSink routes agent events to sink.
func WithEventSink(sink EventSink) Option {
	return func(a *Agent) { a.sink = sink }
}

// WithEnergy attaches an energy meter.
func WithEnergy(e *Energy) Option {
	return func(a *Agent) { a.energy = e }
}

// WithGenerosity sets the probability that the agent shares surplus food.
func WithGenerosity(g float64) Option {
	return func(a *Agent) { a.generosity = g }
}

// Agent drives one planner-controlled actor. It owns its beliefs and is their
// only writer; it reads and, through its actions, changes the shared world.
//
// An Agent is not safe for concurrent use. A simulation ticks its agents one at a time.
type Agent struct {
	id        string
	archetype string
	logger    *zap.Logger
	cfg       Config

	world   *world.World
	beliefs *facts.Store
	goals   []*goap.Goal
	actions []*goap.Action
	inv     *inventory.Inventory
	walker  *navigation.Walker
	planner *goap.Planner

	sink       EventSink
	energy     *Energy
	generosity float64

	state         State
	asleep        bool
	queue         []*goap.Action
	current       *goap.Action
	currentGoal   *goap.Goal
	dwell         time.Duration
	clock         time.Duration
	replanPending bool
	lastPlanOK    bool
	stats         Stats
}

var _ goap.Performer = (*Agent)(nil)

// New creates an idle, awake agent.
func New(logger *zap.Logger, w *world.World, p Params, cfg Config, opts ...Option) (*Agent, error) {
	if w == nil {
		return nil, errNilWorld
	}
	if p.Navigator == nil {
		return nil, errNilNavigator
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := p.ID
	if id == "" {
		id = uuid.New().String()[:8]
	}
	logger = logger.With(zap.String("agent_id", id), zap.String("archetype", p.Archetype))

	a := &Agent{
		id:         id,
		archetype:  p.Archetype,
		logger:     logger,
		cfg:        cfg,
		world:      w,
		beliefs:    facts.NewStoreFrom(p.Beliefs),
		goals:      append([]*goap.Goal(nil), p.Goals...),
		actions:    append([]*goap.Action(nil), p.Actions...),
		inv:        inventory.New(p.Inventory),
		walker:     navigation.NewWalker(p.Navigator, p.Position, cfg.Speed),
		planner:    goap.NewPlanner(logger, w.Facts(), cfg.PlannerDebug),
		state:      StateIdle,
		lastPlanOK: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// -- goap.Performer --

func (a *Agent) ID() string { return a.id }
func (a *Agent) Logger() *zap.Logger { return a.logger }
func (a *Agent) Beliefs() *facts.Store { return a.beliefs }
func (a *Agent) Inventory() *inventory.Inventory { return a.inv }
func (a *Agent) Position() navigation.Vec2 { return a.walker.Position() }
func (a *Agent) Navigator() navigation.Navigator { return a.walker.Navigator() }
func (a *Agent) HasPath() bool { return a.walker.HasPath() }
func (a *Agent) PathPending() bool { return a.walker.PathPending() }
func (a *Agent) World() *world.World { return a.world }
func (a *Agent) SetDestination(d navigation.Vec2) bool { return a.walker.SetDestination(d) }

// -- Accessors --

// Archetype returns the agent's archetype name.
func (a *Agent) Archetype() string { return a.archetype }

// State returns the current controller state.
func (a *Agent) State() State { return a.state }

// Stats returns the outcome counters.
func (a *Agent) Stats() Stats { return a.stats }

// Walker returns the agent's walker.
func (a *Agent) Walker() *navigation.Walker { return a.walker }

// Energy returns the energy meter, or nil.
func (a *Agent) Energy() *Energy { return a.energy }

// Generosity returns the probability that the agent shares surplus food.
func (a *Agent) Generosity() float64 { return a.generosity }

// Asleep reports whether ticks are ignored.
func (a *Agent) Asleep() bool { return a.asleep }

// Sleep parks the agent; Tick does nothing until Wake.
func (a *Agent) Sleep() { a.asleep = true }

// Wake resumes ticking.
func (a *Agent) Wake() { a.asleep = false }

// CurrentAction returns the running action, or nil.
func (a *Agent) CurrentAction() *goap.Action { return a.current }

// CurrentGoal returns the goal the running plan serves, or nil.
func (a *Agent) CurrentGoal() *goap.Goal { return a.currentGoal }

// Queue returns the names of the actions still waiting to run.
func (a *Agent) Queue() []string {
	out := make([]string, len(a.queue))
	for i, act := range a.queue {
		out[i] = act.Name
	}
	return out
}

// Goals returns the agent's goals in declaration order.
func (a *Agent) Goals() []*goap.Goal {
	return append([]*goap.Goal(nil), a.goals...)
}

// Actions returns the agent's action library.
func (a *Agent) Actions() []*goap.Action {
	return append([]*goap.Action(nil), a.actions...)
}

// AddGoal appends a goal.
func (a *Agent) AddGoal(g *goap.Goal) {
	a.goals = append(a.goals, g)
}

// RemoveGoal drops the named goal. A plan serving it is aborted. It reports
// whether the goal existed.
func (a *Agent) RemoveGoal(name string) bool {
	for i, g := range a.goals {
		if g.Name != name {
			continue
		}
		a.goals = append(a.goals[:i], a.goals[i+1:]...)
		if a.currentGoal == g {
			a.abort(ReasonGoalRemoved)
		}
		return true
	}
	return false
}

// Abort discards the running plan and releases any reservation the current action
// holds. The agent replans on its next tick. An empty reason is recorded as
// ReasonExternal.
func (a *Agent) Abort(reason AbortReason) {
	if a.current == nil && len(a.queue) == 0 {
		return
	}
	if reason == "" {
		reason = ReasonExternal
	}
	a.abort(reason)
}

// -- State machine --

// Tick advances the agent by dt of simulated time.
func (a *Agent) Tick(dt time.Duration) {
	if a.asleep {
		return
	}
	a.clock += dt
	if a.energy != nil {
		a.energy.Update(dt, a.beliefs)
	}

	switch a.state {
	case StateApproaching:
		a.approach(dt)
	case StateCompleting:
		a.dwell -= dt
		if a.dwell <= 0 {
			a.complete()
		}
	case StateExecuting:
		a.startNext()
	default:
		if a.plan() {
			a.startNext()
		}
	}
}

// plan selects the highest-priority unsatisfied goal with a feasible plan. Goals
// whose plan cannot be found are passed over for lower ones.
func (a *Agent) plan() bool {
	a.state = StatePlanning

	worldState := a.world.Facts().Snapshot()
	beliefState := a.beliefs.Snapshot()
	for _, g := range a.goals {
		if err := g.Reprioritize(worldState, beliefState); err != nil {
			a.logger.Warn("Failed to update goal priority", zap.Error(err))
		}
	}

	merged := facts.Merge(a.world.Facts(), a.beliefs)
	for _, g := range goap.ByPriority(a.goals) {
		if g.SatisfiedBy(merged) {
			continue
		}
		plan := a.planner.Plan(a.actions, g.Facts, a.beliefs)
		if plan == nil {
			continue
		}
		a.queue = plan.Actions
		a.currentGoal = g
		a.stats.Plans++
		if a.replanPending {
			a.stats.Replans++
			a.replanPending = false
		}
		a.lastPlanOK = true
		a.logger.Debug("Plan selected", zap.String("goal", g.Name), zap.Stringer("plan", plan), zap.Float64("cost", plan.Cost))
		a.emit(Event{Type: EventPlanFound, Goal: g.Name, Plan: plan.Names(), Cost: plan.Cost})
		a.state = StateExecuting
		return true
	}

	// Only the first miss of a streak is recorded; idle agents retry every tick.
	if a.lastPlanOK {
		a.stats.PlanFailures++
		a.logger.Debug("No feasible plan for any goal", zap.Stringer("state", merged))
		a.emit(Event{Type: EventPlanFailed})
	}
	a.lastPlanOK = false
	a.state = StateIdle
	return false
}

// startNext admits the head of the queue and starts walking to its target.
func (a *Agent) startNext() {
	if len(a.queue) == 0 {
		a.state = StateIdle
		return
	}
	act := a.queue[0]
	a.queue = a.queue[1:]
	a.current = act

	if act.Target != nil && act.Target.Destroyed() {
		act.Target = nil
	}
	if !a.behavior(act).PrePerform(a, act) {
		a.abort(ReasonAdmissionFailed)
		return
	}
	if act.Target == nil && act.TargetTag != "" {
		act.Target = a.world.FindByTag(act.TargetTag)
	}
	if act.Target == nil || act.Target.Destroyed() {
		a.logger.Warn("Action has no valid target", zap.String("action", act.Name), zap.String("target_tag", act.TargetTag))
		a.abort(ReasonNoTarget)
		return
	}
	if !act.ReserveEarly(a.id) {
		a.abort(ReasonAdmissionFailed)
		return
	}
	if !a.walker.SetDestination(act.Target.Position()) {
		a.abort(ReasonUnreachable)
		return
	}
	a.state = StateApproaching
	a.emit(Event{Type: EventActionStarted, Action: act.Name})
}

func (a *Agent) approach(dt time.Duration) {
	act := a.current
	a.walker.Advance(dt)
	if !a.behavior(act).InTransitValid(a, act) {
		a.abort(ReasonInTransitInvalid)
		return
	}
	if navigation.Distance(a.walker.Position(), act.Target.Position()) > a.cfg.GoalDistance {
		return
	}
	if !act.ReserveOnArrival(a.id) {
		a.abort(ReasonArrivalReservationFailed)
		return
	}
	a.state = StateCompleting
	a.dwell = act.Duration
	if a.dwell <= 0 {
		a.complete()
	}
}

// complete applies the current action's effects. Effects overwrite beliefs here,
// unlike the add-if-absent merge the search uses.
func (a *Agent) complete() {
	act := a.current
	for k, v := range act.Aftereffects {
		a.beliefs.Set(k, v)
	}
	ok := a.behavior(act).PostPerform(a, act)
	if !ok || !act.RetainReservation {
		act.Release(a.id)
	}
	a.walker.ResetPath()
	a.current = nil

	if !ok {
		a.abort(ReasonPostPerformFailed)
		return
	}
	a.stats.ActionsCompleted++
	a.emit(Event{Type: EventActionCompleted, Action: act.Name, Goal: a.goalName()})

	if len(a.queue) > 0 {
		a.state = StateExecuting
		return
	}
	a.finishGoal()
	a.state = StateIdle
}

// finishGoal checks the finished plan's goal against the live state and drops it
// when it asks to be removed on completion.
func (a *Agent) finishGoal() {
	g := a.currentGoal
	a.currentGoal = nil
	if g == nil || !g.SatisfiedBy(facts.Merge(a.world.Facts(), a.beliefs)) {
		return
	}
	a.stats.GoalsCompleted++
	a.emit(Event{Type: EventGoalCompleted, Goal: g.Name})
	if g.RemoveOnCompletion {
		for i, x := range a.goals {
			if x == g {
				a.goals = append(a.goals[:i], a.goals[i+1:]...)
				break
			}
		}
	}
}

func (a *Agent) abort(reason AbortReason) {
	name := ""
	if act := a.current; act != nil {
		act.Release(a.id)
		name = act.Name
	}
	a.logger.Debug("Plan aborted", zap.String("reason", string(reason)), zap.String("action", name))
	a.emit(Event{Type: EventActionAborted, Action: name, Goal: a.goalName(), Reason: reason})

	a.walker.ResetPath()
	a.current = nil
	a.queue = nil
	a.currentGoal = nil
	a.dwell = 0
	a.state = StateIdle
	a.stats.Aborts++
	a.replanPending = true
}

func (a *Agent) behavior(act *goap.Action) goap.Behavior {
	if act.Behavior == nil {
		return goap.BaseBehavior{}
	}
	return act.Behavior
}

func (a *Agent) goalName() string {
	if a.currentGoal == nil {
		return ""
	}
	return a.currentGoal.Name
}

func (a *Agent) emit(e Event) {
	if a.sink == nil {
		return
	}
	e.AgentID = a.id
	e.At = a.clock
	a.sink.Record(e)
}
