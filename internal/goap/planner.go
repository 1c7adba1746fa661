// internal/goap/planner.go
package goap

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/facts"
)

// Plan is an ordered action sequence for one goal.
type Plan struct {
	Actions []*Action
	Cost    float64
	Goal    facts.State
	Stats   Stats
}

// Len returns the number of actions.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Actions)
}

// Names returns the action names in execution order.
func (p *Plan) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = a.Name
	}
	return out
}

func (p *Plan) String() string {
	return strings.Join(p.Names(), " -> ")
}

// Planner searches an action library for the cheapest sequence reaching a goal.
// It holds the shared world facts; beliefs are passed per call.
type Planner struct {
	logger *zap.Logger
	world  *facts.Store
	debug  bool
}

// NewPlanner creates a planner over the given world facts. A nil store is treated
// as an empty world.
func NewPlanner(logger *zap.Logger, world *facts.Store, debug bool) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if world == nil {
		world = facts.NewStore()
	}
	return &Planner{logger: logger.Named("planner"), world: world, debug: debug}
}

// Plan returns the cheapest plan that makes every fact of goal present, starting
// from the merged world and belief state. It returns nil when the goal cannot be
// reached with the given actions, and for an empty goal, which needs no plan.
func (p *Planner) Plan(actions []*Action, goal facts.State, beliefs *facts.Store) *Plan {
	if len(goal) == 0 {
		return nil
	}

	usable := make([]*Action, 0, len(actions))
	for _, a := range actions {
		if a != nil && a.IsAchievable() {
			usable = append(usable, a)
		}
	}

	root := &Node{State: facts.Merge(p.world, beliefs)}
	b := &graphBuilder{goal: goal}
	if !b.build(root, usable) {
		p.logger.Debug("No plan", zap.Stringer("goal", goal), zap.Stringer("state", root.State))
		return nil
	}

	leaf := b.cheapest()
	b.stats.Leaves = len(b.leaves)
	plan := &Plan{
		Actions: path(leaf),
		Cost:    leaf.Cost,
		Goal:    goal.Clone(),
		Stats:   b.stats,
	}
	if p.debug {
		p.logger.Info("Plan found",
			zap.Stringer("goal", goal),
			zap.Stringer("plan", plan),
			zap.Float64("cost", plan.Cost),
			zap.Int("nodes", plan.Stats.Nodes),
			zap.Int("leaves", plan.Stats.Leaves))
	}
	return plan
}
