package goap

import (
	"fmt"
	"sort"

	"github.com/xkilldash9x/goap-sim/internal/facts"
	"github.com/xkilldash9x/goap-sim/internal/priority"
)

// Goal is a named set of required facts with a mutable priority.
type Goal struct {
	Name               string
	Facts              facts.State
	Priority           int
	RemoveOnCompletion bool
	// Rule, when set, recomputes Priority every tick.
	Rule *priority.Rule
}

// NewGoal compiles a goal from its declared conditions.
func NewGoal(name string, conditions []Condition, prio int, removeOnCompletion bool) (*Goal, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("goal %q requires at least one fact", name)
	}
	required, err := Conditions(conditions)
	if err != nil {
		return nil, fmt.Errorf("goal %q: %w", name, err)
	}
	return &Goal{Name: name, Facts: required, Priority: prio, RemoveOnCompletion: removeOnCompletion}, nil
}

// SatisfiedBy reports whether every required fact is present in state.
func (g *Goal) SatisfiedBy(state facts.State) bool {
	return state.ContainsAll(g.Facts)
}

// Reprioritize re-evaluates the goal's rule, if any, and stores the result.
func (g *Goal) Reprioritize(world, beliefs facts.State) error {
	if g.Rule == nil {
		return nil
	}
	v, err := g.Rule.Eval(world, beliefs)
	if err != nil {
		return fmt.Errorf("goal %q: %w", g.Name, err)
	}
	g.Priority = v
	return nil
}

// ByPriority returns a copy of goals sorted by descending priority. Goals with
// equal priority keep their relative order.
func ByPriority(goals []*Goal) []*Goal {
	out := make([]*Goal, len(goals))
	copy(out, goals)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}
