package goap

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/goap-sim/internal/facts"
)

func cond(keys ...string) []Condition {
	out := make([]Condition, len(keys))
	for i, k := range keys {
		out[i] = Condition{Key: k, Value: 1}
	}
	return out
}

func foodActions() []*Action {
	return []*Action{
		MustAction(ActionSpec{Name: "CollectFood", Cost: 1, Aftereffects: cond("HasFood")}),
		MustAction(ActionSpec{Name: "ReturnHome", Cost: 1, Preconditions: cond("HasFood"), Aftereffects: cond("ReturnedHome")}),
	}
}

func TestPlanner_Scenarios(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("collect then return", func(t *testing.T) {
		p := NewPlanner(logger, facts.NewStore(), true)
		plan := p.Plan(foodActions(), facts.State{"ReturnedHome": 1}, facts.NewStore())
		require.NotNil(t, plan)
		assert.Empty(t, cmp.Diff([]string{"CollectFood", "ReturnHome"}, plan.Names()))
		assert.Equal(t, 2.0, plan.Cost)
		assert.Equal(t, "CollectFood -> ReturnHome", plan.String())
	})

	t.Run("already holding food", func(t *testing.T) {
		p := NewPlanner(logger, facts.NewStore(), false)
		beliefs := facts.NewStoreFrom(facts.State{"HasFood": 1})
		plan := p.Plan(foodActions(), facts.State{"ReturnedHome": 1}, beliefs)
		require.NotNil(t, plan)
		assert.Equal(t, []string{"ReturnHome"}, plan.Names())
		assert.Equal(t, 1.0, plan.Cost)
	})

	t.Run("world facts count as held", func(t *testing.T) {
		p := NewPlanner(logger, facts.NewStoreFrom(facts.State{"HasFood": 1}), false)
		plan := p.Plan(foodActions(), facts.State{"ReturnedHome": 1}, nil)
		require.NotNil(t, plan)
		assert.Equal(t, []string{"ReturnHome"}, plan.Names())
	})

	t.Run("missing precondition is unreachable", func(t *testing.T) {
		p := NewPlanner(logger, facts.NewStore(), false)
		actions := []*Action{MustAction(ActionSpec{Name: "A", Cost: 1, Preconditions: cond("X"), Aftereffects: cond("Y")})}
		assert.Nil(t, p.Plan(actions, facts.State{"Y": 1}, facts.NewStore()))
	})

	t.Run("anticondition blocks the action", func(t *testing.T) {
		p := NewPlanner(logger, facts.NewStore(), false)
		actions := []*Action{
			MustAction(ActionSpec{Name: "CollectFood", Cost: 1, Anticonditions: cond("ReachedCapacity"), Aftereffects: cond("HasFood")}),
		}
		beliefs := facts.NewStoreFrom(facts.State{"ReachedCapacity": 1})
		assert.Nil(t, p.Plan(actions, facts.State{"HasFood": 1}, beliefs))

		actions = append(actions, MustAction(ActionSpec{Name: "Scavenge", Cost: 5, Aftereffects: cond("HasFood")}))
		plan := p.Plan(actions, facts.State{"HasFood": 1}, beliefs)
		require.NotNil(t, plan)
		assert.Equal(t, []string{"Scavenge"}, plan.Names())
	})

	t.Run("empty goal needs no plan", func(t *testing.T) {
		p := NewPlanner(logger, nil, false)
		assert.Nil(t, p.Plan(foodActions(), facts.State{}, nil))
	})
}

func TestPlanner_PicksCheapestAndFirstOnTies(t *testing.T) {
	p := NewPlanner(zaptest.NewLogger(t), facts.NewStore(), false)

	expensive := MustAction(ActionSpec{Name: "Direct", Cost: 5, Aftereffects: cond("Goal")})
	stepA := MustAction(ActionSpec{Name: "StepA", Cost: 1, Aftereffects: cond("Mid")})
	stepB := MustAction(ActionSpec{Name: "StepB", Cost: 1, Preconditions: cond("Mid"), Aftereffects: cond("Goal")})

	plan := p.Plan([]*Action{expensive, stepA, stepB}, facts.State{"Goal": 1}, nil)
	require.NotNil(t, plan)
	assert.Equal(t, []string{"StepA", "StepB"}, plan.Names())
	assert.Equal(t, 2.0, plan.Cost)
	assert.Greater(t, plan.Stats.Leaves, 1)

	first := MustAction(ActionSpec{Name: "First", Cost: 2, Aftereffects: cond("Goal")})
	second := MustAction(ActionSpec{Name: "Second", Cost: 2, Aftereffects: cond("Goal")})
	plan = p.Plan([]*Action{first, second}, facts.State{"Goal": 1}, nil)
	require.NotNil(t, plan)
	assert.Equal(t, []string{"First"}, plan.Names(), "equal cost keeps the first leaf found")
}

func TestPlanner_EffectsDoNotOverwriteDuringSearch(t *testing.T) {
	p := NewPlanner(zaptest.NewLogger(t), facts.NewStore(), false)
	grant := MustAction(ActionSpec{Name: "Grant", Cost: 1, Aftereffects: []Condition{{Key: "Energy", Value: 9}}})
	check := MustAction(ActionSpec{Name: "Check", Cost: 1, Preconditions: cond("Energy"), Aftereffects: cond("Done")})

	beliefs := facts.NewStoreFrom(facts.State{"Energy": 2})
	plan := p.Plan([]*Action{grant, check}, facts.State{"Done": 1}, beliefs)
	require.NotNil(t, plan)
	assert.Equal(t, []string{"Check"}, plan.Names())

	b := &graphBuilder{goal: facts.State{"Never": 1}}
	root := &Node{State: facts.State{"Energy": 2}}
	assert.False(t, b.build(root, []*Action{grant}))
	assert.Equal(t, 1, b.stats.Nodes)
}

func TestPlanner_EachActionOncePerBranch(t *testing.T) {
	p := NewPlanner(zaptest.NewLogger(t), facts.NewStore(), false)
	loop := MustAction(ActionSpec{Name: "Loop", Cost: 1, Aftereffects: cond("Tick")})
	assert.Nil(t, p.Plan([]*Action{loop}, facts.State{"Never": 1}, nil))
}

type notReady struct{}

func (notReady) PrePerform(Performer, *Action) bool { return true }
func (notReady) InTransitValid(Performer, *Action) bool { return true }
func (notReady) PostPerform(Performer, *Action) bool { return true }
func (notReady) Ready(*Action) bool { return false }

func TestPlanner_ReadinessGate(t *testing.T) {
	p := NewPlanner(zaptest.NewLogger(t), facts.NewStore(), false)
	gated := MustAction(ActionSpec{Name: "Gated", Cost: 1, Aftereffects: cond("Goal"), Behavior: notReady{}})
	assert.False(t, gated.IsAchievable())
	assert.Nil(t, p.Plan([]*Action{gated}, facts.State{"Goal": 1}, nil))
}

// bruteForce enumerates every sequence of distinct actions and returns the
// cheapest cost that reaches goal, or +Inf.
func bruteForce(actions []*Action, state, goal facts.State, used map[*Action]bool, cost float64) float64 {
	best := math.Inf(1)
	for _, a := range actions {
		if used[a] || !a.IsAchievableGiven(state) {
			continue
		}
		next := state.Clone()
		next.AddAbsent(a.Aftereffects)
		c := cost + a.Cost
		if next.ContainsAll(goal) {
			best = math.Min(best, c)
			continue
		}
		used[a] = true
		best = math.Min(best, bruteForce(actions, next, goal, used, c))
		used[a] = false
	}
	return best
}

func TestPlanner_OptimalAgainstExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))
	keys := []string{"A", "B", "C", "D", "E"}
	pick := func() []Condition {
		var out []Condition
		seen := map[string]bool{}
		for n := rng.IntN(3); n > 0; n-- {
			k := keys[rng.IntN(len(keys))]
			if !seen[k] {
				seen[k] = true
				out = append(out, Condition{Key: k, Value: 1})
			}
		}
		return out
	}

	p := NewPlanner(zaptest.NewLogger(t), facts.NewStore(), false)
	for trial := 0; trial < 200; trial++ {
		var actions []*Action
		for i := 0; i < 5; i++ {
			actions = append(actions, MustAction(ActionSpec{
				Name:           fmt.Sprintf("act-%d", i),
				Cost:           float64(rng.IntN(4)),
				Preconditions:  pick(),
				Anticonditions: pick(),
				Aftereffects:   pick(),
			}))
		}
		goal := facts.State{keys[rng.IntN(len(keys))]: 1}
		start := facts.State{}
		if rng.IntN(2) == 0 {
			start[keys[rng.IntN(len(keys))]] = 1
		}
		if start.ContainsAll(goal) {
			continue
		}

		want := bruteForce(actions, start, goal, map[*Action]bool{}, 0)
		plan := p.Plan(actions, goal, facts.NewStoreFrom(start))
		if math.IsInf(want, 1) {
			assert.Nil(t, plan, "trial %d", trial)
			continue
		}
		require.NotNil(t, plan, "trial %d", trial)
		assert.Equal(t, want, plan.Cost, "trial %d", trial)

		again := p.Plan(actions, goal, facts.NewStoreFrom(start))
		require.NotNil(t, again)
		assert.Equal(t, plan.Cost, again.Cost, "planning is idempotent")
	}
}
