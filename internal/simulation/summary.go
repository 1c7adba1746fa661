package simulation

import (
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/actions"
	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/facts"
	"github.com/xkilldash9x/goap-sim/internal/navigation"
	"github.com/xkilldash9x/goap-sim/internal/world"
)

// Gift records one piece of food handed from a generous agent to a starving one.
type Gift struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AgentSummary is the end-of-run state of one agent.
type AgentSummary struct {
	ID        string          `json:"id"`
	Archetype string          `json:"archetype"`
	State     agent.State     `json:"state"`
	Position  navigation.Vec2 `json:"position"`
	Food      int             `json:"food"`
	Treasure  int             `json:"treasure"`
	Energy    *float64        `json:"energy,omitempty"`
	Beliefs   facts.State     `json:"beliefs"`
	Goals     []string        `json:"goals"`
	Stats     agent.Stats     `json:"stats"`
}

// Totals aggregates the run.
type Totals struct {
	FoodReturned      int `json:"food_returned"`
	FoodCarried       int `json:"food_carried"`
	FoodRemaining     int `json:"food_remaining"`
	TreasureDelivered int `json:"treasure_delivered"`
	TreasureCarried   int `json:"treasure_carried"`
	Starving          int `json:"starving"`
	Plans             int `json:"plans"`
	PlanFailures      int `json:"plan_failures"`
	Replans           int `json:"replans"`
	Aborts            int `json:"aborts"`
	ActionsCompleted  int `json:"actions_completed"`
	GoalsCompleted    int `json:"goals_completed"`
}

// Summary is the outcome of a run.
type Summary struct {
	RunID      string                  `json:"run_id"`
	Scenario   string                  `json:"scenario"`
	Seed       uint64                  `json:"seed"`
	Ticks      int                     `json:"ticks"`
	Simulated  time.Duration           `json:"simulated_ns"`
	Night      bool                    `json:"night"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Agents     []AgentSummary          `json:"agents"`
	Stocks     map[string]int          `json:"stocks"`
	Events     map[agent.EventType]int `json:"events"`
	Gifts      []Gift                  `json:"gifts"`
	Totals     Totals                  `json:"totals"`
}

// Summary captures the current state of the run.
func (s *Simulation) Summary() *Summary {
	w := s.inst.World
	sum := &Summary{
		RunID:     s.id,
		Scenario:  s.scenario.Name,
		Seed:      s.cfg.Seed,
		Ticks:     s.ticks,
		Simulated: s.elapsed,
		Night:     w.IsNight(),
		Stocks:    make(map[string]int),
		Events:    make(map[agent.EventType]int),
	}

	for _, a := range s.inst.Agents {
		as := AgentSummary{
			ID:        a.ID(),
			Archetype: a.Archetype(),
			State:     a.State(),
			Position:  a.Position(),
			Food:      a.Inventory().Food(),
			Treasure:  a.Inventory().Treasure(),
			Beliefs:   a.Beliefs().Snapshot(),
			Stats:     a.Stats(),
		}
		if e := a.Energy(); e != nil {
			v := e.Current()
			as.Energy = &v
		}
		for _, g := range a.Goals() {
			as.Goals = append(as.Goals, g.Name)
		}
		sum.Agents = append(sum.Agents, as)

		t := &sum.Totals
		t.FoodCarried += as.Food
		t.TreasureCarried += as.Treasure
		if as.Food == 0 {
			t.Starving++
		}
		t.Plans += as.Stats.Plans
		t.PlanFailures += as.Stats.PlanFailures
		t.Replans += as.Stats.Replans
		t.Aborts += as.Stats.Aborts
		t.ActionsCompleted += as.Stats.ActionsCompleted
		t.GoalsCompleted += as.Stats.GoalsCompleted
	}

	for _, o := range w.Objects(world.CategoryHome) {
		sum.Stocks[o.ID] = o.Stock()
		sum.Totals.FoodReturned += o.Stock()
	}
	for _, o := range w.Objects(world.CategoryDelivery) {
		sum.Stocks[o.ID] = o.Stock()
		sum.Totals.TreasureDelivered += o.Stock()
	}
	sum.Totals.FoodRemaining = w.Count(world.CategoryFood)

	s.mu.Lock()
	for k, v := range s.events {
		sum.Events[k] = v
	}
	s.mu.Unlock()
	return sum
}

// ShareFood pairs starving agents with generous ones. An agent is generous when
// it carries more than one piece of food and wins its generosity roll; each gives
// away a single piece. Both lists are shuffled before pairing.
func (s *Simulation) ShareFood() []Gift {
	var starving, generous []*agent.Agent
	for _, a := range s.inst.Agents {
		switch food := a.Inventory().Food(); {
		case food == 0:
			starving = append(starving, a)
		case food > 1 && s.rng.Float64() < a.Generosity():
			generous = append(generous, a)
		}
	}
	s.rng.Shuffle(len(starving), func(i, j int) { starving[i], starving[j] = starving[j], starving[i] })
	s.rng.Shuffle(len(generous), func(i, j int) { generous[i], generous[j] = generous[j], generous[i] })

	var gifts []Gift
	for i, to := range starving {
		if i >= len(generous) {
			break
		}
		from := generous[i]
		from.Inventory().RemoveFood(1)
		to.Inventory().AddFood(1)
		to.Beliefs().Modify(actions.FactHasFood, 1)
		gifts = append(gifts, Gift{From: from.ID(), To: to.ID()})
	}
	if len(gifts) > 0 {
		s.logger.Debug("Food shared", zap.Int("gifts", len(gifts)), zap.Int("starving", len(starving)))
	}
	return gifts
}
