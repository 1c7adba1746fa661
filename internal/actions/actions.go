// internal/actions/actions.go
package actions

import (
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/goap"
	"github.com/xkilldash9x/goap-sim/internal/world"
)

// Kind names a behavior variant in scenario files.
type Kind string

const (
	KindCollectFood     Kind = "collect_food"
	KindReturnHome      Kind = "return_home"
	KindRestAtPoint     Kind = "rest_at_point"
	KindCollectTreasure Kind = "collect_treasure"
	KindDeliverTreasure Kind = "deliver_treasure"
	KindGeneric         Kind = "generic"
)

// Belief facts the behaviors maintain.
const (
	FactHasFood                 = "HasFood"
	FactReachedFoodCapacity     = "ReachedFoodCapacity"
	FactReturnedHome            = "ReturnedHome"
	FactWellRested              = "WellRested"
	FactHasTreasure             = "HasTreasure"
	FactReachedTreasureCapacity = "ReachedTreasureCapacity"
)

// Options parameterizes a behavior.
type Options struct {
	// Rate is how many units one collection yields. Values below one mean one.
	Rate int `yaml:"rate" mapstructure:"rate"`
}

func (o Options) rate() int {
	if o.Rate < 1 {
		return 1
	}
	return o.Rate
}

var registry = map[Kind]func(Options) goap.Behavior{
	KindCollectFood:     func(o Options) goap.Behavior { return &CollectFood{Rate: o.rate()} },
	KindReturnHome:      func(Options) goap.Behavior { return &ReturnHome{} },
	KindRestAtPoint:     func(Options) goap.Behavior { return &RestAtPoint{} },
	KindCollectTreasure: func(o Options) goap.Behavior { return &CollectTreasure{Rate: o.rate()} },
	KindDeliverTreasure: func(Options) goap.Behavior { return &DeliverTreasure{} },
	KindGeneric:         func(Options) goap.Behavior { return &Generic{} },
}

// New builds the behavior registered under kind. The boolean is false for unknown kinds.
func New(kind Kind, opts Options) (goap.Behavior, bool) {
	factory, ok := registry[kind]
	if !ok {
		return nil, false
	}
	return factory(opts), true
}

// Kinds lists the registered behavior kinds in sorted order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultCategory is the category a kind picks targets from when its action does
// not name one.
func DefaultCategory(kind Kind) world.Category {
	switch kind {
	case KindCollectFood:
		return world.CategoryFood
	case KindReturnHome:
		return world.CategoryHome
	case KindRestAtPoint:
		return world.CategoryRest
	case KindCollectTreasure:
		return world.CategoryTreasure
	case KindDeliverTreasure:
		return world.CategoryDelivery
	}
	return ""
}

// resolveTarget points a at the nearest object of its category the performer may
// occupy and takes an early reservation where the target's policy asks for one.
// Without a candidate the target stays empty; admission still succeeds when the
// action carries a tag for the controller to fall back on.
func resolveTarget(p goap.Performer, a *goap.Action, fallback world.Category) bool {
	category := a.Category
	if category == "" {
		category = fallback
	}
	a.Target = nil
	if category != "" {
		a.Target = goap.ClosestAvailableTarget(p, p.World().Objects(category))
	}
	if a.Target == nil {
		if a.TargetTag == "" {
			p.Logger().Debug("No target available", zap.String("action", a.Name), zap.String("category", string(category)))
			return false
		}
		return true
	}
	return a.ReserveEarly(p.ID())
}

// CollectFood walks to the nearest free food point, picks it up and consumes it.
type CollectFood struct {
	goap.BaseBehavior
	Rate int
}

func (b *CollectFood) PrePerform(p goap.Performer, a *goap.Action) bool {
	if p.Inventory().FoodFull() {
		return false
	}
	return resolveTarget(p, a, world.CategoryFood)
}

// PostPerform resynchronizes the food beliefs with the inventory. An action may
// declare ReachedFoodCapacity as an optimistic aftereffect; it is withdrawn here
// until the inventory is really full.
func (b *CollectFood) PostPerform(p goap.Performer, a *goap.Action) bool {
	inv := p.Inventory()
	inv.AddFood(b.Rate)
	if inv.FoodFull() {
		p.Beliefs().Set(FactReachedFoodCapacity, 1)
	} else {
		p.Beliefs().Remove(FactReachedFoodCapacity)
	}
	p.Beliefs().Set(FactHasFood, inv.Food())
	p.World().Remove(a.Target)
	return true
}

// ReturnHome brings the carried food to the nearest home with space and keeps
// the agent's slot there.
type ReturnHome struct {
	goap.BaseBehavior
}

func (b *ReturnHome) PrePerform(p goap.Performer, a *goap.Action) bool {
	return resolveTarget(p, a, world.CategoryHome)
}

func (b *ReturnHome) PostPerform(p goap.Performer, a *goap.Action) bool {
	food := p.Inventory().ClearFood()
	a.Target.AddStock(food)
	p.Logger().Debug("Returned home", zap.Int("food", food), zap.String("home", a.Target.ID))

	beliefs := p.Beliefs()
	beliefs.Set(FactReturnedHome, 1)
	beliefs.Remove(FactReachedFoodCapacity)
	beliefs.Remove(FactHasFood)
	return true
}

// RestAtPoint rests at the nearest free rest point.
type RestAtPoint struct {
	goap.BaseBehavior
}

func (b *RestAtPoint) PrePerform(p goap.Performer, a *goap.Action) bool {
	return resolveTarget(p, a, world.CategoryRest)
}

func (b *RestAtPoint) PostPerform(p goap.Performer, a *goap.Action) bool {
	p.Beliefs().Modify(FactWellRested, 1)
	return true
}

// CollectTreasure gathers treasure until the agent's capacity is reached.
type CollectTreasure struct {
	goap.BaseBehavior
	Rate int
}

func (b *CollectTreasure) PrePerform(p goap.Performer, a *goap.Action) bool {
	if p.Inventory().TreasureFull() {
		return false
	}
	return resolveTarget(p, a, world.CategoryTreasure)
}

func (b *CollectTreasure) PostPerform(p goap.Performer, a *goap.Action) bool {
	inv := p.Inventory()
	inv.AddTreasure(b.Rate)
	if inv.TreasureFull() {
		p.Beliefs().Set(FactReachedTreasureCapacity, 1)
	} else {
		p.Beliefs().Remove(FactReachedTreasureCapacity)
	}
	p.Beliefs().Set(FactHasTreasure, inv.Treasure())
	return true
}

// DeliverTreasure empties the carried treasure into a delivery point's stock.
type DeliverTreasure struct {
	goap.BaseBehavior
}

func (b *DeliverTreasure) PrePerform(p goap.Performer, a *goap.Action) bool {
	return resolveTarget(p, a, world.CategoryDelivery)
}

func (b *DeliverTreasure) PostPerform(p goap.Performer, a *goap.Action) bool {
	a.Target.AddStock(p.Inventory().ClearTreasure())
	p.Beliefs().Remove(FactReachedTreasureCapacity)
	p.Beliefs().Remove(FactHasTreasure)
	return true
}

// Generic has no side effects beyond the action's declared aftereffects. It picks
// its target from the action's category when one is set, else by tag.
type Generic struct {
	goap.BaseBehavior
}

func (b *Generic) PrePerform(p goap.Performer, a *goap.Action) bool {
	if a.Category == "" {
		return true
	}
	return resolveTarget(p, a, "")
}
