package actions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/goap"
	"github.com/xkilldash9x/goap-sim/internal/inventory"
	"github.com/xkilldash9x/goap-sim/internal/navigation"
	"github.com/xkilldash9x/goap-sim/internal/reservation"
	"github.com/xkilldash9x/goap-sim/internal/world"
)

type env struct {
	t     *testing.T
	world *world.World
	plane *navigation.Plane
}

func newEnv(t *testing.T) *env {
	return &env{
		t:     t,
		world: world.New(zaptest.NewLogger(t)),
		plane: navigation.NewPlane(navigation.Vec2{X: -10, Y: -10}, navigation.Vec2{X: 10, Y: 10}),
	}
}

func (e *env) add(id, tag string, cat world.Category, x float64, limit int) *world.Object {
	o := world.NewObject(id, tag, cat, navigation.Vec2{X: x},
		reservation.NewPoint(reservation.Options{Limit: limit, UsesLimit: true}))
	e.world.AddObject(o)
	return o
}

func (e *env) agent(id string, inv inventory.Config, acts []*goap.Action, goals []*goap.Goal) *agent.Agent {
	a, err := agent.New(zaptest.NewLogger(e.t), e.world, agent.Params{
		ID:        id,
		Navigator: e.plane,
		Inventory: inv,
		Actions:   acts,
		Goals:     goals,
	}, agent.Config{GoalDistance: 0.5, Speed: 1})
	require.NoError(e.t, err)
	return a
}

func action(t *testing.T, spec goap.ActionSpec) *goap.Action {
	a, err := goap.NewAction(spec)
	require.NoError(t, err)
	return a
}

func TestRegistry(t *testing.T) {
	b, ok := New(KindCollectFood, Options{})
	require.True(t, ok)
	assert.Equal(t, 1, b.(*CollectFood).Rate, "rate defaults to one")

	b, ok = New(KindCollectTreasure, Options{Rate: 3})
	require.True(t, ok)
	assert.Equal(t, 3, b.(*CollectTreasure).Rate)

	_, ok = New("teleport", Options{})
	assert.False(t, ok)

	assert.Len(t, Kinds(), 6)
	assert.Equal(t, world.CategoryHome, DefaultCategory(KindReturnHome))
	assert.Empty(t, DefaultCategory(KindGeneric))
}

func TestCollectFood_PrePerform(t *testing.T) {
	t.Run("nearest free food is reserved", func(t *testing.T) {
		e := newEnv(t)
		near := e.add("f1", "Food", world.CategoryFood, 2, 1)
		e.add("f2", "Food", world.CategoryFood, 5, 1)
		require.True(t, near.Point().Reserve("other"))

		p := e.agent("a1", inventory.Config{}, nil, nil)
		act := action(t, goap.ActionSpec{Name: "CollectFood"})
		b := &CollectFood{Rate: 1}

		require.True(t, b.PrePerform(p, act))
		assert.Equal(t, "f2", act.Target.ID, "a full point is passed over")
		assert.True(t, act.Target.Point().HasReserved("a1"))
	})

	t.Run("no food", func(t *testing.T) {
		e := newEnv(t)
		p := e.agent("a1", inventory.Config{}, nil, nil)
		assert.False(t, (&CollectFood{Rate: 1}).PrePerform(p, action(t, goap.ActionSpec{Name: "CollectFood"})))
	})

	t.Run("full inventory", func(t *testing.T) {
		e := newEnv(t)
		e.add("f1", "Food", world.CategoryFood, 2, 1)
		p := e.agent("a1", inventory.Config{FoodCapacity: 1, UsingCapacity: true}, nil, nil)
		p.Inventory().AddFood(1)
		assert.False(t, (&CollectFood{Rate: 1}).PrePerform(p, action(t, goap.ActionSpec{Name: "CollectFood"})))
	})
}

func TestCollectFood_PostPerform(t *testing.T) {
	e := newEnv(t)
	food := e.add("f1", "Food", world.CategoryFood, 0, 1)
	p := e.agent("a1", inventory.Config{FoodCapacity: 2, UsingCapacity: true}, nil, nil)
	act := action(t, goap.ActionSpec{Name: "CollectFood"})
	act.Target = food
	b := &CollectFood{Rate: 1}

	p.Beliefs().Set(FactReachedFoodCapacity, 1)
	require.True(t, b.PostPerform(p, act))
	v, _ := p.Beliefs().Get(FactHasFood)
	assert.Equal(t, 1, v)
	assert.False(t, p.Beliefs().Has(FactReachedFoodCapacity), "an optimistic capacity fact is withdrawn")
	assert.True(t, food.Destroyed())

	require.True(t, b.PostPerform(p, act))
	v, _ = p.Beliefs().Get(FactHasFood)
	assert.Equal(t, 2, v, "belief tracks the carried amount")
	assert.True(t, p.Beliefs().Has(FactReachedFoodCapacity))
}

func TestReturnHome_PostPerform(t *testing.T) {
	e := newEnv(t)
	home := e.add("h1", "Home", world.CategoryHome, 0, 4)
	p := e.agent("a1", inventory.Config{}, nil, nil)
	p.Inventory().AddFood(3)
	p.Beliefs().Set(FactHasFood, 3)
	p.Beliefs().Set(FactReachedFoodCapacity, 1)

	act := action(t, goap.ActionSpec{Name: "ReturnHome"})
	act.Target = home
	require.True(t, (&ReturnHome{}).PostPerform(p, act))

	assert.Equal(t, 3, home.Stock())
	assert.Zero(t, p.Inventory().Food())
	assert.True(t, p.Beliefs().Has(FactReturnedHome))
	assert.False(t, p.Beliefs().Has(FactHasFood))
	assert.False(t, p.Beliefs().Has(FactReachedFoodCapacity))
}

func TestReturnHome_TagFallback(t *testing.T) {
	e := newEnv(t)
	p := e.agent("a1", inventory.Config{}, nil, nil)

	tagged := action(t, goap.ActionSpec{Name: "ReturnHome", TargetTag: "Home"})
	assert.True(t, (&ReturnHome{}).PrePerform(p, tagged), "the controller resolves the tag")
	assert.Nil(t, tagged.Target)

	untagged := action(t, goap.ActionSpec{Name: "ReturnHome"})
	assert.False(t, (&ReturnHome{}).PrePerform(p, untagged))
}

func TestRestAtPoint(t *testing.T) {
	e := newEnv(t)
	e.add("r1", "Bench", world.CategoryRest, 1, 1)
	p := e.agent("a1", inventory.Config{}, nil, nil)
	act := action(t, goap.ActionSpec{Name: "Rest"})
	b := &RestAtPoint{}

	require.True(t, b.PrePerform(p, act))
	require.True(t, b.PostPerform(p, act))
	require.True(t, b.PostPerform(p, act))
	v, _ := p.Beliefs().Get(FactWellRested)
	assert.Equal(t, 2, v)
}

func TestTreasure(t *testing.T) {
	e := newEnv(t)
	e.add("t1", "Chest", world.CategoryTreasure, 1, 2)
	vault := e.add("d1", "Vault", world.CategoryDelivery, -1, 2)
	p := e.agent("a1", inventory.Config{TreasureCapacity: 4, UsingCapacity: true}, nil, nil)

	collect := &CollectTreasure{Rate: 2}
	act := action(t, goap.ActionSpec{Name: "CollectTreasure"})
	require.True(t, collect.PrePerform(p, act))
	require.True(t, collect.PostPerform(p, act))
	assert.False(t, p.Beliefs().Has(FactReachedTreasureCapacity))
	require.True(t, collect.PostPerform(p, act))
	assert.True(t, p.Beliefs().Has(FactReachedTreasureCapacity))
	v, _ := p.Beliefs().Get(FactHasTreasure)
	assert.Equal(t, 4, v)
	assert.False(t, collect.PrePerform(p, act), "no room left")

	deliver := &DeliverTreasure{}
	drop := action(t, goap.ActionSpec{Name: "DeliverTreasure"})
	require.True(t, deliver.PrePerform(p, drop))
	require.Equal(t, vault, drop.Target)
	require.True(t, deliver.PostPerform(p, drop))
	assert.Equal(t, 4, vault.Stock())
	assert.Zero(t, p.Inventory().Treasure())
	assert.False(t, p.Beliefs().Has(FactHasTreasure))
	assert.False(t, p.Beliefs().Has(FactReachedTreasureCapacity))
}

func TestGeneric(t *testing.T) {
	e := newEnv(t)
	spot := e.add("s1", "Spot", world.CategoryRest, 1, 1)
	p := e.agent("a1", inventory.Config{}, nil, nil)

	byTag := action(t, goap.ActionSpec{Name: "Wander", TargetTag: "Spot"})
	assert.True(t, (&Generic{}).PrePerform(p, byTag))
	assert.Nil(t, byTag.Target)

	byCategory := action(t, goap.ActionSpec{Name: "Sit", Category: world.CategoryRest})
	require.True(t, (&Generic{}).PrePerform(p, byCategory))
	assert.Equal(t, spot, byCategory.Target)
}

func TestSurvivalLoop(t *testing.T) {
	e := newEnv(t)
	near := e.add("f1", "Food", world.CategoryFood, 1, 1)
	far := e.add("f2", "Food", world.CategoryFood, 4, 1)
	home := e.add("h1", "Home", world.CategoryHome, -2, 4)

	cond := func(k string) []goap.Condition { return []goap.Condition{{Key: k, Value: 1}} }
	acts := []*goap.Action{
		action(t, goap.ActionSpec{Name: "CollectFood", Cost: 1, Aftereffects: cond(FactHasFood), Behavior: &CollectFood{Rate: 1}}),
		action(t, goap.ActionSpec{Name: "ReturnHome", Cost: 1, Preconditions: cond(FactHasFood), Aftereffects: cond(FactReturnedHome), RetainReservation: true, Behavior: &ReturnHome{}}),
	}
	g, err := goap.NewGoal("Survive", cond(FactReturnedHome), 1, true)
	require.NoError(t, err)

	a := e.agent("a1", inventory.Config{FoodCapacity: 2, UsingCapacity: true}, acts, []*goap.Goal{g})
	for i := 0; i < 10; i++ {
		a.Tick(time.Second)
	}

	assert.True(t, near.Destroyed(), "the nearer food is taken")
	assert.False(t, far.Destroyed())
	assert.Equal(t, 1, home.Stock())
	assert.True(t, home.Point().HasReserved("a1"), "home keeps the agent's slot")
	assert.True(t, a.Beliefs().Has(FactReturnedHome))
	assert.False(t, a.Beliefs().Has(FactHasFood))
	assert.Empty(t, a.Goals())
	assert.Equal(t, 2, a.Stats().ActionsCompleted)
}
