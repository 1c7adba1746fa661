package goap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/goap-sim/internal/facts"
	"github.com/xkilldash9x/goap-sim/internal/inventory"
	"github.com/xkilldash9x/goap-sim/internal/navigation"
	"github.com/xkilldash9x/goap-sim/internal/priority"
	"github.com/xkilldash9x/goap-sim/internal/reservation"
	"github.com/xkilldash9x/goap-sim/internal/world"
)

type stubPerformer struct {
	id      string
	logger  *zap.Logger
	beliefs *facts.Store
	walker  *navigation.Walker
	world   *world.World
}

func newStubPerformer(t *testing.T, id string, nav navigation.Navigator, pos navigation.Vec2) *stubPerformer {
	logger := zaptest.NewLogger(t)
	return &stubPerformer{
		id:      id,
		logger:  logger,
		beliefs: facts.NewStore(),
		walker:  navigation.NewWalker(nav, pos, 1),
		world:   world.New(logger),
	}
}

func (s *stubPerformer) ID() string { return s.id }
func (s *stubPerformer) Logger() *zap.Logger { return s.logger }
func (s *stubPerformer) Beliefs() *facts.Store { return s.beliefs }
func (s *stubPerformer) Inventory() *inventory.Inventory { return inventory.New(inventory.Config{}) }
func (s *stubPerformer) Position() navigation.Vec2 { return s.walker.Position() }
func (s *stubPerformer) Navigator() navigation.Navigator { return s.walker.Navigator() }
func (s *stubPerformer) HasPath() bool { return s.walker.HasPath() }
func (s *stubPerformer) PathPending() bool { return s.walker.PathPending() }
func (s *stubPerformer) SetDestination(d navigation.Vec2) bool { return s.walker.SetDestination(d) }
func (s *stubPerformer) World() *world.World { return s.world }

func point(limit int, globalAllowance bool) *reservation.Point {
	return reservation.NewPoint(reservation.Options{Limit: limit, UsesLimit: true, GlobalAllowance: globalAllowance})
}

func TestClosestTarget(t *testing.T) {
	plane := navigation.NewPlane(navigation.Vec2{X: -50, Y: -50}, navigation.Vec2{X: 50, Y: 50},
		navigation.Obstacle{Center: navigation.Vec2{X: 0, Y: 10}, Radius: 2})
	p := newStubPerformer(t, "agent-1", plane, navigation.Vec2{})

	near := world.NewObject("near", "Food", world.CategoryFood, navigation.Vec2{X: 3}, nil)
	far := world.NewObject("far", "Food", world.CategoryFood, navigation.Vec2{X: 8}, nil)
	blocked := world.NewObject("blocked", "Food", world.CategoryFood, navigation.Vec2{Y: 20}, nil)
	outside := world.NewObject("outside", "Food", world.CategoryFood, navigation.Vec2{X: 99}, nil)
	tie := world.NewObject("tie", "Food", world.CategoryFood, navigation.Vec2{X: -3}, nil)

	assert.Same(t, near, ClosestTarget(p, []*world.Object{far, blocked, near, outside, tie}))
	assert.Same(t, tie, ClosestTarget(p, []*world.Object{tie, near}), "ties keep the earlier candidate")
	assert.Nil(t, ClosestTarget(p, []*world.Object{blocked, outside}))
	assert.Nil(t, ClosestTarget(p, nil))

	w := world.New(zaptest.NewLogger(t))
	w.AddObject(near)
	w.Remove(near)
	assert.Same(t, far, ClosestTarget(p, []*world.Object{near, far}), "destroyed candidates are skipped")
}

func TestClosestAvailableTarget(t *testing.T) {
	plane := navigation.NewPlane(navigation.Vec2{X: -50, Y: -50}, navigation.Vec2{X: 50, Y: 50})
	p := newStubPerformer(t, "agent-1", plane, navigation.Vec2{})

	full := world.NewObject("full", "Food", world.CategoryFood, navigation.Vec2{X: 1}, point(1, false))
	free := world.NewObject("free", "Food", world.CategoryFood, navigation.Vec2{X: 5}, point(1, false))
	require.True(t, full.Point().Reserve("agent-2"))

	assert.Same(t, free, ClosestAvailableTarget(p, []*world.Object{full, free}))
	assert.Same(t, full, ClosestTarget(p, []*world.Object{full, free}))

	require.True(t, free.Point().Reserve("agent-3"))
	assert.Nil(t, ClosestAvailableTarget(p, []*world.Object{full, free}))

	full.Point().UnreserveAll()
	require.True(t, full.Point().Reserve("agent-1"))
	assert.Same(t, full, ClosestAvailableTarget(p, []*world.Object{full, free}), "a slot the performer holds counts as available")
}

func TestAction_Reservations(t *testing.T) {
	early := MustAction(ActionSpec{Name: "Early"})
	early.Target = world.NewObject("e", "", world.CategoryFood, navigation.Vec2{}, point(1, false))

	require.True(t, early.ReserveEarly("a"))
	assert.True(t, early.Point().HasReserved("a"))
	assert.True(t, early.ReserveOnArrival("b"), "arrival reservation is a no-op for admission-policy points")
	assert.False(t, early.ReserveEarly("b"))
	early.Release("a")
	assert.Zero(t, early.Point().Occupancy())

	late := MustAction(ActionSpec{Name: "Late"})
	late.Target = world.NewObject("l", "", world.CategoryFood, navigation.Vec2{}, point(1, true))
	require.True(t, late.ReserveEarly("a"))
	assert.Zero(t, late.Point().Occupancy(), "arrival-policy points are not reserved at admission")
	require.True(t, late.ReserveOnArrival("a"))
	assert.False(t, late.ReserveOnArrival("b"))

	none := MustAction(ActionSpec{Name: "None"})
	assert.True(t, none.ReserveEarly("a"))
	none.Release("a")
}

func TestTargetStillValid(t *testing.T) {
	plane := navigation.NewPlane(navigation.Vec2{X: -50, Y: -50}, navigation.Vec2{X: 50, Y: 50})

	t.Run("vanished target", func(t *testing.T) {
		p := newStubPerformer(t, "a", plane, navigation.Vec2{})
		a := MustAction(ActionSpec{Name: "Go"})
		assert.False(t, TargetStillValid(p, a))
	})

	t.Run("lost slot on a full point", func(t *testing.T) {
		p := newStubPerformer(t, "a", plane, navigation.Vec2{})
		a := MustAction(ActionSpec{Name: "Go"})
		a.Target = world.NewObject("t", "", world.CategoryFood, navigation.Vec2{X: 4}, point(1, true))
		require.True(t, p.SetDestination(a.Target.Position()))
		assert.True(t, TargetStillValid(p, a))

		require.True(t, a.Target.Point().Reserve("b"))
		assert.False(t, TargetStillValid(p, a))
	})

	t.Run("moving target is re-targeted", func(t *testing.T) {
		p := newStubPerformer(t, "a", plane, navigation.Vec2{})
		a := MustAction(ActionSpec{Name: "Go"})
		a.Target = world.NewObject("t", "", world.CategoryFood, navigation.Vec2{X: 4},
			reservation.NewPoint(reservation.Options{Moving: true}))
		require.True(t, p.SetDestination(a.Target.Position()))

		a.Target.SetPosition(navigation.Vec2{X: 10})
		require.True(t, TargetStillValid(p, a))
		p.walker.Advance(100 * time.Second)
		assert.Equal(t, navigation.Vec2{X: 10}, p.Position())

		a.Target.SetPosition(navigation.Vec2{X: 400})
		assert.False(t, TargetStillValid(p, a), "moving out of reach drops the path")
	})

	t.Run("no path", func(t *testing.T) {
		p := newStubPerformer(t, "a", plane, navigation.Vec2{})
		a := MustAction(ActionSpec{Name: "Go"})
		a.Target = world.NewObject("t", "", world.CategoryHome, navigation.Vec2{X: 4}, nil)
		assert.False(t, TargetStillValid(p, a))
	})
}

func TestNewAction_Errors(t *testing.T) {
	_, err := NewAction(ActionSpec{Name: "Dup", Preconditions: cond("A", "A")})
	assert.True(t, errors.Is(err, ErrDuplicateCondition))

	_, err = NewAction(ActionSpec{Name: "Neg", Cost: -1})
	assert.ErrorIs(t, err, ErrNegativeCost)

	_, err = NewAction(ActionSpec{})
	assert.Error(t, err)

	_, err = NewAction(ActionSpec{Name: "Empty", Aftereffects: []Condition{{Key: ""}}})
	assert.Error(t, err)

	assert.Panics(t, func() { MustAction(ActionSpec{Name: "Dup", Aftereffects: cond("X", "X")}) })
}

func TestGoal(t *testing.T) {
	g, err := NewGoal("ReturnedHome", cond("ReturnedHome"), 2, true)
	require.NoError(t, err)
	assert.False(t, g.SatisfiedBy(facts.State{}))
	assert.True(t, g.SatisfiedBy(facts.State{"ReturnedHome": 3}))

	_, err = NewGoal("Empty", nil, 1, false)
	assert.Error(t, err)
	_, err = NewGoal("Dup", cond("A", "A"), 1, false)
	assert.ErrorIs(t, err, ErrDuplicateCondition)

	a := &Goal{Name: "a", Priority: 5}
	b := &Goal{Name: "b", Priority: 10}
	c := &Goal{Name: "c", Priority: 5}
	sorted := ByPriority([]*Goal{a, b, c})
	assert.Equal(t, []*Goal{b, a, c}, sorted)

	g.Rule = priority.MustCompile(`"IsNight" in world ? 20 : 2`)
	require.NoError(t, g.Reprioritize(facts.State{"IsNight": 1}, nil))
	assert.Equal(t, 20, g.Priority)
	require.NoError(t, g.Reprioritize(nil, nil))
	assert.Equal(t, 2, g.Priority)
}
