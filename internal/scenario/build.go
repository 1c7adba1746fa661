package scenario

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/facts"
	"github.com/xkilldash9x/goap-sim/internal/navigation"
	"github.com/xkilldash9x/goap-sim/internal/reservation"
	"github.com/xkilldash9x/goap-sim/internal/world"
)

const defaultFoodTag = "Food"

// Options controls how a scenario is instantiated.
type Options struct {
	Agent agent.Config
	// Rand drives food placement and home shuffling. Nil means a zero-seeded source.
	Rand *rand.Rand
	// StrictCapacity fails the build when homes cannot hold every distributed agent.
	StrictCapacity bool
	Sink           agent.EventSink
}

// Instance is a built scenario ready to be ticked.
type Instance struct {
	Name   string
	World  *world.World
	Plane  *navigation.Plane
	Agents []*agent.Agent
	Homes  []*world.Object
}

type member struct {
	id        string
	archetype string
	position  *navigation.Vec2
}

// Build creates the world, generates food and spawns the agents.
func (s *Scenario) Build(logger *zap.Logger, opts Options) (*Instance, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}

	plane := navigation.NewPlane(s.World.Min, s.World.Max, s.World.Obstacles...)
	w := world.New(logger.Named("world"))
	for category, fact := range s.World.Bind {
		w.BindFact(category, fact)
	}

	inst := &Instance{Name: s.Name, World: w, Plane: plane}
	for _, spec := range s.World.Objects {
		var point *reservation.Point
		if spec.Point != nil {
			point = reservation.NewPoint(*spec.Point)
		}
		o := world.NewObject(spec.ID, spec.Tag, spec.Category, spec.Position, point)
		w.AddObject(o)
		if spec.Category == world.CategoryHome {
			inst.Homes = append(inst.Homes, o)
		}
	}
	if f := s.World.Food; f != nil {
		w.AddObject(generateFood(rng, *f)...)
	}
	for k, v := range s.World.Facts {
		w.Facts().Set(k, v)
	}

	members := s.members()
	if err := s.place(rng, members, opts.StrictCapacity); err != nil {
		return nil, err
	}

	for _, m := range members {
		a, err := s.newAgent(logger, w, plane, m, opts)
		if err != nil {
			return nil, err
		}
		inst.Agents = append(inst.Agents, a)
	}
	logger.Info("Scenario built",
		zap.String("scenario", s.Name),
		zap.Int("agents", len(inst.Agents)),
		zap.Int("food", w.Count(world.CategoryFood)),
		zap.Int("homes", len(inst.Homes)))
	return inst, nil
}

// members expands the agent groups. IDs are numbered per archetype in
// declaration order so that runs are reproducible.
func (s *Scenario) members() []*member {
	var out []*member
	seq := make(map[string]int)
	for _, g := range s.Agents {
		n := g.Count
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			seq[g.Archetype]++
			m := &member{id: fmt.Sprintf("%s-%02d", g.Archetype, seq[g.Archetype]), archetype: g.Archetype}
			if g.Position != nil {
				p := *g.Position
				m.position = &p
			}
			out = append(out, m)
		}
	}
	return out
}

// place assigns positions to the members without one, spreading them round-robin
// over the homes.
func (s *Scenario) place(rng *rand.Rand, members []*member, strict bool) error {
	var homeless []*member
	for _, m := range members {
		if m.position == nil {
			homeless = append(homeless, m)
		}
	}
	if len(homeless) == 0 {
		return nil
	}

	var homes []ObjectSpec
	capacity, bounded := 0, true
	for _, o := range s.World.Objects {
		if o.Category != world.CategoryHome {
			continue
		}
		homes = append(homes, o)
		if o.Point == nil || !o.Point.UsesLimit {
			bounded = false
			continue
		}
		capacity += max(o.Point.Limit, 1)
	}
	if len(homes) == 0 {
		return fmt.Errorf("%d agents have no position and the world has no homes", len(homeless))
	}
	if strict && bounded && len(homeless) > capacity {
		return fmt.Errorf("%w: %d agents for %d slots", ErrHomeCapacity, len(homeless), capacity)
	}

	buckets := make([][]*member, len(homes))
	for i, m := range homeless {
		buckets[i%len(homes)] = append(buckets[i%len(homes)], m)
	}
	for i, home := range homes {
		bucket := buckets[i]
		rng.Shuffle(len(bucket), func(a, b int) { bucket[a], bucket[b] = bucket[b], bucket[a] })
		cells := HomeCells(home.Position, home.Area)
		for j, m := range bucket {
			p := cells[j%len(cells)]
			m.position = &p
		}
	}
	return nil
}

func (s *Scenario) newAgent(logger *zap.Logger, w *world.World, plane *navigation.Plane, m *member, opts Options) (*agent.Agent, error) {
	arch := s.Archetypes[m.archetype]
	acts, goals, err := s.Library(m.archetype)
	if err != nil {
		return nil, err
	}

	var agentOpts []agent.Option
	if opts.Sink != nil {
		agentOpts = append(agentOpts, agent.WithEventSink(opts.Sink))
	}
	if e := arch.Energy; e != nil {
		agentOpts = append(agentOpts, agent.WithEnergy(agent.NewEnergy(e.Max, e.Drain, e.Fact)))
	}
	if arch.Generosity > 0 {
		agentOpts = append(agentOpts, agent.WithGenerosity(arch.Generosity))
	}

	a, err := agent.New(logger, w, agent.Params{
		ID:        m.id,
		Archetype: m.archetype,
		Position:  *m.position,
		Navigator: plane,
		Inventory: arch.Inventory,
		Beliefs:   facts.State(arch.Beliefs),
		Goals:     goals,
		Actions:   acts,
	}, opts.Agent, agentOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent %s: %w", m.id, err)
	}
	return a, nil
}

func generateFood(rng *rand.Rand, spec FoodSpec) []*world.Object {
	tag := spec.Tag
	if tag == "" {
		tag = defaultFoodTag
	}
	opts := spec.Point
	if opts == (reservation.Options{}) {
		opts = reservation.Options{Limit: 1, UsesLimit: true}
	}
	cells := FoodCells(rng, spec)
	out := make([]*world.Object, len(cells))
	for i, c := range cells {
		out[i] = world.NewObject(fmt.Sprintf("food-%03d", i+1), tag, world.CategoryFood, c, reservation.NewPoint(opts))
	}
	return out
}

// FoodCells picks Count distinct cells of the generator grid and returns their
// positions in grid order.
func FoodCells(rng *rand.Rand, spec FoodSpec) []navigation.Vec2 {
	total := spec.Width * spec.Height
	n := min(spec.Count, total)
	if n <= 0 {
		return nil
	}
	available := make([]int, total)
	for i := range available {
		available[i] = i
	}
	marked := make([]bool, total)
	for i := 0; i < n; i++ {
		j := rng.IntN(len(available))
		marked[available[j]] = true
		available = append(available[:j], available[j+1:]...)
	}

	out := make([]navigation.Vec2, 0, n)
	for x := 0; x < spec.Width; x++ {
		for y := 0; y < spec.Height; y++ {
			if marked[x*spec.Height+y] {
				out = append(out, cell(spec.Center, spec.Width, spec.Height, x, y))
			}
		}
	}
	return out
}

// HomeCells lists the spawn cells around a home in placement order. Columns run
// left to right, or right to left with VerticalFlip; rows run top down, or bottom
// up with HorizontalFlip. An empty area is the home's own position.
func HomeCells(center navigation.Vec2, a Area) []navigation.Vec2 {
	if a.Width < 1 || a.Height < 1 {
		return []navigation.Vec2{center}
	}
	out := make([]navigation.Vec2, 0, a.Width*a.Height)
	for i := 0; i < a.Width; i++ {
		x := i
		if a.VerticalFlip {
			x = a.Width - 1 - i
		}
		for j := 0; j < a.Height; j++ {
			y := a.Height - 1 - j
			if a.HorizontalFlip {
				y = j
			}
			out = append(out, cell(center, a.Width, a.Height, x, y))
		}
	}
	return out
}

func cell(center navigation.Vec2, w, h, x, y int) navigation.Vec2 {
	return center.Add(navigation.Vec2{X: float64(-w/2 + x), Y: float64(-h/2 + y)})
}
