// internal/scenario/scenario.go
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/goap-sim/internal/actions"
	"github.com/xkilldash9x/goap-sim/internal/goap"
	"github.com/xkilldash9x/goap-sim/internal/inventory"
	"github.com/xkilldash9x/goap-sim/internal/navigation"
	"github.com/xkilldash9x/goap-sim/internal/priority"
	"github.com/xkilldash9x/goap-sim/internal/reservation"
	"github.com/xkilldash9x/goap-sim/internal/world"
)

var (
	// ErrUnknownBehavior is returned for an action whose kind is not registered.
	ErrUnknownBehavior = errors.New("unknown behavior kind")
	// ErrUnknownArchetype is returned when an agent group names an undeclared archetype.
	ErrUnknownArchetype = errors.New("unknown archetype")
	// ErrHomeCapacity is returned under strict capacity when more agents are
	// distributed than the homes can hold.
	ErrHomeCapacity = errors.New("not enough home capacity")
)

// Scenario is the declarative description of one simulation setup.
type Scenario struct {
	Name       string               `yaml:"name"`
	World      WorldSpec            `yaml:"world"`
	Archetypes map[string]Archetype `yaml:"archetypes"`
	Agents     []AgentGroup         `yaml:"agents"`
}

// WorldSpec describes the plane and the objects on it.
type WorldSpec struct {
	Min       navigation.Vec2           `yaml:"min"`
	Max       navigation.Vec2           `yaml:"max"`
	Obstacles []navigation.Obstacle     `yaml:"obstacles"`
	Facts     map[string]int            `yaml:"facts"`
	Bind      map[world.Category]string `yaml:"bind"`
	Objects   []ObjectSpec              `yaml:"objects"`
	Food      *FoodSpec                 `yaml:"food"`
}

// ObjectSpec places one world object.
type ObjectSpec struct {
	ID       string               `yaml:"id"`
	Tag      string               `yaml:"tag"`
	Category world.Category       `yaml:"category"`
	Position navigation.Vec2      `yaml:"position"`
	Point    *reservation.Options `yaml:"point"`
	// Area is the grid of spawn cells around a home.
	Area Area `yaml:"area"`
}

// Area is a grid of unit cells centred on an object.
type Area struct {
	Width          int  `yaml:"width"`
	Height         int  `yaml:"height"`
	VerticalFlip   bool `yaml:"vertical_flip"`
	HorizontalFlip bool `yaml:"horizontal_flip"`
}

// FoodSpec configures the food generator.
type FoodSpec struct {
	Count  int                 `yaml:"count"`
	Center navigation.Vec2     `yaml:"center"`
	Width  int                 `yaml:"width"`
	Height int                 `yaml:"height"`
	Tag    string              `yaml:"tag"`
	Point  reservation.Options `yaml:"point"`
}

// Archetype is an agent template.
type Archetype struct {
	Inventory  inventory.Config `yaml:"inventory"`
	Beliefs    map[string]int   `yaml:"beliefs"`
	Energy     *EnergySpec      `yaml:"energy"`
	Generosity float64          `yaml:"generosity"`
	Goals      []GoalSpec       `yaml:"goals"`
	Actions    []ActionSpec     `yaml:"actions"`
}

// EnergySpec attaches an energy meter to an archetype.
type EnergySpec struct {
	Max   float64 `yaml:"max"`
	Drain float64 `yaml:"drain"`
	Fact  string  `yaml:"fact"`
}

// GoalSpec declares a goal.
type GoalSpec struct {
	Name               string         `yaml:"name"`
	Facts              map[string]int `yaml:"facts"`
	Priority           int            `yaml:"priority"`
	Rule               string         `yaml:"rule"`
	RemoveOnCompletion bool           `yaml:"remove_on_completion"`
}

// ActionSpec declares an action and the behavior driving it.
type ActionSpec struct {
	Name              string         `yaml:"name"`
	Kind              actions.Kind   `yaml:"kind"` // generic when empty
	Rate              int            `yaml:"rate"`
	Cost              *float64       `yaml:"cost"`
	Duration          time.Duration  `yaml:"duration"`
	TargetTag         string         `yaml:"target_tag"`
	Category          world.Category `yaml:"category"`
	Preconditions     map[string]int `yaml:"preconditions"`
	Anticonditions    map[string]int `yaml:"anticonditions"`
	Aftereffects      map[string]int `yaml:"aftereffects"`
	RetainReservation bool           `yaml:"retain_reservation"`
}

// AgentGroup spawns Count agents of one archetype, one when Count is zero.
// Without a position the agents are distributed over the home objects.
type AgentGroup struct {
	Archetype string           `yaml:"archetype"`
	Count     int              `yaml:"count"`
	Position  *navigation.Vec2 `yaml:"position"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario document. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the cross references and values a decoder cannot.
func (s *Scenario) Validate() error {
	if s.World.Max.X <= s.World.Min.X || s.World.Max.Y <= s.World.Min.Y {
		return fmt.Errorf("world bounds are empty: min %v, max %v", s.World.Min, s.World.Max)
	}
	if f := s.World.Food; f != nil {
		if f.Count < 0 || f.Width < 0 || f.Height < 0 {
			return fmt.Errorf("food generator values must not be negative")
		}
		if f.Count > f.Width*f.Height {
			return fmt.Errorf("food count %d exceeds the %dx%d generator grid", f.Count, f.Width, f.Height)
		}
	}
	seen := make(map[string]bool, len(s.World.Objects))
	for i, o := range s.World.Objects {
		if o.ID == "" {
			return fmt.Errorf("object %d has no id", i)
		}
		if seen[o.ID] {
			return fmt.Errorf("duplicate object id %q", o.ID)
		}
		seen[o.ID] = true
	}

	for _, name := range s.ArchetypeNames() {
		arch := s.Archetypes[name]
		for _, g := range arch.Goals {
			if g.Rule == "" {
				continue
			}
			if _, err := priority.Compile(g.Rule); err != nil {
				return fmt.Errorf("archetype %q goal %q: %w", name, g.Name, err)
			}
		}
		for _, a := range arch.Actions {
			if a.Kind == "" {
				continue
			}
			if _, ok := actions.New(a.Kind, actions.Options{}); !ok {
				return fmt.Errorf("archetype %q action %q: %w: %q", name, a.Name, ErrUnknownBehavior, a.Kind)
			}
		}
		if arch.Energy != nil && arch.Energy.Fact == "" {
			return fmt.Errorf("archetype %q energy needs a rested fact", name)
		}
	}

	if len(s.Agents) == 0 {
		return fmt.Errorf("scenario declares no agents")
	}
	for i, g := range s.Agents {
		if _, ok := s.Archetypes[g.Archetype]; !ok {
			return fmt.Errorf("agent group %d: %w: %q", i, ErrUnknownArchetype, g.Archetype)
		}
		if g.Count < 0 {
			return fmt.Errorf("agent group %d has a negative count", i)
		}
	}
	return nil
}

// ArchetypeNames returns the archetype names in sorted order.
func (s *Scenario) ArchetypeNames() []string {
	names := make([]string, 0, len(s.Archetypes))
	for n := range s.Archetypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Library compiles fresh action and goal instances for an archetype. Actions
// carry a per-agent target and goals a per-agent priority, so every agent gets
// its own set.
func (s *Scenario) Library(archetype string) ([]*goap.Action, []*goap.Goal, error) {
	arch, ok := s.Archetypes[archetype]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, archetype)
	}

	acts := make([]*goap.Action, 0, len(arch.Actions))
	for _, spec := range arch.Actions {
		a, err := buildAction(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("archetype %q: %w", archetype, err)
		}
		acts = append(acts, a)
	}

	goals := make([]*goap.Goal, 0, len(arch.Goals))
	for _, spec := range arch.Goals {
		g, err := goap.NewGoal(spec.Name, conditions(spec.Facts), spec.Priority, spec.RemoveOnCompletion)
		if err != nil {
			return nil, nil, fmt.Errorf("archetype %q: %w", archetype, err)
		}
		if spec.Rule != "" {
			if g.Rule, err = priority.Compile(spec.Rule); err != nil {
				return nil, nil, fmt.Errorf("archetype %q goal %q: %w", archetype, spec.Name, err)
			}
		}
		goals = append(goals, g)
	}
	return acts, goals, nil
}

func buildAction(spec ActionSpec) (*goap.Action, error) {
	kind := spec.Kind
	if kind == "" {
		kind = actions.KindGeneric
	}
	behavior, ok := actions.New(kind, actions.Options{Rate: spec.Rate})
	if !ok {
		return nil, fmt.Errorf("action %q: %w: %q", spec.Name, ErrUnknownBehavior, spec.Kind)
	}
	cost := goap.DefaultCost
	if spec.Cost != nil {
		cost = *spec.Cost
	}
	category := spec.Category
	if category == "" {
		category = actions.DefaultCategory(kind)
	}
	return goap.NewAction(goap.ActionSpec{
		Name:              spec.Name,
		Cost:              cost,
		Duration:          spec.Duration,
		TargetTag:         spec.TargetTag,
		Category:          category,
		Preconditions:     conditions(spec.Preconditions),
		Anticonditions:    conditions(spec.Anticonditions),
		Aftereffects:      conditions(spec.Aftereffects),
		RetainReservation: spec.RetainReservation,
		Behavior:          behavior,
	})
}

// conditions turns a YAML mapping into a condition list in key order. The YAML
// decoder already rejects duplicate keys.
func conditions(m map[string]int) []goap.Condition {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]goap.Condition, len(keys))
	for i, k := range keys {
		out[i] = goap.Condition{Key: k, Value: m[k]}
	}
	return out
}
