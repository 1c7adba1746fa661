// internal/world/world.go
package world

import (
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/facts"
	"github.com/xkilldash9x/goap-sim/internal/navigation"
	"github.com/xkilldash9x/goap-sim/internal/reservation"
)

// FactIsNight is the world fact the day/night driver toggles.
const FactIsNight = "IsNight"

// Category groups world objects that actions pick targets from.
type Category string

const (
	CategoryFood     Category = "food"
	CategoryHome     Category = "home"
	CategoryRest     Category = "rest"
	CategoryTreasure Category = "treasure"
	CategoryDelivery Category = "delivery"
)

// Object is something in the world an action can target: a food source, a home
// base, a delivery point. Objects with a reservation Point are contested.
type Object struct {
	ID       string
	Tag      string
	Category Category

	mu        sync.RWMutex
	pos       navigation.Vec2
	point     *reservation.Point
	destroyed bool
	stock     int
}

// NewObject creates an object. point may be nil for uncontested objects.
func NewObject(id, tag string, category Category, pos navigation.Vec2, point *reservation.Point) *Object {
	return &Object{ID: id, Tag: tag, Category: category, pos: pos, point: point}
}

// Position returns the object's current position.
func (o *Object) Position() navigation.Vec2 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pos
}

// SetPosition moves the object.
func (o *Object) SetPosition(p navigation.Vec2) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pos = p
}

// Point returns the reservation point, or nil.
func (o *Object) Point() *reservation.Point { return o.point }

// Reservable reports whether the object arbitrates occupancy.
func (o *Object) Reservable() bool { return o.point != nil }

// Destroyed reports whether the object has been removed from the world.
func (o *Object) Destroyed() bool {
	if o == nil {
		return true
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.destroyed
}

func (o *Object) destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyed = true
}

// Stock returns the resources stored at the object, e.g. delivered treasure.
func (o *Object) Stock() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stock
}

// AddStock deposits n units.
func (o *Object) AddStock(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stock += n
}

// RemoveStock withdraws n units. When the stock cannot cover n it is clamped to
// zero and the (negative) deficit is returned.
func (o *Object) RemoveStock(n int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stock -= n
	if o.stock < 0 {
		deficit := o.stock
		o.stock = 0
		return deficit
	}
	return 0
}

// World is the shared environment handle: the world fact store plus the object
// registry actions resolve targets from. It is passed explicitly to every component
// that needs it.
type World struct {
	logger *zap.Logger
	facts  *facts.Store

	mu       sync.RWMutex
	objects  map[Category][]*Object
	bindings map[Category]string
}

// New creates an empty world.
func New(logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{
		logger:   logger.Named("world"),
		facts:    facts.NewStore(),
		objects:  make(map[Category][]*Object),
		bindings: make(map[Category]string),
	}
}

// Facts returns the shared world fact store.
func (w *World) Facts() *facts.Store { return w.facts }

// BindFact ties a world fact to a category: the fact is set to the live object
// count when objects are added and removed by Validate once no object of the
// category has space left.
func (w *World) BindFact(category Category, fact string) {
	w.mu.Lock()
	w.bindings[category] = fact
	w.mu.Unlock()
	w.refreshCount(category)
}

// AddObject registers objects in their categories. Adding an object twice is a no-op.
func (w *World) AddObject(objs ...*Object) {
	touched := map[Category]bool{}
	w.mu.Lock()
	for _, o := range objs {
		if o == nil || containsObject(w.objects[o.Category], o) {
			continue
		}
		w.objects[o.Category] = append(w.objects[o.Category], o)
		touched[o.Category] = true
	}
	w.mu.Unlock()
	for c := range touched {
		w.refreshCount(c)
	}
}

func containsObject(list []*Object, o *Object) bool {
	for _, x := range list {
		if x == o {
			return true
		}
	}
	return false
}

// Objects returns a snapshot of the live objects in a category. Callers may
// iterate it while the world changes underneath.
func (w *World) Objects(category Category) []*Object {
	w.mu.RLock()
	defer w.mu.RUnlock()
	src := w.objects[category]
	out := make([]*Object, 0, len(src))
	for _, o := range src {
		if !o.Destroyed() {
			out = append(out, o)
		}
	}
	return out
}

// Count returns the number of live objects in a category.
func (w *World) Count(category Category) int {
	return len(w.Objects(category))
}

// FindByTag returns the first live object carrying tag, or nil.
func (w *World) FindByTag(tag string) *Object {
	if tag == "" {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, c := range sortedCategories(w.objects) {
		for _, o := range w.objects[c] {
			if o.Tag == tag && !o.Destroyed() {
				return o
			}
		}
	}
	return nil
}

// Remove takes an object out of play. It is only marked destroyed here; the
// registry slice is compacted on the next Validate, so snapshots held by callers
// stay valid.
func (w *World) Remove(o *Object) {
	if o == nil || o.Destroyed() {
		return
	}
	o.destroy()
	if p := o.Point(); p != nil {
		p.UnreserveAll()
	}
	w.logger.Debug("Object removed", zap.String("object_id", o.ID), zap.String("category", string(o.Category)))
}

// Compact drops destroyed objects from the registry.
func (w *World) Compact() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for c, list := range w.objects {
		kept := list[:0]
		for _, o := range list {
			if !o.Destroyed() {
				kept = append(kept, o)
			}
		}
		for i := len(kept); i < len(list); i++ {
			list[i] = nil
		}
		w.objects[c] = kept
	}
}

// Validate compacts the registry and withdraws each bound category fact once no
// object of that category is left with space.
func (w *World) Validate() {
	w.Compact()

	w.mu.RLock()
	bindings := make(map[Category]string, len(w.bindings))
	for c, f := range w.bindings {
		bindings[c] = f
	}
	w.mu.RUnlock()

	for category, fact := range bindings {
		if !w.facts.Has(fact) {
			continue
		}
		available := false
		for _, o := range w.Objects(category) {
			if p := o.Point(); p == nil || p.HasSpace() {
				available = true
				break
			}
		}
		if !available {
			w.facts.Remove(fact)
			w.logger.Debug("World fact withdrawn, no available objects",
				zap.String("fact", fact), zap.String("category", string(category)))
		}
	}
}

// SetNight sets or clears the IsNight world fact.
func (w *World) SetNight(night bool) {
	if night {
		w.facts.Set(FactIsNight, 1)
		return
	}
	w.facts.Remove(FactIsNight)
}

// IsNight reports whether the IsNight fact is present.
func (w *World) IsNight() bool { return w.facts.Has(FactIsNight) }

// Reset clears the world facts, releases every reservation and re-derives the
// bound category facts from the live objects. Night is cleared.
func (w *World) Reset() {
	w.facts.Clear()
	w.mu.RLock()
	cats := make([]Category, 0, len(w.objects))
	for c, list := range w.objects {
		cats = append(cats, c)
		for _, o := range list {
			if p := o.Point(); p != nil {
				p.UnreserveAll()
			}
		}
	}
	w.mu.RUnlock()
	for _, c := range cats {
		w.refreshCount(c)
	}
}

func sortedCategories(m map[Category][]*Object) []Category {
	return slices.Sorted(maps.Keys(m))
}

func (w *World) refreshCount(category Category) {
	w.mu.RLock()
	fact, ok := w.bindings[category]
	w.mu.RUnlock()
	if !ok {
		return
	}
	if n := w.Count(category); n > 0 {
		w.facts.Set(fact, n)
	}
}
