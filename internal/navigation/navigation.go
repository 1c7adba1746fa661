// internal/navigation/navigation.go
package navigation

import (
	"math"
	"time"
)

// Vec2 is a position on the simulation plane.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v * f.
func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Distance returns the straight-line distance between two points.
func Distance(a, b Vec2) float64 { return b.Sub(a).Len() }

// Navigator answers path queries. The planning and action layers never compute
// geometry themselves; they only ask for a path cost.
type Navigator interface {
	// PathDistance returns the length of the walkable path between two points,
	// or false when no complete path exists.
	PathDistance(from, to Vec2) (float64, bool)
}

// Obstacle is a circular region nothing can walk through.
type Obstacle struct {
	Center Vec2    `yaml:"center"`
	Radius float64 `yaml:"radius"`
}

// Plane is a bounded open field with optional circular obstacles. Paths are straight
// lines; a segment that leaves the bounds or crosses an obstacle is unreachable.
type Plane struct {
	Min       Vec2
	Max       Vec2
	Obstacles []Obstacle
}

// NewPlane creates a plane spanning min..max.
func NewPlane(min, max Vec2, obstacles ...Obstacle) *Plane {
	return &Plane{Min: min, Max: max, Obstacles: obstacles}
}

// Contains reports whether p lies within the plane's bounds.
func (p *Plane) Contains(v Vec2) bool {
	return v.X >= p.Min.X && v.X <= p.Max.X && v.Y >= p.Min.Y && v.Y <= p.Max.Y
}

// PathDistance implements Navigator.
func (p *Plane) PathDistance(from, to Vec2) (float64, bool) {
	if !p.Contains(from) || !p.Contains(to) {
		return 0, false
	}
	for _, o := range p.Obstacles {
		if segmentHitsCircle(from, to, o) {
			return 0, false
		}
	}
	return Distance(from, to), true
}

func segmentHitsCircle(a, b Vec2, o Obstacle) bool {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	t := 0.0
	if lenSq > 0 {
		ao := o.Center.Sub(a)
		t = (ao.X*ab.X + ao.Y*ab.Y) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	closest := a.Add(ab.Scale(t))
	return Distance(closest, o.Center) < o.Radius
}

// Walker moves one agent across a Navigator at a fixed speed (units per second).
// It mirrors the path status a navmesh agent exposes: a destination either yields
// a complete path or none at all.
type Walker struct {
	nav      Navigator
	pos      Vec2
	dest     Vec2
	speed    float64
	hasPath  bool
	traveled float64
}

// NewWalker creates a walker at start.
func NewWalker(nav Navigator, start Vec2, speed float64) *Walker {
	return &Walker{nav: nav, pos: start, speed: speed}
}

// Navigator returns the navigator the walker plans against.
func (w *Walker) Navigator() Navigator { return w.nav }

// Position returns the current position.
func (w *Walker) Position() Vec2 { return w.pos }

// Speed returns the walking speed.
func (w *Walker) Speed() float64 { return w.speed }

// SetSpeed changes the walking speed.
func (w *Walker) SetSpeed(s float64) { w.speed = s }

// Teleport moves the walker without walking and drops any path.
func (w *Walker) Teleport(p Vec2) {
	w.pos = p
	w.hasPath = false
}

// SetDestination computes a path to dest. It returns false and leaves the walker
// without a path when dest is unreachable.
func (w *Walker) SetDestination(dest Vec2) bool {
	if _, ok := w.nav.PathDistance(w.pos, dest); !ok {
		w.hasPath = false
		return false
	}
	w.dest = dest
	w.hasPath = true
	return true
}

// HasPath reports whether the walker currently follows a complete path.
func (w *Walker) HasPath() bool { return w.hasPath }

// PathPending is always false: paths are computed synchronously.
func (w *Walker) PathPending() bool { return false }

// ResetPath clears the current destination.
func (w *Walker) ResetPath() { w.hasPath = false }

// RemainingDistance returns the straight-line distance to the destination, or 0
// when there is no path.
func (w *Walker) RemainingDistance() float64 {
	if !w.hasPath {
		return 0
	}
	return Distance(w.pos, w.dest)
}

// Traveled returns the total distance walked.
func (w *Walker) Traveled() float64 { return w.traveled }

// Advance walks toward the destination for dt. It never overshoots.
func (w *Walker) Advance(dt time.Duration) {
	if !w.hasPath || w.speed <= 0 || dt <= 0 {
		return
	}
	remaining := Distance(w.pos, w.dest)
	step := w.speed * dt.Seconds()
	if step >= remaining {
		w.traveled += remaining
		w.pos = w.dest
		return
	}
	dir := w.dest.Sub(w.pos).Scale(1 / remaining)
	w.pos = w.pos.Add(dir.Scale(step))
	w.traveled += step
}
