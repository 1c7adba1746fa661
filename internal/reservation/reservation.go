// internal/reservation/reservation.go
package reservation

import (
	"sync"
)

// Policy decides when an agent takes its slot on a point.
type Policy string

const (
	// PolicyOnAdmission reserves while the agent is still approaching, at admission time.
	PolicyOnAdmission Policy = "on_admission"
	// PolicyOnArrival reserves only once the agent has physically arrived.
	PolicyOnArrival Policy = "on_arrival"
)

// Options configures a Point.
type Options struct {
	// Limit is the maximum number of occupants when UsesLimit is set.
	Limit int `yaml:"limit"`
	// UsesLimit enables the occupancy bound.
	UsesLimit bool `yaml:"uses_limit"`
	// GlobalAllowance selects PolicyOnArrival when true and PolicyOnAdmission when false.
	GlobalAllowance bool `yaml:"global_allowance"`
	// Moving marks points whose position changes, so approaching agents re-target each tick.
	Moving bool `yaml:"moving"`
}

// Point is a shared resource with bounded concurrent occupancy.
//
// Invariant: when UsesLimit is set, the occupant count never exceeds Limit. The
// check and the insert happen under one lock, so no tick ordering can overfill a point.
type Point struct {
	mu        sync.Mutex
	occupants []string
	opts      Options
}

// NewPoint creates a point. A limit below one is raised to one.
func NewPoint(opts Options) *Point {
	if opts.Limit < 1 {
		opts.Limit = 1
	}
	return &Point{opts: opts}
}

// Options returns the point's configuration.
func (p *Point) Options() Options { return p.opts }

// Policy reports when agents reserve this point.
func (p *Point) Policy() Policy {
	if p.opts.GlobalAllowance {
		return PolicyOnArrival
	}
	return PolicyOnAdmission
}

// GlobalAllowance reports whether reservation is deferred to arrival.
func (p *Point) GlobalAllowance() bool { return p.opts.GlobalAllowance }

// Moving reports whether the point's position can change.
func (p *Point) Moving() bool { return p.opts.Moving }

// HasSpace reports whether another occupant fits.
func (p *Point) HasSpace() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasSpaceLocked()
}

func (p *Point) hasSpaceLocked() bool {
	return !p.opts.UsesLimit || len(p.occupants) < p.opts.Limit
}

// Reserve takes a slot for holder. Reserving twice for the same holder succeeds
// without taking a second slot.
func (p *Point) Reserve(holder string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexLocked(holder) >= 0 {
		return true
	}
	if !p.hasSpaceLocked() {
		return false
	}
	p.occupants = append(p.occupants, holder)
	return true
}

// Unreserve releases holder's slot. Releasing an unheld slot is a no-op.
func (p *Point) Unreserve(holder string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := p.indexLocked(holder); i >= 0 {
		p.occupants = append(p.occupants[:i], p.occupants[i+1:]...)
	}
}

// UnreserveAll empties the point.
func (p *Point) UnreserveAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.occupants = nil
}

// HasReserved reports whether holder currently occupies a slot.
func (p *Point) HasReserved(holder string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexLocked(holder) >= 0
}

// Available reports whether holder may use the point: it already holds a slot or one is free.
func (p *Point) Available(holder string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexLocked(holder) >= 0 || p.hasSpaceLocked()
}

// Occupancy returns the number of current occupants.
func (p *Point) Occupancy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.occupants)
}

// Occupants returns a copy of the occupant list.
func (p *Point) Occupants() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.occupants))
	copy(out, p.occupants)
	return out
}

func (p *Point) indexLocked(holder string) int {
	for i, h := range p.occupants {
		if h == holder {
			return i
		}
	}
	return -1
}
