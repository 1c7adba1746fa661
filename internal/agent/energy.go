package agent

import (
	"time"

	"github.com/xkilldash9x/goap-sim/internal/facts"
)

// Energy drains over time. When it runs out the rested fact is withdrawn from the
// agent's beliefs; once an action grants the fact again the meter refills.
type Energy struct {
	max         float64
	current     float64
	drain       float64 // per second
	fact        string
	shouldReset bool
}

// NewEnergy creates a full meter.
func NewEnergy(max, drainPerSecond float64, restedFact string) *Energy {
	return &Energy{max: max, current: max, drain: drainPerSecond, fact: restedFact}
}

// Current returns the remaining energy.
func (e *Energy) Current() float64 { return e.current }

// Max returns the capacity.
func (e *Energy) Max() float64 { return e.max }

// Update drains the meter by dt and synchronizes it with the rested fact.
func (e *Energy) Update(dt time.Duration, beliefs *facts.Store) {
	e.current -= e.drain * dt.Seconds()

	rested := beliefs.Has(e.fact)
	if rested && e.shouldReset {
		e.shouldReset = false
		e.current = e.max
	}
	if rested && e.current <= 0 {
		e.shouldReset = true
		beliefs.Remove(e.fact)
	}

	if e.current < 0 {
		e.current = 0
	} else if e.current > e.max {
		e.current = e.max
	}
}
