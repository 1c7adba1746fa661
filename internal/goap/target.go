package goap

import (
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/world"
)

// ClosestTarget returns the candidate with the shortest path from the performer.
// Destroyed and unreachable candidates are skipped. Ties keep the earlier candidate.
func ClosestTarget(p Performer, candidates []*world.Object) *world.Object {
	return closest(p, candidates, false)
}

// ClosestAvailableTarget is ClosestTarget restricted to candidates the performer
// may occupy: uncontested objects, points with a free slot, and points it already
// holds.
func ClosestAvailableTarget(p Performer, candidates []*world.Object) *world.Object {
	return closest(p, candidates, true)
}

func closest(p Performer, candidates []*world.Object, needSpace bool) *world.Object {
	nav := p.Navigator()
	from := p.Position()
	logger := p.Logger()

	var best *world.Object
	bestDist := math.Inf(1)
	for _, c := range candidates {
		if c.Destroyed() {
			logger.Debug("Skipping destroyed target candidate")
			continue
		}
		if needSpace {
			if pt := c.Point(); pt != nil && !pt.Available(p.ID()) {
				continue
			}
		}
		d, ok := nav.PathDistance(from, c.Position())
		if !ok {
			logger.Debug("Skipping unreachable target candidate", zap.String("object_id", c.ID))
			continue
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// TargetStillValid is the common in-transit check. It fails when the target is
// gone, when the performer lost its slot and the point is full, or when no path
// remains. Moving targets are re-targeted.
func TargetStillValid(p Performer, a *Action) bool {
	t := a.Target
	if t == nil || t.Destroyed() {
		p.Logger().Warn("Target disappeared while approaching", zap.String("action", a.Name))
		return false
	}
	if pt := t.Point(); pt != nil {
		if !pt.HasReserved(p.ID()) && !pt.HasSpace() {
			return false
		}
		if pt.Moving() && !p.SetDestination(t.Position()) {
			return false
		}
	}
	if !p.PathPending() && !p.HasPath() {
		return false
	}
	return true
}
