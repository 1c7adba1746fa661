package goap

import (
	"github.com/xkilldash9x/goap-sim/internal/facts"
)

// Node is one hypothetical state in the search tree. Each node owns a full copy
// of its state; branches diverge independently.
type Node struct {
	Parent *Node
	Cost   float64
	State  facts.State
	Action *Action
}

// Stats reports the size of one search.
type Stats struct {
	Nodes  int `json:"nodes"`
	Leaves int `json:"leaves"`
}

type graphBuilder struct {
	goal   facts.State
	leaves []*Node
	stats  Stats
}

// build expands parent depth-first over candidates. A child's state is the
// parent's with the action's effects added only where absent. Children that
// satisfy the goal become leaves; the rest recurse without the action just taken,
// so each action is used at most once per branch. It reports whether any
// descendant reached the goal.
func (b *graphBuilder) build(parent *Node, candidates []*Action) bool {
	found := false
	for _, action := range candidates {
		if !action.IsAchievableGiven(parent.State) {
			continue
		}
		state := parent.State.Clone()
		state.AddAbsent(action.Aftereffects)

		node := &Node{Parent: parent, Cost: parent.Cost + action.Cost, State: state, Action: action}
		b.stats.Nodes++

		if state.ContainsAll(b.goal) {
			b.leaves = append(b.leaves, node)
			found = true
			continue
		}
		if b.build(node, without(candidates, action)) {
			found = true
		}
	}
	return found
}

// cheapest returns the leaf with the smallest cost. Ties keep the first found.
func (b *graphBuilder) cheapest() *Node {
	var best *Node
	for _, leaf := range b.leaves {
		if best == nil || leaf.Cost < best.Cost {
			best = leaf
		}
	}
	return best
}

// without returns a new slice holding every action of list except a.
func without(list []*Action, a *Action) []*Action {
	out := make([]*Action, 0, len(list))
	for _, x := range list {
		if x != a {
			out = append(out, x)
		}
	}
	return out
}

// path walks parent pointers from leaf back to the root and returns the actions
// in execution order.
func path(leaf *Node) []*Action {
	var rev []*Action
	for n := leaf; n != nil && n.Action != nil; n = n.Parent {
		rev = append(rev, n.Action)
	}
	out := make([]*Action, len(rev))
	for i, a := range rev {
		out[len(rev)-1-i] = a
	}
	return out
}
