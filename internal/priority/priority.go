// internal/priority/priority.go
package priority

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/xkilldash9x/goap-sim/internal/facts"
)

// Env is the evaluation environment of a priority rule.
//
// Rules see both fact stores as maps, so presence tests read naturally:
//
//	"IsNight" in world ? 20 : 2
//	beliefs.HasFood > 2 ? 1 : 8
type Env struct {
	World   map[string]int `expr:"world"`
	Beliefs map[string]int `expr:"beliefs"`
	Night   bool           `expr:"night"`
}

// Rule is a compiled goal-priority expression. The zero value is not usable; build
// one with Compile.
type Rule struct {
	source  string
	program *vm.Program
}

// Compile parses and type-checks a rule. The expression must produce an int.
func Compile(source string) (*Rule, error) {
	if source == "" {
		return nil, fmt.Errorf("priority rule cannot be empty")
	}
	program, err := expr.Compile(source,
		expr.Env(Env{}),
		expr.AsInt(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile priority rule %q: %w", source, err)
	}
	return &Rule{source: source, program: program}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and static rules.
func MustCompile(source string) *Rule {
	r, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return r
}

// Source returns the rule text.
func (r *Rule) Source() string { return r.source }

// Eval runs the rule against the current world and belief facts.
func (r *Rule) Eval(world, beliefs facts.State) (int, error) {
	if world == nil {
		world = facts.State{}
	}
	if beliefs == nil {
		beliefs = facts.State{}
	}
	env := Env{World: world, Beliefs: beliefs, Night: world.Has("IsNight")}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate priority rule %q: %w", r.source, err)
	}
	v, ok := out.(int)
	if !ok {
		return 0, fmt.Errorf("priority rule %q returned %T, not int", r.source, out)
	}
	return v, nil
}
