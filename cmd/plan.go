package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/facts"
	"github.com/xkilldash9x/goap-sim/internal/goap"
	"github.com/xkilldash9x/goap-sim/internal/observability"
	"github.com/xkilldash9x/goap-sim/internal/scenario"
)

// newPlanCmd creates the `plan` command, which prints the plan an archetype
// would make in the scenario's initial world.
func newPlanCmd() *cobra.Command {
	var scenarioPath, archetype, goalName string
	var factFlags []string

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the plan an archetype would make for its goals",
		Long: `Builds the scenario's initial world, starts from the archetype's beliefs plus any
--fact overrides and prints the cheapest plan for the named goal, or for every goal
in priority order when --goal is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			overrides, err := parseFacts(factFlags)
			if err != nil {
				return err
			}
			sc, err := loadScenario(scenarioPath)
			if err != nil {
				return err
			}
			logger := observability.GetLogger().Named("plan")
			return runPlan(cmd.OutOrStdout(), logger, sc, archetype, goalName, overrides, cfg.Planner().Debug)
		},
	}

	planCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file (required)")
	planCmd.Flags().StringVarP(&archetype, "archetype", "a", "", "archetype to plan for (required)")
	planCmd.Flags().StringVarP(&goalName, "goal", "g", "", "goal to plan for; all goals when empty")
	planCmd.Flags().StringArrayVar(&factFlags, "fact", nil, "belief override as name=value; repeatable")
	_ = planCmd.MarkFlagRequired("scenario")
	_ = planCmd.MarkFlagRequired("archetype")
	return planCmd
}

// runPlan contains the core, testable logic of the plan command.
func runPlan(out io.Writer, logger *zap.Logger, sc *scenario.Scenario, archetype, goalName string, overrides facts.State, debug bool) error {
	actions, goals, err := sc.Library(archetype)
	if err != nil {
		return err
	}
	inst, err := sc.Build(logger, scenario.Options{})
	if err != nil {
		return fmt.Errorf("failed to build scenario: %w", err)
	}

	beliefs := facts.NewStoreFrom(facts.State(sc.Archetypes[archetype].Beliefs))
	for k, v := range overrides {
		beliefs.Set(k, v)
	}

	if goalName != "" {
		var selected *goap.Goal
		for _, g := range goals {
			if g.Name == goalName {
				selected = g
				break
			}
		}
		if selected == nil {
			return fmt.Errorf("archetype %q has no goal %q", archetype, goalName)
		}
		goals = []*goap.Goal{selected}
	}

	world := inst.World.Facts()
	for _, g := range goals {
		if err := g.Reprioritize(world.Snapshot(), beliefs.Snapshot()); err != nil {
			return err
		}
	}

	planner := goap.NewPlanner(logger, world, debug)
	fmt.Fprintf(out, "World:   %s\nBeliefs: %s\n", world.Snapshot(), beliefs.Snapshot())
	for _, g := range goap.ByPriority(goals) {
		if g.SatisfiedBy(facts.Merge(world, beliefs)) {
			fmt.Fprintf(out, "%s (priority %d): already satisfied\n", g.Name, g.Priority)
			continue
		}
		plan := planner.Plan(actions, g.Facts, beliefs)
		if plan == nil {
			fmt.Fprintf(out, "%s (priority %d): no plan\n", g.Name, g.Priority)
			continue
		}
		fmt.Fprintf(out, "%s (priority %d): %s (cost %.2f, %d nodes)\n",
			g.Name, g.Priority, plan, plan.Cost, plan.Stats.Nodes)
	}
	return nil
}

// parseFacts parses name=value pairs. A bare name means a strength of 1.
func parseFacts(pairs []string) (facts.State, error) {
	out := make(facts.State, len(pairs))
	for _, p := range pairs {
		name, raw, hasValue := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid fact %q: empty name", p)
		}
		value := 1
		if hasValue {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid fact %q: %w", p, err)
			}
			value = n
		}
		out[name] = value
	}
	return out, nil
}
