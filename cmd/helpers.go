package cmd

import (
	"fmt"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/config"
	"github.com/xkilldash9x/goap-sim/internal/scenario"
	"github.com/xkilldash9x/goap-sim/internal/simulation"
)

// expandPath resolves a leading "~". Paths that cannot be expanded are returned unchanged.
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// loadScenario reads and validates a scenario file.
func loadScenario(path string) (*scenario.Scenario, error) {
	if path == "" {
		return nil, fmt.Errorf("a scenario file is required (--scenario)")
	}
	sc, err := scenario.Load(expandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	return sc, nil
}

// agentConfig maps the agent and planner sections onto agent settings.
func agentConfig(cfg config.Interface) agent.Config {
	return agent.Config{
		GoalDistance: cfg.Agent().GoalDistance,
		Speed:        cfg.Agent().Speed,
		PlannerDebug: cfg.Planner().Debug,
	}
}

// simulationConfig maps the loaded configuration onto a run configuration.
func simulationConfig(cfg config.Interface) simulation.Config {
	s := cfg.Simulation()
	return simulation.Config{
		TickInterval:   s.TickInterval,
		Duration:       s.Duration,
		DayRatio:       s.DayRatio,
		TimeScale:      s.TimeScale,
		Realtime:       s.Realtime,
		Seed:           s.Seed,
		StrictCapacity: s.StrictCapacity,
		Agent:          agentConfig(cfg),
	}
}
