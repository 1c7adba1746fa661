package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/config"
	"github.com/xkilldash9x/goap-sim/internal/engine"
	"github.com/xkilldash9x/goap-sim/internal/observability"
	"github.com/xkilldash9x/goap-sim/internal/scenario"
)

// newBatchCmd creates the `batch` command, which runs many seeds of a scenario
// in parallel.
func newBatchCmd(provider storeProvider) *cobra.Command {
	var scenarioPath, format, output string
	var runs, concurrency int
	var persist bool

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a scenario for many seeds in parallel",
		Long: `Runs --runs simulations of a scenario, seeded simulation.seed, simulation.seed+1, ...
with at most --concurrency in flight. With --persist every run is stored in PostgreSQL
(database.url or ` + config.DatabaseURLEnv + `).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("runs") {
				cfg.SetEngineRuns(runs)
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.SetEngineConcurrency(concurrency)
			}
			if format != "" {
				cfg.SetReportFormat(format)
			}
			if output != "" {
				cfg.SetReportOutput(output)
			}

			sc, err := loadScenario(scenarioPath)
			if err != nil {
				return err
			}
			var p storeProvider
			if persist {
				p = provider
			}
			return runBatch(cmd.Context(), observability.GetLogger(), cfg, sc, p)
		},
	}

	batchCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file (required)")
	batchCmd.Flags().IntVarP(&runs, "runs", "n", 0, "number of runs (overrides engine.runs)")
	batchCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "runs in flight (overrides engine.concurrency)")
	batchCmd.Flags().BoolVar(&persist, "persist", false, "store every run in PostgreSQL")
	batchCmd.Flags().StringVarP(&format, "format", "f", "", "report format: text or json (overrides report.format)")
	batchCmd.Flags().StringVarP(&output, "output", "o", "", "report path or 'stdout' (overrides report.output)")
	_ = batchCmd.MarkFlagRequired("scenario")
	return batchCmd
}

// runBatch contains the core, testable logic of the batch command. A nil
// provider disables persistence.
func runBatch(ctx context.Context, logger *zap.Logger, cfg config.Interface, sc *scenario.Scenario, provider storeProvider) error {
	var st engine.Store
	if provider != nil {
		rs, cleanup, err := provider.Create(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		if cleanup != nil {
			defer cleanup()
		}
		if err := rs.Migrate(ctx); err != nil {
			return err
		}
		st = rs
	}

	runner := &engine.ScenarioRunner{
		Logger:   logger,
		Scenario: sc,
		Config:   simulationConfig(cfg),
	}
	eng, err := engine.New(engine.Config{
		Runs:           cfg.Engine().Runs,
		Concurrency:    cfg.Engine().Concurrency,
		BaseSeed:       cfg.Simulation().Seed,
		PersistTimeout: cfg.Engine().PersistTimeout,
	}, logger, runner, st)
	if err != nil {
		return err
	}

	res, err := eng.Run(ctx)
	if err != nil {
		return err
	}
	if st != nil && res.Persisted < len(res.Summaries) {
		logger.Warn("Some runs were not persisted",
			zap.Int("persisted", res.Persisted),
			zap.Int("runs", len(res.Summaries)))
	}
	return writeReport(logger, cfg.Report(), res.Summaries...)
}
