package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/config"
	"github.com/xkilldash9x/goap-sim/internal/observability"
	"github.com/xkilldash9x/goap-sim/internal/reporting"
	"github.com/xkilldash9x/goap-sim/internal/scenario"
	"github.com/xkilldash9x/goap-sim/internal/simulation"
)

// newRunCmd creates the `run` command, which runs one simulation and reports it.
func newRunCmd() *cobra.Command {
	var scenarioPath, format, output string
	var seed uint64
	var realtime, trace bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation of a scenario and write a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			// Flags override the config file only when given.
			if cmd.Flags().Changed("seed") {
				cfg.SetSimulationSeed(seed)
			}
			if cmd.Flags().Changed("realtime") {
				cfg.SetSimulationRealtime(realtime)
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
			return runSimulation(cmd.Context(), observability.GetLogger(), cfg, sc, trace)
		},
	}

	runCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file (required)")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (overrides simulation.seed)")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace ticks against the wall clock")
	runCmd.Flags().BoolVar(&trace, "trace", false, "log every agent event as it happens")
	runCmd.Flags().StringVarP(&format, "format", "f", "", "report format: text or json (overrides report.format)")
	runCmd.Flags().StringVarP(&output, "output", "o", "", "report path or 'stdout' (overrides report.output)")
	_ = runCmd.MarkFlagRequired("scenario")
	return runCmd
}

// runSimulation contains the core, testable logic of the run command. With trace
// set, agent events are streamed to the logger while the run progresses.
func runSimulation(ctx context.Context, logger *zap.Logger, cfg config.Interface, sc *scenario.Scenario, trace bool) error {
	var opts []simulation.Option
	if trace {
		bus := agent.NewEventBus(logger, 256)
		stop := traceEvents(logger.Named("trace"), bus)
		defer stop()
		opts = append(opts, simulation.WithEventSink(bus))
	}

	sim, err := simulation.New(logger, sc, simulationConfig(cfg), opts...)
	if err != nil {
		return err
	}
	sum, err := sim.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Simulation aborted", zap.String("run_id", sim.ID()), zap.Int("ticks", sim.Ticks()))
		}
		return err
	}
	return writeReport(logger, cfg.Report(), sum)
}

// traceEvents logs every event published on bus until the returned function
// shuts the bus down.
func traceEvents(logger *zap.Logger, bus *agent.EventBus) func() {
	deliveries, _ := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range deliveries {
			e := d.Event
			fields := []zap.Field{
				zap.Uint64("seq", d.Seq),
				zap.String("agent", e.AgentID),
				zap.Duration("at", e.At),
			}
			if e.Goal != "" {
				fields = append(fields, zap.String("goal", e.Goal))
			}
			if e.Action != "" {
				fields = append(fields, zap.String("action", e.Action))
			}
			if len(e.Plan) > 0 {
				fields = append(fields, zap.Strings("plan", e.Plan), zap.Float64("cost", e.Cost))
			}
			if e.Reason != "" {
				fields = append(fields, zap.String("reason", string(e.Reason)))
			}
			logger.Info(string(e.Type), fields...)
			bus.Acknowledge(d)
		}
	}()
	return func() {
		bus.Shutdown()
		<-done
	}
}

// writeReport writes summaries with the configured reporter.
func writeReport(logger *zap.Logger, rc config.ReportConfig, summaries ...*simulation.Summary) (err error) {
	reporter, err := reporting.New(rc.Format, rc.Output, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if closeErr := reporter.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, sum := range summaries {
		if err := reporter.Write(sum); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if rc.Output != "" && rc.Output != "stdout" {
		logger.Info("Report written", zap.String("path", rc.Output), zap.Int("runs", len(summaries)))
	}
	return nil
}
