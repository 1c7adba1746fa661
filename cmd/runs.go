package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/config"
)

// newRunsCmd creates the `runs` command, which lists persisted runs.
func newRunsCmd(provider storeProvider) *cobra.Command {
	var scenarioName string
	var limit int
	var events bool

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs stored by batch --persist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return listRuns(cmd.Context(), cmd.OutOrStdout(), cfg, provider, scenarioName, limit, events)
		},
	}
	runsCmd.Flags().StringVar(&scenarioName, "scenario", "", "only runs of this scenario name")
	runsCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	runsCmd.Flags().BoolVar(&events, "events", false, "include per-type event counts")
	return runsCmd
}

func listRuns(ctx context.Context, out io.Writer, cfg config.Interface, provider storeProvider, scenarioName string, limit int, withEvents bool) error {
	st, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	runs, err := st.ListRuns(ctx, scenarioName, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSCENARIO\tSEED\tTICKS\tFOOD\tTREASURE\tGOALS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.Scenario, r.Seed, r.Ticks, r.Totals.FoodReturned, r.Totals.TreasureDelivered,
			r.Totals.GoalsCompleted, r.StartedAt.Format("2006-01-02 15:04:05"))
		if !withEvents {
			continue
		}
		counts, err := st.CountEvents(ctx, r.ID)
		if err != nil {
			return err
		}
		types := make([]string, 0, len(counts))
		for t := range counts {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(w, "\t%s\t%d\t\t\t\t\t\n", t, counts[agent.EventType(t)])
		}
	}
	return w.Flush()
}
