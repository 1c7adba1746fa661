package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/xkilldash9x/goap-sim/internal/simulation"
)

// TextReporter writes a human-readable block per run as it arrives and a batch
// aggregate on Close when more than one run was written.
type TextReporter struct {
	writer io.WriteCloser
	mu     sync.Mutex
	runs   []*simulation.Summary
}

// NewTextReporter creates a reporter writing plain text tables.
func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

// Write renders one run.
func (r *TextReporter) Write(sum *simulation.Summary) error {
	if sum == nil {
		return fmt.Errorf("summary cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, sum)

	var b strings.Builder
	t := sum.Totals
	fmt.Fprintf(&b, "Run %s (scenario %q, seed %d)\n", sum.RunID, sum.Scenario, sum.Seed)
	fmt.Fprintf(&b, "  simulated %s in %d ticks, night=%t\n", sum.Simulated, sum.Ticks, sum.Night)
	fmt.Fprintf(&b, "  food: returned %d, carried %d, remaining %d, starving agents %d, gifts %d\n",
		t.FoodReturned, t.FoodCarried, t.FoodRemaining, t.Starving, len(sum.Gifts))
	if t.TreasureDelivered > 0 || t.TreasureCarried > 0 {
		fmt.Fprintf(&b, "  treasure: delivered %d, carried %d\n", t.TreasureDelivered, t.TreasureCarried)
	}
	fmt.Fprintf(&b, "  plans %d (failed %d, replans %d), actions %d, aborts %d, goals %d\n",
		t.Plans, t.PlanFailures, t.Replans, t.ActionsCompleted, t.Aborts, t.GoalsCompleted)

	if len(sum.Stocks) > 0 {
		ids := make([]string, 0, len(sum.Stocks))
		for id := range sum.Stocks {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		b.WriteString("  stocks:")
		for _, id := range ids {
			fmt.Fprintf(&b, " %s=%d", id, sum.Stocks[id])
		}
		b.WriteString("\n")
	}
	if _, err := io.WriteString(r.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write run header: %w", err)
	}

	w := tabwriter.NewWriter(r.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  AGENT\tSTATE\tFOOD\tTREASURE\tPLANS\tACTIONS\tGOALS")
	for _, a := range sum.Agents {
		fmt.Fprintf(w, "  %s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			a.ID, a.State, a.Food, a.Treasure, a.Stats.Plans, a.Stats.ActionsCompleted, a.Stats.GoalsCompleted)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write agent table: %w", err)
	}
	_, err := io.WriteString(r.writer, "\n")
	return err
}

// Close writes the aggregate for batches and closes the writer.
func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var writeErr error
	if len(r.runs) > 1 {
		a := Summarize(r.runs)
		_, writeErr = fmt.Fprintf(r.writer,
			"Batch of %d runs: food returned mean %.2f (min %d, max %d), treasure mean %.2f, starving mean %.2f, goals mean %.2f, plan failures %d, aborts %d\n",
			a.Runs, a.MeanFoodReturned, a.MinFoodReturned, a.MaxFoodReturned,
			a.MeanTreasureDelivered, a.MeanStarving, a.MeanGoalsCompleted, a.PlanFailures, a.Aborts)
	}
	closeErr := r.writer.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write aggregate: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
