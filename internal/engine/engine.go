package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/scenario"
	"github.com/xkilldash9x/goap-sim/internal/simulation"
)

// -- Interfaces for Dependency Inversion --

// Runner runs one simulation for a seed, reporting agent events to sink.
type Runner interface {
	RunSimulation(ctx context.Context, seed uint64, sink agent.EventSink) (*simulation.Summary, error)
}

// Store persists finished runs. The engine works without one.
type Store interface {
	PersistRun(ctx context.Context, summary *simulation.Summary, events []agent.Event) error
}

// Config controls a batch.
type Config struct {
	Runs        int
	Concurrency int
	// BaseSeed is the seed of the first run; run i uses BaseSeed+i.
	BaseSeed uint64
	// PersistTimeout bounds each store write.
	PersistTimeout time.Duration
}

// Result collects the summaries of a batch in seed order.
type Result struct {
	Summaries []*simulation.Summary
	Persisted int
}

// BatchEngine runs many independent simulations concurrently. Each run builds its
// own world, so runs share nothing but the engine's logger and store.
type BatchEngine struct {
	cfg    Config
	logger *zap.Logger
	runner Runner
	store  Store
}

// New creates a BatchEngine. store may be nil.
func New(cfg Config, logger *zap.Logger, runner Runner, store Store) (*BatchEngine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if cfg.Runs <= 0 {
		return nil, fmt.Errorf("runs must be positive, got %d", cfg.Runs)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 30 * time.Second
	}
	return &BatchEngine{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "batch_engine")),
		runner: runner,
		store:  store,
	}, nil
}

// Run executes the batch. The first failing simulation cancels the rest and its
// error is returned. Persistence failures are logged and do not fail the batch.
func (e *BatchEngine) Run(ctx context.Context) (*Result, error) {
	e.logger.Info("Starting batch", zap.Int("runs", e.cfg.Runs), zap.Int("concurrency", e.cfg.Concurrency))

	summaries := make([]*simulation.Summary, e.cfg.Runs)
	var persisted int
	var mu sync.Mutex

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i := 0; i < e.cfg.Runs; i++ {
		if groupCtx.Err() != nil {
			break
		}
		seed := e.cfg.BaseSeed + uint64(i)
		g.Go(func() error {
			sum, ok, err := e.runOne(groupCtx, seed)
			if err != nil {
				return err
			}
			summaries[i] = sum
			if ok {
				mu.Lock()
				persisted++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}

	e.logger.Info("Batch finished", zap.Int("runs", len(summaries)), zap.Int("persisted", persisted))
	return &Result{Summaries: summaries, Persisted: persisted}, nil
}

// runOne runs a single seed and persists it. The boolean reports whether the run
// was stored.
func (e *BatchEngine) runOne(ctx context.Context, seed uint64) (*simulation.Summary, bool, error) {
	logger := e.logger.With(zap.Uint64("seed", seed))
	if ctx.Err() != nil {
		logger.Debug("Context cancelled before run started", zap.Error(ctx.Err()))
		return nil, false, ctx.Err()
	}

	var buf eventBuffer
	var sink agent.EventSink
	if e.store != nil {
		sink = &buf
	}
	sum, err := e.runner.RunSimulation(ctx, seed, sink)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Run was cancelled", zap.Error(err))
		} else {
			logger.Error("Run failed", zap.Error(err))
		}
		return nil, false, fmt.Errorf("run with seed %d: %w", seed, err)
	}
	logger.Debug("Run finished", zap.String("run_id", sum.RunID), zap.Int("ticks", sum.Ticks))

	if e.store == nil {
		return sum, false, nil
	}
	// Persist on a fresh context so a finished run is still saved while the batch
	// shuts down.
	persistCtx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
	defer cancel()
	if err := e.store.PersistRun(persistCtx, sum, buf.events()); err != nil {
		logger.Error("Failed to persist run", zap.String("run_id", sum.RunID), zap.Error(err))
		return sum, false, nil
	}
	return sum, true, nil
}

// eventBuffer collects the events of one run.
type eventBuffer struct {
	mu  sync.Mutex
	buf []agent.Event
}

func (b *eventBuffer) Record(e agent.Event) {
	b.mu.Lock()
	b.buf = append(b.buf, e)
	b.mu.Unlock()
}

func (b *eventBuffer) events() []agent.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]agent.Event(nil), b.buf...)
}

// ScenarioRunner runs a scenario with a fixed simulation config, varying only the seed.
type ScenarioRunner struct {
	Logger   *zap.Logger
	Scenario *scenario.Scenario
	Config   simulation.Config
}

// RunSimulation builds and runs one simulation.
func (r *ScenarioRunner) RunSimulation(ctx context.Context, seed uint64, sink agent.EventSink) (*simulation.Summary, error) {
	cfg := r.Config
	cfg.Seed = seed
	var opts []simulation.Option
	if sink != nil {
		opts = append(opts, simulation.WithEventSink(sink))
	}
	sim, err := simulation.New(r.Logger, r.Scenario, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return sim.Run(ctx)
}
