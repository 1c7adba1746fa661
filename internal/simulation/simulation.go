// internal/simulation/simulation.go
package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/scenario"
)

// Config holds the run settings.
type Config struct {
	// TickInterval is the simulated time that passes per tick.
	TickInterval time.Duration
	// Duration is the simulated length of the run.
	Duration time.Duration
	// DayRatio is the share of Duration that is daytime; night covers the rest.
	DayRatio float64
	// TimeScale is how many simulated seconds pass per wall-clock second when
	// Realtime is set.
	TimeScale float64
	Realtime  bool
	Seed      uint64
	// StrictCapacity rejects scenarios whose homes cannot hold every agent.
	StrictCapacity bool
	Agent          agent.Config
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.DayRatio < 0 || c.DayRatio > 1 {
		return fmt.Errorf("day ratio must be within [0, 1], got %v", c.DayRatio)
	}
	if c.Realtime && c.TimeScale <= 0 {
		return fmt.Errorf("time scale must be positive in realtime mode, got %v", c.TimeScale)
	}
	return nil
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithEventSink forwards every agent event to sink as well.
func WithEventSink(sink agent.EventSink) Option {
	return func(s *Simulation) { s.forward = sink }
}

// Simulation runs one scenario instance: it drives the day/night cycle, keeps
// the world consistent and ticks the agents in order.
type Simulation struct {
	id       string
	logger   *zap.Logger
	cfg      Config
	scenario *scenario.Scenario
	inst     *scenario.Instance
	rng      *rand.Rand

	elapsed time.Duration
	ticks   int
	night   bool

	forward agent.EventSink
	mu      sync.Mutex
	events  map[agent.EventType]int
}

// New builds the scenario for a fresh run.
func New(logger *zap.Logger, sc *scenario.Scenario, cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	s := &Simulation{
		id:       id,
		logger:   logger.Named("simulation").With(zap.String("run_id", id), zap.Uint64("seed", cfg.Seed)),
		cfg:      cfg,
		scenario: sc,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		events:   make(map[agent.EventType]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	inst, err := sc.Build(s.logger, scenario.Options{
		Agent:          cfg.Agent,
		Rand:           s.rng,
		StrictCapacity: cfg.StrictCapacity,
		Sink:           agent.EventSinkFunc(s.record),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build scenario %q: %w", sc.Name, err)
	}
	s.inst = inst
	return s, nil
}

func (s *Simulation) record(e agent.Event) {
	s.mu.Lock()
	s.events[e.Type]++
	s.mu.Unlock()
	if s.forward != nil {
		s.forward.Record(e)
	}
}

// ID returns the run identifier.
func (s *Simulation) ID() string { return s.id }

// Instance returns the built scenario.
func (s *Simulation) Instance() *scenario.Instance { return s.inst }

// Elapsed returns the simulated time so far.
func (s *Simulation) Elapsed() time.Duration { return s.elapsed }

// Remaining returns the simulated time left.
func (s *Simulation) Remaining() time.Duration {
	if s.elapsed >= s.cfg.Duration {
		return 0
	}
	return s.cfg.Duration - s.elapsed
}

// Ticks returns the number of completed ticks.
func (s *Simulation) Ticks() int { return s.ticks }

// Done reports whether the run has used up its duration.
func (s *Simulation) Done() bool { return s.elapsed >= s.cfg.Duration }

// Step advances the run by one tick. The world is brought up to date before any
// agent acts.
func (s *Simulation) Step() {
	s.updateWorld()
	for _, a := range s.inst.Agents {
		a.Tick(s.cfg.TickInterval)
	}
	s.elapsed += s.cfg.TickInterval
	s.ticks++
}

// updateWorld flips night on once the remaining time drops to the night share of
// the run, then validates the world's objects and facts.
func (s *Simulation) updateWorld() {
	nightLength := time.Duration(float64(s.cfg.Duration) * (1 - s.cfg.DayRatio))
	night := s.Remaining() <= nightLength
	if night != s.night {
		s.night = night
		if night {
			s.logger.Info("Night has fallen", zap.Duration("elapsed", s.elapsed))
		} else {
			s.logger.Info("Day has broken", zap.Duration("elapsed", s.elapsed))
		}
	}
	s.inst.World.SetNight(night)
	s.inst.World.Validate()
}

// Run ticks until the duration is used up, then shares food and returns the
// run summary. In realtime mode ticks are paced against the wall clock.
func (s *Simulation) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	var limiter *rate.Limiter
	if s.cfg.Realtime {
		perTick := time.Duration(float64(s.cfg.TickInterval) / s.cfg.TimeScale)
		limiter = rate.NewLimiter(rate.Every(perTick), 1)
	}
	s.logger.Info("Simulation started",
		zap.String("scenario", s.scenario.Name),
		zap.Int("agents", len(s.inst.Agents)),
		zap.Duration("duration", s.cfg.Duration),
		zap.Bool("realtime", s.cfg.Realtime))

	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulation cancelled after %d ticks: %w", s.ticks, err)
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("simulation cancelled after %d ticks: %w", s.ticks, err)
			}
		}
		s.Step()
	}

	gifts := s.ShareFood()
	sum := s.Summary()
	sum.Gifts = gifts
	sum.StartedAt = started
	sum.FinishedAt = time.Now()
	s.logger.Info("Simulation finished",
		zap.Int("ticks", s.ticks),
		zap.Int("food_returned", sum.Totals.FoodReturned),
		zap.Int("treasure_delivered", sum.Totals.TreasureDelivered),
		zap.Int("gifts", len(gifts)),
		zap.Duration("wall_time", sum.FinishedAt.Sub(started)))
	return sum, nil
}
