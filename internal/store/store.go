package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/goap-sim/internal/agent"
	"github.com/xkilldash9x/goap-sim/internal/simulation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id           UUID PRIMARY KEY,
    scenario     TEXT NOT NULL,
    seed         BIGINT NOT NULL,
    ticks        INTEGER NOT NULL,
    simulated_ms BIGINT NOT NULL,
    night        BOOLEAN NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL,
    totals       JSONB NOT NULL,
    stocks       JSONB NOT NULL,
    gifts        JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS agent_summaries (
    run_id    UUID NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    agent_id  TEXT NOT NULL,
    archetype TEXT NOT NULL,
    state     TEXT NOT NULL,
    food      INTEGER NOT NULL,
    treasure  INTEGER NOT NULL,
    energy    DOUBLE PRECISION,
    beliefs   JSONB NOT NULL,
    stats     JSONB NOT NULL,
    PRIMARY KEY (run_id, agent_id)
);
CREATE TABLE IF NOT EXISTS agent_events (
    run_id   UUID NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    seq      INTEGER NOT NULL,
    agent_id TEXT NOT NULL,
    type     TEXT NOT NULL,
    at_ms    BIGINT NOT NULL,
    goal     TEXT NOT NULL,
    action   TEXT NOT NULL,
    plan     TEXT[],
    cost     DOUBLE PRECISION NOT NULL,
    reason   TEXT NOT NULL,
    PRIMARY KEY (run_id, seq)
);
`

const sqlInsertRun = `
    INSERT INTO runs (id, scenario, seed, ticks, simulated_ms, night, started_at, finished_at, totals, stocks, gifts)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`

var (
	summaryColumns = []string{"run_id", "agent_id", "archetype", "state", "food", "treasure", "energy", "beliefs", "stats"}
	eventColumns   = []string{"run_id", "seq", "agent_id", "type", "at_ms", "goal", "action", "plan", "cost", "reason"}
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store persists simulation runs to PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// PersistRun writes a run, its agents and its events in one transaction.
func (s *Store) PersistRun(ctx context.Context, summary *simulation.Summary, events []agent.Event) error {
	if summary == nil {
		return errors.New("summary cannot be nil")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit reports ErrTxClosed, which is expected.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if err := s.insertRun(ctx, tx, summary); err != nil {
		return err
	}
	if len(summary.Agents) > 0 {
		if err := s.persistAgents(ctx, tx, summary.RunID, summary.Agents); err != nil {
			return err
		}
	}
	if len(events) > 0 {
		if err := s.persistEvents(ctx, tx, summary.RunID, events); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Run persisted",
		zap.String("run_id", summary.RunID),
		zap.Int("agents", len(summary.Agents)),
		zap.Int("events", len(events)))
	return nil
}

func (s *Store) insertRun(ctx context.Context, tx pgx.Tx, sum *simulation.Summary) error {
	totals, err := json.Marshal(sum.Totals)
	if err != nil {
		return fmt.Errorf("failed to encode totals: %w", err)
	}
	stocks, err := jsonObject(sum.Stocks)
	if err != nil {
		return fmt.Errorf("failed to encode stocks: %w", err)
	}
	gifts := []byte("[]")
	if len(sum.Gifts) > 0 {
		if gifts, err = json.Marshal(sum.Gifts); err != nil {
			return fmt.Errorf("failed to encode gifts: %w", err)
		}
	}

	_, err = tx.Exec(ctx, sqlInsertRun,
		sum.RunID, sum.Scenario, int64(sum.Seed), sum.Ticks, sum.Simulated.Milliseconds(), sum.Night,
		sum.StartedAt.UTC(), sum.FinishedAt.UTC(),
		totals, stocks, gifts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", sum.RunID, err)
	}
	return nil
}

func (s *Store) persistAgents(ctx context.Context, tx pgx.Tx, runID string, agents []simulation.AgentSummary) error {
	rows := make([][]interface{}, len(agents))
	for i, a := range agents {
		beliefs, err := jsonObject(a.Beliefs)
		if err != nil {
			return fmt.Errorf("failed to encode beliefs of %s: %w", a.ID, err)
		}
		stats, err := json.Marshal(a.Stats)
		if err != nil {
			return fmt.Errorf("failed to encode stats of %s: %w", a.ID, err)
		}
		rows[i] = []interface{}{
			runID, a.ID, a.Archetype, string(a.State),
			a.Food, a.Treasure, a.Energy,
			beliefs, stats,
		}
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"agent_summaries"}, summaryColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy agent summaries: %w", err)
	}
	if int(n) != len(agents) {
		return fmt.Errorf("mismatch in copied agent summaries count: expected %d, got %d", len(agents), n)
	}
	return nil
}

func (s *Store) persistEvents(ctx context.Context, tx pgx.Tx, runID string, events []agent.Event) error {
	rows := make([][]interface{}, len(events))
	for i, e := range events {
		rows[i] = []interface{}{
			runID, i, e.AgentID, string(e.Type), e.At.Milliseconds(),
			e.Goal, e.Action, e.Plan, e.Cost, string(e.Reason),
		}
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"agent_events"}, eventColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy agent events: %w", err)
	}
	if int(n) != len(events) {
		return fmt.Errorf("mismatch in copied agent events count: expected %d, got %d", len(events), n)
	}
	return nil
}

// RunRecord is a stored run as returned by ListRuns.
type RunRecord struct {
	ID         string            `json:"id"`
	Scenario   string            `json:"scenario"`
	Seed       uint64            `json:"seed"`
	Ticks      int               `json:"ticks"`
	Simulated  time.Duration     `json:"simulated_ns"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Totals     simulation.Totals `json:"totals"`
}

// ListRuns returns the most recent runs of a scenario, newest first. An empty
// scenario matches every run.
func (s *Store) ListRuns(ctx context.Context, scenario string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT id, scenario, seed, ticks, simulated_ms, started_at, finished_at, totals
        FROM runs
        WHERE ($1 = '' OR scenario = $1)
        ORDER BY started_at DESC
        LIMIT $2;
    `
	rows, err := s.pool.Query(ctx, query, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var seed, simulatedMS int64
		var totals []byte
		if err := rows.Scan(&r.ID, &r.Scenario, &seed, &r.Ticks, &simulatedMS, &r.StartedAt, &r.FinishedAt, &totals); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if err := json.Unmarshal(totals, &r.Totals); err != nil {
			return nil, fmt.Errorf("failed to decode totals of run %s: %w", r.ID, err)
		}
		r.Seed = uint64(seed)
		r.Simulated = time.Duration(simulatedMS) * time.Millisecond
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}

// CountEvents returns how often each event type occurred in a stored run.
func (s *Store) CountEvents(ctx context.Context, runID string) (map[agent.EventType]int, error) {
	query := `
        SELECT type, COUNT(*)
        FROM agent_events
        WHERE run_id = $1
        GROUP BY type;
    `
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	counts := make(map[agent.EventType]int)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[agent.EventType(typ)] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return counts, nil
}

// jsonObject encodes a map, writing "{}" for nil so jsonb columns never hold null.
func jsonObject[M ~map[string]int](m M) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
