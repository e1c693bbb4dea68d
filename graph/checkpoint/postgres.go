package checkpoint

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEnvVar names the environment variable consulted by
// PostgresURLFromEnv.
const PostgresEnvVar = "WEAVEGRAPH_POSTGRES_URL"

// PostgresURLFromEnv returns the configured Postgres connection string, or
// "" if WEAVEGRAPH_POSTGRES_URL is unset. Unlike the SQLite backend there
// is no sane file-path fallback, so callers must check for an empty string.
func PostgresURLFromEnv() string {
	return os.Getenv(PostgresEnvVar)
}

// PostgresCheckpointer is a PostgreSQL-backed Checkpointer built on an
// externally-owned *pgxpool.Pool, matching the pack's convention of not
// hiding pool lifecycle management inside the store (see
// nevindra-oasis/store/postgres). Schema mirrors SQLiteCheckpointer's
// sessions/steps tables, re-expressed with $n placeholders and ON CONFLICT
// upserts instead of SQLite's ON CONFLICT-with-excluded idiom (Postgres
// supports the same clause, so the SQL reads almost identically).
type PostgresCheckpointer struct {
	pool *pgxpool.Pool
}

// NewPostgresCheckpointer wraps pool and migrates its schema.
func NewPostgresCheckpointer(ctx context.Context, pool *pgxpool.Pool) (*PostgresCheckpointer, error) {
	c := &PostgresCheckpointer{pool: pool}
	if err := c.createTables(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *PostgresCheckpointer) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			concurrency_limit INTEGER NOT NULL,
			last_step INTEGER NOT NULL,
			last_state_json JSONB NOT NULL,
			last_frontier_json JSONB NOT NULL,
			last_versions_seen_json JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS steps (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
			step INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			state_json JSONB NOT NULL,
			frontier_json JSONB NOT NULL,
			versions_seen_json JSONB NOT NULL,
			ran_nodes_json JSONB NOT NULL,
			skipped_nodes_json JSONB NOT NULL,
			updated_channels_json JSONB NOT NULL,
			PRIMARY KEY (session_id, step)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_session_step ON steps(session_id, step)`,
	}
	for _, stmt := range stmts {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("checkpoint: migrate: %w", err)
		}
	}
	return nil
}

func (c *PostgresCheckpointer) Save(ctx context.Context, cp Checkpoint) error {
	stateBytes, err := marshalState(cp.State)
	if err != nil {
		return err
	}
	frontierBytes, err := marshalNodeKinds(cp.Frontier)
	if err != nil {
		return err
	}
	seenBytes, err := marshalVersionsSeen(cp.VersionsSeen)
	if err != nil {
		return err
	}
	ranBytes, err := marshalNodeKinds(cp.RanNodes)
	if err != nil {
		return err
	}
	skippedBytes, err := marshalNodeKinds(cp.SkippedNodes)
	if err != nil {
		return err
	}
	updatedBytes, err := marshalUpdatedChannels(cp.UpdatedChannels)
	if err != nil {
		return err
	}
	stateJSON, frontierJSON, seenJSON, ranJSON, skippedJSON, updatedJSON :=
		string(stateBytes), string(frontierBytes), string(seenBytes), string(ranBytes), string(skippedBytes), string(updatedBytes)

	now := cp.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("checkpoint: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO steps (session_id, step, created_at, state_json, frontier_json, versions_seen_json, ran_nodes_json, skipped_nodes_json, updated_channels_json)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, $7::jsonb, $8::jsonb, $9::jsonb)
		ON CONFLICT (session_id, step) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			state_json = EXCLUDED.state_json,
			frontier_json = EXCLUDED.frontier_json,
			versions_seen_json = EXCLUDED.versions_seen_json,
			ran_nodes_json = EXCLUDED.ran_nodes_json,
			skipped_nodes_json = EXCLUDED.skipped_nodes_json,
			updated_channels_json = EXCLUDED.updated_channels_json
	`, cp.SessionID, cp.Step, now, stateJSON, frontierJSON, seenJSON, ranJSON, skippedJSON, updatedJSON); err != nil {
		return fmt.Errorf("checkpoint: insert step: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO sessions (id, created_at, updated_at, concurrency_limit, last_step, last_state_json, last_frontier_json, last_versions_seen_json)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			concurrency_limit = EXCLUDED.concurrency_limit,
			last_step = EXCLUDED.last_step,
			last_state_json = EXCLUDED.last_state_json,
			last_frontier_json = EXCLUDED.last_frontier_json,
			last_versions_seen_json = EXCLUDED.last_versions_seen_json
	`, cp.SessionID, now, now, cp.ConcurrencyLimit, cp.Step, stateJSON, frontierJSON, seenJSON); err != nil {
		return fmt.Errorf("checkpoint: upsert session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("checkpoint: commit: %w", err)
	}
	return nil
}

func (c *PostgresCheckpointer) LoadLatest(ctx context.Context, sessionID string) (Checkpoint, bool, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT last_step, concurrency_limit, last_state_json, last_frontier_json, last_versions_seen_json, updated_at
		FROM sessions WHERE id = $1
	`, sessionID)

	var (
		step             int
		concurrencyLimit int
		stateJSON        []byte
		frontierJSON     []byte
		seenJSON         []byte
		updatedAt        time.Time
	)
	if err := row.Scan(&step, &concurrencyLimit, &stateJSON, &frontierJSON, &seenJSON, &updatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("checkpoint: load latest: %w", err)
	}

	cp, err := decodeCheckpoint(sessionID, step, concurrencyLimit, string(stateJSON), string(frontierJSON), string(seenJSON), updatedAt)
	if err != nil {
		return Checkpoint{}, false, err
	}
	steps, err := c.ListSteps(ctx, sessionID, step, step)
	if err != nil {
		return Checkpoint{}, false, err
	}
	if len(steps) == 1 {
		cp.RanNodes = steps[0].RanNodes
		cp.SkippedNodes = steps[0].SkippedNodes
		cp.UpdatedChannels = steps[0].UpdatedChannels
	}
	return cp, true, nil
}

func (c *PostgresCheckpointer) ListSteps(ctx context.Context, sessionID string, from, to int) ([]Checkpoint, error) {
	query := `
		SELECT step, created_at, state_json, frontier_json, versions_seen_json, ran_nodes_json, skipped_nodes_json, updated_channels_json
		FROM steps WHERE session_id = $1`
	args := []any{sessionID}
	if from != 0 || to != 0 {
		query += ` AND step >= $2 AND step <= $3`
		args = append(args, from, to)
	}
	query += ` ORDER BY step ASC`

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list steps: %w", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var (
			step         int
			createdAt    time.Time
			stateJSON    []byte
			frontierJSON []byte
			seenJSON     []byte
			ranJSON      []byte
			skippedJSON  []byte
			updatedJSON  []byte
		)
		if err := rows.Scan(&step, &createdAt, &stateJSON, &frontierJSON, &seenJSON, &ranJSON, &skippedJSON, &updatedJSON); err != nil {
			return nil, fmt.Errorf("checkpoint: scan step: %w", err)
		}

		state, err := unmarshalState(stateJSON)
		if err != nil {
			return nil, err
		}
		frontier, err := unmarshalNodeKinds(frontierJSON)
		if err != nil {
			return nil, err
		}
		seen, err := unmarshalVersionsSeen(seenJSON)
		if err != nil {
			return nil, err
		}
		ran, err := unmarshalNodeKinds(ranJSON)
		if err != nil {
			return nil, err
		}
		skipped, err := unmarshalNodeKinds(skippedJSON)
		if err != nil {
			return nil, err
		}
		updated, err := unmarshalUpdatedChannels(updatedJSON)
		if err != nil {
			return nil, err
		}

		out = append(out, Checkpoint{
			SessionID:       sessionID,
			Step:            step,
			State:           state,
			Frontier:        frontier,
			VersionsSeen:    seen,
			RanNodes:        ran,
			SkippedNodes:    skipped,
			UpdatedChannels: updated,
			CreatedAt:       createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint: iterate steps: %w", err)
	}
	return out, nil
}

func (c *PostgresCheckpointer) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("checkpoint: delete session: %w", err)
	}
	return nil
}
