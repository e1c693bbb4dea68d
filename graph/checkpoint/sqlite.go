package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultSQLitePath is used when WEAVEGRAPH_SQLITE_URL is unset.
const DefaultSQLitePath = "./weavegraph.db"

// SQLiteEnvVar names the environment variable consulted by
// SQLiteURLFromEnv.
const SQLiteEnvVar = "WEAVEGRAPH_SQLITE_URL"

// SQLiteURLFromEnv returns the configured SQLite path, falling back to
// DefaultSQLitePath.
func SQLiteURLFromEnv() string {
	if v := os.Getenv(SQLiteEnvVar); v != "" {
		return v
	}
	return DefaultSQLitePath
}

// SQLiteCheckpointer is a SQLite-backed Checkpointer. It stores full step
// history in "steps" and a denormalized latest-pointer row per session in
// "sessions" for O(1) resume, per spec.md §4.7.
//
// Ported from the teacher's store.SQLiteStore: WAL mode, a busy_timeout
// pragma, and a single connection (SQLite allows one writer at a time).
type SQLiteCheckpointer struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewSQLiteCheckpointer opens (creating if necessary) the SQLite database
// at path and migrates its schema.
func NewSQLiteCheckpointer(path string) (*SQLiteCheckpointer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("checkpoint: %s: %w", pragma, err)
		}
	}

	c := &SQLiteCheckpointer{db: db, path: path}
	if err := c.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCheckpointer) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			concurrency_limit INTEGER NOT NULL,
			last_step INTEGER NOT NULL,
			last_state_json TEXT NOT NULL,
			last_frontier_json TEXT NOT NULL,
			last_versions_seen_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS steps (
			session_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			state_json TEXT NOT NULL,
			frontier_json TEXT NOT NULL,
			versions_seen_json TEXT NOT NULL,
			ran_nodes_json TEXT NOT NULL,
			skipped_nodes_json TEXT NOT NULL,
			updated_channels_json TEXT NOT NULL,
			PRIMARY KEY (session_id, step),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_session_step ON steps(session_id, step)`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("checkpoint: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (c *SQLiteCheckpointer) Close() error {
	return c.db.Close()
}

func (c *SQLiteCheckpointer) Save(ctx context.Context, cp Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stateJSON, err := marshalState(cp.State)
	if err != nil {
		return err
	}
	frontierJSON, err := marshalNodeKinds(cp.Frontier)
	if err != nil {
		return err
	}
	seenJSON, err := marshalVersionsSeen(cp.VersionsSeen)
	if err != nil {
		return err
	}
	ranJSON, err := marshalNodeKinds(cp.RanNodes)
	if err != nil {
		return err
	}
	skippedJSON, err := marshalNodeKinds(cp.SkippedNodes)
	if err != nil {
		return err
	}
	updatedJSON, err := marshalUpdatedChannels(cp.UpdatedChannels)
	if err != nil {
		return err
	}

	now := cp.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("checkpoint: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO steps (session_id, step, created_at, state_json, frontier_json, versions_seen_json, ran_nodes_json, skipped_nodes_json, updated_channels_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, step) DO UPDATE SET
			created_at = excluded.created_at,
			state_json = excluded.state_json,
			frontier_json = excluded.frontier_json,
			versions_seen_json = excluded.versions_seen_json,
			ran_nodes_json = excluded.ran_nodes_json,
			skipped_nodes_json = excluded.skipped_nodes_json,
			updated_channels_json = excluded.updated_channels_json
	`, cp.SessionID, cp.Step, now, string(stateJSON), string(frontierJSON), string(seenJSON), string(ranJSON), string(skippedJSON), string(updatedJSON)); err != nil {
		return fmt.Errorf("checkpoint: insert step: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at, concurrency_limit, last_step, last_state_json, last_frontier_json, last_versions_seen_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			concurrency_limit = excluded.concurrency_limit,
			last_step = excluded.last_step,
			last_state_json = excluded.last_state_json,
			last_frontier_json = excluded.last_frontier_json,
			last_versions_seen_json = excluded.last_versions_seen_json
	`, cp.SessionID, now, now, cp.ConcurrencyLimit, cp.Step, string(stateJSON), string(frontierJSON), string(seenJSON)); err != nil {
		return fmt.Errorf("checkpoint: upsert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("checkpoint: commit: %w", err)
	}
	return nil
}

func (c *SQLiteCheckpointer) LoadLatest(ctx context.Context, sessionID string) (Checkpoint, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT last_step, concurrency_limit, last_state_json, last_frontier_json, last_versions_seen_json, updated_at
		FROM sessions WHERE id = ?
	`, sessionID)

	var (
		step             int
		concurrencyLimit int
		stateJSON        string
		frontierJSON     string
		seenJSON         string
		updatedAt        time.Time
	)
	if err := row.Scan(&step, &concurrencyLimit, &stateJSON, &frontierJSON, &seenJSON, &updatedAt); err == sql.ErrNoRows {
		return Checkpoint{}, false, nil
	} else if err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint: load latest: %w", err)
	}

	cp, err := decodeCheckpoint(sessionID, step, concurrencyLimit, stateJSON, frontierJSON, seenJSON, updatedAt)
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

func (c *SQLiteCheckpointer) ListSteps(ctx context.Context, sessionID string, from, to int) ([]Checkpoint, error) {
	query := `
		SELECT step, created_at, state_json, frontier_json, versions_seen_json, ran_nodes_json, skipped_nodes_json, updated_channels_json
		FROM steps WHERE session_id = ?`
	args := []any{sessionID}
	if from != 0 || to != 0 {
		query += ` AND step >= ? AND step <= ?`
		args = append(args, from, to)
	}
	query += ` ORDER BY step ASC`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Checkpoint
	for rows.Next() {
		var (
			step         int
			createdAt    time.Time
			stateJSON    string
			frontierJSON string
			seenJSON     string
			ranJSON      string
			skippedJSON  string
			updatedJSON  string
		)
		if err := rows.Scan(&step, &createdAt, &stateJSON, &frontierJSON, &seenJSON, &ranJSON, &skippedJSON, &updatedJSON); err != nil {
			return nil, fmt.Errorf("checkpoint: scan step: %w", err)
		}

		state, err := unmarshalState([]byte(stateJSON))
		if err != nil {
			return nil, err
		}
		frontier, err := unmarshalNodeKinds([]byte(frontierJSON))
		if err != nil {
			return nil, err
		}
		seen, err := unmarshalVersionsSeen([]byte(seenJSON))
		if err != nil {
			return nil, err
		}
		ran, err := unmarshalNodeKinds([]byte(ranJSON))
		if err != nil {
			return nil, err
		}
		skipped, err := unmarshalNodeKinds([]byte(skippedJSON))
		if err != nil {
			return nil, err
		}
		updated, err := unmarshalUpdatedChannels([]byte(updatedJSON))
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

func (c *SQLiteCheckpointer) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("checkpoint: delete session: %w", err)
	}
	return nil
}

func decodeCheckpoint(sessionID string, step, concurrencyLimit int, stateJSON, frontierJSON, seenJSON string, updatedAt time.Time) (Checkpoint, error) {
	state, err := unmarshalState([]byte(stateJSON))
	if err != nil {
		return Checkpoint{}, err
	}
	frontier, err := unmarshalNodeKinds([]byte(frontierJSON))
	if err != nil {
		return Checkpoint{}, err
	}
	seen, err := unmarshalVersionsSeen([]byte(seenJSON))
	if err != nil {
		return Checkpoint{}, err
	}
	return Checkpoint{
		SessionID:        sessionID,
		Step:             step,
		State:            state,
		Frontier:         frontier,
		VersionsSeen:     seen,
		ConcurrencyLimit: concurrencyLimit,
		CreatedAt:        updatedAt,
	}, nil
}
