package tree

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite store.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS explorations (
    id TEXT PRIMARY KEY,
    source_context TEXT NOT NULL DEFAULT '',

    goal_dimension TEXT NOT NULL,
    goal_threshold REAL NOT NULL,
    cost_dimension TEXT NOT NULL,
    risk_dimension TEXT NOT NULL,

    -- Bounds
    beam_width INTEGER NOT NULL,
    max_depth INTEGER NOT NULL,
    max_proposal_calls INTEGER NOT NULL,
    sample_size INTEGER NOT NULL,
    random_seed INTEGER NOT NULL DEFAULT 0,
    categories TEXT,  -- JSON array

    -- Run-level statistics (mutated once per iteration)
    current_depth INTEGER NOT NULL DEFAULT 0,
    node_count INTEGER NOT NULL DEFAULT 0,
    proposal_calls INTEGER NOT NULL DEFAULT 0,
    best_goal_value REAL NOT NULL DEFAULT 0,

    status TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
    id TEXT PRIMARY KEY,
    exploration_id TEXT NOT NULL REFERENCES explorations(id) ON DELETE CASCADE,
    parent_id TEXT,  -- NULL only for the root
    seq INTEGER NOT NULL,
    depth INTEGER NOT NULL,

    -- Applied action (NULL for the root)
    action_text TEXT,
    action_category TEXT,
    action_rationale TEXT,

    config TEXT NOT NULL,  -- JSON map of dimension scores

    -- Evaluation result (NULL until evaluated)
    outcome_success REAL,
    outcome_failure REAL,
    outcome_not_attempted REAL,
    eval_duration_ns INTEGER NOT NULL DEFAULT 0,

    status TEXT NOT NULL,
    created_at TEXT NOT NULL,

    UNIQUE (exploration_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_nodes_frontier ON nodes(exploration_id, status, depth, seq);

CREATE TABLE IF NOT EXISTS schema_meta (
    version INTEGER PRIMARY KEY
);
`

// InitSchema initializes the database schema, recording the version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_meta (version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}
