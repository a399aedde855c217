package tree

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/calibrant/scenex/internal/space"
)

// SQLiteStore implements Store using SQLite for persistence. SQLite works
// best with a single writer, which matches the single-controller-per-
// exploration ownership model.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a SQLite-backed store rooted at dir, creating the
// directory and database file as needed.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, "scenex.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// CreateExploration persists a new exploration record.
func (s *SQLiteStore) CreateExploration(ctx context.Context, exp *Exploration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp.ID == "" {
		return fmt.Errorf("%w: exploration ID is required", space.ErrValidation)
	}
	categories, err := json.Marshal(exp.Config.Categories)
	if err != nil {
		return fmt.Errorf("marshaling categories: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	createdAt := exp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO explorations (
			id, source_context,
			goal_dimension, goal_threshold, cost_dimension, risk_dimension,
			beam_width, max_depth, max_proposal_calls, sample_size, random_seed, categories,
			current_depth, node_count, proposal_calls, best_goal_value,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.SourceContext,
		exp.Goal.Dimension, exp.Goal.Threshold, exp.Objectives.CostDimension, exp.Objectives.RiskDimension,
		exp.Config.BeamWidth, exp.Config.MaxDepth, exp.Config.MaxProposalCalls, exp.Config.SampleSize,
		exp.Config.RandomSeed, string(categories),
		exp.CurrentDepth, exp.NodeCount, exp.ProposalCalls, exp.BestGoalValue,
		string(exp.Status), createdAt.Format(time.RFC3339Nano), now,
	)
	if err != nil {
		return fmt.Errorf("inserting exploration: %w", err)
	}
	return nil
}

// UpdateExploration overwrites the mutable run-level fields. Terminal
// statuses are final.
func (s *SQLiteStore) UpdateExploration(ctx context.Context, exp *Exploration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM explorations WHERE id = ?`, exp.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: exploration %s", ErrNotFound, exp.ID)
	}
	if err != nil {
		return fmt.Errorf("reading exploration status: %w", err)
	}
	if ExplorationStatus(current) != exp.Status && !ExplorationStatus(current).CanTransition(exp.Status) {
		return fmt.Errorf("%w: exploration %s: %s -> %s", ErrInvalidTransition, exp.ID, current, exp.Status)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE explorations
		SET current_depth = ?, node_count = ?, proposal_calls = ?, best_goal_value = ?,
		    status = ?, updated_at = ?
		WHERE id = ?`,
		exp.CurrentDepth, exp.NodeCount, exp.ProposalCalls, exp.BestGoalValue,
		string(exp.Status), time.Now().UTC().Format(time.RFC3339Nano), exp.ID,
	)
	if err != nil {
		return fmt.Errorf("updating exploration: %w", err)
	}
	return nil
}

// GetExploration retrieves an exploration by ID.
func (s *SQLiteStore) GetExploration(ctx context.Context, id string) (*Exploration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_context,
		       goal_dimension, goal_threshold, cost_dimension, risk_dimension,
		       beam_width, max_depth, max_proposal_calls, sample_size, random_seed, categories,
		       current_depth, node_count, proposal_calls, best_goal_value,
		       status, created_at, updated_at
		FROM explorations WHERE id = ?`, id)

	var exp Exploration
	var categories sql.NullString
	var createdAt, updatedAt string
	var status string
	err := row.Scan(
		&exp.ID, &exp.SourceContext,
		&exp.Goal.Dimension, &exp.Goal.Threshold, &exp.Objectives.CostDimension, &exp.Objectives.RiskDimension,
		&exp.Config.BeamWidth, &exp.Config.MaxDepth, &exp.Config.MaxProposalCalls, &exp.Config.SampleSize,
		&exp.Config.RandomSeed, &categories,
		&exp.CurrentDepth, &exp.NodeCount, &exp.ProposalCalls, &exp.BestGoalValue,
		&status, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: exploration %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning exploration: %w", err)
	}

	exp.Objectives.GoalDimension = exp.Goal.Dimension
	exp.Status = ExplorationStatus(status)
	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &exp.Config.Categories); err != nil {
			return nil, fmt.Errorf("unmarshaling categories: %w", err)
		}
	}
	exp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	exp.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &exp, nil
}

// CreateNode persists a new node after checking tree invariants.
func (s *SQLiteStore) CreateNode(ctx context.Context, node *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := node.Validate(); err != nil {
		return err
	}

	if node.ParentID != "" {
		var parentExploration string
		err := s.db.QueryRowContext(ctx, `SELECT exploration_id FROM nodes WHERE id = ?`, node.ParentID).Scan(&parentExploration)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: parent node %s", ErrNotFound, node.ParentID)
		}
		if err != nil {
			return fmt.Errorf("reading parent node: %w", err)
		}
		if parentExploration != node.ExplorationID {
			return fmt.Errorf("%w: parent %s belongs to a different exploration", space.ErrValidation, node.ParentID)
		}
	}

	config, err := json.Marshal(node.Config.Map())
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}

	var parentID, actionText, actionCategory, actionRationale sql.NullString
	if node.ParentID != "" {
		parentID = sql.NullString{String: node.ParentID, Valid: true}
	}
	if node.Action != nil {
		actionText = sql.NullString{String: node.Action.Text, Valid: true}
		actionCategory = sql.NullString{String: node.Action.Category, Valid: true}
		actionRationale = sql.NullString{String: node.Action.Rationale, Valid: true}
	}

	var success, failure, notAttempted sql.NullFloat64
	if node.Outcome != nil {
		success = sql.NullFloat64{Float64: node.Outcome.Success, Valid: true}
		failure = sql.NullFloat64{Float64: node.Outcome.Failure, Valid: true}
		notAttempted = sql.NullFloat64{Float64: node.Outcome.NotAttempted, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (
			id, exploration_id, parent_id, seq, depth,
			action_text, action_category, action_rationale,
			config, outcome_success, outcome_failure, outcome_not_attempted,
			eval_duration_ns, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.ID, node.ExplorationID, parentID, node.Seq, node.Depth,
		actionText, actionCategory, actionRationale,
		string(config), success, failure, notAttempted,
		node.EvalDuration.Nanoseconds(), string(node.Status),
		node.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

// UpdateNodeOutcome attaches an evaluation result to a node.
func (s *SQLiteStore) UpdateNodeOutcome(ctx context.Context, nodeID string, outcome space.Outcome, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE nodes
		SET outcome_success = ?, outcome_failure = ?, outcome_not_attempted = ?, eval_duration_ns = ?
		WHERE id = ?`,
		outcome.Success, outcome.Failure, outcome.NotAttempted, elapsed.Nanoseconds(), nodeID,
	)
	if err != nil {
		return fmt.Errorf("updating node outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
	}
	return nil
}

// UpdateNodeStatus advances a node's status, enforcing one-way transitions.
func (s *SQLiteStore) UpdateNodeStatus(ctx context.Context, nodeID string, status NodeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM nodes WHERE id = ?`, nodeID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
	}
	if err != nil {
		return fmt.Errorf("reading node status: %w", err)
	}
	if NodeStatus(current) == status {
		return nil
	}
	if !NodeStatus(current).CanTransition(status) {
		return fmt.Errorf("%w: node %s: %s -> %s", ErrInvalidTransition, nodeID, current, status)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE nodes SET status = ? WHERE id = ?`, string(status), nodeID); err != nil {
		return fmt.Errorf("updating node status: %w", err)
	}
	return nil
}

// GetNode retrieves a node by ID.
func (s *SQLiteStore) GetNode(ctx context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, nodeSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying node: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	return scanNode(rows)
}

// GetFrontierNodes returns active nodes ordered by depth, then sequence.
func (s *SQLiteStore) GetFrontierNodes(ctx context.Context, explorationID string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		nodeSelect+` WHERE exploration_id = ? AND status = ? ORDER BY depth, seq`,
		explorationID, string(NodeActive))
	if err != nil {
		return nil, fmt.Errorf("querying frontier: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetAllNodes returns every node of an exploration ordered by sequence.
func (s *SQLiteStore) GetAllNodes(ctx context.Context, explorationID string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		nodeSelect+` WHERE exploration_id = ? ORDER BY seq`, explorationID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// CountByStatus returns node counts per status for an exploration.
func (s *SQLiteStore) CountByStatus(ctx context.Context, explorationID string) (map[NodeStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM nodes WHERE exploration_id = ? GROUP BY status`, explorationID)
	if err != nil {
		return nil, fmt.Errorf("counting nodes: %w", err)
	}
	defer rows.Close()

	counts := make(map[NodeStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[NodeStatus(status)] = count
	}
	return counts, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

const nodeSelect = `
	SELECT id, exploration_id, parent_id, seq, depth,
	       action_text, action_category, action_rationale,
	       config, outcome_success, outcome_failure, outcome_not_attempted,
	       eval_duration_ns, status, created_at
	FROM nodes`

// scanNode reads one node from the current row.
func scanNode(rows *sql.Rows) (*Node, error) {
	var node Node
	var parentID, actionText, actionCategory, actionRationale sql.NullString
	var config string
	var success, failure, notAttempted sql.NullFloat64
	var evalNS int64
	var status, createdAt string

	err := rows.Scan(
		&node.ID, &node.ExplorationID, &parentID, &node.Seq, &node.Depth,
		&actionText, &actionCategory, &actionRationale,
		&config, &success, &failure, &notAttempted,
		&evalNS, &status, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning node: %w", err)
	}

	node.ParentID = parentID.String
	if actionText.Valid {
		node.Action = &AppliedAction{
			Text:      actionText.String,
			Category:  actionCategory.String,
			Rationale: actionRationale.String,
		}
	}

	var dims map[string]float64
	if err := json.Unmarshal([]byte(config), &dims); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	cfg, err := space.NewConfiguration(dims)
	if err != nil {
		return nil, fmt.Errorf("restoring configuration: %w", err)
	}
	node.Config = cfg

	if success.Valid {
		node.Outcome = &space.Outcome{
			Success:      success.Float64,
			Failure:      failure.Float64,
			NotAttempted: notAttempted.Float64,
		}
	}
	node.EvalDuration = time.Duration(evalNS)
	node.Status = NodeStatus(status)
	node.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &node, nil
}

// scanNodes reads all nodes from a result set.
func scanNodes(rows *sql.Rows) ([]*Node, error) {
	nodes := make([]*Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}
