package tree

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/calibrant/scenex/internal/space"
)

// MemoryStore implements Store for testing and ephemeral runs.
type MemoryStore struct {
	mu           sync.RWMutex
	explorations map[string]Exploration
	nodes        map[string]Node
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		explorations: make(map[string]Exploration),
		nodes:        make(map[string]Node),
	}
}

// CreateExploration persists a new exploration record.
func (s *MemoryStore) CreateExploration(ctx context.Context, exp *Exploration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp.ID == "" {
		return fmt.Errorf("%w: exploration ID is required", space.ErrValidation)
	}
	if _, exists := s.explorations[exp.ID]; exists {
		return fmt.Errorf("exploration already exists: %s", exp.ID)
	}
	s.explorations[exp.ID] = *exp
	return nil
}

// UpdateExploration overwrites the mutable exploration fields.
func (s *MemoryStore) UpdateExploration(ctx context.Context, exp *Exploration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.explorations[exp.ID]
	if !exists {
		return fmt.Errorf("%w: exploration %s", ErrNotFound, exp.ID)
	}
	if current.Status != exp.Status && !current.Status.CanTransition(exp.Status) {
		return fmt.Errorf("%w: exploration %s: %s -> %s", ErrInvalidTransition, exp.ID, current.Status, exp.Status)
	}
	updated := *exp
	updated.UpdatedAt = time.Now().UTC()
	s.explorations[exp.ID] = updated
	return nil
}

// GetExploration retrieves an exploration by ID.
func (s *MemoryStore) GetExploration(ctx context.Context, id string) (*Exploration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, exists := s.explorations[id]
	if !exists {
		return nil, fmt.Errorf("%w: exploration %s", ErrNotFound, id)
	}
	return &exp, nil
}

// CreateNode persists a new node after checking tree invariants.
func (s *MemoryStore) CreateNode(ctx context.Context, node *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := node.Validate(); err != nil {
		return err
	}
	if _, exists := s.explorations[node.ExplorationID]; !exists {
		return fmt.Errorf("%w: exploration %s", ErrNotFound, node.ExplorationID)
	}
	if _, exists := s.nodes[node.ID]; exists {
		return fmt.Errorf("node already exists: %s", node.ID)
	}
	if node.ParentID != "" {
		parent, exists := s.nodes[node.ParentID]
		if !exists {
			return fmt.Errorf("%w: parent node %s", ErrNotFound, node.ParentID)
		}
		if parent.ExplorationID != node.ExplorationID {
			return fmt.Errorf("%w: parent %s belongs to a different exploration", space.ErrValidation, node.ParentID)
		}
	}
	s.nodes[node.ID] = *node
	return nil
}

// UpdateNodeOutcome attaches an evaluation result to a node.
func (s *MemoryStore) UpdateNodeOutcome(ctx context.Context, nodeID string, outcome space.Outcome, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, exists := s.nodes[nodeID]
	if !exists {
		return fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
	}
	o := outcome
	node.Outcome = &o
	node.EvalDuration = elapsed
	s.nodes[nodeID] = node
	return nil
}

// UpdateNodeStatus advances a node's status, enforcing one-way transitions.
func (s *MemoryStore) UpdateNodeStatus(ctx context.Context, nodeID string, status NodeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, exists := s.nodes[nodeID]
	if !exists {
		return fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
	}
	if node.Status == status {
		return nil
	}
	if !node.Status.CanTransition(status) {
		return fmt.Errorf("%w: node %s: %s -> %s", ErrInvalidTransition, nodeID, node.Status, status)
	}
	node.Status = status
	s.nodes[nodeID] = node
	return nil
}

// GetNode retrieves a node by ID.
func (s *MemoryStore) GetNode(ctx context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, exists := s.nodes[id]
	if !exists {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}
	return &node, nil
}

// GetFrontierNodes returns active nodes ordered by depth, then sequence.
func (s *MemoryStore) GetFrontierNodes(ctx context.Context, explorationID string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frontier := make([]*Node, 0)
	for _, node := range s.nodes {
		if node.ExplorationID == explorationID && node.Status == NodeActive {
			n := node
			frontier = append(frontier, &n)
		}
	}
	sort.Slice(frontier, func(i, j int) bool {
		if frontier[i].Depth != frontier[j].Depth {
			return frontier[i].Depth < frontier[j].Depth
		}
		return frontier[i].Seq < frontier[j].Seq
	})
	return frontier, nil
}

// GetAllNodes returns every node of an exploration ordered by sequence.
func (s *MemoryStore) GetAllNodes(ctx context.Context, explorationID string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*Node, 0)
	for _, node := range s.nodes {
		if node.ExplorationID == explorationID {
			n := node
			nodes = append(nodes, &n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Seq < nodes[j].Seq })
	return nodes, nil
}

// CountByStatus returns node counts per status for an exploration.
func (s *MemoryStore) CountByStatus(ctx context.Context, explorationID string) (map[NodeStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[NodeStatus]int)
	for _, node := range s.nodes {
		if node.ExplorationID == explorationID {
			counts[node.Status]++
		}
	}
	return counts, nil
}

// Close is a no-op for in-memory storage.
func (s *MemoryStore) Close() error {
	return nil
}
