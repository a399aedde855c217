package propose

import (
	"context"
	"sync"

	"github.com/calibrant/scenex/internal/tree"
)

// MockClient implements Client for testing purposes. It allows scripting
// responses per call, simulating errors, and tracking calls for
// verification.
type MockClient struct {
	mu sync.Mutex

	proposals   []Proposal
	proposeFunc func(node *tree.Node, maxProposals int) ([]Proposal, error)
	err         error
	available   bool

	// Calls records every Propose invocation in order.
	Calls []ProposeCall
}

// ProposeCall records a call to Propose.
type ProposeCall struct {
	NodeID        string
	SourceContext string
	MaxProposals  int
}

// NewMockClient creates a new MockClient with default settings.
// By default it is available and returns no proposals.
func NewMockClient() *MockClient {
	return &MockClient{
		available: true,
		Calls:     make([]ProposeCall, 0),
	}
}

// WithProposals configures a fixed proposal list returned by every call.
func (m *MockClient) WithProposals(proposals []Proposal) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals = proposals
	return m
}

// WithProposeFunc configures a per-call response function, overriding any
// fixed proposal list.
func (m *MockClient) WithProposeFunc(fn func(node *tree.Node, maxProposals int) ([]Proposal, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposeFunc = fn
	return m
}

// WithError configures an error returned by every call.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithAvailable configures the availability flag.
func (m *MockClient) WithAvailable(available bool) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Propose returns the scripted response and records the call.
func (m *MockClient) Propose(ctx context.Context, node *tree.Node, sourceContext string, maxProposals int) ([]Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, ProposeCall{
		NodeID:        node.ID,
		SourceContext: sourceContext,
		MaxProposals:  maxProposals,
	})

	if m.err != nil {
		return nil, m.err
	}
	if m.proposeFunc != nil {
		return m.proposeFunc(node, maxProposals)
	}
	return m.proposals, nil
}

// Available returns the configured availability.
func (m *MockClient) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns the number of Propose calls made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
