// Package propose provides the proposal-generator collaborator: an external,
// non-deterministic service that suggests candidate design modifications for
// a tree node. Responses are validated into strict Proposal structures at
// the boundary; generator failures always degrade to zero proposals and
// never abort an exploration round.
package propose

import (
	"context"
	"time"

	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

const (
	// MaxProposals is the most candidates a single generator call may yield.
	MaxProposals = 4

	// MaxDeltaMagnitude bounds a single proposal delta. Larger magnitudes
	// are clamped, not rejected.
	MaxDeltaMagnitude = 0.10
)

// Proposal is one externally generated candidate modification: a
// human-readable action, its category, the generator's rationale, and the
// parameter deltas to apply to the parent configuration.
type Proposal struct {
	Action    string             `json:"action" yaml:"action"`
	Category  string             `json:"category" yaml:"category"`
	Rationale string             `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Deltas    map[string]float64 `json:"deltas" yaml:"deltas"`
}

// ClientConfig configures a proposal client.
type ClientConfig struct {
	// Provider identifies the backend: "anthropic", "openai", "ollama", "mock".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider (not used for ollama or mock).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API endpoint URL. Used for ollama or custom
	// OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to use for requests.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout is the maximum duration to wait for a response. A timeout is
	// treated like any other generator failure: zero proposals.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider: "anthropic",
		Timeout:  30 * time.Second,
	}
}

// Client defines the interface for proposal generation.
type Client interface {
	// Propose returns up to maxProposals candidate modifications for the
	// given node. Returned proposals are raw: callers sanitize them with
	// Sanitize before use. One call counts as one unit against the
	// exploration's proposal budget regardless of how many candidates it
	// returns.
	Propose(ctx context.Context, node *tree.Node, sourceContext string, maxProposals int) ([]Proposal, error)

	// Available returns true if the client is configured and ready.
	Available() bool
}

// Sanitize applies the boundary rules to raw generator output:
//   - proposals with an empty action are dropped
//   - proposals whose category is outside the allowed set are dropped
//   - deltas naming dimensions absent from the parent configuration are dropped
//   - delta magnitudes over MaxDeltaMagnitude are clamped, not rejected
//   - proposals left with no usable deltas are dropped
//   - at most maxProposals (capped at MaxProposals) survive
//
// An empty category set accepts any category.
func Sanitize(raw []Proposal, categories []string, parent space.Configuration, maxProposals int) []Proposal {
	if maxProposals <= 0 || maxProposals > MaxProposals {
		maxProposals = MaxProposals
	}
	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}

	accepted := make([]Proposal, 0, len(raw))
	for _, p := range raw {
		if p.Action == "" {
			continue
		}
		if len(allowed) > 0 && !allowed[p.Category] {
			continue
		}

		deltas := make(map[string]float64, len(p.Deltas))
		for dim, d := range p.Deltas {
			if !parent.Has(dim) {
				continue
			}
			if d > MaxDeltaMagnitude {
				d = MaxDeltaMagnitude
			} else if d < -MaxDeltaMagnitude {
				d = -MaxDeltaMagnitude
			}
			deltas[dim] = d
		}
		if len(deltas) == 0 {
			continue
		}

		accepted = append(accepted, Proposal{
			Action:    p.Action,
			Category:  p.Category,
			Rationale: p.Rationale,
			Deltas:    deltas,
		})
		if len(accepted) == maxProposals {
			break
		}
	}
	return accepted
}
