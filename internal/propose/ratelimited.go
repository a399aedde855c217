package propose

import (
	"context"

	"github.com/calibrant/scenex/internal/ratelimit"
	"github.com/calibrant/scenex/internal/tree"
)

// RateLimitedClient wraps a Client with a token-bucket rate limiter keyed
// by exploration ID. A rate-limited call degrades to zero proposals rather
// than erroring, matching the engine's treatment of any other generator
// shortfall.
type RateLimitedClient struct {
	inner   Client
	limiter *ratelimit.Limiter
}

// NewRateLimitedClient wraps client with a limiter allowing rate calls per
// second with the given burst.
func NewRateLimitedClient(client Client, rate float64, burst int) *RateLimitedClient {
	return &RateLimitedClient{
		inner:   client,
		limiter: ratelimit.NewLimiter(rate, burst),
	}
}

// Propose forwards to the wrapped client unless the exploration's bucket is
// exhausted, in which case it returns no proposals.
func (c *RateLimitedClient) Propose(ctx context.Context, node *tree.Node, sourceContext string, maxProposals int) ([]Proposal, error) {
	if !c.limiter.Allow(node.ExplorationID) {
		return nil, nil
	}
	return c.inner.Propose(ctx, node, sourceContext, maxProposals)
}

// Available reports the wrapped client's availability.
func (c *RateLimitedClient) Available() bool {
	return c.inner.Available()
}
