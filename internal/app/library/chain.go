package library

import (
	"context"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain(filters ...Filter) *Chain {
	return &Chain{
		filters: append(make([]Filter, 0, len(filters)), filters...),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the candidate.
// Explicit candidates are only checked by filters that apply to them.
func (c *Chain) Execute(ctx context.Context, cand *Candidate) Result {
	for _, f := range c.filters {
		if cand.Explicit && !f.AppliesToExplicit() {
			continue
		}

		result := f.Check(ctx, cand)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
