package enrichment

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage collects enrichment calls and tokens for one request. The HTTP layer
// puts it into the context, the enricher writes to it, and the handler reports
// it back in response headers.
type Usage struct {
	mu     sync.Mutex
	tokens int
	calls  int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the collector, or nil if none was set.
// All methods are safe on a nil receiver.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// Add records one remote call and the tokens it consumed.
func (u *Usage) Add(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.tokens += tokens
	u.calls++
	u.mu.Unlock()
}

// Tokens returns the total tokens recorded.
func (u *Usage) Tokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens
}

// Used reports whether the enrichment service was called at all.
func (u *Usage) Used() bool {
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls > 0
}
