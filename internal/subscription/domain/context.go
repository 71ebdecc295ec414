package domain

import (
	"context"
	"sync"
)

type ctxKey int

const (
	checkoutKey ctxKey = iota
	cancelGuardKey
)

// WithCheckout marks ctx as belonging to a checkout in progress.
func WithCheckout(ctx context.Context) context.Context {
	return context.WithValue(ctx, checkoutKey, true)
}

// InCheckout reports whether ctx was marked by WithCheckout.
func InCheckout(ctx context.Context) bool {
	v, _ := ctx.Value(checkoutKey).(bool)
	return v
}

// CancelGuard records the subscriptions a call chain has started cancelling,
// so a gateway callback re-entering Cancel for the same id can be refused.
type CancelGuard struct {
	mu      sync.Mutex
	visited map[int64]struct{}
}

// Visit records id and reports whether it had been recorded before.
func (g *CancelGuard) Visit(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.visited == nil {
		g.visited = map[int64]struct{}{}
	}
	_, seen := g.visited[id]
	g.visited[id] = struct{}{}
	return seen
}

// WithCancelGuard returns ctx carrying a cancel guard, reusing one already
// present.
func WithCancelGuard(ctx context.Context) (context.Context, *CancelGuard) {
	if guard, ok := CancelGuardFromContext(ctx); ok {
		return ctx, guard
	}
	guard := &CancelGuard{}
	return context.WithValue(ctx, cancelGuardKey, guard), guard
}

func CancelGuardFromContext(ctx context.Context) (*CancelGuard, bool) {
	guard, ok := ctx.Value(cancelGuardKey).(*CancelGuard)
	return guard, ok && guard != nil
}
