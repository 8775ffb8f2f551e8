package identity

import "context"

type contextKey struct{}

// NewContext stores a resolved tenant Context on ctx, for per-request
// memoization (spec.md §4.3 contract, §9 design note).
func NewContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext extracts the tenant Context stashed by NewContext, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	return tc, ok
}
