// Package principal carries the acting user through contexts. The service
// stamps createdBy/modifiedBy from it; whoever fronts the service (an HTTP
// layer, a CLI) is responsible for resolving the real actor and attaching
// it before calling in.
package principal

import "context"

// Anonymous is stamped when no actor was attached to the context.
const Anonymous = "anonymous"

type ctxKey struct{}

// WithContext attaches the acting user's identifier to ctx.
func WithContext(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// FromContext returns the acting user, or Anonymous when none was attached.
func FromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(ctxKey{}).(string); ok && actor != "" {
		return actor
	}
	return Anonymous
}
