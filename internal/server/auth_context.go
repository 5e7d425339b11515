package server

import (
	"context"

	"tasktrack/internal/models"
)

type callerKey struct{}

// caller is the authenticated session attached to a request by requireSession.
type caller struct {
	Identity models.Identity
	Token    string
}

func withCaller(ctx context.Context, c caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func callerFrom(ctx context.Context) (caller, bool) {
	c, ok := ctx.Value(callerKey{}).(caller)
	return c, ok
}

// identityFromContext returns the caller's identity, or the zero value
// outside requireSession.
func identityFromContext(ctx context.Context) models.Identity {
	c, _ := callerFrom(ctx)
	return c.Identity
}
