package auth

import "context"

// contextKey is an unexported type for context keys in this package.
type contextKey struct{}

// principalKey is the single context key carrying the resolved principal.
var principalKey contextKey

// ContextWithPrincipal returns a child context carrying the principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached by the auth guard,
// or false when the request was not guarded.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
