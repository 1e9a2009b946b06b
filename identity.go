package filevault

import "context"

// Principal is the authenticated user resolved for one request. It is passed
// explicitly through the request context by the transport layer; there is no
// ambient global identity.
type Principal struct {
	UserID   int64
	Username string
}

type principalKey struct{}

// WithPrincipal returns a new context carrying the given principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the principal stored by WithPrincipal.
// The second return value reports whether a principal was present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
