package models

import (
	"context"
	"strconv"

	"github.com/safarigo/ridehail/internal/domain/types"
)

// Principal is the resolved identity of an external caller. Identity
// resolution itself lives outside the engine; services only see the
// opaque {id, role} pair.
type Principal struct {
	ID   int64
	Role types.UserRole
}

// ActorID renders the principal id the way audit events record actors.
func (p Principal) ActorID() string {
	return strconv.FormatInt(p.ID, 10)
}

// IsAnonymous reports whether the request carried no credentials.
func (p Principal) IsAnonymous() bool {
	return p.ID == 0 && p.Role == ""
}

type principalCtxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}
