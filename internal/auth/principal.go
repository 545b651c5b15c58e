package auth

import (
	"context"

	"github.com/streakrpro/backend/internal/game"
)

// Principal is the caller behind an authenticated request.
type Principal struct {
	UserID      int64
	DisplayName string
	IsAnonymous bool
}

// Identity converts the principal for the game core.
func (p Principal) Identity() *game.Identity {
	return &game.Identity{ID: p.UserID, DisplayName: p.DisplayName, IsAnonymous: p.IsAnonymous}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
