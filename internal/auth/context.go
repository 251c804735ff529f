package auth

import (
	"context"
	"time"

	"github.com/orangehats/orangehats/internal/models"
)

// Identity is the verified session behind an admin request
type Identity struct {
	SessionID string       `json:"-"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity placed by the session middleware
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}
