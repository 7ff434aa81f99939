package sessiontokens

import (
	"context"
	"time"

	"microblog/internal/server/models"
)

// Repository persists the opaque server-side tokens backing signed-in
// sessions.
type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	Find(ctx context.Context, token string) (*models.SessionToken, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}
