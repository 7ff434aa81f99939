package microposts

import (
	"context"

	"microblog/internal/server/models"
)

// Repository persists microposts. Every list operation orders newest-first
// explicitly; there is no ambient default ordering.
type Repository interface {
	Create(ctx context.Context, post *models.Micropost) (*models.Micropost, error)
	GetByID(ctx context.Context, id string) (*models.Micropost, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Micropost, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Feed(ctx context.Context, userID string, limit, offset int) ([]*models.Micropost, error)
}
