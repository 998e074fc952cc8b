package images

import (
	"context"

	"blogapi/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, image *models.BlogImage) (*models.BlogImage, error)
	SelectByPostID(ctx context.Context, postID int64) ([]*models.BlogImage, error)
	GetByStorageKey(ctx context.Context, key string) (*models.BlogImage, error)
	DeleteByStorageKey(ctx context.Context, key string) error
	// Attach sets the owning post of a stored image; postID 0 detaches it.
	Attach(ctx context.Context, key string, postID int64) error
}
