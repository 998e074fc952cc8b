package posts

import (
	"context"

	"blogapi/internal/server/models"
	"blogapi/internal/server/query"
)

type Repository interface {
	Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error)
	GetByID(ctx context.Context, id int64) (*models.BlogPost, error)
	Update(ctx context.Context, post *models.BlogPost) error
	SelectByPredicate(ctx context.Context, p query.Predicate) ([]*models.BlogPost, error)
}
