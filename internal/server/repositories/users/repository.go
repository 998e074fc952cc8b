package users

import (
	"context"

	"blogapi/internal/server/models"
	"blogapi/internal/server/query"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	SelectAll(ctx context.Context) ([]*models.User, error)
	SelectByPredicate(ctx context.Context, p query.Predicate) ([]*models.User, error)
	SetStatus(ctx context.Context, id int64, status models.UserStatus) error
}
