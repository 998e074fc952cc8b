// Package images provides the PostgreSQL-backed repository for blog image
// records. The image bytes live in object storage; rows here associate a
// storage key with its owning post.
package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blogapi/internal/common"
	"blogapi/internal/dbx"
	"blogapi/internal/server/models"
)

// PostgresRepository implements image storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const imageColumns = `id, blog_post_id, storage_key, image_url, alt, caption, credit, created_at, updated_at`

func scanImage(row interface{ Scan(...any) error }) (*models.BlogImage, error) {
	img := &models.BlogImage{}
	var postID sql.NullInt64
	err := row.Scan(&img.ID, &postID, &img.StorageKey, &img.URL,
		&img.Alt, &img.Caption, &img.Credit, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, err
	}
	img.BlogPostID = postID.Int64
	return img, nil
}

func nullablePostID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func (r *PostgresRepository) Create(ctx context.Context, image *models.BlogImage) (*models.BlogImage, error) {
	query := `
		INSERT INTO blog_images (blog_post_id, storage_key, image_url, alt, caption, credit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		nullablePostID(image.BlogPostID), image.StorageKey, image.URL,
		image.Alt, image.Caption, image.Credit).
		Scan(&image.ID, &image.CreatedAt, &image.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return image, nil
}

func (r *PostgresRepository) SelectByPostID(ctx context.Context, postID int64) ([]*models.BlogImage, error) {
	query := `SELECT ` + imageColumns + ` FROM blog_images WHERE blog_post_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to select images: %w", err)
	}
	defer rows.Close()

	var result []*models.BlogImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByStorageKey(ctx context.Context, key string) (*models.BlogImage, error) {
	query := `SELECT ` + imageColumns + ` FROM blog_images WHERE storage_key = $1`
	img, err := scanImage(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) DeleteByStorageKey(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_images WHERE storage_key = $1`, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Attach sets the owning post of an existing (possibly unattached) image.
// Attach sets the owning post of a stored image; postID 0 returns the image
// to the unattached state.
func (r *PostgresRepository) Attach(ctx context.Context, key string, postID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE blog_images SET blog_post_id = $1, updated_at = now() WHERE storage_key = $2`,
		nullablePostID(postID), key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
