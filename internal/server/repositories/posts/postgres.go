// Package posts provides the PostgreSQL-backed repository for blog posts,
// including execution of dynamically built search predicates.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blogapi/internal/common"
	"blogapi/internal/dbx"
	"blogapi/internal/server/models"
	"blogapi/internal/server/query"
)

// PostgresRepository implements post storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const postColumns = `id, title, content, author_id, status, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.BlogPost, error) {
	p := &models.BlogPost{}
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	query := `
		INSERT INTO blog_posts (title, content, author_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		post.Title, post.Content, post.AuthorID, post.Status).
		Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return post, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.BlogPost, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE id = $1`
	p, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, post *models.BlogPost) error {
	query := `
		UPDATE blog_posts
		SET title = $1, content = $2, status = $3, updated_at = now()
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, post.Title, post.Content, post.Status, post.ID)
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

// SelectByPredicate executes a predicate built by the query package. An empty
// predicate selects all rows.
func (r *PostgresRepository) SelectByPredicate(ctx context.Context, p query.Predicate) ([]*models.BlogPost, error) {
	q := `SELECT ` + postColumns + ` FROM blog_posts`
	if p.Where != "" {
		q += ` WHERE ` + p.Where
	}
	q += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, q, p.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	var result []*models.BlogPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
