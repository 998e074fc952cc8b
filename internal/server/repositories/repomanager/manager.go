// Package repomanager hands out repositories bound to a DBTX, so services can
// run the same repository code against *sql.DB or an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"blogapi/internal/dbx"
	"blogapi/internal/server/repositories/images"
	"blogapi/internal/server/repositories/posts"
	"blogapi/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
	Images(db dbx.DBTX) images.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
