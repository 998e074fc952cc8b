package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"blogapi/internal/common"
	"blogapi/internal/server/models"
	"blogapi/internal/server/query"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows(users ...*models.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "username",
		"password_hash", "status", "created_at", "updated_at"})
	for _, u := range users {
		rows.AddRow(u.ID, u.FirstName, u.LastName, u.Email, u.UserName,
			u.PasswordHash, u.Status, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

func TestCreate_DuplicateEmailMapped(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{
		FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", UserName: "jane",
	})
	if !errors.Is(err, common.ErrorEmailExists) {
		t.Fatalf("expected ErrorEmailExists, got %v", err)
	}
}

func TestUpdate_RewritesProfileFields(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users`).
		WithArgs("Janet", "Doe", "janet@example.com", "janet", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.User{
		ID: 5, FirstName: "Janet", LastName: "Doe", Email: "janet@example.com", UserName: "janet",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_NotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.User{ID: 404})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestUpdate_DuplicateUsernameMapped(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := repo.Update(context.Background(), &models.User{ID: 5, UserName: "taken"})
	if !errors.Is(err, common.ErrorUsernameExists) {
		t.Fatalf("expected ErrorUsernameExists, got %v", err)
	}
}

func TestSelectByPredicate_SkipsDeletedAccounts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	u := &models.User{ID: 1, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
		UserName: "jane", Status: models.UserActive, CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery(`SELECT .* FROM users WHERE username = \$1 AND status <> \$2 ORDER BY id`).
		WithArgs("jane", models.UserDeleted).
		WillReturnRows(userRows(u))

	got, err := repo.SelectByPredicate(context.Background(), query.Predicate{
		Where: "username = $1",
		Args:  []any{"jane"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].UserName != "jane" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSelectByPredicate_EmptyPredicateListsLiveUsers(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM users WHERE status <> \$1 ORDER BY id`).
		WithArgs(models.UserDeleted).
		WillReturnRows(userRows())

	got, err := repo.SelectByPredicate(context.Background(), query.Predicate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
