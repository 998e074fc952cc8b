package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strconv"

	"blogapi/internal/common"
	"blogapi/internal/dbx"
	"blogapi/internal/logging"
	"blogapi/internal/server/auth"
	"blogapi/internal/server/models"
	"blogapi/internal/server/query"
	"blogapi/internal/server/repositories/repomanager"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// UserService provides account operations:
// - Register: validate and create users
// - Login: verify credentials and mint a token pair
// - Refresh: rotate a refresh token into a new pair
// - Update/Delete: owner-only profile changes and soft deletion
// - GetByID/FindByParams: read and filtered listing of live accounts
type UserService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	tokens *auth.TokenService
	logger logging.Logger
}

func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, tokens *auth.TokenService, logger logging.Logger) *UserService {
	return &UserService{db: db, rm: rm, tokens: tokens, logger: logger}
}

func validateNewUser(user *models.User, password string) error {
	if user.FirstName == "" || user.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", common.ErrorInvalidInput)
	}
	if user.UserName == "" {
		return fmt.Errorf("%w: username is required", common.ErrorInvalidInput)
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return fmt.Errorf("%w: email is not valid", common.ErrorInvalidInput)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorInvalidInput, minPasswordLength)
	}
	return nil
}

// Register creates a new active user. Duplicate email or username is a
// conflict, checked up front and enforced again by the unique constraints.
// The existence checks and the insert run in one transaction.
func (s *UserService) Register(ctx context.Context, user *models.User, password string) (*models.User, error) {
	if err := validateNewUser(user, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}
	user.PasswordHash = string(hash)
	user.Status = models.UserActive

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Users(tx)

		exists, err := repo.ExistsByEmail(ctx, user.Email)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrorEmailExists
		}

		exists, err = repo.ExistsByUsername(ctx, user.UserName)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrorUsernameExists
		}

		user, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.UserName)
	return user, nil
}

// Login verifies the password against the stored bcrypt hash and returns a
// fresh token pair. Unknown users and wrong passwords are indistinguishable
// to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	user, err := s.rm.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if user.Status == models.UserDeleted {
		return nil, common.ErrorUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}

	return s.tokens.IssuePair(strconv.FormatInt(user.ID, 10))
}

// Refresh rotates a valid refresh token into a new token pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return s.tokens.Refresh(refreshToken)
}

// Update patches the profile fields of an existing account. Empty patch
// fields keep their current value. Only the account owner may update it.
// A changed email or username is rechecked for uniqueness in the same
// transaction as the write.
func (s *UserService) Update(ctx context.Context, id int64, patch *models.User, actingUserID int64) (*models.User, error) {
	if id != actingUserID {
		return nil, common.ErrorForbidden
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.FirstName != "" {
		user.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		user.LastName = patch.LastName
	}

	emailChanged := patch.Email != "" && patch.Email != user.Email
	if emailChanged {
		if _, err := mail.ParseAddress(patch.Email); err != nil {
			return nil, fmt.Errorf("%w: email is not valid", common.ErrorInvalidInput)
		}
		user.Email = patch.Email
	}
	usernameChanged := patch.UserName != "" && patch.UserName != user.UserName
	if usernameChanged {
		user.UserName = patch.UserName
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Users(tx)

		if emailChanged {
			exists, err := repo.ExistsByEmail(ctx, user.Email)
			if err != nil {
				return err
			}
			if exists {
				return common.ErrorEmailExists
			}
		}
		if usernameChanged {
			exists, err := repo.ExistsByUsername(ctx, user.UserName)
			if err != nil {
				return err
			}
			if exists {
				return common.ErrorUsernameExists
			}
		}

		return repo.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user updated", "user_id", user.ID)
	return user, nil
}

// GetByID returns a single user, NotFound for deleted accounts.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.rm.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status == models.UserDeleted {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

// GetByEmail returns a single user by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.rm.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Status == models.UserDeleted {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

// SelectAll lists all non-deleted users.
func (s *UserService) SelectAll(ctx context.Context) ([]*models.User, error) {
	return s.rm.Users(s.db).SelectAll(ctx)
}

// FindByParams lists live users matching the whitelisted filter parameters.
// An empty parameter set lists everyone.
func (s *UserService) FindByParams(ctx context.Context, params map[string]string) ([]*models.User, error) {
	predicate, err := query.Build(params, query.UserSchema())
	if err != nil {
		return nil, err
	}
	return s.rm.Users(s.db).SelectByPredicate(ctx, predicate)
}

// Delete soft-deletes a user account. Only the account owner may do it.
func (s *UserService) Delete(ctx context.Context, id int64, actingUserID int64) error {
	if id != actingUserID {
		return common.ErrorForbidden
	}
	return s.rm.Users(s.db).SetStatus(ctx, id, models.UserDeleted)
}
