package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blogapi/internal/common"
	"blogapi/internal/logging"
	"blogapi/internal/server/models"
	"blogapi/internal/server/query"
	"blogapi/internal/server/repositories/repomanager"
)

// PostView is a post together with its attached images, the shape returned
// to callers of the lifecycle operations.
type PostView struct {
	Post   *models.BlogPost
	Images []*models.BlogImage
}

// PostService owns the create/update/delete/find/search flow for blog posts,
// delegating media changes to the MediaReconciler and search filters to the
// query package.
type PostService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	media  *MediaReconciler
	logger logging.Logger
}

func NewPostService(db *sql.DB, rm repomanager.RepositoryManager, media *MediaReconciler, logger logging.Logger) *PostService {
	return &PostService{db: db, rm: rm, media: media, logger: logger}
}

// Create persists a new post for its declared author and reconciles the
// desired media against an empty set (pure adds). The declared author must
// exist and must be the acting user.
//
// If media reconciliation fails after the post row was created, the row is
// not rolled back: the created post is returned together with the
// reconciliation error, and the caller decides how to present the partial
// success.
func (s *PostService) Create(ctx context.Context, post *models.BlogPost, media []MediaItem, actingUserID int64) (*PostView, error) {
	if post.Title == "" || post.Content == "" {
		return nil, fmt.Errorf("%w: title and content are required", common.ErrorInvalidInput)
	}
	if post.AuthorID != actingUserID {
		return nil, common.ErrorForbidden
	}

	if _, err := s.rm.Users(s.db).GetByID(ctx, post.AuthorID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorAuthorNotFound
		}
		return nil, err
	}

	if post.Status == "" {
		post.Status = models.StatusDraft
	}

	post, err := s.rm.Posts(s.db).Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	imgs, err := s.media.Reconcile(ctx, post.ID, media)
	if err != nil {
		s.logger.Error(ctx, "post created but media reconciliation failed",
			"post_id", post.ID, "error", err.Error())
		return &PostView{Post: post}, err
	}

	return &PostView{Post: post, Images: imgs}, nil
}

// Update applies a partial patch to an existing post. Authorship is immutable:
// a patch whose ID or AuthorID disagrees with the stored row is Forbidden.
// Empty patch fields are left unchanged. desiredMedia == nil means "do not
// touch attachments".
func (s *PostService) Update(ctx context.Context, id int64, patch *models.BlogPost, desiredMedia []MediaItem, actingUserID int64) (*PostView, error) {
	existing, err := s.getAlive(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.ID != id {
		return nil, common.ErrorForbidden
	}
	if patch.AuthorID != existing.AuthorID {
		return nil, common.ErrorForbidden
	}
	if existing.AuthorID != actingUserID {
		return nil, common.ErrorForbidden
	}

	if patch.Title != "" {
		existing.Title = patch.Title
	}
	if patch.Content != "" {
		existing.Content = patch.Content
	}
	if patch.Status != "" {
		existing.Status = patch.Status
	}

	if err := s.rm.Posts(s.db).Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}

	imageRepo := s.rm.Images(s.db)
	var imgs []*models.BlogImage
	if desiredMedia != nil {
		imgs, err = s.media.Reconcile(ctx, id, desiredMedia)
		if err != nil {
			return nil, err
		}
	} else {
		imgs, err = imageRepo.SelectByPostID(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	return &PostView{Post: existing, Images: imgs}, nil
}

// Delete soft-deletes a post: the row stays, status flips to DELETED and the
// post disappears from normal reads. Attached media is left in place.
func (s *PostService) Delete(ctx context.Context, id int64, actingUserID int64) error {
	existing, err := s.getAlive(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != actingUserID {
		return common.ErrorForbidden
	}

	existing.Status = models.StatusDeleted
	if err := s.rm.Posts(s.db).Update(ctx, existing); err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}
	return nil
}

// GetByID returns a post with its images. Deleted posts are NotFound. On the
// public path (privileged == false) only PUBLISHED posts are visible; other
// states yield ErrorUnauthorized.
func (s *PostService) GetByID(ctx context.Context, id int64, privileged bool) (*PostView, error) {
	post, err := s.getAlive(ctx, id)
	if err != nil {
		return nil, err
	}
	if !privileged && post.Status != models.StatusPublished {
		return nil, common.ErrorUnauthorized
	}

	imgs, err := s.rm.Images(s.db).SelectByPostID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PostView{Post: post, Images: imgs}, nil
}

// Search runs a whitelisted filter over posts. The public path always filters
// on PUBLISHED regardless of caller input, and treats zero matches as
// ErrorNotFound so misconfigured filters surface instead of silently
// returning nothing. Privileged callers bypass both rules.
func (s *PostService) Search(ctx context.Context, params map[string]string, privileged bool) ([]*models.BlogPost, error) {
	effective := make(map[string]string, len(params)+1)
	for k, v := range params {
		effective[k] = v
	}
	if !privileged {
		effective["status"] = string(models.StatusPublished)
	}

	predicate, err := query.Build(effective, query.BlogPostSchema())
	if err != nil {
		return nil, err
	}

	result, err := s.rm.Posts(s.db).SelectByPredicate(ctx, predicate)
	if err != nil {
		return nil, fmt.Errorf("error searching posts: %w", err)
	}
	if len(result) == 0 && !privileged {
		return nil, common.ErrorNotFound
	}
	return result, nil
}

// getAlive loads a post and hides soft-deleted rows behind NotFound.
func (s *PostService) getAlive(ctx context.Context, id int64) (*models.BlogPost, error) {
	post, err := s.rm.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status == models.StatusDeleted {
		return nil, common.ErrorNotFound
	}
	return post, nil
}
