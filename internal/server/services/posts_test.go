package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogapi/internal/common"
	"blogapi/internal/server/models"
)

func newPostService(rm *fakeRepoManager, blobs *fakeBlobStore) *PostService {
	if rm.i == nil {
		rm.i = newFakeImagesRepo()
	}
	media := NewMediaReconciler(nil, rm, blobs, nopLogger{})
	return NewPostService(nil, rm, media, nopLogger{})
}

func author(id int64) *models.User {
	return &models.User{ID: id, UserName: "author", Status: models.UserActive}
}

func TestCreatePost_Success(t *testing.T) {
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo()}
	s := newPostService(rm, newFakeBlobStore())

	view, err := s.Create(context.Background(), &models.BlogPost{
		Title: "T", Content: "C", AuthorID: 7,
	}, []MediaItem{{Data: []byte("img"), Filename: "i.jpg"}}, 7)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if view.Post.ID == 0 {
		t.Fatalf("created post must have an id")
	}
	if view.Post.Status != models.StatusDraft {
		t.Fatalf("default status must be DRAFT, got %s", view.Post.Status)
	}
	if len(view.Images) != 1 {
		t.Fatalf("expected 1 attached image, got %d", len(view.Images))
	}
}

func TestCreatePost_AuthorNotFound(t *testing.T) {
	rm := &fakeRepoManager{u: newFakeUsersRepo(), p: newFakePostsRepo()}
	s := newPostService(rm, newFakeBlobStore())

	_, err := s.Create(context.Background(), &models.BlogPost{
		Title: "T", Content: "C", AuthorID: 99,
	}, nil, 99)
	if !errors.Is(err, common.ErrorAuthorNotFound) {
		t.Fatalf("expected ErrorAuthorNotFound, got %v", err)
	}
}

func TestCreatePost_ActingUserMustBeAuthor(t *testing.T) {
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo()}
	s := newPostService(rm, newFakeBlobStore())

	_, err := s.Create(context.Background(), &models.BlogPost{
		Title: "T", Content: "C", AuthorID: 7,
	}, nil, 8)
	if !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("expected ErrorForbidden, got %v", err)
	}
}

func TestCreatePost_MediaFailureKeepsPostRow(t *testing.T) {
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo()}
	blobs := newFakeBlobStore()
	blobs.failPut = func(string) error { return errBoom }
	s := newPostService(rm, blobs)

	view, err := s.Create(context.Background(), &models.BlogPost{
		Title: "T", Content: "C", AuthorID: 7,
	}, []MediaItem{{Data: []byte("x"), Filename: "x.jpg"}}, 7)

	if !errors.Is(err, common.ErrorUploadFailure) {
		t.Fatalf("expected ErrorUploadFailure, got %v", err)
	}
	if view == nil || view.Post == nil || view.Post.ID == 0 {
		t.Fatalf("partially created post must be returned, got %+v", view)
	}
	if _, err := rm.p.GetByID(context.Background(), view.Post.ID); err != nil {
		t.Fatalf("post row must not be rolled back: %v", err)
	}
}

func TestUpdatePost_PartialPatch(t *testing.T) {
	existing := &models.BlogPost{ID: 1, Title: "Old", Content: "Body", AuthorID: 7, Status: models.StatusDraft}
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo(existing)}
	s := newPostService(rm, newFakeBlobStore())

	view, err := s.Update(context.Background(), 1, &models.BlogPost{
		ID: 1, AuthorID: 7, Title: "New",
	}, nil, 7)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if view.Post.Title != "New" {
		t.Fatalf("title must be patched, got %q", view.Post.Title)
	}
	if view.Post.Content != "Body" {
		t.Fatalf("omitted content must be left unchanged, got %q", view.Post.Content)
	}
	if view.Post.Status != models.StatusDraft {
		t.Fatalf("omitted status must be left unchanged, got %s", view.Post.Status)
	}
}

func TestUpdatePost_AuthorshipImmutable(t *testing.T) {
	existing := &models.BlogPost{ID: 1, Title: "T", Content: "C", AuthorID: 7, Status: models.StatusDraft}
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo(existing)}
	s := newPostService(rm, newFakeBlobStore())

	_, err := s.Update(context.Background(), 1, &models.BlogPost{
		ID: 1, AuthorID: 8, Title: "New",
	}, nil, 7)
	if !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("expected ErrorForbidden for changed author, got %v", err)
	}
}

func TestUpdatePost_IDMismatch(t *testing.T) {
	existing := &models.BlogPost{ID: 1, Title: "T", Content: "C", AuthorID: 7, Status: models.StatusDraft}
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo(existing)}
	s := newPostService(rm, newFakeBlobStore())

	_, err := s.Update(context.Background(), 1, &models.BlogPost{
		ID: 2, AuthorID: 7,
	}, nil, 7)
	if !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("expected ErrorForbidden for id mismatch, got %v", err)
	}
}

func TestUpdatePost_DeletedIsNotFound(t *testing.T) {
	existing := &models.BlogPost{ID: 1, Title: "T", Content: "C", AuthorID: 7, Status: models.StatusDeleted}
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo(existing)}
	s := newPostService(rm, newFakeBlobStore())

	_, err := s.Update(context.Background(), 1, &models.BlogPost{ID: 1, AuthorID: 7}, nil, 7)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound for deleted post, got %v", err)
	}
}

func TestDeletePost_SoftDelete(t *testing.T) {
	existing := &models.BlogPost{ID: 1, Title: "T", Content: "C", AuthorID: 7, Status: models.StatusPublished}
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo(existing)}
	s := newPostService(rm, newFakeBlobStore())

	if err := s.Delete(context.Background(), 1, 7); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	// Normal reads no longer see the post.
	if _, err := s.GetByID(context.Background(), 1, true); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound after delete, got %v", err)
	}

	// The row still exists with status DELETED.
	row, err := rm.p.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("underlying row must survive: %v", err)
	}
	if row.Status != models.StatusDeleted {
		t.Fatalf("expected status DELETED, got %s", row.Status)
	}
}

func TestGetPost_PublicSeesOnlyPublished(t *testing.T) {
	draft := &models.BlogPost{ID: 1, Title: "T", Content: "C", AuthorID: 7, Status: models.StatusDraft}
	rm := &fakeRepoManager{u: newFakeUsersRepo(author(7)), p: newFakePostsRepo(draft)}
	s := newPostService(rm, newFakeBlobStore())

	if _, err := s.GetByID(context.Background(), 1, false); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("public read of a draft must be Unauthorized, got %v", err)
	}
	if _, err := s.GetByID(context.Background(), 1, true); err != nil {
		t.Fatalf("privileged read of a draft must succeed: %v", err)
	}
}

func TestSearch_PublicForcesPublished(t *testing.T) {
	rm := &fakeRepoManager{u: newFakeUsersRepo(), p: newFakePostsRepo()}
	rm.p.selectResult = []*models.BlogPost{{ID: 1, Status: models.StatusPublished}}
	s := newPostService(rm, newFakeBlobStore())

	_, err := s.Search(context.Background(), map[string]string{"status": "draft", "title": "Go"}, false)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	p := rm.p.lastPredicate
	if !strings.Contains(p.Where, "status =") {
		t.Fatalf("predicate must filter on status: %q", p.Where)
	}
	for _, arg := range p.Args {
		if arg == "DRAFT" {
			t.Fatalf("public search must override the caller's status, args %v", p.Args)
		}
	}
	var forced bool
	for _, arg := range p.Args {
		if arg == "PUBLISHED" {
			forced = true
		}
	}
	if !forced {
		t.Fatalf("expected forced PUBLISHED filter, args %v", p.Args)
	}
}

func TestSearch_PublicZeroMatchesIsNotFound(t *testing.T) {
	rm := &fakeRepoManager{u: newFakeUsersRepo(), p: newFakePostsRepo()}
	s := newPostService(rm, newFakeBlobStore())

	_, err := s.Search(context.Background(), map[string]string{"title": "nope"}, false)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("public zero-match search must be NotFound, got %v", err)
	}

	// Privileged searches may legitimately return nothing.
	got, err := s.Search(context.Background(), map[string]string{"title": "nope"}, true)
	if err != nil {
		t.Fatalf("privileged zero-match search error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestSearch_InvalidParameter(t *testing.T) {
	rm := &fakeRepoManager{u: newFakeUsersRepo(), p: newFakePostsRepo()}
	s := newPostService(rm, newFakeBlobStore())

	_, err := s.Search(context.Background(), map[string]string{"unknownField": "x"}, false)
	if !errors.Is(err, common.ErrorInvalidInput) {
		t.Fatalf("expected ErrorInvalidInput, got %v", err)
	}
}
