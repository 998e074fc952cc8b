package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"blogapi/internal/common"
	"blogapi/internal/dbx"
	"blogapi/internal/logging"
	"blogapi/internal/server/models"
	imagesrepo "blogapi/internal/server/repositories/images"
	postsrepo "blogapi/internal/server/repositories/posts"
	usersrepo "blogapi/internal/server/repositories/users"
	"blogapi/internal/server/query"
)

// --- shared fakes for service tests ---

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	deletes []string

	failPut    func(key string) error
	failDelete func(key string) error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		if err := f.failPut(key); err != nil {
			return "", err
		}
	}
	f.objects[key] = data
	f.puts = append(f.puts, key)
	return "https://cdn.test/" + key, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		if err := f.failDelete(key); err != nil {
			return err
		}
	}
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeBlobStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type fakeImagesRepo struct {
	mu     sync.Mutex
	byKey  map[string]*models.BlogImage
	nextID int64

	failCreate error
	failAttach error
	failDelete func(key string) error
}

func newFakeImagesRepo() *fakeImagesRepo {
	return &fakeImagesRepo{byKey: make(map[string]*models.BlogImage)}
}

func (f *fakeImagesRepo) seed(postID int64, keys ...string) {
	for _, k := range keys {
		f.nextID++
		f.byKey[k] = &models.BlogImage{ID: f.nextID, BlogPostID: postID, StorageKey: k, URL: "https://cdn.test/" + k}
	}
}

func (f *fakeImagesRepo) Create(ctx context.Context, image *models.BlogImage) (*models.BlogImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.nextID++
	cp := *image
	cp.ID = f.nextID
	f.byKey[cp.StorageKey] = &cp
	return &cp, nil
}

func (f *fakeImagesRepo) SelectByPostID(ctx context.Context, postID int64) ([]*models.BlogImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BlogImage
	for _, img := range f.byKey {
		if img.BlogPostID == postID {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeImagesRepo) GetByStorageKey(ctx context.Context, key string) (*models.BlogImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.byKey[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *img
	return &cp, nil
}

func (f *fakeImagesRepo) DeleteByStorageKey(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		if err := f.failDelete(key); err != nil {
			return err
		}
	}
	if _, ok := f.byKey[key]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byKey, key)
	return nil
}

func (f *fakeImagesRepo) Attach(ctx context.Context, key string, postID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAttach != nil {
		return f.failAttach
	}
	img, ok := f.byKey[key]
	if !ok {
		return common.ErrorNotFound
	}
	img.BlogPostID = postID
	return nil
}

func (f *fakeImagesRepo) attachedKeys(postID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k, img := range f.byKey {
		if img.BlogPostID == postID {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

type fakeUsersRepo struct {
	users map[int64]*models.User

	emailExists    bool
	usernameExists bool
	createErr      error
	updateErr      error

	selectResult  []*models.User
	lastPredicate query.Predicate
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{users: make(map[int64]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, user *models.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return common.ErrorNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.UserName == username {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return f.emailExists, nil
}

func (f *fakeUsersRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return f.usernameExists, nil
}

func (f *fakeUsersRepo) SelectAll(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsersRepo) SelectByPredicate(ctx context.Context, p query.Predicate) ([]*models.User, error) {
	f.lastPredicate = p
	return f.selectResult, nil
}

func (f *fakeUsersRepo) SetStatus(ctx context.Context, id int64, status models.UserStatus) error {
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Status = status
	return nil
}

type fakePostsRepo struct {
	posts  map[int64]*models.BlogPost
	nextID int64

	selectResult  []*models.BlogPost
	lastPredicate query.Predicate
}

func newFakePostsRepo(posts ...*models.BlogPost) *fakePostsRepo {
	f := &fakePostsRepo{posts: make(map[int64]*models.BlogPost)}
	for _, p := range posts {
		f.posts[p.ID] = p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakePostsRepo) Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	f.nextID++
	post.ID = f.nextID
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakePostsRepo) GetByID(ctx context.Context, id int64) (*models.BlogPost, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePostsRepo) Update(ctx context.Context, post *models.BlogPost) error {
	if _, ok := f.posts[post.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *post
	f.posts[post.ID] = &cp
	return nil
}

func (f *fakePostsRepo) SelectByPredicate(ctx context.Context, p query.Predicate) ([]*models.BlogPost, error) {
	f.lastPredicate = p
	return f.selectResult, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakePostsRepo
	i *fakeImagesRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository   { return m.u }
func (m *fakeRepoManager) Posts(db dbx.DBTX) postsrepo.Repository   { return m.p }
func (m *fakeRepoManager) Images(db dbx.DBTX) imagesrepo.Repository { return m.i }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

var errBoom = fmt.Errorf("boom")
