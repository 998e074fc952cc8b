// Package services contains server-side business logic: account management,
// token issuing, post lifecycle and media reconciliation.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"blogapi/internal/common"
	"blogapi/internal/logging"
	"blogapi/internal/server/models"
	"blogapi/internal/server/repositories/repomanager"
	"blogapi/internal/server/storage"

	"golang.org/x/sync/errgroup"
)

// MediaItem is one desired attachment for a post. Either Key references an
// already-stored object, or Data holds raw content to upload under a freshly
// generated key.
type MediaItem struct {
	Key      string
	Data     []byte
	Filename string
	Alt      string
	Caption  string
	Credit   string
}

func uploadKey(item MediaItem) string {
	key := storage.RandomStorageKey()
	if item.Filename != "" {
		key += "_" + item.Filename
	}
	return key
}

// Phase names the reconciliation step a failure happened in.
type Phase string

const (
	PhaseRemove Phase = "remove"
	PhaseAdd    Phase = "add"
)

// ReconcileError identifies which key failed and in which phase. It unwraps
// to common.ErrorUploadFailure so callers can match the taxonomy with
// errors.Is while still reaching the failing key with errors.As.
type ReconcileError struct {
	Phase Phase
	Key   string
	Err   error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("media reconciliation: %s phase failed for %q: %v", e.Phase, e.Key, e.Err)
}

func (e *ReconcileError) Unwrap() error { return common.ErrorUploadFailure }

// MediaReconciler converges the stored image set of a post toward a desired
// set: uploads what is new, removes what is no longer wanted, leaves the
// intersection untouched. Reconciliations for the same post are serialized
// internally; different posts proceed in parallel.
type MediaReconciler struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	blobs  storage.BlobStore
	logger logging.Logger

	mu    sync.Mutex
	locks map[int64]*postLock
}

type postLock struct {
	mu   sync.Mutex
	refs int
}

func NewMediaReconciler(db *sql.DB, rm repomanager.RepositoryManager, blobs storage.BlobStore, logger logging.Logger) *MediaReconciler {
	return &MediaReconciler{
		db:     db,
		rm:     rm,
		blobs:  blobs,
		logger: logger,
		locks:  make(map[int64]*postLock),
	}
}

// acquire takes the per-post lock and returns its release func. Entries are
// reference counted and dropped once the last holder releases, so the map
// does not grow with the number of posts ever reconciled.
func (r *MediaReconciler) acquire(postID int64) func() {
	r.mu.Lock()
	l, ok := r.locks[postID]
	if !ok {
		l = &postLock{}
		r.locks[postID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, postID)
		}
		r.mu.Unlock()
	}
}

// Reconcile brings the attached image set of postID in line with desired and
// returns the final set. The operation is all-or-nothing from the caller's
// perspective: if the add phase fails midway, blobs uploaded by this call are
// deleted again before the error is returned. The two stores are not
// transactional; blob operations are ordered before record operations so a
// failure never leaves a record pointing at a missing object.
func (r *MediaReconciler) Reconcile(ctx context.Context, postID int64, desired []MediaItem) ([]*models.BlogImage, error) {
	release := r.acquire(postID)
	defer release()

	imageRepo := r.rm.Images(r.db)

	existing, err := imageRepo.SelectByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("collecting existing images: %w", err)
	}

	existingByKey := make(map[string]*models.BlogImage, len(existing))
	for _, img := range existing {
		existingByKey[img.StorageKey] = img
	}

	desiredKeys := make(map[string]struct{}, len(desired))
	for _, item := range desired {
		if item.Key != "" {
			desiredKeys[item.Key] = struct{}{}
		}
	}

	// Remove phase: blob first, record second. A failed blob delete keeps
	// the record, because an orphaned object is recoverable manually but a
	// record pointing at nothing is not.
	var result []*models.BlogImage
	for _, img := range existing {
		if _, keep := desiredKeys[img.StorageKey]; keep {
			result = append(result, img)
			continue
		}
		if err := r.blobs.Delete(ctx, img.StorageKey); err != nil {
			return nil, &ReconcileError{Phase: PhaseRemove, Key: img.StorageKey, Err: err}
		}
		if err := imageRepo.DeleteByStorageKey(ctx, img.StorageKey); err != nil {
			return nil, &ReconcileError{Phase: PhaseRemove, Key: img.StorageKey, Err: err}
		}
		r.logger.Info(ctx, "image removed", "post_id", postID, "key", img.StorageKey)
	}

	added, err := r.addPhase(ctx, postID, desired, existingByKey)
	if err != nil {
		return nil, err
	}

	return append(result, added...), nil
}

type uploaded struct {
	item MediaItem
	key  string
	url  string
}

// addPhase uploads new content and attaches referenced keys. Uploads fan out
// concurrently; they target independent keys. Record writes stay sequential
// within the reconciliation.
func (r *MediaReconciler) addPhase(ctx context.Context, postID int64, desired []MediaItem, existingByKey map[string]*models.BlogImage) ([]*models.BlogImage, error) {
	imageRepo := r.rm.Images(r.db)

	var toUpload []MediaItem
	var toAttach []MediaItem
	for _, item := range desired {
		if item.Key == "" {
			toUpload = append(toUpload, item)
			continue
		}
		if _, ok := existingByKey[item.Key]; !ok {
			toAttach = append(toAttach, item)
		}
	}

	var mu sync.Mutex
	var done []uploaded
	var failedKey string

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range toUpload {
		g.Go(func() error {
			key := uploadKey(item)
			url, err := r.blobs.Put(gctx, key, item.Data)
			if err != nil {
				mu.Lock()
				if failedKey == "" {
					failedKey = key
				}
				mu.Unlock()
				return err
			}
			mu.Lock()
			done = append(done, uploaded{item: item, key: key, url: url})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.compensateBlobs(ctx, done)
		return nil, &ReconcileError{Phase: PhaseAdd, Key: failedKey, Err: err}
	}

	var added []*models.BlogImage
	var createdKeys []string
	var attachedKeys []string

	fail := func(key string, err error) ([]*models.BlogImage, error) {
		r.compensateAttached(ctx, attachedKeys)
		r.compensateRecords(ctx, createdKeys)
		r.compensateBlobs(ctx, done)
		return nil, &ReconcileError{Phase: PhaseAdd, Key: key, Err: err}
	}

	for _, u := range done {
		img := &models.BlogImage{
			BlogPostID: postID,
			StorageKey: u.key,
			URL:        u.url,
			Alt:        u.item.Alt,
			Caption:    u.item.Caption,
			Credit:     u.item.Credit,
		}
		img, err := imageRepo.Create(ctx, img)
		if err != nil {
			return fail(u.key, err)
		}
		createdKeys = append(createdKeys, u.key)
		added = append(added, img)
		r.logger.Info(ctx, "image uploaded", "post_id", postID, "key", u.key)
	}

	for _, item := range toAttach {
		if err := imageRepo.Attach(ctx, item.Key, postID); err != nil {
			return fail(item.Key, err)
		}
		attachedKeys = append(attachedKeys, item.Key)
		img, err := imageRepo.GetByStorageKey(ctx, item.Key)
		if err != nil {
			return fail(item.Key, err)
		}
		added = append(added, img)
	}

	return added, nil
}

// compensateBlobs removes objects uploaded earlier in this call. Failures are
// logged, not returned: the original error is what the caller needs to see.
func (r *MediaReconciler) compensateBlobs(ctx context.Context, done []uploaded) {
	for _, u := range done {
		if err := r.blobs.Delete(ctx, u.key); err != nil {
			r.logger.Error(ctx, "compensation: blob delete failed", "key", u.key, "error", err.Error())
		}
	}
}

// compensateAttached returns assets attached earlier in this call to the
// unattached state, so a failed reconcile leaves no partial ownership behind.
func (r *MediaReconciler) compensateAttached(ctx context.Context, keys []string) {
	imageRepo := r.rm.Images(r.db)
	for _, key := range keys {
		if err := imageRepo.Attach(ctx, key, 0); err != nil {
			r.logger.Error(ctx, "compensation: detach failed", "key", key, "error", err.Error())
		}
	}
}

func (r *MediaReconciler) compensateRecords(ctx context.Context, keys []string) {
	imageRepo := r.rm.Images(r.db)
	for _, key := range keys {
		if err := imageRepo.DeleteByStorageKey(ctx, key); err != nil {
			r.logger.Error(ctx, "compensation: record delete failed", "key", key, "error", err.Error())
		}
	}
}
