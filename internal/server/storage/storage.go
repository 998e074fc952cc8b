// Package storage abstracts the object store that holds blog image bytes.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlobStore is the capability the media reconciler needs: put bytes under a
// key and get back a public URL, or delete a key. Implementations do not
// retry; transient failures are the caller's concern.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// RandomStorageKey generates a unique object key, prefixed by date so buckets
// stay browsable.
func RandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("blogs/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
