package models

import "time"

// BlogImage is the database record for one stored media object. An image may
// be unattached (BlogPostID == 0) right after upload, or attached to exactly
// one post. StorageKey is unique across the bucket.
type BlogImage struct {
	ID         int64
	BlogPostID int64
	StorageKey string
	URL        string
	Alt        string
	Caption    string
	Credit     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
