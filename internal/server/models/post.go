// Package models defines server-side data models persisted in the database.
package models

import (
	"strings"
	"time"
)

// BlogStatus is the lifecycle state of a blog post. Deleted posts are kept
// in the database and filtered out of normal reads (soft delete).
type BlogStatus string

const (
	StatusDraft     BlogStatus = "DRAFT"
	StatusPublished BlogStatus = "PUBLISHED"
	StatusArchived  BlogStatus = "ARCHIVED"
	StatusDeleted   BlogStatus = "DELETED"
)

// ParseBlogStatus converts a client-supplied string into a BlogStatus.
// Matching is case-insensitive; unknown values return false.
func ParseBlogStatus(s string) (BlogStatus, bool) {
	switch BlogStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusDraft:
		return StatusDraft, true
	case StatusPublished:
		return StatusPublished, true
	case StatusArchived:
		return StatusArchived, true
	case StatusDeleted:
		return StatusDeleted, true
	}
	return "", false
}

// BlogPost is a single authored post. AuthorID is immutable after creation.
type BlogPost struct {
	ID        int64
	Title     string
	Content   string
	AuthorID  int64
	Status    BlogStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
