// Package logging defines the structured logger the rest of the code depends
// on, so the concrete backend (slog today) stays swappable.
package logging

import "context"

// Logger logs structured messages. The variadic args alternate keys and
// values:
//
//	log.Info(ctx, "post published", "post_id", post.ID, "author_id", post.AuthorID)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)

	// Warn is for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given pairs,
	// used to tag a whole subsystem ("module", "rest_server").
	With(args ...any) Logger
}
