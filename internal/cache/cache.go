// Package cache holds the device-local profile snapshot. It is a fallback for
// when the backend is unreachable, so storage failures are never surfaced:
// a failed read is a miss and a failed write is a no-op.
package cache

import (
	"context"

	"hostelcare/internal/model"
)

// Store is a single mutable slot per device. Read returns false when no
// snapshot exists, when the stored subject does not match the one asked for,
// or when the storage layer fails.
type Store interface {
	Read(ctx context.Context, subjectID string) (model.CachedSnapshot, bool)
	Write(ctx context.Context, snapshot model.CachedSnapshot)
	Clear(ctx context.Context)
}
