package storage

import (
	"context"

	"mediarelay/internal/domain"
)

// CursorStore persists the single state record holding the scan cursor.
// Implementations treat a missing or unreadable record as empty state rather
// than an error, so a fresh or damaged store means "scan from the beginning".
type CursorStore interface {
	// Load returns the stored state, or an empty state if none is stored.
	Load(ctx context.Context) (domain.State, error)

	// Save replaces the stored state.
	Save(ctx context.Context, state domain.State) error

	// Close releases the underlying resources.
	Close() error
}
