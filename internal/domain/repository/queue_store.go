package repository

import (
	"context"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
)

// QueueStore is the durable offline queue of pending mutating actions.
// Entries are unique per ref; Upsert on an existing ref replaces the action
// and payload while keeping the original queue position.
type QueueStore interface {
	// Upsert records a pending action for ref, superseding any earlier entry
	// with the same ref.
	Upsert(ctx context.Context, ref string, action enum.QueueAction, payload any) error
	// Get returns the entry for ref, or nil when none is pending.
	Get(ctx context.Context, ref string) (*entity.OfflineQueueEntry, error)
	// All returns every pending entry in insertion order.
	All(ctx context.Context) ([]entity.OfflineQueueEntry, error)
	// Delete clears the entry for ref. Missing entries are not an error.
	Delete(ctx context.Context, ref string) error
	// Count returns the number of pending entries.
	Count(ctx context.Context) (int64, error)
	// IsPending reports whether an entry exists for ref.
	IsPending(ctx context.Context, ref string) (bool, error)
}
