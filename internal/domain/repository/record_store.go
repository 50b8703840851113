package repository

import (
	"context"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
)

// RecordStore is the device's durable key/value cache of reference data and
// sale records. Writes are immediately durable and immediately visible to
// subsequent reads on the same device; cross-device visibility is the
// realtime feed's job.
type RecordStore interface {
	// Get decodes the record for (kind, key) into out. Found is false when
	// no record exists.
	Get(ctx context.Context, kind enum.RecordKind, key string, out any) (found bool, err error)
	// Put encodes value as JSON and upserts it under (kind, key).
	Put(ctx context.Context, kind enum.RecordKind, key string, value any) error
	// Remove deletes the record for (kind, key). Missing records are not an
	// error.
	Remove(ctx context.Context, kind enum.RecordKind, key string) error
	// RemoveAll deletes every record of the given kind.
	RemoveAll(ctx context.Context, kind enum.RecordKind) error
	// List returns all records of a kind, most recently updated first.
	List(ctx context.Context, kind enum.RecordKind) ([]entity.Record, error)
	// Count returns the number of records of a kind.
	Count(ctx context.Context, kind enum.RecordKind) (int64, error)
}
