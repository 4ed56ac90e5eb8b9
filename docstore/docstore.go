// Package docstore defines the backing-store contract used by keyvmongo.
//
// A backend exposes named collections of records. Each record is addressed by a
// unique string key and may carry an absolute expiry time. Backends own expiry:
// a record whose ExpiresAt has passed is removed by the store's own background
// mechanism on its own schedule. Readers may still observe such a record until
// that happens; keyvmongo does not filter on ExpiresAt.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRejected is returned when a backend dropped a write (e.g. admission policy).
	ErrRejected = errors.New("docstore: write rejected")
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("docstore: closed")
)

// Record is the unit of storage.
type Record struct {
	Key       string
	Value     any
	ExpiresAt *time.Time // nil => never expires
}

// Value is a stored value that has not been decoded yet.
type Value interface {
	// Decode unmarshals the stored value into dst, which must be a non-nil pointer.
	Decode(dst any) error
}

// WriteResult is the acknowledgment of an upsert.
type WriteResult struct {
	Acknowledged bool
	Matched      int64 // records that already existed under the key
	Modified     int64
	Upserted     int64 // records created by the write
}

// Collection is a keyed record set.
// Must be safe for concurrent use.
type Collection interface {
	// Find returns (value, true, nil) on hit; (nil, false, nil) on miss.
	Find(ctx context.Context, key string) (Value, bool, error)

	// Upsert replaces key, value and expiry of the record in one write,
	// creating it when absent.
	Upsert(ctx context.Context, rec Record) (WriteResult, error)

	// Delete removes at most one record and reports whether one was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePrefix removes every record whose key starts with prefix.
	// An empty prefix removes every record in the collection.
	DeletePrefix(ctx context.Context, prefix string) (int64, error)

	// EnsureIndexes creates the unique key index and the expiry index.
	// Idempotent; backends without indexes return nil.
	EnsureIndexes(ctx context.Context) error
}

// Database hands out collections by name.
type Database interface {
	Collection(name string) Collection
}

// Opener is implemented by database handles that have an explicit open step.
// Handles that do not implement it are treated as already usable.
type Opener interface {
	Opened() bool
	Open(ctx context.Context) error
}
