// Package store is the shared state store the game engine runs
// against: JSON documents addressed by path, with atomic
// read-modify-write on a single document, last-writer-wins plain
// writes, and push-based change subscription.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports a read or update of a path with no document.
	ErrNotFound = errors.New("NOT_FOUND: Document not found")
	// ErrConflict reports a lost optimistic-concurrency race: another
	// writer committed between the read and the write. The caller owns
	// the retry loop.
	ErrConflict = errors.New("CONFLICT: Document changed concurrently")
)

// UpdateFunc computes the next document value from the current one.
// It must be pure: it can run any number of times per logical update.
type UpdateFunc func(current []byte) ([]byte, error)

// SubscribeFunc receives the latest document value after every
// committed change. ok is false when the document does not exist
// (deleted, or never written).
type SubscribeFunc func(value []byte, ok bool)

type DocumentStore interface {
	// Read returns the current value and its version.
	Read(ctx context.Context, path string) (value []byte, version int64, err error)

	// Write replaces the document unconditionally (last-writer-wins).
	// Creates it if absent.
	Write(ctx context.Context, path string, value []byte) error

	// Update performs one optimistic read-modify-write attempt:
	// ErrConflict if another writer raced the commit, ErrNotFound if
	// the document does not exist, otherwise whatever fn returned.
	Update(ctx context.Context, path string, fn UpdateFunc) error

	// Delete removes the document. Deleting an absent path is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Subscribe registers fn for every committed change to path and
	// returns a cancel function. Callbacks run synchronously on the
	// committing goroutine and must not block.
	Subscribe(path string, fn SubscribeFunc) (cancel func())
}
