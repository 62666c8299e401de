package storage

import (
	"context"
	"io"
)

// Package storage contains the file store adapter: the only code that touches
// raw storage. Two implementations exist, local disk (default) and an
// S3-compatible object store, selected by configuration.

// FileStore is the adapter the attachment repositories and service use for
// file side effects. Absence of a file is a normal outcome for Exists and
// Remove, never an error.
type FileStore interface {
	// Save persists the content under the given stored filename and returns
	// the storage path to record in the database.
	Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)

	// Exists is a non-throwing existence probe.
	Exists(ctx context.Context, path string) bool

	// Remove deletes best-effort: failures (including a file already gone)
	// are logged as warnings and swallowed. It must never abort a surrounding
	// transaction that has already committed.
	Remove(ctx context.Context, path string)

	// RemoveStrict deletes and propagates failures. Used to roll back a newly
	// written file when the enclosing operation is failing anyway. A missing
	// file is still not an error.
	RemoveStrict(ctx context.Context, path string) error
}
