// Package model contains domain models/data structures shared across layers.
// Keep it free of database and transport dependencies.
package model

// Caller identifies the authenticated user on whose behalf an operation runs.
// Authentication itself happens upstream (gateway/middleware); the core only
// consumes the resulting identity.
type Caller struct {
	ID      int64
	IsAdmin bool
}

// UploadedFile describes a file already written to storage by the upload
// transport. The core never re-verifies name uniqueness; the transport
// generates stored names with enough entropy to avoid collisions.
type UploadedFile struct {
	OriginalName string `json:"original_name"`
	Filename     string `json:"filename"`
	StoragePath  string `json:"storage_path"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
}
