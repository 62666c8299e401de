package model

import "time"

// Document represents a non-expiring file attached to a vehicle
// (circulation card, invoice, verification certificate, tax receipt, license).
// The stored file at StoragePath exists for the lifetime of the row.
type Document struct {
	ID          int64     `json:"id"`
	VehicleID   int64     `json:"vehicle_id"`
	Type        string    `json:"document_type"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Description *string   `json:"description,omitempty"`
	UploadedBy  int64     `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`

	// DownloadURL is a convenience pointer for the caller's routing layer;
	// this service does not serve the bytes at that path.
	DownloadURL string `json:"download_url,omitempty"`
}

// DocumentPatch is the closed set of updatable document fields. A nil field
// means "leave unchanged". NewFile, when set, replaces the stored file; the
// previous file is removed only after the row change has committed.
type DocumentPatch struct {
	Type        *string
	Description *string
	NewFile     *UploadedFile
}

// IsZero reports whether the patch changes nothing.
func (p DocumentPatch) IsZero() bool {
	return p.Type == nil && p.Description == nil && p.NewFile == nil
}

// DocumentTypeCount is one row of the per-type document summary.
type DocumentTypeCount struct {
	Type         string    `json:"document_type"`
	Count        int       `json:"count"`
	LastUploaded time.Time `json:"last_uploaded"`
}
