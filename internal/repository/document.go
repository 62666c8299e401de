package repository

import (
	"context"

	"fleetdocs/internal/model"
)

// DocumentRepository defines persistence for general vehicle documents.
// Every mutation runs in a single database transaction; file compensation is
// part of the contract (see package doc). Missing rows surface as
// sql.ErrNoRows for the service layer to map.
type DocumentRepository interface {
	// Add inserts a row for an already-uploaded file and returns the row as
	// persisted. On any failure the uploaded file is deleted before the error
	// is returned.
	Add(ctx context.Context, vehicleID int64, docType string, file model.UploadedFile, uploadedBy int64, description *string) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// ListByVehicle returns a vehicle's documents ordered by upload time
	// descending. An empty docType means all types.
	ListByVehicle(ctx context.Context, vehicleID int64, docType string) ([]model.Document, error)

	// Update applies the patch and returns the updated row. When the patch
	// carries a new file, the previous file is removed only after commit; a
	// failed transaction removes the new file instead.
	Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.Document, error)

	// Delete removes the row, then the file, and returns the deleted row's
	// last snapshot. A file already absent from storage is not an error.
	Delete(ctx context.Context, id int64) (*model.Document, error)

	// CountByVehicle returns the number of documents attached to a vehicle.
	CountByVehicle(ctx context.Context, vehicleID int64) (int, error)

	// TypeSummary returns per-type counts with the latest upload timestamp.
	TypeSummary(ctx context.Context, vehicleID int64) ([]model.DocumentTypeCount, error)

	// DistinctTypes returns the document types currently in use.
	DistinctTypes(ctx context.Context) ([]string, error)
}
