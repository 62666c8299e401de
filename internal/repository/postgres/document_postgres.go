package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/storage"
)

// DocumentPostgres is a PostgreSQL implementation of
// repository.DocumentRepository. Besides parameterized SQL it owns the
// compensation discipline between the transaction and the file store:
// commit first, remove superseded files after, remove the new file when the
// transaction fails.
type DocumentPostgres struct {
	db    *sql.DB
	files storage.FileStore
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB, files storage.FileStore) *DocumentPostgres {
	return &DocumentPostgres{db: db, files: files}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, vehicle_id, document_type, filename, storage_path, description, uploaded_by, uploaded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.VehicleID,
		&d.Type,
		&d.Filename,
		&d.StoragePath,
		&d.Description,
		&d.UploadedBy,
		&d.UploadedAt,
	); err != nil {
		return nil, err
	}
	d.DownloadURL = fmt.Sprintf("/api/vehicles/documents/%d/download", d.ID)
	return &d, nil
}

// compensate removes a freshly written file because the enclosing operation
// failed. The removal is allowed to propagate; both errors are reported.
func (r *DocumentPostgres) compensate(ctx context.Context, path string, cause error) error {
	if rmErr := r.files.RemoveStrict(ctx, path); rmErr != nil {
		return errors.Join(cause, rmErr)
	}
	return cause
}

// Add inserts a row referencing the supplied uploaded file and returns the
// freshly read-back record. Any failure deletes the uploaded file.
func (r *DocumentPostgres) Add(ctx context.Context, vehicleID int64, docType string, file model.UploadedFile, uploadedBy int64, description *string) (*model.Document, error) {
	id, err := r.insert(ctx, vehicleID, docType, file, uploadedBy, description)
	if err != nil {
		return nil, r.compensate(ctx, file.StoragePath, err)
	}
	// The row is committed at this point; a read-back failure must not
	// trigger file removal.
	return r.FindByID(ctx, id)
}

func (r *DocumentPostgres) insert(ctx context.Context, vehicleID int64, docType string, file model.UploadedFile, uploadedBy int64, description *string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO vehicle_documents (vehicle_id, document_type, filename, storage_path, description, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, q,
		vehicleID,
		docType,
		file.Filename,
		file.StoragePath,
		description,
		uploadedBy,
	).Scan(&id); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM vehicle_documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// ListByVehicle returns a vehicle's documents newest first, optionally
// filtered by type.
func (r *DocumentPostgres) ListByVehicle(ctx context.Context, vehicleID int64, docType string) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM vehicle_documents WHERE vehicle_id = $1`
	args := []any{vehicleID}
	if docType != "" {
		q += ` AND document_type = $2`
		args = append(args, docType)
	}
	q += ` ORDER BY uploaded_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Update applies the patch inside a transaction. The row is locked, merged
// field by field, and written back; the previous file is removed only after
// a successful commit.
func (r *DocumentPostgres) Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.Document, error) {
	oldPath, err := r.applyUpdate(ctx, id, patch)
	if err != nil {
		if patch.NewFile != nil {
			return nil, r.compensate(ctx, patch.NewFile.StoragePath, err)
		}
		return nil, err
	}
	if patch.NewFile != nil && oldPath != "" && oldPath != patch.NewFile.StoragePath {
		r.files.Remove(ctx, oldPath)
	}
	return r.FindByID(ctx, id)
}

func (r *DocumentPostgres) applyUpdate(ctx context.Context, id int64, patch model.DocumentPatch) (oldPath string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	qSel := `SELECT ` + documentColumns + ` FROM vehicle_documents WHERE id = $1 FOR UPDATE`
	existing, err := scanDocument(tx.QueryRowContext(ctx, qSel, id))
	if err != nil {
		return "", err
	}

	docType := existing.Type
	if patch.Type != nil {
		docType = *patch.Type
	}
	description := existing.Description
	if patch.Description != nil {
		description = patch.Description
	}
	filename, storagePath := existing.Filename, existing.StoragePath
	if patch.NewFile != nil {
		filename, storagePath = patch.NewFile.Filename, patch.NewFile.StoragePath
	}

	const qUpd = `
		UPDATE vehicle_documents
		SET document_type = $1, description = $2, filename = $3, storage_path = $4
		WHERE id = $5
	`
	if _, err := tx.ExecContext(ctx, qUpd, docType, description, filename, storagePath, id); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return existing.StoragePath, nil
}

// Delete removes the row first, then the stored file, and returns the last
// snapshot of the deleted row. A file already absent from storage is fine.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) (*model.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	qSel := `SELECT ` + documentColumns + ` FROM vehicle_documents WHERE id = $1 FOR UPDATE`
	doc, err := scanDocument(tx.QueryRowContext(ctx, qSel, id))
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicle_documents WHERE id = $1`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.files.Remove(ctx, doc.StoragePath)
	return doc, nil
}

// CountByVehicle returns the number of documents attached to a vehicle.
func (r *DocumentPostgres) CountByVehicle(ctx context.Context, vehicleID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicle_documents WHERE vehicle_id = $1`, vehicleID).Scan(&n)
	return n, err
}

// TypeSummary returns per-type counts with the latest upload timestamp.
func (r *DocumentPostgres) TypeSummary(ctx context.Context, vehicleID int64) ([]model.DocumentTypeCount, error) {
	const q = `
		SELECT document_type, COUNT(*), MAX(uploaded_at)
		FROM vehicle_documents
		WHERE vehicle_id = $1
		GROUP BY document_type
		ORDER BY document_type
	`
	rows, err := r.db.QueryContext(ctx, q, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.DocumentTypeCount, 0)
	for rows.Next() {
		var c model.DocumentTypeCount
		if err := rows.Scan(&c.Type, &c.Count, &c.LastUploaded); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DistinctTypes returns the document types currently present in the table.
func (r *DocumentPostgres) DistinctTypes(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT document_type FROM vehicle_documents ORDER BY document_type`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
