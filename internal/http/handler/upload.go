package handler

import (
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"fleetdocs/internal/model"
	"fleetdocs/internal/storage"
)

// allowedUploadTypes are the MIME types the transport accepts. Anything else
// is rejected before the file reaches storage.
var allowedUploadTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
}

// receiveUpload validates and persists the multipart "file" field, returning
// the descriptor the service layer consumes. Stored names are UUID + original
// extension, so concurrent uploads cannot collide. Returns (nil, nil) when no
// file was sent.
func receiveUpload(c *fiber.Ctx, files storage.FileStore, maxBytes int64) (*model.UploadedFile, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil
	}

	if fh.Size > maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxBytes)
	}
	ct := fh.Header.Get("Content-Type")
	if !allowedUploadTypes[ct] {
		return nil, fmt.Errorf("content type %q not allowed", ct)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	genName := uuid.New().String() + filepath.Ext(fh.Filename)
	path, err := files.Save(c.UserContext(), genName, f, fh.Size, ct)
	if err != nil {
		return nil, fmt.Errorf("store uploaded file: %w", err)
	}

	return &model.UploadedFile{
		OriginalName: fh.Filename,
		Filename:     genName,
		StoragePath:  path,
		Size:         fh.Size,
		ContentType:  ct,
	}, nil
}
