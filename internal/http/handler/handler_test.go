package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fleetdocs/internal/http/middleware"
	"fleetdocs/internal/model"
	"fleetdocs/internal/service"
	svcmocks "fleetdocs/internal/service/mocks"
	storagemocks "fleetdocs/internal/storage/mocks"
)

func newTestApp(t *testing.T) (*fiber.App, *svcmocks.MockAttachmentService, *svcmocks.MockStatsService, *storagemocks.MockFileStore, sqlmock.Sqlmock) {
	t.Helper()

	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	attachments := new(svcmocks.MockAttachmentService)
	stats := new(svcmocks.MockStatsService)
	files := new(storagemocks.MockFileStore)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	New(attachments, stats, files, 10<<20).Register(app, db)

	return app, attachments, stats, files, dbMock
}

func TestHealth(t *testing.T) {
	app, _, _, _, dbMock := newTestApp(t)
	dbMock.ExpectPing()

	resp, _ := app.Test(httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRoutesRequireCaller(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	resp, _ := app.Test(httptest.NewRequest("GET", "/api/vehicles/1/documents", nil))

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var payload map[string]any
	body, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "UNAUTHORIZED", payload["error"].(map[string]any)["code"])
}

func TestListDocuments(t *testing.T) {
	app, attachments, _, _, _ := newTestApp(t)

	attachments.On("ListDocuments", mock.Anything, int64(1), "").
		Return([]model.Document{{ID: 5, Type: "Factura"}}, nil)

	req := httptest.NewRequest("GET", "/api/vehicles/1/documents", nil)
	req.Header.Set(middleware.CallerIDHeader, "9")
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Documents []model.Document `json:"documents"`
		Count     int              `json:"count"`
	}
	body, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, 1, payload.Count)
	assert.Equal(t, "Factura", payload.Documents[0].Type)
}

func TestGetDocument(t *testing.T) {
	t.Run("not found maps to 404", func(t *testing.T) {
		app, attachments, _, _, _ := newTestApp(t)
		attachments.On("GetDocument", mock.Anything, int64(99)).Return(nil, service.ErrNotFound)

		req := httptest.NewRequest("GET", "/api/vehicles/documents/99", nil)
		req.Header.Set(middleware.CallerIDHeader, "9")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id maps to 400", func(t *testing.T) {
		app, _, _, _, _ := newTestApp(t)

		req := httptest.NewRequest("GET", "/api/vehicles/documents/abc", nil)
		req.Header.Set(middleware.CallerIDHeader, "9")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		assert.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		assert.NoError(t, err)
		part.Write([]byte("%PDF-1.4 test"))
	}
	w.Close()
	return buf, w.FormDataContentType()
}

func TestAddDocument(t *testing.T) {
	t.Run("without file is rejected before the service runs", func(t *testing.T) {
		app, attachments, _, _, _ := newTestApp(t)

		body, ct := multipartBody(t, map[string]string{"document_type": "Factura"}, "", "", "")
		req := httptest.NewRequest("POST", "/api/vehicles/1/documents", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.CallerIDHeader, "9")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		attachments.AssertNotCalled(t, "AddDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stores the upload and passes the caller through", func(t *testing.T) {
		app, attachments, _, files, _ := newTestApp(t)

		files.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "application/pdf").
			Return("uploads/gen.pdf", nil)
		attachments.On("AddDocument",
			mock.Anything,
			model.Caller{ID: 9, IsAdmin: true},
			int64(1),
			"Factura",
			mock.AnythingOfType("model.UploadedFile"),
			(*string)(nil),
		).Return(&model.Document{ID: 5, Type: "Factura"}, nil)

		body, ct := multipartBody(t, map[string]string{"document_type": "Factura"}, "file", "factura.pdf", "application/pdf")
		req := httptest.NewRequest("POST", "/api/vehicles/1/documents", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.CallerIDHeader, "9")
		req.Header.Set(middleware.CallerAdminHeader, "true")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		attachments.AssertExpectations(t)
	})

	t.Run("disallowed content type never reaches storage", func(t *testing.T) {
		app, _, _, files, _ := newTestApp(t)

		body, ct := multipartBody(t, map[string]string{"document_type": "Factura"}, "file", "virus.exe", "application/x-msdownload")
		req := httptest.NewRequest("POST", "/api/vehicles/1/documents", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.CallerIDHeader, "9")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		files.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAddPolicy(t *testing.T) {
	t.Run("malformed date is rejected before any upload", func(t *testing.T) {
		app, attachments, _, files, _ := newTestApp(t)

		fields := map[string]string{
			"policy_number": "POL-001",
			"insurer":       "Qualitas",
			"start_date":    "01/01/2026", // wrong format
		}
		body, ct := multipartBody(t, fields, "file", "p.pdf", "application/pdf")
		req := httptest.NewRequest("POST", "/api/vehicles/1/policies", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.CallerIDHeader, "9")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		files.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		attachments.AssertNotCalled(t, "AddPolicy", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates a policy without a file", func(t *testing.T) {
		app, attachments, _, _, _ := newTestApp(t)

		attachments.On("AddPolicy", mock.Anything, model.Caller{ID: 9}, int64(1), mock.MatchedBy(func(in model.PolicyInput) bool {
			return in.Number == "POL-001" && in.Insurer == "Qualitas" &&
				in.StartDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) &&
				in.Active == nil
		}), (*model.UploadedFile)(nil)).Return(&model.Policy{ID: 3, Number: "POL-001"}, nil)

		fields := map[string]string{
			"policy_number":   "POL-001",
			"insurer":         "Qualitas",
			"start_date":      "2026-01-01",
			"expiration_date": "2026-12-31",
		}
		body, ct := multipartBody(t, fields, "", "", "")
		req := httptest.NewRequest("POST", "/api/vehicles/1/policies", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.CallerIDHeader, "9")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		attachments.AssertExpectations(t)
	})
}

func TestUpdatePolicy(t *testing.T) {
	app, attachments, _, _, _ := newTestApp(t)

	attachments.On("UpdatePolicy", mock.Anything, model.Caller{ID: 9}, int64(3), mock.MatchedBy(func(p model.PolicyPatch) bool {
		return p.Insurer != nil && *p.Insurer == "GNP" &&
			p.Active != nil && *p.Active &&
			p.Number == nil && p.NewFile == nil
	})).Return(&model.Policy{ID: 3, Insurer: "GNP", Active: true}, nil)

	fields := map[string]string{"insurer": "GNP", "active": "true"}
	body, ct := multipartBody(t, fields, "", "", "")
	req := httptest.NewRequest("PUT", "/api/vehicles/policies/3", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(middleware.CallerIDHeader, "9")
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	attachments.AssertExpectations(t)
}

func TestListExpiringPolicies(t *testing.T) {
	t.Run("custom window", func(t *testing.T) {
		app, attachments, _, _, _ := newTestApp(t)
		attachments.On("ListExpiringPolicies", mock.Anything, 15).Return([]model.ExpiringPolicy{}, nil)

		req := httptest.NewRequest("GET", "/api/vehicles/policies/expiring?days=15", nil)
		req.Header.Set(middleware.CallerIDHeader, "9")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		attachments.AssertExpectations(t)
	})

	t.Run("invalid window", func(t *testing.T) {
		app, _, _, _, _ := newTestApp(t)

		req := httptest.NewRequest("GET", "/api/vehicles/policies/expiring?days=soon", nil)
		req.Header.Set(middleware.CallerIDHeader, "9")
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeletePolicyForbidden(t *testing.T) {
	app, attachments, _, _, _ := newTestApp(t)
	attachments.On("DeletePolicy", mock.Anything, model.Caller{ID: 2}, int64(3)).Return(nil, service.ErrForbidden)

	req := httptest.NewRequest("DELETE", "/api/vehicles/policies/3", nil)
	req.Header.Set(middleware.CallerIDHeader, "2")
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var payload map[string]any
	body, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "FORBIDDEN", payload["error"].(map[string]any)["code"])
}

func TestVehicleStats(t *testing.T) {
	app, _, stats, _, _ := newTestApp(t)
	stats.On("VehicleStats", mock.Anything, int64(1)).
		Return(&model.VehicleAttachmentStats{TotalDocuments: 4, TotalPolicies: 2, ActivePolicies: 1, ExpiringSoon: 1}, nil)

	req := httptest.NewRequest("GET", "/api/vehicles/1/documents/stats", nil)
	req.Header.Set(middleware.CallerIDHeader, "9")
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		VehicleID int64                         `json:"vehicle_id"`
		Stats     model.VehicleAttachmentStats `json:"stats"`
	}
	body, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, int64(1), payload.VehicleID)
	assert.Equal(t, 4, payload.Stats.TotalDocuments)
}

func TestDocumentTypesRoute(t *testing.T) {
	app, attachments, _, _, _ := newTestApp(t)
	attachments.On("DocumentTypes", mock.Anything).
		Return(&service.DocumentTypes{Allowed: []string{"Factura"}, InUse: []string{"Factura"}}, nil)

	// The literal segment must win over the :documentId parameter.
	req := httptest.NewRequest("GET", "/api/vehicles/documents/types", nil)
	req.Header.Set(middleware.CallerIDHeader, "9")
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	attachments.AssertExpectations(t)
}
