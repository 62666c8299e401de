package handler

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"fleetdocs/internal/http/middleware"
	"fleetdocs/internal/model"
	"fleetdocs/internal/rules"
	"fleetdocs/internal/service"
	"fleetdocs/internal/storage"
)

const dateLayout = "2006-01-02"

// Handler wires the attachment facade and the stats aggregator to HTTP
// routes. Handlers stay thin: parse, delegate, map errors.
type Handler struct {
	attachments service.AttachmentService
	stats       service.StatsService
	files       storage.FileStore
	maxUpload   int64
}

// New creates a Handler.
func New(attachments service.AttachmentService, stats service.StatsService, files storage.FileStore, maxUpload int64) *Handler {
	return &Handler{attachments: attachments, stats: stats, files: files, maxUpload: maxUpload}
}

// Register attaches all HTTP routes to the provided Fiber app. Literal routes
// are registered before their parameterized siblings.
func (h *Handler) Register(app *fiber.App, db *sql.DB) {
	// Health endpoint: checks DB connectivity only.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	api := app.Group("/api", middleware.Caller())

	api.Get("/vehicles/documents/types", h.documentTypes)
	api.Get("/vehicles/documents/:documentId/download", h.downloadDocument)
	api.Get("/vehicles/documents/:documentId", h.getDocument)
	api.Put("/vehicles/documents/:documentId", h.updateDocument)
	api.Delete("/vehicles/documents/:documentId", h.deleteDocument)

	api.Get("/vehicles/:id/documents/stats", h.vehicleStats)
	api.Get("/vehicles/:id/documents/summary", h.vehicleSummary)
	api.Get("/vehicles/:id/documents", h.listDocuments)
	api.Post("/vehicles/:id/documents", h.addDocument)

	api.Get("/vehicles/policies/expiring", h.listExpiringPolicies)
	api.Get("/vehicles/policies/:policyId/download", h.downloadPolicy)
	api.Get("/vehicles/policies/:policyId", h.getPolicy)
	api.Put("/vehicles/policies/:policyId", h.updatePolicy)
	api.Delete("/vehicles/policies/:policyId", h.deletePolicy)

	api.Get("/vehicles/:id/policies", h.listPolicies)
	api.Post("/vehicles/:id/policies", h.addPolicy)
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// formField reports a form value and whether the field was present at all,
// so absent and empty can be told apart when building patches.
func formField(c *fiber.Ctx, key string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		if vs, ok := form.Value[key]; ok && len(vs) > 0 {
			return vs[0], true
		}
		return "", false
	}
	if c.Request().PostArgs().Has(key) {
		return string(c.Request().PostArgs().Peek(key)), true
	}
	return "", false
}

func parseDateField(c *fiber.Ctx, key string) (*time.Time, error) {
	v, ok := formField(c, key)
	if !ok || v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date in %s format", key, dateLayout)
	}
	return &t, nil
}

func parseFloatField(c *fiber.Ctx, key string) (*float64, error) {
	v, ok := formField(c, key)
	if !ok || v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &f, nil
}

func parseBoolField(c *fiber.Ctx, key string) (*bool, error) {
	v, ok := formField(c, key)
	if !ok || v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a boolean", key)
	}
	return &b, nil
}

func stringField(c *fiber.Ctx, key string) *string {
	if v, ok := formField(c, key); ok {
		return &v
	}
	return nil
}

// --- documents ---

func (h *Handler) addDocument(c *fiber.Ctx) error {
	vehicleID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}

	file, err := receiveUpload(c, h.files, h.maxUpload)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", err.Error())
	}
	if file == nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}

	docType, _ := formField(c, "document_type")
	doc, err := h.attachments.AddDocument(c.UserContext(), middleware.CallerFromCtx(c), vehicleID, docType, *file, stringField(c, "description"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *Handler) getDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "documentId")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	doc, err := h.attachments.GetDocument(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

func (h *Handler) listDocuments(c *fiber.Ctx) error {
	vehicleID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	docs, err := h.attachments.ListDocuments(c.UserContext(), vehicleID, c.Query("type"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"documents": docs, "count": len(docs)})
}

func (h *Handler) updateDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "documentId")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}

	patch := model.DocumentPatch{
		Type:        stringField(c, "document_type"),
		Description: stringField(c, "description"),
	}
	file, err := receiveUpload(c, h.files, h.maxUpload)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", err.Error())
	}
	patch.NewFile = file

	doc, err := h.attachments.UpdateDocument(c.UserContext(), middleware.CallerFromCtx(c), id, patch)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

func (h *Handler) deleteDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "documentId")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	doc, err := h.attachments.DeleteDocument(c.UserContext(), middleware.CallerFromCtx(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(doc)
}

func (h *Handler) downloadDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "documentId")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	doc, err := h.attachments.DocumentFile(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Download(doc.StoragePath, doc.Filename)
}

func (h *Handler) documentTypes(c *fiber.Ctx) error {
	types, err := h.attachments.DocumentTypes(c.UserContext())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(types)
}

// --- policies ---

func (h *Handler) parsePolicyInput(c *fiber.Ctx) (model.PolicyInput, error) {
	var in model.PolicyInput
	in.Number, _ = formField(c, "policy_number")
	in.Insurer, _ = formField(c, "insurer")
	in.CoverageType = stringField(c, "coverage_type")
	in.Beneficiary = stringField(c, "beneficiary")
	in.Observations = stringField(c, "observations")

	start, err := parseDateField(c, "start_date")
	if err != nil {
		return in, err
	}
	if start != nil {
		in.StartDate = *start
	}
	expiration, err := parseDateField(c, "expiration_date")
	if err != nil {
		return in, err
	}
	if expiration != nil {
		in.ExpirationDate = *expiration
	}

	if in.CoverageAmount, err = parseFloatField(c, "coverage_amount"); err != nil {
		return in, err
	}
	if in.AnnualPremium, err = parseFloatField(c, "annual_premium"); err != nil {
		return in, err
	}
	if in.Deductible, err = parseFloatField(c, "deductible"); err != nil {
		return in, err
	}
	if in.Active, err = parseBoolField(c, "active"); err != nil {
		return in, err
	}
	return in, nil
}

func (h *Handler) parsePolicyPatch(c *fiber.Ctx) (model.PolicyPatch, error) {
	var patch model.PolicyPatch
	patch.Number = stringField(c, "policy_number")
	patch.Insurer = stringField(c, "insurer")
	patch.CoverageType = stringField(c, "coverage_type")
	patch.Beneficiary = stringField(c, "beneficiary")
	patch.Observations = stringField(c, "observations")

	var err error
	if patch.StartDate, err = parseDateField(c, "start_date"); err != nil {
		return patch, err
	}
	if patch.ExpirationDate, err = parseDateField(c, "expiration_date"); err != nil {
		return patch, err
	}
	if patch.CoverageAmount, err = parseFloatField(c, "coverage_amount"); err != nil {
		return patch, err
	}
	if patch.AnnualPremium, err = parseFloatField(c, "annual_premium"); err != nil {
		return patch, err
	}
	if patch.Deductible, err = parseFloatField(c, "deductible"); err != nil {
		return patch, err
	}
	if patch.Active, err = parseBoolField(c, "active"); err != nil {
		return patch, err
	}
	return patch, nil
}

func (h *Handler) addPolicy(c *fiber.Ctx) error {
	vehicleID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}

	// Fields are parsed before the file is accepted into storage, so a
	// malformed request never leaves an orphaned upload behind.
	input, err := h.parsePolicyInput(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	}
	file, err := receiveUpload(c, h.files, h.maxUpload)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", err.Error())
	}

	policy, err := h.attachments.AddPolicy(c.UserContext(), middleware.CallerFromCtx(c), vehicleID, input, file)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(policy)
}

func (h *Handler) getPolicy(c *fiber.Ctx) error {
	id, err := paramID(c, "policyId")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	policy, err := h.attachments.GetPolicy(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(policy)
}

func (h *Handler) listPolicies(c *fiber.Ctx) error {
	vehicleID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	res, err := h.attachments.ListPolicies(c.UserContext(), vehicleID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(res)
}

func (h *Handler) updatePolicy(c *fiber.Ctx) error {
	id, err := paramID(c, "policyId")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}

	patch, err := h.parsePolicyPatch(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	}
	file, err := receiveUpload(c, h.files, h.maxUpload)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", err.Error())
	}
	patch.NewFile = file

	policy, err := h.attachments.UpdatePolicy(c.UserContext(), middleware.CallerFromCtx(c), id, patch)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(policy)
}

func (h *Handler) deletePolicy(c *fiber.Ctx) error {
	id, err := paramID(c, "policyId")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	policy, err := h.attachments.DeletePolicy(c.UserContext(), middleware.CallerFromCtx(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(policy)
}

func (h *Handler) downloadPolicy(c *fiber.Ctx) error {
	id, err := paramID(c, "policyId")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	policy, err := h.attachments.PolicyFile(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Download(*policy.StoragePath, *policy.Filename)
}

func (h *Handler) listExpiringPolicies(c *fiber.Ctx) error {
	days := rules.ExpiryWindowDays
	if v := c.Query("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d <= 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_DAYS", "days must be a positive integer")
		}
		days = d
	}
	policies, err := h.attachments.ListExpiringPolicies(c.UserContext(), days)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"policies": policies, "count": len(policies)})
}

// --- stats ---

func (h *Handler) vehicleStats(c *fiber.Ctx) error {
	vehicleID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	stats, err := h.stats.VehicleStats(c.UserContext(), vehicleID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"vehicle_id": vehicleID, "stats": stats})
}

func (h *Handler) vehicleSummary(c *fiber.Ctx) error {
	vehicleID, err := paramID(c, "id")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", err.Error())
	}
	summary, err := h.stats.VehicleSummary(c.UserContext(), vehicleID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"vehicle_id": vehicleID, "summary": summary})
}
