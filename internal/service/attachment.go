package service

import (
	"context"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/rules"
	"fleetdocs/internal/storage"
)

const (
	maxDescriptionLen  = 500
	maxObservationsLen = 1000
	minPolicyNumberLen = 3
	maxPolicyNumberLen = 50
	minInsurerLen      = 2
	maxInsurerLen      = 100

	maxCoverageAmount = 99_999_999.99
	maxAnnualPremium  = 9_999_999.99
	maxDeductible     = 999_999.99
)

// Whitelists are the configurable enum tables consumed by the facade. They
// come from configuration, not code, so they can evolve without a deploy.
type Whitelists struct {
	DocumentTypes []string
	CoverageTypes []string
}

// DocumentTypes pairs the configured whitelist with the types actually in use.
type DocumentTypes struct {
	Allowed []string `json:"allowed"`
	InUse   []string `json:"in_use"`
}

// PolicyListResult is a vehicle's policy list with the rollup counts the
// original listing exposes.
type PolicyListResult struct {
	Items        []model.Policy `json:"policies"`
	Count        int            `json:"count"`
	Active       int            `json:"active"`
	ExpiringSoon int            `json:"expiring_soon"`
	Expired      int            `json:"expired"`
}

// AttachmentService is the facade request handlers consume. It layers
// caller-dependent authorization and whitelist validation on top of the
// repositories, and guarantees that a file already received from the
// transport layer never outlives a failed request.
type AttachmentService interface {
	AddDocument(ctx context.Context, caller model.Caller, vehicleID int64, docType string, file model.UploadedFile, description *string) (*model.Document, error)
	GetDocument(ctx context.Context, id int64) (*model.Document, error)
	ListDocuments(ctx context.Context, vehicleID int64, docType string) ([]model.Document, error)
	UpdateDocument(ctx context.Context, caller model.Caller, id int64, patch model.DocumentPatch) (*model.Document, error)
	DeleteDocument(ctx context.Context, caller model.Caller, id int64) (*model.Document, error)
	// DocumentFile returns the document if its file is present in storage.
	DocumentFile(ctx context.Context, id int64) (*model.Document, error)
	// DocumentTypes lists the configured whitelist and the types in use.
	DocumentTypes(ctx context.Context) (*DocumentTypes, error)

	AddPolicy(ctx context.Context, caller model.Caller, vehicleID int64, input model.PolicyInput, file *model.UploadedFile) (*model.Policy, error)
	GetPolicy(ctx context.Context, id int64) (*model.Policy, error)
	ListPolicies(ctx context.Context, vehicleID int64) (*PolicyListResult, error)
	UpdatePolicy(ctx context.Context, caller model.Caller, id int64, patch model.PolicyPatch) (*model.Policy, error)
	DeletePolicy(ctx context.Context, caller model.Caller, id int64) (*model.Policy, error)
	PolicyFile(ctx context.Context, id int64) (*model.Policy, error)
	// ListExpiringPolicies lists active policies due within the window;
	// withinDays <= 0 falls back to the default 30-day window.
	ListExpiringPolicies(ctx context.Context, withinDays int) ([]model.ExpiringPolicy, error)
}

type attachmentService struct {
	docs     repository.DocumentRepository
	policies repository.PolicyRepository
	files    storage.FileStore
	allowed  Whitelists
}

// NewAttachmentService constructs the attachment facade.
func NewAttachmentService(docs repository.DocumentRepository, policies repository.PolicyRepository, files storage.FileStore, allowed Whitelists) AttachmentService {
	return &attachmentService{docs: docs, policies: policies, files: files, allowed: allowed}
}

// discard removes an uploaded file that will not be referenced by any row
// because the request is failing. Best-effort: the request error matters
// more than the cleanup outcome.
func (s *attachmentService) discard(ctx context.Context, file *model.UploadedFile) {
	if file != nil {
		s.files.Remove(ctx, file.StoragePath)
	}
}

func (s *attachmentService) validateDocumentType(docType string) error {
	if docType == "" {
		return validationf("document type is required")
	}
	if !slices.Contains(s.allowed.DocumentTypes, docType) {
		return validationf("document type %q not allowed", docType)
	}
	return nil
}

func validateTextLen(field string, v *string, max int) error {
	if v != nil && utf8.RuneCountInString(*v) > max {
		return validationf("%s exceeds %d characters", field, max)
	}
	return nil
}

func validateAmount(field string, v *float64, min, max float64) error {
	if v == nil {
		return nil
	}
	if *v < min || *v > max {
		return validationf("%s out of range", field)
	}
	return nil
}

func (s *attachmentService) AddDocument(ctx context.Context, caller model.Caller, vehicleID int64, docType string, file model.UploadedFile, description *string) (*model.Document, error) {
	if err := s.validateDocumentType(docType); err != nil {
		s.discard(ctx, &file)
		return nil, err
	}
	if err := validateTextLen("description", description, maxDescriptionLen); err != nil {
		s.discard(ctx, &file)
		return nil, err
	}

	doc, err := s.docs.Add(ctx, vehicleID, docType, file, caller.ID, description)
	if err != nil {
		// The repository already compensated the file.
		return nil, fmt.Errorf("add document: %w", err)
	}
	return doc, nil
}

func (s *attachmentService) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *attachmentService) ListDocuments(ctx context.Context, vehicleID int64, docType string) ([]model.Document, error) {
	docs, err := s.docs.ListByVehicle(ctx, vehicleID, docType)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *attachmentService) UpdateDocument(ctx context.Context, caller model.Caller, id int64, patch model.DocumentPatch) (*model.Document, error) {
	existing, err := s.docs.FindByID(ctx, id)
	if err != nil {
		s.discard(ctx, patch.NewFile)
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	if existing.UploadedBy != caller.ID && !caller.IsAdmin {
		s.discard(ctx, patch.NewFile)
		return nil, ErrForbidden
	}
	if patch.IsZero() {
		return nil, validationf("no fields to update")
	}
	if patch.Type != nil {
		if err := s.validateDocumentType(*patch.Type); err != nil {
			s.discard(ctx, patch.NewFile)
			return nil, err
		}
	}
	if err := validateTextLen("description", patch.Description, maxDescriptionLen); err != nil {
		s.discard(ctx, patch.NewFile)
		return nil, err
	}

	doc, err := s.docs.Update(ctx, id, patch)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return doc, nil
}

func (s *attachmentService) DeleteDocument(ctx context.Context, caller model.Caller, id int64) (*model.Document, error) {
	existing, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete document: %w", err)
	}
	if existing.UploadedBy != caller.ID && !caller.IsAdmin {
		return nil, ErrForbidden
	}

	doc, err := s.docs.Delete(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete document: %w", err)
	}
	return doc, nil
}

func (s *attachmentService) DocumentFile(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.files.Exists(ctx, doc.StoragePath) {
		return nil, fmt.Errorf("%w: file missing from storage", ErrNotFound)
	}
	return doc, nil
}

func (s *attachmentService) DocumentTypes(ctx context.Context) (*DocumentTypes, error) {
	inUse, err := s.docs.DistinctTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("document types: %w", err)
	}
	return &DocumentTypes{Allowed: s.allowed.DocumentTypes, InUse: inUse}, nil
}

func (s *attachmentService) validateCoverageType(coverage *string) error {
	if coverage == nil || *coverage == "" {
		return nil
	}
	if !slices.Contains(s.allowed.CoverageTypes, *coverage) {
		return validationf("coverage type %q not allowed", *coverage)
	}
	return nil
}

func (s *attachmentService) validatePolicyInput(input model.PolicyInput) error {
	if n := utf8.RuneCountInString(input.Number); n < minPolicyNumberLen || n > maxPolicyNumberLen {
		return validationf("policy number must be %d-%d characters", minPolicyNumberLen, maxPolicyNumberLen)
	}
	if n := utf8.RuneCountInString(input.Insurer); n < minInsurerLen || n > maxInsurerLen {
		return validationf("insurer must be %d-%d characters", minInsurerLen, maxInsurerLen)
	}
	if err := s.validateCoverageType(input.CoverageType); err != nil {
		return err
	}
	if input.StartDate.IsZero() || input.ExpirationDate.IsZero() {
		return validationf("start and expiration dates are required")
	}
	if err := validateDateOrder(input.StartDate, input.ExpirationDate); err != nil {
		return err
	}
	if err := validateAmount("coverage amount", input.CoverageAmount, 0.01, maxCoverageAmount); err != nil {
		return err
	}
	if err := validateAmount("annual premium", input.AnnualPremium, 0.01, maxAnnualPremium); err != nil {
		return err
	}
	if err := validateAmount("deductible", input.Deductible, 0, maxDeductible); err != nil {
		return err
	}
	return validateTextLen("observations", input.Observations, maxObservationsLen)
}

func validateDateOrder(start, expiration time.Time) error {
	if !expiration.After(start) {
		return validationf("expiration date must be after start date")
	}
	return nil
}

func (s *attachmentService) AddPolicy(ctx context.Context, caller model.Caller, vehicleID int64, input model.PolicyInput, file *model.UploadedFile) (*model.Policy, error) {
	if err := s.validatePolicyInput(input); err != nil {
		s.discard(ctx, file)
		return nil, err
	}

	policy, err := s.policies.Add(ctx, vehicleID, input, file, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("add policy: %w", err)
	}
	return policy, nil
}

func (s *attachmentService) GetPolicy(ctx context.Context, id int64) (*model.Policy, error) {
	policy, err := s.policies.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get policy: %w", err)
	}
	return policy, nil
}

func (s *attachmentService) ListPolicies(ctx context.Context, vehicleID int64) (*PolicyListResult, error) {
	items, err := s.policies.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}

	res := &PolicyListResult{Items: items, Count: len(items)}
	for _, p := range items {
		if p.Active {
			res.Active++
		}
		switch rules.ExpiryStatus(p.Status) {
		case rules.StatusPorVencer:
			res.ExpiringSoon++
		case rules.StatusVencida:
			res.Expired++
		}
	}
	return res, nil
}

func (s *attachmentService) UpdatePolicy(ctx context.Context, caller model.Caller, id int64, patch model.PolicyPatch) (*model.Policy, error) {
	existing, err := s.policies.FindByID(ctx, id)
	if err != nil {
		s.discard(ctx, patch.NewFile)
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update policy: %w", err)
	}
	if existing.CreatedBy != caller.ID && !caller.IsAdmin {
		s.discard(ctx, patch.NewFile)
		return nil, ErrForbidden
	}
	if patch.IsZero() {
		return nil, validationf("no fields to update")
	}
	if err := s.validatePolicyPatch(existing, patch); err != nil {
		s.discard(ctx, patch.NewFile)
		return nil, err
	}

	policy, err := s.policies.Update(ctx, id, patch)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update policy: %w", err)
	}
	return policy, nil
}

// validatePolicyPatch checks patched fields and the date-order invariant
// against the merged (existing + patch) values, so a partial date change can
// never commit an inverted validity window.
func (s *attachmentService) validatePolicyPatch(existing *model.Policy, patch model.PolicyPatch) error {
	if patch.Number != nil {
		if n := utf8.RuneCountInString(*patch.Number); n < minPolicyNumberLen || n > maxPolicyNumberLen {
			return validationf("policy number must be %d-%d characters", minPolicyNumberLen, maxPolicyNumberLen)
		}
	}
	if patch.Insurer != nil {
		if n := utf8.RuneCountInString(*patch.Insurer); n < minInsurerLen || n > maxInsurerLen {
			return validationf("insurer must be %d-%d characters", minInsurerLen, maxInsurerLen)
		}
	}
	if err := s.validateCoverageType(patch.CoverageType); err != nil {
		return err
	}

	start, expiration := existing.StartDate, existing.ExpirationDate
	if patch.StartDate != nil {
		start = *patch.StartDate
	}
	if patch.ExpirationDate != nil {
		expiration = *patch.ExpirationDate
	}
	if err := validateDateOrder(start, expiration); err != nil {
		return err
	}

	if err := validateAmount("coverage amount", patch.CoverageAmount, 0.01, maxCoverageAmount); err != nil {
		return err
	}
	if err := validateAmount("annual premium", patch.AnnualPremium, 0.01, maxAnnualPremium); err != nil {
		return err
	}
	if err := validateAmount("deductible", patch.Deductible, 0, maxDeductible); err != nil {
		return err
	}
	return validateTextLen("observations", patch.Observations, maxObservationsLen)
}

func (s *attachmentService) DeletePolicy(ctx context.Context, caller model.Caller, id int64) (*model.Policy, error) {
	existing, err := s.policies.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete policy: %w", err)
	}
	if existing.CreatedBy != caller.ID && !caller.IsAdmin {
		return nil, ErrForbidden
	}

	policy, err := s.policies.Delete(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete policy: %w", err)
	}
	return policy, nil
}

func (s *attachmentService) PolicyFile(ctx context.Context, id int64) (*model.Policy, error) {
	policy, err := s.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.HasFile() {
		return nil, fmt.Errorf("%w: policy has no file attached", ErrNotFound)
	}
	if !s.files.Exists(ctx, *policy.StoragePath) {
		return nil, fmt.Errorf("%w: file missing from storage", ErrNotFound)
	}
	return policy, nil
}

func (s *attachmentService) ListExpiringPolicies(ctx context.Context, withinDays int) ([]model.ExpiringPolicy, error) {
	if withinDays <= 0 {
		withinDays = rules.ExpiryWindowDays
	}
	policies, err := s.policies.ListExpiring(ctx, withinDays)
	if err != nil {
		return nil, fmt.Errorf("list expiring policies: %w", err)
	}
	return policies, nil
}
