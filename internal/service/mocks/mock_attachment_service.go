package mocks

import (
	"context"

	"fleetdocs/internal/model"
	"fleetdocs/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockAttachmentService struct {
	mock.Mock
}

func (m *MockAttachmentService) AddDocument(ctx context.Context, caller model.Caller, vehicleID int64, docType string, file model.UploadedFile, description *string) (*model.Document, error) {
	args := m.Called(ctx, caller, vehicleID, docType, file, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAttachmentService) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAttachmentService) ListDocuments(ctx context.Context, vehicleID int64, docType string) ([]model.Document, error) {
	args := m.Called(ctx, vehicleID, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockAttachmentService) UpdateDocument(ctx context.Context, caller model.Caller, id int64, patch model.DocumentPatch) (*model.Document, error) {
	args := m.Called(ctx, caller, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAttachmentService) DeleteDocument(ctx context.Context, caller model.Caller, id int64) (*model.Document, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAttachmentService) DocumentFile(ctx context.Context, id int64) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockAttachmentService) DocumentTypes(ctx context.Context) (*service.DocumentTypes, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentTypes), args.Error(1)
}

func (m *MockAttachmentService) AddPolicy(ctx context.Context, caller model.Caller, vehicleID int64, input model.PolicyInput, file *model.UploadedFile) (*model.Policy, error) {
	args := m.Called(ctx, caller, vehicleID, input, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockAttachmentService) GetPolicy(ctx context.Context, id int64) (*model.Policy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockAttachmentService) ListPolicies(ctx context.Context, vehicleID int64) (*service.PolicyListResult, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PolicyListResult), args.Error(1)
}

func (m *MockAttachmentService) UpdatePolicy(ctx context.Context, caller model.Caller, id int64, patch model.PolicyPatch) (*model.Policy, error) {
	args := m.Called(ctx, caller, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockAttachmentService) DeletePolicy(ctx context.Context, caller model.Caller, id int64) (*model.Policy, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockAttachmentService) PolicyFile(ctx context.Context, id int64) (*model.Policy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockAttachmentService) ListExpiringPolicies(ctx context.Context, withinDays int) ([]model.ExpiringPolicy, error) {
	args := m.Called(ctx, withinDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExpiringPolicy), args.Error(1)
}
