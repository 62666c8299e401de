package mocks

import (
	"context"

	"fleetdocs/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) Add(ctx context.Context, vehicleID int64, input model.PolicyInput, file *model.UploadedFile, createdBy int64) (*model.Policy, error) {
	args := m.Called(ctx, vehicleID, input, file, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockPolicyRepository) FindByID(ctx context.Context, id int64) (*model.Policy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockPolicyRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]model.Policy, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Policy), args.Error(1)
}

func (m *MockPolicyRepository) Update(ctx context.Context, id int64, patch model.PolicyPatch) (*model.Policy, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockPolicyRepository) Delete(ctx context.Context, id int64) (*model.Policy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Policy), args.Error(1)
}

func (m *MockPolicyRepository) ListExpiring(ctx context.Context, withinDays int) ([]model.ExpiringPolicy, error) {
	args := m.Called(ctx, withinDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExpiringPolicy), args.Error(1)
}

func (m *MockPolicyRepository) CountByVehicle(ctx context.Context, vehicleID int64) (int, error) {
	args := m.Called(ctx, vehicleID)
	return args.Int(0), args.Error(1)
}

func (m *MockPolicyRepository) CountActiveByVehicle(ctx context.Context, vehicleID int64) (int, error) {
	args := m.Called(ctx, vehicleID)
	return args.Int(0), args.Error(1)
}

func (m *MockPolicyRepository) CountExpiringByVehicle(ctx context.Context, vehicleID int64, withinDays int) (int, error) {
	args := m.Called(ctx, vehicleID, withinDays)
	return args.Int(0), args.Error(1)
}

func (m *MockPolicyRepository) Summary(ctx context.Context, vehicleID int64) (*model.PolicySummary, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PolicySummary), args.Error(1)
}
