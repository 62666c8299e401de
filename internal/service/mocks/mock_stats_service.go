package mocks

import (
	"context"

	"fleetdocs/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) VehicleStats(ctx context.Context, vehicleID int64) (*model.VehicleAttachmentStats, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VehicleAttachmentStats), args.Error(1)
}

func (m *MockStatsService) VehicleSummary(ctx context.Context, vehicleID int64) (*model.VehicleAttachmentSummary, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VehicleAttachmentSummary), args.Error(1)
}
