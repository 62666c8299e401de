package service

import (
	"context"
	"fmt"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/rules"
)

// StatsService provides read-only rollups over the attachment tables. It has
// no storage of its own; everything derives from repository queries.
type StatsService interface {
	VehicleStats(ctx context.Context, vehicleID int64) (*model.VehicleAttachmentStats, error)
	VehicleSummary(ctx context.Context, vehicleID int64) (*model.VehicleAttachmentSummary, error)
}

type statsService struct {
	docs     repository.DocumentRepository
	policies repository.PolicyRepository
}

// NewStatsService constructs the aggregator.
func NewStatsService(docs repository.DocumentRepository, policies repository.PolicyRepository) StatsService {
	return &statsService{docs: docs, policies: policies}
}

func (s *statsService) VehicleStats(ctx context.Context, vehicleID int64) (*model.VehicleAttachmentStats, error) {
	var stats model.VehicleAttachmentStats
	var err error

	if stats.TotalDocuments, err = s.docs.CountByVehicle(ctx, vehicleID); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if stats.TotalPolicies, err = s.policies.CountByVehicle(ctx, vehicleID); err != nil {
		return nil, fmt.Errorf("count policies: %w", err)
	}
	if stats.ActivePolicies, err = s.policies.CountActiveByVehicle(ctx, vehicleID); err != nil {
		return nil, fmt.Errorf("count active policies: %w", err)
	}
	if stats.ExpiringSoon, err = s.policies.CountExpiringByVehicle(ctx, vehicleID, rules.ExpiryWindowDays); err != nil {
		return nil, fmt.Errorf("count expiring policies: %w", err)
	}
	return &stats, nil
}

func (s *statsService) VehicleSummary(ctx context.Context, vehicleID int64) (*model.VehicleAttachmentSummary, error) {
	docs, err := s.docs.TypeSummary(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("document summary: %w", err)
	}
	policies, err := s.policies.Summary(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("policy summary: %w", err)
	}
	return &model.VehicleAttachmentSummary{Documents: docs, Policies: *policies}, nil
}
