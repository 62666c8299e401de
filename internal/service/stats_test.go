package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fleetdocs/internal/model"
	repomocks "fleetdocs/internal/repository/mocks"
	"fleetdocs/internal/rules"
)

func TestStatsService_VehicleStats(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates the counters", func(t *testing.T) {
		docs := new(repomocks.MockDocumentRepository)
		policies := new(repomocks.MockPolicyRepository)
		svc := NewStatsService(docs, policies)

		docs.On("CountByVehicle", ctx, int64(1)).Return(4, nil)
		policies.On("CountByVehicle", ctx, int64(1)).Return(2, nil)
		policies.On("CountActiveByVehicle", ctx, int64(1)).Return(1, nil)
		policies.On("CountExpiringByVehicle", ctx, int64(1), rules.ExpiryWindowDays).Return(1, nil)

		stats, err := svc.VehicleStats(ctx, 1)

		assert.NoError(t, err)
		assert.Equal(t, 4, stats.TotalDocuments)
		assert.Equal(t, 2, stats.TotalPolicies)
		assert.Equal(t, 1, stats.ActivePolicies)
		assert.Equal(t, 1, stats.ExpiringSoon)
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		docs := new(repomocks.MockDocumentRepository)
		policies := new(repomocks.MockPolicyRepository)
		svc := NewStatsService(docs, policies)

		docs.On("CountByVehicle", ctx, int64(1)).Return(0, errors.New("db down"))

		stats, err := svc.VehicleStats(ctx, 1)

		assert.Error(t, err)
		assert.Nil(t, stats)
	})
}

func TestStatsService_VehicleSummary(t *testing.T) {
	ctx := context.Background()

	docs := new(repomocks.MockDocumentRepository)
	policies := new(repomocks.MockPolicyRepository)
	svc := NewStatsService(docs, policies)

	last := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC)
	docs.On("TypeSummary", ctx, int64(1)).Return([]model.DocumentTypeCount{
		{Type: "Factura", Count: 2, LastUploaded: last},
	}, nil)
	policies.On("Summary", ctx, int64(1)).Return(&model.PolicySummary{Count: 2, Active: 1, NextExpiration: &next}, nil)

	summary, err := svc.VehicleSummary(ctx, 1)

	assert.NoError(t, err)
	assert.Len(t, summary.Documents, 1)
	assert.Equal(t, 1, summary.Policies.Active)
	assert.Equal(t, next, *summary.Policies.NextExpiration)
}
