package instrumented

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-pacific/tracking-service/internal/domain"
	"github.com/pan-pacific/tracking-service/internal/infrastructure/memory"
	"github.com/pan-pacific/tracking-service/pkg/logging"
	"github.com/pan-pacific/tracking-service/pkg/metrics"
)

type failingRepository struct {
	*memory.ShipmentRepository
	err error
}

func (f failingRepository) Save(ctx context.Context, record *domain.ShipmentRecord) error {
	return f.err
}

func createTestRecord(id string) *domain.ShipmentRecord {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return &domain.ShipmentRecord{
		ID:          id,
		TrackingID:  "PPS2024001",
		Status:      domain.StatusPending,
		ServiceType: domain.ServiceAirFreight,
		CreatedDate: now,
		LastUpdated: now,
		Events:      []domain.TimelineEvent{},
	}
}

func TestRepository_RecordsOperations(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("test"))
	repo := Wrap(memory.NewShipmentRepository(), "memory", m, logging.Discard())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, createTestRecord("a")))
	found, err := repo.FindByTrackingID(ctx, "PPS2024001")
	require.NoError(t, err)
	assert.Equal(t, "a", found.ID)
	_, err = repo.FindAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOperations.WithLabelValues("test", "memory", "save", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOperations.WithLabelValues("test", "memory", "findByTrackingId", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOperations.WithLabelValues("test", "memory", "findAll", "success")))
}

func TestRepository_RecordsFailures(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig("test"))
	boom := errors.New("disk full")
	repo := Wrap(failingRepository{ShipmentRepository: memory.NewShipmentRepository(), err: boom}, "file", m, nil)

	err := repo.Save(context.Background(), createTestRecord("a"))
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOperations.WithLabelValues("test", "file", "save", "error")))
	_, isMemory := repo.Unwrap().(failingRepository)
	assert.True(t, isMemory)
}
