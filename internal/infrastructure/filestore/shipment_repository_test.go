package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

func createTestRecord(id, trackingID string) *domain.ShipmentRecord {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return &domain.ShipmentRecord{
		ID:          id,
		TrackingID:  trackingID,
		Status:      domain.StatusPending,
		ServiceType: domain.ServiceAirFreight,
		CreatedDate: now,
		LastUpdated: now,
		Events:      []domain.TimelineEvent{{Timestamp: now, StatusLabel: "Processing", Location: "Kathmandu"}},
	}
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "shipments.json")

	repo, err := Open(path)
	require.NoError(t, err)

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NoError(t, repo.Ping(context.Background()))
	assert.Equal(t, path, repo.Path())
}

func TestShipmentRepository_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shipments.json")

	repo, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(ctx, []*domain.ShipmentRecord{
		createTestRecord("a", "PPS2024001"),
		createTestRecord("b", "PPS2024002"),
	}))

	moved := createTestRecord("a", "PPS2024001")
	moved.Status = domain.StatusInTransit
	require.NoError(t, repo.Save(ctx, moved))
	require.NoError(t, repo.Delete(ctx, "b"))
	require.NoError(t, repo.Save(ctx, createTestRecord("c", "PPS2024003")))

	reopened, err := Open(path)
	require.NoError(t, err)
	all, err := reopened.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, domain.StatusInTransit, all[0].Status)
	assert.Equal(t, "c", all[1].ID)
	assert.Equal(t, "Kathmandu", all[1].Events[0].Location)

	found, err := reopened.FindByTrackingID(ctx, "PPS2024003")
	require.NoError(t, err)
	assert.Equal(t, "c", found.ID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestShipmentRepository_FailedWriteKeepsState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "shipments.json")

	repo, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, createTestRecord("a", "PPS2024001")))

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, repo.Save(ctx, createTestRecord("b", "PPS2024002")))
	assert.Error(t, repo.Ping(ctx))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipments.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	assert.ErrorContains(t, err, "failed to parse")

	require.NoError(t, os.WriteFile(path, []byte("[null]"), 0o644))
	_, err = Open(path)
	assert.ErrorContains(t, err, "record 0 is null")
}
