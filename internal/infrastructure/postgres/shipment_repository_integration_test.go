//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-pacific/tracking-service/internal/domain"
	sharedtesting "github.com/pan-pacific/tracking-service/pkg/testing"
)

func setupTestDatabase(t *testing.T) *ShipmentRepository {
	t.Helper()
	sharedtesting.SkipIfShort(t)
	ctx := context.Background()

	container, err := sharedtesting.NewPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	repo, err := Open(ctx, container.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestShipmentRepositoryIntegration_RoundTrip(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx, cancel := sharedtesting.CreateTestContext(30 * time.Second)
	defer cancel()

	first := createTestRecord("rec-1", "PPS2024001")
	second := createTestRecord("rec-2", "PPS2024002")
	second.DeclaredValue = nil
	require.NoError(t, repo.SaveAll(ctx, []*domain.ShipmentRecord{first, second}))

	second.Status = domain.StatusInTransit
	second.LastUpdated = second.CreatedDate.Add(time.Hour)
	second.Events = append(second.Events, domain.TimelineEvent{
		Timestamp:   second.CreatedDate.Add(time.Hour),
		StatusLabel: "In Transit",
		Location:    "Dubai Hub",
	})
	require.NoError(t, repo.Save(ctx, second))

	found, err := repo.FindByTrackingID(ctx, "PPS2024002")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.StatusInTransit, found.Status)
	assert.Nil(t, found.DeclaredValue)
	require.Len(t, found.Events, 2)
	assert.True(t, second.Events[1].Timestamp.Equal(found.Events[1].Timestamp))
	assert.NoError(t, found.CheckInvariants())

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "rec-1", all[0].ID)
	assert.Equal(t, "rec-2", all[1].ID)
	require.NotNil(t, all[0].DeclaredValue)
	assert.Equal(t, *first.DeclaredValue, *all[0].DeclaredValue)

	require.NoError(t, repo.Delete(ctx, "rec-1"))
	missing, err := repo.FindByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, repo.Ping(ctx))
}

func TestShipmentRepositoryIntegration_UniqueTrackingID(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx, cancel := sharedtesting.CreateTestContext(30 * time.Second)
	defer cancel()

	require.NoError(t, repo.Save(ctx, createTestRecord("rec-1", "PPS2024001")))

	err := repo.Save(ctx, createTestRecord("rec-2", "PPS2024001"))
	var dup *domain.DuplicateTrackingIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "PPS2024001", dup.TrackingID)
}
