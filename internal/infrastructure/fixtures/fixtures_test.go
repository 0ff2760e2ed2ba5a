package fixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-pacific/tracking-service/internal/domain"
	"github.com/pan-pacific/tracking-service/internal/infrastructure/memory"
)

func TestRecords(t *testing.T) {
	records, err := Records()
	require.NoError(t, err)
	require.Len(t, records, 5)

	statuses := make([]domain.Status, len(records))
	for i, r := range records {
		statuses[i] = r.Status
		assert.NoError(t, r.CheckInvariants(), r.TrackingID)
	}
	assert.ElementsMatch(t, []domain.Status{
		domain.StatusPending,
		domain.StatusInTransit,
		domain.StatusCustoms,
		domain.StatusOutForDelivery,
		domain.StatusDelivered,
	}, statuses)

	assert.Equal(t, "PPS2024001", records[0].TrackingID)
	assert.Equal(t, domain.Dimensions{Length: 100, Width: 80, Height: 60}, records[0].Dimensions)
	assert.Equal(t, "Booking confirmed, awaiting pickup", records[4].Events[0].Description)
}

func TestRecords_ReturnsCopies(t *testing.T) {
	first, err := Records()
	require.NoError(t, err)
	first[0].Events = nil

	second, err := Records()
	require.NoError(t, err)
	assert.Len(t, second[0].Events, 3)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"not a list", "trackingId: x", "failed to parse fixtures"},
		{"bad timestamp", `- {trackingId: X1, status: pending, serviceType: air-freight, createdDate: yesterday}`, "createdDate"},
		{
			"status mismatch",
			`- trackingId: X1
  status: delivered
  serviceType: air-freight
  createdDate: "2024-01-01T00:00:00Z"
  lastUpdated: "2024-01-01T00:00:00Z"
  estimatedDelivery: "2024-01-02T00:00:00Z"
  events:
    - {timestamp: "2024-01-01T00:00:00Z", statusLabel: Processing}`,
			"does not match latest event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSource(t *testing.T) {
	source, err := Source()
	require.NoError(t, err)

	record, err := source.FindByTrackingID(context.Background(), "pps2024003")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.StatusDelivered, record.Status)

	missing, err := source.FindByTrackingID(context.Background(), "PPS2024999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewShipmentRepository()

	n, err := Seed(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = Seed(ctx, repo)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
