package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-pacific/tracking-service/internal/codec"
	"github.com/pan-pacific/tracking-service/internal/domain"
	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
	"github.com/pan-pacific/tracking-service/pkg/logging"
	"github.com/pan-pacific/tracking-service/pkg/metrics"
)

func createTestService(t *testing.T, repo *MockShipmentRepository) (*ShipmentApplicationService, *MutationGateway) {
	t.Helper()
	gateway := createTestGateway(repo)
	require.NoError(t, gateway.Load(context.Background()))
	service := NewShipmentApplicationService(
		gateway,
		logging.Discard(),
		metrics.New(metrics.DefaultConfig("test")),
		WithServiceClock(fixedClock),
		WithImporter(codec.NewImporter(codec.WithClock(fixedClock), codec.WithIDGenerator(sequentialIDs("imp")))),
	)
	return service, gateway
}

func createTestCommand(trackingID string) CreateShipmentCommand {
	return CreateShipmentCommand{
		TrackingID:        trackingID,
		CustomerName:      "Sarah Johnson",
		CustomerEmail:     "sarah@example.com",
		CustomerPhone:     "+1 555 0100",
		Origin:            "Los Angeles, USA",
		Destination:       "Kathmandu, Nepal",
		ServiceType:       string(domain.ServiceSeaFreight),
		PackageDetails:    "Machinery parts",
		Weight:            340,
		Dimensions:        domain.Dimensions{Length: 120, Width: 80, Height: 90},
		EstimatedDelivery: testNow.AddDate(0, 1, 0),
	}
}

func seedService(t *testing.T, service *ShipmentApplicationService, trackingIDs ...string) []*ShipmentDTO {
	t.Helper()
	out := make([]*ShipmentDTO, len(trackingIDs))
	for i, id := range trackingIDs {
		dto, err := service.CreateShipment(context.Background(), createTestCommand(id))
		require.NoError(t, err)
		out[i] = dto
	}
	return out
}

func requireAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestShipmentService_CreateShipment(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())

	dto, err := service.CreateShipment(context.Background(), createTestCommand(""))
	require.NoError(t, err)

	assert.Equal(t, "PPS2024001", dto.TrackingID)
	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, "sea-freight", dto.ServiceType)
	require.Len(t, dto.Events, 1)
	assert.Equal(t, "Los Angeles, USA", dto.Events[0].Location)
}

func TestShipmentService_CreateShipmentErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateShipmentCommand)
		code   string
		field  string
	}{
		{"missing customer", func(c *CreateShipmentCommand) { c.CustomerName = "" }, apperrors.CodeValidationError, "customerName"},
		{"bad service type", func(c *CreateShipmentCommand) { c.ServiceType = "rail" }, apperrors.CodeValidationError, "serviceType"},
		{"zero weight", func(c *CreateShipmentCommand) { c.Weight = 0 }, apperrors.CodeValidationError, "weight"},
		{"duplicate tracking id", func(c *CreateShipmentCommand) { c.TrackingID = "PPS2024001" }, apperrors.CodeConflict, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := createTestService(t, NewMockShipmentRepository())
			seedService(t, service, "PPS2024001")

			cmd := createTestCommand("PPS2024099")
			tt.mutate(&cmd)
			_, err := service.CreateShipment(context.Background(), cmd)

			appErr := requireAppError(t, err, tt.code)
			if tt.field != "" {
				assert.Equal(t, tt.field, appErr.Details["field"])
			}
		})
	}
}

func TestShipmentService_StorageFailureIsInternal(t *testing.T) {
	repo := NewMockShipmentRepository()
	service, _ := createTestService(t, repo)
	repo.saveErr = errors.New("connection reset")

	_, err := service.CreateShipment(context.Background(), createTestCommand(""))
	appErr := requireAppError(t, err, apperrors.CodeInternalError)
	assert.Equal(t, 500, appErr.HTTPStatus)
}

func TestShipmentService_GetShipment(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())
	created := seedService(t, service, "PPS2024001")[0]

	dto, err := service.GetShipment(context.Background(), GetShipmentQuery{ShipmentID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created, dto)

	_, err = service.GetShipment(context.Background(), GetShipmentQuery{ShipmentID: "nope"})
	appErr := requireAppError(t, err, apperrors.CodeNotFound)
	assert.Equal(t, "nope", appErr.Details["id"])
}

func TestShipmentService_ListShipments(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())
	seeded := seedService(t, service, "PPS2024001", "PPS2024002", "PPS2024003")
	_, err := service.TransitionShipment(context.Background(), TransitionShipmentCommand{ShipmentID: seeded[1].ID, Status: "in-transit"})
	require.NoError(t, err)

	list, err := service.ListShipments(context.Background(), ListShipmentsQuery{Status: "pending", SortBy: "trackingId", SortDirection: "DESC", Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 2, list.TotalPages)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "PPS2024003", list.Items[0].TrackingID)

	_, err = service.ListShipments(context.Background(), ListShipmentsQuery{Page: 1, PageSize: 0})
	requireAppError(t, err, apperrors.CodeBadRequest)
}

func TestShipmentService_TransitionShipment(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())
	created := seedService(t, service, "PPS2024001")[0]

	dto, err := service.TransitionShipment(context.Background(), TransitionShipmentCommand{
		ShipmentID:  created.ID,
		Status:      "Customs",
		StatusLabel: "Customs Clearance",
		Location:    "Birgunj",
	})
	require.NoError(t, err)
	assert.Equal(t, "customs", dto.Status)
	assert.Len(t, dto.Events, 2)

	_, err = service.TransitionShipment(context.Background(), TransitionShipmentCommand{ShipmentID: created.ID, Status: "delivered", StatusLabel: "In Transit"})
	requireAppError(t, err, apperrors.CodeValidationError)

	_, err = service.TransitionShipment(context.Background(), TransitionShipmentCommand{ShipmentID: created.ID, Status: "delivered"})
	require.NoError(t, err)

	_, err = service.TransitionShipment(context.Background(), TransitionShipmentCommand{ShipmentID: created.ID, Status: "cancelled"})
	appErr := requireAppError(t, err, apperrors.CodeTerminalState)
	assert.Equal(t, 409, appErr.HTTPStatus)
	assert.Equal(t, "delivered", appErr.Details["current"])
	assert.Equal(t, "cancelled", appErr.Details["attempted"])
}

func TestShipmentService_TransitionToUnknownStatus(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())
	created := seedService(t, service, "PPS2024001")[0]

	_, err := service.TransitionShipment(context.Background(), TransitionShipmentCommand{ShipmentID: created.ID, Status: "lost"})
	requireAppError(t, err, apperrors.CodeInvalidTransition)
}

func TestShipmentService_UpdateShipment(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())
	created := seedService(t, service, "PPS2024001")[0]

	destination := "Pokhara, Nepal"
	dto, err := service.UpdateShipment(context.Background(), UpdateShipmentCommand{
		ShipmentID:  created.ID,
		Destination: &destination,
		Location:    "Los Angeles Port",
		Description: "Loaded onto vessel",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pokhara, Nepal", dto.Destination)
	assert.Equal(t, "pending", dto.Status)
	require.Len(t, dto.Events, 2)
	assert.Equal(t, "Los Angeles Port", dto.Events[1].Location)

	trackingID := "PPS2024999"
	_, err = service.UpdateShipment(context.Background(), UpdateShipmentCommand{ShipmentID: created.ID, TrackingID: &trackingID})
	appErr := requireAppError(t, err, apperrors.CodeValidationError)
	assert.Equal(t, "trackingId", appErr.Details["field"])

	_, err = service.UpdateShipment(context.Background(), UpdateShipmentCommand{ShipmentID: "missing"})
	requireAppError(t, err, apperrors.CodeNotFound)
}

func TestShipmentService_DeleteShipment(t *testing.T) {
	service, gateway := createTestService(t, NewMockShipmentRepository())
	created := seedService(t, service, "PPS2024001")[0]

	require.NoError(t, service.DeleteShipment(context.Background(), DeleteShipmentCommand{ShipmentID: created.ID}))
	assert.Zero(t, gateway.Len())

	err := service.DeleteShipment(context.Background(), DeleteShipmentCommand{ShipmentID: created.ID})
	requireAppError(t, err, apperrors.CodeNotFound)
}

func TestShipmentService_RejectionsLogAtWarnWithOperation(t *testing.T) {
	var buf bytes.Buffer
	gateway := createTestGateway(NewMockShipmentRepository())
	service := NewShipmentApplicationService(
		gateway,
		logging.New(&logging.Config{Level: logging.LevelInfo, ServiceName: "test", Output: &buf}),
		metrics.New(metrics.DefaultConfig("test")),
		WithServiceClock(fixedClock),
	)

	err := service.DeleteShipment(context.Background(), DeleteShipmentCommand{ShipmentID: "missing"})
	requireAppError(t, err, apperrors.CodeNotFound)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "delete", entry["operation"])
	assert.Equal(t, "missing", entry["target"])
	assert.Equal(t, apperrors.CodeNotFound, entry["code"])
}

func TestShipmentService_GetTimeline(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())
	created := seedService(t, service, "PPS2024001")[0]
	_, err := service.TransitionShipment(context.Background(), TransitionShipmentCommand{ShipmentID: created.ID, Status: "in-transit"})
	require.NoError(t, err)

	timeline, err := service.GetTimeline(context.Background(), GetTimelineQuery{ShipmentID: created.ID})
	require.NoError(t, err)

	require.Len(t, timeline.Events, 2)
	assert.True(t, timeline.Events[0].Completed)
	assert.True(t, timeline.Events[1].Current)
	assert.Equal(t, "In Transit", timeline.Display.Label)

	states := make([]string, len(timeline.Stages))
	for i, s := range timeline.Stages {
		states[i] = s.State
	}
	assert.Equal(t, []string{"completed", "current", "pending", "pending", "pending"}, states)
}

func TestShipmentService_GetStats(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())
	seeded := seedService(t, service, "PPS2024001", "PPS2024002", "PPS2024003", "PPS2024004")
	ctx := context.Background()

	_, err := service.TransitionShipment(ctx, TransitionShipmentCommand{ShipmentID: seeded[0].ID, Status: "in-transit"})
	require.NoError(t, err)
	_, err = service.TransitionShipment(ctx, TransitionShipmentCommand{ShipmentID: seeded[1].ID, Status: "delivered"})
	require.NoError(t, err)
	_, err = service.TransitionShipment(ctx, TransitionShipmentCommand{ShipmentID: seeded[2].ID, Status: "cancelled"})
	require.NoError(t, err)

	stats, err := service.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.DeliveredThisMonth)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 0, stats.ByStatus["customs"])
	assert.Equal(t, 4, stats.ByServiceType["sea-freight"])
	assert.Len(t, stats.ByStatus, len(domain.Statuses))
}

func TestComputeStats_DeliveredInEarlierMonth(t *testing.T) {
	records := []*domain.ShipmentRecord{
		{Status: domain.StatusDelivered, ServiceType: domain.ServiceAirFreight, LastUpdated: testNow.AddDate(0, -1, 0)},
		{Status: domain.StatusDelivered, ServiceType: domain.ServiceAirFreight, LastUpdated: testNow.AddDate(-1, 0, 0)},
		{Status: domain.StatusDelivered, ServiceType: domain.ServiceAirFreight, LastUpdated: testNow},
	}
	stats := ComputeStats(records, testNow)
	assert.Equal(t, 1, stats.DeliveredThisMonth)
	assert.Equal(t, 3, stats.ByStatus["delivered"])
}

func TestShipmentService_Export(t *testing.T) {
	service, _ := createTestService(t, NewMockShipmentRepository())
	seedService(t, service, "PPS2024001", "PPS2024002")

	tests := []struct {
		format   string
		fileName string
		check    func(t *testing.T, data []byte)
	}{
		{"csv", "shipments_2024-01-15.csv", func(t *testing.T, data []byte) {
			assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
		}},
		{"json", "shipments_2024-01-15.json", func(t *testing.T, data []byte) {
			var records []map[string]any
			require.NoError(t, json.Unmarshal(data, &records))
			assert.Len(t, records, 2)
		}},
		{"backup", "backup_2024-01-15.json", func(t *testing.T, data []byte) {
			var backup codec.Backup
			require.NoError(t, json.Unmarshal(data, &backup))
			assert.Equal(t, 2, backup.TotalRecords)
			assert.Equal(t, codec.BackupVersion, backup.Version)
		}},
		{"", "shipments_2024-01-15.json", func(t *testing.T, data []byte) {
			assert.True(t, strings.HasPrefix(string(data), "["))
		}},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			export, err := service.ExportShipments(context.Background(), ExportShipmentsCommand{Format: tt.format})
			require.NoError(t, err)
			assert.Equal(t, tt.fileName, export.FileName)
			assert.Equal(t, 2, export.Records)
			tt.check(t, export.Data)
		})
	}

	_, err := service.ExportShipments(context.Background(), ExportShipmentsCommand{Format: "xml"})
	requireAppError(t, err, apperrors.CodeValidationError)
}

// A CSV round trip into an empty collection yields new records with empty
// timelines.
func TestShipmentService_CSVRoundTrip(t *testing.T) {
	source, _ := createTestService(t, NewMockShipmentRepository())
	seedService(t, source, "PPS2024001", "PPS2024002", "PPS2024003")
	export, err := source.ExportShipments(context.Background(), ExportShipmentsCommand{Format: "csv"})
	require.NoError(t, err)

	target, gateway := createTestService(t, NewMockShipmentRepository())
	result, err := target.ImportShipments(context.Background(), ImportShipmentsCommand{FileName: export.FileName, Data: export.Data})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, "csv", result.Format)
	assert.Equal(t, []string{"PPS2024001", "PPS2024002", "PPS2024003"}, result.TrackingIDs)
	for _, r := range gateway.Snapshot() {
		assert.Empty(t, r.Events)
		assert.Equal(t, codec.ImportedPackageDetails, r.PackageDetails)
	}
}

func TestShipmentService_ImportRejections(t *testing.T) {
	service, gateway := createTestService(t, NewMockShipmentRepository())
	seedService(t, service, "PPS2024001")
	export, err := service.ExportShipments(context.Background(), ExportShipmentsCommand{Format: "backup"})
	require.NoError(t, err)

	_, err = service.ImportShipments(context.Background(), ImportShipmentsCommand{Data: export.Data})
	requireAppError(t, err, apperrors.CodeConflict)

	_, err = service.ImportShipments(context.Background(), ImportShipmentsCommand{Format: "csv", Data: []byte("a,b,c\n")})
	appErr := requireAppError(t, err, apperrors.CodeImportParseError)
	assert.Equal(t, "1", appErr.Details["line"])

	_, err = service.ImportShipments(context.Background(), ImportShipmentsCommand{Format: "json", Data: []byte(`[{`)})
	requireAppError(t, err, apperrors.CodeImportParseError)

	_, err = service.ImportShipments(context.Background(), ImportShipmentsCommand{Format: "yaml", Data: []byte(`[]`)})
	requireAppError(t, err, apperrors.CodeValidationError)

	assert.Equal(t, 1, gateway.Len())
}

func TestShipmentService_JSONImportKeepsTimelines(t *testing.T) {
	source, _ := createTestService(t, NewMockShipmentRepository())
	created := seedService(t, source, "PPS2024001")[0]
	_, err := source.TransitionShipment(context.Background(), TransitionShipmentCommand{ShipmentID: created.ID, Status: "in-transit"})
	require.NoError(t, err)
	export, err := source.ExportShipments(context.Background(), ExportShipmentsCommand{Format: "json"})
	require.NoError(t, err)

	target, gateway := createTestService(t, NewMockShipmentRepository())
	result, err := target.ImportShipments(context.Background(), ImportShipmentsCommand{Format: "json", Data: export.Data})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	snapshot := gateway.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Len(t, snapshot[0].Events, 2)
	assert.Equal(t, domain.StatusInTransit, snapshot[0].Status)
	assert.Equal(t, created.CreatedDate, snapshot[0].CreatedDate.In(time.UTC))
}
