package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-pacific/tracking-service/docs"
	"github.com/pan-pacific/tracking-service/internal/application"
	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
	"github.com/pan-pacific/tracking-service/pkg/contracts/openapi"
)

func contractServices() (*mockShipmentService, *mockTrackingService) {
	shipments := &mockShipmentService{
		listShipmentsFn: func(ctx context.Context, q application.ListShipmentsQuery) (*application.ShipmentListDTO, error) {
			return &application.ShipmentListDTO{
				Items:      []application.ShipmentDTO{*createTestShipmentDTO("rec-1", "PPS2024001")},
				Total:      1,
				Page:       1,
				PageSize:   10,
				TotalPages: 1,
			}, nil
		},
		createShipmentFn: func(ctx context.Context, cmd application.CreateShipmentCommand) (*application.ShipmentDTO, error) {
			return createTestShipmentDTO("rec-1", "PPS2024001"), nil
		},
		getShipmentFn: func(ctx context.Context, q application.GetShipmentQuery) (*application.ShipmentDTO, error) {
			if q.ShipmentID != "rec-1" {
				return nil, apperrors.ErrNotFoundWithID("shipment", q.ShipmentID)
			}
			return createTestShipmentDTO("rec-1", "PPS2024001"), nil
		},
		transitionShipmentFn: func(ctx context.Context, cmd application.TransitionShipmentCommand) (*application.ShipmentDTO, error) {
			return nil, apperrors.ErrInvalidTransition("pending", cmd.Status)
		},
		deleteShipmentFn: func(ctx context.Context, cmd application.DeleteShipmentCommand) error {
			return nil
		},
		getTimelineFn: func(ctx context.Context, q application.GetTimelineQuery) (*application.TimelineDTO, error) {
			dto := createTestTrackingDTO("PPS2024001", "primary").Timeline
			return &dto, nil
		},
		getStatsFn: func(ctx context.Context) (*application.StatsDTO, error) {
			return &application.StatsDTO{
				Total:         1,
				Pending:       1,
				ByStatus:      map[string]int{"pending": 1},
				ByServiceType: map[string]int{"air-freight": 1},
			}, nil
		},
		importShipmentsFn: func(ctx context.Context, cmd application.ImportShipmentsCommand) (*application.ImportResultDTO, error) {
			return &application.ImportResultDTO{Format: "json", Imported: 1, TrackingIDs: []string{"PPS2024010"}}, nil
		},
	}
	tracking := &mockTrackingService{
		trackShipmentFn: func(ctx context.Context, q application.TrackShipmentQuery) (*application.TrackingDTO, error) {
			dto := createTestTrackingDTO(q.TrackingID, "cache")
			return &dto, nil
		},
		trackBatchFn: func(ctx context.Context, q application.TrackBatchQuery) ([]application.TrackingDTO, error) {
			return []application.TrackingDTO{createTestTrackingDTO("PPS2024001", "primary")}, nil
		},
	}
	return shipments, tracking
}

func TestHandlers_MatchOpenAPIDocument(t *testing.T) {
	validator, err := openapi.NewValidatorFromBytes(docs.OpenAPI)
	require.NoError(t, err)
	router := newTestRouter(contractServices())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"list", http.MethodGet, "/api/v1/shipments?status=pending&sortBy=createdDate&order=desc", "", http.StatusOK},
		{"list bad filter", http.MethodGet, "/api/v1/shipments?service=rail", "", http.StatusBadRequest},
		{"create", http.MethodPost, "/api/v1/shipments", `{"customerName":"Rajesh Kumar","serviceType":"air-freight","weight":25}`, http.StatusCreated},
		{"get", http.MethodGet, "/api/v1/shipments/rec-1", "", http.StatusOK},
		{"get missing", http.MethodGet, "/api/v1/shipments/rec-9", "", http.StatusNotFound},
		{"transition rejected", http.MethodPost, "/api/v1/shipments/rec-1/transitions", `{"status":"delivered"}`, http.StatusConflict},
		{"delete", http.MethodDelete, "/api/v1/shipments/rec-1", "", http.StatusNoContent},
		{"timeline", http.MethodGet, "/api/v1/shipments/rec-1/timeline", "", http.StatusOK},
		{"stats", http.MethodGet, "/api/v1/shipments/stats", "", http.StatusOK},
		{"import", http.MethodPost, "/api/v1/shipments/import?format=json", `[]`, http.StatusCreated},
		{"track", http.MethodGet, "/api/v1/track/PPS2024001", "", http.StatusOK},
		{"track batch", http.MethodPost, "/api/v1/track/batch", `{"trackingIds":["PPS2024001","PPS2024404"]}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performRequest(router, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			assert.NoError(t, validator.ValidateResponse(req, rec.Code, rec.Header(), rec.Body.Bytes()))
		})
	}
}
