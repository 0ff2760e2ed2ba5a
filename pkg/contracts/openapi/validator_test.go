package openapi_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pan-pacific/tracking-service/docs"
	"github.com/pan-pacific/tracking-service/pkg/contracts/openapi"
)

func newValidator(t *testing.T) *openapi.Validator {
	t.Helper()
	validator, err := openapi.NewValidatorFromBytes(docs.OpenAPI)
	require.NoError(t, err)
	return validator
}

func TestDocumentIsValid(t *testing.T) {
	validator := newValidator(t)

	doc := validator.Document()
	assert.NotEmpty(t, doc.Info.Title)
	assert.NotEmpty(t, doc.Info.Version)

	paths := validator.Paths()
	for _, required := range []string{
		"/api/v1/shipments",
		"/api/v1/shipments/{id}",
		"/api/v1/shipments/{id}/transitions",
		"/api/v1/shipments/{id}/timeline",
		"/api/v1/shipments/export",
		"/api/v1/shipments/import",
		"/api/v1/shipments/stats",
		"/api/v1/track/{trackingId}",
		"/api/v1/track/batch",
		"/health",
		"/ready",
	} {
		assert.Contains(t, paths, required)
	}
}

func TestValidator_OperationID(t *testing.T) {
	validator := newValidator(t)

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/shipments/stats", "getShipmentStats"},
		{http.MethodGet, "/api/v1/shipments/export", "exportShipments"},
		{http.MethodGet, "/api/v1/shipments/rec-1", "getShipment"},
		{http.MethodPost, "/api/v1/track/batch", "trackBatch"},
		{http.MethodGet, "/api/v1/track/PPS2024001", "trackShipment"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			id, err := validator.OperationID(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	_, err := validator.OperationID(httptest.NewRequest(http.MethodPatch, "/api/v1/shipments/rec-1", nil))
	assert.Error(t, err)
}

func TestValidator_ValidateRequest(t *testing.T) {
	validator := newValidator(t)

	assert.NoError(t, validator.ValidateRequest(httptest.NewRequest(http.MethodGet, "/api/v1/shipments?status=customs&page=2", nil)))
	assert.Error(t, validator.ValidateRequest(httptest.NewRequest(http.MethodGet, "/api/v1/shipments?status=lost", nil)))
	assert.Error(t, validator.ValidateRequest(httptest.NewRequest(http.MethodGet, "/api/v1/shipments?page=first", nil)))

	body := `{"status": "customs"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipments/rec-1/transitions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	assert.NoError(t, validator.ValidateRequest(req))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/shipments/rec-1/transitions", bytes.NewBufferString(`{"location": "Dubai"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Error(t, validator.ValidateRequest(req))
}

func TestValidator_ValidateResponse(t *testing.T) {
	validator := newValidator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/shipments/missing", nil)
	header := http.Header{"Content-Type": []string{"application/json; charset=utf-8"}}

	valid := []byte(`{"code":"RESOURCE_NOT_FOUND","message":"shipment not found","details":{"id":"missing"},"timestamp":"2024-01-15T10:00:00Z","path":"/api/v1/shipments/missing"}`)
	assert.NoError(t, validator.ValidateResponse(req, http.StatusNotFound, header, valid))

	assert.Error(t, validator.ValidateResponse(req, http.StatusNotFound, header, []byte(`{"message":"no code"}`)))
	assert.Error(t, validator.ValidateResponse(req, http.StatusTeapot, header, valid))
}

func TestValidator_ImportDeclaresConflict(t *testing.T) {
	validator := newValidator(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipments/import?format=json", bytes.NewReader([]byte(`[]`)))
	req.Header.Set("Content-Type", "application/json")
	header := http.Header{"Content-Type": []string{"application/json; charset=utf-8"}}

	conflict := []byte(`{"code":"CONFLICT","message":"tracking ID PPS2024001 already exists","details":{"trackingId":"PPS2024001"},"timestamp":"2024-01-15T10:00:00Z","path":"/api/v1/shipments/import"}`)
	assert.NoError(t, validator.ValidateResponse(req, http.StatusConflict, header, conflict))
}
