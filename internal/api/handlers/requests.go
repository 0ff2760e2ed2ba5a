package handlers

import (
	"strings"
	"time"

	"github.com/pan-pacific/tracking-service/internal/application"
	"github.com/pan-pacific/tracking-service/internal/domain"
	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
)

// DimensionsRequest carries package dimensions in centimetres
type DimensionsRequest struct {
	Length float64 `json:"length" binding:"gte=0"`
	Width  float64 `json:"width" binding:"gte=0"`
	Height float64 `json:"height" binding:"gte=0"`
}

func (d *DimensionsRequest) toDomain() *domain.Dimensions {
	if d == nil {
		return nil
	}
	return &domain.Dimensions{Length: d.Length, Width: d.Width, Height: d.Height}
}

// CreateShipmentRequest is the body of POST /shipments. Mandatory fields are
// checked by the domain so every missing field reports the same way.
type CreateShipmentRequest struct {
	TrackingID          string             `json:"trackingId" binding:"omitempty,tracking_id"`
	CustomerName        string             `json:"customerName"`
	CustomerEmail       string             `json:"customerEmail" binding:"omitempty,email"`
	CustomerPhone       string             `json:"customerPhone"`
	CustomerAddress     string             `json:"customerAddress"`
	Origin              string             `json:"origin"`
	Destination         string             `json:"destination"`
	ServiceType         string             `json:"serviceType" binding:"omitempty,service_type"`
	PackageDetails      string             `json:"packageDetails"`
	Weight              float64            `json:"weight" binding:"gte=0"`
	Dimensions          *DimensionsRequest `json:"dimensions"`
	SpecialInstructions string             `json:"specialInstructions"`
	DeclaredValue       *float64           `json:"declaredValue" binding:"omitempty,gte=0"`
	EstimatedDelivery   string             `json:"estimatedDelivery"`
}

func (r CreateShipmentRequest) toCommand() (application.CreateShipmentCommand, *apperrors.AppError) {
	cmd := application.CreateShipmentCommand{
		TrackingID:          r.TrackingID,
		CustomerName:        r.CustomerName,
		CustomerEmail:       r.CustomerEmail,
		CustomerPhone:       r.CustomerPhone,
		CustomerAddress:     r.CustomerAddress,
		Origin:              r.Origin,
		Destination:         r.Destination,
		ServiceType:         r.ServiceType,
		PackageDetails:      r.PackageDetails,
		Weight:              r.Weight,
		SpecialInstructions: r.SpecialInstructions,
		DeclaredValue:       r.DeclaredValue,
	}
	if d := r.Dimensions.toDomain(); d != nil {
		cmd.Dimensions = *d
	}
	if r.EstimatedDelivery != "" {
		t, appErr := parseDate("estimatedDelivery", r.EstimatedDelivery)
		if appErr != nil {
			return cmd, appErr
		}
		cmd.EstimatedDelivery = t
	}
	return cmd, nil
}

// UpdateShipmentRequest is the body of PUT /shipments/:id. Absent fields are
// left untouched; status or event details append a timeline event.
type UpdateShipmentRequest struct {
	TrackingID          *string            `json:"trackingId"`
	CustomerName        *string            `json:"customerName"`
	CustomerEmail       *string            `json:"customerEmail" binding:"omitempty,email"`
	CustomerPhone       *string            `json:"customerPhone"`
	CustomerAddress     *string            `json:"customerAddress"`
	Origin              *string            `json:"origin"`
	Destination         *string            `json:"destination"`
	ServiceType         *string            `json:"serviceType" binding:"omitempty,service_type"`
	PackageDetails      *string            `json:"packageDetails"`
	Weight              *float64           `json:"weight" binding:"omitempty,gte=0"`
	Dimensions          *DimensionsRequest `json:"dimensions"`
	SpecialInstructions *string            `json:"specialInstructions"`
	DeclaredValue       *float64           `json:"declaredValue" binding:"omitempty,gte=0"`
	EstimatedDelivery   *string            `json:"estimatedDelivery"`
	Status              *string            `json:"status"`
	StatusLabel         string             `json:"statusLabel"`
	Location            string             `json:"location"`
	Description         string             `json:"description"`
}

func (r UpdateShipmentRequest) toCommand(id string) (application.UpdateShipmentCommand, *apperrors.AppError) {
	cmd := application.UpdateShipmentCommand{
		ShipmentID:          id,
		TrackingID:          r.TrackingID,
		CustomerName:        r.CustomerName,
		CustomerEmail:       r.CustomerEmail,
		CustomerPhone:       r.CustomerPhone,
		CustomerAddress:     r.CustomerAddress,
		Origin:              r.Origin,
		Destination:         r.Destination,
		ServiceType:         r.ServiceType,
		PackageDetails:      r.PackageDetails,
		Weight:              r.Weight,
		Dimensions:          r.Dimensions.toDomain(),
		SpecialInstructions: r.SpecialInstructions,
		DeclaredValue:       r.DeclaredValue,
		Status:              r.Status,
		StatusLabel:         r.StatusLabel,
		Location:            r.Location,
		Description:         r.Description,
	}
	if r.EstimatedDelivery != nil {
		t, appErr := parseDate("estimatedDelivery", *r.EstimatedDelivery)
		if appErr != nil {
			return cmd, appErr
		}
		cmd.EstimatedDelivery = &t
	}
	return cmd, nil
}

// TransitionRequest is the body of POST /shipments/:id/transitions
type TransitionRequest struct {
	Status      string `json:"status" binding:"required"`
	StatusLabel string `json:"statusLabel"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// TrackBatchRequest is the body of POST /track/batch
type TrackBatchRequest struct {
	TrackingIDs []string `json:"trackingIds" binding:"required"`
}

// listQuery validates the enumerated list filters
type listQuery struct {
	Status  string `form:"status" binding:"omitempty,eq=all|shipment_status"`
	Service string `form:"service" binding:"omitempty,eq=all|service_type"`
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (midnight UTC)
func parseDate(field, value string) (time.Time, *apperrors.AppError) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.ErrValidationWithFields("invalid date", map[string]string{
		field: "must be an RFC 3339 timestamp or a YYYY-MM-DD date",
	})
}
