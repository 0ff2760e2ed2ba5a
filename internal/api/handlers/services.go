package handlers

import (
	"context"
	"sync"

	"github.com/pan-pacific/tracking-service/internal/application"
	"github.com/pan-pacific/tracking-service/internal/domain"
	"github.com/pan-pacific/tracking-service/pkg/middleware"
)

// ShipmentService is the application surface behind the shipment routes
type ShipmentService interface {
	CreateShipment(ctx context.Context, cmd application.CreateShipmentCommand) (*application.ShipmentDTO, error)
	GetShipment(ctx context.Context, q application.GetShipmentQuery) (*application.ShipmentDTO, error)
	ListShipments(ctx context.Context, q application.ListShipmentsQuery) (*application.ShipmentListDTO, error)
	UpdateShipment(ctx context.Context, cmd application.UpdateShipmentCommand) (*application.ShipmentDTO, error)
	TransitionShipment(ctx context.Context, cmd application.TransitionShipmentCommand) (*application.ShipmentDTO, error)
	DeleteShipment(ctx context.Context, cmd application.DeleteShipmentCommand) error
	GetTimeline(ctx context.Context, q application.GetTimelineQuery) (*application.TimelineDTO, error)
	GetStats(ctx context.Context) (*application.StatsDTO, error)
	ExportShipments(ctx context.Context, cmd application.ExportShipmentsCommand) (*application.ExportDTO, error)
	ImportShipments(ctx context.Context, cmd application.ImportShipmentsCommand) (*application.ImportResultDTO, error)
}

// TrackingService is the application surface behind the public tracking routes
type TrackingService interface {
	TrackShipment(ctx context.Context, q application.TrackShipmentQuery) (*application.TrackingDTO, error)
	TrackBatch(ctx context.Context, q application.TrackBatchQuery) ([]application.TrackingDTO, error)
}

var registerOnce sync.Once

// RegisterValidators installs the status and service type vocabularies
// behind the shipment_status and service_type validators
func RegisterValidators() {
	registerOnce.Do(func() {
		middleware.InitValidator()

		statuses := make([]string, len(domain.Statuses))
		for i, s := range domain.Statuses {
			statuses[i] = string(s)
		}
		middleware.RegisterEnum("shipment_status", statuses...)

		services := make([]string, len(domain.ServiceTypes))
		for i, s := range domain.ServiceTypes {
			services[i] = string(s)
		}
		middleware.RegisterEnum("service_type", services...)
	})
}
