package application

import (
	"time"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// CreateShipmentCommand creates a shipment. An empty TrackingID is issued
// by the service.
type CreateShipmentCommand struct {
	TrackingID          string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	CustomerAddress     string
	Origin              string
	Destination         string
	ServiceType         string
	PackageDetails      string
	Weight              float64
	Dimensions          domain.Dimensions
	SpecialInstructions string
	DeclaredValue       *float64
	EstimatedDelivery   time.Time
}

// UpdateShipmentCommand patches a shipment. Nil fields are left untouched.
type UpdateShipmentCommand struct {
	ShipmentID          string
	TrackingID          *string
	CustomerName        *string
	CustomerEmail       *string
	CustomerPhone       *string
	CustomerAddress     *string
	Origin              *string
	Destination         *string
	ServiceType         *string
	PackageDetails      *string
	Weight              *float64
	Dimensions          *domain.Dimensions
	SpecialInstructions *string
	DeclaredValue       *float64
	EstimatedDelivery   *time.Time
	Status              *string
	StatusLabel         string
	Location            string
	Description         string
}

// TransitionShipmentCommand moves a shipment to Status
type TransitionShipmentCommand struct {
	ShipmentID  string
	Status      string
	StatusLabel string
	Location    string
	Description string
}

// DeleteShipmentCommand removes a shipment
type DeleteShipmentCommand struct {
	ShipmentID string
}

// ExportShipmentsCommand serialises the whole collection
type ExportShipmentsCommand struct {
	Format string
}

// ImportShipmentsCommand appends the records in Data. Format may be empty,
// in which case FileName's extension or the payload itself decides.
type ImportShipmentsCommand struct {
	Format   string
	FileName string
	Data     []byte
}

// GetShipmentQuery gets a shipment by internal id
type GetShipmentQuery struct {
	ShipmentID string
}

// GetTimelineQuery gets a shipment's display timeline
type GetTimelineQuery struct {
	ShipmentID string
}

// ListShipmentsQuery runs the query pipeline over the collection
type ListShipmentsQuery struct {
	Search        string
	Status        string
	ServiceType   string
	SortBy        string
	SortDirection string
	Page          int
	PageSize      int
}

// TrackShipmentQuery looks up a shipment by its public tracking ID
type TrackShipmentQuery struct {
	TrackingID string
}

// TrackBatchQuery looks up several tracking IDs at once
type TrackBatchQuery struct {
	TrackingIDs []string
}
