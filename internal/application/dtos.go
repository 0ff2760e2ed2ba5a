package application

import "time"

// ShipmentDTO represents a shipment in responses
type ShipmentDTO struct {
	ID                  string             `json:"id"`
	TrackingID          string             `json:"trackingId"`
	CustomerName        string             `json:"customerName"`
	CustomerEmail       string             `json:"customerEmail"`
	CustomerPhone       string             `json:"customerPhone"`
	CustomerAddress     string             `json:"customerAddress,omitempty"`
	Origin              string             `json:"origin"`
	Destination         string             `json:"destination"`
	ServiceType         string             `json:"serviceType"`
	PackageDetails      string             `json:"packageDetails"`
	Weight              float64            `json:"weight"`
	Dimensions          DimensionsDTO      `json:"dimensions"`
	SpecialInstructions string             `json:"specialInstructions,omitempty"`
	DeclaredValue       *float64           `json:"declaredValue,omitempty"`
	Status              string             `json:"status"`
	CreatedDate         time.Time          `json:"createdDate"`
	LastUpdated         time.Time          `json:"lastUpdated"`
	EstimatedDelivery   time.Time          `json:"estimatedDelivery"`
	Events              []TimelineEventDTO `json:"events"`
}

// DimensionsDTO represents package dimensions
type DimensionsDTO struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TimelineEventDTO represents a recorded timeline event
type TimelineEventDTO struct {
	Timestamp   time.Time `json:"timestamp"`
	StatusLabel string    `json:"statusLabel"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

// DisplayEventDTO is a timeline event with its display flags
type DisplayEventDTO struct {
	TimelineEventDTO
	Status    string `json:"status,omitempty"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

// StageDTO is one expected stage of a shipment's journey
type StageDTO struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	State  string `json:"state"`
}

// StatusDisplayDTO is presentation metadata for a status
type StatusDisplayDTO struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
	Icon  string `json:"icon"`
}

// TimelineDTO is a shipment's display timeline
type TimelineDTO struct {
	ShipmentID string            `json:"shipmentId"`
	TrackingID string            `json:"trackingId"`
	Status     string            `json:"status"`
	Display    StatusDisplayDTO  `json:"display"`
	Events     []DisplayEventDTO `json:"events"`
	Stages     []StageDTO        `json:"stages"`
}

// TrackingDTO answers a public tracking lookup
type TrackingDTO struct {
	Shipment ShipmentDTO `json:"shipment"`
	Timeline TimelineDTO `json:"timeline"`
	Source   string      `json:"source"`
}

// ShipmentListDTO is one page of a shipment query
type ShipmentListDTO struct {
	Items      []ShipmentDTO `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

// StatsDTO summarises the collection for the dashboard
type StatsDTO struct {
	Total              int            `json:"total"`
	Active             int            `json:"active"`
	Pending            int            `json:"pending"`
	DeliveredThisMonth int            `json:"deliveredThisMonth"`
	Cancelled          int            `json:"cancelled"`
	ByStatus           map[string]int `json:"byStatus"`
	ByServiceType      map[string]int `json:"byServiceType"`
}

// ExportDTO is a serialised collection ready to download
type ExportDTO struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Records     int    `json:"records"`
	Data        []byte `json:"-"`
}

// ImportResultDTO reports a committed import
type ImportResultDTO struct {
	Format      string   `json:"format"`
	Imported    int      `json:"imported"`
	TrackingIDs []string `json:"trackingIds"`
}
