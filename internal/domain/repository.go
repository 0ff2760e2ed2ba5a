package domain

import "context"

// ShipmentRepository is the backing store behind the mutation gateway.
// FindByID and FindByTrackingID return nil, nil when nothing matches.
type ShipmentRepository interface {
	Save(ctx context.Context, record *ShipmentRecord) error
	SaveAll(ctx context.Context, records []*ShipmentRecord) error
	FindByID(ctx context.Context, id string) (*ShipmentRecord, error)
	FindByTrackingID(ctx context.Context, trackingID string) (*ShipmentRecord, error)
	FindAll(ctx context.Context) ([]*ShipmentRecord, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// TrackingSource looks up a shipment by tracking ID. It returns nil, nil
// when the tracking ID is unknown.
type TrackingSource interface {
	FindByTrackingID(ctx context.Context, trackingID string) (*ShipmentRecord, error)
}

// TrackingSourceFunc adapts a function to TrackingSource
type TrackingSourceFunc func(ctx context.Context, trackingID string) (*ShipmentRecord, error)

// FindByTrackingID calls f
func (f TrackingSourceFunc) FindByTrackingID(ctx context.Context, trackingID string) (*ShipmentRecord, error) {
	return f(ctx, trackingID)
}
