// Package fixtures embeds the demo shipment table used as the tracking
// fallback source and for seeding empty stores.
package fixtures

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

//go:embed shipments.yaml
var shipmentsYAML []byte

type fixtureEvent struct {
	Timestamp   string `yaml:"timestamp"`
	StatusLabel string `yaml:"statusLabel"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
}

type fixtureShipment struct {
	ID                  string            `yaml:"id"`
	TrackingID          string            `yaml:"trackingId"`
	CustomerName        string            `yaml:"customerName"`
	CustomerEmail       string            `yaml:"customerEmail"`
	CustomerPhone       string            `yaml:"customerPhone"`
	CustomerAddress     string            `yaml:"customerAddress"`
	Origin              string            `yaml:"origin"`
	Destination         string            `yaml:"destination"`
	ServiceType         string            `yaml:"serviceType"`
	Status              string            `yaml:"status"`
	PackageDetails      string            `yaml:"packageDetails"`
	Weight              float64           `yaml:"weight"`
	Dimensions          domain.Dimensions `yaml:"dimensions"`
	SpecialInstructions string            `yaml:"specialInstructions"`
	CreatedDate         string            `yaml:"createdDate"`
	LastUpdated         string            `yaml:"lastUpdated"`
	EstimatedDelivery   string            `yaml:"estimatedDelivery"`
	Events              []fixtureEvent    `yaml:"events"`
}

var (
	loadOnce sync.Once
	loaded   []*domain.ShipmentRecord
	loadErr  error
)

// Records returns copies of the embedded shipments
func Records() ([]*domain.ShipmentRecord, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(shipmentsYAML)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]*domain.ShipmentRecord, len(loaded))
	for i, r := range loaded {
		out[i] = r.Clone()
	}
	return out, nil
}

// Parse decodes a YAML shipment table and checks every record's invariants
func Parse(data []byte) ([]*domain.ShipmentRecord, error) {
	var raw []fixtureShipment
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	records := make([]*domain.ShipmentRecord, 0, len(raw))
	for i, f := range raw {
		record, err := f.toRecord()
		if err != nil {
			return nil, fmt.Errorf("fixture %d (%s): %w", i, f.TrackingID, err)
		}
		if err := record.CheckInvariants(); err != nil {
			return nil, fmt.Errorf("fixture %d (%s): %w", i, f.TrackingID, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (f fixtureShipment) toRecord() (*domain.ShipmentRecord, error) {
	created, err := parseTime("createdDate", f.CreatedDate)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime("lastUpdated", f.LastUpdated)
	if err != nil {
		return nil, err
	}
	estimated, err := parseTime("estimatedDelivery", f.EstimatedDelivery)
	if err != nil {
		return nil, err
	}

	events := make([]domain.TimelineEvent, len(f.Events))
	for i, e := range f.Events {
		ts, err := parseTime("events.timestamp", e.Timestamp)
		if err != nil {
			return nil, err
		}
		events[i] = domain.TimelineEvent{
			Timestamp:   ts,
			StatusLabel: e.StatusLabel,
			Location:    e.Location,
			Description: e.Description,
		}
	}

	return &domain.ShipmentRecord{
		ID:                  f.ID,
		TrackingID:          domain.NormaliseTrackingID(f.TrackingID),
		CustomerName:        f.CustomerName,
		CustomerEmail:       f.CustomerEmail,
		CustomerPhone:       f.CustomerPhone,
		CustomerAddress:     f.CustomerAddress,
		Origin:              f.Origin,
		Destination:         f.Destination,
		ServiceType:         domain.ServiceType(f.ServiceType),
		PackageDetails:      f.PackageDetails,
		Weight:              f.Weight,
		Dimensions:          f.Dimensions,
		SpecialInstructions: f.SpecialInstructions,
		Status:              domain.Status(f.Status),
		CreatedDate:         created,
		LastUpdated:         updated,
		EstimatedDelivery:   estimated,
		Events:              events,
	}, nil
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, fmt.Sprintf("invalid timestamp %q", value))
	}
	return t.UTC(), nil
}

// Source is a TrackingSource over the embedded table
func Source() (domain.TrackingSource, error) {
	records, err := Records()
	if err != nil {
		return nil, err
	}
	byTrackingID := make(map[string]*domain.ShipmentRecord, len(records))
	for _, r := range records {
		byTrackingID[r.TrackingID] = r
	}
	return domain.TrackingSourceFunc(func(_ context.Context, trackingID string) (*domain.ShipmentRecord, error) {
		return byTrackingID[domain.NormaliseTrackingID(trackingID)].Clone(), nil
	}), nil
}

// Seed saves the embedded records into repo when it holds nothing. It
// reports how many records were written.
func Seed(ctx context.Context, repo domain.ShipmentRepository) (int, error) {
	existing, err := repo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect store: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	records, err := Records()
	if err != nil {
		return 0, err
	}
	if err := repo.SaveAll(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to seed fixtures: %w", err)
	}
	return len(records), nil
}
