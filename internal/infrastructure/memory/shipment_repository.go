// Package memory is the in-process storage backend.
package memory

import (
	"context"
	"sync"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// ShipmentRepository keeps records in memory in insertion order. Records are
// copied on the way in and out.
type ShipmentRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.ShipmentRecord
	order   []string
}

// NewShipmentRepository creates a repository holding seed
func NewShipmentRepository(seed ...*domain.ShipmentRecord) *ShipmentRepository {
	r := &ShipmentRepository{records: make(map[string]*domain.ShipmentRecord, len(seed))}
	for _, record := range seed {
		r.put(record)
	}
	return r
}

func (r *ShipmentRepository) put(record *domain.ShipmentRecord) {
	if _, ok := r.records[record.ID]; !ok {
		r.order = append(r.order, record.ID)
	}
	r.records[record.ID] = record.Clone()
}

// Save stores a copy of record
func (r *ShipmentRepository) Save(ctx context.Context, record *domain.ShipmentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(record)
	return nil
}

// SaveAll stores copies of records
func (r *ShipmentRepository) SaveAll(ctx context.Context, records []*domain.ShipmentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range records {
		r.put(record)
	}
	return nil
}

// FindByID returns a copy of the record with id, or nil
func (r *ShipmentRepository) FindByID(ctx context.Context, id string) (*domain.ShipmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id].Clone(), nil
}

// FindByTrackingID returns a copy of the record with trackingID, or nil
func (r *ShipmentRepository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.ShipmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if record := r.records[id]; record.TrackingID == trackingID {
			return record.Clone(), nil
		}
	}
	return nil, nil
}

// FindAll returns copies of every record
func (r *ShipmentRepository) FindAll(ctx context.Context) ([]*domain.ShipmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ShipmentRecord, len(r.order))
	for i, id := range r.order {
		out[i] = r.records[id].Clone()
	}
	return out, nil
}

// Delete removes the record with id. Unknown ids are ignored.
func (r *ShipmentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return nil
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ping always succeeds
func (r *ShipmentRepository) Ping(ctx context.Context) error {
	return nil
}
