// Package filestore persists the collection as a JSON array in one file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pan-pacific/tracking-service/internal/codec"
	"github.com/pan-pacific/tracking-service/internal/domain"
)

// ShipmentRepository rewrites the whole file on every change. The file is
// replaced by rename, so a reader never sees a partial write.
type ShipmentRepository struct {
	path string

	mu      sync.RWMutex
	records []*domain.ShipmentRecord
}

// Open loads path, creating its directory when needed. A missing file is an
// empty collection.
func Open(path string) (*ShipmentRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	r := &ShipmentRepository{path: path, records: []*domain.ShipmentRecord{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, record := range r.records {
		if record == nil {
			return nil, fmt.Errorf("failed to parse %s: record %d is null", path, i)
		}
		if record.Events == nil {
			record.Events = []domain.TimelineEvent{}
		}
	}
	return r, nil
}

// Path returns the backing file
func (r *ShipmentRepository) Path() string {
	return r.path
}

// Save upserts record
func (r *ShipmentRepository) Save(ctx context.Context, record *domain.ShipmentRecord) error {
	return r.SaveAll(ctx, []*domain.ShipmentRecord{record})
}

// SaveAll upserts records and rewrites the file once
func (r *ShipmentRepository) SaveAll(ctx context.Context, records []*domain.ShipmentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]*domain.ShipmentRecord, len(r.records), len(r.records)+len(records))
	copy(next, r.records)
	for _, record := range records {
		replaced := false
		for i, existing := range next {
			if existing.ID == record.ID {
				next[i] = record.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, record.Clone())
		}
	}
	return r.commit(next)
}

// FindByID returns a copy of the record with id, or nil
func (r *ShipmentRepository) FindByID(ctx context.Context, id string) (*domain.ShipmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.records {
		if record.ID == id {
			return record.Clone(), nil
		}
	}
	return nil, nil
}

// FindByTrackingID returns a copy of the record with trackingID, or nil
func (r *ShipmentRepository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.ShipmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.records {
		if record.TrackingID == trackingID {
			return record.Clone(), nil
		}
	}
	return nil, nil
}

// FindAll returns copies of every record in file order
func (r *ShipmentRepository) FindAll(ctx context.Context) ([]*domain.ShipmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ShipmentRecord, len(r.records))
	for i, record := range r.records {
		out[i] = record.Clone()
	}
	return out, nil
}

// Delete removes the record with id. Unknown ids leave the file untouched.
func (r *ShipmentRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, record := range r.records {
		if record.ID == id {
			next := make([]*domain.ShipmentRecord, 0, len(r.records)-1)
			next = append(next, r.records[:i]...)
			next = append(next, r.records[i+1:]...)
			return r.commit(next)
		}
	}
	return nil
}

// Ping checks that the data directory is still reachable
func (r *ShipmentRepository) Ping(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}

// commit writes next to disk and only then makes it current
func (r *ShipmentRepository) commit(next []*domain.ShipmentRecord) error {
	data, err := codec.EncodeJSON(next)
	if err != nil {
		return fmt.Errorf("failed to encode shipments: %w", err)
	}
	if err := writeAtomic(r.path, data); err != nil {
		return err
	}
	r.records = next
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
