// Package postgres stores shipment records as rows with the timeline in a
// JSONB column.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

const uniqueViolation = "23505"

// Schema creates the shipments table when missing
const Schema = `
CREATE TABLE IF NOT EXISTS shipments (
    seq                  BIGSERIAL,
    id                   TEXT PRIMARY KEY,
    tracking_id          TEXT NOT NULL UNIQUE,
    customer_name        TEXT NOT NULL,
    customer_email       TEXT NOT NULL,
    customer_phone       TEXT NOT NULL DEFAULT '',
    customer_address     TEXT NOT NULL DEFAULT '',
    origin               TEXT NOT NULL,
    destination          TEXT NOT NULL,
    service_type         TEXT NOT NULL,
    package_details      TEXT NOT NULL DEFAULT '',
    weight               DOUBLE PRECISION NOT NULL DEFAULT 0,
    dimensions           JSONB NOT NULL DEFAULT '{}',
    special_instructions TEXT NOT NULL DEFAULT '',
    declared_value       DOUBLE PRECISION,
    status               TEXT NOT NULL,
    created_date         TIMESTAMPTZ NOT NULL,
    last_updated         TIMESTAMPTZ NOT NULL,
    estimated_delivery   TIMESTAMPTZ NOT NULL,
    events               JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS shipments_status_idx ON shipments (status);
CREATE INDEX IF NOT EXISTS shipments_seq_idx ON shipments (seq);`

const selectColumns = `SELECT id, tracking_id, customer_name, customer_email, customer_phone, customer_address,
    origin, destination, service_type, package_details, weight, dimensions, special_instructions,
    declared_value, status, created_date, last_updated, estimated_delivery, events
FROM shipments`

const upsertQuery = `INSERT INTO shipments (id, tracking_id, customer_name, customer_email, customer_phone,
    customer_address, origin, destination, service_type, package_details, weight, dimensions,
    special_instructions, declared_value, status, created_date, last_updated, estimated_delivery, events)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO UPDATE SET
    tracking_id = EXCLUDED.tracking_id,
    customer_name = EXCLUDED.customer_name,
    customer_email = EXCLUDED.customer_email,
    customer_phone = EXCLUDED.customer_phone,
    customer_address = EXCLUDED.customer_address,
    origin = EXCLUDED.origin,
    destination = EXCLUDED.destination,
    service_type = EXCLUDED.service_type,
    package_details = EXCLUDED.package_details,
    weight = EXCLUDED.weight,
    dimensions = EXCLUDED.dimensions,
    special_instructions = EXCLUDED.special_instructions,
    declared_value = EXCLUDED.declared_value,
    status = EXCLUDED.status,
    created_date = EXCLUDED.created_date,
    last_updated = EXCLUDED.last_updated,
    estimated_delivery = EXCLUDED.estimated_delivery,
    events = EXCLUDED.events`

// ShipmentRepository is a domain.ShipmentRepository over database/sql
type ShipmentRepository struct {
	db *sql.DB
}

// Open connects to dsn, pings it and applies Schema
func Open(ctx context.Context, dsn string) (*ShipmentRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres db: %w", err)
	}

	repo := NewShipmentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewShipmentRepository wraps an open database
func NewShipmentRepository(db *sql.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// EnsureSchema creates the table and indexes
func (r *ShipmentRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply shipments schema: %w", err)
	}
	return nil
}

// Close closes the database
func (r *ShipmentRepository) Close() error {
	return r.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Save upserts record by id
func (r *ShipmentRepository) Save(ctx context.Context, record *domain.ShipmentRecord) error {
	return upsert(ctx, r.db, record)
}

// SaveAll upserts records in one transaction
func (r *ShipmentRepository) SaveAll(ctx context.Context, records []*domain.ShipmentRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, record := range records {
		if err := upsert(ctx, tx, record); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit shipments: %w", err)
	}
	return nil
}

func upsert(ctx context.Context, db execer, record *domain.ShipmentRecord) error {
	dimensions, err := json.Marshal(record.Dimensions)
	if err != nil {
		return fmt.Errorf("failed to encode dimensions: %w", err)
	}
	events := record.Events
	if events == nil {
		events = []domain.TimelineEvent{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}

	var declared sql.NullFloat64
	if record.DeclaredValue != nil {
		declared = sql.NullFloat64{Float64: *record.DeclaredValue, Valid: true}
	}

	_, err = db.ExecContext(ctx, upsertQuery,
		record.ID,
		record.TrackingID,
		record.CustomerName,
		record.CustomerEmail,
		record.CustomerPhone,
		record.CustomerAddress,
		record.Origin,
		record.Destination,
		string(record.ServiceType),
		record.PackageDetails,
		record.Weight,
		string(dimensions),
		record.SpecialInstructions,
		declared,
		string(record.Status),
		record.CreatedDate,
		record.LastUpdated,
		record.EstimatedDelivery,
		string(eventsJSON),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return &domain.DuplicateTrackingIDError{TrackingID: record.TrackingID}
		}
		return fmt.Errorf("failed to save shipment %s: %w", record.ID, err)
	}
	return nil
}

// FindByID returns the record with id, or nil
func (r *ShipmentRepository) FindByID(ctx context.Context, id string) (*domain.ShipmentRecord, error) {
	return r.findOne(ctx, selectColumns+` WHERE id = $1`, id)
}

// FindByTrackingID returns the record with trackingID, or nil
func (r *ShipmentRepository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.ShipmentRecord, error) {
	return r.findOne(ctx, selectColumns+` WHERE tracking_id = $1`, trackingID)
}

func (r *ShipmentRepository) findOne(ctx context.Context, query string, arg string) (*domain.ShipmentRecord, error) {
	record, err := scanRecord(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// FindAll returns every record in insertion order
func (r *ShipmentRepository) FindAll(ctx context.Context) ([]*domain.ShipmentRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	defer rows.Close()

	records := []*domain.ShipmentRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes the record with id
func (r *ShipmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shipments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete shipment %s: %w", id, err)
	}
	return nil
}

// Ping checks the connection
func (r *ShipmentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*domain.ShipmentRecord, error) {
	var (
		record      domain.ShipmentRecord
		serviceType string
		status      string
		dimensions  []byte
		events      []byte
		declared    sql.NullFloat64
	)
	err := row.Scan(
		&record.ID,
		&record.TrackingID,
		&record.CustomerName,
		&record.CustomerEmail,
		&record.CustomerPhone,
		&record.CustomerAddress,
		&record.Origin,
		&record.Destination,
		&serviceType,
		&record.PackageDetails,
		&record.Weight,
		&dimensions,
		&record.SpecialInstructions,
		&declared,
		&status,
		&record.CreatedDate,
		&record.LastUpdated,
		&record.EstimatedDelivery,
		&events,
	)
	if err != nil {
		return nil, err
	}

	record.ServiceType = domain.ServiceType(serviceType)
	record.Status = domain.Status(status)
	if declared.Valid {
		v := declared.Float64
		record.DeclaredValue = &v
	}
	if len(dimensions) > 0 {
		if err := json.Unmarshal(dimensions, &record.Dimensions); err != nil {
			return nil, fmt.Errorf("failed to decode dimensions of %s: %w", record.ID, err)
		}
	}
	record.Events = []domain.TimelineEvent{}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &record.Events); err != nil {
			return nil, fmt.Errorf("failed to decode events of %s: %w", record.ID, err)
		}
		if record.Events == nil {
			record.Events = []domain.TimelineEvent{}
		}
	}

	record.CreatedDate = record.CreatedDate.UTC()
	record.LastUpdated = record.LastUpdated.UTC()
	record.EstimatedDelivery = record.EstimatedDelivery.UTC()
	for i := range record.Events {
		record.Events[i].Timestamp = record.Events[i].Timestamp.UTC()
	}
	return &record, nil
}
