// Package instrumented decorates a storage backend with metrics, tracing
// and storage logs.
package instrumented

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pan-pacific/tracking-service/internal/domain"
	"github.com/pan-pacific/tracking-service/pkg/logging"
	"github.com/pan-pacific/tracking-service/pkg/metrics"
)

// Repository wraps a domain.ShipmentRepository
type Repository struct {
	inner   domain.ShipmentRepository
	backend string
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// Wrap instruments inner, labelling everything with backend
func Wrap(inner domain.ShipmentRepository, backend string, m *metrics.Metrics, logger *logging.Logger) *Repository {
	return &Repository{
		inner:   inner,
		backend: backend,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("storage"),
	}
}

// Unwrap returns the decorated repository
func (r *Repository) Unwrap() domain.ShipmentRepository {
	return r.inner
}

func (r *Repository) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "storage."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", r.backend),
			attribute.String("db.operation", operation),
		),
	)
}

func (r *Repository) finish(ctx context.Context, span trace.Span, operation string, start time.Time, records int, err error) {
	duration := time.Since(start)
	success := err == nil

	r.metrics.RecordStorageOperation(r.backend, operation, success, duration)
	if r.logger != nil {
		r.logger.StorageOperation(ctx, r.backend, operation, duration, success, records)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.Int("db.records", records))
	}
	span.End()
}

// Save instruments Save
func (r *Repository) Save(ctx context.Context, record *domain.ShipmentRecord) error {
	start := time.Now()
	ctx, span := r.startSpan(ctx, "save")
	err := r.inner.Save(ctx, record)
	r.finish(ctx, span, "save", start, 1, err)
	return err
}

// SaveAll instruments SaveAll
func (r *Repository) SaveAll(ctx context.Context, records []*domain.ShipmentRecord) error {
	start := time.Now()
	ctx, span := r.startSpan(ctx, "saveAll")
	span.SetAttributes(attribute.Int("db.batch_size", len(records)))
	err := r.inner.SaveAll(ctx, records)
	r.finish(ctx, span, "saveAll", start, len(records), err)
	return err
}

// FindByID instruments FindByID
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.ShipmentRecord, error) {
	start := time.Now()
	ctx, span := r.startSpan(ctx, "findById")
	record, err := r.inner.FindByID(ctx, id)
	r.finish(ctx, span, "findById", start, found(record), err)
	return record, err
}

// FindByTrackingID instruments FindByTrackingID
func (r *Repository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.ShipmentRecord, error) {
	start := time.Now()
	ctx, span := r.startSpan(ctx, "findByTrackingId")
	span.SetAttributes(attribute.String("shipment.tracking_id", trackingID))
	record, err := r.inner.FindByTrackingID(ctx, trackingID)
	r.finish(ctx, span, "findByTrackingId", start, found(record), err)
	return record, err
}

// FindAll instruments FindAll
func (r *Repository) FindAll(ctx context.Context) ([]*domain.ShipmentRecord, error) {
	start := time.Now()
	ctx, span := r.startSpan(ctx, "findAll")
	records, err := r.inner.FindAll(ctx)
	r.finish(ctx, span, "findAll", start, len(records), err)
	return records, err
}

// Delete instruments Delete
func (r *Repository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	ctx, span := r.startSpan(ctx, "delete")
	err := r.inner.Delete(ctx, id)
	r.finish(ctx, span, "delete", start, 1, err)
	return err
}

// Ping is passed through without metrics
func (r *Repository) Ping(ctx context.Context) error {
	return r.inner.Ping(ctx)
}

func found(record *domain.ShipmentRecord) int {
	if record == nil {
		return 0
	}
	return 1
}
