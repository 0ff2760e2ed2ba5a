package application

import (
	"context"
	"time"

	"github.com/pan-pacific/tracking-service/internal/domain"
	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
	"github.com/pan-pacific/tracking-service/pkg/logging"
	"github.com/pan-pacific/tracking-service/pkg/metrics"
	"github.com/pan-pacific/tracking-service/pkg/resilience"
)

// TrackingSourceKind names where a tracking answer came from
type TrackingSourceKind string

const (
	SourceCache    TrackingSourceKind = "cache"
	SourcePrimary  TrackingSourceKind = "primary"
	SourceFallback TrackingSourceKind = "fallback"
)

// MaxBatchTrackingIDs bounds a batch lookup
const MaxBatchTrackingIDs = 50

// TrackingCache stores recent primary lookups. Get reports a miss with a
// nil record and no error.
type TrackingCache interface {
	Get(ctx context.Context, trackingID string) (*domain.ShipmentRecord, error)
	Set(ctx context.Context, record *domain.ShipmentRecord) error
	Invalidate(ctx context.Context, trackingIDs ...string) error
}

// TrackingService answers public tracking lookups
type TrackingService struct {
	primary  domain.TrackingSource
	fallback domain.TrackingSource
	cache    TrackingCache
	breaker  *resilience.CircuitBreaker
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// TrackingOption customises a TrackingService
type TrackingOption func(*TrackingService)

// WithFallback answers lookups the primary source cannot
func WithFallback(source domain.TrackingSource) TrackingOption {
	return func(s *TrackingService) { s.fallback = source }
}

// WithTrackingCache caches primary answers
func WithTrackingCache(cache TrackingCache) TrackingOption {
	return func(s *TrackingService) { s.cache = cache }
}

// WithCircuitBreaker guards the primary source
func WithCircuitBreaker(cb *resilience.CircuitBreaker) TrackingOption {
	return func(s *TrackingService) { s.breaker = cb }
}

// NewTrackingService creates a TrackingService over primary
func NewTrackingService(primary domain.TrackingSource, logger *logging.Logger, m *metrics.Metrics, opts ...TrackingOption) *TrackingService {
	s := &TrackingService{
		primary: primary,
		logger:  logger.WithComponent("tracking"),
		metrics: m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrackShipment looks a tracking ID up in the cache, then the primary
// source, then the fallback source.
func (s *TrackingService) TrackShipment(ctx context.Context, q TrackShipmentQuery) (*TrackingDTO, error) {
	trackingID := domain.NormaliseTrackingID(q.TrackingID)
	if trackingID == "" {
		return nil, apperrors.ErrValidationWithFields("tracking id is required", map[string]string{"field": "trackingId"})
	}

	if record := s.fromCache(ctx, trackingID); record != nil {
		return s.answer(record, SourceCache), nil
	}

	record, primaryErr := s.fromPrimary(ctx, trackingID)
	if primaryErr == nil && record != nil {
		s.storeInCache(ctx, record)
		return s.answer(record, SourcePrimary), nil
	}
	if primaryErr != nil {
		s.logger.WithError(primaryErr).Warn("Primary tracking source failed", "trackingId", trackingID)
	}

	if s.fallback != nil {
		fallback, err := s.fallback.FindByTrackingID(ctx, trackingID)
		if err != nil {
			s.logger.WithError(err).Warn("Fallback tracking source failed", "trackingId", trackingID)
		} else if fallback != nil {
			return s.answer(fallback, SourceFallback), nil
		}
	}

	if primaryErr != nil {
		return nil, apperrors.ErrServiceUnavailable("tracking").Wrap(primaryErr)
	}
	return nil, apperrors.ErrNotFoundWithID("shipment", trackingID)
}

// TrackBatch looks up several tracking IDs against the primary source only
// and returns the ones found in request order. Repeated IDs are answered once.
func (s *TrackingService) TrackBatch(ctx context.Context, q TrackBatchQuery) ([]TrackingDTO, error) {
	if len(q.TrackingIDs) == 0 {
		return nil, apperrors.ErrValidationWithFields("at least one tracking id is required", map[string]string{"field": "trackingIds"})
	}
	if len(q.TrackingIDs) > MaxBatchTrackingIDs {
		return nil, apperrors.ErrValidationWithFields("too many tracking ids", map[string]string{"field": "trackingIds"})
	}

	results := make([]TrackingDTO, 0, len(q.TrackingIDs))
	seen := make(map[string]struct{}, len(q.TrackingIDs))
	for _, raw := range q.TrackingIDs {
		trackingID := domain.NormaliseTrackingID(raw)
		if trackingID == "" {
			continue
		}
		if _, dup := seen[trackingID]; dup {
			continue
		}
		seen[trackingID] = struct{}{}

		record, err := s.fromPrimary(ctx, trackingID)
		if err != nil {
			s.logger.WithError(err).Error("Batch tracking lookup failed", "trackingId", trackingID)
			return nil, apperrors.ErrServiceUnavailable("tracking").Wrap(err)
		}
		if record != nil {
			results = append(results, *s.answer(record, SourcePrimary))
		}
	}
	return results, nil
}

// InvalidateOnChange drops cached answers for the records in change. It is
// meant to be registered with MutationGateway.Subscribe.
func (s *TrackingService) InvalidateOnChange(change Change) {
	if s.cache == nil || len(change.Records) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, change.TrackingIDs()...); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate tracking cache", "change", string(change.Kind))
	}
}

func (s *TrackingService) answer(record *domain.ShipmentRecord, source TrackingSourceKind) *TrackingDTO {
	s.metrics.RecordTrackingLookup(string(source))
	return ToTrackingDTO(record, source)
}

func (s *TrackingService) fromCache(ctx context.Context, trackingID string) *domain.ShipmentRecord {
	if s.cache == nil {
		return nil
	}
	record, err := s.cache.Get(ctx, trackingID)
	if err != nil {
		s.logger.WithError(err).Warn("Tracking cache read failed", "trackingId", trackingID)
		return nil
	}
	return record
}

func (s *TrackingService) storeInCache(ctx context.Context, record *domain.ShipmentRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, record); err != nil {
		s.logger.WithError(err).Warn("Tracking cache write failed", "trackingId", record.TrackingID)
	}
}

func (s *TrackingService) fromPrimary(ctx context.Context, trackingID string) (*domain.ShipmentRecord, error) {
	if s.breaker == nil {
		return s.primary.FindByTrackingID(ctx, trackingID)
	}
	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.primary.FindByTrackingID(ctx, trackingID)
	})
	if err != nil {
		return nil, err
	}
	record, _ := result.(*domain.ShipmentRecord)
	return record, nil
}
