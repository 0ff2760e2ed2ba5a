package application

import (
	"context"
	"strings"

	"github.com/pan-pacific/tracking-service/internal/codec"
	"github.com/pan-pacific/tracking-service/internal/domain"
	"github.com/pan-pacific/tracking-service/internal/query"
	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
	"github.com/pan-pacific/tracking-service/pkg/logging"
	"github.com/pan-pacific/tracking-service/pkg/metrics"
)

const auditResource = "shipment"

// ShipmentApplicationService handles the administrative shipment use cases
type ShipmentApplicationService struct {
	gateway  *MutationGateway
	importer *codec.Importer
	clock    domain.Clock
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// ServiceOption customises a ShipmentApplicationService
type ServiceOption func(*ShipmentApplicationService)

// WithServiceClock sets the clock used for stats and export dates
func WithServiceClock(clock domain.Clock) ServiceOption {
	return func(s *ShipmentApplicationService) { s.clock = clock }
}

// WithImporter replaces the default import parser
func WithImporter(importer *codec.Importer) ServiceOption {
	return func(s *ShipmentApplicationService) { s.importer = importer }
}

// NewShipmentApplicationService creates a new ShipmentApplicationService
func NewShipmentApplicationService(
	gateway *MutationGateway,
	logger *logging.Logger,
	m *metrics.Metrics,
	opts ...ServiceOption,
) *ShipmentApplicationService {
	s := &ShipmentApplicationService{
		gateway: gateway,
		clock:   domain.SystemClock,
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.importer == nil {
		s.importer = codec.NewImporter(codec.WithClock(s.clock))
	}
	m.SetCollectionSize(gateway.Len())
	return s
}

// CreateShipment creates a new pending shipment
func (s *ShipmentApplicationService) CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (*ShipmentDTO, error) {
	record, err := s.gateway.Create(ctx, ToDraft(cmd))
	if err != nil {
		return nil, s.reject(ctx, "create", cmd.TrackingID, err)
	}

	s.committed(ctx, "create", record, map[string]any{"status": string(record.Status)})
	s.logger.Info("Created shipment", "shipmentId", record.ID, "trackingId", record.TrackingID)
	return ToShipmentDTO(record), nil
}

// GetShipment retrieves a shipment by ID
func (s *ShipmentApplicationService) GetShipment(ctx context.Context, q GetShipmentQuery) (*ShipmentDTO, error) {
	record, err := s.gateway.Get(q.ShipmentID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToShipmentDTO(record), nil
}

// ListShipments runs search, filters, sort and pagination over a snapshot
func (s *ShipmentApplicationService) ListShipments(ctx context.Context, q ListShipmentsQuery) (*ShipmentListDTO, error) {
	opts := query.DefaultOptions()
	opts.Search = strings.TrimSpace(q.Search)
	if q.Status != "" {
		opts.StatusFilter = q.Status
	}
	if q.ServiceType != "" {
		opts.ServiceFilter = q.ServiceType
	}
	opts.SortField = q.SortBy
	if strings.EqualFold(q.SortDirection, string(query.SortDesc)) {
		opts.SortDirection = query.SortDesc
	}
	opts.Page = q.Page
	opts.PageSize = q.PageSize

	result, err := query.Query(s.gateway.Snapshot(), opts)
	if err != nil {
		return nil, toAppError(err)
	}

	return &ShipmentListDTO{
		Items:      ToShipmentDTOs(result.Items),
		Total:      result.Total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: result.TotalPages(opts.PageSize),
	}, nil
}

// UpdateShipment merges the command's fields onto a shipment
func (s *ShipmentApplicationService) UpdateShipment(ctx context.Context, cmd UpdateShipmentCommand) (*ShipmentDTO, error) {
	before, err := s.gateway.Get(cmd.ShipmentID)
	if err != nil {
		return nil, s.reject(ctx, "update", cmd.ShipmentID, err)
	}

	record, err := s.gateway.Update(ctx, cmd.ShipmentID, ToPatch(cmd))
	if err != nil {
		return nil, s.reject(ctx, "update", cmd.ShipmentID, err)
	}

	s.committed(ctx, "update", record, map[string]any{"status": string(record.Status)})
	if len(record.Events) > len(before.Events) {
		s.transitioned(ctx, before.Status, record)
	}
	return ToShipmentDTO(record), nil
}

// TransitionShipment moves a shipment to a new status
func (s *ShipmentApplicationService) TransitionShipment(ctx context.Context, cmd TransitionShipmentCommand) (*ShipmentDTO, error) {
	before, err := s.gateway.Get(cmd.ShipmentID)
	if err != nil {
		return nil, s.reject(ctx, "transition", cmd.ShipmentID, err)
	}

	target := domain.Status(strings.ToLower(strings.TrimSpace(cmd.Status)))
	record, err := s.gateway.Transition(ctx, cmd.ShipmentID, target, domain.EventDetails{
		StatusLabel: cmd.StatusLabel,
		Location:    cmd.Location,
		Description: cmd.Description,
	})
	if err != nil {
		return nil, s.reject(ctx, "transition", cmd.ShipmentID, err)
	}

	s.committed(ctx, "transition", record, map[string]any{
		"from": string(before.Status),
		"to":   string(record.Status),
	})
	s.transitioned(ctx, before.Status, record)
	return ToShipmentDTO(record), nil
}

// DeleteShipment removes a shipment
func (s *ShipmentApplicationService) DeleteShipment(ctx context.Context, cmd DeleteShipmentCommand) error {
	record, err := s.gateway.Delete(ctx, cmd.ShipmentID)
	if err != nil {
		return s.reject(ctx, "delete", cmd.ShipmentID, err)
	}

	s.committed(ctx, "delete", record, map[string]any{"trackingId": record.TrackingID})
	return nil
}

// GetTimeline returns the display timeline and stages of a shipment
func (s *ShipmentApplicationService) GetTimeline(ctx context.Context, q GetTimelineQuery) (*TimelineDTO, error) {
	record, err := s.gateway.Get(q.ShipmentID)
	if err != nil {
		return nil, toAppError(err)
	}
	timeline := ToTimelineDTO(record)
	return &timeline, nil
}

// GetStats summarises the collection
func (s *ShipmentApplicationService) GetStats(ctx context.Context) (*StatsDTO, error) {
	stats := ComputeStats(s.gateway.Snapshot(), s.clock())
	return &stats, nil
}

// ExportShipments serialises the collection in the requested format
func (s *ShipmentApplicationService) ExportShipments(ctx context.Context, cmd ExportShipmentsCommand) (*ExportDTO, error) {
	format := codec.FormatJSON
	if cmd.Format != "" {
		f, err := codec.ParseFormat(cmd.Format)
		if err != nil {
			return nil, apperrors.ErrValidationWithFields(err.Error(), map[string]string{"field": "format"})
		}
		format = f
	}

	records := s.gateway.Snapshot()
	now := s.clock()

	var (
		data []byte
		err  error
	)
	switch format {
	case codec.FormatCSV:
		data = codec.EncodeCSV(records)
	case codec.FormatBackup:
		data, err = codec.EncodeBackup(records, now)
	default:
		data, err = codec.EncodeJSON(records)
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode export", "format", format)
		return nil, apperrors.ErrInternal("failed to encode export").Wrap(err)
	}

	s.logger.Info("Exported shipments", "format", format, "records", len(records))
	return &ExportDTO{
		FileName:    codec.FileName(format, now),
		ContentType: codec.ContentType(format),
		Records:     len(records),
		Data:        data,
	}, nil
}

// ImportShipments parses an uploaded collection and appends it. Nothing is
// applied when any part of the payload fails.
func (s *ShipmentApplicationService) ImportShipments(ctx context.Context, cmd ImportShipmentsCommand) (*ImportResultDTO, error) {
	var format codec.Format
	if cmd.Format != "" {
		f, err := codec.ParseFormat(cmd.Format)
		if err != nil {
			return nil, apperrors.ErrValidationWithFields(err.Error(), map[string]string{"field": "format"})
		}
		format = f
	} else if cmd.FileName != "" {
		format = codec.FormatFromFileName(cmd.FileName)
	}

	records, err := s.importer.Import(cmd.Data, format)
	if err != nil {
		return nil, s.reject(ctx, "import", cmd.FileName, err)
	}

	imported, err := s.gateway.Import(ctx, records)
	if err != nil {
		return nil, s.reject(ctx, "import", cmd.FileName, err)
	}

	label := string(format)
	if label == "" {
		label = "auto"
	}
	trackingIDs := make([]string, len(imported))
	for i, r := range imported {
		trackingIDs[i] = r.TrackingID
	}

	s.metrics.RecordMutation("import")
	s.metrics.RecordImport(label, len(imported))
	s.metrics.SetCollectionSize(s.gateway.Len())
	s.logger.Audit(ctx, "import", auditResource, cmd.FileName, map[string]any{
		"format":  label,
		"records": len(imported),
	})

	return &ImportResultDTO{
		Format:      label,
		Imported:    len(imported),
		TrackingIDs: trackingIDs,
	}, nil
}

func (s *ShipmentApplicationService) committed(ctx context.Context, action string, record *domain.ShipmentRecord, details map[string]any) {
	s.metrics.RecordMutation(action)
	s.metrics.SetCollectionSize(s.gateway.Len())
	s.logger.Audit(ctx, action, auditResource, record.ID, details)
}

func (s *ShipmentApplicationService) transitioned(ctx context.Context, from domain.Status, record *domain.ShipmentRecord) {
	s.metrics.RecordTransition(string(from), string(record.Status))
	s.logger.Transition(ctx, record.ID, record.TrackingID, string(from), string(record.Status))
}

// reject logs a refused mutation and maps its error. Caller mistakes are
// warnings; anything unexpected is an error.
func (s *ShipmentApplicationService) reject(ctx context.Context, action, target string, err error) error {
	appErr := toAppError(err)
	s.metrics.RecordRejection(action, rejectionReason(err))

	logger := s.logger.WithContext(ctx).WithOperation(action).WithError(err)
	if appErr.Code == apperrors.CodeInternalError {
		logger.Error("Shipment operation failed", "target", target)
	} else {
		logger.Warn("Shipment operation rejected", "target", target, "code", appErr.Code)
	}
	return appErr
}
