package codec

import (
	"time"

	"github.com/google/uuid"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// Importer parses uploaded collections into fresh records
type Importer struct {
	newID func() string
	now   domain.Clock
}

// ImporterOption customises an Importer
type ImporterOption func(*Importer)

// WithIDGenerator overrides how missing record IDs are filled
func WithIDGenerator(fn func() string) ImporterOption {
	return func(i *Importer) { i.newID = fn }
}

// WithClock overrides the time used for CSV defaults
func WithClock(clock domain.Clock) ImporterOption {
	return func(i *Importer) { i.now = clock }
}

// NewImporter creates an importer using random UUIDs and the system clock
func NewImporter(opts ...ImporterOption) *Importer {
	i := &Importer{
		newID: uuid.NewString,
		now:   domain.SystemClock,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import parses data in format. An empty format sniffs the payload. Backup
// envelopes are accepted under both json and backup. Any failure returns a
// *domain.ImportParseError and no records.
func (i *Importer) Import(data []byte, format Format) ([]*domain.ShipmentRecord, error) {
	if len(data) == 0 {
		return nil, &domain.ImportParseError{Reason: "payload is empty"}
	}
	if format == "" {
		format = sniff(data)
	}

	switch format {
	case FormatCSV:
		return decodeCSV(data, i.newID, i.now().UTC().Truncate(time.Second))
	case FormatJSON, FormatBackup:
		return decodeJSON(data, i.newID)
	default:
		return nil, &domain.ImportParseError{Reason: "unsupported format " + string(format)}
	}
}
