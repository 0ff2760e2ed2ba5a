package codec

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// CSVHeader is the fixed column order of a CSV export
var CSVHeader = []string{
	"Tracking ID",
	"Customer",
	"Origin",
	"Destination",
	"Status",
	"Service Type",
	"Created",
	"Last Updated",
}

// ImportedPackageDetails fills the package description CSV does not carry
const ImportedPackageDetails = "Imported shipment"

// EncodeCSV writes the summary columns of each record. Fields are joined
// with commas as-is; embedded commas are not escaped.
func EncodeCSV(records []*domain.ShipmentRecord) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(CSVHeader, ","))
	buf.WriteByte('\n')
	for _, r := range records {
		buf.WriteString(strings.Join([]string{
			r.TrackingID,
			r.CustomerName,
			r.Origin,
			r.Destination,
			string(r.Status),
			string(r.ServiceType),
			r.CreatedDate.UTC().Format(time.RFC3339),
			r.LastUpdated.UTC().Format(time.RFC3339),
		}, ","))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func decodeCSV(data []byte, newID func() string, now time.Time) ([]*domain.ShipmentRecord, error) {
	text := strings.ReplaceAll(string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	headerSeen := false
	records := make([]*domain.ShipmentRecord, 0, len(lines))
	for i, line := range lines {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, ",")
		if len(values) != len(CSVHeader) {
			return nil, &domain.ImportParseError{
				Line:   lineNo,
				Reason: fmt.Sprintf("expected %d columns, got %d", len(CSVHeader), len(values)),
			}
		}
		if !headerSeen {
			if !isHeader(values) {
				return nil, &domain.ImportParseError{
					Line:   lineNo,
					Reason: "first line is not the header " + strings.Join(CSVHeader, ","),
				}
			}
			headerSeen = true
			continue
		}

		record, err := recordFromRow(values, newID(), now)
		if err != nil {
			return nil, &domain.ImportParseError{Line: lineNo, Reason: err.Error()}
		}
		records = append(records, record)
	}

	if !headerSeen {
		return nil, &domain.ImportParseError{Reason: "csv payload is empty"}
	}
	return records, nil
}

func isHeader(values []string) bool {
	for i, name := range CSVHeader {
		if !strings.EqualFold(strings.TrimSpace(values[i]), name) {
			return false
		}
	}
	return true
}

func recordFromRow(values []string, id string, now time.Time) (*domain.ShipmentRecord, error) {
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}

	if values[0] == "" {
		return nil, fmt.Errorf("tracking id is empty")
	}

	status := domain.StatusPending
	if values[4] != "" {
		status = domain.Status(strings.ToLower(values[4]))
		if !status.IsValid() {
			return nil, fmt.Errorf("unknown status %q", values[4])
		}
	}

	service := domain.ServiceAirFreight
	if values[5] != "" {
		service = domain.ServiceType(strings.ToLower(values[5]))
		if !service.IsValid() {
			return nil, fmt.Errorf("unknown service type %q", values[5])
		}
	}

	created, err := parseDate(values[6], now)
	if err != nil {
		return nil, fmt.Errorf("created: %w", err)
	}
	updated, err := parseDate(values[7], now)
	if err != nil {
		return nil, fmt.Errorf("last updated: %w", err)
	}
	if updated.Before(created) {
		updated = created
	}

	return &domain.ShipmentRecord{
		ID:                id,
		TrackingID:        values[0],
		CustomerName:      values[1],
		Origin:            values[2],
		Destination:       values[3],
		Status:            status,
		ServiceType:       service,
		PackageDetails:    ImportedPackageDetails,
		CreatedDate:       created,
		LastUpdated:       updated,
		EstimatedDelivery: now,
		Events:            []domain.TimelineEvent{},
	}, nil
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
