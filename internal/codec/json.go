package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// Backup wraps a full collection with export metadata
type Backup struct {
	ExportDate   time.Time                `json:"exportDate"`
	Version      string                   `json:"version"`
	TotalRecords int                      `json:"totalRecords"`
	Data         []*domain.ShipmentRecord `json:"data"`
}

// EncodeJSON writes records as an indented JSON array
func EncodeJSON(records []*domain.ShipmentRecord) ([]byte, error) {
	return json.MarshalIndent(exportable(records), "", "  ")
}

// exportable copies records so an empty timeline is written as [] rather
// than null.
func exportable(records []*domain.ShipmentRecord) []*domain.ShipmentRecord {
	out := make([]*domain.ShipmentRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// EncodeBackup writes records inside a backup envelope
func EncodeBackup(records []*domain.ShipmentRecord, exportDate time.Time) ([]byte, error) {
	return json.MarshalIndent(Backup{
		ExportDate:   exportDate.UTC(),
		Version:      BackupVersion,
		TotalRecords: len(records),
		Data:         exportable(records),
	}, "", "  ")
}

func decodeJSON(data []byte, newID func() string) ([]*domain.ShipmentRecord, error) {
	if err := validateShape(data); err != nil {
		return nil, &domain.ImportParseError{Reason: err.Error()}
	}

	var records []*domain.ShipmentRecord
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if trimmed[0] == '{' {
		var backup Backup
		if err := json.Unmarshal(trimmed, &backup); err != nil {
			return nil, &domain.ImportParseError{Reason: err.Error()}
		}
		if backup.TotalRecords != 0 && backup.TotalRecords != len(backup.Data) {
			return nil, &domain.ImportParseError{
				Reason: fmt.Sprintf("backup declares %d records but carries %d", backup.TotalRecords, len(backup.Data)),
			}
		}
		records = backup.Data
	} else if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &domain.ImportParseError{Reason: err.Error()}
	}

	out := make([]*domain.ShipmentRecord, 0, len(records))
	for i, r := range records {
		if r == nil {
			return nil, &domain.ImportParseError{Reason: fmt.Sprintf("record %d is null", i)}
		}
		if r.ID == "" {
			r.ID = newID()
		}
		if r.Events == nil {
			r.Events = []domain.TimelineEvent{}
		}
		normaliseTimes(r)
		if err := r.CheckInvariants(); err != nil {
			return nil, &domain.ImportParseError{Reason: fmt.Sprintf("record %d (%s): %v", i, r.TrackingID, err)}
		}
		out = append(out, r)
	}
	return out, nil
}

func normaliseTimes(r *domain.ShipmentRecord) {
	r.CreatedDate = r.CreatedDate.UTC()
	r.LastUpdated = r.LastUpdated.UTC()
	r.EstimatedDelivery = r.EstimatedDelivery.UTC()
	for i := range r.Events {
		r.Events[i].Timestamp = r.Events[i].Timestamp.UTC()
	}
}
