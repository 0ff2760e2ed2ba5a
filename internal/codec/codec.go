// Package codec serialises shipment collections to CSV, JSON and the backup
// envelope, and parses those formats back into records.
package codec

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Format is a transport format for a shipment collection
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatBackup Format = "backup"
)

// BackupVersion is written into every backup envelope
const BackupVersion = "1.0"

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatBackup:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// FileName returns the export file name for format on the given day
func FileName(format Format, day time.Time) string {
	date := day.Format("2006-01-02")
	switch format {
	case FormatCSV:
		return "shipments_" + date + ".csv"
	case FormatBackup:
		return "backup_" + date + ".json"
	default:
		return "shipments_" + date + ".json"
	}
}

// ContentType returns the MIME type of an export in format
func ContentType(format Format) string {
	if format == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// FormatFromFileName picks the parse path from a file extension. Unknown
// extensions return an empty format so the payload is sniffed instead.
func FormatFromFileName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	}
	return ""
}

// sniff guesses the format of an import payload from its first byte.
func sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatCSV
}
