// Package exporter streams session rows into downloadable files.
package exporter

import (
	"fmt"
	"io"
	"time"

	"iot-monitor/entities"
)

// Columns is the header row shared by every format.
var Columns = []string{
	"device_id",
	"device_name",
	"factory_name",
	"start_time",
	"stop_time",
	"duration_ms",
	"duration_formatted",
	"ingested_at",
}

type Row struct {
	DeviceID          string `json:"device_id"`
	DeviceName        string `json:"device_name"`
	FactoryName       string `json:"factory_name"`
	StartTime         string `json:"start_time"`
	StopTime          string `json:"stop_time"`
	DurationMs        int64  `json:"duration_ms"`
	DurationFormatted string `json:"duration_formatted"`
	IngestedAt        string `json:"ingested_at"`
}

func NewRow(s *entities.Session, deviceName, factoryName string) Row {
	return Row{
		DeviceID:          s.DeviceID,
		DeviceName:        deviceName,
		FactoryName:       factoryName,
		StartTime:         isoTime(s.StartTime),
		StopTime:          isoTime(s.StopTime),
		DurationMs:        s.DurationMs,
		DurationFormatted: FormatDuration(s.DurationMs),
		IngestedAt:        isoTime(s.IngestedAt),
	}
}

func (r Row) values() []string {
	return []string{
		r.DeviceID,
		r.DeviceName,
		r.FactoryName,
		r.StartTime,
		r.StopTime,
		fmt.Sprintf("%d", r.DurationMs),
		r.DurationFormatted,
		r.IngestedAt,
	}
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// FormatDuration renders milliseconds as HH:MM:SS; hours are not capped at 24.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// RowWriter receives rows one at a time. Close finishes the document; the
// output is incomplete until Close returns nil.
type RowWriter interface {
	WriteRow(Row) error
	Close() error
}

// NewWriter returns the streaming writer for format over w.
func NewWriter(format entities.ExportFormat, w io.Writer) (RowWriter, error) {
	switch format {
	case entities.ExportCSV:
		return newCSVWriter(w)
	case entities.ExportJSON:
		return newJSONWriter(w)
	case entities.ExportXLSX:
		return newXLSXWriter(w)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// ContentType maps an artifact extension to its MIME type.
func ContentType(ext string) string {
	switch ext {
	case ".csv", "csv":
		return "text/csv"
	case ".xlsx", "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json", "json":
		return "application/json"
	}
	return "application/octet-stream"
}
