package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"iot-monitor/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []Row {
	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	s := &entities.Session{
		DeviceID:   "DEV-1",
		StartTime:  start,
		StopTime:   start.Add(90 * time.Minute),
		DurationMs: 5400000,
		IngestedAt: start.Add(91 * time.Minute),
	}
	second := *s
	second.StartTime = start.Add(2 * time.Hour)
	second.StopTime = start.Add(2*time.Hour + 5*time.Second)
	second.DurationMs = 5000
	return []Row{NewRow(s, "Press 1", "North"), NewRow(&second, "Press 1", "North")}
}

func writeAll(t *testing.T, format entities.ExportFormat, rows []Row) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(format, &buf)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.WriteRow(r))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFormatDuration(t *testing.T) {
	tests := map[int64]string{
		0:        "00:00:00",
		999:      "00:00:00",
		5000:     "00:00:05",
		5400000:  "01:30:00",
		86399000: "23:59:59",
		90000000: "25:00:00",
		-1:       "00:00:00",
	}
	for ms, want := range tests {
		assert.Equal(t, want, FormatDuration(ms), "%d ms", ms)
	}
}

func TestNewRow(t *testing.T) {
	r := sampleRows()[0]
	assert.Equal(t, "2024-01-15T08:00:00.000Z", r.StartTime)
	assert.Equal(t, "2024-01-15T09:30:00.000Z", r.StopTime)
	assert.Equal(t, "01:30:00", r.DurationFormatted)
	assert.Equal(t, "North", r.FactoryName)
}

func TestCSVWriter(t *testing.T) {
	out := writeAll(t, entities.ExportCSV, sampleRows())

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{
		"DEV-1", "Press 1", "North", "2024-01-15T08:00:00.000Z", "2024-01-15T09:30:00.000Z",
		"5400000", "01:30:00", "2024-01-15T09:31:00.000Z",
	}, records[1])
}

func TestJSONWriter(t *testing.T) {
	out := writeAll(t, entities.ExportJSON, sampleRows())

	var rows []Row
	require.NoError(t, json.Unmarshal(out, &rows))
	assert.Equal(t, sampleRows(), rows)
}

func TestJSONWriter_Empty(t *testing.T) {
	out := writeAll(t, entities.ExportJSON, nil)

	var rows []Row
	require.NoError(t, json.Unmarshal(out, &rows))
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
}

func TestXLSXWriter(t *testing.T) {
	out := writeAll(t, entities.ExportXLSX, sampleRows())

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "DEV-1", rows[1][0])
	assert.Equal(t, "5400000", rows[1][5])
	assert.Equal(t, "00:00:05", rows[2][6])
}

func TestNewWriter_UnknownFormat(t *testing.T) {
	_, err := NewWriter("pdf", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType(".csv"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ContentType(".xlsx"))
	assert.Equal(t, "application/json", ContentType("json"))
	assert.Equal(t, "application/octet-stream", ContentType(".bin"))
}
