package exporter

import (
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sessions"

// xlsxWriter commits rows through excelize's stream writer, which spills to a
// temp file instead of holding the sheet in memory.
type xlsxWriter struct {
	out  io.Writer
	file *excelize.File
	sw   *excelize.StreamWriter
	row  int
}

func newXLSXWriter(w io.Writer) (*xlsxWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		_ = f.Close()
		return nil, err
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	widths := []float64{15, 25, 25, 25, 25, 15, 18, 25}
	for i, width := range widths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &xlsxWriter{out: w, file: f, sw: sw, row: 1}, nil
}

func (x *xlsxWriter) WriteRow(r Row) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	return x.sw.SetRow(cell, []interface{}{
		r.DeviceID,
		r.DeviceName,
		r.FactoryName,
		r.StartTime,
		r.StopTime,
		r.DurationMs,
		r.DurationFormatted,
		r.IngestedAt,
	})
}

func (x *xlsxWriter) Close() error {
	defer x.file.Close()
	if err := x.sw.Flush(); err != nil {
		return err
	}
	_, err := x.file.WriteTo(x.out)
	return err
}
