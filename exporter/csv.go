package exporter

import (
	"encoding/csv"
	"io"
)

type csvWriter struct {
	w *csv.Writer
}

func newCSVWriter(w io.Writer) (*csvWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return nil, err
	}
	return &csvWriter{w: cw}, nil
}

func (c *csvWriter) WriteRow(r Row) error {
	return c.w.Write(r.values())
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}
