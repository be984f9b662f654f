package exporter

import (
	"bufio"
	"encoding/json"
	"io"
)

// jsonWriter emits a single JSON array, one element per row.
type jsonWriter struct {
	buf   *bufio.Writer
	enc   *json.Encoder
	count int
}

func newJSONWriter(w io.Writer) (*jsonWriter, error) {
	buf := bufio.NewWriter(w)
	if _, err := buf.WriteString("["); err != nil {
		return nil, err
	}
	return &jsonWriter{buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (j *jsonWriter) WriteRow(r Row) error {
	sep := ",\n"
	if j.count == 0 {
		sep = "\n"
	}
	if _, err := j.buf.WriteString(sep); err != nil {
		return err
	}
	j.count++
	// Encode appends a newline; harmless inside an array
	return j.enc.Encode(r)
}

func (j *jsonWriter) Close() error {
	if _, err := j.buf.WriteString("]\n"); err != nil {
		return err
	}
	return j.buf.Flush()
}
