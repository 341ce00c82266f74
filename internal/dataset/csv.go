// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// WriteCSV writes t with a header row. Fields are quoted as needed, so
// titles and areas containing commas, quotes or newlines survive.
func WriteCSV(path string, t *Table) error {
	return writeAtomic(path, func(w io.Writer) error {
		return encodeCSV(w, t)
	})
}

func encodeCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for i := range t.Rows {
		if err := cw.Write(t.Record(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable reads a CSV file with a header row. Short rows are padded
// with empty cells; cells beyond the header are dropped.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := decodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

func decodeCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return NewTable(nil), nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	t := NewTable(header)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(Row, len(header))
		for j, c := range header {
			if j < len(rec) {
				row[c] = rec[j]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func trimBOM(s string) string {
	if len(s) >= 3 && s[:3] == "\xef\xbb\xbf" {
		return s[3:]
	}
	return s
}
