package core

// dataset.go reads and writes datasets as CSV files aligned to a Schema.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReasonsColumn is the trailing column added to an annotated invalid output.
const ReasonsColumn = "reasons"

// reasonSeparator joins multiple reasons into one CSV cell.
const reasonSeparator = "; "

// JoinReasons renders reasons as a single cell value.
func JoinReasons(reasons []string) string {
	return strings.Join(reasons, reasonSeparator)
}

// CleanHeader removes spreadsheet artifacts from a header cell: surrounding
// whitespace, a leading formula marker and surrounding quotes.
func CleanHeader(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// HeaderIndex maps a lowercased, cleaned header name to its column position.
// When a name repeats, the first column wins.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a CSV header row.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanHeader(h))
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// WriteDataset writes records to path as CSV with schema as the header row.
// The header is always written, so an empty dataset yields a header-only
// file. When reasons is non-nil a trailing ReasonsColumn is added.
//
// The file is written to a temporary name and renamed into place, so a
// reader never observes a half-written output.
func WriteDataset(path string, schema Schema, records []Record, reasons [][]string) (err error) {
	if reasons != nil && len(reasons) != len(records) {
		return fmt.Errorf("write %s: %d reason lists for %d records", path, len(reasons), len(records))
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := EncodeDataset(tmp, schema, records, reasons); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// EncodeDataset writes the CSV form of a dataset to w.
func EncodeDataset(w io.Writer, schema Schema, records []Record, reasons [][]string) error {
	cw := csv.NewWriter(w)

	header := schema.Fields()
	if reasons != nil {
		header = append(header, ReasonsColumn)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, r := range records {
		for j := 0; j < schema.Len(); j++ {
			if j < len(r.Values) {
				row[j] = r.Values[j]
			} else {
				row[j] = ""
			}
		}
		if reasons != nil {
			row[schema.Len()] = JoinReasons(reasons[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadDataset reads a CSV file written by WriteDataset, projecting its
// columns onto schema. A ReasonsColumn, if present, is split back into
// per-record reasons; otherwise the returned reasons are nil.
func ReadDataset(path string, schema Schema) ([]Record, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(NewTextReader(f))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	proj := newProjection(schema, header)
	reasonsAt, annotated := MakeHeaderIndex(header)[ReasonsColumn]
	if schema.Has(ReasonsColumn) {
		annotated = false
	}

	var (
		records []Record
		reasons [][]string
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		line, _ := reader.FieldPos(0)

		records = append(records, proj.record(filepath.Base(path), line, row))
		if annotated {
			var rs []string
			if reasonsAt < len(row) && row[reasonsAt] != "" {
				rs = strings.Split(row[reasonsAt], reasonSeparator)
			}
			reasons = append(reasons, rs)
		}
	}

	return records, reasons, nil
}
