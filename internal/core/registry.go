package core

// registry.go is the schema registry: it reads the reference field list once
// and hands the resulting immutable Schema to every other stage.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// LoadSchema reads the header row of the reference file at path.
func LoadSchema(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return Schema{}, &SchemaLoadError{Path: path, Err: err}
	}
	defer f.Close()

	return ReadSchema(path, f)
}

// ReadSchema reads the first row of r as the field list. name is used in
// errors only. A BOM or invalid UTF-8 in the header is tolerated.
func ReadSchema(name string, r io.Reader) (Schema, error) {
	reader := csv.NewReader(NewTextReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Schema{}, &SchemaLoadError{Path: name, Err: errors.New("reference file is empty")}
	}
	if err != nil {
		return Schema{}, &SchemaLoadError{Path: name, Err: fmt.Errorf("parse header: %w", err)}
	}

	fields := make([]string, 0, len(header))
	for _, h := range header {
		if h = CleanHeader(h); h != "" {
			fields = append(fields, h)
		}
	}

	schema, err := NewSchema(fields)
	if err != nil {
		return Schema{}, &SchemaLoadError{Path: name, Err: err}
	}
	return schema, nil
}
