package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Dataset categories handed to a Sink.
const (
	CategoryMerged  = "merged"
	CategoryValid   = "valid"
	CategoryInvalid = "invalid"
)

// Schema is the canonical, ordered list of inventory field names.
// It is immutable once built; every Record in every stage is aligned to it.
type Schema struct {
	fields []string
	index  map[string]int
}

// NewSchema builds a Schema from an ordered field list. Field names are
// trimmed; empty and duplicate names are rejected.
func NewSchema(fields []string) (Schema, error) {
	if len(fields) == 0 {
		return Schema{}, fmt.Errorf("schema has zero columns")
	}

	s := Schema{
		fields: make([]string, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return Schema{}, fmt.Errorf("schema column %d has an empty name", i+1)
		}
		if _, dup := s.index[f]; dup {
			return Schema{}, fmt.Errorf("schema column %q appears more than once", f)
		}
		s.fields[i] = f
		s.index[f] = i
	}
	return s, nil
}

// MustSchema is NewSchema for static field lists; it panics on error.
func MustSchema(fields ...string) Schema {
	s, err := NewSchema(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the field names in schema order.
func (s Schema) Fields() []string {
	return slices.Clone(s.fields)
}

// Len returns the number of fields.
func (s Schema) Len() int {
	return len(s.fields)
}

// Index returns the position of a field.
func (s Schema) Index(field string) (int, bool) {
	i, ok := s.index[field]
	return i, ok
}

// Has reports whether field is part of the schema.
func (s Schema) Has(field string) bool {
	_, ok := s.index[field]
	return ok
}

// Value returns the value of field in r, or "" when the field is unknown.
func (s Schema) Value(r Record, field string) string {
	i, ok := s.index[field]
	if !ok || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// NewRecord builds a Record from a field->value map. Fields missing from
// values default to "", keys outside the schema are ignored.
func (s Schema) NewRecord(values map[string]string) Record {
	r := Record{Values: make([]string, len(s.fields))}
	for i, f := range s.fields {
		r.Values[i] = values[f]
	}
	return r
}

// Map returns r as a field->value map.
func (s Schema) Map(r Record) map[string]string {
	m := make(map[string]string, len(s.fields))
	for i, f := range s.fields {
		if i < len(r.Values) {
			m[f] = r.Values[i]
		} else {
			m[f] = ""
		}
	}
	return m
}

// Record is one inventory row. Values are aligned to the Schema; a field
// absent from the source is "", never missing.
type Record struct {
	Source string   // File the record was read from
	Line   int      // 1-indexed line in Source (0 if unknown)
	Values []string // One value per schema field, in schema order
}

// Equal reports whether two records carry identical values.
// Source and Line are provenance and do not take part.
func (r Record) Equal(other Record) bool {
	return slices.Equal(r.Values, other.Values)
}

// Rejected is a record that ended in the invalid output, with the reasons
// that sent it there.
type Rejected struct {
	Record
	Reasons []string
}

// Dataset is a named, ordered sequence of records handed to a Sink.
// Reasons is either nil or parallel to Records.
type Dataset struct {
	Name    string
	Schema  Schema
	Records []Record
	Reasons [][]string
}

// NewRejectedDataset builds a Dataset from rejected records, keeping reasons.
func NewRejectedDataset(name string, schema Schema, rejected []Rejected) Dataset {
	ds := Dataset{
		Name:    name,
		Schema:  schema,
		Records: make([]Record, len(rejected)),
		Reasons: make([][]string, len(rejected)),
	}
	for i, r := range rejected {
		ds.Records[i] = r.Record
		ds.Reasons[i] = r.Reasons
	}
	return ds
}

// Sink publishes datasets to a searchable store. Replace must fully
// replace any prior content of the dataset's category.
type Sink interface {
	Name() string
	Replace(ctx context.Context, ds Dataset) error
}

// ColumnType is the storage type a sink may use for a field of the valid
// dataset. Values that do not convert are stored as NULL.
type ColumnType string

const (
	ColumnText      ColumnType = "text"
	ColumnUUID      ColumnType = "uuid"
	ColumnTimestamp ColumnType = "timestamp"
	ColumnInteger   ColumnType = "integer"
	ColumnNumeric   ColumnType = "numeric"
	ColumnInet      ColumnType = "inet"
)
