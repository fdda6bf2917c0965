package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSources is returned by the merge stage when no usable source remains
// after the reference file and the pipeline outputs are filtered out.
var ErrNoSources = errors.New("no sources to merge")

// ErrNoReport is returned when no run has completed yet.
var ErrNoReport = errors.New("no pipeline run has been reported yet")

// ErrPipelineBusy is returned when a run could not start because another
// run held the pipeline for longer than the configured wait.
var ErrPipelineBusy = errors.New("pipeline busy: another run is in progress")

// SchemaLoadError reports a missing, empty or column-less reference file.
// It is fatal: no stage runs without a schema.
type SchemaLoadError struct {
	Path string
	Err  error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("schema load %s: %v", e.Path, e.Err)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Err
}

// GrammarIncompleteError lists schema fields that have no field rule.
type GrammarIncompleteError struct {
	Missing []string
}

func (e *GrammarIncompleteError) Error() string {
	return fmt.Sprintf("grammar incomplete: no rule for fields %s", strings.Join(e.Missing, ", "))
}

// SourceReadError reports a source that could not be read or parsed.
// The merge stage records it and moves on to the next source.
type SourceReadError struct {
	Source string
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("source read %s: %v", e.Source, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// IdentityKeyError reports an identity field that cannot be resolved
// against the schema or a record. It aborts the run.
type IdentityKeyError struct {
	Field  string
	Reason string
}

func (e *IdentityKeyError) Error() string {
	if e.Field == "" {
		return "identity key: " + e.Reason
	}
	return fmt.Sprintf("identity key field %q: %s", e.Field, e.Reason)
}

// SinkError reports a dataset that could not be published. Output files
// are already written when it occurs.
type SinkError struct {
	Sink     string
	Category string
	Err      error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: publish %s: %v", e.Sink, e.Category, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
