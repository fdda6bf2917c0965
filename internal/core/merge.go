package core

// merge.go is the source merger. Each source is read up to the row cap,
// projected onto the schema and appended to one working dataset, keeping
// source order then row order.
//
// A source that cannot be opened or parsed is recorded as a SourceReadError
// and skipped; the merge continues with the remaining sources.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/AssetRecon/internal/logging"
)

// ContextCheckInterval is how many rows are read between cancellation checks.
const ContextCheckInterval = 500

// Source is one tabular input to the merge.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// SizedSource is a Source that knows its size in bytes, so reading it can
// report how much of it was consumed.
type SizedSource interface {
	Source
	Size() int64
}

// FileSource is a Source backed by a file on disk.
type FileSource struct {
	Path string
}

// Name returns the file's base name.
func (s FileSource) Name() string { return filepath.Base(s.Path) }

// Open opens the file for reading.
func (s FileSource) Open() (io.ReadCloser, error) { return os.Open(s.Path) }

// Size returns the file size, or 0 if it cannot be read.
func (s FileSource) Size() int64 {
	info, err := os.Stat(s.Path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// DiscoverSources returns every *.csv file in dir, in lexical order, whose
// base name is not listed in exclude. Matching is case-insensitive.
func DiscoverSources(dir string, exclude ...string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[strings.ToLower(filepath.Base(name))] = true
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		lower := strings.ToLower(name)
		if e.IsDir() || !strings.HasSuffix(lower, ".csv") || strings.HasPrefix(name, ".") || skip[lower] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]Source, len(names))
	for i, name := range names {
		sources[i] = FileSource{Path: filepath.Join(dir, name)}
	}
	return sources, nil
}

// SourceReport describes what the merge did with one source.
type SourceReport struct {
	Name        string   `yaml:"name" json:"name"`
	Rows        int      `yaml:"rows" json:"rows"`
	Bytes       int64    `yaml:"bytes" json:"bytes"`
	Truncated   bool     `yaml:"truncated" json:"truncated"`
	ReadPercent int      `yaml:"read_percent,omitempty" json:"read_percent,omitempty"` // 0 if the size is unknown
	Missing     []string `yaml:"missing_columns,omitempty" json:"missing_columns,omitempty"`
	Extra       []string `yaml:"extra_columns,omitempty" json:"extra_columns,omitempty"`
	Error       string   `yaml:"error,omitempty" json:"error,omitempty"`
}

// MergeResult is the outcome of a merge: the records that were read plus
// one report per source and the failures that were skipped.
type MergeResult struct {
	Records  []Record
	Sources  []SourceReport
	Failures []*SourceReadError
}

// Merger concatenates sources into one dataset aligned to a schema.
type Merger struct {
	schema Schema
	rowCap int
}

// NewMerger creates a merger reading at most rowCap data rows per source.
func NewMerger(schema Schema, rowCap int) *Merger {
	return &Merger{schema: schema, rowCap: rowCap}
}

// Merge reads every source in order. It returns ErrNoSources when sources is
// empty, and an error wrapping ErrNoSources when every source failed.
// Individual failures are otherwise reported in the result, not returned.
func (m *Merger) Merge(ctx context.Context, sources []Source) (*MergeResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	log := logging.FromContext(ctx)
	result := &MergeResult{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		srcLog := logging.WithFields(ctx, "source", src.Name())

		records, report, err := m.readSource(ctx, src)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			readErr := &SourceReadError{Source: src.Name(), Err: err}
			report.Error = err.Error()
			result.Failures = append(result.Failures, readErr)
			result.Sources = append(result.Sources, report)
			srcLog.Warn("source skipped", "error", err)
			continue
		}

		if len(report.Extra) > 0 {
			srcLog.Info("source columns dropped", "columns", report.Extra)
		}
		if len(report.Missing) > 0 {
			srcLog.Info("source columns filled empty", "columns", report.Missing)
		}
		if report.Truncated {
			srcLog.Warn("source truncated at row cap", "row_cap", m.rowCap, "read_percent", report.ReadPercent)
		}

		result.Records = append(result.Records, records...)
		result.Sources = append(result.Sources, report)
	}

	if len(result.Failures) == len(sources) {
		return result, fmt.Errorf("all %d sources failed: %w", len(sources), ErrNoSources)
	}

	log.Info("sources merged",
		slog.Int("sources", len(sources)),
		slog.Int("failed", len(result.Failures)),
		slog.Int("records", len(result.Records)),
	)
	return result, nil
}

// readSource reads one source. On error the partial rows are discarded so
// a malformed source contributes nothing.
func (m *Merger) readSource(ctx context.Context, src Source) ([]Record, SourceReport, error) {
	report := SourceReport{Name: src.Name()}

	rc, err := src.Open()
	if err != nil {
		return nil, report, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	var total int64
	if sized, ok := src.(SizedSource); ok {
		total = sized.Size()
	}
	text, counter := WrapForStreaming(rc, total)

	reader := csv.NewReader(text)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, report, errors.New("source is empty, no header row")
	}
	if err != nil {
		return nil, report, fmt.Errorf("parse header: %w", err)
	}

	proj := newProjection(m.schema, header)
	report.Missing = proj.missing
	report.Extra = proj.extra

	records := make([]Record, 0, min(m.rowCap, 1024))
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, report, err
		}
		line, _ := reader.FieldPos(0)
		if isBlankRow(row) {
			continue
		}

		if len(records) == m.rowCap {
			report.Truncated = true
			break
		}
		records = append(records, proj.record(report.Name, line, row))

		if len(records)%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
		}
	}

	report.Rows = len(records)
	report.Bytes = counter.BytesRead
	report.ReadPercent = counter.Progress()
	return records, report, nil
}

// projection maps source columns onto schema positions.
type projection struct {
	schema  Schema
	columns []int // schema position -> source column, -1 if absent
	missing []string
	extra   []string
}

func newProjection(schema Schema, header []string) *projection {
	idx := MakeHeaderIndex(header)
	p := &projection{
		schema:  schema,
		columns: make([]int, schema.Len()),
	}

	used := make(map[int]bool, len(header))
	for i, f := range schema.fields {
		col, ok := idx[strings.ToLower(f)]
		if !ok {
			p.columns[i] = -1
			p.missing = append(p.missing, f)
			continue
		}
		p.columns[i] = col
		used[col] = true
	}

	for i, h := range header {
		if name := CleanHeader(h); name != "" && !used[i] {
			p.extra = append(p.extra, name)
		}
	}
	return p
}

// record projects one source row. Short rows are padded with empty values;
// surrounding whitespace is trimmed from every value.
func (p *projection) record(source string, line int, row []string) Record {
	values := make([]string, len(p.columns))
	for i, col := range p.columns {
		if col >= 0 && col < len(row) {
			values[i] = strings.TrimSpace(row[col])
		}
	}
	return Record{Source: source, Line: line, Values: values}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
