package core

// pipeline.go runs the stages end to end:
//
//	discover -> merge -> persist merged -> partition -> resolve
//	         -> write result/deleted -> publish -> report
//
// Each stage fully consumes its input before the next starts. Runs are
// serialized by a RunLimiter because every stage works on fixed paths.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/AssetRecon/internal/logging"
)

// Options configures a Pipeline. File names are relative to DataDir unless
// absolute.
type Options struct {
	DataDir       string
	ReferenceFile string
	MergedFile    string
	ResultFile    string
	DeletedFile   string
	ReportFile    string

	RowCap          int
	Dedupe          bool
	AnnotateReasons bool

	Rules          []FieldRule
	IdentityFields []string

	MaxWait     time.Duration // how long a run waits for the limiter
	SinkTimeout time.Duration // bound on publishing all datasets, 0 for none
}

func (o Options) path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.DataDir, name)
}

// Pipeline holds the immutable run context (schema, grammar, resolver) and
// the sink. It is safe for concurrent use; runs execute one at a time.
type Pipeline struct {
	opts     Options
	schema   Schema
	grammar  *Grammar
	resolver *DuplicateResolver
	sink     Sink
	limiter  *RunLimiter

	mu   sync.RWMutex
	last *RunReport
}

// NewPipeline loads the schema and binds the grammar. Any failure here is
// fatal: no stage can run without a complete grammar. sink may be nil.
func NewPipeline(opts Options, sink Sink) (*Pipeline, error) {
	if opts.RowCap <= 0 {
		return nil, fmt.Errorf("row cap must be positive, got %d", opts.RowCap)
	}

	schema, err := LoadSchema(opts.path(opts.ReferenceFile))
	if err != nil {
		return nil, err
	}

	grammar, err := NewGrammar(schema, opts.Rules)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		opts:    opts,
		schema:  schema,
		grammar: grammar,
		sink:    sink,
		limiter: NewRunLimiter(opts.MaxWait),
	}

	if opts.Dedupe {
		p.resolver, err = NewDuplicateResolver(grammar, opts.IdentityFields)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Schema returns the loaded schema.
func (p *Pipeline) Schema() Schema { return p.schema }

// Grammar returns the bound grammar.
func (p *Pipeline) Grammar() *Grammar { return p.grammar }

// Limiter returns the run limiter, for status reporting and shutdown.
func (p *Pipeline) Limiter() *RunLimiter { return p.limiter }

// Path resolves a file name against the data directory.
func (p *Pipeline) Path(name string) string { return p.opts.path(name) }

// Options returns the pipeline configuration.
func (p *Pipeline) Options() Options { return p.opts }

// Run executes one full pipeline pass. The returned report is non-nil
// whenever the run got past the limiter, including on failure.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	trigger := TriggerFromContext(ctx)
	if err := p.limiter.Acquire(ctx, trigger); err != nil {
		return nil, err
	}
	defer p.limiter.Release()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)

	report := &RunReport{
		RunID:     runID,
		Trigger:   trigger,
		ClientIP:  IPAddressFromContext(ctx),
		StartedAt: time.Now().UTC(),
		Fields:    p.schema.Len(),
		RowCap:    p.opts.RowCap,
		Dedupe:    p.opts.Dedupe,
	}
	if p.sink != nil {
		report.Sink.Name = p.sink.Name()
	}

	log.Info("pipeline run started", "trigger", trigger, "data_dir", p.opts.DataDir)

	err := p.run(ctx, report)

	report.FinishedAt = time.Now().UTC()
	report.Duration = report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String()
	if err != nil {
		report.Error = err.Error()
		log.Error("pipeline run failed", "error", err, "duration", report.Duration)
	} else {
		log.Info("pipeline run completed",
			slog.Int("merged", report.Counts.Merged),
			slog.Int("final", report.Counts.Final),
			slog.Int("demoted", report.Counts.Demoted),
			slog.String("duration", report.Duration),
		)
	}

	if p.opts.ReportFile != "" {
		if saveErr := SaveReport(p.opts.path(p.opts.ReportFile), report); saveErr != nil {
			log.Warn("run report not saved", "error", saveErr)
		}
	}

	p.mu.Lock()
	p.last = report
	p.mu.Unlock()

	return report, err
}

func (p *Pipeline) run(ctx context.Context, report *RunReport) error {
	sources, err := DiscoverSources(p.opts.DataDir,
		p.opts.ReferenceFile, p.opts.MergedFile, p.opts.ResultFile, p.opts.DeletedFile)
	if err != nil {
		return err
	}

	merged, err := NewMerger(p.schema, p.opts.RowCap).Merge(ctx, sources)
	if merged != nil {
		report.Sources = merged.Sources
	}
	if err != nil {
		return err
	}
	report.Counts.Merged = len(merged.Records)

	mergedPath := p.opts.path(p.opts.MergedFile)
	if err := WriteDataset(mergedPath, p.schema, merged.Records, nil); err != nil {
		return err
	}
	report.Outputs.Merged = mergedPath

	valid, invalid := NewPartitioner(p.grammar).Partition(merged.Records)
	report.Counts.Valid = len(valid)
	report.Counts.Invalid = len(invalid)

	res, err := p.resolve(valid, invalid)
	if err != nil {
		return err
	}
	report.Counts.Final = len(res.Final)
	report.Counts.Demoted = len(res.Demoted)
	report.Counts.Groups = res.Groups
	report.Counts.DuplicateGroups = res.DuplicateGroups

	deleted := NewRejectedDataset(CategoryInvalid, p.schema, res.Demoted)

	resultPath := p.opts.path(p.opts.ResultFile)
	if err := WriteDataset(resultPath, p.schema, res.Final, nil); err != nil {
		return err
	}
	report.Outputs.Result = resultPath

	var reasons [][]string
	if p.opts.AnnotateReasons {
		reasons = deleted.Reasons
	}
	deletedPath := p.opts.path(p.opts.DeletedFile)
	if err := WriteDataset(deletedPath, p.schema, deleted.Records, reasons); err != nil {
		return err
	}
	report.Outputs.Deleted = deletedPath

	return p.publish(ctx, report,
		Dataset{Name: CategoryMerged, Schema: p.schema, Records: merged.Records},
		Dataset{Name: CategoryValid, Schema: p.schema, Records: res.Final},
		deleted,
	)
}

// resolve runs duplicate resolution, or passes the partition through when
// deduplication is disabled.
func (p *Pipeline) resolve(valid []Record, invalid []Rejected) (*Resolution, error) {
	if p.resolver == nil {
		return &Resolution{Final: valid, Demoted: invalid, Groups: len(valid)}, nil
	}
	return p.resolver.Resolve(valid, invalid)
}

// publish hands every dataset to the sink concurrently. The first failure
// cancels the remaining replaces; categories already committed stay published.
func (p *Pipeline) publish(ctx context.Context, report *RunReport, datasets ...Dataset) error {
	if p.sink == nil {
		return nil
	}

	if p.opts.SinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.SinkTimeout)
		defer cancel()
	}

	published := make([]bool, len(datasets))
	g, gCtx := errgroup.WithContext(ctx)
	for i, ds := range datasets {
		g.Go(func() error {
			if err := p.sink.Replace(gCtx, ds); err != nil {
				return &SinkError{Sink: p.sink.Name(), Category: ds.Name, Err: err}
			}
			published[i] = true
			logging.FromContext(ctx).Info("dataset published",
				"sink", p.sink.Name(), "category", ds.Name, "records", len(ds.Records))
			return nil
		})
	}
	err := g.Wait()

	for i, ok := range published {
		if ok {
			report.Sink.Published = append(report.Sink.Published, datasets[i].Name)
		}
	}
	if err != nil {
		report.Sink.Error = err.Error()
	}
	return err
}

// LastReport returns the most recent run report, falling back to the
// report file from a previous process.
func (p *Pipeline) LastReport() (*RunReport, error) {
	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()
	if last != nil {
		return last, nil
	}
	if p.opts.ReportFile == "" {
		return nil, ErrNoReport
	}

	r, err := LoadReport(p.opts.path(p.opts.ReportFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoReport
	}
	return r, err
}

// ValidateSource reads one source and returns its records with verdicts,
// without writing any output.
func (p *Pipeline) ValidateSource(ctx context.Context, src Source) ([]Record, []Verdict, *SourceReport, error) {
	res, err := NewMerger(p.schema, p.opts.RowCap).Merge(ctx, []Source{src})
	if err != nil {
		if res != nil && len(res.Failures) > 0 {
			return nil, nil, &res.Sources[0], res.Failures[0]
		}
		return nil, nil, nil, err
	}

	validator := NewRowValidator(p.grammar)
	verdicts := make([]Verdict, len(res.Records))
	for i, r := range res.Records {
		verdicts[i] = validator.Validate(r)
	}
	return res.Records, verdicts, &res.Sources[0], nil
}
