// Package cli wires the pipeline, sinks, web server and watcher into the
// assetrecon command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/AssetRecon/internal/config"
	"github.com/JonMunkholm/AssetRecon/internal/core"
	"github.com/JonMunkholm/AssetRecon/internal/core/tables"
	"github.com/JonMunkholm/AssetRecon/internal/sink"
)

// app carries the configuration shared by every command. Flags override
// the environment-derived values before any command runs.
type app struct {
	cfg *config.Config

	flags struct {
		dataDir  string
		rowCap   int
		dedupe   bool
		annotate bool
	}
}

// NewRootCommand builds the assetrecon command tree over cfg.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:   "assetrecon",
		Short: "Reconcile IT asset inventory exports",
		Long: `assetrecon merges inventory CSV exports from a data directory, validates
every record against the inventory field grammar, resolves duplicate assets
and writes the result, the rejected records and a run report.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.applyFlags(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.dataDir, "data-dir", cfg.Pipeline.DataDir, "directory holding sources and outputs")
	pf.IntVar(&a.flags.rowCap, "row-cap", cfg.Pipeline.RowCap, "maximum data rows read per source")
	pf.BoolVar(&a.flags.dedupe, "dedupe", cfg.Pipeline.Dedupe, "resolve duplicate assets")
	pf.BoolVar(&a.flags.annotate, "annotate", cfg.Pipeline.AnnotateReasons, "add a reasons column to the deleted output")

	root.AddCommand(
		newInitCommand(a),
		newRunCommand(a),
		newServeCommand(a),
		newWatchCommand(a),
		newReportCommand(a),
		newValidateCommand(a),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, cfg *config.Config) error {
	return NewRootCommand(cfg).ExecuteContext(ctx)
}

func (a *app) applyFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("data-dir") {
		a.cfg.Pipeline.DataDir = a.flags.dataDir
	}
	if f.Changed("row-cap") {
		if a.flags.rowCap <= 0 {
			return fmt.Errorf("--row-cap must be positive, got %d", a.flags.rowCap)
		}
		a.cfg.Pipeline.RowCap = a.flags.rowCap
	}
	if f.Changed("dedupe") {
		a.cfg.Pipeline.Dedupe = a.flags.dedupe
	}
	if f.Changed("annotate") {
		a.cfg.Pipeline.AnnotateReasons = a.flags.annotate
	}
	return nil
}

// options maps the configuration onto pipeline options with the
// inventory grammar.
func (a *app) options() core.Options {
	p := a.cfg.Pipeline
	return core.Options{
		DataDir:         p.DataDir,
		ReferenceFile:   p.ReferenceFile,
		MergedFile:      p.MergedFile,
		ResultFile:      p.ResultFile,
		DeletedFile:     p.DeletedFile,
		ReportFile:      p.ReportFile,
		RowCap:          p.RowCap,
		Dedupe:          p.Dedupe,
		AnnotateReasons: p.AnnotateReasons,
		Rules:           tables.Rules(),
		IdentityFields:  tables.IdentityFields,
		MaxWait:         p.MaxWaitTime,
		SinkTimeout:     a.cfg.Sink.Timeout,
	}
}

// openPipeline builds the pipeline and, when publish is set, the
// configured sink. The returned close function is never nil.
func (a *app) openPipeline(ctx context.Context, publish bool) (*core.Pipeline, func(), error) {
	var s sink.Closer
	if publish {
		var err error
		s, err = sink.Open(ctx, a.cfg, tables.ColumnTypes)
		if err != nil {
			return nil, func() {}, fmt.Errorf("open sink: %w", err)
		}
	}
	closeSink := func() {
		if s != nil {
			s.Close()
		}
	}

	var coreSink core.Sink
	if s != nil {
		coreSink = s
	}
	p, err := core.NewPipeline(a.options(), coreSink)
	if err != nil {
		closeSink()
		return nil, func() {}, err
	}
	return p, closeSink, nil
}
