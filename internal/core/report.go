package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunReport summarizes one pipeline run. It is persisted as YAML next to
// the outputs and served by the report command and endpoint.
type RunReport struct {
	RunID      string         `yaml:"run_id" json:"run_id"`
	Trigger    string         `yaml:"trigger" json:"trigger"`
	ClientIP   string         `yaml:"client_ip,omitempty" json:"client_ip,omitempty"`
	StartedAt  time.Time      `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at" json:"finished_at"`
	Duration   string         `yaml:"duration" json:"duration"`
	Fields     int            `yaml:"fields" json:"fields"`
	RowCap     int            `yaml:"row_cap" json:"row_cap"`
	Dedupe     bool           `yaml:"dedupe" json:"dedupe"`
	Sources    []SourceReport `yaml:"sources" json:"sources"`
	Counts     RunCounts      `yaml:"counts" json:"counts"`
	Outputs    RunOutputs     `yaml:"outputs" json:"outputs"`
	Sink       SinkReport     `yaml:"sink" json:"sink"`
	Error      string         `yaml:"error,omitempty" json:"error,omitempty"`
}

// RunCounts are the record counts after each stage.
type RunCounts struct {
	Merged          int `yaml:"merged" json:"merged"`
	Valid           int `yaml:"valid" json:"valid"`
	Invalid         int `yaml:"invalid" json:"invalid"`
	Final           int `yaml:"final" json:"final"`
	Demoted         int `yaml:"demoted" json:"demoted"`
	Groups          int `yaml:"groups" json:"groups"`
	DuplicateGroups int `yaml:"duplicate_groups" json:"duplicate_groups"`
}

// RunOutputs are the paths of the files a run wrote.
type RunOutputs struct {
	Merged  string `yaml:"merged,omitempty" json:"merged,omitempty"`
	Result  string `yaml:"result,omitempty" json:"result,omitempty"`
	Deleted string `yaml:"deleted,omitempty" json:"deleted,omitempty"`
}

// SinkReport records the publication step.
type SinkReport struct {
	Name      string   `yaml:"name" json:"name"`
	Published []string `yaml:"published,omitempty" json:"published,omitempty"`
	Error     string   `yaml:"error,omitempty" json:"error,omitempty"`
}

// Succeeded reports whether the run finished without error.
func (r *RunReport) Succeeded() bool {
	return r.Error == ""
}

// SaveReport writes r to path as YAML, replacing any previous report.
func SaveReport(path string, r *RunReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by SaveReport.
func LoadReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r RunReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report yaml: %w", err)
	}
	return &r, nil
}
