// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report writes the results of the detectors, as CSV tables or as one JSON document.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/darkmacheken/wasmati/analysis"
	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/detectors"
)

// Format is the output format of a report
type Format string

const (
	// CSV writes one table per detector
	CSV Format = "csv"
	// JSON writes a single document with all the detectors
	JSON Format = "json"
)

// ParseFormat returns the format named s
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case CSV, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (expected csv or json)", s)
	}
}

// Options are the options of Write
type Options struct {
	Format Format
	// Dir is the directory the reports are written to. When empty, the reports are written to Out.
	Dir string
	Out io.Writer
	// Graph and Fingerprint identify the analyzed graph in the JSON report
	Graph       string
	Fingerprint string
	Logger      *config.LogGroup
}

// Document is the JSON report of a run
type Document struct {
	RunID       string           `json:"run_id"`
	Version     string           `json:"version"`
	Graph       string           `json:"graph,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Detectors   []DetectorReport `json:"detectors"`
}

// DetectorReport is the part of the JSON report for one detector
type DetectorReport struct {
	Name      string          `json:"name"`
	Header    []string        `json:"header"`
	Rows      []detectors.Row `json:"rows"`
	Truncated bool            `json:"truncated,omitempty"`
	Error     string          `json:"error,omitempty"`
	Seconds   float64         `json:"seconds"`
}

// NewDocument returns the JSON report of run
func NewDocument(run *analysis.RunResult, graph, fingerprint string) Document {
	doc := Document{RunID: run.RunID, Version: analysis.Version, Graph: graph, Fingerprint: fingerprint}
	for _, res := range run.Results {
		dr := DetectorReport{
			Name:      res.Name,
			Header:    res.Header,
			Rows:      res.Rows,
			Truncated: res.Truncated,
			Seconds:   res.Duration.Seconds(),
		}
		if dr.Rows == nil {
			dr.Rows = []detectors.Row{}
		}
		if res.Err != nil {
			dr.Error = res.Err.Error()
		}
		doc.Detectors = append(doc.Detectors, dr)
	}
	return doc
}

// Write writes the report of run according to opts
func Write(run *analysis.RunResult, opts Options) error {
	switch opts.Format {
	case JSON:
		return writeJSON(run, opts)
	case CSV, "":
		return writeCSV(run, opts)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// WriteTable writes the header and the rows of one detector as CSV
func WriteTable(w io.Writer, res analysis.DetectorResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Header); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := cw.Write(row.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCSV(run *analysis.RunResult, opts Options) error {
	if opts.Dir == "" {
		for _, res := range run.Results {
			title := "# " + res.Name
			if res.Truncated {
				title += " (truncated)"
			}
			if _, err := fmt.Fprintln(opts.Out, title); err != nil {
				return err
			}
			if err := WriteTable(opts.Out, res); err != nil {
				return fmt.Errorf("could not write %s: %w", res.Name, err)
			}
		}
		return nil
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("could not create reports directory: %w", err)
	}
	for _, res := range run.Results {
		path := filepath.Join(opts.Dir, res.Name+".csv")
		if err := writeFile(path, func(w io.Writer) error { return WriteTable(w, res) }); err != nil {
			return err
		}
		if opts.Logger != nil {
			opts.Logger.Infof("Wrote %d rows of %s in %s", len(res.Rows), res.Name, path)
		}
	}
	return nil
}

func writeJSON(run *analysis.RunResult, opts Options) error {
	doc := NewDocument(run, opts.Graph, opts.Fingerprint)
	encode := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	if opts.Dir == "" {
		return encode(opts.Out)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("could not create reports directory: %w", err)
	}
	path := filepath.Join(opts.Dir, fmt.Sprintf("report-%s.json", run.RunID))
	if err := writeFile(path, encode); err != nil {
		return err
	}
	if opts.Logger != nil {
		opts.Logger.Infof("Wrote report of run %s in %s", run.RunID, path)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create report file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return f.Close()
}
