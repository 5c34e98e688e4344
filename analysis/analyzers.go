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

// Package analysis runs the vulnerability detectors on a code property graph.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/detectors"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/analysis/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Version is the version of the tool
const Version = "0.3.0"

// DetectorResult is the result of running one detector
type DetectorResult struct {
	Name     string
	Header   []string
	Rows     []detectors.Row
	Duration time.Duration
	// Truncated is true when the detector ran out of time. Rows are then the rows found before the timeout.
	Truncated bool
	// Err is the error that stopped the detector, if it did not complete for another reason than its timeout
	Err error
}

// RunResult is the result of running a set of detectors
type RunResult struct {
	RunID   string
	Results []DetectorResult
}

// Failed returns the results of the detectors that failed
func (r *RunResult) Failed() []DetectorResult {
	var failed []DetectorResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// RunParams are the parameters of RunDetectors
type RunParams struct {
	Store  cpg.Store
	Config *config.Config
	// Logger defaults to a logger set up from the config
	Logger *config.LogGroup
	// Metrics may be nil
	Metrics *telemetry.Metrics
	// Detectors are the names of the detectors to run. If empty, the detectors of the config options run.
	Detectors []string
}

// RunDetectors runs the selected detectors concurrently on the store, using at most Config.NumRoutines goroutines.
// Each detector has its own timeout, Config.DetectorTimeout; a detector that times out or fails does not stop the
// others. The results are in the order of detectors.All.
//
// RunDetectors only returns an error when the parameters are invalid, e.g. when a detector name is unknown.
func RunDetectors(ctx context.Context, params RunParams) (*RunResult, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("no graph to analyze")
	}
	cfg := params.Config
	if cfg == nil {
		cfg = config.NewDefault()
	}
	logger := params.Logger
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	names := params.Detectors
	if len(names) == 0 {
		names = cfg.Options.Detectors
	}
	selected, err := detectors.Select(names)
	if err != nil {
		return nil, err
	}

	run := &RunResult{RunID: uuid.NewString(), Results: make([]DetectorResult, len(selected))}
	state := &detectors.State{Store: params.Store, Config: cfg, Logger: logger, Metrics: params.Metrics}
	logger.Infof("Run %s: running %d detectors on %d nodes", run.RunID, len(selected), params.Store.Order())
	start := time.Now()

	g := new(errgroup.Group)
	if cfg.NumRoutines > 0 {
		g.SetLimit(cfg.NumRoutines)
	}
	for i, d := range selected {
		i, d := i, d
		g.Go(func() error {
			run.Results[i] = runDetector(ctx, state, d, cfg.DetectorTimeout)
			return nil
		})
	}
	_ = g.Wait()

	logger.Infof("Run %s done (%.2f s)", run.RunID, time.Since(start).Seconds())
	return run, nil
}

// runDetector runs one detector with its timeout and records its metrics
func runDetector(ctx context.Context, s *detectors.State, d detectors.Detector, timeout time.Duration) DetectorResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx, span := telemetry.Tracer().Start(ctx, "detector."+d.Name())
	defer span.End()

	s.Logger.Debugf("Starting %s", d.Name())
	start := time.Now()
	rows, err := d.Run(ctx, s)
	res := DetectorResult{Name: d.Name(), Header: d.Header(), Rows: rows, Duration: time.Since(start)}
	s.Metrics.ObserveDetector(d.Name(), res.Duration, len(rows))
	span.SetAttributes(attribute.Int("rows", len(rows)))

	switch {
	case err == nil:
		s.Logger.Infof("%-24s %4d rows (%.2f s)", d.Name(), len(rows), res.Duration.Seconds())
	case errors.Is(err, query.ErrInconclusive):
		res.Truncated = true
		s.Metrics.Inconclusive(d.Name())
		span.SetAttributes(attribute.Bool("truncated", true))
		s.Logger.Warnf("%s did not complete in %s, reporting %d partial rows: %v", d.Name(), timeout, len(rows),
			err)
	default:
		res.Err = err
		s.Metrics.Failure(d.Name())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.Logger.Errorf("%s failed: %v", d.Name(), err)
	}
	return res
}
