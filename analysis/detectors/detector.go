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

package detectors

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/analysis/telemetry"
)

// State is what a detector needs to run: the graph, the configuration and a logger.
// A State is shared by all the detectors of a run and is never modified by them.
type State struct {
	Store  cpg.Store
	Config *config.Config
	Logger *config.LogGroup
	// Metrics may be nil
	Metrics *telemetry.Metrics
}

// NewState returns a state for the store and config, with a logger set up from the config
func NewState(s cpg.Store, cfg *config.Config) *State {
	return &State{Store: s, Config: cfg, Logger: config.NewLogGroup(cfg)}
}

// A Row is one result of a detector
type Row interface {
	// Record returns the fields of the row, in the order of the header of its detector
	Record() []string
}

// A Detector searches the graph for one kind of vulnerability.
//
// Run returns the rows found so far along with an error when it fails. When the context expires, the error wraps
// query.ErrInconclusive and the rows are the partial results of the detector.
type Detector interface {
	Name() string
	Header() []string
	Run(ctx context.Context, s *State) ([]Row, error)
}

// All returns all the detectors, in the order in which their results are reported
func All() []Detector {
	return []Detector{
		DangerousFunctions{},
		DoubleFree{},
		UseAfterFree{},
		FormatStrings{},
		MallocBufferOverflow{},
		StaticBufferOverflow{},
		BufferLoops{},
		ScanfLoops{},
		TaintedCopy{},
		TaintedDirect{},
		TaintedIndirect{},
		TaintedCalls{},
		UnreachableCode{},
	}
}

// Names returns the names of all the detectors
func Names() []string {
	var names []string
	for _, d := range All() {
		names = append(names, d.Name())
	}
	return names
}

// Select returns the detectors with the given names, in the order of All. It returns all the detectors when names is
// empty, and an error naming the unknown detectors if there are some.
func Select(names []string) ([]Detector, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}
	wanted := map[string]bool{}
	for _, n := range names {
		wanted[n] = true
	}
	var selected []Detector
	for _, d := range all {
		if wanted[d.Name()] {
			selected = append(selected, d)
			delete(wanted, d.Name())
		}
	}
	if len(wanted) > 0 {
		var unknown []string
		for n := range wanted {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown detectors: %s (available: %s)", strings.Join(unknown, ", "),
			strings.Join(Names(), ", "))
	}
	return selected, nil
}

// forEachFunction calls f on every function of the graph that is not ignored, in ID order, and stops at the first
// error
func forEachFunction(s *State, f func(fn *cpg.Node) error) error {
	for _, fn := range query.Functions(s.Store) {
		if s.Config.IsIgnored(fn.Name) {
			s.Logger.Tracef("skipping ignored function %s", fn.Name)
			continue
		}
		if err := f(fn); err != nil {
			return err
		}
	}
	return nil
}

// calls returns the calls under fn to one of the labels
func calls(ctx context.Context, s *State, fn *cpg.Node, labels ...string) ([]*cpg.Node, error) {
	return query.Instructions(ctx, s.Store, fn, query.IsCall(labels...))
}

// callsIn returns the calls under fn whose label is in the set
func callsIn(ctx context.Context, s *State, fn *cpg.Node, labels map[string]bool) ([]*cpg.Node, error) {
	return query.Instructions(ctx, s.Store, fn, query.And(query.IsCall(), query.LabelIn(labels)))
}

func nodeID(n *cpg.Node) int64 { return n.ID }
