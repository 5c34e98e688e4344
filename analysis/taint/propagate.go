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

package taint

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/internal/funcutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/darkmacheken/wasmati/analysis/taint")

// Entry is an element of the worklist: a function and the indices of its tainted parameters
type Entry struct {
	Function string
	Params   []int
}

// Finding is a call to a sink in a function, with arguments that depend on a tainted parameter of that function
type Finding struct {
	Function string
	Param    int
	Sink     string
	// Positions are the argument positions of the call that depend on the parameter, in increasing order
	Positions []int
	// Round is the round in which the finding was discovered, starting at 1
	Round int
}

func (f Finding) String() string {
	return fmt.Sprintf("%s param %d -> %s%v (round %d)", f.Function, f.Param, f.Sink, f.Positions, f.Round)
}

// Result is the result of a propagation
type Result struct {
	Findings []Finding
	// Rounds is the number of rounds that have been run
	Rounds int
	// Visited are the functions added to the worklist after the seeds, in the order in which they were discovered
	Visited []string
}

// Propagation holds the state of an interprocedural taint propagation on a graph
type Propagation struct {
	store       cpg.Store
	logger      *config.LogGroup
	sinks       map[string]bool
	ignore      map[string]bool
	numRoutines int
	// functions are the function nodes by name. When two functions have the same name, the first one is used.
	functions map[string]*cpg.Node
	visited   *VisitedSet
}

// NewPropagation returns a propagation over the store, with the sinks (see [Sinks]) and ignored functions of the
// config
func NewPropagation(s cpg.Store, cfg *config.Config, logger *config.LogGroup) *Propagation {
	p := &Propagation{
		store:       s,
		logger:      logger,
		sinks:       Sinks(s, cfg),
		ignore:      funcutil.Set(cfg.Ignore),
		numRoutines: cfg.NumRoutines,
		functions:   map[string]*cpg.Node{},
		visited:     NewVisitedSet(),
	}
	for _, fn := range query.Functions(s) {
		if _, ok := p.functions[fn.Name]; !ok {
			p.functions[fn.Name] = fn
		}
	}
	return p
}

// Propagate runs the propagation from the tainted parameters of the config.
// See [Propagation.Run].
func Propagate(ctx context.Context, s cpg.Store, cfg *config.Config, logger *config.LogGroup) (*Result, error) {
	seeds, err := Seeds(ctx, s, cfg)
	if err != nil {
		return &Result{}, err
	}
	return NewPropagation(s, cfg, logger).Run(ctx, seeds)
}

// Run propagates the taint from the seeds until no new function is tainted.
//
// Each round expands every entry of the worklist: for every tainted parameter of the function, every call whose
// arguments depend on the parameter is either a finding, when the callee is a sink, or taints the parameters of the
// callee at the positions of those arguments. A callee joins the worklist of the next round only the first time it
// is discovered, which bounds the number of rounds by the number of functions even when the calls are recursive.
// Calls to ignored functions are not followed.
//
// The entries of a round are expanded in parallel. The results are merged in the order of the worklist, so the
// findings and the worklists do not depend on the scheduling. When the context expires, Run returns the findings of
// the rounds that completed and an error wrapping query.ErrInconclusive.
func (p *Propagation) Run(ctx context.Context, seeds []Entry) (*Result, error) {
	res := &Result{}
	worklist := seeds
	for round := 1; len(worklist) > 0; round++ {
		res.Rounds = round
		p.logger.Debugf("taint round %d: %d functions", round, len(worklist))
		next, err := p.round(ctx, round, worklist, res)
		if err != nil {
			return res, err
		}
		worklist = next
	}
	return res, nil
}

// expansion is the result of expanding one entry of the worklist
type expansion struct {
	findings []Finding
	callees  []Entry
	err      error
}

// round expands the worklist, appends the findings to res and returns the worklist of the next round. res is left
// untouched when the round fails.
func (p *Propagation) round(ctx context.Context, round int, worklist []Entry, res *Result) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "taint.round", trace.WithAttributes(
		attribute.Int("round", round),
		attribute.Int("entries", len(worklist))))
	defer span.End()

	// functions inserted in the visited set during this round
	var mu sync.Mutex
	discovered := map[string]bool{}

	expansions := funcutil.MapParallel(worklist, func(e Entry) expansion {
		x := p.expand(ctx, round, e)
		for _, c := range x.callees {
			if p.visited.TryAdd(c.Function) {
				mu.Lock()
				discovered[c.Function] = true
				mu.Unlock()
			}
		}
		return x
	}, p.numRoutines)

	findings, next, visited, err := merge(expansions, discovered)
	if err != nil {
		return nil, err
	}
	res.Findings = append(res.Findings, findings...)
	res.Visited = append(res.Visited, visited...)
	span.SetAttributes(attribute.Int("findings", len(res.Findings)), attribute.Int("next", len(next)))
	return next, nil
}

// merge combines the expansions of a round in the order of the worklist. It returns the findings, the worklist of
// the next round and the functions it adds, or only an error if one of the expansions failed.
func merge(expansions []expansion, discovered map[string]bool) ([]Finding, []Entry, []string, error) {
	var findings []Finding
	var next []Entry
	var visited []string
	index := map[string]int{}
	for _, x := range expansions {
		if x.err != nil {
			return nil, nil, nil, x.err
		}
		findings = append(findings, x.findings...)
		for _, c := range x.callees {
			if !discovered[c.Function] {
				continue
			}
			if i, ok := index[c.Function]; ok {
				next[i].Params = unionSorted(next[i].Params, c.Params)
				continue
			}
			index[c.Function] = len(next)
			next = append(next, c)
			visited = append(visited, c.Function)
		}
	}
	return findings, next, visited, nil
}

// expand computes the findings and the tainted callees of one entry
func (p *Propagation) expand(ctx context.Context, round int, e Entry) expansion {
	var x expansion
	fn, ok := p.functions[e.Function]
	if !ok {
		p.logger.Debugf("no function named %s in the graph", e.Function)
		return x
	}
	params, err := query.Parameters(ctx, p.store, fn)
	if err != nil {
		x.err = err
		return x
	}
	callSites, err := query.Instructions(ctx, p.store, fn, query.IsCall())
	if err != nil {
		x.err = err
		return x
	}
	tainted := funcutil.Set(e.Params)
	sort.Slice(params, func(i, j int) bool { return params[i].Index < params[j].Index })
	for _, param := range params {
		if !tainted[param.Index] {
			continue
		}
		// positions by callee, callees in the order of their first call site
		var callees []string
		positions := map[string]map[int]bool{}
		for _, c := range callSites {
			implicated, err := p.implicatedArgs(ctx, c, param.Name)
			if err != nil {
				x.err = err
				return x
			}
			if len(implicated) == 0 {
				continue
			}
			if _, ok := positions[c.Label]; !ok {
				callees = append(callees, c.Label)
				positions[c.Label] = map[int]bool{}
			}
			funcutil.Union(positions[c.Label], implicated)
		}
		for _, callee := range callees {
			args := funcutil.SetToOrderedSlice(positions[callee])
			switch {
			case p.sinks[callee]:
				f := Finding{Function: fn.Name, Param: param.Index, Sink: callee, Positions: args, Round: round}
				p.logger.Debugf("tainted call: %s", f)
				x.findings = append(x.findings, f)
			case p.ignore[callee]:
				p.logger.Tracef("not following %s from %s", callee, fn.Name)
			default:
				x.callees = append(x.callees, Entry{Function: callee, Params: args})
			}
		}
	}
	return x
}

// implicatedArgs returns the argument positions of the call c that depend on the parameter named name: the
// argument subtree contains a use of the parameter, or a node with a dependency through the local of the parameter.
func (p *Propagation) implicatedArgs(ctx context.Context, c *cpg.Node, name string) (map[int]bool, error) {
	implicated := map[int]bool{}
	usesParam := func(n *cpg.Node) bool {
		return n.Label == name || query.HasEdgeInto(p.store, n.ID, cpg.PDG, query.PDGEdge(cpg.Local, name))
	}
	for _, arg := range p.store.OutEdges(c.ID, cpg.AST) {
		if arg.Arg == cpg.NoArg {
			continue
		}
		subtree, err := query.Descendants(ctx, p.store, arg.Dest, cpg.AST, 0, query.Unbounded, usesParam)
		if err != nil {
			return nil, err
		}
		if len(subtree) > 0 {
			implicated[arg.Arg] = true
		}
	}
	return implicated, nil
}

// unionSorted returns the sorted union of two sorted slices without duplicates
func unionSorted(a, b []int) []int {
	s := funcutil.Set(a)
	for _, x := range b {
		s[x] = true
	}
	return funcutil.SetToOrderedSlice(s)
}
