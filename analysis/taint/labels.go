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
	"sort"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/internal/funcutil"
)

// Imports returns the names of the functions imported by the module, in ID order
func Imports(s cpg.Store) []string {
	var names []string
	for _, fn := range query.Functions(s) {
		if fn.IsImport {
			names = append(names, fn.Name)
		}
	}
	return names
}

// Sources returns the sources of the config, with the imported functions when import-as-sources is set
func Sources(s cpg.Store, cfg *config.Config) map[string]bool {
	sources := funcutil.Set(cfg.Sources)
	if cfg.ImportAsSources {
		funcutil.Union(sources, funcutil.Set(Imports(s)))
	}
	return sources
}

// Sinks returns the sinks of the config, with the imported functions when import-as-sinks is set. White-listed
// functions are never sinks.
func Sinks(s cpg.Store, cfg *config.Config) map[string]bool {
	sinks := funcutil.Set(cfg.Sinks)
	if cfg.ImportAsSinks {
		funcutil.Union(sinks, funcutil.Set(Imports(s)))
	}
	for _, name := range cfg.WhiteList {
		delete(sinks, name)
	}
	return sinks
}

// TaintedParams returns the tainted parameters of each function: the ones of the config and, when exported-as-sinks
// is set, all the parameters of the exported functions that are neither white-listed nor ignored. The config takes
// precedence for the functions it lists.
func TaintedParams(ctx context.Context, s cpg.Store, cfg *config.Config) (map[string]map[int]bool, error) {
	tainted := cfg.TaintedSeeds()
	if !cfg.ExportedAsSinks {
		return tainted, nil
	}
	for _, fn := range query.Functions(s) {
		if !fn.IsExport || cfg.IsWhitelisted(fn.Name) || cfg.IsIgnored(fn.Name) {
			continue
		}
		if _, ok := tainted[fn.Name]; ok {
			continue
		}
		params, err := query.Parameters(ctx, s, fn)
		if err != nil {
			return nil, err
		}
		if len(params) == 0 {
			continue
		}
		tainted[fn.Name] = funcutil.Set(funcutil.Map(params, func(n *cpg.Node) int { return n.Index }))
	}
	return tainted, nil
}

// Seeds returns the worklist of the tainted parameters, sorted by function name
func Seeds(ctx context.Context, s cpg.Store, cfg *config.Config) ([]Entry, error) {
	tainted, err := TaintedParams(ctx, s, cfg)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for name, params := range tainted {
		entries = append(entries, Entry{Function: name, Params: funcutil.SetToOrderedSlice(params)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Function < entries[j].Function })
	return entries, nil
}
