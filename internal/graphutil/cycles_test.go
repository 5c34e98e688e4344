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

package graphutil_test

import (
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/darkmacheken/wasmati/internal/funcutil"
	"github.com/darkmacheken/wasmati/internal/graphutil"
	"github.com/google/go-cmp/cmp"
	"github.com/yourbasic/graph"
)

func TestFindAllElementaryCycles(t *testing.T) {
	adj := map[int64][]int64{
		0: {1},
		1: {2},
		2: {0, 2},
		3: {4},
		4: {3},
		5: {},
	}
	keys := []int64{5, 4, 3, 2, 1, 0}
	g := graphutil.NewDigraph(6, keys, func(k int64) []int64 { return adj[k] })

	stats := graph.Check(g)
	t.Logf("Stats:\n\tsize: %d\n\tmulti: %d\n\tloops: %d\n\tisolated: %d",
		stats.Size, stats.Multi, stats.Loops, stats.Isolated)
	if stats.Loops != 1 {
		t.Errorf("expected one self-loop, got %d", stats.Loops)
	}

	cycles := graphutil.FindAllElementaryCycles(g)
	results := make([]string, len(cycles))
	for i, cycle := range cycles {
		results[i] = strings.Join(
			funcutil.Map(cycle, func(x int64) string { return strconv.Itoa(int(x)) }),
			"")
	}
	sort.Strings(results)
	expected := []string{"0120", "22", "343"}
	if diff := cmp.Diff(expected, results); diff != "" {
		t.Fatalf("cycles not as expected (-want +got):\n%s", diff)
	}
}

func TestFindAllElementaryCyclesSparseKeys(t *testing.T) {
	// function ids in a code property graph are not consecutive
	adj := map[int64][]int64{
		10: {42},
		42: {10, 77},
		77: {},
	}
	g := graphutil.NewDigraph(100, []int64{10, 42, 77}, func(k int64) []int64 { return adj[k] })
	cycles := graphutil.FindAllElementaryCycles(g)
	if diff := cmp.Diff([][]int64{{10, 42, 10}}, cycles); diff != "" {
		t.Fatalf("cycles not as expected (-want +got):\n%s", diff)
	}
}

func TestFindAllElementaryCyclesAcyclic(t *testing.T) {
	adj := map[int64][]int64{0: {1, 2}, 1: {2}, 2: {}}
	g := graphutil.NewDigraph(3, []int64{0, 1, 2}, func(k int64) []int64 { return adj[k] })
	if cycles := graphutil.FindAllElementaryCycles(g); len(cycles) != 0 {
		t.Fatalf("expected no cycles, got %v", cycles)
	}
}
