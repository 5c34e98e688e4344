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

package query

import (
	"context"

	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/internal/funcutil"
)

// Functions returns the Function nodes of the graph
func Functions(s cpg.Store) []*cpg.Node {
	return s.Nodes(IsKind(cpg.Function))
}

// Instructions returns the instructions under fn in the AST that satisfy filter
func Instructions(ctx context.Context, s cpg.Store, fn *cpg.Node, filter func(*cpg.Node) bool) ([]*cpg.Node, error) {
	return Descendants(ctx, s, fn.ID, cpg.AST, 1, Unbounded, And(IsKind(cpg.Instruction), filter))
}

// Subtree returns node and all its AST descendants
func Subtree(ctx context.Context, s cpg.Store, node int64) ([]*cpg.Node, error) {
	return Descendants(ctx, s, node, cpg.AST, 0, Unbounded, nil)
}

// Parameters returns the parameters of fn, sorted by ID
func Parameters(ctx context.Context, s cpg.Store, fn *cpg.Node) ([]*cpg.Node, error) {
	groups, err := Descendants(ctx, s, fn.ID, cpg.AST, 1, Unbounded, IsKind(cpg.Parameters))
	if err != nil {
		return nil, err
	}
	var params []*cpg.Node
	for _, g := range groups {
		ps, err := Descendants(ctx, s, g.ID, cpg.AST, 1, 1, IsKind(cpg.Parameter))
		if err != nil {
			return nil, err
		}
		params = append(params, ps...)
	}
	return params, nil
}

// ********** Node predicates **********

// IsKind returns a predicate matching the nodes of kind k
func IsKind(k cpg.NodeKind) func(*cpg.Node) bool {
	return func(n *cpg.Node) bool { return n.Kind == k }
}

// IsCall returns a predicate matching Call instructions. When labels are given, only calls to those labels match.
func IsCall(labels ...string) func(*cpg.Node) bool {
	return IsInstruction(cpg.InstCall, labels...)
}

// IsInstruction returns a predicate matching instructions of type instType. When labels are given, only
// instructions with one of those labels match.
func IsInstruction(instType string, labels ...string) func(*cpg.Node) bool {
	set := funcutil.Set(labels)
	return func(n *cpg.Node) bool {
		return n.IsInstruction(instType) && (len(set) == 0 || set[n.Label])
	}
}

// HasOpcode returns a predicate matching instructions with the given opcode
func HasOpcode(opcode string) func(*cpg.Node) bool {
	return func(n *cpg.Node) bool { return n.Kind == cpg.Instruction && n.Opcode == opcode }
}

// LabelIn returns a predicate matching the nodes whose label is in the set
func LabelIn(labels map[string]bool) func(*cpg.Node) bool {
	return func(n *cpg.Node) bool { return labels[n.Label] }
}

// And returns the conjunction of the predicates. Nil predicates are ignored.
func And[T any](preds ...func(T) bool) func(T) bool {
	return func(x T) bool {
		for _, p := range preds {
			if p != nil && !p(x) {
				return false
			}
		}
		return true
	}
}

// Not returns the negation of the predicate
func Not[T any](pred func(T) bool) func(T) bool {
	return func(x T) bool { return !pred(x) }
}

// ********** Edge predicates **********

// PDGEdge returns a predicate matching the PDG edges of type t with the given label
func PDGEdge(t cpg.PDGType, label string) func(*cpg.Edge) bool {
	return func(e *cpg.Edge) bool {
		return e.Kind == cpg.PDG && e.PDGType == t && e.Label == label
	}
}

// PDGOfType returns a predicate matching the PDG edges of type t, whatever their label
func PDGOfType(t cpg.PDGType) func(*cpg.Edge) bool {
	return func(e *cpg.Edge) bool {
		return e.Kind == cpg.PDG && e.PDGType == t
	}
}

// PositiveConst returns a predicate matching the PDG Const edges whose integer value is strictly positive. If
// valueType is not empty, edges that carry a different value type do not match.
func PositiveConst(valueType string) func(*cpg.Edge) bool {
	return func(e *cpg.Edge) bool {
		v, ok := e.Const()
		if !ok || v <= 0 {
			return false
		}
		return valueType == "" || e.ValueType == "" || e.ValueType == valueType
	}
}

// ASTArg returns a predicate matching the AST edges at argument position arg
func ASTArg(arg int) func(*cpg.Edge) bool {
	return func(e *cpg.Edge) bool { return e.Kind == cpg.AST && e.Arg == arg }
}
