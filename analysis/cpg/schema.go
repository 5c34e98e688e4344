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

package cpg

import "fmt"

// NodeKind is the kind of node in the graph. The frontend emits more kinds than the ones named here (e.g. Locals,
// Results); those are kept as-is.
type NodeKind string

const (
	// Module is the root of the whole program
	Module NodeKind = "Module"
	// Function is the root of an AST tree
	Function NodeKind = "Function"
	// Parameters groups the parameters of a function
	Parameters NodeKind = "Parameters"
	// Parameter is a formal parameter of a function; it has a name and an index
	Parameter NodeKind = "Parameter"
	// Instructions groups the instructions of a function body
	Instructions NodeKind = "Instructions"
	// Instruction is any instruction node. The kind of instruction is in Node.InstType
	Instruction NodeKind = "Instruction"
)

// Instruction types used by the analyses.
const (
	InstCall         = "Call"
	InstCallIndirect = "CallIndirect"
	InstBinary       = "Binary"
	InstConst        = "Const"
	InstReturn       = "Return"
	InstBlock        = "Block"
	InstLoop         = "Loop"
	InstUnreachable  = "Unreachable"
	InstBrIf         = "BrIf"
	InstCompare      = "Compare"
	InstLoad         = "Load"
	InstStore        = "Store"
	InstLocalGet     = "LocalGet"
	InstLocalTee     = "LocalTee"
)

// EdgeKind is the layer an edge belongs to
type EdgeKind string

const (
	// AST edges form the syntax forest
	AST EdgeKind = "AST"
	// CFG edges are control-flow edges inside a function
	CFG EdgeKind = "CFG"
	// CG edges are call graph edges
	CG EdgeKind = "CG"
	// PDG edges are data dependence edges
	PDG EdgeKind = "PDG"
)

// EdgeKinds lists all the edge kinds, in their canonical order.
var EdgeKinds = [...]EdgeKind{AST, CFG, CG, PDG}

func (k EdgeKind) index() int {
	switch k {
	case AST:
		return 0
	case CFG:
		return 1
	case CG:
		return 2
	case PDG:
		return 3
	default:
		return -1
	}
}

// Valid returns true when k is one of the four edge layers
func (k EdgeKind) Valid() bool {
	return k.index() >= 0
}

// PDGType is the type of dependency a PDG edge represents
type PDGType string

const (
	// Const edges carry a constant value
	Const PDGType = "Const"
	// Local edges carry a value through a local variable named by the label
	Local PDGType = "Local"
	// Global edges carry a value through a global variable named by the label
	Global PDGType = "Global"
	// FunctionDep edges labelled X carry a value originating from a call to X
	FunctionDep PDGType = "Function"
)

// NoArg is the value of Edge.Arg when the edge does not carry a positional index.
const NoArg = -1

// Node is a node of the code property graph.
type Node struct {
	// ID is the dense identifier of the node in its graph. IDs are assigned by the Builder, in insertion order.
	ID int64
	// Key is the identifier of the node in the store it has been loaded from
	Key string

	Kind     NodeKind
	Name     string
	InstType string
	Label    string
	Opcode   string
	NArgs    int
	Index    int
	IsImport bool
	IsExport bool
}

// IsInstruction returns true when the node is an instruction of type instType
func (n *Node) IsInstruction(instType string) bool {
	return n.Kind == Instruction && n.InstType == instType
}

func (n *Node) String() string {
	switch {
	case n.Kind == Instruction && n.Label != "":
		return fmt.Sprintf("#%d %s %s", n.ID, n.InstType, n.Label)
	case n.Kind == Instruction && n.Opcode != "":
		return fmt.Sprintf("#%d %s %s", n.ID, n.InstType, n.Opcode)
	case n.Kind == Instruction:
		return fmt.Sprintf("#%d %s", n.ID, n.InstType)
	case n.Name != "":
		return fmt.Sprintf("#%d %s %s", n.ID, n.Kind, n.Name)
	default:
		return fmt.Sprintf("#%d %s", n.ID, n.Kind)
	}
}

// Edge is a directed edge of the code property graph.
type Edge struct {
	ID   int64
	Kind EdgeKind
	Src  int64
	Dest int64

	// Arg is the positional index of Dest among the arguments of Src for AST edges, NoArg otherwise
	Arg int

	PDGType PDGType
	Label   string
	// ValueI is the integer payload of a Const edge. It is nil when the constant is not an integer.
	ValueI    *int64
	ValueType string
}

// Const returns the integer payload of a PDG Const edge. The boolean is false when the edge is not a Const edge or when
// its constant is missing or not an integer.
func (e *Edge) Const() (int64, bool) {
	if e.Kind != PDG || e.PDGType != Const || e.ValueI == nil {
		return 0, false
	}
	return *e.ValueI, true
}

func (e *Edge) String() string {
	switch e.Kind {
	case AST:
		if e.Arg != NoArg {
			return fmt.Sprintf("%d -AST[%d]-> %d", e.Src, e.Arg, e.Dest)
		}
	case PDG:
		if v, ok := e.Const(); ok {
			return fmt.Sprintf("%d -PDG[%s %s=%d]-> %d", e.Src, e.PDGType, e.ValueType, v, e.Dest)
		}
		return fmt.Sprintf("%d -PDG[%s %s]-> %d", e.Src, e.PDGType, e.Label, e.Dest)
	}
	return fmt.Sprintf("%d -%s-> %d", e.Src, e.Kind, e.Dest)
}

// Int64 returns a pointer to a copy of x. It is a helper to set Edge.ValueI.
func Int64(x int64) *int64 {
	return &x
}
