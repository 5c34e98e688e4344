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

// Package analysistest contains utility functions to write tests of the analyses: a builder for small code property
// graphs shaped like the ones the frontend emits, and a loader for graphs and configs stored in testdata directories.
package analysistest

import (
	"bytes"
	"io/fs"
	"path"
	"testing"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
)

// LoadTest loads the graph.json and config.yaml files of the directory dir in fsys. If there is no config.yaml, the
// default config is returned.
func LoadTest(t testing.TB, fsys fs.FS, dir string) (*cpg.Graph, *config.Config) {
	t.Helper()
	graphFile := path.Join(dir, "graph.json")
	b, err := fs.ReadFile(fsys, graphFile)
	if err != nil {
		t.Fatalf("error reading %s: %v", graphFile, err)
	}
	g, err := cpg.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("error decoding %s: %v", graphFile, err)
	}

	configFile := path.Join(dir, "config.yaml")
	cb, err := fs.ReadFile(fsys, configFile)
	if err != nil {
		return g, config.NewDefault()
	}
	cfg, err := config.LoadFromBytes(configFile, cb)
	if err != nil {
		t.Fatalf("error loading %s: %v", configFile, err)
	}
	return g, cfg
}

// Program builds a small code property graph. Every method fails the test when the graph cannot be built.
//
// Functions are laid out the way the frontend lays them out:
//
//	Function -AST-> Parameters -AST-> Parameter (name, index)
//	Function -AST-> Instructions -AST-> statement -AST[arg]-> argument ...
//
// Statements of a function are chained by CFG edges starting at the Instructions node, each statement being preceded
// by its arguments in creation order.
type Program struct {
	t         testing.TB
	b         *cpg.Builder
	functions map[string]*Func
}

// NewProgram returns an empty program
func NewProgram(t testing.TB) *Program {
	return &Program{t: t, b: cpg.NewBuilder(), functions: map[string]*Func{}}
}

// Func is a function under construction
type Func struct {
	p      *Program
	ID     int64
	Name   string
	body   int64
	params []int64
	// last is the end of the CFG chain: the Instructions node, then the last instruction
	last int64
	// pending are the argument instructions created since the last statement
	pending []int64
}

func (p *Program) node(n cpg.Node) int64 {
	p.t.Helper()
	id, err := p.b.AddNode(n)
	if err != nil {
		p.t.Fatalf("could not add node %v: %v", n, err)
	}
	return id
}

// Edge adds an edge to the program
func (p *Program) Edge(e cpg.Edge) {
	p.t.Helper()
	if _, err := p.b.AddEdge(e); err != nil {
		p.t.Fatalf("could not add edge %v: %v", e, err)
	}
}

func (p *Program) ast(src, dest int64, arg int) {
	p.t.Helper()
	p.Edge(cpg.Edge{Kind: cpg.AST, Src: src, Dest: dest, Arg: arg})
}

// CFG adds a control-flow edge from src to dest
func (p *Program) CFG(src, dest int64) {
	p.t.Helper()
	p.Edge(cpg.Edge{Kind: cpg.CFG, Src: src, Dest: dest})
}

// CG adds a call graph edge from the call to the function
func (p *Program) CG(call int64, fn *Func) {
	p.t.Helper()
	p.Edge(cpg.Edge{Kind: cpg.CG, Src: call, Dest: fn.ID})
}

// PDG adds a data dependence edge of type t with the given label
func (p *Program) PDG(src, dest int64, t cpg.PDGType, label string) {
	p.t.Helper()
	p.Edge(cpg.Edge{Kind: cpg.PDG, Src: src, Dest: dest, PDGType: t, Label: label})
}

// Const adds a PDG Const edge carrying the integer value of type valueType
func (p *Program) Const(src, dest int64, valueType string, value int64) {
	p.t.Helper()
	p.Edge(cpg.Edge{
		Kind:      cpg.PDG,
		Src:       src,
		Dest:      dest,
		PDGType:   cpg.Const,
		Label:     valueType,
		ValueI:    cpg.Int64(value),
		ValueType: valueType,
	})
}

// Function adds a function with the given parameter names
func (p *Program) Function(name string, params ...string) *Func {
	p.t.Helper()
	return p.function(cpg.Node{Name: name}, params)
}

// Import adds a function imported by the module. The frontend gives imports an empty body.
func (p *Program) Import(name string, params ...string) *Func {
	p.t.Helper()
	return p.function(cpg.Node{Name: name, IsImport: true}, params)
}

// Exported adds a function exported by the module
func (p *Program) Exported(name string, params ...string) *Func {
	p.t.Helper()
	return p.function(cpg.Node{Name: name, IsExport: true}, params)
}

func (p *Program) function(n cpg.Node, params []string) *Func {
	p.t.Helper()
	name := n.Name
	f := &Func{p: p, Name: name}
	n.Kind = cpg.Function
	n.NArgs = len(params)
	f.ID = p.node(n)
	group := p.node(cpg.Node{Kind: cpg.Parameters})
	p.ast(f.ID, group, cpg.NoArg)
	for i, param := range params {
		id := p.node(cpg.Node{Kind: cpg.Parameter, Name: param, Index: i})
		p.ast(group, id, cpg.NoArg)
		f.params = append(f.params, id)
	}
	f.body = p.node(cpg.Node{Kind: cpg.Instructions})
	p.ast(f.ID, f.body, cpg.NoArg)
	f.last = f.body
	p.functions[name] = f
	return f
}

// Lookup returns the function added with the given name
func (p *Program) Lookup(name string) *Func {
	return p.functions[name]
}

// Graph freezes the program and returns its graph. The program cannot be modified afterwards.
func (p *Program) Graph() *cpg.Graph {
	return p.b.Freeze()
}

// Param returns the ID of the i-th parameter of f
func (f *Func) Param(i int) int64 {
	return f.params[i]
}

// Expr adds an instruction that is not a statement: it is only linked to the CFG when the next statement is added.
// Its children are attached at their positions.
func (f *Func) Expr(n cpg.Node, children ...int64) int64 {
	f.p.t.Helper()
	n.Kind = cpg.Instruction
	id := f.p.node(n)
	for i, c := range children {
		f.p.ast(id, c, i)
	}
	f.pending = append(f.pending, id)
	return id
}

// LocalGet adds a local.get of the named variable
func (f *Func) LocalGet(name string) int64 {
	f.p.t.Helper()
	return f.Expr(cpg.Node{InstType: "LocalGet", Label: name})
}

// GlobalGet adds a global.get of the named global
func (f *Func) GlobalGet(name string) int64 {
	f.p.t.Helper()
	return f.Expr(cpg.Node{InstType: "GlobalGet", Label: name})
}

// ConstInst adds a constant instruction
func (f *Func) ConstInst() int64 {
	f.p.t.Helper()
	return f.Expr(cpg.Node{InstType: cpg.InstConst})
}

// Binary adds a binary instruction with the given opcode and operands
func (f *Func) Binary(opcode string, operands ...int64) int64 {
	f.p.t.Helper()
	return f.Expr(cpg.Node{InstType: cpg.InstBinary, Opcode: opcode}, operands...)
}

// Stmt adds n as the next statement of f, with its children at their positions
func (f *Func) Stmt(n cpg.Node, children ...int64) int64 {
	f.p.t.Helper()
	n.Kind = cpg.Instruction
	id := f.p.node(n)
	for i, c := range children {
		f.p.ast(id, c, i)
	}
	f.p.ast(f.body, id, cpg.NoArg)
	for _, x := range append(f.pending, id) {
		f.p.CFG(f.last, x)
		f.last = x
	}
	f.pending = nil
	return id
}

// Call adds a call to label as the next statement of f
func (f *Func) Call(label string, args ...int64) int64 {
	f.p.t.Helper()
	return f.Stmt(cpg.Node{InstType: cpg.InstCall, Label: label, NArgs: len(args)}, args...)
}

// CallExpr adds a call to label that is the argument of a later statement
func (f *Func) CallExpr(label string, args ...int64) int64 {
	f.p.t.Helper()
	return f.Expr(cpg.Node{InstType: cpg.InstCall, Label: label, NArgs: len(args)}, args...)
}

// CallIndirect adds an indirect call as the next statement of f. The last argument is the table index.
func (f *Func) CallIndirect(label string, args ...int64) int64 {
	f.p.t.Helper()
	return f.Stmt(cpg.Node{InstType: cpg.InstCallIndirect, Label: label, NArgs: len(args)}, args...)
}

// Return adds a return statement
func (f *Func) Return(args ...int64) int64 {
	f.p.t.Helper()
	return f.Stmt(cpg.Node{InstType: cpg.InstReturn}, args...)
}

// Detached adds an instruction to the body of f that has no edge in the control flow
func (f *Func) Detached(n cpg.Node) int64 {
	f.p.t.Helper()
	n.Kind = cpg.Instruction
	id := f.p.node(n)
	f.p.ast(f.body, id, cpg.NoArg)
	return id
}
