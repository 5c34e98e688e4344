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

package detectors_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/detectors"
	"github.com/darkmacheken/wasmati/internal/analysistest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func run(t *testing.T, d detectors.Detector, g *cpg.Graph, cfg *config.Config) []detectors.Row {
	t.Helper()
	s := detectors.NewState(g, cfg)
	s.Logger.SetAllOutput(io.Discard)
	rows, err := d.Run(context.Background(), s)
	if err != nil {
		t.Fatalf("%s failed: %v", d.Name(), err)
	}
	return rows
}

func checkRows(t *testing.T, d detectors.Detector, want, got []detectors.Row) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("%s rows (-want +got):\n%s", d.Name(), diff)
	}
}

func TestDangerousFunctions(t *testing.T) {
	p := analysistest.NewProgram(t)
	f := p.Function("$f")
	f.Call("$gets", f.LocalGet("$buf"))
	f.Call("$puts", f.LocalGet("$buf"))
	f.Call("$gets", f.LocalGet("$buf"))
	g := p.Function("$g")
	g.Call("$strcpy", g.LocalGet("$dst"), g.LocalGet("$src"))
	p.Function("$h").Call("$puts")

	d := detectors.DangerousFunctions{}
	want := []detectors.Row{
		detectors.CallRow{Caller: "$gets", Function: "$f"},
		detectors.CallRow{Caller: "$gets", Function: "$f"},
		detectors.CallRow{Caller: "$strcpy", Function: "$g"},
	}
	checkRows(t, d, want, run(t, d, p.Graph(), config.NewDefault()))
}

func TestDangerousFunctionsRemoved(t *testing.T) {
	p := analysistest.NewProgram(t)
	f := p.Function("$f")
	f.Call("$fgets", f.LocalGet("$buf"))
	d := detectors.DangerousFunctions{}
	checkRows(t, d, nil, run(t, d, p.Graph(), config.NewDefault()))
}

// doubleFree builds malloc -> free -> free in one function. When linked is false, the value of the malloc does not
// reach the second free.
func doubleFree(t *testing.T, linked bool) *cpg.Graph {
	p := analysistest.NewProgram(t)
	fn := p.Function("$f")
	m := fn.Call("$malloc", fn.ConstInst())
	free1 := fn.Call("$free", fn.LocalGet("$p"))
	free2 := fn.Call("$free", fn.LocalGet("$p"))
	p.PDG(m, free1, cpg.FunctionDep, "$malloc")
	if linked {
		p.PDG(free1, free2, cpg.FunctionDep, "$malloc")
	}
	return p.Graph()
}

func TestDoubleFree(t *testing.T) {
	d := detectors.DoubleFree{}
	want := []detectors.Row{detectors.CallRow{Caller: "$free", Function: "$f"}}
	checkRows(t, d, want, run(t, d, doubleFree(t, true), config.NewDefault()))
	checkRows(t, d, nil, run(t, d, doubleFree(t, false), config.NewDefault()))
}

func TestDoubleFreeOtherLabel(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$f")
	m := fn.Call("$malloc", fn.ConstInst())
	free1 := fn.Call("$free", fn.LocalGet("$p"))
	free2 := fn.Call("$free", fn.LocalGet("$p"))
	p.PDG(m, free1, cpg.FunctionDep, "$malloc")
	// the dependency of the second free is not on the value of the malloc
	p.PDG(free1, free2, cpg.FunctionDep, "$calloc")

	d := detectors.DoubleFree{}
	checkRows(t, d, nil, run(t, d, p.Graph(), config.NewDefault()))
}

func TestDoubleFreePairs(t *testing.T) {
	d := detectors.DoubleFree{}
	cfg := config.NewDefault()
	cfg.ControlFlow = []config.ControlFlowSpec{{Source: "$malloc", Dest: "$free"}, {Source: "$malloc", Dest: "$free"}}
	want := []detectors.Row{detectors.CallRow{Caller: "$free", Function: "$f"}}
	checkRows(t, d, want, run(t, d, doubleFree(t, true), cfg))

	// a value released once by each of two pairs is not released twice by the same pair
	p := analysistest.NewProgram(t)
	fn := p.Function("$f")
	m := fn.Call("$malloc", fn.ConstInst())
	free := fn.Call("$free", fn.LocalGet("$p"))
	release := fn.Call("$release", fn.LocalGet("$p"))
	p.PDG(m, free, cpg.FunctionDep, "$malloc")
	p.PDG(free, release, cpg.FunctionDep, "$malloc")
	cfg.ControlFlow = []config.ControlFlowSpec{{Source: "$malloc", Dest: "$free"}, {Source: "$malloc", Dest: "$release"}}
	checkRows(t, d, nil, run(t, d, p.Graph(), cfg))
}

func TestUseAfterFree(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$f")
	m := fn.Call("$malloc", fn.ConstInst())
	before := fn.Call("$puts", fn.LocalGet("$p"))
	arg := fn.LocalGet("$p")
	free := fn.Call("$free", arg)
	after := fn.Call("$puts", fn.LocalGet("$p"))
	again := fn.Call("$strlen", fn.LocalGet("$p"))
	for _, use := range []int64{before, arg, free, after, again} {
		p.PDG(m, use, cpg.FunctionDep, "$malloc")
	}

	d := detectors.UseAfterFree{}
	want := []detectors.Row{detectors.CallRow{Caller: "$puts", Function: "$f"}}
	checkRows(t, d, want, run(t, d, p.Graph(), config.NewDefault()))

	checkRows(t, detectors.DoubleFree{}, nil, run(t, detectors.DoubleFree{}, p.Graph(), config.NewDefault()))
}

func TestFormatStrings(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$f")
	lit := fn.ConstInst()
	constant := fn.Call("$printf", lit)
	p.Const(lit, constant, "i32", 1024)
	v := fn.LocalGet("$fmt")
	variable := fn.Call("$printf", v)
	p.PDG(v, variable, cpg.Local, "$fmt")
	fn.Call("$printf")
	// the format of fprintf is its second argument
	stream := fn.ConstInst()
	fprintf := fn.Call("$fprintf", stream, fn.LocalGet("$fmt"))
	p.Const(stream, fprintf, "i32", 2)

	d := detectors.FormatStrings{}
	want := []detectors.Row{
		detectors.CallRow{Caller: "$printf", Function: "$f"},
		detectors.CallRow{Caller: "$fprintf", Function: "$f"},
	}
	checkRows(t, d, want, run(t, d, p.Graph(), config.NewDefault()))
}

// mallocRead builds a function that allocates allocSize bytes and reads readSize bytes in the allocated buffer
func mallocRead(p *analysistest.Program, name string, allocSize, readSize int64) {
	fn := p.Function(name)
	size := fn.ConstInst()
	m := fn.Call("$malloc", size)
	p.Const(size, m, "i32", allocSize)
	buf := fn.LocalGet("$buf")
	readSizeArg := fn.ConstInst()
	r := fn.Call("$read", fn.ConstInst(), buf, readSizeArg)
	p.PDG(m, buf, cpg.FunctionDep, "$malloc")
	p.PDG(buf, r, cpg.FunctionDep, "$malloc")
	p.Const(readSizeArg, r, "i32", readSize)
}

func TestMallocBufferOverflow(t *testing.T) {
	p := analysistest.NewProgram(t)
	mallocRead(p, "$equal", 32, 32)
	mallocRead(p, "$smaller", 32, 31)
	mallocRead(p, "$larger", 32, 100)

	// the value of this malloc does not flow into the read
	fn := p.Function("$unrelated")
	size := fn.ConstInst()
	m := fn.Call("$malloc", size)
	p.Const(size, m, "i32", 8)
	readSizeArg := fn.ConstInst()
	r := fn.Call("$read", fn.ConstInst(), fn.LocalGet("$other"), readSizeArg)
	p.Const(readSizeArg, r, "i32", 64)

	d := detectors.MallocBufferOverflow{}
	want := []detectors.Row{
		detectors.MallocOverflowRow{Function: "$equal", ExpectedSize: 32, ReadSize: 32},
		detectors.MallocOverflowRow{Function: "$larger", ExpectedSize: 32, ReadSize: 100},
	}
	checkRows(t, d, want, run(t, d, p.Graph(), config.NewDefault()))
}

func TestMallocBufferOverflowNonIntegerConstant(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$f")
	size := fn.ConstInst()
	m := fn.Call("$malloc", size)
	// a constant whose value is not an integer
	p.Edge(cpg.Edge{Kind: cpg.PDG, Src: size, Dest: m, PDGType: cpg.Const, ValueType: "f64"})
	buf := fn.LocalGet("$buf")
	readSizeArg := fn.ConstInst()
	r := fn.Call("$read", fn.ConstInst(), buf, readSizeArg)
	p.PDG(m, r, cpg.FunctionDep, "$malloc")
	p.Const(readSizeArg, r, "i32", 64)

	d := detectors.MallocBufferOverflow{}
	checkRows(t, d, nil, run(t, d, p.Graph(), config.NewDefault()))
}

func TestFrameLayout(t *testing.T) {
	tests := []struct {
		size    int64
		offsets []int64
		want    string
	}{
		{160, []int64{16, 32, 96}, "@0:16 @16:16 @32:64 @96:64"},
		{160, []int64{32, 16, 32, 96}, "@0:16 @16:16 @32:64 @96:64"},
		{64, nil, "@0:64"},
		{16, []int64{16}, "@0:16"},
		{64, []int64{0, 8}, "@0:8 @8:56"},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d%v", test.size, test.offsets), func(t *testing.T) {
			layout := detectors.NewFrameLayout(test.size, test.offsets)
			if got := layout.String(); got != test.want {
				t.Errorf("NewFrameLayout(%d, %v) = %s, want %s", test.size, test.offsets, got, test.want)
			}
		})
	}
}

// stackFrame adds to fn the allocation of a frame of 160 bytes with buffers at 16, 32 and 96. It returns the
// instructions computing the address of each buffer, by offset.
func stackFrame(p *analysistest.Program, fn *analysistest.Func) map[int64]int64 {
	fp := fn.GlobalGet("$g0")
	size := fn.ConstInst()
	sub := fn.Binary("i32.sub", fp, size)
	p.PDG(fp, sub, cpg.Global, "$g0")
	p.Const(size, sub, "i32", 160)
	fn.Stmt(cpg.Node{InstType: "GlobalSet", Label: "$g0"}, sub)

	adds := map[int64]int64{}
	for _, off := range []int64{16, 32, 96} {
		base := fn.GlobalGet("$g0")
		c := fn.ConstInst()
		add := fn.Binary("i32.add", base, c)
		p.PDG(sub, add, cpg.Global, "$g0")
		p.Const(c, add, "i32", off)
		fn.Stmt(cpg.Node{InstType: "LocalSet", Label: fmt.Sprintf("$buf%d", off)}, add)
		adds[off] = add
	}
	return adds
}

// stackRead adds a call to read of size bytes. If address is not negative, the address computed by that
// instruction flows into the call.
func stackRead(p *analysistest.Program, fn *analysistest.Func, address int64, size int64) {
	fd := fn.ConstInst()
	buf := fn.LocalGet("$buf")
	sizeArg := fn.ConstInst()
	r := fn.Call("$read", fd, buf, sizeArg)
	p.Const(sizeArg, r, "i32", size)
	if address >= 0 {
		p.PDG(address, r, cpg.Global, "$g0")
	}
}

func TestStaticBufferOverflow(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$vuln")
	adds := stackFrame(p, fn)
	stackRead(p, fn, adds[32], 64)
	stackRead(p, fn, adds[96], 63)
	stackRead(p, fn, adds[16], 15)
	stackRead(p, fn, -1, 16)

	d := detectors.StaticBufferOverflow{}
	want := []detectors.Row{
		detectors.StaticOverflowRow{Function: "$vuln", BufferLocation: 32, ExpectedSize: 64, ReadSize: 64},
		detectors.StaticOverflowRow{Function: "$vuln", BufferLocation: 0, ExpectedSize: 16, ReadSize: 16},
	}
	checkRows(t, d, want, run(t, d, p.Graph(), config.NewDefault()))
}

func TestStaticBufferOverflowFramePointer(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$vuln")
	adds := stackFrame(p, fn)
	stackRead(p, fn, adds[32], 64)

	// the frame is computed from another register
	cfg := config.NewDefault()
	cfg.FramePointer = "$sp"
	d := detectors.StaticBufferOverflow{}
	checkRows(t, d, nil, run(t, d, p.Graph(), cfg))
}

func TestStaticOverflowRecord(t *testing.T) {
	row := detectors.StaticOverflowRow{Function: "$f", BufferLocation: 96, ExpectedSize: 64, ReadSize: 100}
	if diff := cmp.Diff([]string{"$f", "@96", "64", "100"}, row.Record()); diff != "" {
		t.Errorf("record (-want +got):\n%s", diff)
	}
}

func TestTaintedDirect(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$f")
	src := fn.Call("$getenv", fn.ConstInst())
	tainted := fn.Call("$strcpy", fn.LocalGet("$dst"), fn.LocalGet("$env"))
	fn.Call("$memcpy", fn.LocalGet("$dst"), fn.LocalGet("$other"))
	p.PDG(src, tainted, cpg.FunctionDep, "$getenv")

	cfg := config.NewDefault()
	cfg.Sources = []string{"$getenv"}
	d := detectors.TaintedDirect{}
	want := []detectors.Row{detectors.TaintRow{Source: "$getenv", Sink: "$strcpy", Function: "$f"}}
	checkRows(t, d, want, run(t, d, p.Graph(), cfg))

	// no sources, no rows
	checkRows(t, d, nil, run(t, d, p.Graph(), config.NewDefault()))
}

func TestTaintedIndirect(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$f")
	target := fn.CallExpr("$getenv", fn.ConstInst())
	ci := fn.CallIndirect("$type0", fn.LocalGet("$x"), target)
	p.PDG(target, ci, cpg.FunctionDep, "$getenv")

	arg := fn.CallExpr("$getenv", fn.ConstInst())
	ci2 := fn.CallIndirect("$type1", arg, fn.LocalGet("$fp"))
	p.PDG(arg, ci2, cpg.FunctionDep, "$getenv")

	cfg := config.NewDefault()
	cfg.Sources = []string{"$getenv"}
	d := detectors.TaintedIndirect{}
	want := []detectors.Row{detectors.TaintRow{Source: "$getenv", Sink: "$type0", Function: "$f"}}
	checkRows(t, d, want, run(t, d, p.Graph(), cfg))
}

func TestTaintedCalls(t *testing.T) {
	p := analysistest.NewProgram(t)
	main := p.Function("$main", "argc", "argv")
	main.Call("$a", main.LocalGet("argv"))
	a := p.Function("$a", "x")
	a.Call("$b", a.LocalGet("x"))
	b := p.Function("$b", "y")
	b.Call("$strcpy", b.LocalGet("dst"), b.LocalGet("y"))

	cfg := config.NewDefault()
	cfg.Tainted = map[string]config.TaintedSpec{"$main": {Params: []int{0, 1}}}
	cfg.Sinks = []string{"$strcpy"}
	d := detectors.TaintedCalls{}
	want := []detectors.Row{
		detectors.TaintedCallRow{TaintedFunction: "$b", TaintedParam: 0, Sink: "$strcpy", Positions: []int{1}},
	}
	checkRows(t, d, want, run(t, d, p.Graph(), cfg))
}

func TestTaintedCallsCycle(t *testing.T) {
	p := analysistest.NewProgram(t)
	main := p.Function("$main", "argc", "argv")
	main.Call("$a", main.LocalGet("argv"))
	a := p.Function("$a", "x")
	a.Call("$b", a.LocalGet("x"))
	b := p.Function("$b", "y")
	b.Call("$a", b.LocalGet("y"))

	cfg := config.NewDefault()
	cfg.Tainted = map[string]config.TaintedSpec{"$main": {Params: []int{0, 1}}}
	d := detectors.TaintedCalls{}
	checkRows(t, d, nil, run(t, d, p.Graph(), cfg))
}

func TestUnreachableCode(t *testing.T) {
	p := analysistest.NewProgram(t)
	dead := p.Function("$dead")
	dead.Return()
	dead.Detached(cpg.Node{InstType: cpg.InstCall, Label: "$puts"})

	live := p.Function("$live")
	live.Call("$puts")
	live.Detached(cpg.Node{InstType: cpg.InstUnreachable})
	live.Detached(cpg.Node{InstType: cpg.InstBlock})

	// no control flow at all
	imported := p.Function("$imported")
	imported.Detached(cpg.Node{InstType: cpg.InstCall, Label: "$puts"})

	d := detectors.UnreachableCode{}
	want := []detectors.Row{detectors.FunctionRow{Function: "$dead"}}
	checkRows(t, d, want, run(t, d, p.Graph(), config.NewDefault()))
}

func TestSelect(t *testing.T) {
	all, err := detectors.Select(nil)
	if err != nil || len(all) != len(detectors.All()) {
		t.Fatalf("Select(nil) should return all the detectors, got %d, %v", len(all), err)
	}
	some, err := detectors.Select([]string{"unreachable-code", "double-free"})
	if err != nil {
		t.Fatal(err)
	}
	names := []string{some[0].Name(), some[1].Name()}
	if diff := cmp.Diff([]string{"double-free", "unreachable-code"}, names); diff != "" {
		t.Errorf("selected detectors (-want +got):\n%s", diff)
	}
	if _, err := detectors.Select([]string{"double-free", "triple-free"}); err == nil {
		t.Errorf("expected an error for an unknown detector")
	}
}

func TestHeadersMatchRecords(t *testing.T) {
	p := analysistest.NewProgram(t)
	mallocRead(p, "$equal", 32, 32)
	fn := p.Function("$vuln")
	stackRead(p, fn, stackFrame(p, fn)[32], 64)
	fn.Call("$gets", fn.LocalGet("$buf"))
	g := p.Graph()
	for _, d := range detectors.All() {
		for _, row := range run(t, d, g, config.NewDefault()) {
			if len(row.Record()) != len(d.Header()) {
				t.Errorf("%s: record %v does not match header %v", d.Name(), row.Record(), d.Header())
			}
		}
	}
}

func TestIdempotent(t *testing.T) {
	p := analysistest.NewProgram(t)
	mallocRead(p, "$equal", 32, 32)
	fn := p.Function("$vuln")
	stackRead(p, fn, stackFrame(p, fn)[32], 64)
	g := p.Graph()
	cfg := config.NewDefault()
	for _, d := range detectors.All() {
		first := run(t, d, g, cfg)
		second := run(t, d, g, cfg)
		if diff := cmp.Diff(first, second, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("%s is not idempotent (-first +second):\n%s", d.Name(), diff)
		}
	}
}

func TestIgnoredFunctionsAreSkipped(t *testing.T) {
	p := analysistest.NewProgram(t)
	fn := p.Function("$dlfree")
	m := fn.Call("$malloc", fn.ConstInst())
	free1 := fn.Call("$free", fn.LocalGet("$p"))
	free2 := fn.Call("$free", fn.LocalGet("$p"))
	p.PDG(m, free1, cpg.FunctionDep, "$malloc")
	p.PDG(free1, free2, cpg.FunctionDep, "$malloc")
	g := p.Graph()

	d := detectors.DoubleFree{}
	checkRows(t, d, nil, run(t, d, g, config.NewDefault()))

	cfg := config.NewDefault()
	cfg.Ignore = nil
	want := []detectors.Row{detectors.CallRow{Caller: "$free", Function: "$dlfree"}}
	checkRows(t, d, want, run(t, d, g, cfg))
}

// fillLoop builds a loop storing at $buf + i and incrementing i by a constant. When bounded, the branch back to the
// loop compares i with n.
func fillLoop(t *testing.T, bounded bool) *cpg.Graph {
	p := analysistest.NewProgram(t)
	fn := p.Function("$fill", "n")
	addr := fn.Binary("i32.add", fn.GlobalGet("$buf"), fn.LocalGet("i"))
	store := fn.Expr(cpg.Node{InstType: cpg.InstStore}, addr, fn.ConstInst())
	inc := fn.Expr(cpg.Node{InstType: "LocalSet", Label: "i"}, fn.Binary("i32.add", fn.LocalGet("i"), fn.ConstInst()))
	var cond int64
	if bounded {
		cond = fn.Expr(cpg.Node{InstType: cpg.InstCompare, Opcode: "i32.lt_s"}, fn.LocalGet("i"), fn.LocalGet("n"))
	} else {
		cond = fn.LocalGet("c")
	}
	br := fn.Expr(cpg.Node{InstType: cpg.InstBrIf, Label: "$L0"}, cond)
	fn.Stmt(cpg.Node{InstType: cpg.InstLoop, Label: "$L0"}, store, inc, br)
	return p.Graph()
}

func TestBufferLoops(t *testing.T) {
	d := detectors.BufferLoops{}
	want := []detectors.Row{detectors.LoopRow{Function: "$fill", Loop: "$L0", Index: "i"}}
	checkRows(t, d, want, run(t, d, fillLoop(t, false), config.NewDefault()))
	checkRows(t, d, nil, run(t, d, fillLoop(t, true), config.NewDefault()))
}

// scanfLoop builds a loop reading into the buffer p with $scanf until *p compares to 10 with the given opcode
func scanfLoop(t *testing.T, opcode string) *cpg.Graph {
	p := analysistest.NewProgram(t)
	fn := p.Function("$readall")
	buf := fn.LocalGet("p")
	call := fn.CallExpr("$scanf", fn.ConstInst(), buf)
	p.PDG(buf, call, cpg.Local, "p")
	ptr := fn.LocalGet("p")
	load := fn.Expr(cpg.Node{InstType: cpg.InstLoad, Label: "p"}, ptr)
	p.PDG(ptr, load, cpg.Local, "p")
	ten := fn.ConstInst()
	cond := fn.Expr(cpg.Node{InstType: cpg.InstCompare, Opcode: opcode}, load, ten)
	p.Const(ten, cond, "i32", 10)
	br := fn.Expr(cpg.Node{InstType: cpg.InstBrIf, Label: "$L1"}, cond)
	fn.Stmt(cpg.Node{InstType: cpg.InstLoop, Label: "$L1"}, call, br)
	return p.Graph()
}

func TestScanfLoops(t *testing.T) {
	d := detectors.ScanfLoops{}
	want := []detectors.Row{detectors.ScanfLoopRow{Function: "$readall", Loop: "$L1", Buffer: "p", Sentinel: 10}}
	checkRows(t, d, want, run(t, d, scanfLoop(t, "i32.ne"), config.NewDefault()))
	// an equality does not keep the loop running on arbitrary input
	checkRows(t, d, nil, run(t, d, scanfLoop(t, "i32.eq"), config.NewDefault()))

	cfg := config.NewDefault()
	cfg.Scanf = []string{"$__isoc99_scanf"}
	checkRows(t, d, nil, run(t, d, scanfLoop(t, "i32.ne"), cfg))
}

// copyProgram builds $main(argc, argv) calling $copy(argv), which copies its parameter with $memcpy. When static,
// the destination of the copy is an address in the stack frame.
func copyProgram(t *testing.T, static, exported bool) *cpg.Graph {
	p := analysistest.NewProgram(t)
	main := p.Function("$main", "argc", "argv")
	arg := main.LocalGet("argv")
	call := main.Call("$copy", arg)
	p.PDG(arg, call, cpg.Local, "argv")

	var cp *analysistest.Func
	if exported {
		cp = p.Exported("$copy", "src")
	} else {
		cp = p.Function("$copy", "src")
	}
	var dest int64
	if static {
		fp := cp.GlobalGet("$g0")
		dest = cp.Binary("i32.add", fp, cp.ConstInst())
		p.PDG(fp, dest, cpg.Global, "$g0")
	} else {
		dest = cp.LocalGet("dst")
	}
	src := cp.LocalGet("src")
	p.PDG(cp.Param(0), src, cpg.Local, "src")
	cp.Call("$memcpy", dest, src, cp.ConstInst())
	p.CG(call, cp)
	return p.Graph()
}

func TestTaintedCopy(t *testing.T) {
	d := detectors.TaintedCopy{}
	want := []detectors.Row{detectors.TaintedCopyRow{
		Function:       "$copy",
		Call:           "$memcpy",
		Variable:       "src",
		Origin:         "argv",
		OriginFunction: "$main",
	}}
	checkRows(t, d, want, run(t, d, copyProgram(t, true, false), config.NewDefault()))
	checkRows(t, d, nil, run(t, d, copyProgram(t, false, false), config.NewDefault()))

	cfg := config.NewDefault()
	cfg.Tainted = map[string]config.TaintedSpec{}
	checkRows(t, d, nil, run(t, d, copyProgram(t, true, false), cfg))
}

func TestTaintedCopyExported(t *testing.T) {
	d := detectors.TaintedCopy{}
	cfg := config.NewDefault()
	cfg.Tainted = map[string]config.TaintedSpec{}
	g := copyProgram(t, true, true)
	checkRows(t, d, nil, run(t, d, g, cfg))

	cfg.ExportedAsSinks = true
	want := []detectors.Row{detectors.TaintedCopyRow{
		Function:       "$copy",
		Call:           "$memcpy",
		Variable:       "src",
		Origin:         "src",
		OriginFunction: "$copy",
	}}
	checkRows(t, d, want, run(t, d, g, cfg))
}

func TestTaintedDirectImports(t *testing.T) {
	p := analysistest.NewProgram(t)
	p.Import("$recv", "fd")
	p.Import("$send", "fd", "data")
	fn := p.Function("$f")
	src := fn.Call("$recv", fn.ConstInst())
	sink := fn.Call("$send", fn.ConstInst(), fn.LocalGet("$data"))
	p.PDG(src, sink, cpg.FunctionDep, "$recv")
	g := p.Graph()

	d := detectors.TaintedDirect{}
	cfg := config.NewDefault()
	checkRows(t, d, nil, run(t, d, g, cfg))

	cfg.ImportAsSources = true
	cfg.ImportAsSinks = true
	want := []detectors.Row{detectors.TaintRow{Source: "$recv", Sink: "$send", Function: "$f"}}
	checkRows(t, d, want, run(t, d, g, cfg))

	cfg.WhiteList = []string{"$send"}
	checkRows(t, d, nil, run(t, d, g, cfg))
}

func TestTaintedIndirectImports(t *testing.T) {
	p := analysistest.NewProgram(t)
	p.Import("$getenv", "name")
	fn := p.Function("$f")
	target := fn.CallExpr("$getenv", fn.ConstInst())
	ci := fn.CallIndirect("$type0", fn.LocalGet("$x"), target)
	p.PDG(target, ci, cpg.FunctionDep, "$getenv")
	g := p.Graph()

	d := detectors.TaintedIndirect{}
	cfg := config.NewDefault()
	checkRows(t, d, nil, run(t, d, g, cfg))
	cfg.ImportAsSources = true
	want := []detectors.Row{detectors.TaintRow{Source: "$getenv", Sink: "$type0", Function: "$f"}}
	checkRows(t, d, want, run(t, d, g, cfg))
}
