package compiler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/paiml/ruchy-wasm/ast"
)

// --- AST construction helpers ---

var (
	i32T  = ast.I32T()
	pairT = ast.TupleOf(ast.I32T(), ast.I32T())
)

func num(v int32) *ast.IntLit                 { return &ast.IntLit{Value: v} }
func id(name string, t ast.Type) *ast.Ident   { return &ast.Ident{Name: name, Typ: t} }
func binop(op ast.BinOp, x, y ast.Expr) ast.Expr { return &ast.Binary{Op: op, X: x, Y: y} }
func block(list ...ast.Expr) *ast.Block       { return &ast.Block{List: list} }
func let(name string, v ast.Expr) ast.Expr    { return &ast.Let{Name: name, Value: v} }
func assign(target, v ast.Expr) ast.Expr      { return &ast.Assign{Target: target, Value: v} }
func tup(elems ...ast.Expr) *ast.Tuple        { return &ast.Tuple{Elems: elems} }

func letPat(pat ast.Pattern, v ast.Expr) ast.Expr {
	return &ast.LetPattern{Pat: pat, Value: v}
}

func arrLit(vals ...int32) *ast.Array {
	elems := make([]ast.Expr, len(vals))
	for i, v := range vals {
		elems[i] = num(v)
	}
	return &ast.Array{Elems: elems}
}

func fieldGet(x ast.Expr, f string) *ast.FieldAccess {
	return &ast.FieldAccess{X: x, Field: f, Typ: i32T}
}

func idxGet(x, i ast.Expr) *ast.IndexAccess {
	return &ast.IndexAccess{X: x, Index: i, Typ: i32T}
}

func callExpr(name string, typ ast.Type, args ...ast.Expr) *ast.Call {
	return &ast.Call{Name: name, Args: args, Typ: typ}
}

func pvar(name string) ast.Pattern          { return ast.Pattern{Kind: ast.PatIdent, Name: name} }
func pwild() ast.Pattern                    { return ast.Pattern{Kind: ast.PatWildcard} }
func plit(v int32) ast.Pattern              { return ast.Pattern{Kind: ast.PatLit, Value: v} }
func ptup(elems ...ast.Pattern) ast.Pattern { return ast.Pattern{Kind: ast.PatTuple, Elems: elems} }

func params(names ...string) []ast.Param {
	ps := make([]ast.Param, len(names))
	for i, n := range names {
		ps[i] = ast.Param{Name: n, Typ: ast.I32T()}
	}
	return ps
}

func fn(name string, ps []ast.Param, result ast.Type, body ast.Expr) ast.FuncDef {
	return ast.FuncDef{Name: name, Params: ps, Result: result, Body: body}
}

func mainProg(body ast.Expr, result ast.Type) *ast.Program {
	return &ast.Program{Funcs: []ast.FuncDef{fn("main", nil, result, body)}}
}

var pointDef = ast.StructDef{Name: "Point", Fields: []string{"x", "y"}}

// --- execution harness (wazero is the host of the emitted modules) ---

func instantiate(t *testing.T, prog *ast.Program) api.Module {
	t.Helper()
	bin, err := New().Compile(prog)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx := context.Background()
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	t.Cleanup(func() { r.Close(ctx) })
	mod, err := r.Instantiate(ctx, bin)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return mod
}

func callFn(t *testing.T, mod api.Module, name string, args ...int32) int32 {
	t.Helper()
	raw := make([]uint64, len(args))
	for i, a := range args {
		raw[i] = api.EncodeI32(a)
	}
	res, err := mod.ExportedFunction(name).Call(context.Background(), raw...)
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if len(res) == 0 {
		t.Fatalf("call %s: no result", name)
	}
	return api.DecodeI32(res[0])
}

func readWord(t *testing.T, mod api.Module, addr uint32) uint32 {
	t.Helper()
	v, ok := mod.Memory().ReadUint32Le(addr)
	if !ok {
		t.Fatalf("memory read at %d out of range", addr)
	}
	return v
}

// --- tests ---

func TestModuleHeader(t *testing.T) {
	bin, err := New().Compile(mainProg(num(0), i32T))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	if !bytes.HasPrefix(bin, want) {
		t.Errorf("header: got % x, want % x", bin[:8], want)
	}
}

func TestScalarArithmetic(t *testing.T) {
	prog := &ast.Program{Funcs: []ast.FuncDef{
		fn("add", params("a", "b"), i32T, binop(ast.Add, id("a", i32T), id("b", i32T))),
		fn("sub", params("a", "b"), i32T, binop(ast.Sub, id("a", i32T), id("b", i32T))),
		fn("mul", params("a", "b"), i32T, binop(ast.Mul, id("a", i32T), id("b", i32T))),
		fn("div", params("a", "b"), i32T, binop(ast.Div, id("a", i32T), id("b", i32T))),
		fn("rem", params("a", "b"), i32T, binop(ast.Rem, id("a", i32T), id("b", i32T))),
		fn("neg", params("a"), i32T, &ast.Unary{Op: ast.Neg, X: id("a", i32T)}),
	}}
	mod := instantiate(t, prog)

	tests := []struct {
		fn   string
		a, b int32
		want int32
	}{
		{"add", 2, 3, 5},
		{"add", -7, 3, -4},
		{"sub", 10, 4, 6},
		{"mul", 6, 7, 42},
		{"div", 17, 5, 3},
		{"div", -17, 5, -3},
		{"rem", 17, 5, 2},
	}
	for _, tt := range tests {
		if got := callFn(t, mod, tt.fn, tt.a, tt.b); got != tt.want {
			t.Errorf("%s(%d, %d): got %d, want %d", tt.fn, tt.a, tt.b, got, tt.want)
		}
	}
	if got := callFn(t, mod, "neg", 5); got != -5 {
		t.Errorf("neg(5): got %d, want -5", got)
	}
}

func TestComparisonsAndLogic(t *testing.T) {
	boolT := ast.BoolT()
	prog := &ast.Program{Funcs: []ast.FuncDef{
		fn("lt", params("a", "b"), boolT, binop(ast.Lt, id("a", i32T), id("b", i32T))),
		fn("ge", params("a", "b"), boolT, binop(ast.Ge, id("a", i32T), id("b", i32T))),
		fn("eq", params("a", "b"), boolT, binop(ast.Eq, id("a", i32T), id("b", i32T))),
		fn("nonzero", params("a"), boolT,
			&ast.Unary{Op: ast.Not, X: binop(ast.Eq, id("a", i32T), num(0))}),
		fn("yes", nil, boolT, &ast.BoolLit{Value: true}),
	}}
	mod := instantiate(t, prog)

	tests := []struct {
		fn   string
		a, b int32
		want int32
	}{
		{"lt", 1, 2, 1},
		{"lt", 2, 1, 0},
		{"lt", -3, 0, 1},
		{"ge", 2, 2, 1},
		{"ge", 1, 2, 0},
		{"eq", 4, 4, 1},
		{"eq", 4, 5, 0},
	}
	for _, tt := range tests {
		if got := callFn(t, mod, tt.fn, tt.a, tt.b); got != tt.want {
			t.Errorf("%s(%d, %d): got %d, want %d", tt.fn, tt.a, tt.b, got, tt.want)
		}
	}
	if got := callFn(t, mod, "nonzero", 0); got != 0 {
		t.Errorf("nonzero(0): got %d, want 0", got)
	}
	if got := callFn(t, mod, "nonzero", 9); got != 1 {
		t.Errorf("nonzero(9): got %d, want 1", got)
	}
	if got := callFn(t, mod, "yes"); got != 1 {
		t.Errorf("yes(): got %d, want 1", got)
	}
}

func TestIfElse(t *testing.T) {
	prog := &ast.Program{Funcs: []ast.FuncDef{
		fn("max", params("a", "b"), i32T, &ast.If{
			Cond: binop(ast.Gt, id("a", i32T), id("b", i32T)),
			Then: id("a", i32T),
			Else: id("b", i32T),
			Typ:  i32T,
		}),
	}}
	mod := instantiate(t, prog)

	if got := callFn(t, mod, "max", 3, 7); got != 7 {
		t.Errorf("max(3, 7): got %d, want 7", got)
	}
	if got := callFn(t, mod, "max", 7, 3); got != 7 {
		t.Errorf("max(7, 3): got %d, want 7", got)
	}
	if got := callFn(t, mod, "max", -1, -9); got != -1 {
		t.Errorf("max(-1, -9): got %d, want -1", got)
	}
}

func TestWhileLoop(t *testing.T) {
	// sum(n) = 1 + 2 + ... + n
	body := block(
		let("s", num(0)),
		let("i", num(1)),
		&ast.While{
			Cond: binop(ast.Le, id("i", i32T), id("n", i32T)),
			Body: block(
				assign(id("s", i32T), binop(ast.Add, id("s", i32T), id("i", i32T))),
				assign(id("i", i32T), binop(ast.Add, id("i", i32T), num(1))),
			),
		},
		id("s", i32T),
	)
	mod := instantiate(t, &ast.Program{Funcs: []ast.FuncDef{fn("sum", params("n"), i32T, body)}})

	tests := []struct{ n, want int32 }{{0, 0}, {1, 1}, {5, 15}, {10, 55}}
	for _, tt := range tests {
		if got := callFn(t, mod, "sum", tt.n); got != tt.want {
			t.Errorf("sum(%d): got %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestEarlyReturn(t *testing.T) {
	body := block(
		&ast.If{
			Cond: binop(ast.Gt, id("a", i32T), num(0)),
			Then: block(&ast.Return{Value: num(1)}),
			Typ:  ast.UnitT(),
		},
		num(0),
	)
	mod := instantiate(t, &ast.Program{Funcs: []ast.FuncDef{fn("pos", params("a"), i32T, body)}})

	if got := callFn(t, mod, "pos", 5); got != 1 {
		t.Errorf("pos(5): got %d, want 1", got)
	}
	if got := callFn(t, mod, "pos", -5); got != 0 {
		t.Errorf("pos(-5): got %d, want 0", got)
	}
}

func TestFunctionCalls(t *testing.T) {
	prog := &ast.Program{Funcs: []ast.FuncDef{
		fn("add", params("a", "b"), i32T, binop(ast.Add, id("a", i32T), id("b", i32T))),
		fn("main", nil, i32T, binop(ast.Mul,
			callExpr("add", i32T, num(2), num(3)),
			callExpr("add", i32T, num(1), num(1)),
		)),
	}}
	mod := instantiate(t, prog)
	if got := callFn(t, mod, "main"); got != 10 {
		t.Errorf("main(): got %d, want 10", got)
	}
}

func TestTupleRoundTrip(t *testing.T) {
	// first(a, b) = (a, b).0 ; second(a, b) = (a, b).1
	pair := tup(id("a", i32T), id("b", i32T))
	prog := &ast.Program{Funcs: []ast.FuncDef{
		fn("first", params("a", "b"), i32T, block(
			let("p", pair),
			fieldGet(id("p", pairT), "0"),
		)),
		fn("second", params("a", "b"), i32T, block(
			let("p", tup(id("a", i32T), id("b", i32T))),
			fieldGet(id("p", pairT), "1"),
		)),
	}}
	mod := instantiate(t, prog)

	pairs := [][2]int32{{3, 4}, {0, 0}, {-1, 7}, {100, -100}}
	for _, p := range pairs {
		if got := callFn(t, mod, "first", p[0], p[1]); got != p[0] {
			t.Errorf("first(%d, %d): got %d, want %d", p[0], p[1], got, p[0])
		}
		if got := callFn(t, mod, "second", p[0], p[1]); got != p[1] {
			t.Errorf("second(%d, %d): got %d, want %d", p[0], p[1], got, p[1])
		}
	}
}

func TestTupleMemoryLayout(t *testing.T) {
	mod := instantiate(t, mainProg(block(
		let("p", tup(num(7), num(9))),
		fieldGet(id("p", pairT), "0"),
	), i32T))

	if got := callFn(t, mod, "main"); got != 7 {
		t.Errorf("main(): got %d, want 7", got)
	}
	// The first allocation starts at address 0: element i at i*4.
	if got := readWord(t, mod, 0); got != 7 {
		t.Errorf("mem[0]: got %d, want 7", got)
	}
	if got := readWord(t, mod, 4); got != 9 {
		t.Errorf("mem[4]: got %d, want 9", got)
	}
}

func TestDestructuringLet(t *testing.T) {
	// both(a, b): let (x, y) = (a, b); x*10 + y
	body := block(
		letPat(ptup(pvar("x"), pvar("y")), tup(id("a", i32T), id("b", i32T))),
		binop(ast.Add, binop(ast.Mul, id("x", i32T), num(10)), id("y", i32T)),
	)
	mod := instantiate(t, &ast.Program{Funcs: []ast.FuncDef{fn("both", params("a", "b"), i32T, body)}})

	pairs := [][2]int32{{3, 4}, {0, 1}, {9, 9}}
	for _, p := range pairs {
		want := p[0]*10 + p[1]
		if got := callFn(t, mod, "both", p[0], p[1]); got != want {
			t.Errorf("both(%d, %d): got %d, want %d", p[0], p[1], got, want)
		}
	}
}

func TestNestedDestructuring(t *testing.T) {
	// let ((x, y), z) = ((a, b), c); x*100 + y*10 + z
	value := tup(tup(id("a", i32T), id("b", i32T)), id("c", i32T))
	body := block(
		letPat(ptup(ptup(pvar("x"), pvar("y")), pvar("z")), value),
		binop(ast.Add,
			binop(ast.Add,
				binop(ast.Mul, id("x", i32T), num(100)),
				binop(ast.Mul, id("y", i32T), num(10))),
			id("z", i32T)),
	)
	mod := instantiate(t, &ast.Program{Funcs: []ast.FuncDef{fn("f", params("a", "b", "c"), i32T, body)}})

	if got := callFn(t, mod, "f", 1, 2, 3); got != 123 {
		t.Errorf("f(1, 2, 3): got %d, want 123", got)
	}
	if got := callFn(t, mod, "f", 9, 0, 5); got != 905 {
		t.Errorf("f(9, 0, 5): got %d, want 905", got)
	}
}

func TestWildcardPattern(t *testing.T) {
	body := block(
		letPat(ptup(pwild(), pvar("y")), tup(num(3), num(4))),
		id("y", i32T),
	)
	mod := instantiate(t, mainProg(body, i32T))
	if got := callFn(t, mod, "main"); got != 4 {
		t.Errorf("main(): got %d, want 4", got)
	}
}

func TestDestructureCallResult(t *testing.T) {
	prog := &ast.Program{Funcs: []ast.FuncDef{
		fn("mk", nil, pairT, tup(num(3), num(4))),
		fn("main", nil, i32T, block(
			letPat(ptup(pvar("x"), pvar("y")), callExpr("mk", pairT)),
			binop(ast.Add, binop(ast.Mul, id("x", i32T), num(10)), id("y", i32T)),
		)),
	}}
	mod := instantiate(t, prog)
	if got := callFn(t, mod, "main"); got != 34 {
		t.Errorf("main(): got %d, want 34", got)
	}
}

func TestDestructureStruct(t *testing.T) {
	prog := &ast.Program{
		Structs: []ast.StructDef{pointDef},
		Funcs: []ast.FuncDef{fn("main", nil, i32T, block(
			let("p", &ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
				{Name: "x", Value: num(7)},
				{Name: "y", Value: num(8)},
			}}),
			letPat(ptup(pvar("a"), pvar("b")), id("p", ast.StructOf("Point"))),
			binop(ast.Add, binop(ast.Mul, id("a", i32T), num(10)), id("b", i32T)),
		))},
	}
	mod := instantiate(t, prog)
	if got := callFn(t, mod, "main"); got != 78 {
		t.Errorf("main(): got %d, want 78", got)
	}
}

func TestMutationIsolation(t *testing.T) {
	pointT := ast.StructOf("Point")
	// m(a, b, v): p = Point{x: a, y: b}; p.x = v; p.x*1000 + p.y
	body := block(
		let("p", &ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
			{Name: "x", Value: id("a", i32T)},
			{Name: "y", Value: id("b", i32T)},
		}}),
		assign(fieldGet(id("p", pointT), "x"), id("v", i32T)),
		binop(ast.Add,
			binop(ast.Mul, fieldGet(id("p", pointT), "x"), num(1000)),
			fieldGet(id("p", pointT), "y")),
	)
	prog := &ast.Program{
		Structs: []ast.StructDef{pointDef},
		Funcs:   []ast.FuncDef{fn("m", params("a", "b", "v"), i32T, body)},
	}
	mod := instantiate(t, prog)

	if got := callFn(t, mod, "m", 3, 4, 10); got != 10004 {
		t.Errorf("m(3, 4, 10): got %d, want 10004", got)
	}
	// Same instance: a later allocation must not disturb the semantics.
	if got := callFn(t, mod, "m", 1, 2, 9); got != 9002 {
		t.Errorf("m(1, 2, 9): got %d, want 9002", got)
	}
}

func TestDynamicIndexing(t *testing.T) {
	arrT := ast.ArrayOf(ast.I32T(), 3)
	// rw(i, j): arr = [10, 20, 30]; arr[i] = 100; arr[j]
	body := block(
		let("arr", arrLit(10, 20, 30)),
		assign(idxGet(id("arr", arrT), id("i", i32T)), num(100)),
		idxGet(id("arr", arrT), id("j", i32T)),
	)
	mod := instantiate(t, &ast.Program{Funcs: []ast.FuncDef{fn("rw", params("i", "j"), i32T, body)}})

	initial := []int32{10, 20, 30}
	for i := int32(0); i < 3; i++ {
		if got := callFn(t, mod, "rw", i, i); got != 100 {
			t.Errorf("rw(%d, %d): got %d, want 100", i, i, got)
		}
		for j := int32(0); j < 3; j++ {
			if j == i {
				continue
			}
			if got := callFn(t, mod, "rw", i, j); got != initial[j] {
				t.Errorf("rw(%d, %d): got %d, want %d", i, j, got, initial[j])
			}
		}
	}
}

func TestAllocationNonOverlap(t *testing.T) {
	prog := &ast.Program{Funcs: []ast.FuncDef{
		fn("mkpair", nil, pairT, tup(num(1), num(2))),
		fn("mktriple", nil, ast.TupleOf(ast.I32T(), ast.I32T(), ast.I32T()), tup(num(1), num(2), num(3))),
	}}
	mod := instantiate(t, prog)

	// Base addresses are exactly 0, S1, S1+S2, ... across the instance.
	steps := []struct {
		fn   string
		want int32
	}{
		{"mkpair", 0},
		{"mkpair", 8},
		{"mktriple", 16},
		{"mkpair", 28},
		{"mktriple", 36},
	}
	for i, s := range steps {
		if got := callFn(t, mod, s.fn); got != s.want {
			t.Errorf("allocation %d (%s): base %d, want %d", i, s.fn, got, s.want)
		}
	}
}

func TestNestedConstructorAllocationOrder(t *testing.T) {
	nestedT := ast.TupleOf(pairT, ast.I32T())
	mod := instantiate(t, mainProg(block(
		let("t", tup(tup(num(1), num(2)), num(3))),
		id("t", nestedT),
	), nestedT))

	// Inner (1, 2) evaluates first, so it allocates first: inner at 0,
	// outer at 8 holding [addr(inner), 3].
	if got := callFn(t, mod, "main"); got != 8 {
		t.Errorf("outer base: got %d, want 8", got)
	}
	want := []uint32{1, 2, 0, 3}
	for i, w := range want {
		if got := readWord(t, mod, uint32(i*4)); got != w {
			t.Errorf("mem[%d]: got %d, want %d", i*4, got, w)
		}
	}
}

func TestOffsetDeterminism(t *testing.T) {
	pointT := ast.StructOf("Point")
	// Two literals of the same type with fields written in opposite
	// order must lay out identically: x always at +0, y at +4.
	body := block(
		let("p1", &ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
			{Name: "x", Value: num(3)},
			{Name: "y", Value: num(4)},
		}}),
		let("p2", &ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
			{Name: "y", Value: num(40)},
			{Name: "x", Value: num(30)},
		}}),
		binop(ast.Add, fieldGet(id("p1", pointT), "x"), fieldGet(id("p2", pointT), "x")),
	)
	prog := &ast.Program{
		Structs: []ast.StructDef{pointDef},
		Funcs:   []ast.FuncDef{fn("main", nil, i32T, body)},
	}
	mod := instantiate(t, prog)

	if got := callFn(t, mod, "main"); got != 33 {
		t.Errorf("main(): got %d, want 33", got)
	}
	layout := []uint32{3, 4, 30, 40}
	for i, w := range layout {
		if got := readWord(t, mod, uint32(i*4)); got != w {
			t.Errorf("mem[%d]: got %d, want %d", i*4, got, w)
		}
	}
}

func TestEmptyTupleHandle(t *testing.T) {
	mod := instantiate(t, mainProg(tup(), ast.TupleOf()))
	if got := callFn(t, mod, "main"); got != 0 {
		t.Errorf("empty tuple handle: got %d, want 0", got)
	}
}

func TestMatchLiteralArms(t *testing.T) {
	body := &ast.Match{
		Subject: id("x", i32T),
		Arms: []ast.MatchArm{
			{Pat: plit(1), Body: num(10)},
			{Pat: plit(2), Body: num(20)},
			{Pat: pwild(), Body: num(99)},
		},
		Typ: i32T,
	}
	mod := instantiate(t, &ast.Program{Funcs: []ast.FuncDef{fn("m", params("x"), i32T, body)}})

	tests := []struct{ x, want int32 }{{1, 10}, {2, 20}, {3, 99}, {-1, 99}}
	for _, tt := range tests {
		if got := callFn(t, mod, "m", tt.x); got != tt.want {
			t.Errorf("m(%d): got %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	pointT := ast.StructOf("Point")
	tests := []struct {
		name string
		prog *ast.Program
		kind Kind
	}{
		{
			"unknown struct literal",
			mainProg(&ast.StructLit{Name: "Ghost"}, ast.StructOf("Ghost")),
			UnknownStruct,
		},
		{
			"unknown field in literal",
			&ast.Program{
				Structs: []ast.StructDef{pointDef},
				Funcs: []ast.FuncDef{fn("main", nil, pointT,
					&ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
						{Name: "x", Value: num(1)},
						{Name: "z", Value: num(2)},
					}})},
			},
			UnknownField,
		},
		{
			"unknown field access",
			&ast.Program{
				Structs: []ast.StructDef{pointDef},
				Funcs: []ast.FuncDef{fn("main", nil, i32T, block(
					let("p", &ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
						{Name: "x", Value: num(1)},
						{Name: "y", Value: num(2)},
					}}),
					fieldGet(id("p", pointT), "z"),
				))},
			},
			UnknownField,
		},
		{
			"missing field",
			&ast.Program{
				Structs: []ast.StructDef{pointDef},
				Funcs: []ast.FuncDef{fn("main", nil, pointT,
					&ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
						{Name: "x", Value: num(1)},
					}})},
			},
			ArityMismatch,
		},
		{
			"duplicate field",
			&ast.Program{
				Structs: []ast.StructDef{pointDef},
				Funcs: []ast.FuncDef{fn("main", nil, pointT,
					&ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
						{Name: "x", Value: num(1)},
						{Name: "x", Value: num(2)},
					}})},
			},
			ArityMismatch,
		},
		{
			"pattern arity mismatch",
			mainProg(block(
				letPat(ptup(pvar("x"), pvar("y"), pvar("z")), tup(num(1), num(2))),
				num(0),
			), i32T),
			InvalidPattern,
		},
		{
			"binding pattern in match arm",
			mainProg(&ast.Match{
				Subject: num(1),
				Arms:    []ast.MatchArm{{Pat: pvar("y"), Body: num(1)}},
				Typ:     i32T,
			}, i32T),
			InvalidPattern,
		},
		{
			"index access on scalar",
			mainProg(idxGet(num(3), num(0)), i32T),
			InvalidAccess,
		},
		{
			"field access on scalar",
			mainProg(fieldGet(num(3), "0"), i32T),
			InvalidAccess,
		},
		{
			"tuple position out of range",
			mainProg(block(
				let("p", tup(num(1), num(2))),
				fieldGet(id("p", pairT), "2"),
			), i32T),
			InvalidAccess,
		},
		{
			"unbound identifier",
			mainProg(id("ghost", i32T), i32T),
			InvalidAccess,
		},
		{
			"destructuring a scalar",
			mainProg(block(
				letPat(ptup(pvar("x")), num(3)),
				num(0),
			), i32T),
			InvalidAccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, err := New().Compile(tt.prog)
			if err == nil {
				t.Fatal("expected a compile error")
			}
			if bin != nil {
				t.Error("failed compilation returned a partial artifact")
			}
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("error type: got %T", err)
			}
			if ce.Kind != tt.kind {
				t.Errorf("kind: got %v, want %v", ce.Kind, tt.kind)
			}
		})
	}
}

func TestErrorCarriesPosition(t *testing.T) {
	pointT := ast.StructOf("Point")
	prog := &ast.Program{
		Structs: []ast.StructDef{pointDef},
		Funcs: []ast.FuncDef{fn("main", nil, i32T, block(
			let("p", &ast.StructLit{Name: "Point", Fields: []ast.FieldInit{
				{Name: "x", Value: num(1)},
				{Name: "y", Value: num(2)},
			}}),
			&ast.FieldAccess{
				At:    ast.Pos{Line: 3, Column: 7},
				X:     id("p", pointT),
				Field: "z",
				Typ:   i32T,
			},
		))},
	}
	_, err := New().Compile(prog)
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if !strings.Contains(err.Error(), "3:7") {
		t.Errorf("error lacks position: %q", err.Error())
	}
}

func TestRegistry(t *testing.T) {
	prog := &ast.Program{Structs: []ast.StructDef{
		{Name: "Point", Fields: []string{"x", "y"}},
		{Name: "Rect", Fields: []string{"min", "max", "tag"}},
	}}
	r := NewRegistry(prog)

	if _, ok := r.Fields("Ghost"); ok {
		t.Error("Fields(Ghost): expected a miss")
	}
	fields, ok := r.Fields("Rect")
	if !ok || len(fields) != 3 {
		t.Fatalf("Fields(Rect): got %v, %v", fields, ok)
	}

	idx, typeOK, fieldOK := r.FieldIndex("Rect", "tag")
	if !typeOK || !fieldOK || idx != 2 {
		t.Errorf("FieldIndex(Rect, tag): got (%d, %v, %v)", idx, typeOK, fieldOK)
	}
	_, typeOK, fieldOK = r.FieldIndex("Rect", "area")
	if !typeOK || fieldOK {
		t.Errorf("FieldIndex(Rect, area): got (%v, %v), want (true, false)", typeOK, fieldOK)
	}
	_, typeOK, _ = r.FieldIndex("Ghost", "x")
	if typeOK {
		t.Error("FieldIndex(Ghost, x): expected unknown type")
	}
}
