// Package compiler lowers a typed, already-parsed expression tree into a
// WebAssembly binary module, inventing a linear-memory layout for the
// source language's composite values (tuples, arrays, records).
//
// Composite values have no addresses in the source model; here every one
// becomes a contiguous run of 4-byte slots in a fixed 64 KiB memory,
// allocated by an inline bump allocator around a single mutable global
// (the heap pointer, global 0). The value of a constructed composite is
// its base address, so tuples, arrays and records all share one access
// scheme: element i lives at base + i*4, with record field order fixed
// by the Registry rather than by literal syntax.
//
// Compilation is single-threaded and fail-fast: the first input error
// aborts with a positioned *Error and no partial artifact. The allocator
// never frees and never checks capacity; the 64 KiB region is a
// documented hard input-size limit validated by the caller.
package compiler

import (
	"github.com/paiml/ruchy-wasm/ast"
	"github.com/paiml/ruchy-wasm/wasm"
)

// memoryPages is the fixed linear-memory capacity in 64 KiB pages.
// Min equals max: the region never grows.
const memoryPages = 1

// Compiler compiles one typed program into a WebAssembly binary module.
// A Compiler is good for one compilation unit; heap and registry state
// are created fresh per Compile call.
type Compiler struct {
	registry *Registry
	fnIndex  map[string]uint32
}

// New creates a new Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile lowers prog and returns the encoded module bytes. Every
// function is exported by name, and the linear memory is exported as
// "memory" so the host can inspect composite layouts directly.
//
// The emitted bytes are re-decoded and structurally verified before they
// are returned; a failure there is an AssemblyError and indicates a
// compiler bug, not bad input.
func (c *Compiler) Compile(prog *ast.Program) ([]byte, error) {
	c.registry = NewRegistry(prog)
	c.fnIndex = make(map[string]uint32, len(prog.Funcs))
	for i := range prog.Funcs {
		c.fnIndex[prog.Funcs[i].Name] = uint32(i)
	}

	m := &wasm.Module{
		Memory: &wasm.Memory{Min: memoryPages, Max: memoryPages, HasMax: true},
		Globals: []wasm.Global{
			{Type: wasm.I32, Mutable: true, Init: 0}, // heap pointer
		},
	}

	for i := range prog.Funcs {
		fn := &prog.Funcs[i]
		code, err := c.compileFunc(fn)
		if err != nil {
			return nil, err
		}
		params := make([]wasm.ValType, len(fn.Params))
		for j := range params {
			params[j] = wasm.I32
		}
		var results []wasm.ValType
		if fn.Result.Kind != ast.Unit {
			results = []wasm.ValType{wasm.I32}
		}
		idx := m.AddFunc(m.TypeIndex(wasm.FuncType{Params: params, Results: results}), code)
		m.AddExport(fn.Name, wasm.ExportFunc, idx)
	}
	m.AddExport("memory", wasm.ExportMemory, 0)

	raw, err := m.EncodeToBytes()
	if err != nil {
		return nil, errf(AssemblyError, ast.Pos{}, "encode: %v", err)
	}
	if err := wasm.Validate(raw); err != nil {
		return nil, errf(AssemblyError, ast.Pos{}, "emitted module failed self-check: %v", err)
	}
	return raw, nil
}

// compileFunc lowers one function body to a code-section entry.
func (c *Compiler) compileFunc(fn *ast.FuncDef) (wasm.Code, error) {
	fl := &funcLowerer{c: c, syms: newSymtab(fn.Params)}
	if err := fl.lowerExpr(fn.Body); err != nil {
		return wasm.Code{}, err
	}
	if fn.Result.Kind == ast.Unit && producesValue(fn.Body) {
		fl.emit(wasm.Op0(wasm.OpDrop))
	}

	var code wasm.Code
	if n := fl.syms.extras(); n > 0 {
		code.Locals = []wasm.LocalDecl{{Count: n, Type: wasm.I32}}
	}
	code.Body = fl.code
	return code, nil
}
