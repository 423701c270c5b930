package compiler

import (
	"strconv"

	"github.com/paiml/ruchy-wasm/ast"
	"github.com/paiml/ruchy-wasm/wasm"
)

// emitAlloc emits the bump-allocation sequence for size bytes and returns
// the fresh local holding the allocation's base address:
//
//	global.get $heap  local.set $base
//	global.get $heap  i32.const size  i32.add  global.set $heap
//
// The heap pointer is advanced before any later allocation reads it, so
// two allocations can never receive overlapping ranges. No capacity
// check is emitted: the fixed 64 KiB region is a documented input-size
// limit enforced upstream.
func (fl *funcLowerer) emitAlloc(size int32) uint32 {
	base := fl.syms.temp()
	fl.emit(
		wasm.GlobalGet(heapGlobal),
		wasm.LocalSet(base),
		wasm.GlobalGet(heapGlobal),
		wasm.I32Const(size),
		wasm.Op0(wasm.OpI32Add),
		wasm.GlobalSet(heapGlobal),
	)
	return base
}

// lowerComposite constructs a tuple or array: element expressions are
// evaluated left to right into scratch locals BEFORE the allocation, so
// constructors nested inside elements allocate first and allocation
// order equals evaluation order. The base address is the result value.
func (fl *funcLowerer) lowerComposite(elems []ast.Expr) error {
	if len(elems) == 0 {
		// Nothing to address; the handle is a placeholder.
		fl.emit(wasm.I32Const(0))
		return nil
	}
	tmps := make([]uint32, len(elems))
	for i := range elems {
		if err := fl.lowerExpr(elems[i]); err != nil {
			return err
		}
		tmps[i] = fl.syms.temp()
		fl.emit(wasm.LocalSet(tmps[i]))
	}
	base := fl.emitAlloc(int32(len(elems)) * wordSize)
	for i := range elems {
		fl.emit(
			wasm.LocalGet(base),
			wasm.LocalGet(tmps[i]),
			wasm.I32Store(uint32(i)*wordSize),
		)
	}
	fl.emit(wasm.LocalGet(base))
	return nil
}

// lowerStructLit constructs a record value. Field values are evaluated
// in the literal's written order, but each is stored at the offset of
// the field's REGISTRY index, so layout is independent of literal order.
func (fl *funcLowerer) lowerStructLit(e *ast.StructLit) error {
	fields, ok := fl.c.registry.Fields(e.Name)
	if !ok {
		return errf(UnknownStruct, e.At, "struct %q is not defined", e.Name)
	}
	if len(e.Fields) != len(fields) {
		return errf(ArityMismatch, e.At, "struct %q has %d fields, literal provides %d",
			e.Name, len(fields), len(e.Fields))
	}

	type slot struct {
		tmp    uint32
		offset uint32
	}
	seen := make(map[string]bool, len(e.Fields))
	slots := make([]slot, 0, len(e.Fields))
	for i := range e.Fields {
		fi := &e.Fields[i]
		if seen[fi.Name] {
			return errf(ArityMismatch, e.At, "duplicate field %q in %s literal", fi.Name, e.Name)
		}
		seen[fi.Name] = true
		idx, _, fieldOK := fl.c.registry.FieldIndex(e.Name, fi.Name)
		if !fieldOK {
			return errf(UnknownField, e.At, "no field %q in struct %q", fi.Name, e.Name)
		}
		if err := fl.lowerExpr(fi.Value); err != nil {
			return err
		}
		tmp := fl.syms.temp()
		fl.emit(wasm.LocalSet(tmp))
		slots = append(slots, slot{tmp: tmp, offset: uint32(idx) * wordSize})
	}

	base := fl.emitAlloc(int32(len(fields)) * wordSize)
	for _, s := range slots {
		fl.emit(wasm.LocalGet(base), wasm.LocalGet(s.tmp), wasm.I32Store(s.offset))
	}
	fl.emit(wasm.LocalGet(base))
	return nil
}

// fieldOffset resolves a static selector against the object's type:
// registry index for record fields, literal position for tuples.
func (fl *funcLowerer) fieldOffset(t ast.Type, field string, pos ast.Pos) (uint32, error) {
	switch t.Kind {
	case ast.TupleType:
		idx, err := strconv.Atoi(field)
		if err != nil {
			return 0, errf(InvalidAccess, pos, "tuple access needs a numeric position, got %q", field)
		}
		if idx < 0 || idx >= len(t.Elems) {
			return 0, errf(InvalidAccess, pos, "tuple position %d out of range for %d elements", idx, len(t.Elems))
		}
		return uint32(idx) * wordSize, nil
	case ast.StructType:
		idx, typeOK, fieldOK := fl.c.registry.FieldIndex(t.Name, field)
		if !typeOK {
			return 0, errf(UnknownStruct, pos, "struct %q is not defined", t.Name)
		}
		if !fieldOK {
			return 0, errf(UnknownField, pos, "no field %q in struct %q", field, t.Name)
		}
		return uint32(idx) * wordSize, nil
	default:
		return 0, errf(InvalidAccess, pos, "field access on a value with no composite layout")
	}
}

// lowerFieldAccess reads a record field or tuple slot: a single load at
// base + static offset.
func (fl *funcLowerer) lowerFieldAccess(e *ast.FieldAccess) error {
	if err := fl.lowerExpr(e.X); err != nil {
		return err
	}
	offset, err := fl.fieldOffset(e.X.Type(), e.Field, e.At)
	if err != nil {
		return err
	}
	fl.emit(wasm.I32Load(offset))
	return nil
}

// lowerIndexAccess reads an element at a dynamically computed index:
// base + index*4, then a single load.
func (fl *funcLowerer) lowerIndexAccess(e *ast.IndexAccess) error {
	if !e.X.Type().IsComposite() {
		return errf(InvalidAccess, e.At, "index access on a value with no composite layout")
	}
	if err := fl.lowerExpr(e.X); err != nil {
		return err
	}
	if err := fl.lowerExpr(e.Index); err != nil {
		return err
	}
	fl.emit(wasm.I32Const(wordSize), wasm.Op0(wasm.OpI32Mul), wasm.Op0(wasm.OpI32Add))
	fl.emit(wasm.I32Load(0))
	return nil
}

// lowerAssign writes to an lvalue. Evaluation order is fixed: value,
// then address, then store. A wasm store wants the address below the
// value, so the value parks in a scratch local while the address is
// computed.
func (fl *funcLowerer) lowerAssign(e *ast.Assign) error {
	switch target := e.Target.(type) {
	case *ast.Ident:
		if err := fl.lowerExpr(e.Value); err != nil {
			return err
		}
		idx, ok := fl.syms.lookup(target.Name)
		if !ok {
			return errf(InvalidAccess, target.At, "unbound identifier %q", target.Name)
		}
		fl.emit(wasm.LocalSet(idx))
		return nil
	case *ast.FieldAccess:
		if err := fl.lowerExpr(e.Value); err != nil {
			return err
		}
		tmp := fl.syms.temp()
		fl.emit(wasm.LocalSet(tmp))
		if err := fl.lowerExpr(target.X); err != nil {
			return err
		}
		offset, err := fl.fieldOffset(target.X.Type(), target.Field, target.At)
		if err != nil {
			return err
		}
		fl.emit(wasm.LocalGet(tmp), wasm.I32Store(offset))
		return nil
	case *ast.IndexAccess:
		if !target.X.Type().IsComposite() {
			return errf(InvalidAccess, target.At, "index access on a value with no composite layout")
		}
		if err := fl.lowerExpr(e.Value); err != nil {
			return err
		}
		tmp := fl.syms.temp()
		fl.emit(wasm.LocalSet(tmp))
		if err := fl.lowerExpr(target.X); err != nil {
			return err
		}
		if err := fl.lowerExpr(target.Index); err != nil {
			return err
		}
		fl.emit(wasm.I32Const(wordSize), wasm.Op0(wasm.OpI32Mul), wasm.Op0(wasm.OpI32Add))
		fl.emit(wasm.LocalGet(tmp), wasm.I32Store(0))
		return nil
	default:
		return errf(InvalidAccess, e.At, "expression is not assignable")
	}
}

// bindPattern consumes the value on the operand stack, binding pattern
// variables from it. Tuple patterns save the address in a fresh local
// and load each sub-value at base + i*4; nested patterns recurse on the
// loaded element without re-allocating, so depth D destructuring is D
// levels of load chaining and never writes memory. Wildcard sub-patterns
// emit nothing at all (no discarded load).
func (fl *funcLowerer) bindPattern(p *ast.Pattern, t ast.Type) error {
	switch p.Kind {
	case ast.PatIdent:
		fl.emit(wasm.LocalSet(fl.syms.bind(p.Name)))
		return nil
	case ast.PatWildcard:
		fl.emit(wasm.Op0(wasm.OpDrop))
		return nil
	case ast.PatTuple:
		arity, err := fl.patternArity(t, p.At)
		if err != nil {
			return err
		}
		if len(p.Elems) != arity {
			return errf(InvalidPattern, p.At, "pattern has %d elements, value has %d", len(p.Elems), arity)
		}
		base := fl.syms.temp()
		fl.emit(wasm.LocalSet(base))
		for i := range p.Elems {
			sub := &p.Elems[i]
			if sub.Kind == ast.PatWildcard {
				continue
			}
			fl.emit(wasm.LocalGet(base), wasm.I32Load(uint32(i)*wordSize))
			if err := fl.bindPattern(sub, elemTypeAt(t, i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return errf(InvalidPattern, p.At, "literal patterns are only valid in match arms")
	}
}

// patternArity returns the element/field count of the destructured type.
func (fl *funcLowerer) patternArity(t ast.Type, pos ast.Pos) (int, error) {
	switch t.Kind {
	case ast.TupleType:
		return len(t.Elems), nil
	case ast.ArrayType:
		return t.Len, nil
	case ast.StructType:
		fields, ok := fl.c.registry.Fields(t.Name)
		if !ok {
			return 0, errf(UnknownStruct, pos, "struct %q is not defined", t.Name)
		}
		return len(fields), nil
	default:
		return 0, errf(InvalidAccess, pos, "cannot destructure a value with no composite layout")
	}
}

// elemTypeAt returns the static type of element i of a composite type.
// Record fields are scalar slots, so they report i32.
func elemTypeAt(t ast.Type, i int) ast.Type {
	switch t.Kind {
	case ast.TupleType:
		return t.Elems[i]
	case ast.ArrayType:
		return *t.Elem
	default:
		return ast.I32T()
	}
}
