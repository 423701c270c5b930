package compiler

import (
	"github.com/paiml/ruchy-wasm/ast"
	"github.com/paiml/ruchy-wasm/wasm"
)

// heapGlobal is the module global holding the bump allocator's next free
// byte address. It is always global index 0 in an emitted module.
const heapGlobal = 0

// wordSize is the byte size of every scalar slot. Composite element i
// lives at base + i*wordSize.
const wordSize = 4

// funcLowerer lowers one function body to a flat instruction sequence.
// It keeps no state beyond the local-slot allocator; dispatch is purely
// structural recursion, so each node is visited exactly once.
type funcLowerer struct {
	c    *Compiler
	syms *symtab
	code []wasm.Inst
}

func (fl *funcLowerer) emit(insts ...wasm.Inst) {
	fl.code = append(fl.code, insts...)
}

// producesValue reports whether the expression leaves a value on the
// operand stack.
func producesValue(e ast.Expr) bool {
	return e.Type().Kind != ast.Unit
}

var binOps = map[ast.BinOp]wasm.Op{
	ast.Add: wasm.OpI32Add,
	ast.Sub: wasm.OpI32Sub,
	ast.Mul: wasm.OpI32Mul,
	ast.Div: wasm.OpI32DivS,
	ast.Rem: wasm.OpI32RemS,
	ast.Eq:  wasm.OpI32Eq,
	ast.Ne:  wasm.OpI32Ne,
	ast.Lt:  wasm.OpI32LtS,
	ast.Gt:  wasm.OpI32GtS,
	ast.Le:  wasm.OpI32LeS,
	ast.Ge:  wasm.OpI32GeS,
	ast.And: wasm.OpI32And,
	ast.Or:  wasm.OpI32Or,
}

// lowerExpr is the driver: it dispatches every expression kind either to
// ordinary scalar lowering below or to the composite machinery in
// composite.go.
func (fl *funcLowerer) lowerExpr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.IntLit:
		fl.emit(wasm.I32Const(e.Value))
		return nil
	case *ast.BoolLit:
		v := int32(0)
		if e.Value {
			v = 1
		}
		fl.emit(wasm.I32Const(v))
		return nil
	case *ast.Ident:
		idx, ok := fl.syms.lookup(e.Name)
		if !ok {
			return errf(InvalidAccess, e.At, "unbound identifier %q", e.Name)
		}
		fl.emit(wasm.LocalGet(idx))
		return nil
	case *ast.Unary:
		return fl.lowerUnary(e)
	case *ast.Binary:
		if err := fl.lowerExpr(e.X); err != nil {
			return err
		}
		if err := fl.lowerExpr(e.Y); err != nil {
			return err
		}
		fl.emit(wasm.Op0(binOps[e.Op]))
		return nil
	case *ast.If:
		return fl.lowerIf(e)
	case *ast.While:
		return fl.lowerWhile(e)
	case *ast.Block:
		return fl.lowerBlock(e)
	case *ast.Let:
		if err := fl.lowerExpr(e.Value); err != nil {
			return err
		}
		// Bind after lowering the value so the old binding stays
		// visible inside its own initializer.
		fl.emit(wasm.LocalSet(fl.syms.bind(e.Name)))
		return nil
	case *ast.LetPattern:
		if err := fl.lowerExpr(e.Value); err != nil {
			return err
		}
		return fl.bindPattern(&e.Pat, e.Value.Type())
	case *ast.Assign:
		return fl.lowerAssign(e)
	case *ast.Call:
		idx, ok := fl.c.fnIndex[e.Name]
		if !ok {
			return errf(InvalidAccess, e.At, "unknown function %q", e.Name)
		}
		for i := range e.Args {
			if err := fl.lowerExpr(e.Args[i]); err != nil {
				return err
			}
		}
		fl.emit(wasm.Call(idx))
		return nil
	case *ast.Return:
		if e.Value != nil {
			if err := fl.lowerExpr(e.Value); err != nil {
				return err
			}
		}
		fl.emit(wasm.Op0(wasm.OpReturn))
		return nil
	case *ast.Tuple:
		return fl.lowerComposite(e.Elems)
	case *ast.Array:
		return fl.lowerComposite(e.Elems)
	case *ast.StructLit:
		return fl.lowerStructLit(e)
	case *ast.FieldAccess:
		return fl.lowerFieldAccess(e)
	case *ast.IndexAccess:
		return fl.lowerIndexAccess(e)
	case *ast.Match:
		return fl.lowerMatch(e)
	default:
		return errf(InvalidAccess, e.Pos(), "unsupported expression %T", e)
	}
}

// lowerStmt lowers e and discards its value if it produces one. Used for
// statement positions: block interiors, loop bodies, void branch arms.
func (fl *funcLowerer) lowerStmt(e ast.Expr) error {
	if err := fl.lowerExpr(e); err != nil {
		return err
	}
	if producesValue(e) {
		fl.emit(wasm.Op0(wasm.OpDrop))
	}
	return nil
}

func (fl *funcLowerer) lowerUnary(e *ast.Unary) error {
	switch e.Op {
	case ast.Neg:
		// 0 - x
		fl.emit(wasm.I32Const(0))
		if err := fl.lowerExpr(e.X); err != nil {
			return err
		}
		fl.emit(wasm.Op0(wasm.OpI32Sub))
	case ast.Not:
		if err := fl.lowerExpr(e.X); err != nil {
			return err
		}
		fl.emit(wasm.Op0(wasm.OpI32Eqz))
	}
	return nil
}

func (fl *funcLowerer) lowerIf(e *ast.If) error {
	if err := fl.lowerExpr(e.Cond); err != nil {
		return err
	}
	bt := wasm.BlockVoid
	if e.Typ.Kind != ast.Unit {
		bt = wasm.BlockI32
	}
	fl.emit(wasm.Ctrl(wasm.OpIf, bt))
	if err := fl.lowerBranch(e.Then, bt); err != nil {
		return err
	}
	if e.Else != nil {
		fl.emit(wasm.Op0(wasm.OpElse))
		if err := fl.lowerBranch(e.Else, bt); err != nil {
			return err
		}
	}
	fl.emit(wasm.Op0(wasm.OpEnd))
	return nil
}

// lowerBranch lowers one arm of a structured region, keeping or
// discarding its value to match the region's block type.
func (fl *funcLowerer) lowerBranch(e ast.Expr, bt wasm.BlockType) error {
	if bt == wasm.BlockVoid {
		return fl.lowerStmt(e)
	}
	return fl.lowerExpr(e)
}

// lowerWhile emits the standard block/loop/br_if shape:
//
//	block
//	  loop
//	    <cond> i32.eqz br_if 1
//	    <body>
//	    br 0
//	  end
//	end
func (fl *funcLowerer) lowerWhile(e *ast.While) error {
	fl.emit(wasm.Ctrl(wasm.OpBlock, wasm.BlockVoid), wasm.Ctrl(wasm.OpLoop, wasm.BlockVoid))
	if err := fl.lowerExpr(e.Cond); err != nil {
		return err
	}
	fl.emit(wasm.Op0(wasm.OpI32Eqz), wasm.BrIf(1))
	if err := fl.lowerStmt(e.Body); err != nil {
		return err
	}
	fl.emit(wasm.Br(0), wasm.Op0(wasm.OpEnd), wasm.Op0(wasm.OpEnd))
	return nil
}

// lowerBlock lowers a sequence; intermediate values are dropped, the
// last expression's value (if any) is the block's value.
func (fl *funcLowerer) lowerBlock(e *ast.Block) error {
	for i := range e.List {
		if i < len(e.List)-1 {
			if err := fl.lowerStmt(e.List[i]); err != nil {
				return err
			}
			continue
		}
		if err := fl.lowerExpr(e.List[i]); err != nil {
			return err
		}
	}
	return nil
}

// lowerMatch desugars a match over integer literals into an if/else
// chain on the saved subject. Arms that would bind variables need
// branch-local storage the flat local-slot model does not provide, so
// they are rejected.
func (fl *funcLowerer) lowerMatch(e *ast.Match) error {
	if err := fl.lowerExpr(e.Subject); err != nil {
		return err
	}
	subject := fl.syms.temp()
	fl.emit(wasm.LocalSet(subject))

	bt := wasm.BlockVoid
	if e.Typ.Kind != ast.Unit {
		bt = wasm.BlockI32
	}

	ends := 0
	exhaustive := false
	for i := range e.Arms {
		arm := &e.Arms[i]
		switch arm.Pat.Kind {
		case ast.PatLit:
			fl.emit(
				wasm.LocalGet(subject),
				wasm.I32Const(arm.Pat.Value),
				wasm.Op0(wasm.OpI32Eq),
				wasm.Ctrl(wasm.OpIf, bt),
			)
			if err := fl.lowerBranch(arm.Body, bt); err != nil {
				return err
			}
			fl.emit(wasm.Op0(wasm.OpElse))
			ends++
		case ast.PatWildcard:
			if err := fl.lowerBranch(arm.Body, bt); err != nil {
				return err
			}
			exhaustive = true
		default:
			return errf(InvalidPattern, arm.Pat.At,
				"match arms cannot bind variables; only literal and wildcard patterns are supported")
		}
		if exhaustive {
			break
		}
	}
	if !exhaustive && bt == wasm.BlockI32 {
		fl.emit(wasm.Op0(wasm.OpUnreachable))
	}
	for i := 0; i < ends; i++ {
		fl.emit(wasm.Op0(wasm.OpEnd))
	}
	return nil
}
