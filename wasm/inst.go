package wasm

import "fmt"

// BlockType is the result arity marker of a structured instruction.
type BlockType byte

const (
	BlockVoid BlockType = 0x40
	BlockI32  BlockType = 0x7F
)

// Inst is a single WebAssembly instruction. Which immediate fields are
// meaningful depends on the opcode's immediate class (see Op.imm).
type Inst struct {
	Op     Op
	Val    int32     // i32.const constant, or local/global/call/branch index
	Align  uint32    // memarg alignment exponent (loads/stores)
	Offset uint32    // memarg static offset (loads/stores)
	Block  BlockType // block/loop/if result type
}

// Op0 creates an instruction with no immediates (arithmetic, drop, end...).
func Op0(op Op) Inst { return Inst{Op: op} }

// I32Const pushes a 32-bit integer constant.
func I32Const(v int32) Inst { return Inst{Op: OpI32Const, Val: v} }

// LocalGet reads a local variable slot.
func LocalGet(idx uint32) Inst { return Inst{Op: OpLocalGet, Val: int32(idx)} }

// LocalSet pops into a local variable slot.
func LocalSet(idx uint32) Inst { return Inst{Op: OpLocalSet, Val: int32(idx)} }

// LocalTee stores to a local slot and keeps the value on the stack.
func LocalTee(idx uint32) Inst { return Inst{Op: OpLocalTee, Val: int32(idx)} }

// GlobalGet reads a module global.
func GlobalGet(idx uint32) Inst { return Inst{Op: OpGlobalGet, Val: int32(idx)} }

// GlobalSet pops into a module global.
func GlobalSet(idx uint32) Inst { return Inst{Op: OpGlobalSet, Val: int32(idx)} }

// I32Load reads 4 bytes at addr+offset. Alignment is fixed at 4 bytes.
func I32Load(offset uint32) Inst {
	return Inst{Op: OpI32Load, Align: 2, Offset: offset}
}

// I32Store writes 4 bytes at addr+offset. Alignment is fixed at 4 bytes.
func I32Store(offset uint32) Inst {
	return Inst{Op: OpI32Store, Align: 2, Offset: offset}
}

// Call invokes the function at the given index.
func Call(idx uint32) Inst { return Inst{Op: OpCall, Val: int32(idx)} }

// Br branches out of the label at the given relative depth.
func Br(depth uint32) Inst { return Inst{Op: OpBr, Val: int32(depth)} }

// BrIf branches conditionally to the label at the given relative depth.
func BrIf(depth uint32) Inst { return Inst{Op: OpBrIf, Val: int32(depth)} }

// Ctrl creates a structured instruction (block, loop, if) with a result type.
func Ctrl(op Op, bt BlockType) Inst { return Inst{Op: op, Block: bt} }

func (inst Inst) String() string {
	switch inst.Op.imm() {
	case immI32:
		return fmt.Sprintf("%s %d", inst.Op, inst.Val)
	case immIndex:
		return fmt.Sprintf("%s %d", inst.Op, inst.Val)
	case immMem:
		if inst.Offset != 0 {
			return fmt.Sprintf("%s offset=%d", inst.Op, inst.Offset)
		}
		return inst.Op.String()
	case immBlock:
		if inst.Block == BlockI32 {
			return inst.Op.String() + " (result i32)"
		}
		return inst.Op.String()
	default:
		return inst.Op.String()
	}
}
