// Package wasm provides types and encoding/decoding for the WebAssembly
// 1.0 binary module format emitted by the compiler.
package wasm

// Op is a WebAssembly opcode.
type Op byte

// The opcode subset the code generator emits.
const (
	OpUnreachable Op = 0x00
	OpNop         Op = 0x01
	OpBlock       Op = 0x02
	OpLoop        Op = 0x03
	OpIf          Op = 0x04
	OpElse        Op = 0x05
	OpEnd         Op = 0x0B
	OpBr          Op = 0x0C
	OpBrIf        Op = 0x0D
	OpReturn      Op = 0x0F
	OpCall        Op = 0x10
	OpDrop        Op = 0x1A
	OpLocalGet    Op = 0x20
	OpLocalSet    Op = 0x21
	OpLocalTee    Op = 0x22
	OpGlobalGet   Op = 0x23
	OpGlobalSet   Op = 0x24
	OpI32Load     Op = 0x28
	OpI32Store    Op = 0x36
	OpI32Const    Op = 0x41
	OpI32Eqz      Op = 0x45
	OpI32Eq       Op = 0x46
	OpI32Ne       Op = 0x47
	OpI32LtS      Op = 0x48
	OpI32GtS      Op = 0x4A
	OpI32LeS      Op = 0x4C
	OpI32GeS      Op = 0x4E
	OpI32Add      Op = 0x6A
	OpI32Sub      Op = 0x6B
	OpI32Mul      Op = 0x6C
	OpI32DivS     Op = 0x6D
	OpI32RemS     Op = 0x6F
	OpI32And      Op = 0x71
	OpI32Or       Op = 0x72
	OpI32Xor      Op = 0x73
)

var opNames = map[Op]string{
	OpUnreachable: "unreachable",
	OpNop:         "nop",
	OpBlock:       "block",
	OpLoop:        "loop",
	OpIf:          "if",
	OpElse:        "else",
	OpEnd:         "end",
	OpBr:          "br",
	OpBrIf:        "br_if",
	OpReturn:      "return",
	OpCall:        "call",
	OpDrop:        "drop",
	OpLocalGet:    "local.get",
	OpLocalSet:    "local.set",
	OpLocalTee:    "local.tee",
	OpGlobalGet:   "global.get",
	OpGlobalSet:   "global.set",
	OpI32Load:     "i32.load",
	OpI32Store:    "i32.store",
	OpI32Const:    "i32.const",
	OpI32Eqz:      "i32.eqz",
	OpI32Eq:       "i32.eq",
	OpI32Ne:       "i32.ne",
	OpI32LtS:      "i32.lt_s",
	OpI32GtS:      "i32.gt_s",
	OpI32LeS:      "i32.le_s",
	OpI32GeS:      "i32.ge_s",
	OpI32Add:      "i32.add",
	OpI32Sub:      "i32.sub",
	OpI32Mul:      "i32.mul",
	OpI32DivS:     "i32.div_s",
	OpI32RemS:     "i32.rem_s",
	OpI32And:      "i32.and",
	OpI32Or:       "i32.or",
	OpI32Xor:      "i32.xor",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "???"
}

// immKind classifies an opcode's immediate operand encoding.
type immKind int

const (
	immNone  immKind = iota
	immIndex         // unsigned LEB128 index or branch depth
	immI32           // signed LEB128 constant
	immMem           // memarg: align then offset, both unsigned LEB128
	immBlock         // single block-type byte
)

func (op Op) imm() immKind {
	switch op {
	case OpI32Const:
		return immI32
	case OpLocalGet, OpLocalSet, OpLocalTee, OpGlobalGet, OpGlobalSet,
		OpCall, OpBr, OpBrIf:
		return immIndex
	case OpI32Load, OpI32Store:
		return immMem
	case OpBlock, OpLoop, OpIf:
		return immBlock
	default:
		return immNone
	}
}
