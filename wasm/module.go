package wasm

// ValType is a WebAssembly value type.
type ValType byte

const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
	F32 ValType = 0x7D
	F64 ValType = 0x7C
)

func (v ValType) String() string {
	switch v {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return "???"
}

// ExportKind tags what an export entry refers to.
type ExportKind byte

const (
	ExportFunc   ExportKind = 0x00
	ExportTable  ExportKind = 0x01
	ExportMemory ExportKind = 0x02
	ExportGlobal ExportKind = 0x03
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) equal(other FuncType) bool {
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i, p := range ft.Params {
		if p != other.Params[i] {
			return false
		}
	}
	for i, r := range ft.Results {
		if r != other.Results[i] {
			return false
		}
	}
	return true
}

// Memory declares one linear memory region in 64 KiB pages.
type Memory struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// Global declares one module global with an i32.const initializer.
type Global struct {
	Type    ValType
	Mutable bool
	Init    int32
}

// Export makes a function, memory, or global visible to the host.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// LocalDecl declares Count consecutive locals of one type.
type LocalDecl struct {
	Count uint32
	Type  ValType
}

// Code is one function body. Body excludes the terminating end opcode;
// Encode appends it and Decode strips it.
type Code struct {
	Locals []LocalDecl
	Body   []Inst
}

// Module represents a complete WebAssembly binary module (.wasm file).
type Module struct {
	Types   []FuncType
	Funcs   []uint32 // type index per function, parallel to Codes
	Memory  *Memory
	Globals []Global
	Exports []Export
	Codes   []Code
}

// TypeIndex returns the index of ft in the type section, adding it if new.
func (m *Module) TypeIndex(ft FuncType) uint32 {
	for i, t := range m.Types {
		if t.equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// AddFunc appends a function with the given type index and body,
// returning its function index.
func (m *Module) AddFunc(typeIdx uint32, code Code) uint32 {
	idx := uint32(len(m.Funcs))
	m.Funcs = append(m.Funcs, typeIdx)
	m.Codes = append(m.Codes, code)
	return idx
}

// AddExport appends an export entry.
func (m *Module) AddExport(name string, kind ExportKind, index uint32) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Index: index})
}
