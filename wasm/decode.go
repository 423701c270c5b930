package wasm

import (
	"bytes"
	"fmt"
)

// Decode parses a WebAssembly binary module, implementing the inverse of
// Encode. It is deliberately strict: every declared length must match the
// bytes actually present, section ids must be ordered, and every opcode
// must be one the encoder can produce. The compiler's post-assembly
// self-check is built on this.
func Decode(data []byte) (*Module, error) {
	r := &reader{data: data}

	hdr, err := r.take(8)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if !bytes.Equal(hdr[:4], magic[:]) {
		return nil, fmt.Errorf("bad magic: % x", hdr[:4])
	}
	if !bytes.Equal(hdr[4:], version[:]) {
		return nil, fmt.Errorf("bad version: % x", hdr[4:])
	}

	m := &Module{}
	lastID := byte(0)
	for !r.done() {
		id, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("section id: %w", err)
		}
		size, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("section size: %w", err)
		}
		body, err := r.take(int(size))
		if err != nil {
			return nil, fmt.Errorf("section %d body: %w", id, err)
		}
		if id == sectionCustom {
			continue // custom sections may appear anywhere; skipped
		}
		if id <= lastID {
			return nil, fmt.Errorf("section %d out of order (after %d)", id, lastID)
		}
		lastID = id

		sr := &reader{data: body}
		switch id {
		case sectionType:
			err = decodeTypes(sr, m)
		case sectionFunction:
			err = decodeFuncs(sr, m)
		case sectionMemory:
			err = decodeMemory(sr, m)
		case sectionGlobal:
			err = decodeGlobals(sr, m)
		case sectionExport:
			err = decodeExports(sr, m)
		case sectionCode:
			err = decodeCodes(sr, m)
		default:
			return nil, fmt.Errorf("unsupported section id %d", id)
		}
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
		if !sr.done() {
			return nil, fmt.Errorf("section %d: %d trailing bytes", id, len(sr.data)-sr.pos)
		}
	}

	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate decodes data and reports the first structural defect found.
func Validate(data []byte) error {
	_, err := Decode(data)
	return err
}

// check verifies cross-section consistency after all sections are parsed.
func (m *Module) check() error {
	if len(m.Funcs) != len(m.Codes) {
		return fmt.Errorf("function count %d != code count %d", len(m.Funcs), len(m.Codes))
	}
	for i, tidx := range m.Funcs {
		if int(tidx) >= len(m.Types) {
			return fmt.Errorf("func %d: type index %d out of range", i, tidx)
		}
	}
	for _, e := range m.Exports {
		switch e.Kind {
		case ExportFunc:
			if int(e.Index) >= len(m.Funcs) {
				return fmt.Errorf("export %q: function index %d out of range", e.Name, e.Index)
			}
		case ExportMemory:
			if m.Memory == nil || e.Index != 0 {
				return fmt.Errorf("export %q: no such memory %d", e.Name, e.Index)
			}
		case ExportGlobal:
			if int(e.Index) >= len(m.Globals) {
				return fmt.Errorf("export %q: global index %d out of range", e.Name, e.Index)
			}
		default:
			return fmt.Errorf("export %q: unsupported kind %d", e.Name, e.Kind)
		}
	}
	return nil
}

func decodeTypes(r *reader, m *Module) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tag, err := r.byte()
		if err != nil {
			return err
		}
		if tag != 0x60 {
			return fmt.Errorf("type %d: bad functype tag 0x%02x", i, tag)
		}
		var ft FuncType
		if ft.Params, err = r.valtypes(); err != nil {
			return fmt.Errorf("type %d params: %w", i, err)
		}
		if ft.Results, err = r.valtypes(); err != nil {
			return fmt.Errorf("type %d results: %w", i, err)
		}
		m.Types = append(m.Types, ft)
	}
	return nil
}

func decodeFuncs(r *reader, m *Module) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tidx, err := r.u32()
		if err != nil {
			return fmt.Errorf("func %d: %w", i, err)
		}
		m.Funcs = append(m.Funcs, tidx)
	}
	return nil
}

func decodeMemory(r *reader, m *Module) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("expected exactly one memory, got %d", n)
	}
	flags, err := r.byte()
	if err != nil {
		return err
	}
	mem := &Memory{}
	if mem.Min, err = r.u32(); err != nil {
		return err
	}
	switch flags {
	case 0x00:
	case 0x01:
		mem.HasMax = true
		if mem.Max, err = r.u32(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("bad memory limits flags 0x%02x", flags)
	}
	m.Memory = mem
	return nil
}

func decodeGlobals(r *reader, m *Module) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		vt, err := r.byte()
		if err != nil {
			return err
		}
		mut, err := r.byte()
		if err != nil {
			return err
		}
		if mut > 1 {
			return fmt.Errorf("global %d: bad mutability %d", i, mut)
		}
		op, err := r.byte()
		if err != nil {
			return err
		}
		if Op(op) != OpI32Const {
			return fmt.Errorf("global %d: unsupported init opcode %s", i, Op(op))
		}
		init, err := r.s32()
		if err != nil {
			return err
		}
		end, err := r.byte()
		if err != nil {
			return err
		}
		if Op(end) != OpEnd {
			return fmt.Errorf("global %d: init not terminated", i)
		}
		m.Globals = append(m.Globals, Global{Type: ValType(vt), Mutable: mut == 1, Init: init})
	}
	return nil
}

func decodeExports(r *reader, m *Module) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, err := r.name()
		if err != nil {
			return fmt.Errorf("export %d name: %w", i, err)
		}
		kind, err := r.byte()
		if err != nil {
			return err
		}
		idx, err := r.u32()
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: ExportKind(kind), Index: idx})
	}
	return nil
}

func decodeCodes(r *reader, m *Module) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		size, err := r.u32()
		if err != nil {
			return fmt.Errorf("code %d size: %w", i, err)
		}
		body, err := r.take(int(size))
		if err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}
		c, err := decodeCode(&reader{data: body})
		if err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}
		m.Codes = append(m.Codes, c)
	}
	return nil
}

func decodeCode(r *reader) (Code, error) {
	var c Code
	groups, err := r.u32()
	if err != nil {
		return c, err
	}
	for i := uint32(0); i < groups; i++ {
		count, err := r.u32()
		if err != nil {
			return c, err
		}
		vt, err := r.byte()
		if err != nil {
			return c, err
		}
		c.Locals = append(c.Locals, LocalDecl{Count: count, Type: ValType(vt)})
	}
	for !r.done() {
		inst, err := r.inst()
		if err != nil {
			return c, err
		}
		c.Body = append(c.Body, inst)
	}
	if len(c.Body) == 0 || c.Body[len(c.Body)-1].Op != OpEnd {
		return c, fmt.Errorf("body not terminated with end")
	}
	c.Body = c.Body[:len(c.Body)-1] // Body excludes the terminator
	return c, nil
}

// reader is a bounds-checked cursor over a byte slice.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) done() bool { return r.pos >= len(r.data) }

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected end of data at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// u32 reads an unsigned LEB128 value.
func (r *reader) u32() (uint32, error) {
	var v uint32
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		if shift >= 32 {
			return 0, fmt.Errorf("uleb128 overflow")
		}
		v |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

// s32 reads a signed LEB128 value.
func (r *reader) s32() (int32, error) {
	var v int32
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		if shift >= 35 {
			return 0, fmt.Errorf("sleb128 overflow")
		}
		v |= int32(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 32 && b&0x40 != 0 {
				v |= -1 << shift
			}
			return v, nil
		}
	}
}

// name reads a length-prefixed UTF-8 name.
func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// valtypes reads a vector of value types.
func (r *reader) valtypes() ([]ValType, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	var vts []ValType
	for i := uint32(0); i < n; i++ {
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		switch ValType(b) {
		case I32, I64, F32, F64:
		default:
			return nil, fmt.Errorf("bad value type 0x%02x", b)
		}
		vts = append(vts, ValType(b))
	}
	return vts, nil
}

// inst reads one instruction: opcode byte plus immediates.
func (r *reader) inst() (Inst, error) {
	op, err := r.byte()
	if err != nil {
		return Inst{}, err
	}
	inst := Inst{Op: Op(op)}
	if _, known := opNames[inst.Op]; !known {
		return Inst{}, fmt.Errorf("unknown opcode 0x%02x at offset %d", op, r.pos-1)
	}
	switch inst.Op.imm() {
	case immI32:
		v, err := r.s32()
		if err != nil {
			return Inst{}, err
		}
		inst.Val = v
	case immIndex:
		v, err := r.u32()
		if err != nil {
			return Inst{}, err
		}
		inst.Val = int32(v)
	case immMem:
		if inst.Align, err = r.u32(); err != nil {
			return Inst{}, err
		}
		if inst.Offset, err = r.u32(); err != nil {
			return Inst{}, err
		}
	case immBlock:
		b, err := r.byte()
		if err != nil {
			return Inst{}, err
		}
		if BlockType(b) != BlockVoid && BlockType(b) != BlockI32 {
			return Inst{}, fmt.Errorf("bad block type 0x%02x", b)
		}
		inst.Block = BlockType(b)
	}
	return inst, nil
}
