package wasm

import (
	"bytes"
	"fmt"
	"io"
)

// Binary-format framing constants.
var (
	magic   = [4]byte{0x00, 0x61, 0x73, 0x6D} // "\0asm"
	version = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// Section ids, in the order the format requires them to appear.
const (
	sectionCustom   byte = 0
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionTable    byte = 4
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10
	sectionData     byte = 11
)

// Encode writes the module to w in WebAssembly binary format.
// Sections are emitted in id order; empty sections are omitted.
func (m *Module) Encode(w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.Write(version[:])

	if len(m.Types) > 0 {
		writeSection(&buf, sectionType, m.encodeTypes())
	}
	if len(m.Funcs) > 0 {
		writeSection(&buf, sectionFunction, m.encodeFuncs())
	}
	if m.Memory != nil {
		writeSection(&buf, sectionMemory, m.encodeMemory())
	}
	if len(m.Globals) > 0 {
		writeSection(&buf, sectionGlobal, m.encodeGlobals())
	}
	if len(m.Exports) > 0 {
		writeSection(&buf, sectionExport, m.encodeExports())
	}
	if len(m.Codes) > 0 {
		writeSection(&buf, sectionCode, m.encodeCodes())
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// EncodeToBytes is a convenience that encodes the module to a byte slice.
func (m *Module) EncodeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Module) encodeTypes() []byte {
	var b bytes.Buffer
	writeU32(&b, uint32(len(m.Types)))
	for _, ft := range m.Types {
		b.WriteByte(0x60) // functype tag
		writeU32(&b, uint32(len(ft.Params)))
		for _, p := range ft.Params {
			b.WriteByte(byte(p))
		}
		writeU32(&b, uint32(len(ft.Results)))
		for _, r := range ft.Results {
			b.WriteByte(byte(r))
		}
	}
	return b.Bytes()
}

func (m *Module) encodeFuncs() []byte {
	var b bytes.Buffer
	writeU32(&b, uint32(len(m.Funcs)))
	for _, tidx := range m.Funcs {
		writeU32(&b, tidx)
	}
	return b.Bytes()
}

func (m *Module) encodeMemory() []byte {
	var b bytes.Buffer
	writeU32(&b, 1) // one memory
	if m.Memory.HasMax {
		b.WriteByte(0x01)
		writeU32(&b, m.Memory.Min)
		writeU32(&b, m.Memory.Max)
	} else {
		b.WriteByte(0x00)
		writeU32(&b, m.Memory.Min)
	}
	return b.Bytes()
}

func (m *Module) encodeGlobals() []byte {
	var b bytes.Buffer
	writeU32(&b, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		b.WriteByte(byte(g.Type))
		if g.Mutable {
			b.WriteByte(0x01)
		} else {
			b.WriteByte(0x00)
		}
		// Initializer expression: i32.const <init> end
		b.WriteByte(byte(OpI32Const))
		writeS32(&b, g.Init)
		b.WriteByte(byte(OpEnd))
	}
	return b.Bytes()
}

func (m *Module) encodeExports() []byte {
	var b bytes.Buffer
	writeU32(&b, uint32(len(m.Exports)))
	for _, e := range m.Exports {
		writeName(&b, e.Name)
		b.WriteByte(byte(e.Kind))
		writeU32(&b, e.Index)
	}
	return b.Bytes()
}

func (m *Module) encodeCodes() []byte {
	var b bytes.Buffer
	writeU32(&b, uint32(len(m.Codes)))
	for _, c := range m.Codes {
		entry := encodeCode(c)
		writeU32(&b, uint32(len(entry)))
		b.Write(entry)
	}
	return b.Bytes()
}

func encodeCode(c Code) []byte {
	var b bytes.Buffer
	writeU32(&b, uint32(len(c.Locals)))
	for _, l := range c.Locals {
		writeU32(&b, l.Count)
		b.WriteByte(byte(l.Type))
	}
	for _, inst := range c.Body {
		encodeInst(&b, inst)
	}
	b.WriteByte(byte(OpEnd))
	return b.Bytes()
}

// encodeInst writes one instruction: the opcode byte plus its immediates.
func encodeInst(buf *bytes.Buffer, inst Inst) {
	buf.WriteByte(byte(inst.Op))
	switch inst.Op.imm() {
	case immI32:
		writeS32(buf, inst.Val)
	case immIndex:
		writeU32(buf, uint32(inst.Val))
	case immMem:
		writeU32(buf, inst.Align)
		writeU32(buf, inst.Offset)
	case immBlock:
		buf.WriteByte(byte(inst.Block))
	}
}

func writeSection(buf *bytes.Buffer, id byte, body []byte) {
	buf.WriteByte(id)
	writeU32(buf, uint32(len(body)))
	buf.Write(body)
}

// writeU32 writes an unsigned LEB128 value.
func writeU32(buf *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// writeS32 writes a signed LEB128 value.
func writeS32(buf *bytes.Buffer, v int32) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

// writeName writes a length-prefixed UTF-8 name.
func writeName(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}
