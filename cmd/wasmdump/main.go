// Command wasmdump decodes a .wasm binary produced by the compiler and
// prints its sections and a disassembly of every function body.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/paiml/ruchy-wasm/wasm"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: wasmdump <file.wasm>\n")
		os.Exit(2)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}
	m, err := wasm.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("file size: %d bytes\n", len(data))

	fmt.Printf("types: %d\n", len(m.Types))
	for i, t := range m.Types {
		fmt.Printf("  type[%d]: %s\n", i, sigString(t))
	}

	if m.Memory != nil {
		if m.Memory.HasMax {
			fmt.Printf("memory: min=%d max=%d pages\n", m.Memory.Min, m.Memory.Max)
		} else {
			fmt.Printf("memory: min=%d pages\n", m.Memory.Min)
		}
	}

	fmt.Printf("globals: %d\n", len(m.Globals))
	for i, g := range m.Globals {
		mut := "const"
		if g.Mutable {
			mut = "mut"
		}
		fmt.Printf("  global[%d]: %s %s = %d\n", i, mut, g.Type, g.Init)
	}

	fmt.Printf("exports: %d\n", len(m.Exports))
	for _, e := range m.Exports {
		fmt.Printf("  %s %q -> %d\n", kindName(e.Kind), e.Name, e.Index)
	}

	fmt.Printf("functions: %d\n", len(m.Funcs))
	for i, typeIdx := range m.Funcs {
		fmt.Printf("func[%d] %s\n", i, sigString(m.Types[typeIdx]))
		code := m.Codes[i]
		for _, l := range code.Locals {
			fmt.Printf("  locals: %d x %s\n", l.Count, l.Type)
		}
		depth := 1
		for pc, inst := range code.Body {
			switch inst.Op {
			case wasm.OpEnd, wasm.OpElse:
				if depth > 1 {
					depth--
				}
			}
			fmt.Printf("  [%3d] %s%s\n", pc, strings.Repeat("  ", depth-1), inst.String())
			switch inst.Op {
			case wasm.OpBlock, wasm.OpLoop, wasm.OpIf, wasm.OpElse:
				depth++
			}
		}
	}
}

func sigString(t wasm.FuncType) string {
	var b strings.Builder
	b.WriteString("(")
	for i, p := range t.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(")")
	for _, r := range t.Results {
		b.WriteString(" -> ")
		b.WriteString(r.String())
	}
	return b.String()
}

func kindName(k wasm.ExportKind) string {
	switch k {
	case wasm.ExportFunc:
		return "func"
	case wasm.ExportTable:
		return "table"
	case wasm.ExportMemory:
		return "memory"
	case wasm.ExportGlobal:
		return "global"
	}
	return "???"
}
