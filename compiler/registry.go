package compiler

import "github.com/paiml/ruchy-wasm/ast"

// Registry maps each record type name to its ordered field list. The
// order recorded here, not the order fields are written in a literal,
// fixes byte offsets: field i of type T lives at base + i*4.
//
// The registry is built once per compilation unit, before any lowering,
// and is read-only afterwards. Building never fails; lookups that miss
// are reported by the lowering that needed them.
type Registry struct {
	fields map[string][]string
}

// NewRegistry builds the registry from a program's record declarations.
// Field-name uniqueness within one record is the upstream checker's job.
func NewRegistry(prog *ast.Program) *Registry {
	r := &Registry{fields: make(map[string][]string, len(prog.Structs))}
	for _, sd := range prog.Structs {
		r.fields[sd.Name] = sd.Fields
	}
	return r
}

// Fields returns the ordered field list for a record type.
func (r *Registry) Fields(name string) ([]string, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// FieldIndex returns the registry index of field within the named record
// type. The second result is false if the type is unknown, the third if
// the type is known but has no such field.
func (r *Registry) FieldIndex(typeName, field string) (idx int, typeOK, fieldOK bool) {
	fields, ok := r.fields[typeName]
	if !ok {
		return 0, false, false
	}
	for i, f := range fields {
		if f == field {
			return i, true, true
		}
	}
	return 0, true, false
}
