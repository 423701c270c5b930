package compiler

import "github.com/paiml/ruchy-wasm/ast"

// symtab assigns flat local slots within one function body. Parameters
// occupy slots 0..n-1; every bound identifier and every compiler
// temporary gets one fresh i32 slot after that. Slots are never reused,
// so rebinding a name shadows the old slot, and the allocator's base
// temporaries survive nested constructor evaluation.
type symtab struct {
	byName map[string]uint32
	params uint32
	count  uint32
}

func newSymtab(params []ast.Param) *symtab {
	s := &symtab{byName: make(map[string]uint32)}
	for _, p := range params {
		s.byName[p.Name] = s.count
		s.count++
	}
	s.params = s.count
	return s
}

// bind allocates a fresh slot for name and returns its index.
func (s *symtab) bind(name string) uint32 {
	idx := s.count
	s.count++
	s.byName[name] = idx
	return idx
}

// lookup returns the slot currently bound to name.
func (s *symtab) lookup(name string) (uint32, bool) {
	idx, ok := s.byName[name]
	return idx, ok
}

// temp allocates a fresh anonymous slot.
func (s *symtab) temp() uint32 {
	idx := s.count
	s.count++
	return idx
}

// extras returns how many slots were allocated beyond the parameters.
func (s *symtab) extras() uint32 {
	return s.count - s.params
}
