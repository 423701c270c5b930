package compiler

import (
	"fmt"

	"github.com/paiml/ruchy-wasm/ast"
)

// Kind classifies compilation failures. The first five are input errors
// detected at the offending AST node; AssemblyError is an internal
// post-condition failure and never attributable to the input program.
type Kind int

const (
	UnknownField Kind = iota
	UnknownStruct
	ArityMismatch
	InvalidPattern
	InvalidAccess
	AssemblyError
)

var kindNames = [...]string{
	UnknownField:   "unknown field",
	UnknownStruct:  "unknown struct",
	ArityMismatch:  "arity mismatch",
	InvalidPattern: "invalid pattern",
	InvalidAccess:  "invalid access",
	AssemblyError:  "assembly error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown error"
}

// Error is a compilation failure carrying the offending expression's
// position. Compilation stops at the first one (fail-fast, no partial
// artifact).
type Error struct {
	Kind Kind
	Pos  ast.Pos
	Msg  string
}

func (e *Error) Error() string {
	if e.Kind == AssemblyError {
		return fmt.Sprintf("internal: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

func errf(kind Kind, pos ast.Pos, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
