package ir

import (
	"strings"

	"github.com/ShitVM/ShitAsm/internal/bytefile"
)

// Name is a parsed dotted identifier, split one of two ways depending on
// context: "ns.Type" splits at the last dot, "ns.Struct.field"
// splits at the second-to-last dot.
type Name struct {
	Namespace  string
	Identifier string
	Full       string
}

// SplitLastDot parses "full" by splitting at the last '.', used for
// "ns.Type"-shaped references.
func SplitLastDot(full string) Name {
	i := strings.LastIndexByte(full, '.')
	if i < 0 {
		return Name{Identifier: full, Full: full}
	}
	return Name{Namespace: full[:i], Identifier: full[i+1:], Full: full}
}

// SplitSecondToLastDot parses "full" by splitting at the second-to-last
// '.', used for "ns.Struct.field"-shaped references; the namespace half
// may itself still contain a dot for nested namespaces and is resolved by
// the caller against the dependency graph.
func SplitSecondToLastDot(full string) Name {
	i := strings.LastIndexByte(full, '.')
	if i < 0 {
		return Name{Identifier: full, Full: full}
	}
	j := strings.LastIndexByte(full[:i], '.')
	if j < 0 {
		return Name{Identifier: full, Full: full}
	}
	return Name{Namespace: full[:j], Identifier: full[j+1:], Full: full}
}

// fundamentalTable resolves a bare identifier to one of the five built-in
// types, checked before any structure lookup. It reuses
// bytefile.Fundamental directly rather than mirroring it with a parallel
// enum, since TypeRef.Fundamental already needs that exact type.
var fundamentalTable = map[string]bytefile.Fundamental{
	"int":       bytefile.FInt,
	"long":      bytefile.FLong,
	"double":    bytefile.FDouble,
	"pointer":   bytefile.FPointer,
	"gcpointer": bytefile.FGCPointer,
}

// LookupFundamental resolves a bare identifier against the fixed
// fundamental-type table.
func LookupFundamental(ident string) (bytefile.Fundamental, bool) {
	t, ok := fundamentalTable[ident]
	return t, ok
}
