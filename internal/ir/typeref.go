package ir

import "github.com/ShitVM/ShitAsm/internal/bytefile"

// TypeRefKind tags what a TypeRef names.
type TypeRefKind int

const (
	RefFundamental TypeRefKind = iota
	RefStructure
	RefArray
)

// TypeRef is a type expression resolved during parsing, kept in a form
// that doesn't depend on any one byte-file's TypeIndex space. A field
// declared in one compile unit can be referenced from an importing unit's
// byte-file, which has its own, separate type table; TypeRef
// is what lets the importer rebuild an equivalent TypeIndex in its own
// table instead of reusing a foreign one.
type TypeRef struct {
	Kind        TypeRefKind
	Fundamental bytefile.Fundamental // valid iff Kind == RefFundamental
	DefinedIn   string               // canonical path of the defining unit; "" means "this unit"
	StructName  string               // valid iff Kind == RefStructure
	Elem        *TypeRef             // valid iff Kind == RefArray
}

func FundamentalRef(f bytefile.Fundamental) TypeRef {
	return TypeRef{Kind: RefFundamental, Fundamental: f}
}

func StructureRef(definedIn, name string) TypeRef {
	return TypeRef{Kind: RefStructure, DefinedIn: definedIn, StructName: name}
}

func ArrayRef(elem TypeRef) TypeRef {
	return TypeRef{Kind: RefArray, Elem: &elem}
}
