// Package bytefile is the concrete stand-in for the opaque byte-file
// backend described as an external collaborator. No such
// standalone library exists in the example corpus, so this is a from-
// scratch, stdlib-only serializer covering exactly what's needed: add
// structure/function/constant, emit instruction, make array type, map
// extern symbol, and serialize to file. See DESIGN.md for why this one
// piece is stdlib rather than a pack dependency.
package bytefile

import "github.com/ShitVM/ShitAsm/internal/opcode"

type StructureIndex uint32
type FieldIndex uint32
type FunctionIndex uint32
type LabelIndex uint32
type LocalVariableIndex uint32
type ConstantIndex uint32
type ExternModuleIndex uint32
type ExternIndex uint32
type MappedIndex uint32
type TypeIndex uint32

// EntrypointIndex is the backend's dedicated entry-point handle; it never
// aliases a regular FunctionIndex, since registration allocates a
// FunctionIndex for every function except entrypoint.
const EntrypointIndex FunctionIndex = ^FunctionIndex(0)

// Kind tags what a Type refers to.
type Kind int

const (
	KindFundamental Kind = iota
	KindStructure
	KindExternStructure
	KindArray
)

// Fundamental enumerates the five built-in scalar/pointer types.
type Fundamental int

const (
	FInt Fundamental = iota
	FLong
	FDouble
	FPointer
	FGCPointer
)

// Type describes a field or operand type: a fundamental type, a
// structure local to this unit, a mapped extern structure, or an array of
// some other Type.
type Type struct {
	Kind         Kind
	Primitive    Fundamental        // valid iff Kind == KindFundamental
	Struct       StructureIndex     // valid iff Kind == KindStructure
	ExternMod    ExternModuleIndex  // valid iff Kind == KindExternStructure
	ExternMapped MappedIndex        // valid iff Kind == KindExternStructure
	Elem         TypeIndex          // valid iff Kind == KindArray
}

// ExternFieldSpec describes one field of an extern structure being
// registered with AddExternModule(...).AddStructure.
type ExternFieldSpec struct {
	Name string
	Type TypeIndex
}

// StructureBuilder is the handle AddStructure returns.
type StructureBuilder interface {
	Index() StructureIndex
	AddField(t TypeIndex) FieldIndex
}

// ExternModuleBuilder is the handle AddExternModule returns.
type ExternModuleBuilder interface {
	Index() ExternModuleIndex
	AddStructure(name string, fields []ExternFieldSpec) ExternIndex
	AddFunction(name string, arity int, hasResult bool) ExternIndex
}

// Builder is the per-function sink for instructions: one method per
// opcode family, plus label/local/argument bookkeeping.
type Builder interface {
	ReserveLabel(name string) LabelIndex
	AddLabel(name string)
	AddLocalVariable() LocalVariableIndex
	GetArgument(i int) LocalVariableIndex

	Emit0(op opcode.Opcode)
	PushInt(c ConstantIndex)
	PushLong(c ConstantIndex)
	PushDouble(c ConstantIndex)
	PushType(t TypeIndex)
	Load(v LocalVariableIndex)
	Lea(v LocalVariableIndex)
	Store(v LocalVariableIndex)
	FLea(f FieldIndex)
	FLeaExtern(mod ExternModuleIndex, m MappedIndex, f FieldIndex)
	Jump(op opcode.Opcode, l LabelIndex)
	Call(fn FunctionIndex)
	CallExtern(mod ExternModuleIndex, m MappedIndex)
	NewType(op opcode.Opcode, t TypeIndex)
}

// ByteFile is the opaque backend the parser's emission glue drives.
type ByteFile interface {
	AddStructure(name string) StructureBuilder
	AddFunction(name string, arity int, hasResult bool) FunctionIndex
	Entrypoint() Builder
	BuilderFor(fn FunctionIndex) Builder

	AddIntConstant(v uint32) ConstantIndex
	AddLongConstant(v uint64) ConstantIndex
	AddDoubleConstant(v float64) ConstantIndex

	AddExternModule(path string) ExternModuleBuilder
	Map(mod ExternModuleIndex, extern ExternIndex) MappedIndex

	GetTypeIndex(t Type) TypeIndex
	MakeArray(elem TypeIndex) TypeIndex

	Generate(outputPath string) error
}
