// Package ir is the in-memory intermediate representation the parser
// builds: structures, functions, labels, locals, and the dependency graph
// introduced by imports.
//
// Structures and functions are kept in ordered slices rather than maps:
// insertion order drives both diagnostic reproducibility and the backend's
// field/label/parameter ordering, and lookup is a deliberate
// linear scan to preserve first-match-wins semantics, the way the
// first-match symbol table of a comparable assembler does.
package ir

import "github.com/ShitVM/ShitAsm/internal/bytefile"

// Field belongs to exactly one Structure.
type Field struct {
	Name     string
	Index    bytefile.FieldIndex
	Type     TypeRef
	IsArray  bool
	ArrayLen int64
}

// Structure is a user-defined aggregate type.
type Structure struct {
	Name    string
	Index   bytefile.StructureIndex
	Fields  []Field
	Extern  *bytefile.ExternIndex // set iff parsed from an imported module
	Mapped  *bytefile.MappedIndex // set lazily on first use by the importer
}

// FieldByName performs the linear, first-match-wins lookup field
// resolution requires.
func (s *Structure) FieldByName(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Label is reserved (name-only) at pass 1; its byte offset is bound
// during instruction emission in the final pass.
type Label struct {
	Name  string
	Index bytefile.LabelIndex
}

// LocalVariable covers both declared parameters (the first ParamCount
// slots) and locals allocated on first store to an unknown name.
type LocalVariable struct {
	Name  string
	Index bytefile.LocalVariableIndex
}

// Function is a func/proc declaration. Builder is the sole sink for
// instructions, constructed once all prototypes are known (end of pass 1).
type Function struct {
	Name           string
	Index          bytefile.FunctionIndex
	IsEntrypoint   bool
	ParamCount     int
	HasResult      bool
	Builder        bytefile.Builder
	Labels         []Label
	LocalVariables []LocalVariable
	Extern         *bytefile.ExternIndex
	Mapped         *bytefile.MappedIndex
}

func (f *Function) LabelByName(name string) (*Label, bool) {
	for i := range f.Labels {
		if f.Labels[i].Name == name {
			return &f.Labels[i], true
		}
	}
	return nil, false
}

func (f *Function) LocalByName(name string) (*LocalVariable, bool) {
	for i := range f.LocalVariables {
		if f.LocalVariables[i].Name == name {
			return &f.LocalVariables[i], true
		}
	}
	return nil, false
}

// ExternModule is another Assembly brought in via import and exposed
// under a namespace.
type ExternModule struct {
	Path      string // canonical absolute path
	Namespace string
	Index     bytefile.ExternModuleIndex
	Assembly  *Assembly
}

// Assembly is one compiled unit's IR plus its backend handle.
type Assembly struct {
	ByteFile     bytefile.ByteFile
	Dependencies []*ExternModule
	Structures   []*Structure
	Functions    []*Function
}

func New(bf bytefile.ByteFile) *Assembly {
	return &Assembly{ByteFile: bf}
}

func (a *Assembly) StructByName(name string) (*Structure, bool) {
	for _, s := range a.Structures {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

func (a *Assembly) FuncByName(name string) (*Function, bool) {
	for _, f := range a.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (a *Assembly) DepByNamespace(ns string) (*ExternModule, bool) {
	for _, d := range a.Dependencies {
		if d.Namespace == ns {
			return d, true
		}
	}
	return nil, false
}

func (a *Assembly) Entrypoint() (*Function, bool) {
	for _, f := range a.Functions {
		if f.IsEntrypoint {
			return f, true
		}
	}
	return nil, false
}
