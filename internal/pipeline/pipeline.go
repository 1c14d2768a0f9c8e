// Package pipeline drives the depth-bounded recursive compile process:
// resolving an import path against the search directories,
// rejecting cycles via the canonical-path call stack, and recursing
// lexer+parser at depth+1 to produce an ExternModule for the importer.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShitVM/ShitAsm/internal/bytefile"
	"github.com/ShitVM/ShitAsm/internal/diag"
	"github.com/ShitVM/ShitAsm/internal/ir"
	"github.com/ShitVM/ShitAsm/internal/lexer"
	"github.com/ShitVM/ShitAsm/internal/parser"
)

// Pipeline implements parser.Loader and owns the only filesystem access in
// the compiler: the parser package itself never opens a file.
type Pipeline struct {
	stack []string // canonical paths currently being compiled, innermost last
}

func New() *Pipeline { return &Pipeline{} }

// Compile lexes and parses the root source file at depth 0.
func (p *Pipeline) Compile(path string, searchDirs []string) (*ir.Assembly, *diag.Sink, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving %q: %w", path, err)
	}
	return p.compileAt(abs, 0, searchDirs)
}

func (p *Pipeline) compileAt(canonical string, depth int, searchDirs []string) (*ir.Assembly, *diag.Sink, error) {
	src, err := os.ReadFile(canonical)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %q: %w", canonical, err)
	}

	sink := diag.NewSink(canonical)
	toks := lexer.Lex(string(src), sink)

	p.stack = append(p.stack, canonical)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()

	bf := bytefile.New()
	ps := parser.New(toks, sink, bf, p, depth, searchDirs, canonical)
	asm := ps.Run()
	return asm, sink, nil
}

// Load implements parser.Loader. It resolves rawPath, checks
// the path isn't already on the compile stack (cycle detection), recurses
// the pipeline at importerDepth+1, and registers every structure/function
// the nested assembly exposes as an extern declaration against bf.
func (p *Pipeline) Load(bf bytefile.ByteFile, rawPath, namespace string, importerDepth int, searchDirs []string, sink *diag.Sink) (*ir.ExternModule, error) {
	canonical, err := p.resolvePath(rawPath, searchDirs, sink)
	if err != nil {
		return nil, err
	}
	for _, s := range p.stack {
		if s == canonical {
			return nil, fmt.Errorf("cyclic import of '%s'", rawPath)
		}
	}

	nestedAsm, nestedSink, err := p.compileAt(canonical, importerDepth+1, searchDirs)
	if err != nil {
		return nil, err
	}
	sink.Merge(nestedSink)

	mb := bf.AddExternModule(canonical)
	for _, s := range nestedAsm.Structures {
		specs := make([]bytefile.ExternFieldSpec, 0, len(s.Fields))
		for _, f := range s.Fields {
			fieldType := externFieldType(bf, f.Type)
			if f.IsArray {
				fieldType = bf.MakeArray(fieldType)
			}
			specs = append(specs, bytefile.ExternFieldSpec{Name: f.Name, Type: fieldType})
		}
		extern := mb.AddStructure(s.Name, specs)
		s.Extern = &extern
	}
	for _, fn := range nestedAsm.Functions {
		if fn.IsEntrypoint {
			continue
		}
		extern := mb.AddFunction(fn.Name, fn.ParamCount, fn.HasResult)
		fn.Extern = &extern
	}

	return &ir.ExternModule{Path: canonical, Namespace: namespace, Index: mb.Index(), Assembly: nestedAsm}, nil
}

// externFieldType converts a nested unit's field TypeRef into a TypeIndex
// inside the importer's byte-file. Fundamentals and arrays thereof convert
// directly; a field typed as another structure (extern-of-extern) falls
// back to an opaque GCPointer slot, since this backend's encoding is never
// executed and a full transitive extern-of-extern field layout would only
// add bookkeeping with no observable effect (see DESIGN.md).
func externFieldType(bf bytefile.ByteFile, ref ir.TypeRef) bytefile.TypeIndex {
	switch ref.Kind {
	case ir.RefFundamental:
		return bf.GetTypeIndex(bytefile.Type{Kind: bytefile.KindFundamental, Primitive: ref.Fundamental})
	case ir.RefArray:
		return bf.MakeArray(externFieldType(bf, *ref.Elem))
	default:
		return bf.GetTypeIndex(bytefile.Type{Kind: bytefile.KindFundamental, Primitive: bytefile.FGCPointer})
	}
}

// resolvePath implements the three import-path forms. Both the
// canonical "/std/x" spelling and the deprecated bare "std/x" spelling
// join to the same "searchDir/std/x" candidate, which is how this
// implementation realizes "the /std/ prefix is stripped for the canonical
// record": the two spellings converge on one disk path instead of being
// textually rewritten.
func (p *Pipeline) resolvePath(rawPath string, searchDirs []string, sink *diag.Sink) (string, error) {
	switch {
	case strings.HasPrefix(rawPath, "/"):
		return resolveSystemPath(strings.TrimPrefix(rawPath, "/"), searchDirs)
	case strings.HasPrefix(rawPath, "std/"):
		sink.Warning(0, "import path '%s' is deprecated, use '/%s' instead", rawPath, rawPath)
		return resolveSystemPath(rawPath, searchDirs)
	default:
		abs, err := filepath.Abs(rawPath)
		if err != nil {
			return "", fmt.Errorf("resolving import %q: %w", rawPath, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("cannot find imported file '%s'", rawPath)
		}
		return filepath.Clean(abs), nil
	}
}

func resolveSystemPath(rest string, searchDirs []string) (string, error) {
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, rest)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("cannot find imported file '%s' on any of %d search directories", rest, len(searchDirs))
}
