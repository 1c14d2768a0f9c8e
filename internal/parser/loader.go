package parser

import (
	"github.com/ShitVM/ShitAsm/internal/bytefile"
	"github.com/ShitVM/ShitAsm/internal/diag"
	"github.com/ShitVM/ShitAsm/internal/ir"
)

// Loader resolves and recursively compiles an `import "path" as ns`
// statement. Implemented by internal/pipeline, which owns
// filesystem access and the depth-bounded recursive compile; the parser
// itself never touches the filesystem.
type Loader interface {
	Load(bf bytefile.ByteFile, rawPath, namespace string, importerDepth int, searchDirs []string, sink *diag.Sink) (*ir.ExternModule, error)
}
