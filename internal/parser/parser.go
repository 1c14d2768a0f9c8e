// Package parser implements the four-pass resolver: one left-to-right
// traversal of the token stream per pass, each enabling a different
// subset of productions, transitioning a small Top/InStruct/InFunc state
// machine as struct/func headers go by.
package parser

import (
	"github.com/ShitVM/ShitAsm/internal/bytefile"
	"github.com/ShitVM/ShitAsm/internal/diag"
	"github.com/ShitVM/ShitAsm/internal/ir"
	"github.com/ShitVM/ShitAsm/internal/token"
)

// Parser drives the passes for exactly one compile unit (one source
// file's worth of tokens). It holds the single cursor m_Token-equivalent
// plus the two nullable contexts its state machine tracks.
type Parser struct {
	cur  *cursor
	sink *diag.Sink
	bf   bytefile.ByteFile
	asm  *ir.Assembly

	loader     Loader
	depth      int
	searchDirs []string
	unitPath   string
	isRoot     bool

	curStruct *ir.Structure
	curFunc   *ir.Function

	structBuilders map[*ir.Structure]bytefile.StructureBuilder
}

// New creates a parser for one compile unit. unitPath records the unit's
// canonical path; the parser does not read it (diagnostics carry the
// sink's file, and import cycles are detected by the Loader). depth
// selects which passes Run executes.
func New(toks []token.Token, sink *diag.Sink, bf bytefile.ByteFile, loader Loader, depth int, searchDirs []string, unitPath string) *Parser {
	return &Parser{
		cur:            newCursor(toks),
		sink:           sink,
		bf:             bf,
		asm:            ir.New(bf),
		loader:         loader,
		depth:          depth,
		searchDirs:     searchDirs,
		unitPath:       unitPath,
		isRoot:         depth == 0,
		structBuilders: make(map[*ir.Structure]bytefile.StructureBuilder),
	}
}

// Run executes the passes appropriate to p.depth and returns the
// resulting Assembly:
//
//	depth 0 (root):        passes 1, 2, 3, 4
//	depth 1 (direct import): passes 1, 2, 3 (public surface only)
//	depth >= 2:              pass 1 only (prototypes only)
func (p *Parser) Run() *ir.Assembly {
	p.runPass1()
	if p.isRoot {
		p.checkEntrypoint()
	}
	if p.depth <= 1 {
		p.runPass2()
		p.runPass3()
	}
	if p.depth == 0 {
		p.buildBuilders()
		p.runPass4()
	}
	return p.asm
}

func (p *Parser) checkEntrypoint() {
	if _, ok := p.asm.Entrypoint(); !ok {
		p.sink.Error(p.cur.lastLine(), "no entrypoint procedure")
	}
}

// forEachLine resets the cursor and the struct/func context at the start
// of each pass, then repeatedly
// dispatches each logical line to handle, skipping to (and consuming) the
// next NewLine/EOF afterwards and flagging any tokens handle() left
// unconsumed before it.
func (p *Parser) forEachLine(handle func(lead token.Token)) {
	p.cur.reset()
	p.curStruct = nil
	p.curFunc = nil
	for !p.cur.atEnd() {
		lead := p.cur.peek()
		if lead.Kind == token.NewLine {
			p.cur.next()
			continue
		}
		start := p.cur.pos
		handle(lead)
		p.finishLine(start)
	}
}

func (p *Parser) finishLine(lineStartPos int) {
	tk := p.cur.peek()
	if tk.Kind != token.NewLine && tk.Kind != token.EOF {
		p.sink.Error(tk.Line, "unexpected tokens before end-of-line")
		for {
			t := p.cur.peek()
			if t.Kind == token.NewLine || t.Kind == token.EOF {
				break
			}
			p.cur.next()
		}
	}
	if p.cur.peek().Kind == token.NewLine {
		p.cur.next()
	}
	_ = lineStartPos
}

// skipLine discards every token up to (not including) the next NewLine or
// EOF, for lines a given pass intentionally does nothing with (e.g. import
// statements outside pass 2, field declarations outside passes 3, and
// instructions outside pass 4). Passes that do act on a line are expected
// to consume it in full themselves; forEachLine's finishLine treats
// anything a handler leaves behind as a genuine syntax error.
func (p *Parser) skipLine() {
	for {
		t := p.cur.peek()
		if t.Kind == token.NewLine || t.Kind == token.EOF {
			return
		}
		p.cur.next()
	}
}

// requireStruct reports an error and returns false if no structure is
// currently open.
func (p *Parser) requireStruct(line uint32) bool {
	if p.curStruct == nil {
		p.sink.Error(line, "not inside a structure")
		return false
	}
	return true
}

// requireFunc reports an error and returns false if no function is
// currently open.
func (p *Parser) requireFunc(line uint32) bool {
	if p.curFunc == nil {
		p.sink.Error(line, "not inside a function or procedure")
		return false
	}
	return true
}
