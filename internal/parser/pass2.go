package parser

import (
	"strings"

	"github.com/ShitVM/ShitAsm/internal/token"
)

// runPass2 resolves `import` statements into ExternModule dependencies
// and otherwise just tracks the struct/func context for later passes.
func (p *Parser) runPass2() {
	p.forEachLine(func(lead token.Token) {
		switch {
		case lead.Kind == token.KwImport:
			p.resolveImport()
		case lead.Kind == token.KwStruct:
			p.switchToStruct()
		case lead.Kind == token.KwFunc || lead.Kind == token.KwProc:
			p.switchToFunction()
		case lead.Kind == token.Identifier && p.cur.peekAt(1).Kind == token.Colon:
			p.cur.next()
			p.cur.next()
		default:
			p.skipLine() // field or instruction line; not pass 2's concern
		}
	})
}

// switchToStruct re-enters an already-declared structure's context on
// later passes; it consumes the whole header line (name plus trailing
// ':') since forEachLine's finishLine flags anything left over as a
// syntax error.
func (p *Parser) switchToStruct() {
	p.cur.next() // 'struct'
	name := p.cur.next()
	if p.cur.peek().Kind == token.Colon {
		p.cur.next()
	}
	s, ok := p.asm.StructByName(name.Word)
	if !ok {
		return
	}
	p.curStruct = s
	p.curFunc = nil
}

// switchToFunction re-enters an already-declared func/proc's context,
// consuming the optional parameter list and trailing ':' the same way
// declareFunction did in pass 1.
func (p *Parser) switchToFunction() {
	p.cur.next() // 'func'/'proc'
	name := p.cur.next()
	if p.cur.peek().Kind == token.LParen {
		depth := 0
		for {
			t := p.cur.next()
			if t.Kind == token.LParen {
				depth++
			} else if t.Kind == token.RParen {
				depth--
				if depth == 0 {
					break
				}
			} else if t.Kind == token.NewLine || t.Kind == token.EOF {
				p.cur.putBack()
				break
			}
		}
	}
	if p.cur.peek().Kind == token.Colon {
		p.cur.next()
	}
	fn, ok := p.asm.FuncByName(name.Word)
	if !ok {
		return
	}
	p.curFunc = fn
	p.curStruct = nil
}

func parseDotted(c *cursor) string {
	var sb strings.Builder
	first := c.next()
	sb.WriteString(first.Word)
	for c.peek().Kind == token.Dot && c.peekAt(1).Kind == token.Identifier {
		c.next()
		part := c.next()
		sb.WriteByte('.')
		sb.WriteString(part.Word)
	}
	return sb.String()
}

func (p *Parser) resolveImport() {
	kw := p.cur.next() // 'import'
	pathTok := p.cur.next()
	if pathTok.Kind != token.String {
		p.sink.Error(kw.Line, "expected a string literal path after 'import'")
		return
	}
	asTok := p.cur.next()
	if asTok.Kind != token.KwAs {
		p.sink.Error(asTok.Line, "expected 'as' in import statement")
		return
	}
	ns := parseDotted(p.cur)
	if ns == "" {
		p.sink.Error(kw.Line, "expected a namespace after 'as'")
		return
	}
	if _, exists := p.asm.DepByNamespace(ns); exists {
		p.sink.Error(kw.Line, "duplicate import namespace '%s'", ns)
		return
	}

	mod, err := p.loader.Load(p.bf, pathTok.Text, ns, p.depth, p.searchDirs, p.sink)
	if err != nil {
		p.sink.Error(kw.Line, "%s", err.Error())
		return
	}
	for _, d := range p.asm.Dependencies {
		if d.Path == mod.Path {
			p.sink.Error(kw.Line, "duplicate import of '%s'", mod.Path)
			return
		}
	}
	p.asm.Dependencies = append(p.asm.Dependencies, mod)
}
