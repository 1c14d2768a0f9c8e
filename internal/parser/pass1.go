package parser

import (
	"github.com/ShitVM/ShitAsm/internal/bytefile"
	"github.com/ShitVM/ShitAsm/internal/ir"
	"github.com/ShitVM/ShitAsm/internal/token"
)

// runPass1 declares structure and function prototypes and reserves
// labels by name.
func (p *Parser) runPass1() {
	p.forEachLine(func(lead token.Token) {
		switch {
		case lead.Kind == token.KwImport:
			p.skipLine() // handled in pass 2
		case lead.Kind == token.KwStruct:
			p.declareStructure()
		case lead.Kind == token.KwFunc || lead.Kind == token.KwProc:
			p.declareFunction(lead.Kind == token.KwProc)
		case lead.Kind == token.Identifier && p.cur.peekAt(1).Kind == token.Colon:
			p.reserveLabel()
		default:
			p.skipLine() // field or instruction line; not pass 1's concern
		}
	})
}

func (p *Parser) declareStructure() {
	kw := p.cur.next() // 'struct'
	name := p.cur.next()
	if name.Kind != token.Identifier {
		p.sink.Error(kw.Line, "expected structure name after 'struct'")
		return
	}
	if _, exists := p.asm.StructByName(name.Word); exists {
		p.sink.Error(name.Line, "duplicated structure name '%s'", name.Word)
		return
	}
	colon := p.cur.next()
	if colon.Kind != token.Colon {
		p.sink.Error(colon.Line, "expected ':' after structure name")
	}
	bld := p.bf.AddStructure(name.Word)
	s := &ir.Structure{Name: name.Word, Index: bld.Index()}
	p.asm.Structures = append(p.asm.Structures, s)
	p.structBuilders[s] = bld
	p.curStruct = s
	p.curFunc = nil
}

func (p *Parser) declareFunction(isProc bool) {
	kw := p.cur.next() // 'func' or 'proc'
	name := p.cur.next()
	if name.Kind != token.Identifier {
		p.sink.Error(kw.Line, "expected function name")
		return
	}
	if _, exists := p.asm.FuncByName(name.Word); exists {
		p.sink.Error(name.Line, "duplicated function name '%s'", name.Word)
		return
	}

	var params []string
	if p.cur.peek().Kind == token.LParen {
		p.cur.next()
		for {
			if p.cur.peek().Kind == token.RParen {
				p.cur.next()
				break
			}
			if len(params) > 0 {
				if p.cur.peek().Kind != token.Comma {
					p.sink.Error(p.cur.peek().Line, "expected ',' or ')' in parameter list")
					break
				}
				p.cur.next()
			}
			pn := p.cur.next()
			if pn.Kind != token.Identifier {
				p.sink.Error(pn.Line, "expected parameter name")
				break
			}
			params = append(params, pn.Word)
		}
	}

	colon := p.cur.next()
	if colon.Kind != token.Colon {
		p.sink.Error(colon.Line, "expected ':' after function header")
	}

	if dup := firstDuplicate(params); dup != "" {
		p.sink.Error(name.Line, "duplicated parameter name '%s'", dup)
	}

	isEntry := name.Word == "entrypoint"
	hasResult := !isProc
	if isEntry {
		if !isProc {
			p.sink.Error(name.Line, "entrypoint must be declared with 'proc'")
		}
		hasResult = false
	}

	var idx bytefile.FunctionIndex
	if isEntry {
		idx = bytefile.EntrypointIndex
	} else {
		idx = p.bf.AddFunction(name.Word, len(params), hasResult)
	}

	fn := &ir.Function{
		Name: name.Word, Index: idx, IsEntrypoint: isEntry,
		ParamCount: len(params), HasResult: hasResult,
	}
	for _, pn := range params {
		fn.LocalVariables = append(fn.LocalVariables, ir.LocalVariable{Name: pn})
	}
	p.asm.Functions = append(p.asm.Functions, fn)
	p.curFunc = fn
	p.curStruct = nil
}

func (p *Parser) reserveLabel() {
	name := p.cur.next()
	p.cur.next() // ':'
	if !p.requireFunc(name.Line) {
		return
	}
	if _, exists := p.curFunc.LabelByName(name.Word); exists {
		p.sink.Error(name.Line, "duplicated label name '%s'", name.Word)
		return
	}
	p.curFunc.Labels = append(p.curFunc.Labels, ir.Label{Name: name.Word})
}

func firstDuplicate(names []string) string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return n
		}
		seen[n] = true
	}
	return ""
}

// buildBuilders creates one builder per function (the dedicated
// entry-point builder for entrypoint), registers each reserved label
// against it to obtain its final LabelIndex, and binds each parameter
// name to its argument slot.
func (p *Parser) buildBuilders() {
	for _, fn := range p.asm.Functions {
		var b bytefile.Builder
		if fn.IsEntrypoint {
			b = p.bf.Entrypoint()
		} else {
			b = p.bf.BuilderFor(fn.Index)
		}
		fn.Builder = b
		for i := 0; i < fn.ParamCount; i++ {
			fn.LocalVariables[i].Index = b.GetArgument(i)
		}
		for i := range fn.Labels {
			fn.Labels[i].Index = b.ReserveLabel(fn.Labels[i].Name)
		}
	}
}
