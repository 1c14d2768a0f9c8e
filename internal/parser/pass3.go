package parser

import (
	"github.com/ShitVM/ShitAsm/internal/ir"
	"github.com/ShitVM/ShitAsm/internal/token"
)

// runPass3 parses structure fields; function
// bodies are still untouched here.
func (p *Parser) runPass3() {
	p.forEachLine(func(lead token.Token) {
		switch {
		case lead.Kind == token.KwImport:
			p.skipLine()
		case lead.Kind == token.KwStruct:
			p.switchToStruct()
		case lead.Kind == token.KwFunc || lead.Kind == token.KwProc:
			p.switchToFunction()
		case lead.Kind == token.Identifier && p.cur.peekAt(1).Kind == token.Colon:
			p.cur.next()
			p.cur.next()
		default:
			if p.curStruct != nil {
				p.parseField()
			} else {
				p.skipLine() // instruction line; not pass 3's concern
			}
		}
	})
}

// parseField parses "type IDENT": type := DOTTED ['[' UINT ']'].
func (p *Parser) parseField() {
	startLine := p.cur.peek().Line
	typeWord, ok := parseTypeWord(p.cur)
	if !ok {
		p.sink.Error(startLine, "expected a type expression")
		return
	}
	ref, ok := p.resolveType(typeWord, startLine)
	if !ok {
		return
	}

	isArray := false
	var arrayLen int64
	if p.cur.peek().Kind == token.LBracket {
		isArray = true
		p.cur.next()
		lenTok := p.cur.next()
		if !lenTok.Kind.IsIntLiteral() {
			p.sink.Error(lenTok.Line, "expected an integer array length")
		} else {
			arrayLen = int64(lenTok.Integer)
		}
		rb := p.cur.next()
		if rb.Kind != token.RBracket {
			p.sink.Error(rb.Line, "expected ']' after array length")
		}
	}

	nameTok := p.cur.next()
	if nameTok.Kind != token.Identifier {
		p.sink.Error(nameTok.Line, "expected a field name")
		return
	}

	if isArray && arrayLen == 0 {
		p.sink.Error(nameTok.Line, "array's length required")
		return
	}
	if _, exists := p.curStruct.FieldByName(nameTok.Word); exists {
		p.sink.Error(nameTok.Line, "duplicated field name '%s'", nameTok.Word)
		return
	}

	fieldType := ref
	if isArray {
		fieldType = ir.ArrayRef(ref)
	}
	tIdx := p.typeIndex(fieldType)
	bld := p.structBuilders[p.curStruct]
	fIdx := bld.AddField(tIdx)

	p.curStruct.Fields = append(p.curStruct.Fields, ir.Field{
		Name: nameTok.Word, Index: fIdx, Type: ref, IsArray: isArray, ArrayLen: arrayLen,
	})
}
