package parser

import (
	"strings"

	"github.com/ShitVM/ShitAsm/internal/bytefile"
	"github.com/ShitVM/ShitAsm/internal/ir"
	"github.com/ShitVM/ShitAsm/internal/opcode"
	"github.com/ShitVM/ShitAsm/internal/token"
)

// runPass4 binds labels to their builder offset and emits instruction
// bodies.
func (p *Parser) runPass4() {
	p.forEachLine(func(lead token.Token) {
		switch {
		case lead.Kind == token.KwImport:
			p.skipLine()
		case lead.Kind == token.KwStruct:
			p.switchToStruct()
		case lead.Kind == token.KwFunc || lead.Kind == token.KwProc:
			p.switchToFunction()
		case lead.Kind == token.Identifier && p.cur.peekAt(1).Kind == token.Colon:
			p.bindLabel()
		default:
			if p.curFunc != nil {
				p.parseInstruction()
			} else {
				p.skipLine() // field line; not pass 4's concern
			}
		}
	})
}

func (p *Parser) bindLabel() {
	name := p.cur.next()
	p.cur.next() // ':'
	if !p.requireFunc(name.Line) {
		return
	}
	p.curFunc.Builder.AddLabel(name.Word)
}

func (p *Parser) parseInstruction() {
	opTok := p.cur.next()
	if opTok.Kind != token.Identifier {
		p.sink.Error(opTok.Line, "expected an instruction mnemonic")
		return
	}
	if !p.requireFunc(opTok.Line) {
		return
	}
	if strings.EqualFold(opTok.Word, "string32") {
		p.parseString32(opTok.Line)
		return
	}
	op, ok := opcode.Lookup(opTok.Word)
	if !ok {
		p.sink.Error(opTok.Line, "unknown instruction '%s'", opTok.Word)
		return
	}
	b := p.curFunc.Builder
	switch opcode.ClassOf(op) {
	case opcode.ClassNone:
		b.Emit0(op)
	case opcode.ClassPush:
		p.parsePush()
	case opcode.ClassLoadLea:
		p.parseLoadLea(op)
	case opcode.ClassStore:
		p.parseStore()
	case opcode.ClassFLea:
		p.parseFLea()
	case opcode.ClassJump:
		p.parseJump(op)
	case opcode.ClassCall:
		p.parseCall()
	case opcode.ClassNewType:
		p.parseNewType(op, opTok.Word)
	case opcode.ClassArrayNewType:
		p.parseArrayNewType(op)
	}
}

func (p *Parser) parsePush() {
	line := p.cur.peek().Line
	neg := false
	if p.cur.peek().Kind == token.Minus {
		neg = true
		p.cur.next()
	}
	tok := p.cur.peek()
	if tok.Kind == token.Decimal {
		p.cur.next()
		v := tok.Real
		if neg {
			v = -v
		}
		c := p.bf.AddDoubleConstant(v)
		p.curFunc.Builder.PushDouble(c)
		return
	}
	if tok.Kind.IsIntLiteral() {
		p.cur.next()
		p.pushInteger(tok, neg, line)
		return
	}
	if neg {
		p.sink.Error(line, "expected a number after '-'")
		return
	}
	typeWord, ok := parseTypeWord(p.cur)
	if !ok {
		p.sink.Error(line, "expected a number or type name after 'push'")
		return
	}
	ref, ok := p.resolveType(typeWord, line)
	if !ok {
		return
	}
	tIdx := p.typeIndex(ref)
	p.curFunc.Builder.PushType(tIdx)
}

// pushInteger encodes an integer literal per the width-promotion rule:
// suffix 'i' forces 32-bit, 'l' forces 64-bit, no suffix picks int when
// the value fits in 32 bits and long otherwise. A non-negative literal
// fits when it is at most the unsigned uint32 maximum; a negative
// literal's magnitude has to clear the int32 range (not the unsigned
// uint32 range) to need a long, since -2147483648 fits but -3000000000
// doesn't.
func (p *Parser) pushInteger(tok token.Token, neg bool, line uint32) {
	raw := tok.Integer
	fits32 := raw <= 0xFFFFFFFF
	if neg {
		fits32 = raw <= 1<<31
	}
	switch tok.Suffix {
	case "i":
		if !fits32 {
			p.sink.Warning(line, "integer literal overflows 32 bits, truncating: %s", tok.Word)
		}
		v := int32(uint32(raw))
		if neg {
			v = -v
		}
		c := p.bf.AddIntConstant(uint32(v))
		p.curFunc.Builder.PushInt(c)
	case "l":
		v := int64(raw)
		if neg {
			v = -v
		}
		c := p.bf.AddLongConstant(uint64(v))
		p.curFunc.Builder.PushLong(c)
	default:
		if fits32 {
			v := int32(uint32(raw))
			if neg {
				v = -v
			}
			c := p.bf.AddIntConstant(uint32(v))
			p.curFunc.Builder.PushInt(c)
		} else {
			v := int64(raw)
			if neg {
				v = -v
			}
			c := p.bf.AddLongConstant(uint64(v))
			p.curFunc.Builder.PushLong(c)
		}
	}
}

func (p *Parser) parseLoadLea(op opcode.Opcode) {
	nameTok := p.cur.next()
	if nameTok.Kind != token.Identifier {
		p.sink.Error(nameTok.Line, "expected a parameter or local variable name")
		return
	}
	lv, ok := p.curFunc.LocalByName(nameTok.Word)
	if !ok {
		p.sink.Error(nameTok.Line, "unknown parameter or local variable '%s'", nameTok.Word)
		return
	}
	if op == opcode.Load {
		p.curFunc.Builder.Load(lv.Index)
	} else {
		p.curFunc.Builder.Lea(lv.Index)
	}
}

// parseStore allocates a new local variable on first store to an unknown
// name.
func (p *Parser) parseStore() {
	nameTok := p.cur.next()
	if nameTok.Kind != token.Identifier {
		p.sink.Error(nameTok.Line, "expected a parameter or local variable name")
		return
	}
	lv, ok := p.curFunc.LocalByName(nameTok.Word)
	if !ok {
		idx := p.curFunc.Builder.AddLocalVariable()
		p.curFunc.LocalVariables = append(p.curFunc.LocalVariables, ir.LocalVariable{Name: nameTok.Word, Index: idx})
		lv = &p.curFunc.LocalVariables[len(p.curFunc.LocalVariables)-1]
	}
	p.curFunc.Builder.Store(lv.Index)
}

func (p *Parser) parseFLea() {
	line := p.cur.peek().Line
	word, ok := parseTypeWord(p.cur)
	if !ok {
		p.sink.Error(line, "expected 'Struct.field'")
		return
	}
	dep, s, f, ok := p.resolveField(word, line)
	if !ok {
		return
	}
	if dep == nil {
		p.curFunc.Builder.FLea(f.Index)
		return
	}
	mapped := p.ensureMappedStruct(dep, s)
	p.curFunc.Builder.FLeaExtern(dep.Index, mapped, f.Index)
}

func (p *Parser) parseJump(op opcode.Opcode) {
	nameTok := p.cur.next()
	if nameTok.Kind != token.Identifier {
		p.sink.Error(nameTok.Line, "expected a label name")
		return
	}
	lbl, ok := p.curFunc.LabelByName(nameTok.Word)
	if !ok {
		p.sink.Error(nameTok.Line, "nonexistent label '%s'", nameTok.Word)
		return
	}
	p.curFunc.Builder.Jump(op, lbl.Index)
}

func (p *Parser) parseCall() {
	line := p.cur.peek().Line
	word, ok := parseTypeWord(p.cur)
	if !ok {
		p.sink.Error(line, "expected a function name")
		return
	}
	if word == "entrypoint" {
		p.sink.Error(line, "entrypoint is not callable")
		return
	}
	local, dep, extern, ok := p.resolveFunction(word, line)
	if !ok {
		return
	}
	if dep == nil {
		p.curFunc.Builder.Call(local.Index)
		return
	}
	mapped := p.ensureMappedFunc(dep, extern)
	p.curFunc.Builder.CallExtern(dep.Index, mapped)
}

// parseNewType handles new/gcnew: require a non-array type; an array
// type here is an error with an info suggestion to use the array variant.
func (p *Parser) parseNewType(op opcode.Opcode, mnemonic string) {
	line := p.cur.peek().Line
	word, ok := parseTypeWord(p.cur)
	if !ok {
		p.sink.Error(line, "expected a type name")
		return
	}
	ref, ok := p.resolveType(word, line)
	if !ok {
		return
	}
	if p.cur.peek().Kind == token.LBracket {
		p.cur.next()
		p.cur.next() // length (ignored, line already invalid)
		if p.cur.peek().Kind == token.RBracket {
			p.cur.next()
		}
		suggestion := "anew"
		if strings.EqualFold(mnemonic, "gcnew") {
			suggestion = "agcnew"
		}
		p.sink.Error(line, "array cannot be used here")
		p.sink.Info(line, "use '%s' instead", suggestion)
		return
	}
	p.curFunc.Builder.NewType(op, p.typeIndex(ref))
}

// parseArrayNewType handles anew/agcnew/apush: require an array type with
// length exactly 0 (the runtime-supplied length from the stack).
func (p *Parser) parseArrayNewType(op opcode.Opcode) {
	line := p.cur.peek().Line
	word, ok := parseTypeWord(p.cur)
	if !ok {
		p.sink.Error(line, "expected a type name")
		return
	}
	ref, ok := p.resolveType(word, line)
	if !ok {
		return
	}
	if p.cur.peek().Kind != token.LBracket {
		p.sink.Error(line, "expected an array type")
		return
	}
	p.cur.next()
	lenTok := p.cur.next()
	if p.cur.peek().Kind == token.RBracket {
		p.cur.next()
	}
	if !lenTok.Kind.IsIntLiteral() {
		p.sink.Error(lenTok.Line, "expected an integer array length")
		return
	}
	if lenTok.Integer != 0 {
		p.sink.Error(lenTok.Line, "array's length cannot be used here")
		return
	}
	arr := ir.ArrayRef(ref)
	p.curFunc.Builder.NewType(op, p.typeIndex(arr))
}

// parseString32 desugars "string32 <string-literal> to <identifier>" into
// a local allocation plus three field stores, reading the String32
// structure's layout from the imported /std/string.sba module.
func (p *Parser) parseString32(line uint32) {
	strTok := p.cur.next()
	if strTok.Kind != token.String {
		p.sink.Error(line, "expected a string literal after 'string32'")
		return
	}
	toTok := p.cur.next()
	if !(toTok.Kind == token.Identifier && toTok.Word == "to") {
		p.sink.Error(toTok.Line, "expected 'to' in string32 statement")
		return
	}
	nameTok := p.cur.next()
	if nameTok.Kind != token.Identifier {
		p.sink.Error(nameTok.Line, "expected a local variable name")
		return
	}

	var stringDep *ir.ExternModule
	for _, d := range p.asm.Dependencies {
		if strings.HasSuffix(d.Path, "string.sba") {
			stringDep = d
			break
		}
	}
	if stringDep == nil {
		p.sink.Error(line, "string32 requires /std/string.sba to be imported")
		return
	}
	s2, ok := stringDep.Assembly.StructByName("String32")
	if !ok || len(s2.Fields) < 3 {
		p.sink.Error(line, "std/string.sba has no usable String32 structure")
		return
	}
	arrayField, lengthField, byteLenField := &s2.Fields[0], &s2.Fields[1], &s2.Fields[2]

	lv, exists := p.curFunc.LocalByName(nameTok.Word)
	if !exists {
		idx := p.curFunc.Builder.AddLocalVariable()
		p.curFunc.LocalVariables = append(p.curFunc.LocalVariables, ir.LocalVariable{Name: nameTok.Word, Index: idx})
		lv = &p.curFunc.LocalVariables[len(p.curFunc.LocalVariables)-1]
	}

	mapped := p.ensureMappedStruct(stringDep, s2)
	structType := p.bf.GetTypeIndex(bytefile.Type{
		Kind: bytefile.KindExternStructure, ExternMod: stringDep.Index, ExternMapped: mapped,
	})
	b := p.curFunc.Builder
	b.PushType(structType)
	b.Store(lv.Index)

	text := strTok.Text
	for i := 0; i < len(text); i++ {
		b.Lea(lv.Index)
		b.FLeaExtern(stringDep.Index, mapped, arrayField.Index)
		p.pushLiteralInt(int32(i))
		p.pushLiteralInt(int32(text[i]))
		b.Emit0(opcode.TStore)
	}

	b.Lea(lv.Index)
	b.FLeaExtern(stringDep.Index, mapped, lengthField.Index)
	p.pushLiteralInt(int32(len(text)))
	b.Emit0(opcode.Copy) // assigns the pushed scalar into the addressed field

	b.Lea(lv.Index)
	b.FLeaExtern(stringDep.Index, mapped, byteLenField.Index)
	p.pushLiteralInt(int32(len(text)))
	b.Emit0(opcode.Copy)
}

func (p *Parser) pushLiteralInt(v int32) {
	c := p.bf.AddIntConstant(uint32(v))
	p.curFunc.Builder.PushInt(c)
}
