package parser

import (
	"strings"

	"github.com/ShitVM/ShitAsm/internal/ir"
	"github.com/ShitVM/ShitAsm/internal/token"
)

// isFundamentalKeyword reports whether k is one of the keyword-tokenized
// fundamental type names, which can lead off a type expression even
// though they aren't tokenized as plain identifiers.
func isFundamentalKeyword(k token.Kind) bool {
	switch k {
	case token.KwInt, token.KwLong, token.KwDouble, token.KwPointer, token.KwGCPointer:
		return true
	}
	return false
}

// parseTypeWord reads a dotted type name: a sequence of identifier or
// fundamental-keyword tokens joined by '.'.
func parseTypeWord(c *cursor) (string, bool) {
	first := c.next()
	if first.Kind != token.Identifier && !isFundamentalKeyword(first.Kind) {
		return "", false
	}
	var sb strings.Builder
	sb.WriteString(first.Word)
	for c.peek().Kind == token.Dot &&
		(c.peekAt(1).Kind == token.Identifier || isFundamentalKeyword(c.peekAt(1).Kind)) {
		c.next()
		part := c.next()
		sb.WriteByte('.')
		sb.WriteString(part.Word)
	}
	return sb.String(), true
}

// splitQualified splits a dotted name at its last dot: namespace (possibly
// empty) and identifier, split-at-last-dot mode used for
// "ns.Type" and "ns.function" references).
func splitQualified(full string) (ns, ident string) {
	n := ir.SplitLastDot(full)
	return n.Namespace, n.Identifier
}

// resolveType resolves a dotted type name to a TypeRef: fundamental types
// are checked first from the fixed table (qualifying one with a namespace
// still resolves it, with a warning), then local structures, then a
// dependency's structures.
func (p *Parser) resolveType(dotted string, line uint32) (ir.TypeRef, bool) {
	ns, ident := splitQualified(dotted)
	if fund, ok := ir.LookupFundamental(ident); ok {
		if ns != "" {
			p.sink.Warning(line, "namespace-qualified fundamental type '%s' used", dotted)
		}
		return ir.FundamentalRef(fund), true
	}
	if ns == "" {
		if s, ok := p.asm.StructByName(ident); ok {
			return ir.StructureRef("", s.Name), true
		}
		p.sink.Error(line, "unknown type '%s'", dotted)
		return ir.TypeRef{}, false
	}
	dep, ok := p.asm.DepByNamespace(ns)
	if !ok {
		p.sink.Error(line, "unknown namespace '%s'", ns)
		return ir.TypeRef{}, false
	}
	if s, ok := dep.Assembly.StructByName(ident); ok {
		return ir.StructureRef(dep.Path, s.Name), true
	}
	p.sink.Error(line, "nonexistent structure '%s' in '%s'", ident, ns)
	return ir.TypeRef{}, false
}

// resolveFunction resolves a dotted function reference to either a local
// *ir.Function, or a dependency plus the extern *ir.Function inside its
// sub-assembly.
func (p *Parser) resolveFunction(dotted string, line uint32) (local *ir.Function, dep *ir.ExternModule, extern *ir.Function, ok bool) {
	ns, ident := splitQualified(dotted)
	if ns == "" {
		if fn, found := p.asm.FuncByName(ident); found {
			return fn, nil, nil, true
		}
		p.sink.Error(line, "nonexistent function or procedure '%s'", ident)
		return nil, nil, nil, false
	}
	d, found := p.asm.DepByNamespace(ns)
	if !found {
		p.sink.Error(line, "unknown namespace '%s'", ns)
		return nil, nil, nil, false
	}
	fn, found := d.Assembly.FuncByName(ident)
	if !found {
		p.sink.Error(line, "nonexistent function or procedure '%s'", ident)
		return nil, nil, nil, false
	}
	return nil, d, fn, true
}

// resolveField resolves "Struct.field" or "ns.Struct.field" to the owning
// Structure and Field via the split-at-second-to-last-dot mode.
func (p *Parser) resolveField(dotted string, line uint32) (structDep *ir.ExternModule, s *ir.Structure, f *ir.Field, ok bool) {
	// SplitSecondToLastDot peels off the (possibly multi-segment)
	// namespace, leaving "Struct.field" as its Identifier half; splitting
	// that again at its one remaining dot yields the struct and field
	// names themselves.
	n := ir.SplitSecondToLastDot(dotted)
	sf := ir.SplitLastDot(n.Identifier)
	if sf.Namespace == "" {
		p.sink.Error(line, "expected 'Struct.field' in field reference, got '%s'", dotted)
		return nil, nil, nil, false
	}
	ns, structName, fieldName := n.Namespace, sf.Namespace, sf.Identifier

	var s2 *ir.Structure
	var dep *ir.ExternModule
	if ns == "" {
		var found bool
		s2, found = p.asm.StructByName(structName)
		if !found {
			p.sink.Error(line, "unknown structure '%s'", structName)
			return nil, nil, nil, false
		}
	} else {
		d, found := p.asm.DepByNamespace(ns)
		if !found {
			p.sink.Error(line, "unknown namespace '%s'", ns)
			return nil, nil, nil, false
		}
		dep = d
		s2, found = d.Assembly.StructByName(structName)
		if !found {
			p.sink.Error(line, "unknown structure '%s' in '%s'", structName, ns)
			return nil, nil, nil, false
		}
	}
	fld, found := s2.FieldByName(fieldName)
	if !found {
		p.sink.Error(line, "unknown field '%s' of structure '%s'", fieldName, s2.Name)
		return nil, nil, nil, false
	}
	return dep, s2, fld, true
}
