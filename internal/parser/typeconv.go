package parser

import (
	"github.com/ShitVM/ShitAsm/internal/bytefile"
	"github.com/ShitVM/ShitAsm/internal/ir"
)

// ensureMappedStruct lazily maps an extern structure into this unit's own
// byte-file the first time it's actually referenced: the MappedIndex is
// cached on the IR node itself so a symbol is only ever mapped once per
// importing assembly.
func (p *Parser) ensureMappedStruct(dep *ir.ExternModule, s *ir.Structure) bytefile.MappedIndex {
	if s.Mapped != nil {
		return *s.Mapped
	}
	m := p.bf.Map(dep.Index, *s.Extern)
	s.Mapped = &m
	return m
}

func (p *Parser) ensureMappedFunc(dep *ir.ExternModule, fn *ir.Function) bytefile.MappedIndex {
	if fn.Mapped != nil {
		return *fn.Mapped
	}
	m := p.bf.Map(dep.Index, *fn.Extern)
	fn.Mapped = &m
	return m
}

// typeIndex converts a TypeRef (resolved against whichever unit declared
// it) into a TypeIndex in this parser's own byte-file, mapping extern
// structures lazily as needed.
func (p *Parser) typeIndex(ref ir.TypeRef) bytefile.TypeIndex {
	switch ref.Kind {
	case ir.RefFundamental:
		return p.bf.GetTypeIndex(bytefile.Type{Kind: bytefile.KindFundamental, Primitive: ref.Fundamental})
	case ir.RefArray:
		elem := p.typeIndex(*ref.Elem)
		return p.bf.MakeArray(elem)
	case ir.RefStructure:
		if ref.DefinedIn == "" {
			s, _ := p.asm.StructByName(ref.StructName)
			return p.bf.GetTypeIndex(bytefile.Type{Kind: bytefile.KindStructure, Struct: s.Index})
		}
		for _, d := range p.asm.Dependencies {
			if d.Path == ref.DefinedIn {
				s, ok := d.Assembly.StructByName(ref.StructName)
				if !ok {
					break
				}
				mapped := p.ensureMappedStruct(d, s)
				return p.bf.GetTypeIndex(bytefile.Type{
					Kind: bytefile.KindExternStructure, ExternMod: d.Index, ExternMapped: mapped,
				})
			}
		}
	}
	return p.bf.GetTypeIndex(bytefile.Type{Kind: bytefile.KindFundamental, Primitive: bytefile.FInt})
}
