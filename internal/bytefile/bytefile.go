package bytefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/ShitVM/ShitAsm/internal/opcode"
)

// Magic/version identify the serialized artifact; arbitrary but stable so
// Generate is idempotent: re-compiling identical source produces
// byte-identical output.
var magic = [4]byte{'S', 'S', 'V', 'M'}

const formatVersion = 1

type fieldRec struct {
	name string
	typ  TypeIndex
}

type structureImpl struct {
	name   string
	index  StructureIndex
	fields []fieldRec
}

func (s *structureImpl) Index() StructureIndex { return s.index }

func (s *structureImpl) AddField(t TypeIndex) FieldIndex {
	idx := FieldIndex(len(s.fields))
	s.fields = append(s.fields, fieldRec{typ: t})
	return idx
}

type functionImpl struct {
	name       string
	index      FunctionIndex
	arity      int
	hasResult  bool
	locals     int
	code       bytes.Buffer
	labelNames []string
	labelOffs  []int32
}

func (f *functionImpl) emit(op opcode.Opcode, operand uint64) {
	var buf [10]byte
	binary.LittleEndian.PutUint16(buf[0:2], uint16(op))
	binary.LittleEndian.PutUint64(buf[2:10], operand)
	f.code.Write(buf[:])
}

type builderImpl struct{ fn *functionImpl }

func (b *builderImpl) ReserveLabel(name string) LabelIndex {
	idx := LabelIndex(len(b.fn.labelNames))
	b.fn.labelNames = append(b.fn.labelNames, name)
	b.fn.labelOffs = append(b.fn.labelOffs, -1)
	return idx
}

func (b *builderImpl) AddLabel(name string) {
	for i, n := range b.fn.labelNames {
		if n == name {
			b.fn.labelOffs[i] = int32(b.fn.code.Len())
			return
		}
	}
}

func (b *builderImpl) AddLocalVariable() LocalVariableIndex {
	idx := LocalVariableIndex(b.fn.locals)
	b.fn.locals++
	return idx
}

func (b *builderImpl) GetArgument(i int) LocalVariableIndex { return LocalVariableIndex(i) }

func (b *builderImpl) Emit0(op opcode.Opcode) { b.fn.emit(op, 0) }

const (
	constKindInt = iota
	constKindLong
	constKindDouble
	constKindType
)

func (b *builderImpl) PushInt(c ConstantIndex) {
	b.fn.emit(opcode.Push, uint64(constKindInt)<<60|uint64(c))
}
func (b *builderImpl) PushLong(c ConstantIndex) {
	b.fn.emit(opcode.Push, uint64(constKindLong)<<60|uint64(c))
}
func (b *builderImpl) PushDouble(c ConstantIndex) {
	b.fn.emit(opcode.Push, uint64(constKindDouble)<<60|uint64(c))
}
func (b *builderImpl) PushType(t TypeIndex) {
	b.fn.emit(opcode.Push, uint64(constKindType)<<60|uint64(t))
}

func (b *builderImpl) Load(v LocalVariableIndex)  { b.fn.emit(opcode.Load, uint64(v)) }
func (b *builderImpl) Lea(v LocalVariableIndex)   { b.fn.emit(opcode.Lea, uint64(v)) }
func (b *builderImpl) Store(v LocalVariableIndex) { b.fn.emit(opcode.Store, uint64(v)) }

const externBit = uint64(1) << 63

func (b *builderImpl) FLea(f FieldIndex) { b.fn.emit(opcode.FLea, uint64(f)) }
func (b *builderImpl) FLeaExtern(mod ExternModuleIndex, m MappedIndex, f FieldIndex) {
	b.fn.emit(opcode.FLea, externBit|uint64(mod)<<40|uint64(m)<<20|uint64(f))
}

func (b *builderImpl) Jump(op opcode.Opcode, l LabelIndex) { b.fn.emit(op, uint64(l)) }

func (b *builderImpl) Call(fn FunctionIndex) { b.fn.emit(opcode.Call, uint64(fn)) }
func (b *builderImpl) CallExtern(mod ExternModuleIndex, m MappedIndex) {
	b.fn.emit(opcode.Call, externBit|uint64(mod)<<32|uint64(m))
}

func (b *builderImpl) NewType(op opcode.Opcode, t TypeIndex) { b.fn.emit(op, uint64(t)) }

type externFuncRec struct {
	name      string
	arity     int
	hasResult bool
}

type externStructRec struct {
	name   string
	fields []ExternFieldSpec
}

type externModuleImpl struct {
	index   ExternModuleIndex
	path    string
	structs []externStructRec
	funcs   []externFuncRec
	next    uint32
}

func (m *externModuleImpl) Index() ExternModuleIndex { return m.index }

func (m *externModuleImpl) AddStructure(name string, fields []ExternFieldSpec) ExternIndex {
	idx := ExternIndex(m.next)
	m.next++
	m.structs = append(m.structs, externStructRec{name: name, fields: fields})
	return idx
}

func (m *externModuleImpl) AddFunction(name string, arity int, hasResult bool) ExternIndex {
	idx := ExternIndex(m.next)
	m.next++
	m.funcs = append(m.funcs, externFuncRec{name: name, arity: arity, hasResult: hasResult})
	return idx
}

type file struct {
	structures []*structureImpl
	functions  []*functionImpl
	entryFn    *functionImpl
	entryBldr  *builderImpl

	intConsts    []uint32
	longConsts   []uint64
	doubleConsts []float64

	modules []*externModuleImpl
	mapped  map[[3]uint64]MappedIndex // (moduleIdx, externIdx, 0) -> mapped; the third slot is always 0

	types   []Type
	typeIdx map[Type]TypeIndex
}

// New constructs an empty byte-file, ready to receive structures,
// functions, and instructions for a single compile unit.
func New() ByteFile {
	f := &file{typeIdx: make(map[Type]TypeIndex), mapped: make(map[[3]uint64]MappedIndex)}
	fn := &functionImpl{name: "entrypoint", index: EntrypointIndex}
	f.entryFn = fn
	f.entryBldr = &builderImpl{fn: fn}
	return f
}

func (f *file) AddStructure(name string) StructureBuilder {
	s := &structureImpl{name: name, index: StructureIndex(len(f.structures))}
	f.structures = append(f.structures, s)
	return s
}

func (f *file) AddFunction(name string, arity int, hasResult bool) FunctionIndex {
	idx := FunctionIndex(len(f.functions))
	f.functions = append(f.functions, &functionImpl{
		name: name, index: idx, arity: arity, hasResult: hasResult, locals: arity,
	})
	return idx
}

func (f *file) Entrypoint() Builder { return f.entryBldr }

func (f *file) BuilderFor(fn FunctionIndex) Builder {
	if fn == EntrypointIndex {
		return f.entryBldr
	}
	return &builderImpl{fn: f.functions[fn]}
}

func (f *file) AddIntConstant(v uint32) ConstantIndex {
	f.intConsts = append(f.intConsts, v)
	return ConstantIndex(len(f.intConsts) - 1)
}
func (f *file) AddLongConstant(v uint64) ConstantIndex {
	f.longConsts = append(f.longConsts, v)
	return ConstantIndex(len(f.longConsts) - 1)
}
func (f *file) AddDoubleConstant(v float64) ConstantIndex {
	f.doubleConsts = append(f.doubleConsts, v)
	return ConstantIndex(len(f.doubleConsts) - 1)
}

func (f *file) AddExternModule(path string) ExternModuleBuilder {
	m := &externModuleImpl{index: ExternModuleIndex(len(f.modules)), path: path}
	f.modules = append(f.modules, m)
	return m
}

func (f *file) Map(mod ExternModuleIndex, extern ExternIndex) MappedIndex {
	key := [3]uint64{uint64(mod), uint64(extern), 0}
	if idx, ok := f.mapped[key]; ok {
		return idx
	}
	idx := MappedIndex(len(f.mapped))
	f.mapped[key] = idx
	return idx
}

func (f *file) GetTypeIndex(t Type) TypeIndex {
	if idx, ok := f.typeIdx[t]; ok {
		return idx
	}
	idx := TypeIndex(len(f.types))
	f.types = append(f.types, t)
	f.typeIdx[t] = idx
	return idx
}

func (f *file) MakeArray(elem TypeIndex) TypeIndex {
	return f.GetTypeIndex(Type{Kind: KindArray, Elem: elem})
}

// Generate serializes the byte-file to outputPath: a small fixed-layout
// binary table (magic, version, counts, then each section), written with
// encoding/binary the way wazero's binary encoder builds WASM sections
// from in-memory tables (generalized here to this target's much simpler
// fixed-width format; the exact on-disk shape is opaque to
// the core, so this is the module's own concrete choice).
func (f *file) Generate(outputPath string) error {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU32(&buf, formatVersion)

	writeU32(&buf, uint32(len(f.structures)))
	for _, s := range f.structures {
		writeString(&buf, s.name)
		writeU32(&buf, uint32(len(s.fields)))
		for _, fl := range s.fields {
			writeU32(&buf, uint32(fl.typ))
		}
	}

	writeU32(&buf, uint32(len(f.types)))
	for _, t := range f.types {
		buf.WriteByte(byte(t.Kind))
		switch t.Kind {
		case KindFundamental:
			buf.WriteByte(byte(t.Primitive))
		case KindStructure:
			writeU32(&buf, uint32(t.Struct))
		case KindExternStructure:
			writeU32(&buf, uint32(t.ExternMod))
			writeU32(&buf, uint32(t.ExternMapped))
		case KindArray:
			writeU32(&buf, uint32(t.Elem))
		}
	}

	writeU32(&buf, uint32(len(f.intConsts)))
	for _, v := range f.intConsts {
		writeU32(&buf, v)
	}
	writeU32(&buf, uint32(len(f.longConsts)))
	for _, v := range f.longConsts {
		writeU64(&buf, v)
	}
	writeU32(&buf, uint32(len(f.doubleConsts)))
	for _, v := range f.doubleConsts {
		writeU64(&buf, math.Float64bits(v))
	}

	writeFunction := func(fn *functionImpl) {
		writeString(&buf, fn.name)
		writeU32(&buf, uint32(fn.arity))
		if fn.hasResult {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		writeU32(&buf, uint32(fn.locals))
		writeU32(&buf, uint32(len(fn.labelOffs)))
		for _, off := range fn.labelOffs {
			writeU32(&buf, uint32(off))
		}
		code := fn.code.Bytes()
		writeU32(&buf, uint32(len(code)))
		buf.Write(code)
	}

	writeU32(&buf, uint32(len(f.functions)))
	for _, fn := range f.functions {
		writeFunction(fn)
	}
	writeFunction(f.entryFn)

	writeU32(&buf, uint32(len(f.modules)))
	for _, m := range f.modules {
		writeString(&buf, m.path)
		writeU32(&buf, uint32(len(m.structs)))
		for _, s := range m.structs {
			writeString(&buf, s.name)
			writeU32(&buf, uint32(len(s.fields)))
			for _, fl := range s.fields {
				writeString(&buf, fl.Name)
				writeU32(&buf, uint32(fl.Type))
			}
		}
		writeU32(&buf, uint32(len(m.funcs)))
		for _, fn := range m.funcs {
			writeString(&buf, fn.name)
			writeU32(&buf, uint32(fn.arity))
			if fn.hasResult {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing byte-file %q: %w", outputPath, err)
	}
	return nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}
