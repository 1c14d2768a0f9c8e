package parser

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShitVM/ShitAsm/internal/bytefile"
	"github.com/ShitVM/ShitAsm/internal/diag"
	"github.com/ShitVM/ShitAsm/internal/ir"
	"github.com/ShitVM/ShitAsm/internal/lexer"
)

// stubLoader implements Loader, always failing; the scenarios in this file
// never exercise import resolution so it should never be called.
type stubLoader struct{ t *testing.T }

func (l stubLoader) Load(bytefile.ByteFile, string, string, int, []string, *diag.Sink) (*ir.ExternModule, error) {
	l.t.Fatal("unexpected import in a test with no import statements")
	return nil, nil
}

func compile(t *testing.T, src string) (*ir.Assembly, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink("test.sba")
	toks := lexer.Lex(src, sink)
	bf := bytefile.New()
	p := New(toks, sink, bf, stubLoader{t}, 0, nil, "test.sba")
	asm := p.Run()
	return asm, sink
}

func TestMissingEntrypointIsError(t *testing.T) {
	_, sink := compile(t, "func helper:\n    ret\n")
	require.True(t, sink.HasErrors())
	found := false
	for _, m := range sink.Messages() {
		if m.Sev == diag.Error {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSuccessfulEntrypointCompiles(t *testing.T) {
	asm, sink := compile(t, "proc entrypoint:\n    ret\n")
	assert.False(t, sink.HasErrors())
	_, ok := asm.Entrypoint()
	assert.True(t, ok)
}

func TestDuplicateStructureNameIsError(t *testing.T) {
	src := "struct Point:\n    int x\nstruct Point:\n    int y\nproc entrypoint:\n    ret\n"
	_, sink := compile(t, src)
	assert.True(t, sink.HasErrors())
}

func TestDuplicateFunctionNameIsError(t *testing.T) {
	src := "func helper:\n    ret\nfunc helper:\n    ret\nproc entrypoint:\n    ret\n"
	_, sink := compile(t, src)
	assert.True(t, sink.HasErrors())
}

func TestArrayFieldRequiresNonZeroLength(t *testing.T) {
	src := "struct Buf:\n    int[0] data\nproc entrypoint:\n    ret\n"
	_, sink := compile(t, src)
	assert.True(t, sink.HasErrors())
}

func TestArrayFieldWithLengthCompiles(t *testing.T) {
	src := "struct Buf:\n    int[4] data\nproc entrypoint:\n    ret\n"
	asm, sink := compile(t, src)
	require.False(t, sink.HasErrors())
	s, ok := asm.StructByName("Buf")
	require.True(t, ok)
	require.Len(t, s.Fields, 1)
	assert.True(t, s.Fields[0].IsArray)
	assert.EqualValues(t, 4, s.Fields[0].ArrayLen)
}

func TestCallToUnknownFunctionIsError(t *testing.T) {
	src := "proc entrypoint:\n    call nope\n    ret\n"
	_, sink := compile(t, src)
	require.True(t, sink.HasErrors())
	found := false
	for _, m := range sink.Messages() {
		if m.Msg == "nonexistent function or procedure 'nope'" {
			found = true
		}
	}
	assert.True(t, found, "%v", sink.Messages())
}

func TestStoreToUnknownNameAllocatesLocal(t *testing.T) {
	src := "proc entrypoint:\n    push 1\n    store x\n    load x\n    pop\n    ret\n"
	asm, sink := compile(t, src)
	require.False(t, sink.HasErrors())
	fn, ok := asm.Entrypoint()
	require.True(t, ok)
	_, ok = fn.LocalByName("x")
	assert.True(t, ok)
}

func TestJumpToUnknownLabelIsError(t *testing.T) {
	src := "proc entrypoint:\n    jmp nowhere\n    ret\n"
	_, sink := compile(t, src)
	assert.True(t, sink.HasErrors())
}

func TestJumpToDeclaredLabelCompiles(t *testing.T) {
	src := "proc entrypoint:\n    jmp done\ndone:\n    ret\n"
	_, sink := compile(t, src)
	assert.False(t, sink.HasErrors())
}

func TestNewWithArrayTypeIsError(t *testing.T) {
	src := "struct Point:\n    int x\nproc entrypoint:\n    new Point[3]\n    ret\n"
	_, sink := compile(t, src)
	assert.True(t, sink.HasErrors())
}

func TestFieldAccessOnUnknownStructureIsError(t *testing.T) {
	src := "proc entrypoint:\n    flea Ghost.x\n    ret\n"
	_, sink := compile(t, src)
	assert.True(t, sink.HasErrors())
}

func TestPushIntegerSuffixSelectsWidth(t *testing.T) {
	src := "proc entrypoint:\n    push 5i\n    pop\n    push 5l\n    pop\n    ret\n"
	asm, sink := compile(t, src)
	assert.False(t, sink.HasErrors())
	ints, longs := intLongConstCounts(t, asm)
	assert.EqualValues(t, 1, ints)
	assert.EqualValues(t, 1, longs)
}

// intLongConstCounts decodes the int/long constant-table counts out of a
// generated byte-file for a source unit with no structures or types, the
// two sections Generate writes right before the constant tables.
func intLongConstCounts(t *testing.T, asm *ir.Assembly) (ints, longs uint32) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.sbf")
	require.NoError(t, asm.ByteFile.Generate(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 16)
	off := 8 // magic + version
	structCount := binary.LittleEndian.Uint32(data[off:])
	require.EqualValues(t, 0, structCount, "fixture must declare no structures")
	off += 4
	typeCount := binary.LittleEndian.Uint32(data[off:])
	require.EqualValues(t, 0, typeCount, "fixture must declare no types")
	off += 4
	ints = binary.LittleEndian.Uint32(data[off:])
	off += 4 + int(ints)*4
	longs = binary.LittleEndian.Uint32(data[off:])
	return ints, longs
}

func TestPushNegativeWithinInt32RangeEmitsInt(t *testing.T) {
	src := "proc entrypoint:\n    push -2147483648\n    pop\n    ret\n"
	asm, sink := compile(t, src)
	require.False(t, sink.HasErrors(), "%v", sink.Messages())
	ints, longs := intLongConstCounts(t, asm)
	assert.EqualValues(t, 1, ints)
	assert.EqualValues(t, 0, longs)
}

func TestPushNegativeOutsideInt32RangeEmitsLong(t *testing.T) {
	src := "proc entrypoint:\n    push -3000000000\n    pop\n    ret\n"
	asm, sink := compile(t, src)
	require.False(t, sink.HasErrors(), "%v", sink.Messages())
	ints, longs := intLongConstCounts(t, asm)
	assert.EqualValues(t, 0, ints)
	assert.EqualValues(t, 1, longs)
}

func TestPushNegativeOverflowingIntSuffixWarns(t *testing.T) {
	src := "proc entrypoint:\n    push -2147483649i\n    pop\n    ret\n"
	_, sink := compile(t, src)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, 1, sink.Count(diag.Warning))
}

func TestPushNegativeIntMinSuffixDoesNotWarn(t *testing.T) {
	src := "proc entrypoint:\n    push -2147483648i\n    pop\n    ret\n"
	_, sink := compile(t, src)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, 0, sink.Count(diag.Warning))
}

// stdStringLoader stands in for the real /std/string.sba import: it
// returns an ExternModule exposing a minimal String32 structure so
// string32 desugaring can be exercised without touching the filesystem.
type stdStringLoader struct{ t *testing.T }

func (l stdStringLoader) Load(bf bytefile.ByteFile, path, ns string, depth int, searchDirs []string, sink *diag.Sink) (*ir.ExternModule, error) {
	if !strings.HasSuffix(path, "string.sba") {
		l.t.Fatalf("unexpected import path %q", path)
	}
	extern := bytefile.ExternIndex(0)
	mb := bf.AddExternModule(path)
	s := &ir.Structure{
		Name:   "String32",
		Extern: &extern,
		Fields: []ir.Field{
			{Name: "array", Index: 0, Type: ir.ArrayRef(ir.FundamentalRef(bytefile.FInt)), IsArray: true},
			{Name: "length", Index: 1, Type: ir.FundamentalRef(bytefile.FInt)},
			{Name: "byteLength", Index: 2, Type: ir.FundamentalRef(bytefile.FInt)},
		},
	}
	dep := &ir.Assembly{ByteFile: bf, Structures: []*ir.Structure{s}}
	return &ir.ExternModule{Path: path, Namespace: ns, Index: mb.Index(), Assembly: dep}, nil
}

func TestString32DesugarsIntoLocalAndFieldStores(t *testing.T) {
	src := "import \"/std/string.sba\" as str\nproc entrypoint:\n    string32 \"hi\" to s\n    ret\n"
	sink := diag.NewSink("test.sba")
	toks := lexer.Lex(src, sink)
	bf := bytefile.New()
	p := New(toks, sink, bf, stdStringLoader{t: t}, 0, nil, "test.sba")
	asm := p.Run()
	require.False(t, sink.HasErrors(), "%v", sink.Messages())
	fn, ok := asm.Entrypoint()
	require.True(t, ok)
	_, ok = fn.LocalByName("s")
	assert.True(t, ok)
}

func TestFuncWithParametersAndDuplicateParamNameIsError(t *testing.T) {
	src := "func add(a, a):\n    ret\nproc entrypoint:\n    ret\n"
	_, sink := compile(t, src)
	assert.True(t, sink.HasErrors())
}
