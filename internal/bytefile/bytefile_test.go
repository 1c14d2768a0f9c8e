package bytefile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShitVM/ShitAsm/internal/opcode"
)

func TestGetTypeIndexIsInterned(t *testing.T) {
	f := New()
	a := f.GetTypeIndex(Type{Kind: KindFundamental, Primitive: FInt})
	b := f.GetTypeIndex(Type{Kind: KindFundamental, Primitive: FInt})
	c := f.GetTypeIndex(Type{Kind: KindFundamental, Primitive: FLong})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMakeArrayWrapsElementType(t *testing.T) {
	f := New()
	elem := f.GetTypeIndex(Type{Kind: KindFundamental, Primitive: FDouble})
	arr := f.MakeArray(elem)
	arr2 := f.MakeArray(elem)
	assert.Equal(t, arr, arr2)
	assert.NotEqual(t, elem, arr)
}

func TestMapIsIdempotentPerSymbol(t *testing.T) {
	f := New()
	mod := f.AddExternModule("/some/path.sba")
	extern := mod.AddFunction("helper", 1, true)
	m1 := f.Map(mod.Index(), extern)
	m2 := f.Map(mod.Index(), extern)
	assert.Equal(t, m1, m2)
}

func TestBuilderForEntrypointReturnsDedicatedBuilder(t *testing.T) {
	f := New()
	b1 := f.Entrypoint()
	b2 := f.BuilderFor(EntrypointIndex)
	b1.Emit0(opcode.Nop)
	b1.Emit0(opcode.Ret)
	// BuilderFor(EntrypointIndex) hands back the same builder Entrypoint()
	// does, so instructions emitted through either handle land in the one
	// entrypoint function record.
	assert.Same(t, b1, b2)
}

func TestAddStructureAssignsSequentialFieldIndices(t *testing.T) {
	f := New()
	s := f.AddStructure("Point")
	tInt := f.GetTypeIndex(Type{Kind: KindFundamental, Primitive: FInt})
	fx := s.AddField(tInt)
	fy := s.AddField(tInt)
	assert.Equal(t, FieldIndex(0), fx)
	assert.Equal(t, FieldIndex(1), fy)
}

func TestGenerateWritesMagicHeader(t *testing.T) {
	f := New()
	s := f.AddStructure("Point")
	tInt := f.GetTypeIndex(Type{Kind: KindFundamental, Primitive: FInt})
	s.AddField(tInt)

	fn := f.AddFunction("helper", 1, true)
	b := f.BuilderFor(fn)
	c := f.AddIntConstant(42)
	b.PushInt(c)
	b.Emit0(opcode.Ret)

	e := f.Entrypoint()
	e.Call(fn)
	e.Emit0(opcode.Ret)

	path := t.TempDir() + "/out.sbf"
	require.NoError(t, f.Generate(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 4)
	assert.Equal(t, []byte("SSVM"), data[:4])
}

func TestEntrypointIndexNeverAliasesARegularFunction(t *testing.T) {
	f := New()
	fn := f.AddFunction("regular", 0, false)
	assert.NotEqual(t, EntrypointIndex, fn)
}
