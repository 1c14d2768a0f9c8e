package opcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHashTableHasNoCollisions cross-checks the CRC32-keyed dispatch table
// against the canonical mnemonic count: if two distinct mnemonics ever
// hashed to the same key, this table would be smaller than expected.
func TestHashTableHasNoCollisions(t *testing.T) {
	require.Equal(t, MnemonicCount(), len(hashTable))
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	for _, word := range []string{"push", "PUSH", "Push", "pUsH"} {
		op, ok := Lookup(word)
		require.True(t, ok, word)
		assert.Equal(t, Push, op, word)
	}
}

func TestLookupUnknownMnemonic(t *testing.T) {
	_, ok := Lookup("frobnicate")
	assert.False(t, ok)
}

func TestClassOfFamilies(t *testing.T) {
	assert.Equal(t, ClassPush, ClassOf(Push))
	assert.Equal(t, ClassLoadLea, ClassOf(Load))
	assert.Equal(t, ClassLoadLea, ClassOf(Lea))
	assert.Equal(t, ClassStore, ClassOf(Store))
	assert.Equal(t, ClassFLea, ClassOf(FLea))
	assert.Equal(t, ClassJump, ClassOf(Jmp))
	assert.Equal(t, ClassCall, ClassOf(Call))
	assert.Equal(t, ClassNewType, ClassOf(New))
	assert.Equal(t, ClassArrayNewType, ClassOf(ANew))
	assert.Equal(t, ClassNone, ClassOf(Add))
	assert.Equal(t, ClassNone, ClassOf(Nop))
}
