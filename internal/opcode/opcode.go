// Package opcode enumerates the target instruction set and the operand
// contracts each mnemonic family expects. Dispatch from the lower-cased
// mnemonic text to an Opcode goes through a CRC32 hash table, matching how
// the source tool dispatched on mnemonic hash rather than a plain
// string-keyed map; the opcode set here is small and fixed enough that no
// collision can occur (verified in opcode_test.go).
package opcode

import "hash/crc32"

type Opcode int

const (
	Invalid Opcode = iota

	Nop
	Pop
	TLoad
	TStore
	Copy
	Swap
	Add
	Sub
	Mul
	IMul
	Div
	IDiv
	Mod
	IMod
	Neg
	Inc
	Dec
	And
	Or
	Xor
	Not
	Shl
	Sal
	Shr
	Sar
	Cmp
	ICmp
	Ret
	ToI
	ToL
	ToD
	ToP
	Null
	Delete
	GCNull
	Alea
	Count

	Push

	Load
	Lea

	Store

	FLea

	Jmp
	Je
	Jne
	Ja
	Jae
	Jb
	Jbe

	Call

	New
	GCNew

	ANew
	AGCNew
	APush
)

// Class groups opcodes by operand shape: how many operands each mnemonic
// takes and what parser branch it needs.
type Class int

const (
	ClassNone Class = iota
	ClassPush
	ClassLoadLea
	ClassStore
	ClassFLea
	ClassJump
	ClassCall
	ClassNewType
	ClassArrayNewType
)

var classOf = map[Opcode]Class{
	Push: ClassPush,

	Load: ClassLoadLea,
	Lea:  ClassLoadLea,

	Store: ClassStore,

	FLea: ClassFLea,

	Jmp: ClassJump,
	Je:  ClassJump,
	Jne: ClassJump,
	Ja:  ClassJump,
	Jae: ClassJump,
	Jb:  ClassJump,
	Jbe: ClassJump,

	Call: ClassCall,

	New:    ClassNewType,
	GCNew:  ClassNewType,
	ANew:   ClassArrayNewType,
	AGCNew: ClassArrayNewType,
	APush:  ClassArrayNewType,
}

// ClassOf returns the operand class for op; no-operand opcodes (and any
// opcode not listed above) default to ClassNone.
func ClassOf(op Opcode) Class {
	if c, ok := classOf[op]; ok {
		return c
	}
	return ClassNone
}

var mnemonics = map[string]Opcode{
	"nop": Nop, "pop": Pop, "tload": TLoad, "tstore": TStore,
	"copy": Copy, "swap": Swap, "add": Add, "sub": Sub, "mul": Mul,
	"imul": IMul, "div": Div, "idiv": IDiv, "mod": Mod, "imod": IMod,
	"neg": Neg, "inc": Inc, "dec": Dec, "and": And, "or": Or, "xor": Xor,
	"not": Not, "shl": Shl, "sal": Sal, "shr": Shr, "sar": Sar,
	"cmp": Cmp, "icmp": ICmp, "ret": Ret, "toi": ToI, "tol": ToL,
	"tod": ToD, "top": ToP, "null": Null, "delete": Delete,
	"gcnull": GCNull, "alea": Alea, "count": Count,

	"push": Push,
	"load": Load, "lea": Lea,
	"store": Store,
	"flea":  FLea,
	"jmp":   Jmp, "je": Je, "jne": Jne, "ja": Ja, "jae": Jae, "jb": Jb, "jbe": Jbe,
	"call":   Call,
	"new":    New,
	"gcnew":  GCNew,
	"anew":   ANew,
	"agcnew": AGCNew,
	"apush":  APush,
}

// hashTable maps CRC32(lower-cased mnemonic) to Opcode, built once at
// package init from the canonical mnemonic table above.
var hashTable = func() map[uint32]Opcode {
	t := make(map[uint32]Opcode, len(mnemonics))
	for word, op := range mnemonics {
		t[crc32.ChecksumIEEE([]byte(word))] = op
	}
	return t
}()

// Lookup resolves a (not necessarily lower-cased) mnemonic word to its
// Opcode via the CRC32 hash table.
func Lookup(word string) (Opcode, bool) {
	lower := make([]byte, len(word))
	for i := 0; i < len(word); i++ {
		c := word[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	op, ok := hashTable[crc32.ChecksumIEEE(lower)]
	return op, ok
}

// MnemonicCount reports the number of distinct mnemonics registered, used
// by opcode_test.go to cross-check against len(hashTable) for collisions.
func MnemonicCount() int {
	return len(mnemonics)
}
