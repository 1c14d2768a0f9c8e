package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShitVM/ShitAsm/internal/diag"
	"github.com/ShitVM/ShitAsm/internal/token"
)

func lexNoErrors(t *testing.T, src string) []token.Token {
	t.Helper()
	sink := diag.NewSink("test.sba")
	toks := Lex(src, sink)
	require.False(t, sink.HasErrors(), "unexpected errors: %v", sink.Messages())
	return toks
}

func TestLexNewLineCountMatchesNonEmptyLines(t *testing.T) {
	src := "push 1\n\nstruct Foo:\n   ; just a comment\nload a\n"
	toks := lexNoErrors(t, src)
	newlines := 0
	for _, tok := range toks {
		if tok.Kind == token.NewLine {
			newlines++
		}
	}
	assert.Equal(t, 3, newlines)
}

func TestLexKeywordsAndIdentifiers(t *testing.T) {
	toks := lexNoErrors(t, "func main(int): proc")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.KwFunc, token.Identifier, token.LParen, token.KwInt, token.RParen,
		token.Colon, token.KwProc, token.NewLine,
	}, kinds)
}

func TestLexIntegerSuffixAndBase(t *testing.T) {
	cases := []struct {
		word    string
		kind    token.Kind
		suffix  string
		integer uint64
	}{
		{"10", token.IntDec, "", 10},
		{"10i", token.IntDec, "i", 10},
		{"10l", token.IntDec, "l", 10},
		{"0xFF", token.IntHex, "", 0xFF},
		{"0b101", token.IntBin, "", 5},
		{"010", token.IntOct, "", 8},
		{"1,000", token.IntDec, "", 1000},
	}
	for _, c := range cases {
		toks := lexNoErrors(t, "push "+c.word)
		require.Len(t, toks, 3) // push, number, newline
		num := toks[1]
		assert.Equal(t, c.kind, num.Kind, c.word)
		assert.Equal(t, c.suffix, num.Suffix, c.word)
		assert.Equal(t, c.integer, num.Integer, c.word)
	}
}

func TestLexDecimalLiteral(t *testing.T) {
	toks := lexNoErrors(t, "push 3.5")
	require.Len(t, toks, 3)
	assert.Equal(t, token.Decimal, toks[1].Kind)
	assert.Equal(t, token.DataReal, toks[1].DataK)
	assert.InDelta(t, 3.5, toks[1].Real, 1e-9)
}

func TestLexHexWithDotIsError(t *testing.T) {
	sink := diag.NewSink("test.sba")
	Lex("push 0x1.5", sink)
	assert.True(t, sink.HasErrors())
}

func TestLexStringAndCharLiteral(t *testing.T) {
	toks := lexNoErrors(t, `string32 "Hi" to s`)
	require.Len(t, toks, 5)
	assert.Equal(t, token.String, toks[1].Kind)
	assert.Equal(t, "Hi", toks[1].Text)

	toks = lexNoErrors(t, "push 'a'")
	require.Len(t, toks, 3)
	assert.Equal(t, token.Character, toks[1].Kind)
	assert.Equal(t, "a", toks[1].Text)
}

func TestLexLiteralEscapes(t *testing.T) {
	toks := lexNoErrors(t, `push "a\"b"`)
	require.Len(t, toks, 3)
	assert.Equal(t, `a"b`, toks[1].Text)
}

func TestLexUnterminatedLiteralIsError(t *testing.T) {
	sink := diag.NewSink("test.sba")
	Lex(`push "unterminated`, sink)
	assert.True(t, sink.HasErrors())
}

func TestLexCommentStripsRestOfLine(t *testing.T) {
	toks := lexNoErrors(t, "push 1 ; a trailing comment")
	require.Len(t, toks, 3)
	assert.Equal(t, token.NewLine, toks[2].Kind)
}

func TestLexGroupSeparatorErrors(t *testing.T) {
	for _, src := range []string{"push 0x,100", "push 100,", "push 1,,0"} {
		sink := diag.NewSink("test.sba")
		Lex(src, sink)
		assert.True(t, sink.HasErrors(), src)
	}
}
