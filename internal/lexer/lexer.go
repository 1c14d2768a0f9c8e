// Package lexer turns a source byte stream into a flat, line-sensitive
// token stream. The pipeline is single-threaded with no suspension points,
// so the lexer returns its whole token slice synchronously rather than
// streaming items over a channel.
package lexer

import (
	"strconv"
	"strings"

	"github.com/ShitVM/ShitAsm/internal/diag"
	"github.com/ShitVM/ShitAsm/internal/token"
)

// Lex tokenizes the given source text, reporting any errors to sink.
// A partially-lexed stream still returns the successfully recognized
// prefix of tokens for the remaining, unaffected lines.
func Lex(source string, sink *diag.Sink) []token.Token {
	var out []token.Token
	line := uint32(0)
	for _, raw := range splitLines(source) {
		line++
		toks, ok := lexLine(raw, line, sink)
		out = append(out, toks...)
		if ok {
			out = append(out, token.Token{Kind: token.NewLine, Line: line})
		}
	}
	return out
}

// splitLines splits on \n, stripping a trailing \r from each line. The
// final element may be an incomplete line if the source doesn't end in a
// newline; that's still lexed.
func splitLines(source string) []string {
	lines := strings.Split(source, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// lexLine scans one logical source line. ok reports whether the line
// produced at least one token (i.e. was non-empty once comments and
// surrounding whitespace are accounted for); only such lines get a
// trailing NewLine token, so the token stream's NewLine count always
// matches the source's non-empty line count.
func lexLine(line string, lineNo uint32, sink *diag.Sink) (out []token.Token, ok bool) {
	i := 0
	n := len(line)
	for {
		for i < n && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= n || line[i] == ';' {
			break
		}
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			tok, consumed := lexNumber(line[i:], lineNo, sink)
			out = append(out, tok)
			i += consumed
		case c == '\'' || c == '"':
			tok, consumed := lexLiteral(line[i:], lineNo, sink)
			out = append(out, tok)
			i += consumed
		default:
			if kind, isSpecial := token.IsSpecial(c); isSpecial {
				out = append(out, token.Token{Kind: kind, Word: string(c), Line: lineNo})
				i++
			} else if isWordChar(c) {
				word, consumed := lexWord(line[i:])
				kind := token.Identifier
				if kw, isKw := token.LookupKeyword(word); isKw {
					kind = kw
				}
				out = append(out, token.Token{Kind: kind, Word: word, Line: lineNo})
				i += consumed
			} else {
				sink.Error(lineNo, "unexpected character '%c'", c)
				i++
			}
		}
	}
	return out, len(out) > 0
}

func isWordChar(b byte) bool {
	if b == ' ' || b == '\t' || b == ';' || b == '\'' || b == '"' {
		return false
	}
	_, special := token.IsSpecial(b)
	return !special
}

func lexWord(s string) (string, int) {
	i := 0
	for i < len(s) && isWordChar(s[i]) {
		i++
	}
	return s[:i], i
}

// lexLiteral scans a character or string literal: 'c' or "text", with \'
// and \" as the only recognized escapes. An unterminated literal aborts
// the rest of the line with an error.
func lexLiteral(s string, lineNo uint32, sink *diag.Sink) (token.Token, int) {
	delim := s[0]
	var text strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == delim {
			i++
			kind := token.String
			if delim == '\'' {
				kind = token.Character
			}
			return token.Token{
				Kind: kind, Line: lineNo, DataK: token.DataText, Text: text.String(),
				Word: text.String(),
			}, i
		}
		if c == '\\' && i+1 < len(s) && (s[i+1] == '\'' || s[i+1] == '"') {
			text.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '\\' {
			sink.Error(lineNo, "invalid escape sequence in literal")
			i++
			continue
		}
		text.WriteByte(c)
		i++
	}
	sink.Error(lineNo, "unterminated literal")
	kind := token.String
	if delim == '\'' {
		kind = token.Character
	}
	return token.Token{Kind: kind, Line: lineNo, DataK: token.DataText, Text: text.String()}, i
}

// lexNumber scans a numeric literal word (the maximal run of non-space
// characters not terminated by a special character, except , and . which
// do not terminate a number), then decodes it.
func lexNumber(s string, lineNo uint32, sink *diag.Sink) (token.Token, int) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == ',' || c == '.' {
			i++
			continue
		}
		if _, special := token.IsSpecial(c); special {
			break
		}
		if c == ' ' || c == '\t' || c == ';' || c == '\'' || c == '"' {
			break
		}
		i++
	}
	word := s[:i]
	tok := decodeNumber(word, lineNo, sink)
	return tok, i
}

func decodeNumber(word string, lineNo uint32, sink *diag.Sink) token.Token {
	rest := word
	base := 10
	kind := token.IntDec
	switch {
	case len(rest) >= 2 && (rest[0:2] == "0b" || rest[0:2] == "0B"):
		base, kind, rest = 2, token.IntBin, rest[2:]
	case len(rest) >= 2 && (rest[0:2] == "0x" || rest[0:2] == "0X"):
		base, kind, rest = 16, token.IntHex, rest[2:]
	case len(rest) >= 2 && rest[0] == '0' && rest[1] >= '0' && rest[1] <= '9':
		base, kind, rest = 8, token.IntOct, rest[1:]
	}

	suffix := ""
	if len(rest) > 0 {
		last := rest[len(rest)-1]
		if last == 'i' || last == 'I' || last == 'l' || last == 'L' {
			if last == 'i' || last == 'I' {
				suffix = "i"
			} else {
				suffix = "l"
			}
			rest = rest[:len(rest)-1]
		}
	}

	hasDot := strings.ContainsRune(rest, '.')
	if hasDot && (base == 2 || base == 16) {
		sink.Error(lineNo, "decimal point not allowed in %s literal", baseName(base))
		hasDot = false
	}
	if hasDot {
		kind = token.Decimal
	}

	digits, commaErr := stripGroupSeparators(rest)
	if commaErr != "" {
		sink.Error(lineNo, "%s: %s", commaErr, word)
	}

	tok := token.Token{Word: word, Suffix: suffix, Kind: kind, Line: lineNo}
	if kind == token.Decimal {
		f, err := parseDecimal(digits)
		if err != nil {
			sink.Error(lineNo, "malformed decimal literal: %s", word)
		}
		tok.DataK = token.DataReal
		tok.Real = f
		return tok
	}

	val, bad := decodeUint(digits, base)
	if bad {
		sink.Error(lineNo, "invalid digit in %s literal: %s", baseName(base), word)
	}
	tok.DataK = token.DataInteger
	tok.Integer = val
	return tok
}

func baseName(base int) string {
	switch base {
	case 2:
		return "binary"
	case 8:
		return "octal"
	case 16:
		return "hexadecimal"
	default:
		return "decimal"
	}
}

// stripGroupSeparators removes ',' grouping separators from digits,
// rejecting a leading, trailing, or doubled separator.
func stripGroupSeparators(s string) (string, string) {
	if len(s) == 0 {
		return s, ""
	}
	if s[0] == ',' {
		return s, "leading ',' group separator"
	}
	if s[len(s)-1] == ',' {
		return s, "trailing ',' group separator"
	}
	var out strings.Builder
	prevComma := false
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			if prevComma {
				return s, "consecutive ',' group separators"
			}
			prevComma = true
			continue
		}
		prevComma = false
		out.WriteByte(s[i])
	}
	return out.String(), ""
}

func digitValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// decodeUint accumulates digits into a 64-bit unsigned value, wrapping
// silently on overflow; the parser later checks that against the
// declared suffix width.
func decodeUint(digits string, base int) (uint64, bool) {
	var v uint64
	bad := false
	for i := 0; i < len(digits); i++ {
		d, ok := digitValue(digits[i])
		if !ok || d >= base {
			bad = true
			continue
		}
		v = v*uint64(base) + uint64(d)
	}
	return v, bad
}

func parseDecimal(digits string) (float64, error) {
	var whole, frac strings.Builder
	seenDot := false
	for i := 0; i < len(digits); i++ {
		if digits[i] == '.' {
			seenDot = true
			continue
		}
		if seenDot {
			frac.WriteByte(digits[i])
		} else {
			whole.WriteByte(digits[i])
		}
	}
	s := whole.String()
	if s == "" {
		s = "0"
	}
	s += "."
	f := frac.String()
	if f == "" {
		f = "0"
	}
	s += f
	return strconv.ParseFloat(s, 64)
}
