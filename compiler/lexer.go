package compiler

import "unicode/utf8"

// ---------------------------------------------------------------------------
// Lexer: filters source text down to command tokens
// ---------------------------------------------------------------------------

// Lexer tokenizes tape program source. Every character that is not one of
// the eight commands is a comment and is skipped; lexing never fails.
type Lexer struct {
	input string
	pos   int // offset of the next unread byte
	line  int // current line (1-based)
	col   int // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
}

// NextToken returns the next command token, or a TokenEOF token once the
// input is exhausted. Further calls keep returning TokenEOF.
func (l *Lexer) NextToken() Token {
	for l.pos < len(l.input) {
		pos := Position{Offset: l.pos, Line: l.line, Column: l.col}

		c := l.input[l.pos]
		if c < utf8.RuneSelf {
			l.pos++
			if c == '\n' {
				l.line++
				l.col = 1
			} else {
				l.col++
			}
			if t := commands[c]; t != TokenEOF {
				return Token{Type: t, Pos: pos}
			}
			continue
		}

		// Multi-byte runes are always comments; advance one column per rune.
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		l.pos += size
		l.col++
	}
	return Token{Type: TokenEOF, Pos: Position{Offset: l.pos, Line: l.line, Column: l.col}}
}

// Reset rewinds the lexer to the start of its input.
func (l *Lexer) Reset() {
	l.pos = 0
	l.line = 1
	l.col = 1
}

// Lex returns all command tokens of src in source order. The trailing
// TokenEOF is not included.
func Lex(src string) []Token {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// TokenTypes projects tokens onto their types.
func TokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, t := range tokens {
		types[i] = t.Type
	}
	return types
}

// Canonical returns the command text of tokens with all comments removed.
func Canonical(tokens []Token) string {
	buf := make([]byte, len(tokens))
	for i, t := range tokens {
		buf[i] = t.Type.Char()
	}
	return string(buf)
}
