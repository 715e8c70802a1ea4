package compiler

import (
	"testing"
)

func TestLexerCommands(t *testing.T) {
	input := `><+-.,[]`
	expected := []TokenType{
		TokenMoveRight,
		TokenMoveLeft,
		TokenIncrement,
		TokenDecrement,
		TokenOutput,
		TokenInput,
		TokenLoopBegin,
		TokenLoopEnd,
		TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerSkipsComments(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"hello world", ""},
		{"a+b-c", "+-"},
		{"[ loop ]\n# note: .,\n", "[].,"},
		{"résumé > naïve <", "><"},
		{"\t\r\n+\x00\xff-", "+-"},
	}

	for _, tc := range tests {
		if got := Canonical(Lex(tc.input)); got != tc.want {
			t.Errorf("Lex(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	input := "+ x\n  [é-]\n."
	want := []struct {
		typ    TokenType
		offset int
		line   int
		col    int
	}{
		{TokenIncrement, 0, 1, 1},
		{TokenLoopBegin, 6, 2, 3},
		{TokenDecrement, 9, 2, 5},
		{TokenLoopEnd, 10, 2, 6},
		{TokenOutput, 12, 3, 1},
	}

	tokens := Lex(input)
	if len(tokens) != len(want) {
		t.Fatalf("Lex() returned %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		tok := tokens[i]
		if tok.Type != w.typ || tok.Pos.Offset != w.offset || tok.Pos.Line != w.line || tok.Pos.Column != w.col {
			t.Errorf("token[%d] = %v offset %d, want %v at %d:%d offset %d",
				i, tok, tok.Pos.Offset, w.typ, w.line, w.col, w.offset)
		}
	}
}

func TestLexerEOFIsSticky(t *testing.T) {
	l := NewLexer("+")
	l.NextToken()
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != TokenEOF {
			t.Fatalf("call %d after end = %v, want EOF", i, tok)
		}
	}
}

func TestLexerReset(t *testing.T) {
	l := NewLexer("+>")
	first := l.NextToken()
	l.NextToken()
	l.Reset()
	if again := l.NextToken(); again != first {
		t.Errorf("after Reset NextToken() = %v, want %v", again, first)
	}
}

func TestTokenTypeString(t *testing.T) {
	if got := TokenLoopBegin.String(); got != "LoopBegin" {
		t.Errorf("TokenLoopBegin.String() = %q", got)
	}
	if got := TokenType(99).String(); got != "Token(99)" {
		t.Errorf("TokenType(99).String() = %q", got)
	}
	if TokenEOF.Char() != 0 {
		t.Error("TokenEOF has a command character")
	}
}

func FuzzLexer(f *testing.F) {
	seeds := []string{
		"",
		"+-<>.,[]",
		"comment only",
		"++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]",
		"multi\nline\r\n+\n",
		"日本語+",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		tokens := Lex(input)
		if len(tokens) > len(input) {
			t.Fatalf("%d tokens from %d bytes", len(tokens), len(input))
		}
		for _, tok := range tokens {
			if tok.Type == TokenEOF {
				t.Fatal("Lex returned an EOF token")
			}
			if input[tok.Pos.Offset] != tok.Type.Char() {
				t.Fatalf("token %v does not match source byte %q", tok, input[tok.Pos.Offset])
			}
		}
	})
}
