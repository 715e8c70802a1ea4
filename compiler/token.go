package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the tape language lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota

	// Pointer movement
	TokenMoveRight // >
	TokenMoveLeft  // <

	// Cell arithmetic
	TokenIncrement // +
	TokenDecrement // -

	// I/O
	TokenOutput // .
	TokenInput  // ,

	// Loop delimiters
	TokenLoopBegin // [
	TokenLoopEnd   // ]
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenMoveRight: "MoveRight",
	TokenMoveLeft:  "MoveLeft",
	TokenIncrement: "Increment",
	TokenDecrement: "Decrement",
	TokenOutput:    "Output",
	TokenInput:     "Input",
	TokenLoopBegin: "LoopBegin",
	TokenLoopEnd:   "LoopEnd",
}

// commands maps each command character to its token type.
var commands = [256]TokenType{
	'>': TokenMoveRight,
	'<': TokenMoveLeft,
	'+': TokenIncrement,
	'-': TokenDecrement,
	'.': TokenOutput,
	',': TokenInput,
	'[': TokenLoopBegin,
	']': TokenLoopEnd,
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Char returns the command character for t, or 0 for EOF and unknown types.
func (t TokenType) Char() byte {
	switch t {
	case TokenMoveRight:
		return '>'
	case TokenMoveLeft:
		return '<'
	case TokenIncrement:
		return '+'
	case TokenDecrement:
		return '-'
	case TokenOutput:
		return '.'
	case TokenInput:
		return ','
	case TokenLoopBegin:
		return '['
	case TokenLoopEnd:
		return ']'
	}
	return 0
}

// Foldable reports whether consecutive tokens of this type may be
// run-length folded into one instruction.
func (t TokenType) Foldable() bool {
	switch t {
	case TokenMoveRight, TokenMoveLeft, TokenIncrement, TokenDecrement:
		return true
	}
	return false
}

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
type Token struct {
	Type TokenType
	Pos  Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	return fmt.Sprintf("%s(%q)@%s", t.Type, t.Type.Char(), t.Pos)
}
