package compiler

import (
	"fmt"
	"strings"
)

// Strategy selects the compiled representation.
type Strategy int

const (
	// StrategyFlat compiles to a bytecode.Chunk with a precomputed jump table.
	StrategyFlat Strategy = iota
	// StrategyStructured compiles to a Program tree with run-length folding.
	StrategyStructured
)

func (s Strategy) String() string {
	switch s {
	case StrategyFlat:
		return "flat"
	case StrategyStructured:
		return "structured"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses "flat" or "structured".
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "flat", "":
		return StrategyFlat, nil
	case "structured", "tree":
		return StrategyStructured, nil
	}
	return 0, fmt.Errorf("unknown compile strategy %q (want flat or structured)", name)
}

// ---------------------------------------------------------------------------
// Structured compiler
// ---------------------------------------------------------------------------

// structuredCompiler holds the cursor over the token stream.
type structuredCompiler struct {
	tokens []Token
	pos    int
}

// Compile builds the structured form of tokens. Consecutive identical move
// and arithmetic tokens fold into one node, and each bracketed region
// becomes a Loop owning its body.
func Compile(tokens []Token) (*Program, error) {
	c := &structuredCompiler{tokens: tokens}
	body, _, err := c.pass(0)
	if err != nil {
		return nil, err
	}
	return &Program{Body: body}, nil
}

// CompileString lexes and compiles src in the structured form.
func CompileString(src string) (*Program, error) {
	return Compile(Lex(src))
}

// pass compiles tokens until the input ends or, inside a loop, until the
// ']' closing it. That ']' is consumed and returned so the caller can
// record where the loop ends.
func (c *structuredCompiler) pass(depth int) ([]Node, *Token, error) {
	var nodes []Node
	for c.pos < len(c.tokens) {
		tok := c.tokens[c.pos]
		c.pos++

		switch tok.Type {
		case TokenMoveRight, TokenMoveLeft:
			nodes = append(nodes, &Move{
				PosVal: tok.Pos,
				Count:  1 + c.countRun(tok.Type),
				Left:   tok.Type == TokenMoveLeft,
			})

		case TokenIncrement, TokenDecrement:
			nodes = append(nodes, &Add{
				PosVal:   tok.Pos,
				Count:    1 + c.countRun(tok.Type),
				Negative: tok.Type == TokenDecrement,
			})

		case TokenOutput:
			nodes = append(nodes, &Output{PosVal: tok.Pos})

		case TokenInput:
			nodes = append(nodes, &Input{PosVal: tok.Pos})

		case TokenLoopBegin:
			body, end, err := c.pass(depth + 1)
			if err != nil {
				return nil, nil, err
			}
			if end == nil {
				return nil, nil, unmatchedBegin(tok)
			}
			nodes = append(nodes, &Loop{PosVal: tok.Pos, EndPos: end.Pos, Body: body})

		case TokenLoopEnd:
			if depth == 0 {
				return nil, nil, unmatchedEnd(tok)
			}
			return nodes, &tok, nil
		}
	}
	return nodes, nil, nil
}

// countRun consumes the tokens of type t immediately following the cursor
// and returns how many it consumed.
func (c *structuredCompiler) countRun(t TokenType) int {
	n := 0
	for c.pos < len(c.tokens) && c.tokens[c.pos].Type == t {
		c.pos++
		n++
	}
	return n
}
