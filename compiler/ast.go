package compiler

import "strings"

// ---------------------------------------------------------------------------
// Structured form: a tree of run-length folded instructions
// ---------------------------------------------------------------------------

// Node is the interface implemented by all structured-form instructions.
type Node interface {
	Pos() Position
	Type() TokenType // the command this node was compiled from
	node()           // marker method
}

// Move is a folded run of MoveRight or MoveLeft commands.
type Move struct {
	PosVal Position
	Count  int // run length, >= 1
	Left   bool
}

func (n *Move) Pos() Position { return n.PosVal }
func (n *Move) node()         {}

func (n *Move) Type() TokenType {
	if n.Left {
		return TokenMoveLeft
	}
	return TokenMoveRight
}

// Offset returns the signed pointer displacement.
func (n *Move) Offset() int {
	if n.Left {
		return -n.Count
	}
	return n.Count
}

// Add is a folded run of Increment or Decrement commands. It keeps the full
// run length; the applied delta is reduced modulo 256, which is exact because
// cells wrap modulo 256.
type Add struct {
	PosVal   Position
	Count    int // run length, >= 1
	Negative bool
}

func (n *Add) Pos() Position { return n.PosVal }
func (n *Add) node()         {}

func (n *Add) Type() TokenType {
	if n.Negative {
		return TokenDecrement
	}
	return TokenIncrement
}

// Delta returns the amount added to the cell, modulo 256.
func (n *Add) Delta() byte {
	if n.Negative {
		return byte(-n.Count)
	}
	return byte(n.Count)
}

// Output writes the current cell.
type Output struct {
	PosVal Position
}

func (n *Output) Pos() Position   { return n.PosVal }
func (n *Output) Type() TokenType { return TokenOutput }
func (n *Output) node()           {}

// Input reads one byte into the current cell.
type Input struct {
	PosVal Position
}

func (n *Input) Pos() Position   { return n.PosVal }
func (n *Input) Type() TokenType { return TokenInput }
func (n *Input) node()           {}

// Loop repeats Body while the current cell is non-zero. A Loop exclusively
// owns its body.
type Loop struct {
	PosVal Position // position of '['
	EndPos Position // position of the matching ']'
	Body   []Node
}

func (n *Loop) Pos() Position   { return n.PosVal }
func (n *Loop) Type() TokenType { return TokenLoopBegin }
func (n *Loop) node()           {}

// Program is a compiled structured-form program.
type Program struct {
	Body []Node
}

// Walk calls fn for every node in depth-first source order. Returning false
// from fn skips the node's loop body.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		if loop, ok := n.(*Loop); ok {
			Walk(loop.Body, fn)
		}
	}
}

// Tokens decompiles the program back into its command sequence, expanding
// every folded run to its original length.
func (p *Program) Tokens() []TokenType {
	var out []TokenType
	var emit func([]Node)
	emit = func(nodes []Node) {
		for _, n := range nodes {
			switch n := n.(type) {
			case *Move:
				for i := 0; i < n.Count; i++ {
					out = append(out, n.Type())
				}
			case *Add:
				for i := 0; i < n.Count; i++ {
					out = append(out, n.Type())
				}
			case *Loop:
				out = append(out, TokenLoopBegin)
				emit(n.Body)
				out = append(out, TokenLoopEnd)
			default:
				out = append(out, n.Type())
			}
		}
	}
	emit(p.Body)
	return out
}

// String returns the canonical command text of the program.
func (p *Program) String() string {
	var sb strings.Builder
	for _, t := range p.Tokens() {
		sb.WriteByte(t.Char())
	}
	return sb.String()
}

// Depth returns the deepest loop nesting in the program.
func (p *Program) Depth() int {
	return depth(p.Body)
}

func depth(nodes []Node) int {
	max := 0
	for _, n := range nodes {
		if loop, ok := n.(*Loop); ok {
			if d := 1 + depth(loop.Body); d > max {
				max = d
			}
		}
	}
	return max
}
