package vm

import (
	"context"

	"github.com/chazu/tape/compiler"
	"github.com/chazu/tape/pkg/bytecode"
)

// RunChunk executes a flat-form chunk with an explicit program counter.
// Bracket instructions jump through their precomputed partner index: a
// LoopBegin on a zero cell lands on its LoopEnd, which then falls through
// because the cell is still zero; a LoopEnd on a non-zero cell lands on its
// LoopBegin, which then falls into the body.
//
// The chunk must be well formed. Chunks produced by compiler.CompileFlat
// are; chunks from elsewhere should pass bytecode.Chunk.Verify first.
func (m *Machine) RunChunk(ctx context.Context, c *bytecode.Chunk) error {
	m.begin(ctx)
	return m.finish(m.execChunk(c))
}

func (m *Machine) execChunk(c *bytecode.Chunk) error {
	code := c.Code
	for pc := 0; pc < len(code); pc++ {
		if err := m.tick(); err != nil {
			return m.faultAt(c, err, pc)
		}

		in := code[pc]
		var err error
		switch in.Op {
		case bytecode.OpRight:
			err = m.move(in.Arg)

		case bytecode.OpLeft:
			err = m.move(-in.Arg)

		case bytecode.OpInc:
			m.tape[m.ptr] += byte(in.Arg)

		case bytecode.OpDec:
			m.tape[m.ptr] -= byte(in.Arg)

		case bytecode.OpOut:
			err = m.output()

		case bytecode.OpIn:
			err = m.input()

		case bytecode.OpLoopBegin:
			if m.tape[m.ptr] == 0 {
				pc = in.Arg - 1
			}

		case bytecode.OpLoopEnd:
			if m.tape[m.ptr] != 0 {
				pc = in.Arg
			}
		}
		if err != nil {
			return m.faultAt(c, err, pc)
		}
	}
	return nil
}

// faultAt attaches the source position recorded for instruction pc.
func (m *Machine) faultAt(c *bytecode.Chunk, err error, pc int) error {
	line, col := c.GetSourceLocation(uint32(pc))
	return m.fault(err, compiler.Position{Line: int(line), Column: int(col)}, pc)
}
