package vm

import (
	"context"

	"github.com/chazu/tape/compiler"
)

// RunProgram executes a structured-form program to completion. Loops are
// executed by recursion over the program tree, so nesting depth is bounded
// by the goroutine stack.
func (m *Machine) RunProgram(ctx context.Context, p *compiler.Program) error {
	m.begin(ctx)
	return m.finish(m.execNodes(p.Body))
}

func (m *Machine) execNodes(nodes []compiler.Node) error {
	for _, n := range nodes {
		if err := m.tick(); err != nil {
			return m.fault(err, n.Pos(), -1)
		}

		var err error
		switch n := n.(type) {
		case *compiler.Move:
			err = m.move(n.Offset())

		case *compiler.Add:
			m.tape[m.ptr] += n.Delta()

		case *compiler.Output:
			err = m.output()

		case *compiler.Input:
			err = m.input()

		case *compiler.Loop:
			err = m.execLoop(n)
			if err != nil {
				// already positioned by the inner node
				return err
			}
		}
		if err != nil {
			return m.fault(err, n.Pos(), -1)
		}
	}
	return nil
}

// execLoop runs the body while the current cell is non-zero. Each re-test
// counts as an instruction so an empty loop still observes limits.
func (m *Machine) execLoop(loop *compiler.Loop) error {
	for m.tape[m.ptr] != 0 {
		if err := m.execNodes(loop.Body); err != nil {
			return err
		}
		if err := m.tick(); err != nil {
			return m.fault(err, loop.EndPos, -1)
		}
	}
	return nil
}
