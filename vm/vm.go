package vm

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/tliron/commonlog"

	"github.com/chazu/tape/compiler"
)

var log = commonlog.GetLogger("tape.vm")

// ---------------------------------------------------------------------------
// Machine: tape, data pointer and byte I/O
// ---------------------------------------------------------------------------

// ctxCheckMask sets how often a run polls its context: every
// ctxCheckMask+1 instructions.
const ctxCheckMask = 1<<14 - 1

// Machine owns a tape of byte cells and a data pointer, and executes
// compiled programs against them. A Machine is not safe for concurrent use.
// Tape state persists across successive runs on the same Machine.
type Machine struct {
	cfg  Config
	tape []byte
	ptr  int

	in  io.Reader
	out *bufio.Writer
	buf [1]byte

	ctx   context.Context
	steps int64
	stats Stats
}

// Stats describes the work done by a machine so far.
type Stats struct {
	Steps      int64 // instructions executed, including loop tests
	MaxPointer int   // highest cell index reached
	TapeSize   int   // current tape length
	Grows      int   // times the tape was extended under BoundsGrow
	BytesIn    int64
	BytesOut   int64
}

// New creates a machine with a zeroed tape. A nil in behaves as an
// exhausted source; a nil out discards output.
func New(cfg Config, in io.Reader, out io.Writer) *Machine {
	if cfg.TapeSize <= 0 {
		cfg.TapeSize = DefaultTapeSize
	}
	if out == nil {
		out = io.Discard
	}
	return &Machine{
		cfg:  cfg,
		tape: make([]byte, cfg.TapeSize),
		in:   in,
		out:  bufio.NewWriter(out),
	}
}

// Config returns the machine's effective configuration.
func (m *Machine) Config() Config {
	return m.cfg
}

// Tape returns the machine's tape. Callers must not modify it.
func (m *Machine) Tape() []byte {
	return m.tape
}

// Pointer returns the data pointer.
func (m *Machine) Pointer() int {
	return m.ptr
}

// Cell returns the value of the cell under the data pointer.
func (m *Machine) Cell() byte {
	return m.tape[m.ptr]
}

// Stats returns execution counters.
func (m *Machine) Stats() Stats {
	s := m.stats
	s.Steps = m.steps
	s.TapeSize = len(m.tape)
	return s
}

// begin prepares a run.
func (m *Machine) begin(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	m.ctx = ctx
	log.Debugf("run start: tape=%d bounds=%s max-steps=%d", len(m.tape), m.cfg.Bounds, m.cfg.MaxSteps)
}

// finish flushes output and reports the first error.
func (m *Machine) finish(err error) error {
	if ferr := m.out.Flush(); ferr != nil && err == nil {
		err = &RuntimeError{Err: ferr, PC: -1, Pointer: m.ptr, TapeLen: len(m.tape)}
	}
	m.ctx = nil
	if err != nil {
		log.Debugf("run halted after %d steps: %v", m.steps, err)
		return err
	}
	log.Debugf("run done: steps=%d max-pointer=%d out=%d", m.steps, m.stats.MaxPointer, m.stats.BytesOut)
	return nil
}

// tick counts one instruction and enforces the step limit and context.
func (m *Machine) tick() error {
	m.steps++
	if m.cfg.MaxSteps > 0 && m.steps > m.cfg.MaxSteps {
		return ErrStepLimit
	}
	if m.steps&ctxCheckMask == 0 {
		if err := m.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// move displaces the pointer by offset, applying the bounds policy when the
// target falls outside the tape.
func (m *Machine) move(offset int) error {
	p := m.ptr + offset
	if uint(p) < uint(len(m.tape)) {
		m.ptr = p
	} else if err := m.outOfBounds(p); err != nil {
		return err
	}
	if m.ptr > m.stats.MaxPointer {
		m.stats.MaxPointer = m.ptr
	}
	return nil
}

// outOfBounds resolves a pointer target outside the tape.
func (m *Machine) outOfBounds(p int) error {
	switch m.cfg.Bounds {
	case BoundsWrap:
		p %= len(m.tape)
		if p < 0 {
			p += len(m.tape)
		}
		m.ptr = p
		return nil

	case BoundsGrow:
		if p >= 0 {
			if err := m.grow(p); err != nil {
				return err
			}
			m.ptr = p
			return nil
		}
	}
	return &RuntimeError{Err: ErrPointerOutOfBounds, PC: -1, Pointer: p, TapeLen: len(m.tape)}
}

// grow extends the tape so that index p is valid, doubling its length.
func (m *Machine) grow(p int) error {
	n := len(m.tape)
	for n <= p {
		n *= 2
	}
	if max := m.cfg.MaxTapeSize; max > 0 && n > max {
		if p >= max {
			return &RuntimeError{Err: ErrTapeLimit, PC: -1, Pointer: p, TapeLen: len(m.tape)}
		}
		n = max
	}
	tape := make([]byte, n)
	copy(tape, m.tape)
	m.tape = tape
	m.stats.Grows++
	log.Debugf("tape grown to %d cells", n)
	return nil
}

// output writes the current cell as one raw byte.
func (m *Machine) output() error {
	if err := m.out.WriteByte(m.tape[m.ptr]); err != nil {
		return err
	}
	m.stats.BytesOut++
	return nil
}

// input reads one byte into the current cell. An exhausted source leaves
// the cell unchanged.
func (m *Machine) input() error {
	if m.in == nil {
		return nil
	}
	// Pending output may be a prompt for this read.
	if err := m.out.Flush(); err != nil {
		return err
	}
	if br, ok := m.in.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err != nil {
			return ignoreEOF(err)
		}
		m.tape[m.ptr] = b
		m.stats.BytesIn++
		return nil
	}
	for {
		n, err := m.in.Read(m.buf[:])
		if n == 1 {
			m.tape[m.ptr] = m.buf[0]
			m.stats.BytesIn++
			return nil
		}
		if err != nil {
			return ignoreEOF(err)
		}
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return err
}

// fault attaches a source position and program counter to err.
func (m *Machine) fault(err error, pos compiler.Position, pc int) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		re.Pos = pos
		re.PC = pc
		return re
	}
	return &RuntimeError{Err: err, Pos: pos, PC: pc, Pointer: m.ptr, TapeLen: len(m.tape)}
}
