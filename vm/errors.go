package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/tape/compiler"
)

var (
	// ErrPointerOutOfBounds reports pointer motion outside [0, tape length)
	// under BoundsFail, or below zero under BoundsGrow.
	ErrPointerOutOfBounds = errors.New("pointer out of bounds")

	// ErrTapeLimit reports that BoundsGrow would exceed Config.MaxTapeSize.
	ErrTapeLimit = errors.New("tape size limit reached")

	// ErrStepLimit reports that Config.MaxSteps instructions have run.
	ErrStepLimit = errors.New("step limit exceeded")
)

// RuntimeError halts a run. Output written before the failure has already
// been flushed to the sink.
type RuntimeError struct {
	Err     error             // cause: a sentinel above, an I/O error, or a context error
	Pos     compiler.Position // source position of the failing instruction, if known
	PC      int               // flat-form instruction index, or -1
	Pointer int               // data pointer (the attempted value for bounds errors)
	TapeLen int
}

func (e *RuntimeError) Error() string {
	where := ""
	if e.Pos.Line > 0 {
		where = " at " + e.Pos.String()
	}
	if errors.Is(e.Err, ErrPointerOutOfBounds) || errors.Is(e.Err, ErrTapeLimit) {
		return fmt.Sprintf("runtime error%s: %v (pointer %d, tape %d)", where, e.Err, e.Pointer, e.TapeLen)
	}
	return fmt.Sprintf("runtime error%s: %v", where, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
