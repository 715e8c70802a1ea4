package compiler

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmatchedLoopBegin reports a '[' with no ']' before the end of input.
	ErrUnmatchedLoopBegin = errors.New("unmatched loop begin")

	// ErrUnmatchedLoopEnd reports a ']' with no open '['.
	ErrUnmatchedLoopEnd = errors.New("unmatched loop end")
)

// CompileError is a fatal compilation failure at a source position.
// Compilation never returns a partial program alongside it.
type CompileError struct {
	Kind error    // ErrUnmatchedLoopBegin or ErrUnmatchedLoopEnd
	Pos  Position // position of the offending bracket
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %s: %v", e.Pos, e.Kind)
}

func (e *CompileError) Unwrap() error {
	return e.Kind
}

func unmatchedBegin(tok Token) *CompileError {
	return &CompileError{Kind: ErrUnmatchedLoopBegin, Pos: tok.Pos}
}

func unmatchedEnd(tok Token) *CompileError {
	return &CompileError{Kind: ErrUnmatchedLoopEnd, Pos: tok.Pos}
}
