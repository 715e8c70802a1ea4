// Package vm implements the tape machine.
//
// A Machine owns a byte tape and a data pointer and executes either
// compiled form produced by package compiler:
//   - RunProgram walks a structured-form tree, recursing into loops
//   - RunChunk dispatches a flat-form chunk with an explicit program
//     counter and precomputed jump targets
//
// Cells wrap modulo 256. Pointer motion past the tape edges follows the
// configured BoundsPolicy; the default halts with ErrPointerOutOfBounds.
package vm
