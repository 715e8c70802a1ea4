package bytecode

import "fmt"

// Opcode represents a flat-form instruction.
// Each source command maps to exactly one opcode.
type Opcode byte

const (
	// ========================================================================
	// Pointer movement (0x00-0x0F)
	// ========================================================================

	OpRight Opcode = 0x01 // Advance the data pointer: OpRight <count>
	OpLeft  Opcode = 0x02 // Retreat the data pointer: OpLeft <count>

	// ========================================================================
	// Cell arithmetic (0x10-0x1F)
	// ========================================================================

	OpInc Opcode = 0x10 // Add to the current cell (mod 256): OpInc <delta>
	OpDec Opcode = 0x11 // Subtract from the current cell (mod 256): OpDec <delta>

	// ========================================================================
	// I/O (0x20-0x2F)
	// ========================================================================

	OpOut Opcode = 0x20 // Write the current cell as one byte
	OpIn  Opcode = 0x21 // Read one byte into the current cell; EOF is a no-op

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpLoopBegin Opcode = 0x80 // Jump to partner if cell is zero: OpLoopBegin <match>
	OpLoopEnd   Opcode = 0x81 // Jump to partner if cell is non-zero: OpLoopEnd <match>
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name    string // Human-readable name
	Command byte   // Source command character
	HasArg  bool   // Whether Instruction.Arg is meaningful
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpRight: {"RIGHT", '>', true},
	OpLeft:  {"LEFT", '<', true},

	OpInc: {"INC", '+', true},
	OpDec: {"DEC", '-', true},

	OpOut: {"OUT", '.', false},
	OpIn:  {"IN", ',', false},

	OpLoopBegin: {"LOOP_BEGIN", '[', true},
	OpLoopEnd:   {"LOOP_END", ']', true},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsJump returns true if this opcode carries a jump target.
func (op Opcode) IsJump() bool {
	return op == OpLoopBegin || op == OpLoopEnd
}

// Command returns the source character for the opcode, or 0 if unknown.
func (op Opcode) Command() byte {
	return GetOpcodeInfo(op).Command
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
