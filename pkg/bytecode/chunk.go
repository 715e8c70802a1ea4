package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// Magic bytes for bytecode files: "TPBC" (TaPe ByteCode)
var BytecodeMagic = []byte{'T', 'P', 'B', 'C'}

// ErrInvalidChunk is returned when a chunk fails verification.
var ErrInvalidChunk = errors.New("invalid chunk")

// ChunkFlags contains compilation flags for a chunk.
type ChunkFlags uint16

const (
	// ChunkFlagDebug indicates debug information is present.
	ChunkFlagDebug ChunkFlags = 1 << 0
)

// Instruction is one flat-form instruction. For moves and arithmetic Arg is
// the repeat count; for loop brackets it is the index of the partner bracket.
type Instruction struct {
	Op  Opcode `cbor:"1,keyasint"`
	Arg int    `cbor:"2,keyasint,omitempty"`
}

// SourceLocation maps an instruction index to a source location for debugging.
type SourceLocation struct {
	Index  uint32 `cbor:"1,keyasint"` // Instruction index
	Line   uint32 `cbor:"2,keyasint"` // Source line number (1-based)
	Column uint32 `cbor:"3,keyasint"` // Source column number (1-based)
}

// Chunk is a flat compiled program: a linear instruction array whose loop
// brackets carry precomputed jump targets.
type Chunk struct {
	Version uint16     `cbor:"1,keyasint"`
	Flags   ChunkFlags `cbor:"2,keyasint"`

	Code []Instruction `cbor:"3,keyasint"`

	// Debug information (optional, present if ChunkFlagDebug is set)
	SourceMap []SourceLocation `cbor:"4,keyasint,omitempty"`
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk() *Chunk {
	return &Chunk{
		Version: BytecodeVersion,
		Code:    make([]Instruction, 0, 64),
	}
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(op Opcode, arg int) int {
	idx := len(c.Code)
	c.Code = append(c.Code, Instruction{Op: op, Arg: arg})
	return idx
}

// EmitJump emits a bracket instruction with a placeholder target.
// Returns the index for later patching.
func (c *Chunk) EmitJump(op Opcode) int {
	return c.Emit(op, -1)
}

// PatchJump links the bracket pair at begin and end to each other.
func (c *Chunk) PatchJump(begin, end int) {
	c.Code[begin].Arg = end
	c.Code[end].Arg = begin
}

// Len returns the number of instructions.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// AddSourceLocation adds a debug source location mapping.
func (c *Chunk) AddSourceLocation(index, line, column uint32) {
	c.Flags |= ChunkFlagDebug
	c.SourceMap = append(c.SourceMap, SourceLocation{
		Index:  index,
		Line:   line,
		Column: column,
	})
}

// GetSourceLocation returns the source location for an instruction index.
// Returns line 0, column 0 if no mapping exists.
func (c *Chunk) GetSourceLocation(index uint32) (line, column uint32) {
	// Entries are appended in index order; find the nearest at or before index.
	i := sort.Search(len(c.SourceMap), func(i int) bool {
		return c.SourceMap[i].Index > index
	})
	if i == 0 {
		return 0, 0
	}
	return c.SourceMap[i-1].Line, c.SourceMap[i-1].Column
}

// Verify checks that every opcode is known, counts are positive and the jump
// table pairs each LoopBegin with the LoopEnd at the same nesting depth in
// both directions.
func (c *Chunk) Verify() error {
	var open []int
	for i, in := range c.Code {
		switch in.Op {
		case OpRight, OpLeft, OpInc, OpDec:
			if in.Arg < 1 {
				return fmt.Errorf("%w: %s at %d has count %d", ErrInvalidChunk, in.Op, i, in.Arg)
			}
		case OpOut, OpIn:
		case OpLoopBegin:
			open = append(open, i)
		case OpLoopEnd:
			if len(open) == 0 {
				return fmt.Errorf("%w: LOOP_END at %d has no open LOOP_BEGIN", ErrInvalidChunk, i)
			}
			begin := open[len(open)-1]
			open = open[:len(open)-1]
			if c.Code[begin].Arg != i || in.Arg != begin {
				return fmt.Errorf("%w: bracket pair %d/%d has targets %d/%d",
					ErrInvalidChunk, begin, i, c.Code[begin].Arg, in.Arg)
			}
		default:
			return fmt.Errorf("%w: unknown opcode 0x%02X at %d", ErrInvalidChunk, byte(in.Op), i)
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: LOOP_BEGIN at %d is never closed", ErrInvalidChunk, open[len(open)-1])
	}
	return nil
}

// Serialize encodes the chunk to bytes for storage.
// Format:
//
//	[magic:4] [version:2] [flags:2]
//	[code_len:4] [code: (op:1 arg:4)...]
//	[debug_present:1] [debug_info:...] (if ChunkFlagDebug)
func (c *Chunk) Serialize() ([]byte, error) {
	buf := make([]byte, 0, 13+len(c.Code)*5+len(c.SourceMap)*12)

	buf = append(buf, BytecodeMagic...)
	buf = binary.BigEndian.AppendUint16(buf, c.Version)
	buf = binary.BigEndian.AppendUint16(buf, uint16(c.Flags))

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Code)))
	for _, in := range c.Code {
		if in.Arg < 0 || int64(in.Arg) > 0xFFFFFFFF {
			return nil, fmt.Errorf("argument %d of %s does not fit the bytecode format", in.Arg, in.Op)
		}
		buf = append(buf, byte(in.Op))
		buf = binary.BigEndian.AppendUint32(buf, uint32(in.Arg))
	}

	if c.Flags&ChunkFlagDebug != 0 {
		buf = append(buf, 1)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.SourceMap)))
		for _, loc := range c.SourceMap {
			buf = binary.BigEndian.AppendUint32(buf, loc.Index)
			buf = binary.BigEndian.AppendUint32(buf, loc.Line)
			buf = binary.BigEndian.AppendUint32(buf, loc.Column)
		}
	} else {
		buf = append(buf, 0)
	}

	return buf, nil
}

// Deserialize decodes and verifies a chunk from bytes.
func Deserialize(data []byte) (*Chunk, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("bytecode too short: need at least 8 bytes, got %d", len(data))
	}

	if string(data[0:4]) != string(BytecodeMagic) {
		return nil, fmt.Errorf("invalid bytecode magic: expected %q, got %q", BytecodeMagic, data[0:4])
	}

	c := &Chunk{
		Version: binary.BigEndian.Uint16(data[4:6]),
		Flags:   ChunkFlags(binary.BigEndian.Uint16(data[6:8])),
	}
	if c.Version > BytecodeVersion {
		return nil, fmt.Errorf("bytecode version %d is newer than supported version %d", c.Version, BytecodeVersion)
	}

	pos := 8
	if pos+4 > len(data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading code length at pos %d", pos)
	}
	n := int(binary.BigEndian.Uint32(data[pos:]))
	pos += 4

	if n < 0 || n > (len(data)-pos)/5 {
		return nil, fmt.Errorf("unexpected end of bytecode reading code section: need %d instructions at pos %d", n, pos)
	}
	c.Code = make([]Instruction, n)
	for i := range c.Code {
		c.Code[i].Op = Opcode(data[pos])
		c.Code[i].Arg = int(binary.BigEndian.Uint32(data[pos+1:]))
		pos += 5
	}

	if pos >= len(data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading debug marker")
	}
	hasDebug := data[pos]
	pos++

	if hasDebug != 0 {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("unexpected end of bytecode reading source map count")
		}
		locs := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if locs < 0 || locs > (len(data)-pos)/12 {
			return nil, fmt.Errorf("unexpected end of bytecode reading source map")
		}
		c.SourceMap = make([]SourceLocation, locs)
		for i := range c.SourceMap {
			c.SourceMap[i].Index = binary.BigEndian.Uint32(data[pos:])
			c.SourceMap[i].Line = binary.BigEndian.Uint32(data[pos+4:])
			c.SourceMap[i].Column = binary.BigEndian.Uint32(data[pos+8:])
			pos += 12
		}
	}

	if err := c.Verify(); err != nil {
		return nil, err
	}
	return c, nil
}

// Decompile renders the chunk back to command text, expanding counts.
func (c *Chunk) Decompile() string {
	buf := make([]byte, 0, len(c.Code))
	for _, in := range c.Code {
		ch := in.Op.Command()
		if ch == 0 {
			continue
		}
		n := 1
		if !in.Op.IsJump() && in.Arg > 1 {
			n = in.Arg
		}
		for i := 0; i < n; i++ {
			buf = append(buf, ch)
		}
	}
	return string(buf)
}
