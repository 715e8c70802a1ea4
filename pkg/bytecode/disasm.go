package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Tape Bytecode v%d\n", c.Version))
	sb.WriteString(fmt.Sprintf("; Flags: 0x%04X", c.Flags))
	if c.Flags&ChunkFlagDebug != 0 {
		sb.WriteString(" [DEBUG]")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("; Instructions: %d\n\n", len(c.Code)))

	sb.WriteString("; Code:\n")
	for i := range c.Code {
		line := c.disassembleInstruction(i)
		if c.Flags&ChunkFlagDebug != 0 {
			if srcLine, srcCol := c.GetSourceLocation(uint32(i)); srcLine > 0 {
				sb.WriteString(fmt.Sprintf("%06d  %-24s ; line %d:%d\n", i, line, srcLine, srcCol))
				continue
			}
		}
		sb.WriteString(fmt.Sprintf("%06d  %s\n", i, line))
	}

	return sb.String()
}

// disassembleInstruction formats the instruction at index.
func (c *Chunk) disassembleInstruction(index int) string {
	if index >= len(c.Code) {
		return "<end of code>"
	}

	in := c.Code[index]
	switch in.Op {
	case OpLoopBegin, OpLoopEnd:
		return fmt.Sprintf("%-12s -> %06d", in.Op, in.Arg)
	case OpRight, OpLeft, OpInc, OpDec:
		return fmt.Sprintf("%-12s %d", in.Op, in.Arg)
	default:
		return in.Op.String()
	}
}
