package bytecode

import (
	"bytes"
	"errors"
	"testing"
)

// loopChunk builds "+[>[-]<-]." by hand.
func loopChunk() *Chunk {
	c := NewChunk()
	c.Emit(OpInc, 1)
	outer := c.EmitJump(OpLoopBegin)
	c.Emit(OpRight, 1)
	inner := c.EmitJump(OpLoopBegin)
	c.Emit(OpDec, 1)
	c.PatchJump(inner, c.EmitJump(OpLoopEnd))
	c.Emit(OpLeft, 1)
	c.Emit(OpDec, 1)
	c.PatchJump(outer, c.EmitJump(OpLoopEnd))
	c.Emit(OpOut, 0)
	return c
}

func TestNewChunk(t *testing.T) {
	c := NewChunk()

	if c.Version != BytecodeVersion {
		t.Errorf("Version = %d, want %d", c.Version, BytecodeVersion)
	}
	if c.Code == nil {
		t.Error("Code is nil")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestChunkEmit(t *testing.T) {
	c := NewChunk()

	if idx := c.Emit(OpInc, 3); idx != 0 {
		t.Errorf("first Emit index = %d, want 0", idx)
	}
	if idx := c.Emit(OpOut, 0); idx != 1 {
		t.Errorf("second Emit index = %d, want 1", idx)
	}
	if c.Code[0] != (Instruction{Op: OpInc, Arg: 3}) {
		t.Errorf("Code[0] = %+v", c.Code[0])
	}
}

func TestChunkPatchJump(t *testing.T) {
	c := loopChunk()

	tests := []struct {
		index int
		op    Opcode
		arg   int
	}{
		{1, OpLoopBegin, 8},
		{3, OpLoopBegin, 5},
		{5, OpLoopEnd, 3},
		{8, OpLoopEnd, 1},
	}
	for _, tt := range tests {
		in := c.Code[tt.index]
		if in.Op != tt.op || in.Arg != tt.arg {
			t.Errorf("Code[%d] = %s %d, want %s %d", tt.index, in.Op, in.Arg, tt.op, tt.arg)
		}
	}
	if err := c.Verify(); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestChunkVerifyRejects(t *testing.T) {
	tests := []struct {
		name string
		code []Instruction
	}{
		{"zero count", []Instruction{{OpRight, 0}}},
		{"unknown opcode", []Instruction{{Opcode(0x7F), 1}}},
		{"unclosed begin", []Instruction{{OpLoopBegin, 1}, {OpInc, 1}}},
		{"unopened end", []Instruction{{OpLoopEnd, 0}}},
		{"asymmetric targets", []Instruction{{OpLoopBegin, 1}, {OpLoopEnd, 1}}},
		{"crossing pairs", []Instruction{
			{OpLoopBegin, 3}, {OpLoopBegin, 2}, {OpLoopEnd, 1}, {OpLoopEnd, 0},
			{OpLoopBegin, 6}, {OpLoopBegin, 7}, {OpLoopEnd, 4}, {OpLoopEnd, 5},
		}},
	}

	for _, tt := range tests {
		c := NewChunk()
		c.Code = tt.code
		err := c.Verify()
		if !errors.Is(err, ErrInvalidChunk) {
			t.Errorf("%s: Verify() = %v, want ErrInvalidChunk", tt.name, err)
		}
	}
}

func TestChunkSourceLocation(t *testing.T) {
	c := NewChunk()
	c.Emit(OpInc, 1)
	c.AddSourceLocation(0, 1, 1)
	c.Emit(OpOut, 0)
	c.AddSourceLocation(1, 2, 4)

	if c.Flags&ChunkFlagDebug == 0 {
		t.Error("debug flag not set")
	}
	if line, col := c.GetSourceLocation(1); line != 2 || col != 4 {
		t.Errorf("GetSourceLocation(1) = %d:%d, want 2:4", line, col)
	}
	if line, col := c.GetSourceLocation(5); line != 2 || col != 4 {
		t.Errorf("GetSourceLocation(5) = %d:%d, want nearest 2:4", line, col)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	c := loopChunk()
	for i := range c.Code {
		c.AddSourceLocation(uint32(i), 1, uint32(i+1))
	}

	data, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize() = %v", err)
	}
	if !bytes.HasPrefix(data, BytecodeMagic) {
		t.Fatalf("serialized data missing magic: %q", data[:4])
	}

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize() = %v", err)
	}
	if got.Len() != c.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), c.Len())
	}
	for i := range c.Code {
		if got.Code[i] != c.Code[i] {
			t.Errorf("Code[%d] = %+v, want %+v", i, got.Code[i], c.Code[i])
		}
	}
	if len(got.SourceMap) != len(c.SourceMap) {
		t.Errorf("SourceMap len = %d, want %d", len(got.SourceMap), len(c.SourceMap))
	}
}

func TestDeserializeErrors(t *testing.T) {
	good, err := loopChunk().Serialize()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("TPB")},
		{"bad magic", append([]byte("XXXX"), good[4:]...)},
		{"truncated code", good[:20]},
		{"missing debug marker", good[:len(good)-1]},
		{"future version", append(append([]byte("TPBC"), 0xFF, 0xFF), good[6:]...)},
	}

	for _, tt := range tests {
		if _, err := Deserialize(tt.data); err == nil {
			t.Errorf("%s: Deserialize succeeded, want error", tt.name)
		}
	}
}

func TestDeserializeVerifies(t *testing.T) {
	c := loopChunk()
	c.Code[1].Arg = 2

	data, err := c.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Deserialize(data); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("Deserialize() = %v, want ErrInvalidChunk", err)
	}
}

func TestChunkDecompile(t *testing.T) {
	c := loopChunk()
	if got := c.Decompile(); got != "+[>[-]<-]." {
		t.Errorf("Decompile() = %q, want %q", got, "+[>[-]<-].")
	}

	folded := NewChunk()
	folded.Emit(OpRight, 3)
	folded.Emit(OpInc, 300)
	if got := folded.Decompile(); len(got) != 303 {
		t.Errorf("Decompile() of folded chunk has %d commands, want 303", len(got))
	}
}
