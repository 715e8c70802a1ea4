package bytecode

import (
	"bytes"
	"errors"
	"testing"
)

func TestMarshalChunkRoundTrip(t *testing.T) {
	c := loopChunk()
	c.AddSourceLocation(0, 1, 1)

	data, err := MarshalChunk(c)
	if err != nil {
		t.Fatalf("MarshalChunk() = %v", err)
	}

	got, err := UnmarshalChunk(data)
	if err != nil {
		t.Fatalf("UnmarshalChunk() = %v", err)
	}
	if got.Decompile() != c.Decompile() {
		t.Errorf("round trip = %q, want %q", got.Decompile(), c.Decompile())
	}
	for i := range c.Code {
		if got.Code[i] != c.Code[i] {
			t.Errorf("Code[%d] = %+v, want %+v", i, got.Code[i], c.Code[i])
		}
	}
}

func TestMarshalChunkDeterministic(t *testing.T) {
	a, err := MarshalChunk(loopChunk())
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalChunk(loopChunk())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal chunks produced different CBOR")
	}
}

func TestUnmarshalChunkRejectsBadJumps(t *testing.T) {
	c := loopChunk()
	c.Code[8].Arg = 0

	data, err := MarshalChunk(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalChunk(data); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("UnmarshalChunk() = %v, want ErrInvalidChunk", err)
	}
}

func TestUnmarshalChunkGarbage(t *testing.T) {
	if _, err := UnmarshalChunk([]byte{0xFF, 0x00, 0x13}); err == nil {
		t.Error("UnmarshalChunk(garbage) succeeded")
	}
}
