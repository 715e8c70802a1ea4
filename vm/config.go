package vm

import (
	"fmt"
	"strings"
)

// DefaultTapeSize is the number of cells a machine starts with.
const DefaultTapeSize = 300000

// BoundsPolicy decides what happens when the data pointer leaves the tape.
type BoundsPolicy int

const (
	// BoundsFail halts execution with ErrPointerOutOfBounds.
	BoundsFail BoundsPolicy = iota
	// BoundsWrap takes the pointer modulo the tape length.
	BoundsWrap
	// BoundsGrow extends the tape to the right on demand. Moving below
	// cell 0 still fails.
	BoundsGrow
)

func (p BoundsPolicy) String() string {
	switch p {
	case BoundsFail:
		return "fail"
	case BoundsWrap:
		return "wrap"
	case BoundsGrow:
		return "grow"
	}
	return fmt.Sprintf("BoundsPolicy(%d)", int(p))
}

// ParseBoundsPolicy parses "fail", "wrap" or "grow".
func ParseBoundsPolicy(name string) (BoundsPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fail", "":
		return BoundsFail, nil
	case "wrap":
		return BoundsWrap, nil
	case "grow":
		return BoundsGrow, nil
	}
	return 0, fmt.Errorf("unknown bounds policy %q (want fail, wrap or grow)", name)
}

// Config controls a Machine.
type Config struct {
	TapeSize int          // initial cell count; <= 0 means DefaultTapeSize
	Bounds   BoundsPolicy // pointer policy at the tape edges

	// MaxTapeSize caps growth under BoundsGrow. 0 means no cap.
	MaxTapeSize int

	// MaxSteps halts execution with ErrStepLimit after this many
	// instructions. 0 means no limit.
	MaxSteps int64
}

// DefaultConfig returns the reference configuration: 300000 cells, fail on
// out-of-bounds pointer motion, no step limit.
func DefaultConfig() Config {
	return Config{
		TapeSize: DefaultTapeSize,
		Bounds:   BoundsFail,
	}
}

// Validate reports configuration values that can never run.
func (c Config) Validate() error {
	if c.TapeSize < 0 {
		return fmt.Errorf("tape size %d is negative", c.TapeSize)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max steps %d is negative", c.MaxSteps)
	}
	if c.Bounds < BoundsFail || c.Bounds > BoundsGrow {
		return fmt.Errorf("invalid bounds policy %d", int(c.Bounds))
	}
	if c.MaxTapeSize != 0 && c.MaxTapeSize < c.TapeSize {
		return fmt.Errorf("max tape size %d is smaller than tape size %d", c.MaxTapeSize, c.TapeSize)
	}
	return nil
}
