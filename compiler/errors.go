package compiler

import (
	"fmt"

	"github.com/jedrobots/gridvm/grid"
)

// TooManyLabelsError reports more than 255 labels in a single grid; label
// indices are one byte wide in compiled jump operands.
type TooManyLabelsError struct {
	Count int
}

func (e *TooManyLabelsError) Error() string {
	return fmt.Sprintf("too many labels: %d exceeds the 255-label limit", e.Count)
}

// AddressTooLargeError reports a DIGIT push whose address doesn't fit in
// the 15-bit PUSH operand.
type AddressTooLargeError struct {
	Addr int
}

func (e *AddressTooLargeError) Error() string {
	return fmt.Sprintf("address %d exceeds the 15-bit PUSH address space", e.Addr)
}

// LabelNotFoundError reports an internal lookup failure: a jump target that
// should have been created during label enumeration was not found. This
// indicates a compiler invariant violation, not a malformed source grid.
type LabelNotFoundError struct {
	At  grid.Vector
	Dir grid.Vector
}

func (e *LabelNotFoundError) Error() string {
	return fmt.Sprintf("no label at %v walking %v", e.At, e.Dir)
}

// OffGridError reports a path that walked off the edge of the grid without
// reaching a terminator (HALT, TURN, START, or COND). The grid has no
// implicit wrap or wall, so this is a malformed program.
type OffGridError struct {
	Label Label
	At    grid.Vector
}

func (e *OffGridError) Error() string {
	return fmt.Sprintf("path from %v walked off-grid at %v without reaching a terminator", e.Label, e.At)
}
