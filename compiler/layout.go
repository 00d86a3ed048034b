package compiler

import (
	"fmt"

	"github.com/jedrobots/gridvm/bytecode"
)

// ImageTooLargeError reports a code segment that grew past the 255-byte
// offset space: jump operands and header entry-point offsets are one byte
// wide (the header's entryOffsets field is exactly entryCount bytes), so no
// block may be laid out past offset 255.
type ImageTooLargeError struct {
	Offset int
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("code offset %d exceeds the 255-byte addressable image size", e.Offset)
}

// Layout performs the reachability walk from the entry-point label set,
// assigning every reached label an absolute image offset (the header is
// laid out before the code segment, so the first block lands at offset
// headerLen), then back-patches every long-form jump operand (previously
// a label index) with its target's resolved offset, and returns the
// entry-point offsets in entry-point order. Jump operands and entry
// offsets are therefore PC values directly usable against the image.
//
// Blocks never reached by the walk (fully inlined into their callers by
// Coalesce) are omitted from the output entirely.
func Layout(t *Table, blocks map[int]Block) (code []byte, entryOffsets []byte, err error) {
	queued := make([]bool, len(t.Labels))
	offsets := make([]int, len(t.Labels))
	for i := range offsets {
		offsets[i] = -1
	}

	var stack []int
	for _, e := range t.EntryPoints {
		if !queued[e] {
			queued[e] = true
			stack = append(stack, e)
		}
	}

	cur := bytecode.FixedHeaderSize + len(t.EntryPoints)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		offsets[idx] = cur
		b := blocks[idx]

		for _, in := range scanInstructions(b) {
			if !in.isJump {
				continue
			}
			target := int(b[in.operand])
			if !queued[target] {
				queued[target] = true
				stack = append(stack, target)
			}
		}

		code = append(code, b...)
		cur += len(b)
		if cur > 255 {
			return nil, nil, &ImageTooLargeError{Offset: cur}
		}
	}

	// Back-patch jump operands: label index -> resolved offset.
	for _, in := range scanInstructions(code) {
		if !in.isJump {
			continue
		}
		target := int(code[in.operand])
		if offsets[target] < 0 {
			return nil, nil, &LabelNotFoundError{}
		}
		code[in.operand] = byte(offsets[target])
	}

	// Back-patch entry-point offsets, in entry-point order.
	entryOffsets = make([]byte, len(t.EntryPoints))
	for i, e := range t.EntryPoints {
		if offsets[e] < 0 {
			return nil, nil, &LabelNotFoundError{}
		}
		entryOffsets[i] = byte(offsets[e])
	}

	return code, entryOffsets, nil
}
