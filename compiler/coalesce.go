package compiler

// Coalesce shrinks the compiled image by inlining, for every label's
// block, any long-form jump whose target has fewer than 2 references:
// singly-referenced (or never-referenced, which can only be a dead block)
// targets are spliced directly in place of the jump, recursively, until
// every remaining jump in the block targets a label with refcount >= 2.
//
// Running Coalesce twice over the same blocks is a no-op: every jump left
// standing after one pass already targets a refcount>=2 label, and nothing
// about a second pass changes those refcounts.
func Coalesce(t *Table, blocks map[int]Block) {
	for idx, b := range blocks {
		blocks[idx] = coalesceBlock(t, idx, b, blocks)
	}
}

// coalesceBlock repeatedly inlines eligible jump targets into b until no
// more splices apply. The iteration cap guards against a cyclic chain of
// mutually singly-referenced, entirely unreachable blocks (dead code with
// no external entry, which cannot arise from any label reachable from an
// entry point, per the label-refcount invariant) inlining into itself
// forever; a well-formed program never reaches it.
func coalesceBlock(t *Table, self int, b Block, blocks map[int]Block) Block {
	maxPasses := len(blocks)*2 + 4
	for pass := 0; pass < maxPasses; pass++ {
		spliced := false
		for _, in := range scanInstructions(b) {
			if !in.isJump {
				continue
			}
			target := int(b[in.operand])
			if target == self {
				continue
			}
			if t.RefCounts[target] >= 2 {
				continue
			}

			targetBlock := blocks[target]
			next := make(Block, 0, len(b)-in.width+len(targetBlock))
			next = append(next, b[:in.pos]...)
			next = append(next, targetBlock...)
			next = append(next, b[in.pos+in.width:]...)
			b = next
			spliced = true
			break
		}
		if !spliced {
			break
		}
	}
	return b
}
