package compiler

import "github.com/jedrobots/gridvm/bytecode"

// instr describes one decoded instruction within a Block: its offset, its
// total width in bytes, and, for a long-form jump, the offset of its
// one-byte operand.
type instr struct {
	pos     int
	width   int
	isJump  bool
	operand int // valid when isJump
}

// scanInstructions walks a block from front to back, yielding one instr per
// instruction. It is the single place that understands PUSH's two-byte
// width and a long-form jump's one-byte operand, so coalescing and layout
// never have to re-derive instruction boundaries by hand.
func scanInstructions(b Block) []instr {
	var out []instr
	pos := 0
	for pos < len(b) {
		raw := b[pos]
		if bytecode.IsPush(raw) {
			out = append(out, instr{pos: pos, width: 2})
			pos += 2
			continue
		}

		op := bytecode.DecodeOp(raw)
		arg := bytecode.DecodeArg(raw)
		if (op == bytecode.OpJmp || op == bytecode.OpJz) && arg == bytecode.LongJumpArg {
			out = append(out, instr{pos: pos, width: 2, isJump: true, operand: pos + 1})
			pos += 2
			continue
		}

		out = append(out, instr{pos: pos, width: 1})
		pos++
	}
	return out
}
