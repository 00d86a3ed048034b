package compiler

import (
	"github.com/jedrobots/gridvm/bytecode"
	"github.com/jedrobots/gridvm/grid"
)

// DiscoverLabels scans the grid row-major and creates one label per START
// and TURN token, and two labels (the zero-branch ">" and the non-zero
// branch "<") per COND token. START labels are recorded as entry points
// with refcount 1 so the emitter's dispatch loop always has processes to
// spawn. COND's zero branch (the JZ target) starts at refcount 1 so its
// post-emission refcount is 2 and the coalescer never inlines it: inlining
// a JZ's target in place would discard the conditional test entirely,
// unlike inlining a plain JMP's target, which is always safe. See
// DESIGN.md for why this pins the zero branch rather than the non-zero one.
func DiscoverLabels(g *grid.Grid) (*Table, error) {
	t := newTable()

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			tok := g.Tokens[y][x]
			loc := grid.Vector{X: x, Y: y}

			switch tok.Kind {
			case grid.START:
				idx := t.add(Label{Loc: loc, Dir: tok.Direction()}, 1)
				t.EntryPoints = append(t.EntryPoints, idx)

			case grid.TURN:
				t.add(Label{Loc: loc, Dir: tok.Direction()}, 0)

			case grid.COND:
				t.add(Label{Loc: loc, Dir: grid.DirRight}, 1) // zero branch (JZ target, pinned)
				t.add(Label{Loc: loc, Dir: grid.DirLeft}, 0)  // non-zero branch (JMP target)
			}
		}
	}

	if len(t.Labels) > bytecode.MaxLabels-1 {
		return nil, &TooManyLabelsError{Count: len(t.Labels)}
	}

	return t, nil
}

// Block is the ordered byte sequence compiled from one label, ending in a
// terminator (HALT, or a JMP/JZ pair whose operand bytes are still label
// indices awaiting resolution by Layout).
type Block []byte

// WalkPaths compiles every label in the table into a Block by walking the
// grid from label.Loc+label.Dir, stepping by label.Dir, until a terminator
// token is reached.
func WalkPaths(g *grid.Grid, t *Table) (map[int]Block, error) {
	blocks := make(map[int]Block, len(t.Labels))
	for idx, l := range t.Labels {
		b, err := walkOne(g, t, idx, l)
		if err != nil {
			return nil, err
		}
		blocks[idx] = b
	}
	return blocks, nil
}

func walkOne(g *grid.Grid, t *Table, idx int, l Label) (Block, error) {
	var out Block
	pos := l.Loc.Add(l.Dir)
	dir := l.Dir

	for {
		if pos.Y < 0 || pos.Y >= g.Height || pos.X < 0 || pos.X >= g.Width {
			return nil, &OffGridError{Label: l, At: pos}
		}
		tok := g.Tokens[pos.Y][pos.X]

		switch tok.Kind {
		case grid.NOP:
			// emit nothing

		case grid.DIGIT:
			addr := g.Addr(pos.X, pos.Y)
			if addr >= bytecode.MaxAddr {
				return nil, &AddressTooLargeError{Addr: addr}
			}
			enc := bytecode.EncodePush(addr)
			out = append(out, enc[0], enc[1])

		case grid.StackOp:
			out = append(out, encodeStackOp(tok.SubOp()))

		case grid.ReadByte:
			out = append(out, bytecode.EncodeSimple(bytecode.OpLoad))

		case grid.WriteByte:
			out = append(out, bytecode.EncodeSimple(bytecode.OpStore))

		case grid.HALT:
			out = append(out, bytecode.EncodeSimple(bytecode.OpHalt))
			return out, nil

		case grid.TURN, grid.START:
			target, ok := t.Find(Label{Loc: pos, Dir: tok.Direction()})
			if !ok {
				return nil, &LabelNotFoundError{At: pos, Dir: tok.Direction()}
			}
			t.Bump(target)
			out = append(out, bytecode.EncodeLongJump(bytecode.OpJmp), byte(target))
			return out, nil

		case grid.COND:
			zero, ok := t.Find(Label{Loc: pos, Dir: grid.DirRight})
			if !ok {
				return nil, &LabelNotFoundError{At: pos, Dir: grid.DirRight}
			}
			nonzero, ok := t.Find(Label{Loc: pos, Dir: grid.DirLeft})
			if !ok {
				return nil, &LabelNotFoundError{At: pos, Dir: grid.DirLeft}
			}
			t.Bump(zero)
			t.Bump(nonzero)
			out = append(out, bytecode.EncodeLongJump(bytecode.OpJz), byte(zero))
			out = append(out, bytecode.EncodeLongJump(bytecode.OpJmp), byte(nonzero))
			return out, nil
		}

		pos = pos.Add(dir)
	}
}

func encodeStackOp(sub grid.StackSubOp) byte {
	var s byte
	switch sub {
	case grid.OpSub:
		s = bytecode.SubSub
	case grid.OpAdd:
		s = bytecode.SubAdd
	case grid.OpMul:
		s = bytecode.SubMul
	case grid.OpDiv:
		s = bytecode.SubDiv
	case grid.OpMod:
		s = bytecode.SubMod
	case grid.OpAnd:
		s = bytecode.SubAnd
	case grid.OpOr:
		s = bytecode.SubOr
	case grid.OpNot:
		s = bytecode.SubNot
	case grid.OpPop:
		s = bytecode.SubPop
	case grid.OpSwap:
		s = bytecode.SubSwap
	case grid.OpDup:
		s = bytecode.SubDup
	}
	return bytecode.EncodeStackOp(s)
}
