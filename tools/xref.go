package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedrobots/gridvm/compiler"
	"github.com/jedrobots/gridvm/grid"
)

// RefKind indicates how a label is referenced.
type RefKind int

const (
	RefEntry   RefKind = iota // spawned as a process entry point
	RefJump                   // unconditional JMP target
	RefZero                   // COND's zero (">") branch target
	RefNonzero                // COND's non-zero ("<") branch target
)

func (k RefKind) String() string {
	switch k {
	case RefEntry:
		return "entry"
	case RefJump:
		return "jump"
	case RefZero:
		return "cond-zero"
	case RefNonzero:
		return "cond-nonzero"
	default:
		return "unknown"
	}
}

// Reference records one place a label is targeted from.
type Reference struct {
	Kind RefKind
	From int // label index the jump was emitted from (-1 for an entry point)
}

// LabelInfo is one entry of a cross-reference table: a label, its grid
// position, and every reference to it.
type LabelInfo struct {
	Index      int
	Label      compiler.Label
	Pos        grid.Position
	RefCount   int
	References []Reference
}

// CrossReference builds a table of every discovered label, the grid
// position it starts at, and every block (by label index) that jumps to
// it, specialized to JMP/JZ targets.
func CrossReference(g *grid.Grid, t *compiler.Table, blocks map[int]compiler.Block) LabelInfos {
	infos := make(LabelInfos, len(t.Labels))
	for idx, l := range t.Labels {
		infos[idx] = LabelInfo{
			Index:    idx,
			Label:    l,
			Pos:      cellPos(g, l.Loc),
			RefCount: t.RefCounts[idx],
		}
	}

	entry := make(map[int]bool, len(t.EntryPoints))
	for _, e := range t.EntryPoints {
		entry[e] = true
	}
	for idx := range infos {
		if entry[idx] {
			infos[idx].References = append(infos[idx].References, Reference{Kind: RefEntry, From: -1})
		}
	}

	for from, b := range blocks {
		kinds := blockJumpKinds(b)
		for _, jk := range kinds {
			infos[jk.target].References = append(infos[jk.target].References, Reference{Kind: jk.kind, From: from})
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Index < infos[j].Index })
	return infos
}

type jumpKind struct {
	target int
	kind   RefKind
}

// blockJumpKinds walks a block classifying each long-form jump: a JZ is
// always the COND zero branch, and the JMP immediately following a JZ (the
// fall-through path emitted by WalkPaths) is the COND non-zero branch; any
// other JMP is a plain unconditional jump.
func blockJumpKinds(b compiler.Block) []jumpKind {
	var out []jumpKind
	pos := 0
	prevWasJz := false
	for pos < len(b) {
		raw := b[pos]
		if raw&0x80 != 0 {
			pos += 2
			prevWasJz = false
			continue
		}
		op := (raw >> 4) & 0xf
		arg := raw & 0xf
		if (op == 0x4 || op == 0x5) && arg == 0xf && pos+1 < len(b) {
			target := int(b[pos+1])
			switch {
			case op == 0x5:
				out = append(out, jumpKind{target, RefZero})
				prevWasJz = true
			case op == 0x4 && prevWasJz:
				out = append(out, jumpKind{target, RefNonzero})
				prevWasJz = false
			default:
				out = append(out, jumpKind{target, RefJump})
				prevWasJz = false
			}
			pos += 2
			continue
		}
		prevWasJz = false
		pos++
	}
	return out
}

// LabelInfos is a convenience slice type so CrossReference's result can
// format itself.
type LabelInfos []LabelInfo

// Format prints the cross-reference table: one "#index pos dir=... refs=N"
// line per label, followed by one indented "<- kind [from #label]" line per
// reference to it.
func (infos LabelInfos) Format() string {
	var sb strings.Builder
	for _, li := range infos {
		fmt.Fprintf(&sb, "#%d %s dir=%v refs=%d\n", li.Index, li.Pos, li.Label.Dir, li.RefCount)
		for _, r := range li.References {
			if r.From < 0 {
				fmt.Fprintf(&sb, "    <- %s\n", r.Kind)
			} else {
				fmt.Fprintf(&sb, "    <- %s from #%d\n", r.Kind, r.From)
			}
		}
	}
	return sb.String()
}
