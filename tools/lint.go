// Package tools provides static analysis and source-formatting utilities
// over a parsed grid program: unreachable-block linting, label
// cross-referencing, and source reformatting.
package tools

import (
	"fmt"
	"sort"

	"github.com/jedrobots/gridvm/compiler"
	"github.com/jedrobots/gridvm/grid"
)

// LintLevel represents the severity of a lint issue.
type LintLevel int

const (
	LintError   LintLevel = iota // Invariant violations
	LintWarning                  // Likely mistakes
	LintInfo                     // Informational observations
)

func (l LintLevel) String() string {
	switch l {
	case LintError:
		return "error"
	case LintWarning:
		return "warning"
	case LintInfo:
		return "info"
	default:
		return "unknown"
	}
}

// LintIssue represents a single lint finding, anchored at the grid cell
// (if any) that produced it.
type LintIssue struct {
	Level   LintLevel
	Pos     grid.Position
	Message string
	Code    string // e.g. "UNREACHABLE_BLOCK", "NONTERMINATING_PATH"
}

func (i *LintIssue) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", i.Pos, i.Level, i.Message, i.Code)
}

// Lint analyzes a grid's discovered labels and compiled (pre-coalesce)
// blocks for three classes of issue:
//
//   - a label with refcount == 0 that isn't an entry point: nothing ever
//     jumps to it, so its block is unreachable (UNREACHABLE_BLOCK).
//   - a START label whose block never reaches a HALT within a bounded walk
//     of its own jump chain: informational only, since loops are legal
//     (NONTERMINATING_PATH).
//   - a COND cell whose zero (">") and non-zero ("<") successor labels
//     were not both registered distinctly: a label-identity invariant
//     violation, never expected from DiscoverLabels but checked here as a
//     sanity guard (COND_IDENTITY).
func Lint(g *grid.Grid, t *compiler.Table, blocks map[int]compiler.Block) []LintIssue {
	var issues []LintIssue

	entry := make(map[int]bool, len(t.EntryPoints))
	for _, e := range t.EntryPoints {
		entry[e] = true
	}

	for idx, l := range t.Labels {
		if t.RefCounts[idx] == 0 && !entry[idx] {
			issues = append(issues, LintIssue{
				Level:   LintWarning,
				Pos:     cellPos(g, l.Loc),
				Message: fmt.Sprintf("label at %v facing %v is never jumped to", l.Loc, l.Dir),
				Code:    "UNREACHABLE_BLOCK",
			})
		}
	}

	for _, e := range t.EntryPoints {
		if !reachesHalt(blocks, e, len(t.Labels)) {
			issues = append(issues, LintIssue{
				Level:   LintInfo,
				Pos:     cellPos(g, t.Labels[e].Loc),
				Message: "entry point's jump chain never reaches a HALT within its own block graph (may still terminate via a loop exit)",
				Code:    "NONTERMINATING_PATH",
			})
		}
	}

	issues = append(issues, lintCondIdentity(g, t)...)

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Pos.Line != issues[j].Pos.Line {
			return issues[i].Pos.Line < issues[j].Pos.Line
		}
		return issues[i].Pos.Column < issues[j].Pos.Column
	})

	return issues
}

// reachesHalt follows long-form JMP/JZ targets from label idx breadth-first
// up to len(labels) hops (enough to visit every label once) looking for a
// block that ends in HALT. A cycle with no HALT anywhere in it is reported
// as non-terminating; a cycle that eventually exits to a HALT is not.
func reachesHalt(blocks map[int]compiler.Block, start, labelCount int) bool {
	seen := make(map[int]bool, labelCount)
	queue := []int{start}
	for len(queue) > 0 && len(seen) <= labelCount {
		idx := queue[0]
		queue = queue[1:]
		if seen[idx] {
			continue
		}
		seen[idx] = true

		b, ok := blocks[idx]
		if !ok {
			continue
		}
		if endsInHalt(b) {
			return true
		}
		for _, target := range jumpTargets(b) {
			if !seen[target] {
				queue = append(queue, target)
			}
		}
	}
	return false
}

func endsInHalt(b compiler.Block) bool {
	last := -1
	for pos := 0; pos < len(b); {
		last = pos
		raw := b[pos]
		op := (raw >> 4) & 0xf
		if raw&0x80 != 0 || ((op == 0x4 || op == 0x5) && raw&0xf == 0xf) {
			pos += 2
			continue
		}
		pos++
	}
	return last >= 0 && b[last]&0x80 == 0 && (b[last]>>4)&0xf == 0x0
}

// jumpTargets returns the label-index operands of every long-form jump in
// a block (valid before Layout back-patches operands to byte offsets).
func jumpTargets(b compiler.Block) []int {
	var out []int
	pos := 0
	for pos < len(b) {
		raw := b[pos]
		if raw&0x80 != 0 {
			pos += 2
			continue
		}
		op := (raw >> 4) & 0xf
		arg := raw & 0xf
		if (op == 0x4 || op == 0x5) && arg == 0xf {
			if pos+1 < len(b) {
				out = append(out, int(b[pos+1]))
			}
			pos += 2
			continue
		}
		pos++
	}
	return out
}

func lintCondIdentity(g *grid.Grid, t *compiler.Table) []LintIssue {
	var issues []LintIssue
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.Tokens[y][x].Kind != grid.COND {
				continue
			}
			loc := grid.Vector{X: x, Y: y}
			_, zeroOK := t.Find(compiler.Label{Loc: loc, Dir: grid.DirRight})
			_, nonzeroOK := t.Find(compiler.Label{Loc: loc, Dir: grid.DirLeft})
			if !zeroOK || !nonzeroOK {
				issues = append(issues, LintIssue{
					Level:   LintError,
					Pos:     grid.Position{Filename: g.Filename, Line: y + 1, Column: x + 1},
					Message: "COND cell is missing one of its two direction-keyed successor labels",
					Code:    "COND_IDENTITY",
				})
			}
		}
	}
	return issues
}

func cellPos(g *grid.Grid, v grid.Vector) grid.Position {
	return grid.Position{Filename: g.Filename, Line: v.Y + 1, Column: v.X + 1}
}
