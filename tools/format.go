package tools

import (
	"fmt"
	"strings"

	"github.com/jedrobots/gridvm/grid"
)

// FormatOptions controls Format's output.
type FormatOptions struct {
	Ruler bool // prepend a column ruler and per-row index
}

// DefaultFormatOptions returns the default formatting options: no ruler,
// just normalized row padding.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{}
}

// Format reprints a grid with every row padded to the grid's declared
// width, restoring the rectangular shape a hand-edited source file might
// have lost. (This is a source pretty-printer; it does not touch
// compiled bytecode, which is outside this package's scope.)
func Format(g *grid.Grid, opts FormatOptions) string {
	var sb strings.Builder

	if opts.Ruler {
		sb.WriteString("    ")
		for x := 0; x < g.Width; x++ {
			sb.WriteByte(rulerDigit(x))
		}
		sb.WriteByte('\n')
	}

	for y := 0; y < g.Height; y++ {
		if opts.Ruler {
			fmt.Fprintf(&sb, "%3d ", y)
		}
		for x := 0; x < g.Width; x++ {
			sb.WriteByte(rowChar(g.Tokens[y][x]))
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// rowChar recovers the printable source character for a token. Every token
// kind preserves its originating character except NOP, which the lexer
// stores as a space.
func rowChar(t grid.Token) byte {
	if t.Kind == grid.NOP {
		return ' '
	}
	return t.Char
}

func rulerDigit(x int) byte {
	return byte('0' + (x % 10))
}
