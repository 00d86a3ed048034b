package grid

import "strings"

// MemInit is one entry of the insertion-ordered digit-seeded memory map:
// a 15-bit linear address and the byte value to initialize it with.
type MemInit struct {
	Addr  int
	Value byte
}

// Grid is the parsed, rectangular token field a program walks over.
type Grid struct {
	Width, Height int
	Tokens        [][]Token // [y][x]
	Filename      string

	// Mem holds the digit-seeded memory initializers in the order their
	// DIGIT tokens were encountered during the row-major scan.
	Mem []MemInit
}

// Addr converts a grid cell to its linear memory address, addr = x + y*width.
func (g *Grid) Addr(x, y int) int {
	return x + y*g.Width
}

// At returns the token at v, or a NOP token if v is out of bounds, so
// display layers can render past the grid edge without bounds juggling.
func (g *Grid) At(v Vector) Token {
	if v.Y < 0 || v.Y >= g.Height || v.X < 0 || v.X >= g.Width {
		return Token{Kind: NOP, Char: ' '}
	}
	return g.Tokens[v.Y][v.X]
}

// Load splits source text into rows, lexes each row (stopping at an
// optional ';' comment), and verifies all rows share the same width.
// Non-comment rows must all have identical length, matching the first
// row's width exactly; a row's comment tail is stripped before storage
// and does not count toward its width.
func Load(source, filename string) (*Grid, error) {
	rawLines := splitLines(source)

	g := &Grid{Filename: filename}
	var width = -1

	for rowIdx, line := range rawLines {
		var row []Token
		for col := 0; col < len(line); col++ {
			pos := Position{Filename: filename, Line: rowIdx + 1, Column: col + 1}
			tok, err := Lex(line[col], pos)
			if err != nil {
				return nil, err
			}
			if tok.Kind == COMMENT {
				break
			}
			row = append(row, tok)
		}

		if width == -1 {
			width = len(row)
		} else if len(row) != width {
			return nil, &MalformedGridError{Row: rowIdx, Got: len(row), Expected: width}
		}

		g.Tokens = append(g.Tokens, row)
	}

	g.Width = width
	if g.Width < 0 {
		g.Width = 0
	}
	g.Height = len(g.Tokens)

	g.seedMemory()

	return g, nil
}

// seedMemory scans the grid row-major, recording addr -> digitValue for
// every DIGIT token in the order encountered.
func (g *Grid) seedMemory() {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			tok := g.Tokens[y][x]
			if tok.Kind == DIGIT {
				g.Mem = append(g.Mem, MemInit{Addr: g.Addr(x, y), Value: byte(tok.DigitValue())})
			}
		}
	}
}

// splitLines splits on \n, tolerating a trailing \r (CRLF sources) and
// dropping one trailing blank line produced by a final newline.
func splitLines(source string) []string {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
