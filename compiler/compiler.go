package compiler

import "github.com/jedrobots/gridvm/grid"

// Compile runs the full pipeline over a parsed grid: label enumeration,
// path walking, jump coalescing, reachable layout and back-patching, and
// image writing. It returns the finished bytecode image.
func Compile(g *grid.Grid) ([]byte, error) {
	labels, err := DiscoverLabels(g)
	if err != nil {
		return nil, err
	}

	blocks, err := WalkPaths(g, labels)
	if err != nil {
		return nil, err
	}

	Coalesce(labels, blocks)

	code, entryOffsets, err := Layout(labels, blocks)
	if err != nil {
		return nil, err
	}

	return WriteImage(g, entryOffsets, code)
}

// CompileSource is a convenience wrapper that loads and compiles source
// text in one call.
func CompileSource(source, filename string) ([]byte, error) {
	g, err := grid.Load(source, filename)
	if err != nil {
		return nil, err
	}
	return Compile(g)
}
