package compiler

import "github.com/jedrobots/gridvm/grid"

// Label identifies the head of a code path: the grid cell a path starts
// from and the direction it walks. Two labels are equal iff both location
// and direction match; the same cell with two different directions is two
// distinct labels, which is what lets a conditional have two successors at
// one grid position.
type Label struct {
	Loc grid.Vector
	Dir grid.Vector
}

// Table collects every label discovered in a grid, indexed by a dense
// 0-based index (labels are addressed by index during compilation, and by
// absolute image offset after layout). Indices are stable once assigned.
type Table struct {
	Labels      []Label
	RefCounts   []int
	index       map[Label]int
	EntryPoints []int // indices of START labels, in scan order
}

func newTable() *Table {
	return &Table{index: make(map[Label]int)}
}

// add registers a new label with the given initial refcount and returns its
// index. It is an internal helper used only during enumeration; labels are
// never added once path walking begins.
func (t *Table) add(l Label, refcount int) int {
	idx := len(t.Labels)
	t.Labels = append(t.Labels, l)
	t.RefCounts = append(t.RefCounts, refcount)
	t.index[l] = idx
	return idx
}

// Find returns the index of the label at the given location and direction.
func (t *Table) Find(l Label) (int, bool) {
	idx, ok := t.index[l]
	return idx, ok
}

// Bump increments a label's reference count, e.g. when a jump targeting it
// is emitted.
func (t *Table) Bump(idx int) {
	t.RefCounts[idx]++
}
