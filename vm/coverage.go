package vm

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedrobots/gridvm/bytecode"
)

// CoverageEntry records how often one instruction offset was executed.
type CoverageEntry struct {
	PC        int
	Count     uint64
	FirstTick uint64
	LastTick  uint64
}

// CodeCoverage tracks which instruction offsets in the code segment have
// been executed. Attach one to Executor.Coverage before stepping.
type CodeCoverage struct {
	Enabled bool
	Writer  io.Writer

	executed map[int]*CoverageEntry
}

// NewCodeCoverage creates an enabled coverage tracker writing to w on
// Flush.
func NewCodeCoverage(w io.Writer) *CodeCoverage {
	return &CodeCoverage{
		Enabled:  true,
		Writer:   w,
		executed: make(map[int]*CoverageEntry),
	}
}

// Record notes that the instruction at pc was executed at the given tick.
func (c *CodeCoverage) Record(pc int, tick uint64) {
	if !c.Enabled {
		return
	}
	if e, ok := c.executed[pc]; ok {
		e.Count++
		e.LastTick = tick
		return
	}
	c.executed[pc] = &CoverageEntry{PC: pc, Count: 1, FirstTick: tick, LastTick: tick}
}

// ExecutedOffsets returns every executed instruction offset in ascending
// order.
func (c *CodeCoverage) ExecutedOffsets() []int {
	offs := make([]int, 0, len(c.executed))
	for pc := range c.executed {
		offs = append(offs, pc)
	}
	sort.Ints(offs)
	return offs
}

// Percent reports the fraction of the executor's code-segment instruction
// heads that were executed at least once, as a percentage.
func (c *CodeCoverage) Percent(e *Executor) float64 {
	heads := instructionHeads(e.Code, e.CodeStart)
	if len(heads) == 0 {
		return 0
	}
	hit := 0
	for _, pc := range heads {
		if _, ok := c.executed[pc]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(heads)) * 100
}

// Flush writes one line per instruction offset in ascending order (its hit
// counts, or "never executed"), followed by a summary line.
func (c *CodeCoverage) Flush(e *Executor) error {
	if c.Writer == nil {
		return nil
	}
	heads := instructionHeads(e.Code, e.CodeStart)
	for _, pc := range heads {
		if entry, ok := c.executed[pc]; ok {
			_, err := fmt.Fprintf(c.Writer, "%04x  %-6s hits=%d first=%d last=%d\n",
				pc, opcodeName(e.Code[pc]), entry.Count, entry.FirstTick, entry.LastTick)
			if err != nil {
				return err
			}
		} else {
			_, err := fmt.Fprintf(c.Writer, "%04x  %-6s never executed\n", pc, opcodeName(e.Code[pc]))
			if err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(c.Writer, "coverage: %.1f%% (%d of %d instructions)\n",
		c.Percent(e), len(c.executed), len(heads))
	return err
}

// instructionHeads scans the code segment and returns the offset of every
// instruction's first byte, honoring PUSH's and long-form jumps' two-byte
// widths.
func instructionHeads(code []byte, start int) []int {
	var heads []int
	pos := start
	for pos < len(code) {
		heads = append(heads, pos)
		raw := code[pos]
		if bytecode.IsPush(raw) {
			pos += 2
			continue
		}
		op := bytecode.DecodeOp(raw)
		if (op == bytecode.OpJmp || op == bytecode.OpJz) && bytecode.DecodeArg(raw) == bytecode.LongJumpArg {
			pos += 2
			continue
		}
		pos++
	}
	return heads
}
