package vm

import (
	"fmt"
	"io"

	"github.com/jedrobots/gridvm/bytecode"
)

// TraceEntry is a single execution trace record: which process executed
// what, where, and at which scheduler tick.
type TraceEntry struct {
	Tick       uint64 // global instruction sequence number
	ProcessID  int
	PC         int
	Opcode     byte
	StackDepth int
}

// ExecutionTrace records one entry per executed instruction across all
// processes, for dumping after a run. Attach one to Executor.Trace before
// stepping; recording is in-memory and flushed to the writer on demand.
type ExecutionTrace struct {
	Enabled    bool
	Writer     io.Writer
	MaxEntries int // stop recording past this many entries (0 = unbounded)

	entries []TraceEntry
}

// NewExecutionTrace creates an enabled trace writing to w on Flush.
func NewExecutionTrace(w io.Writer) *ExecutionTrace {
	return &ExecutionTrace{
		Enabled:    true,
		Writer:     w,
		MaxEntries: 100_000,
		entries:    make([]TraceEntry, 0, 1024),
	}
}

// Record appends one instruction execution to the trace.
func (t *ExecutionTrace) Record(procID, pc int, opcode byte, tick uint64, stackDepth int) {
	if !t.Enabled {
		return
	}
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}
	t.entries = append(t.entries, TraceEntry{
		Tick:       tick,
		ProcessID:  procID,
		PC:         pc,
		Opcode:     opcode,
		StackDepth: stackDepth,
	})
}

// Entries returns the recorded entries.
func (t *ExecutionTrace) Entries() []TraceEntry {
	return t.entries
}

// Flush writes the trace as text, one line per instruction.
func (t *ExecutionTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}
	for _, e := range t.entries {
		_, err := fmt.Fprintf(t.Writer, "%8d  proc%d  %04x  %-6s depth=%d\n",
			e.Tick, e.ProcessID, e.PC, opcodeName(e.Opcode), e.StackDepth)
		if err != nil {
			return err
		}
	}
	return nil
}

// opcodeName renders an instruction byte's mnemonic for trace output.
func opcodeName(raw byte) string {
	if bytecode.IsPush(raw) {
		return "PUSH"
	}
	switch bytecode.DecodeOp(raw) {
	case bytecode.OpHalt:
		return "HALT"
	case bytecode.OpLoad:
		return "LOAD"
	case bytecode.OpStore:
		return "STORE"
	case bytecode.OpStack:
		return "STACK"
	case bytecode.OpJmp:
		return "JMP"
	case bytecode.OpJz:
		return "JZ"
	default:
		return fmt.Sprintf("0x%x", raw)
	}
}
