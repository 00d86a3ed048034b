package debugger

// TUI display constants.
const (
	// DisplayUpdateFrequency controls how often the TUI refreshes its
	// panels during continuous execution (every N scheduler ticks), to
	// keep the display responsive without overwhelming the terminal.
	DisplayUpdateFrequency = 100

	// DisasmContextAfter sizes the TUI disassembly panel, which lists up to
	// 2*DisasmContextAfter instructions from the start of the code segment.
	DisasmContextAfter = 16

	// MemoryDisplayRows and MemoryDisplayColumns shape the memory panel's
	// hex dump.
	MemoryDisplayRows    = 16
	MemoryDisplayColumns = 16

	// StackDisplayMax caps how many stack entries the stack panel lists
	// per process.
	StackDisplayMax = 16
)
