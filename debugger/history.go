package debugger

// CommandHistory keeps the debugger's recent command lines for empty-line
// repeat and arrow-key style recall. The debugger runs its command loop on
// a single goroutine, so no locking is needed.
type CommandHistory struct {
	lines  []string
	cap    int
	cursor int // recall position; len(lines) means "past the newest entry"
}

// NewCommandHistory creates a history bounded at 1000 entries.
func NewCommandHistory() *CommandHistory {
	return &CommandHistory{cap: 1000}
}

// SetMaxSize changes the history cap, evicting oldest entries if needed.
func (h *CommandHistory) SetMaxSize(n int) {
	if n < 1 {
		return
	}
	h.cap = n
	h.trim()
}

// Add records a command line. Blank lines and immediate repeats are not
// stored; either way the recall cursor resets past the newest entry.
func (h *CommandHistory) Add(cmd string) {
	defer func() { h.cursor = len(h.lines) }()

	if cmd == "" {
		return
	}
	if n := len(h.lines); n > 0 && h.lines[n-1] == cmd {
		return
	}
	h.lines = append(h.lines, cmd)
	h.trim()
}

func (h *CommandHistory) trim() {
	if len(h.lines) > h.cap {
		h.lines = h.lines[len(h.lines)-h.cap:]
	}
	if h.cursor > len(h.lines) {
		h.cursor = len(h.lines)
	}
}

// Previous steps the recall cursor back and returns that line, or "" at
// the oldest entry.
func (h *CommandHistory) Previous() string {
	if h.cursor == 0 {
		return ""
	}
	h.cursor--
	return h.lines[h.cursor]
}

// Next steps the recall cursor forward and returns that line, or "" once
// past the newest entry.
func (h *CommandHistory) Next() string {
	if h.cursor >= len(h.lines)-1 {
		h.cursor = len(h.lines)
		return ""
	}
	h.cursor++
	return h.lines[h.cursor]
}

// Entries returns a copy of the stored lines, oldest first.
func (h *CommandHistory) Entries() []string {
	return append([]string(nil), h.lines...)
}
