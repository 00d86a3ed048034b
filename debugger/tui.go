package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/jedrobots/gridvm/tools"
)

// TUI is the full-screen tview debugger: a grid view with the source
// program, per-process state, a disassembly of the code segment, a memory
// hex dump, the breakpoint/watchpoint list, and a command input driving
// the same command set as the line-mode debugger.
type TUI struct {
	Debugger *Debugger
	App      *tview.Application
	Pages    *tview.Pages

	GridView        *tview.TextView
	ProcessView     *tview.TextView
	MemoryView      *tview.TextView
	DisassemblyView *tview.TextView
	BreakpointsView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField

	// MemoryAddress is the first address the memory panel dumps from.
	MemoryAddress int
}

// NewTUI creates a TUI over the given debugger.
func NewTUI(debugger *Debugger) *TUI {
	tui := &TUI{
		Debugger: debugger,
		App:      tview.NewApplication(),
	}

	tui.GridView = newPanel(" Grid ", false)
	tui.ProcessView = newPanel(" Processes ", false)
	tui.MemoryView = newPanel(" Memory ", false)
	tui.DisassemblyView = newPanel(" Disassembly ", false)
	tui.BreakpointsView = newPanel(" Breakpoints/Watchpoints ", false)
	tui.OutputView = newPanel(" Output ", true)

	tui.CommandInput = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	tui.CommandInput.SetBorder(true).SetTitle(" Command ")
	tui.CommandInput.SetDoneFunc(tui.handleCommand)

	tui.buildLayout()
	tui.App.SetInputCapture(tui.handleKey)

	return tui
}

// NewTUIWithScreen creates a TUI bound to an explicit tcell screen,
// allowing tests to drive it against a simulation screen.
func NewTUIWithScreen(debugger *Debugger, screen tcell.Screen) *TUI {
	tui := NewTUI(debugger)
	tui.App.SetScreen(screen)
	return tui
}

// newPanel builds one bordered, scrollable text panel.
func newPanel(title string, wrap bool) *tview.TextView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(wrap)
	tv.SetBorder(true).SetTitle(title)
	return tv
}

func (t *TUI) buildLayout() {
	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.GridView, 0, 2, false).
		AddItem(t.DisassemblyView, 0, 3, false)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.ProcessView, 0, 1, false).
		AddItem(t.MemoryView, 0, 1, false).
		AddItem(t.BreakpointsView, 8, 0, false)

	content := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(left, 0, 2, false).
		AddItem(right, 0, 1, false)

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(content, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.Pages = tview.NewPages().AddPage("main", layout, true, true)
}

func (t *TUI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyF1:
		t.executeCommand("help")
	case tcell.KeyF5:
		t.executeCommand("continue")
	case tcell.KeyF11:
		t.executeCommand("step")
	case tcell.KeyCtrlC:
		t.App.Stop()
	case tcell.KeyCtrlL:
		t.RefreshAll()
	case tcell.KeyUp:
		t.CommandInput.SetText(t.Debugger.History.Previous())
	case tcell.KeyDown:
		t.CommandInput.SetText(t.Debugger.History.Next())
	default:
		return event
	}
	return nil
}

// handleCommand processes a submitted command line.
func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	if cmd == "" {
		return
	}
	t.executeCommand(cmd)
	t.CommandInput.SetText("")
}

// executeCommand runs one debugger command and, if the command started
// execution, drives the executor until the debugger pauses again.
func (t *TUI) executeCommand(cmd string) {
	t.Debugger.Output.Reset()

	err := t.Debugger.ExecuteCommand(cmd)
	if err != nil {
		t.WriteOutput(fmt.Sprintf("[red]Error:[white] %v\n", err))
	}
	if output := t.Debugger.GetOutput(); output != "" {
		t.WriteOutput(output)
	}

	if t.Debugger.Running {
		t.driveExecution()
	}

	t.RefreshAll()
}

// driveExecution steps the executor until a breakpoint, watchpoint,
// single-step pause, fault, or full halt.
func (t *TUI) driveExecution() {
	ticks := 0
	for t.Debugger.Running {
		if !t.Debugger.Executor.Live() {
			t.Debugger.Running = false
			t.WriteOutput("All processes stopped\n")
			break
		}

		t.Debugger.Executor.Step()
		ticks++

		if p := t.Debugger.AnyFault(); p != nil {
			t.Debugger.Running = false
			t.WriteOutput(fmt.Sprintf("[red]Process %d faulted:[white] %v\n", p.ID, p.Err))
			break
		}

		if stop, reason := t.Debugger.ShouldBreak(); stop {
			t.Debugger.Running = false
			t.WriteOutput(fmt.Sprintf("Stopped: %s\n", reason))
			break
		}

		if ticks%DisplayUpdateFrequency == 0 {
			t.RefreshAll()
		}
	}
}

// WriteOutput appends text to the output panel.
func (t *TUI) WriteOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text))
	t.OutputView.ScrollToEnd()
}

// RefreshAll redraws every panel.
func (t *TUI) RefreshAll() {
	t.UpdateGridView()
	t.UpdateProcessView()
	t.UpdateMemoryView()
	t.UpdateDisassemblyView()
	t.UpdateBreakpointsView()
	t.App.Draw()
}

// UpdateGridView renders the source grid, if one was loaded.
func (t *TUI) UpdateGridView() {
	t.GridView.Clear()
	if t.Debugger.Grid == nil {
		t.GridView.SetText("[yellow]No grid source available[white]")
		return
	}
	t.GridView.SetText(tools.Format(t.Debugger.Grid, tools.FormatOptions{Ruler: true}))
}

// UpdateProcessView lists every process, its PC, stack, and status.
func (t *TUI) UpdateProcessView() {
	t.ProcessView.Clear()

	var lines []string
	for _, p := range t.Debugger.Executor.Procs {
		marker, color := "  ", "white"
		if p.ID == t.Debugger.Current {
			marker, color = "* ", "yellow"
		}

		status := "running"
		if p.Stopped {
			status, color = "stopped", "grey"
			if p.Err != nil {
				status, color = fmt.Sprintf("fault: %v", p.Err), "red"
			}
		}

		stack := p.Stack
		if len(stack) > StackDisplayMax {
			stack = stack[len(stack)-StackDisplayMax:]
		}
		lines = append(lines, fmt.Sprintf("[%s]%sproc%d pc=%04x stack=%v (%s)[white]",
			color, marker, p.ID, p.PC, stack, status))
	}
	lines = append(lines, "", fmt.Sprintf("ticks: %d", t.Debugger.Executor.Ticks))

	t.ProcessView.SetText(strings.Join(lines, "\n"))
}

// UpdateMemoryView renders a hex dump of shared memory from MemoryAddress.
func (t *TUI) UpdateMemoryView() {
	t.MemoryView.Clear()

	mem := t.Debugger.Executor.Memory
	var lines []string
	lines = append(lines, fmt.Sprintf("[yellow]%d bytes, stride %d[white]", len(mem.Data), mem.Stride))

	for row := 0; row < MemoryDisplayRows; row++ {
		base := t.MemoryAddress + row*MemoryDisplayColumns
		if base >= len(mem.Data) {
			break
		}

		var hexBytes []string
		for col := 0; col < MemoryDisplayColumns && base+col < len(mem.Data); col++ {
			hexBytes = append(hexBytes, fmt.Sprintf("%02X", mem.Data[base+col]))
		}
		lines = append(lines, fmt.Sprintf("%04X: %s", base, strings.Join(hexBytes, " ")))
	}

	t.MemoryView.SetText(strings.Join(lines, "\n"))
}

// UpdateDisassemblyView disassembles up to 2*DisasmContextAfter
// instructions from the start of the code segment, marking process PCs and
// breakpoints. The listing always begins at CodeStart; it does not scroll to
// follow the current process's PC.
func (t *TUI) UpdateDisassemblyView() {
	t.DisassemblyView.Clear()

	exec := t.Debugger.Executor
	proc := t.Debugger.CurrentProcess()

	pcs := make(map[int]int)
	for _, p := range exec.Procs {
		if !p.Stopped {
			pcs[p.PC] = p.ID
		}
	}

	var lines []string
	pos := exec.CodeStart
	for count := 0; pos < len(exec.Code) && count < DisasmContextAfter*2; count++ {
		text, size := disassembleOne(exec.Code, pos)

		marker, color := "  ", "white"
		if proc != nil && pos == proc.PC {
			marker, color = "->", "yellow"
		} else if id, ok := pcs[pos]; ok {
			marker, color = fmt.Sprintf("%d ", id%10), "green"
		}
		if t.Debugger.Breakpoints.At(pos) != nil {
			marker = "* "
		}

		lines = append(lines, fmt.Sprintf("[%s]%s %04x: %s[white]", color, marker, pos, text))
		pos += size
	}

	t.DisassemblyView.SetText(strings.Join(lines, "\n"))
}

// UpdateBreakpointsView renders the breakpoint and watchpoint lists.
func (t *TUI) UpdateBreakpointsView() {
	t.BreakpointsView.Clear()

	var lines []string

	if bps := t.Debugger.Breakpoints.All(); len(bps) > 0 {
		lines = append(lines, "[yellow]Breakpoints:[white]")
		for _, bp := range bps {
			state, color := "enabled", "green"
			if !bp.Enabled {
				state, color = "disabled", "red"
			}
			line := fmt.Sprintf("  %d: [%s]%s[white] %04x", bp.ID, color, state, bp.PC)
			if bp.Condition != "" {
				line += " if " + bp.Condition
			}
			lines = append(lines, fmt.Sprintf("%s (hits: %d)", line, bp.HitCount))
		}
	} else {
		lines = append(lines, "[yellow]No breakpoints set[white]")
	}

	if wps := t.Debugger.Watchpoints.All(); len(wps) > 0 {
		lines = append(lines, "", "[yellow]Watchpoints:[white]")
		for _, wp := range wps {
			lines = append(lines, fmt.Sprintf("  %d: mem[%d] = %d (hits: %d)",
				wp.ID, wp.Addr, wp.Last, wp.HitCount))
		}
	}

	t.BreakpointsView.SetText(strings.Join(lines, "\n"))
}

// Run starts the TUI application.
func (t *TUI) Run() error {
	t.RefreshAll()

	t.WriteOutput("[green]gridvm debugger[white]\n")
	t.WriteOutput("F1 help, F5 continue, F11 step, Ctrl-C quit\n")
	t.WriteOutput("Type 'help' for the command list\n\n")

	return t.App.SetRoot(t.Pages, true).SetFocus(t.CommandInput).Run()
}

// Stop stops the TUI application.
func (t *TUI) Stop() {
	t.App.Stop()
}
