package debugger

import (
	"fmt"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/jedrobots/gridvm/tools"
)

// GUI is the fyne desktop debugger: the source grid rendered in a text
// grid, per-process state, a memory dump, a disassembly, the breakpoint
// list, and toolbar-driven run/step/continue controls.
type GUI struct {
	Debugger *Debugger
	App      fyne.App
	Window   fyne.Window

	GridView        *widget.TextGrid
	ProcessView     *widget.TextGrid
	MemoryView      *widget.TextGrid
	DisassemblyView *widget.TextGrid
	BreakpointsList *widget.List
	ConsoleOutput   *widget.TextGrid
	StatusLabel     *widget.Label

	Toolbar *widget.Toolbar

	breakpoints []string

	consoleBuffer strings.Builder
	consoleMutex  sync.Mutex
}

// RunGUI runs the fyne desktop debugger.
func RunGUI(dbg *Debugger) error {
	gui := newGUI(dbg)
	gui.Window.ShowAndRun()
	return nil
}

func newGUI(debugger *Debugger) *GUI {
	myApp := app.New()

	g := &GUI{
		Debugger: debugger,
		App:      myApp,
		Window:   myApp.NewWindow("gridvm debugger"),
	}

	g.GridView = widget.NewTextGrid()
	g.GridView.SetText("No grid source loaded")
	g.ProcessView = widget.NewTextGrid()
	g.MemoryView = widget.NewTextGrid()
	g.DisassemblyView = widget.NewTextGrid()
	g.ConsoleOutput = widget.NewTextGrid()
	g.StatusLabel = widget.NewLabel("Ready")

	g.BreakpointsList = widget.NewList(
		func() int { return len(g.breakpoints) },
		func() fyne.CanvasObject { return widget.NewLabel("template") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(g.breakpoints[id])
		},
	)

	g.Toolbar = widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaPlayIcon(), func() { g.executeCommand("run") }),
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), func() { g.executeCommand("step") }),
		widget.NewToolbarAction(theme.MediaFastForwardIcon(), func() { g.executeCommand("continue") }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentClearIcon(), func() { g.executeCommand("delete") }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() { g.refreshViews() }),
	)

	g.buildLayout()
	g.refreshViews()

	g.Window.Resize(fyne.NewSize(1200, 800))

	return g
}

// panel wraps a view in a labeled scrolling container.
func panel(title string, content fyne.CanvasObject) fyne.CanvasObject {
	return container.NewBorder(widget.NewLabel(title), nil, nil, nil, container.NewScroll(content))
}

func (g *GUI) buildLayout() {
	left := container.NewVSplit(
		panel("Grid", g.GridView),
		panel("Disassembly", g.DisassemblyView),
	)
	left.SetOffset(0.45)

	rightTop := container.NewVSplit(
		panel("Processes", g.ProcessView),
		panel("Breakpoints", g.BreakpointsList),
	)
	rightTop.SetOffset(0.6)

	bottomTabs := container.NewAppTabs(
		container.NewTabItem("Memory", panel("Memory", g.MemoryView)),
		container.NewTabItem("Console", panel("Console", g.ConsoleOutput)),
	)

	right := container.NewVSplit(rightTop, bottomTabs)
	right.SetOffset(0.5)

	mainSplit := container.NewHSplit(left, right)
	mainSplit.SetOffset(0.55)

	content := container.NewBorder(
		g.Toolbar,
		container.NewBorder(nil, nil, nil, nil, g.StatusLabel),
		nil,
		nil,
		mainSplit,
	)

	g.Window.SetContent(content)
}

// executeCommand runs one debugger command, drives execution if the
// command started it, and refreshes the panels.
func (g *GUI) executeCommand(cmd string) {
	g.Debugger.Output.Reset()

	if err := g.Debugger.ExecuteCommand(cmd); err != nil {
		g.writeConsole(fmt.Sprintf("Error: %v\n", err))
	}
	if output := g.Debugger.GetOutput(); output != "" {
		g.writeConsole(output)
	}

	for g.Debugger.Running {
		if !g.Debugger.Executor.Live() {
			g.Debugger.Running = false
			g.writeConsole("All processes stopped\n")
			break
		}

		g.Debugger.Executor.Step()

		if p := g.Debugger.AnyFault(); p != nil {
			g.Debugger.Running = false
			g.writeConsole(fmt.Sprintf("Process %d faulted: %v\n", p.ID, p.Err))
			break
		}

		if stop, reason := g.Debugger.ShouldBreak(); stop {
			g.Debugger.Running = false
			g.writeConsole(fmt.Sprintf("Stopped: %s\n", reason))
			break
		}
	}

	g.refreshViews()
}

func (g *GUI) writeConsole(text string) {
	g.consoleMutex.Lock()
	defer g.consoleMutex.Unlock()

	g.consoleBuffer.WriteString(text)
	g.ConsoleOutput.SetText(g.consoleBuffer.String())
}

// refreshViews redraws every panel from the debugger's current state.
func (g *GUI) refreshViews() {
	g.updateGrid()
	g.updateProcesses()
	g.updateMemory()
	g.updateDisassembly()
	g.updateBreakpoints()
	g.updateStatus()
}

func (g *GUI) updateGrid() {
	if g.Debugger.Grid == nil {
		g.GridView.SetText("No grid source loaded")
		return
	}
	g.GridView.SetText(tools.Format(g.Debugger.Grid, tools.FormatOptions{Ruler: true}))
}

func (g *GUI) updateProcesses() {
	var sb strings.Builder
	for _, p := range g.Debugger.Executor.Procs {
		marker := "  "
		if p.ID == g.Debugger.Current {
			marker = "* "
		}
		status := "running"
		if p.Stopped {
			status = "stopped"
			if p.Err != nil {
				status = fmt.Sprintf("fault: %v", p.Err)
			}
		}
		fmt.Fprintf(&sb, "%sproc%d pc=%04x stack=%v (%s)\n", marker, p.ID, p.PC, p.Stack, status)
	}
	fmt.Fprintf(&sb, "\nticks: %d\n", g.Debugger.Executor.Ticks)
	g.ProcessView.SetText(sb.String())
}

func (g *GUI) updateMemory() {
	mem := g.Debugger.Executor.Memory
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d bytes, stride %d\n\n", len(mem.Data), mem.Stride)

	for base := 0; base < len(mem.Data) && base < MemoryDisplayRows*MemoryDisplayColumns; base += MemoryDisplayColumns {
		var hexBytes []string
		for col := 0; col < MemoryDisplayColumns && base+col < len(mem.Data); col++ {
			hexBytes = append(hexBytes, fmt.Sprintf("%02X", mem.Data[base+col]))
		}
		fmt.Fprintf(&sb, "%04X: %s\n", base, strings.Join(hexBytes, " "))
	}

	g.MemoryView.SetText(sb.String())
}

func (g *GUI) updateDisassembly() {
	exec := g.Debugger.Executor
	proc := g.Debugger.CurrentProcess()

	var sb strings.Builder
	for pos := exec.CodeStart; pos < len(exec.Code); {
		text, size := disassembleOne(exec.Code, pos)
		marker := "  "
		if proc != nil && pos == proc.PC {
			marker = "->"
		}
		if g.Debugger.Breakpoints.At(pos) != nil {
			marker = "* "
		}
		fmt.Fprintf(&sb, "%s %04x: %s\n", marker, pos, text)
		pos += size
	}

	g.DisassemblyView.SetText(sb.String())
}

func (g *GUI) updateBreakpoints() {
	g.breakpoints = g.breakpoints[:0]
	for _, bp := range g.Debugger.Breakpoints.All() {
		state := "enabled"
		if !bp.Enabled {
			state = "disabled"
		}
		g.breakpoints = append(g.breakpoints,
			fmt.Sprintf("%d: %04x %s (hits: %d)", bp.ID, bp.PC, state, bp.HitCount))
	}
	for _, wp := range g.Debugger.Watchpoints.All() {
		g.breakpoints = append(g.breakpoints,
			fmt.Sprintf("w%d: mem[%d] = %d (hits: %d)", wp.ID, wp.Addr, wp.Last, wp.HitCount))
	}
	g.BreakpointsList.Refresh()
}

func (g *GUI) updateStatus() {
	live := 0
	for _, p := range g.Debugger.Executor.Procs {
		if !p.Stopped {
			live++
		}
	}
	g.StatusLabel.SetText(fmt.Sprintf("%d of %d processes live, %d ticks",
		live, len(g.Debugger.Executor.Procs), g.Debugger.Executor.Ticks))
}
