// Package debugger wraps a running vm.Executor with interactive
// inspection: breakpoints, watchpoints, an expression evaluator, and
// line-mode, TUI, and GUI front ends.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedrobots/gridvm/grid"
	"github.com/jedrobots/gridvm/vm"
)

// StepMode selects what ShouldBreak treats as a pause condition
// independent of breakpoints and watchpoints.
type StepMode int

const (
	StepNone   StepMode = iota // not single-stepping
	StepSingle                 // pause after the next Executor.Step call
)

// Debugger drives one executor interactively. There is no call stack to
// step over or out of: every Step advances every live process by one
// instruction, so "step" means one round of the scheduler.
type Debugger struct {
	Executor *vm.Executor
	Image    []byte     // original compiled image, kept for reset/run
	Grid     *grid.Grid // source grid, when available, for the TUI/GUI grid panel

	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager
	History     *CommandHistory
	Evaluator   *ExpressionEvaluator

	Running  bool
	StepMode StepMode

	// Current is the process ID that print/set/info target when the
	// program has more than one live process.
	Current int

	LastCommand string
	Output      strings.Builder
}

// command binds a handler to its names and one-line help.
type command struct {
	names   []string
	help    string
	handler func(*Debugger, []string) error
}

// commandTable drives ExecuteCommand's dispatch and the help listing.
var commandTable []command

func init() {
	commandTable = []command{
		{[]string{"run", "r"}, "reload the image and start execution", (*Debugger).cmdRun},
		{[]string{"continue", "c"}, "continue execution", (*Debugger).cmdContinue},
		{[]string{"step", "s"}, "advance every live process by one instruction", (*Debugger).cmdStep},
		{[]string{"break", "b"}, "break <offset> [if <cond>]: set a breakpoint", (*Debugger).cmdBreak},
		{[]string{"tbreak", "tb"}, "tbreak <offset>: set a one-shot breakpoint", (*Debugger).cmdTBreak},
		{[]string{"delete", "d"}, "delete [id]: delete one or all breakpoints", (*Debugger).cmdDelete},
		{[]string{"enable"}, "enable <id>: arm a breakpoint", (*Debugger).cmdEnable},
		{[]string{"disable"}, "disable <id>: disarm a breakpoint", (*Debugger).cmdDisable},
		{[]string{"watch", "w"}, "watch <addr>: pause when a memory cell changes", (*Debugger).cmdWatch},
		{[]string{"unwatch"}, "unwatch [id]: delete one or all watchpoints", (*Debugger).cmdUnwatch},
		{[]string{"print", "p"}, "print <expr>: evaluate an expression", (*Debugger).cmdPrint},
		{[]string{"disas", "x"}, "disas [n] [offset]: disassemble instructions", (*Debugger).cmdDisassemble},
		{[]string{"info", "i"}, "info <processes|breakpoints|watchpoints|memory>", (*Debugger).cmdInfo},
		{[]string{"ps"}, "list every process", (*Debugger).cmdProcesses},
		{[]string{"thread", "t"}, "thread [id]: show or switch the current process", (*Debugger).cmdThread},
		{[]string{"set"}, "set mem[n]|pc = v, or set push v", (*Debugger).cmdSet},
		{[]string{"reset"}, "reload the image without starting it", (*Debugger).cmdReset},
		{[]string{"help", "h", "?"}, "show this help", (*Debugger).cmdHelp},
	}
}

// NewDebugger creates a debugger around an already-loaded executor. img is
// the compiled image that produced it, retained so "run" and "reset" can
// reload a fresh Executor without recompiling.
func NewDebugger(exec *vm.Executor, img []byte) *Debugger {
	return &Debugger{
		Executor:    exec,
		Image:       img,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		History:     NewCommandHistory(),
		Evaluator:   NewExpressionEvaluator(),
	}
}

// LoadGrid attaches the source grid so display layers can render it.
func (d *Debugger) LoadGrid(g *grid.Grid) {
	d.Grid = g
}

// CurrentProcess returns the process selected by d.Current, falling back
// to the first process if the selection no longer exists.
func (d *Debugger) CurrentProcess() *vm.Process {
	for _, p := range d.Executor.Procs {
		if p.ID == d.Current {
			return p
		}
	}
	if len(d.Executor.Procs) > 0 {
		return d.Executor.Procs[0]
	}
	return nil
}

// ResolveOffset parses a decimal or 0x-prefixed hex code offset.
func (d *Debugger) ResolveOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset: %s", s)
	}
	return int(v), nil
}

// ExecuteCommand parses and runs one command line. An empty line repeats
// the previous command, for step/continue convenience.
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		cmdLine = d.LastCommand
	}
	if cmdLine != "" {
		d.History.Add(cmdLine)
		d.LastCommand = cmdLine
	}

	fields := strings.Fields(cmdLine)
	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(fields[0])
	for _, c := range commandTable {
		for _, n := range c.names {
			if n == name {
				return c.handler(d, fields[1:])
			}
		}
	}
	return fmt.Errorf("unknown command: %s (type 'help' for available commands)", name)
}

// ShouldBreak reports whether execution should pause, and why. It is
// checked once after every Executor.Step call.
func (d *Debugger) ShouldBreak() (bool, string) {
	if d.StepMode == StepSingle {
		d.StepMode = StepNone
		return true, "single step"
	}

	for _, p := range d.Executor.Procs {
		if p.Stopped {
			continue
		}

		bp := d.Breakpoints.At(p.PC)
		if bp == nil || !bp.Enabled {
			continue
		}

		if bp.Condition != "" {
			ok, err := d.Evaluator.Evaluate(bp.Condition, d.Executor, p)
			if err != nil {
				return true, fmt.Sprintf("process %d: breakpoint %d (condition error: %v)", p.ID, bp.ID, err)
			}
			if !ok {
				continue
			}
		}

		hit := d.Breakpoints.Hit(p.PC)
		return true, fmt.Sprintf("process %d: breakpoint %d at %d", p.ID, hit.ID, hit.PC)
	}

	if wp := d.Watchpoints.Changed(d.Executor); wp != nil {
		return true, fmt.Sprintf("watchpoint %d: mem[%d] is now %d", wp.ID, wp.Addr, wp.Last)
	}

	return false, ""
}

// AnyFault reports the first process stopped by a runtime fault (as
// opposed to HALT), if any.
func (d *Debugger) AnyFault() *vm.Process {
	for _, p := range d.Executor.Procs {
		if p.Stopped && p.Err != nil {
			return p
		}
	}
	return nil
}

// reload rebuilds a fresh Executor from img, discarding any process state
// accumulated since the last load.
func reload(img []byte) (*vm.Executor, error) {
	if img == nil {
		return nil, fmt.Errorf("no image loaded")
	}
	return vm.Load(img)
}

// GetOutput returns and clears the output buffer.
func (d *Debugger) GetOutput() string {
	output := d.Output.String()
	d.Output.Reset()
	return output
}

// Printf writes formatted output to the output buffer.
func (d *Debugger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.Output, format, args...)
}

// Println writes a line to the output buffer.
func (d *Debugger) Println(args ...interface{}) {
	fmt.Fprintln(&d.Output, args...)
}
