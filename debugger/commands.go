package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedrobots/gridvm/bytecode"
)

// Command handler implementations. Each is registered in commandTable.

// cmdRun reloads the original image into a fresh executor and starts it.
func (d *Debugger) cmdRun(args []string) error {
	exec, err := reload(d.Image)
	if err != nil {
		return err
	}
	d.Executor = exec
	d.Running = true
	d.StepMode = StepNone
	d.Current = 0

	d.Println("Starting program execution...")
	return nil
}

// cmdContinue resumes execution from the current point.
func (d *Debugger) cmdContinue(args []string) error {
	if !d.Executor.Live() {
		return fmt.Errorf("no process is running")
	}
	d.Running = true
	d.StepMode = StepNone

	d.Println("Continuing...")
	return nil
}

// cmdStep executes one round of the scheduler (every live process
// advances by one instruction).
func (d *Debugger) cmdStep(args []string) error {
	d.StepMode = StepSingle
	d.Running = true
	return nil
}

// cmdBreak sets a breakpoint, optionally conditional: break <offset> [if <cond>].
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <offset> [if <condition>]")
	}

	offset, err := d.ResolveOffset(args[0])
	if err != nil {
		return err
	}

	var condition string
	if len(args) > 1 && strings.EqualFold(args[1], "if") {
		condition = strings.Join(args[2:], " ")
	}

	bp := d.Breakpoints.Add(offset, false, condition)
	if condition != "" {
		d.Printf("Breakpoint %d at %d (condition: %s)\n", bp.ID, offset, condition)
	} else {
		d.Printf("Breakpoint %d at %d\n", bp.ID, offset)
	}
	return nil
}

// cmdTBreak sets a one-shot breakpoint, removed after its first hit.
func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <offset>")
	}

	offset, err := d.ResolveOffset(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.Add(offset, true, "")
	d.Printf("Temporary breakpoint %d at %d\n", bp.ID, offset)
	return nil
}

// cmdDelete deletes one breakpoint by ID, or all of them.
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.RemoveAll()
		d.Println("All breakpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.Remove(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

func (d *Debugger) cmdEnable(args []string) error {
	return d.armBreakpoint(args, true)
}

func (d *Debugger) cmdDisable(args []string) error {
	return d.armBreakpoint(args, false)
}

func (d *Debugger) armBreakpoint(args []string, on bool) error {
	verb := "enable"
	if !on {
		verb = "disable"
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: %s <breakpoint-id>", verb)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}
	if err := d.Breakpoints.SetEnabled(id, on); err != nil {
		return err
	}
	d.Printf("Breakpoint %d %sd\n", id, verb)
	return nil
}

// cmdWatch sets a watchpoint on a memory cell.
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <address>")
	}

	addr, err := d.ResolveOffset(args[0])
	if err != nil {
		return fmt.Errorf("invalid watch address: %s", args[0])
	}

	wp, err := d.Watchpoints.Add(addr, d.Executor)
	if err != nil {
		return err
	}
	d.Printf("Watchpoint %d on mem[%d]\n", wp.ID, wp.Addr)
	return nil
}

// cmdUnwatch deletes one watchpoint by ID, or all of them.
func (d *Debugger) cmdUnwatch(args []string) error {
	if len(args) == 0 {
		d.Watchpoints.RemoveAll()
		d.Println("All watchpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid watchpoint ID: %s", args[0])
	}
	if err := d.Watchpoints.Remove(id); err != nil {
		return err
	}
	d.Printf("Watchpoint %d deleted\n", id)
	return nil
}

// cmdPrint evaluates and prints an expression against the current process.
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expression>")
	}

	expression := strings.Join(args, " ")
	result, err := d.Evaluator.EvaluateExpression(expression, d.Executor, d.CurrentProcess())
	if err != nil {
		return err
	}

	d.Printf("$%d = %d\n", d.Evaluator.GetValueNumber(), result)
	return nil
}

// cmdDisassemble disassembles part of the code segment: disas [count] [offset].
func (d *Debugger) cmdDisassemble(args []string) error {
	count := 8
	offset := d.CurrentProcess().PC

	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			count = n
			args = args[1:]
		}
	}
	if len(args) > 0 {
		off, err := d.ResolveOffset(args[0])
		if err != nil {
			return err
		}
		offset = off
	}

	pc := d.CurrentProcess().PC
	for i, pos := 0, offset; i < count && pos < len(d.Executor.Code); i++ {
		text, size := disassembleOne(d.Executor.Code, pos)
		marker := "  "
		if pos == pc {
			marker = "=>"
		}
		d.Printf("%s %3d: %s\n", marker, pos, text)
		pos += size
	}
	return nil
}

// cmdInfo displays information about program state.
func (d *Debugger) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <processes|breakpoints|watchpoints|memory>")
	}

	switch strings.ToLower(args[0]) {
	case "processes", "proc", "ps":
		return d.cmdProcesses(nil)
	case "breakpoints", "break", "b":
		d.showBreakpoints()
	case "watchpoints", "watch", "w":
		d.showWatchpoints()
	case "memory", "mem", "m":
		return d.showMemory(args[1:])
	default:
		return fmt.Errorf("unknown info command: %s", args[0])
	}
	return nil
}

// cmdProcesses lists every process and its current state.
func (d *Debugger) cmdProcesses(args []string) error {
	d.Println("Processes:")
	for _, p := range d.Executor.Procs {
		marker := " "
		if p.ID == d.Current {
			marker = "*"
		}
		status := "running"
		if p.Stopped {
			status = "stopped"
			if p.Err != nil {
				status = fmt.Sprintf("fault: %v", p.Err)
			}
		}
		d.Printf("%s %d: pc=%d stack=%v (%s)\n", marker, p.ID, p.PC, p.Stack, status)
	}
	return nil
}

// cmdThread selects the current process for print/set/info.
func (d *Debugger) cmdThread(args []string) error {
	if len(args) == 0 {
		d.Printf("Current process: %d\n", d.Current)
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid process ID: %s", args[0])
	}
	for _, p := range d.Executor.Procs {
		if p.ID == id {
			d.Current = id
			d.Printf("Switched to process %d\n", id)
			return nil
		}
	}
	return fmt.Errorf("no such process: %d", id)
}

func (d *Debugger) showBreakpoints() {
	bps := d.Breakpoints.All()
	if len(bps) == 0 {
		d.Println("No breakpoints")
		return
	}

	d.Println("Breakpoints:")
	for _, bp := range bps {
		line := fmt.Sprintf("  %d: %d", bp.ID, bp.PC)
		if !bp.Enabled {
			line += " disabled"
		}
		if bp.Temporary {
			line += " (temporary)"
		}
		if bp.Condition != "" {
			line += " if " + bp.Condition
		}
		d.Printf("%s (hit %d times)\n", line, bp.HitCount)
	}
}

func (d *Debugger) showWatchpoints() {
	wps := d.Watchpoints.All()
	if len(wps) == 0 {
		d.Println("No watchpoints")
		return
	}

	d.Println("Watchpoints:")
	for _, wp := range wps {
		line := fmt.Sprintf("  %d: mem[%d]", wp.ID, wp.Addr)
		if !wp.Enabled {
			line += " disabled"
		}
		d.Printf("%s (hit %d times, last value: %d)\n", line, wp.HitCount, wp.Last)
	}
}

// showMemory dumps a range of shared memory: info memory [address] [count].
func (d *Debugger) showMemory(args []string) error {
	addr, count := 0, 16

	if len(args) > 0 {
		a, err := d.ResolveOffset(args[0])
		if err != nil {
			return err
		}
		addr = a
	}
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			count = n
		}
	}

	d.Printf("Memory from %d:\n", addr)
	for i := 0; i < count; i++ {
		val, err := d.Executor.Memory.Get(addr + i)
		if err != nil {
			break
		}
		d.Printf("  [%d] = %d\n", addr+i, val)
	}
	return nil
}

// cmdSet modifies a memory cell, the current process's PC, or pushes a
// value onto its stack: set mem[<addr>] = <v> | set pc = <v> | set push <v>.
func (d *Debugger) cmdSet(args []string) error {
	if len(args) >= 2 && strings.EqualFold(args[0], "push") {
		value, err := d.Evaluator.EvaluateExpression(strings.Join(args[1:], " "), d.Executor, d.CurrentProcess())
		if err != nil {
			return err
		}
		d.CurrentProcess().Push(value)
		d.Printf("Pushed %d onto process %d's stack\n", value, d.Current)
		return nil
	}

	if len(args) < 3 || args[1] != "=" {
		return fmt.Errorf("usage: set mem[<addr>] = <value> | set pc = <value> | set push <value>")
	}

	target := strings.ToLower(strings.TrimSpace(args[0]))
	value, err := d.Evaluator.EvaluateExpression(strings.Join(args[2:], " "), d.Executor, d.CurrentProcess())
	if err != nil {
		return err
	}

	switch {
	case target == "pc":
		d.CurrentProcess().PC = value
		d.Printf("Process %d PC set to %d\n", d.Current, value)

	case strings.HasPrefix(target, "mem[") && strings.HasSuffix(target, "]"):
		addr, err := d.Evaluator.EvaluateExpression(target[4:len(target)-1], d.Executor, d.CurrentProcess())
		if err != nil {
			return err
		}
		if err := d.Executor.Memory.Set(addr, byte(value)); err != nil {
			return err
		}
		d.Printf("mem[%d] set to %d\n", addr, value)

	default:
		return fmt.Errorf("invalid target: %s", args[0])
	}
	return nil
}

// cmdReset reloads the original image into a fresh, unstarted executor.
func (d *Debugger) cmdReset(args []string) error {
	exec, err := reload(d.Image)
	if err != nil {
		return err
	}
	d.Executor = exec
	d.Running = false
	d.StepMode = StepNone
	d.Current = 0
	d.Println("Reset")
	return nil
}

// cmdHelp lists every command with its one-line help from commandTable.
func (d *Debugger) cmdHelp(args []string) error {
	d.Println("Debugger commands:")
	for _, c := range commandTable {
		d.Printf("  %-14s %s\n", strings.Join(c.names, ", "), c.help)
	}
	d.Println()
	d.Println("Offsets and addresses accept decimal or 0x-prefixed hex.")
	d.Println("An empty line repeats the previous command.")
	return nil
}

// disassembleOne decodes the instruction at pos and returns its text
// rendering and its size in bytes.
func disassembleOne(code []byte, pos int) (string, int) {
	if pos < 0 || pos >= len(code) {
		return "<out of range>", 1
	}

	raw := code[pos]
	if bytecode.IsPush(raw) {
		if pos+1 >= len(code) {
			return "PUSH <truncated>", 1
		}
		addr := bytecode.PushAddr(raw, code[pos+1])
		return fmt.Sprintf("PUSH mem[%d]", addr), 2
	}

	op := bytecode.DecodeOp(raw)
	arg := bytecode.DecodeArg(raw)

	switch op {
	case bytecode.OpHalt:
		return "HALT", 1
	case bytecode.OpLoad:
		return "LOAD", 1
	case bytecode.OpStore:
		return "STORE", 1
	case bytecode.OpStack:
		return fmt.Sprintf("STACK_OP %s", stackSubName(arg)), 1
	case bytecode.OpJmp:
		return disassembleJump(code, pos, "JMP", arg)
	case bytecode.OpJz:
		return disassembleJump(code, pos, "JZ", arg)
	default:
		return fmt.Sprintf("<unknown opcode 0x%x>", byte(op)), 1
	}
}

func disassembleJump(code []byte, pos int, mnemonic string, arg byte) (string, int) {
	if arg < bytecode.LongJumpArg {
		return fmt.Sprintf("%s %d", mnemonic, arg), 1
	}
	if pos+1 >= len(code) {
		return fmt.Sprintf("%s <truncated>", mnemonic), 1
	}
	return fmt.Sprintf("%s %d", mnemonic, code[pos+1]), 2
}

// stackSubNames maps a STACK_OP sub-op nibble to its mnemonic.
var stackSubNames = [...]string{
	bytecode.SubSub:  "SUB",
	bytecode.SubAdd:  "ADD",
	bytecode.SubMul:  "MUL",
	bytecode.SubDiv:  "DIV",
	bytecode.SubMod:  "MOD",
	bytecode.SubAnd:  "AND",
	bytecode.SubOr:   "OR",
	bytecode.SubNot:  "NOT",
	bytecode.SubPop:  "POP",
	bytecode.SubSwap: "SWAP",
	bytecode.SubDup:  "DUP",
}

func stackSubName(sub byte) string {
	if int(sub) < len(stackSubNames) {
		return stackSubNames[sub]
	}
	return fmt.Sprintf("0x%x", sub)
}
