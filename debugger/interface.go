package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RunCLI runs the line-mode debugger loop: read a command, execute it,
// and if the command started execution, step the VM until the debugger
// pauses again (breakpoint, watchpoint, single step, fault, or halt).
func RunCLI(dbg *Debugger) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("(gridvm) ")

		if !scanner.Scan() {
			break
		}

		cmdLine := strings.TrimSpace(scanner.Text())

		if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
			fmt.Println("Exiting debugger...")
			break
		}

		if err := dbg.ExecuteCommand(cmdLine); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

		if output := dbg.GetOutput(); output != "" {
			fmt.Print(output)
		}

		for dbg.Running {
			if !dbg.Executor.Live() {
				dbg.Running = false
				fmt.Println("All processes stopped")
				printFinalState(dbg)
				break
			}

			dbg.Executor.Step()

			if p := dbg.AnyFault(); p != nil {
				dbg.Running = false
				fmt.Printf("Process %d faulted at pc=%d: %v\n", p.ID, p.PC, p.Err)
				break
			}

			if stop, reason := dbg.ShouldBreak(); stop {
				dbg.Running = false
				fmt.Printf("Stopped: %s\n", reason)
				break
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}

	return nil
}

// printFinalState reports each process's halting state the way the VM's
// direct-run mode does.
func printFinalState(dbg *Debugger) {
	for _, p := range dbg.Executor.Procs {
		if len(p.Stack) > 0 {
			fmt.Printf("proc%d halted at %d, stack top: %d\n", p.ID, p.PC, p.Stack[len(p.Stack)-1])
		} else {
			fmt.Printf("proc%d halted at %d\n", p.ID, p.PC)
		}
	}
}

// RunTUI runs the full-screen tview debugger.
func RunTUI(dbg *Debugger) error {
	tui := NewTUI(dbg)
	return tui.Run()
}
