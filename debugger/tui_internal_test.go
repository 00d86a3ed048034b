package debugger

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

// newTestTUI builds a TUI over a compiled grid against a simulation
// screen, so panel updates can run without a real terminal.
func newTestTUI(t *testing.T, src string) *TUI {
	t.Helper()

	exec := newTestExecutor(t, src)
	dbg := NewDebugger(exec, nil)

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("failed to init simulation screen: %v", err)
	}
	t.Cleanup(screen.Fini)

	return NewTUIWithScreen(dbg, screen)
}

func TestExecuteCommandCompletes(t *testing.T) {
	tui := newTestTUI(t, "E@")

	done := make(chan bool, 1)
	go func() {
		tui.executeCommand("help")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("executeCommand blocked for more than 2 seconds")
	}
}

func TestHandleCommandClearsInput(t *testing.T) {
	tui := newTestTUI(t, "E@")

	tui.CommandInput.SetText("help")

	done := make(chan bool, 1)
	go func() {
		tui.handleCommand(tcell.KeyEnter)
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handleCommand blocked for more than 2 seconds")
	}

	if got := tui.CommandInput.GetText(); got != "" {
		t.Errorf("command input not cleared, still %q", got)
	}
}

func TestStepCommandAdvancesExecutor(t *testing.T) {
	tui := newTestTUI(t, "E 3@")

	before := tui.Debugger.Executor.Ticks
	tui.executeCommand("step")
	if tui.Debugger.Executor.Ticks <= before {
		t.Errorf("step did not advance the executor: ticks %d -> %d",
			before, tui.Debugger.Executor.Ticks)
	}
}
