package vm

import (
	"testing"

	"github.com/jedrobots/gridvm/compiler"
)

func compileAndLoad(t *testing.T, src string) *Executor {
	t.Helper()
	img, err := compiler.CompileSource(src, "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	e, err := Load(img)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestHaltImmediately(t *testing.T) {
	e := compileAndLoad(t, "E@")
	if len(e.Procs) != 1 {
		t.Fatalf("got %d processes, want 1", len(e.Procs))
	}
	e.Run()
	p := e.Procs[0]
	if !p.Stopped {
		t.Fatal("process did not stop")
	}
	if len(p.Stack) != 0 {
		t.Fatalf("stack = %v, want empty", p.Stack)
	}
	if e.Live() {
		t.Fatal("executor reports live processes after halt")
	}
}

func TestPushThenHalt(t *testing.T) {
	e := compileAndLoad(t, "E 3@")
	e.Run()
	p := e.Procs[0]
	if len(p.Stack) != 1 || p.Stack[0] != 3 {
		t.Fatalf("stack = %v, want [3]", p.Stack)
	}
}

func TestTurnAndHalt(t *testing.T) {
	// E walks right into a '>' turn, which walks right into '@'.
	e := compileAndLoad(t, "E>@")
	e.Run()
	p := e.Procs[0]
	if !p.Stopped {
		t.Fatal("process did not halt")
	}
	if len(p.Stack) != 0 {
		t.Fatalf("stack = %v, want empty", p.Stack)
	}
}

func TestConditionalBranches(t *testing.T) {
	// Zero case: E pushes mem[1] (seeded 0 by its digit) and the COND at
	// column 2 takes the zero (">") branch right to the HALT at column 4.
	// Non-zero case: W pushes mem[3] (seeded 1) and the COND at column 2
	// takes the non-zero ("<") branch left to the HALT at column 0. In both
	// cases the COND pops the tested value, so the stack ends empty.
	zeroSrc := "E0_ @"
	e := compileAndLoad(t, zeroSrc)
	e.Run()
	p := e.Procs[0]
	if !p.Stopped || len(p.Stack) != 0 {
		t.Fatalf("zero branch: stopped=%v stack=%v", p.Stopped, p.Stack)
	}

	nonzeroSrc := "@ _1W"
	e2 := compileAndLoad(t, nonzeroSrc)
	e2.Run()
	p2 := e2.Procs[0]
	if !p2.Stopped || len(p2.Stack) != 0 {
		t.Fatalf("non-zero branch: stopped=%v stack=%v", p2.Stopped, p2.Stack)
	}
}

func TestTwoProcessesBothHalt(t *testing.T) {
	e := compileAndLoad(t, "E@\n@W")
	if len(e.Procs) != 2 {
		t.Fatalf("got %d processes, want 2", len(e.Procs))
	}
	e.Run()
	for i, p := range e.Procs {
		if !p.Stopped {
			t.Errorf("process %d did not halt", i)
		}
	}
	if e.Live() {
		t.Fatal("executor still reports live processes")
	}
}

func TestReadWriteByteRoundTrip(t *testing.T) {
	// Row 0 holds the bits of 0xAA = 10101010 in cells (0,0)..(7,0). The
	// process pushes x=0, y=0, dx=1, dy=0 (each DIGIT pushes the value its
	// own cell seeds into memory), reads a byte with '?', pushes the same
	// coordinates again, and writes it back with '#'.
	src := "" +
		"10101010    \n" +
		"E0010?0010#@\n"
	e := compileAndLoad(t, src)
	e.Run()
	p := e.Procs[0]
	if !p.Stopped {
		t.Fatalf("process did not halt, stack=%v", p.Stack)
	}
	if p.Err != nil {
		t.Fatalf("process faulted: %v", p.Err)
	}
	if len(p.Stack) != 0 {
		t.Fatalf("stack = %v, want empty after write-back", p.Stack)
	}

	want := []byte{1, 0, 1, 0, 1, 0, 1, 0}
	for i, w := range want {
		got, err := e.Memory.Get(i)
		if err != nil {
			t.Fatalf("Memory.Get(%d): %v", i, err)
		}
		if got != w {
			t.Errorf("mem[%d] = %d, want %d after round trip", i, got, w)
		}
	}
}

func TestBinaryOpOperandOrder(t *testing.T) {
	// 2 is pushed before 5, so SUB computes 2 - 5: the earlier value is
	// the left operand.
	e := compileAndLoad(t, "E25-@")
	e.Run()
	p := e.Procs[0]
	if p.Err != nil {
		t.Fatalf("process faulted: %v", p.Err)
	}
	if len(p.Stack) != 1 || p.Stack[0] != -3 {
		t.Fatalf("stack = %v, want [-3]", p.Stack)
	}
}

func TestFloorDivMod(t *testing.T) {
	cases := []struct {
		a, b, q, m int
	}{
		{7, 2, 3, 1},
		{-7, 2, -4, 1},
		{7, -2, -4, -1},
		{-7, -2, 3, -1},
		{6, 3, 2, 0},
	}
	for _, c := range cases {
		if got := floorDiv(c.a, c.b); got != c.q {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.q)
		}
		if got := floorMod(c.a, c.b); got != c.m {
			t.Errorf("floorMod(%d, %d) = %d, want %d", c.a, c.b, got, c.m)
		}
	}
}

func TestStackUnderflowFaultsProcess(t *testing.T) {
	// POP on an empty stack faults the process; the executor records the
	// error instead of panicking, and the live set drains.
	e := compileAndLoad(t, "E!@")
	e.Run()
	p := e.Procs[0]
	if !p.Stopped {
		t.Fatal("faulting process was not stopped")
	}
	if p.Err == nil {
		t.Fatal("expected a StackUnderflowError, got nil")
	}
	if _, ok := p.Err.(*StackUnderflowError); !ok {
		t.Fatalf("expected *StackUnderflowError, got %T", p.Err)
	}
}

func TestMemorySeededFromDigits(t *testing.T) {
	e := compileAndLoad(t, "E 3@\n 5  ")
	if got, _ := e.Memory.Get(2); got != 3 {
		t.Errorf("mem[2] = %d, want 3", got)
	}
	if got, _ := e.Memory.Get(5); got != 5 {
		t.Errorf("mem[5] = %d, want 5", got)
	}
	if e.Memory.Stride != 4 {
		t.Errorf("stride = %d, want grid width 4", e.Memory.Stride)
	}
	if len(e.Memory.Data) != 8 {
		t.Errorf("memLength = %d, want width*height = 8", len(e.Memory.Data))
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	img, err := compiler.CompileSource("E@", "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	img[0] = 'X'
	if _, err := Load(img); err == nil {
		t.Fatal("expected BadMagicError")
	} else if _, ok := err.(*BadMagicError); !ok {
		t.Fatalf("expected *BadMagicError, got %T", err)
	}
}

func TestLoadRejectsBadVersion(t *testing.T) {
	img, err := compiler.CompileSource("E@", "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	img[4] = 9
	if _, err := Load(img); err == nil {
		t.Fatal("expected UnsupportedVersionError")
	} else if _, ok := err.(*UnsupportedVersionError); !ok {
		t.Fatalf("expected *UnsupportedVersionError, got %T", err)
	}
}

func TestTraceAndCoverageRecordEveryInstruction(t *testing.T) {
	e := compileAndLoad(t, "E 3@")
	e.Trace = NewExecutionTrace(nil)
	e.Coverage = NewCodeCoverage(nil)
	e.Run()

	// The lone path is PUSH then HALT: two instructions, two trace
	// entries, full coverage.
	entries := e.Trace.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d trace entries, want 2", len(entries))
	}
	if entries[0].Tick != 1 || entries[1].Tick != 2 {
		t.Errorf("ticks = %d, %d, want 1, 2", entries[0].Tick, entries[1].Tick)
	}
	if entries[0].ProcessID != 0 || entries[0].PC != e.CodeStart {
		t.Errorf("first entry = %+v, want proc 0 at code start %d", entries[0], e.CodeStart)
	}

	if pct := e.Coverage.Percent(e); pct != 100 {
		t.Errorf("coverage = %.1f%%, want 100%%", pct)
	}
	if offs := e.Coverage.ExecutedOffsets(); len(offs) != 2 || offs[0] != e.CodeStart {
		t.Errorf("executed offsets = %v, want two starting at %d", offs, e.CodeStart)
	}
}

func TestTickLimitStopsRun(t *testing.T) {
	// S turns into a loop that re-pushes a nonzero digit forever; the
	// tick limit must end Run with the process still live.
	src := "" +
		"S    \n" +
		">1_@ \n"
	e := compileAndLoad(t, src)
	e.TickLimit = 25
	e.Run()
	if !e.Live() {
		t.Fatal("expected the looping process to still be live")
	}
	if e.Ticks > 25 {
		t.Errorf("executed %d ticks, limit was 25", e.Ticks)
	}
}

func TestReadByteOnly(t *testing.T) {
	src := "" +
		"10101010\n" +
		"E0010?@ \n"
	e := compileAndLoad(t, src)
	e.Run()
	p := e.Procs[0]
	if !p.Stopped || p.Err != nil {
		t.Fatalf("stopped=%v err=%v", p.Stopped, p.Err)
	}
	if len(p.Stack) != 1 || p.Stack[0] != 0xAA {
		t.Fatalf("stack = %v, want [0xAA]", p.Stack)
	}
}
