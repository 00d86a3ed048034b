package debugger

import "testing"

func TestBreakpointAdd(t *testing.T) {
	bm := NewBreakpointManager()

	bp := bm.Add(14, false, "")
	if bp.ID != 1 || bp.PC != 14 {
		t.Fatalf("Add returned %+v, want ID 1 at 14", bp)
	}
	if !bp.Enabled || bp.Temporary || bp.HitCount != 0 {
		t.Errorf("new breakpoint state = %+v", bp)
	}

	// A second breakpoint gets the next ID; re-adding at a taken offset
	// re-arms the existing one instead of stacking.
	if bp2 := bm.Add(16, false, ""); bp2.ID != 2 {
		t.Errorf("second ID = %d, want 2", bp2.ID)
	}
	if again := bm.Add(14, true, "top"); again.ID != 1 || !again.Temporary || again.Condition != "top" {
		t.Errorf("re-add at 14 = %+v, want re-armed ID 1", again)
	}
	if bm.Count() != 2 {
		t.Errorf("Count = %d, want 2", bm.Count())
	}
}

func TestBreakpointLookupAndRemove(t *testing.T) {
	bm := NewBreakpointManager()
	bp := bm.Add(12, false, "")
	bm.Add(20, false, "")

	if got := bm.At(12); got != bp {
		t.Errorf("At(12) = %v, want %v", got, bp)
	}
	if bm.At(13) != nil {
		t.Error("At(13) should be nil")
	}
	if got := bm.ByID(bp.ID); got != bp {
		t.Errorf("ByID(%d) = %v, want %v", bp.ID, got, bp)
	}

	if err := bm.Remove(bp.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if bm.At(12) != nil || bm.Count() != 1 {
		t.Error("breakpoint still present after Remove")
	}
	if err := bm.Remove(99); err == nil {
		t.Error("Remove of an unknown ID should error")
	}

	bm.RemoveAll()
	if bm.Count() != 0 {
		t.Error("RemoveAll left breakpoints behind")
	}
}

func TestBreakpointSetEnabled(t *testing.T) {
	bm := NewBreakpointManager()
	bp := bm.Add(12, false, "")

	if err := bm.SetEnabled(bp.ID, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if bp.Enabled {
		t.Error("breakpoint still enabled after disable")
	}
	if err := bm.SetEnabled(bp.ID, true); err != nil || !bp.Enabled {
		t.Errorf("re-enable failed: err=%v enabled=%v", err, bp.Enabled)
	}
	if err := bm.SetEnabled(99, true); err == nil {
		t.Error("SetEnabled of an unknown ID should error")
	}
}

func TestBreakpointHit(t *testing.T) {
	bm := NewBreakpointManager()
	bm.Add(12, false, "")

	hit := bm.Hit(12)
	if hit == nil || hit.HitCount != 1 {
		t.Fatalf("Hit(12) = %+v, want hit count 1", hit)
	}
	bm.Hit(12)
	if got := bm.At(12); got.HitCount != 2 {
		t.Errorf("hit count = %d, want 2", got.HitCount)
	}
	if bm.Hit(13) != nil {
		t.Error("Hit at an offset with no breakpoint should return nil")
	}
}

func TestBreakpointTemporaryRemovedOnHit(t *testing.T) {
	bm := NewBreakpointManager()
	bm.Add(12, true, "")

	hit := bm.Hit(12)
	if hit == nil || !hit.Temporary {
		t.Fatalf("Hit(12) = %+v, want the temporary breakpoint", hit)
	}
	if bm.At(12) != nil || bm.Count() != 0 {
		t.Error("temporary breakpoint should be gone after its first hit")
	}
}

func TestShouldBreakOnBreakpoint(t *testing.T) {
	exec := newTestExecutor(t, "E 3@")
	dbg := NewDebugger(exec, nil)

	// The entry point's first instruction sits right after the header.
	dbg.Breakpoints.Add(exec.CodeStart, false, "")
	stop, reason := dbg.ShouldBreak()
	if !stop {
		t.Fatal("expected a stop on the entry breakpoint")
	}
	if reason == "" {
		t.Error("expected a reason naming the breakpoint")
	}

	// Disarmed, it no longer stops.
	if err := dbg.Breakpoints.SetEnabled(1, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if stop, _ := dbg.ShouldBreak(); stop {
		t.Error("disabled breakpoint should not stop execution")
	}
}

func TestShouldBreakConditional(t *testing.T) {
	exec := newTestExecutor(t, "E 3@")
	dbg := NewDebugger(exec, nil)

	// Condition is false with an empty stack reading mem[0] (blank cell).
	dbg.Breakpoints.Add(exec.CodeStart, false, "mem[0]")
	if stop, _ := dbg.ShouldBreak(); stop {
		t.Error("false condition should not stop execution")
	}

	if err := exec.Memory.Set(0, 1); err != nil {
		t.Fatalf("Memory.Set: %v", err)
	}
	if stop, _ := dbg.ShouldBreak(); !stop {
		t.Error("true condition should stop execution")
	}
}
