package debugger

import (
	"reflect"
	"testing"
)

func TestHistoryAddAndEntries(t *testing.T) {
	h := NewCommandHistory()
	for _, cmd := range []string{"break 12", "step", "", "step", "print mem[3]"} {
		h.Add(cmd)
	}

	// The blank line and the repeated "step" are not stored.
	want := []string{"break 12", "step", "print mem[3]"}
	if got := h.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
}

func TestHistoryRecall(t *testing.T) {
	h := NewCommandHistory()
	h.Add("run")
	h.Add("break 14")
	h.Add("continue")

	if got := h.Previous(); got != "continue" {
		t.Errorf("first Previous = %q, want %q", got, "continue")
	}
	if got := h.Previous(); got != "break 14" {
		t.Errorf("second Previous = %q, want %q", got, "break 14")
	}
	if got := h.Next(); got != "continue" {
		t.Errorf("Next after Previous = %q, want %q", got, "continue")
	}
	if got := h.Next(); got != "" {
		t.Errorf("Next past the newest entry = %q, want empty", got)
	}

	// Adding resets the cursor: recall starts from the newest line again.
	h.Add("info processes")
	if got := h.Previous(); got != "info processes" {
		t.Errorf("Previous after Add = %q, want %q", got, "info processes")
	}
}

func TestHistoryRecallEmpty(t *testing.T) {
	h := NewCommandHistory()
	if h.Previous() != "" || h.Next() != "" {
		t.Error("recall on an empty history should return empty strings")
	}
}

func TestHistoryMaxSizeEvictsOldest(t *testing.T) {
	h := NewCommandHistory()
	h.SetMaxSize(2)
	h.Add("run")
	h.Add("step")
	h.Add("continue")

	want := []string{"step", "continue"}
	if got := h.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}

	// Shrinking the cap trims existing entries too.
	h.SetMaxSize(1)
	if got := h.Entries(); !reflect.DeepEqual(got, []string{"continue"}) {
		t.Errorf("Entries() after shrink = %v, want [continue]", got)
	}
	if h.Previous() != "continue" {
		t.Error("recall cursor should stay valid after a shrink")
	}
}
