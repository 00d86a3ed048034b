package tools

import (
	"fmt"
	"strings"
	"testing"
)

func TestCrossReferenceEntryPoint(t *testing.T) {
	g, labels, blocks := compileFixture(t, "E@")
	xr := CrossReference(g, labels, blocks)

	if len(xr) != 1 {
		t.Fatalf("expected 1 label, got %d", len(xr))
	}
	if len(xr[0].References) != 1 || xr[0].References[0].Kind != RefEntry {
		t.Errorf("expected entry-point reference on the only label, got %+v", xr[0].References)
	}
}

func TestCrossReferenceCondBranches(t *testing.T) {
	src := "" +
		"S  \n" +
		">_@\n"
	g, labels, blocks := compileFixture(t, src)
	xr := CrossReference(g, labels, blocks)

	var sawZero, sawNonzero bool
	for _, li := range xr {
		for _, r := range li.References {
			switch r.Kind {
			case RefZero:
				sawZero = true
			case RefNonzero:
				sawNonzero = true
			}
		}
	}
	if !sawZero || !sawNonzero {
		t.Errorf("expected both cond-zero and cond-nonzero references, got %s", xr.Format())
	}
}

func TestCrossReferenceFormatIncludesEveryLabel(t *testing.T) {
	g, labels, blocks := compileFixture(t, "E@")
	xr := CrossReference(g, labels, blocks)
	out := xr.Format()
	if out == "" {
		t.Error("expected non-empty formatted cross-reference")
	}
	for _, li := range xr {
		if want := fmt.Sprintf("#%d ", li.Index); !strings.Contains(out, want) {
			t.Errorf("formatted cross-reference is missing label %q: %q", want, out)
		}
	}
}
