package compiler

import (
	"testing"

	"github.com/jedrobots/gridvm/bytecode"
	"github.com/jedrobots/gridvm/grid"
)

func mustLoad(t *testing.T, src string) *grid.Grid {
	t.Helper()
	g, err := grid.Load(src, "test.grid")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return g
}

func TestCompileHaltImmediately(t *testing.T) {
	img, err := CompileSource("E@", "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	if string(img[0:4]) != "JED?" {
		t.Fatalf("bad magic: %v", img[0:4])
	}
	if img[4] != 1 || img[5] != 0 {
		t.Fatalf("bad version: %v", img[4:6])
	}
	entryCount := img[10]
	if entryCount != 1 {
		t.Fatalf("entryCount = %d, want 1", entryCount)
	}
	entryOff := img[11]
	dataOffset := img[9]
	code := img[11+entryCount : dataOffset]
	if len(code) != 1 || code[0] != bytecode.EncodeSimple(bytecode.OpHalt) {
		t.Fatalf("code = %v, want single HALT", code)
	}
	if int(entryOff) != 11+int(entryCount) {
		t.Fatalf("entry offset = %d, want %d (first byte past the header)", entryOff, 11+entryCount)
	}
}

func TestCompilePushThenHalt(t *testing.T) {
	img, err := CompileSource("E 3@", "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	entryCount := img[10]
	dataOffset := img[9]
	code := img[11+entryCount : dataOffset]
	want := []byte{0x80, 0x02, 0x00}
	if len(code) != len(want) {
		t.Fatalf("code = %v, want %v", code, want)
	}
	for i := range want {
		if code[i] != want[i] {
			t.Fatalf("code = %v, want %v", code, want)
		}
	}
	data := img[dataOffset:]
	if len(data) != 3 || data[0] != 0 || data[1] != 2 || data[2] != 3 {
		t.Fatalf("data segment = %v, want [0 2 3]", data)
	}
}

func TestDiscoverLabelsCond(t *testing.T) {
	g := mustLoad(t, "_")
	labels, err := DiscoverLabels(g)
	if err != nil {
		t.Fatalf("DiscoverLabels: %v", err)
	}
	if len(labels.Labels) != 2 {
		t.Fatalf("expected 2 labels for COND, got %d", len(labels.Labels))
	}
	zero, ok := labels.Find(Label{Loc: grid.Vector{X: 0, Y: 0}, Dir: grid.DirRight})
	if !ok {
		t.Fatal("zero-branch label not found")
	}
	nonzero, ok := labels.Find(Label{Loc: grid.Vector{X: 0, Y: 0}, Dir: grid.DirLeft})
	if !ok {
		t.Fatal("non-zero-branch label not found")
	}
	if labels.RefCounts[zero] != 0 {
		t.Errorf("zero-branch initial refcount = %d, want 0", labels.RefCounts[zero])
	}
	if labels.RefCounts[nonzero] != 1 {
		t.Errorf("non-zero-branch initial refcount = %d, want 1", labels.RefCounts[nonzero])
	}
}

func TestTooManyLabels(t *testing.T) {
	// 300 TURN tokens on one row, each a distinct label.
	row := make([]byte, 300)
	for i := range row {
		row[i] = '^'
	}
	g := mustLoad(t, string(row))
	_, err := DiscoverLabels(g)
	if err == nil {
		t.Fatal("expected TooManyLabelsError")
	}
	if _, ok := err.(*TooManyLabelsError); !ok {
		t.Fatalf("expected *TooManyLabelsError, got %T", err)
	}
}

func TestCoalesceIdempotent(t *testing.T) {
	g := mustLoad(t, "E>  @\n     ")
	labels, err := DiscoverLabels(g)
	if err != nil {
		t.Fatalf("DiscoverLabels: %v", err)
	}
	blocks, err := WalkPaths(g, labels)
	if err != nil {
		t.Fatalf("WalkPaths: %v", err)
	}

	once := make(map[int]Block, len(blocks))
	for k, v := range blocks {
		cp := make(Block, len(v))
		copy(cp, v)
		once[k] = cp
	}
	Coalesce(labels, once)

	twice := make(map[int]Block, len(once))
	for k, v := range once {
		cp := make(Block, len(v))
		copy(cp, v)
		twice[k] = cp
	}
	Coalesce(labels, twice)

	for idx, b := range once {
		if string(b) != string(twice[idx]) {
			t.Errorf("label %d: coalescing changed on second pass: %v vs %v", idx, b, twice[idx])
		}
	}
}

func TestCompileDeterministic(t *testing.T) {
	src := "E>  @\n     "
	img1, err := CompileSource(src, "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	img2, err := CompileSource(src, "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	if len(img1) != len(img2) {
		t.Fatalf("image lengths differ: %d vs %d", len(img1), len(img2))
	}
	for i := range img1 {
		if img1[i] != img2[i] {
			t.Fatalf("images differ at byte %d: %x vs %x", i, img1[i], img2[i])
		}
	}
}

// TestJumpOperandsWithinCode checks that every long-form jump operand and
// every entry-point offset in a compiled image lands inside the code
// segment: headerLen <= offset < dataOffset.
func TestJumpOperandsWithinCode(t *testing.T) {
	src := "" +
		"S    \n" +
		">1_ @\n" +
		"@    \n"
	img, err := CompileSource(src, "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}

	entryCount := int(img[10])
	headerLen := 11 + entryCount
	dataOffset := int(img[9])

	for i := 0; i < entryCount; i++ {
		off := int(img[11+i])
		if off < headerLen || off >= dataOffset {
			t.Errorf("entry offset %d outside code segment [%d, %d)", off, headerLen, dataOffset)
		}
	}

	code := img[headerLen:dataOffset]
	pos := 0
	for pos < len(code) {
		raw := code[pos]
		if bytecode.IsPush(raw) {
			pos += 2
			continue
		}
		op := bytecode.DecodeOp(raw)
		arg := bytecode.DecodeArg(raw)
		if (op == bytecode.OpJmp || op == bytecode.OpJz) && arg == bytecode.LongJumpArg {
			target := int(code[pos+1])
			if target < headerLen || target >= dataOffset {
				t.Errorf("jump operand %d at code offset %d outside code segment [%d, %d)",
					target, headerLen+pos, headerLen, dataOffset)
			}
			pos += 2
			continue
		}
		pos++
	}
}

// TestPushOperandsWithinMemory checks that every PUSH in a compiled image
// addresses a cell inside [0, memLength).
func TestPushOperandsWithinMemory(t *testing.T) {
	img, err := CompileSource("E 3@\n 5  ", "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	memLength := int(img[6])<<8 | int(img[7])
	entryCount := int(img[10])
	code := img[11+entryCount : int(img[9])]
	for pos := 0; pos < len(code); {
		raw := code[pos]
		if bytecode.IsPush(raw) {
			addr := bytecode.PushAddr(raw, code[pos+1])
			if addr < 0 || addr >= memLength {
				t.Errorf("PUSH addresses %d, outside memory of %d bytes", addr, memLength)
			}
			pos += 2
			continue
		}
		op := bytecode.DecodeOp(raw)
		if (op == bytecode.OpJmp || op == bytecode.OpJz) && bytecode.DecodeArg(raw) == bytecode.LongJumpArg {
			pos += 2
			continue
		}
		pos++
	}
}

func TestTwoProcesses(t *testing.T) {
	img, err := CompileSource("E@\n@W", "t")
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	if img[10] != 2 {
		t.Fatalf("entryCount = %d, want 2", img[10])
	}
}
