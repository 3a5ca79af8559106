package codegen

import (
	"strings"
	"testing"

	"sirgen/src/sir"
)

func TestSimdStrideOfDefaultsToOneWithoutSimdIterators(t *testing.T) {
	fc := newTestFuncCtx()
	pf := sir.ParallelFor{Iters: []sir.Iterator{{Kind: sir.IterScalar}}}
	stride, err := fc.simdStrideOf(pf)
	if err != nil {
		t.Fatalf("simdStrideOf: %s", err)
	}
	if stride != 1 {
		t.Errorf("expected stride 1 for a scalar-only ParallelFor, got %d", stride)
	}
}

func TestSimdStrideOfUsesLaneCountWhenSimdPresent(t *testing.T) {
	fc := newTestFuncCtx()
	pf := sir.ParallelFor{Iters: []sir.Iterator{
		{Kind: sir.IterScalar},
		{Kind: sir.IterSimd},
	}}
	stride, err := fc.simdStrideOf(pf)
	if err != nil {
		t.Fatalf("simdStrideOf: %s", err)
	}
	if stride != laneCount {
		t.Errorf("expected stride %d when a Simd iterator is present, got %d", laneCount, stride)
	}
}

// TestEmitBoundsCheckSingleIteratorIsNoop verifies a ParallelFor with only
// one iterator never needs a cross-iterator comparison (spec section 4.4:
// the check only matters once there is something to compare against).
func TestEmitBoundsCheckSingleIteratorIsNoop(t *testing.T) {
	fc := newTestFuncCtx()
	if err := fc.emitBoundsCheck([]loopBound{{start: "0", end: "%n", stride: "1"}}); err != nil {
		t.Fatalf("emitBoundsCheck: %s", err)
	}
	if fc.buf.Len() != 0 {
		t.Errorf("expected no instructions emitted for a single-iterator bounds check, got:\n%s", fc.buf.Result())
	}
}

// TestEmitBoundsCheckMismatchAbortsThread verifies a multi-iterator bounds
// check branches to the shared boundcheckfailed block, which sets
// BadIteratorLength and aborts (spec section 4.4 edge case).
func TestEmitBoundsCheckMismatchAbortsThread(t *testing.T) {
	fc := newTestFuncCtx()
	fc.fn = &sir.Function{Id: 7}
	fc.runVar = "%run"
	bounds := []loopBound{
		{start: "0", end: "%a.size", stride: "1"},
		{start: "0", end: "%b.size", stride: "1"},
	}
	if err := fc.emitBoundsCheck(bounds); err != nil {
		t.Fatalf("emitBoundsCheck: %s", err)
	}
	body := fc.buf.Result()
	if !strings.Contains(body, "label %fn.boundcheckfailed") {
		t.Fatalf("expected a branch to fn.boundcheckfailed, got:\n%s", body)
	}
	if !strings.Contains(body, "fn.boundcheckfailed:") {
		t.Fatalf("expected the boundcheckfailed block to be emitted, got:\n%s", body)
	}
	setErrno := strings.Index(body, "@weld_rt_set_errno")
	abort := strings.Index(body, "@weld_abort_thread")
	if setErrno == -1 || abort == -1 || setErrno > abort {
		t.Errorf("expected set_errno(BadIteratorLength) to precede abort_thread, got:\n%s", body)
	}
}
