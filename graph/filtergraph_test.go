package graph

import (
	"bytes"
	"testing"

	"github.com/sekrit-twc/zimg/filter"
	"github.com/sekrit-twc/zimg/pixel"
)

func greySource(t *testing.T, width, height int) *FilterGraph {
	t.Helper()
	var attrs [4]pixel.Attributes
	attrs[pixel.PlaneY] = pixel.Attributes{Width: width, Height: height, PixelType: pixel.U8}
	g, err := NewSource(attrs, pixel.Mask{pixel.PlaneY: true}, nil)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return g
}

func rampBuffer(width, height int) Buffer {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return NewBuffer(data, width, BufferMax)
}

func TestCompleteInsertsCopyForBareSource(t *testing.T) {
	// A graph whose terminal node is the source gets a defensive Copy so
	// the caller's input buffer is never aliased into the output.
	g := greySource(t, 16, 16)
	if err := g.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := g.NodeCount(); got != 2 {
		t.Fatalf("pass-through graph should be source + copy, got %d nodes", got)
	}
}

func TestPassThroughReproducesInput(t *testing.T) {
	const width, height = 40, 24
	g := greySource(t, width, height)
	if err := g.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	src := rampBuffer(width, height)
	var srcBufs, dstBufs [4]Buffer
	srcBufs[pixel.PlaneY] = src
	dstBufs[pixel.PlaneY] = NewBuffer(make([]byte, width*height), width, BufferMax)

	es, err := NewExecutionState(g, srcBufs, dstBufs, nil, nil, make([]byte, g.TmpSize()))
	if err != nil {
		t.Fatalf("NewExecutionState: %v", err)
	}
	if err := es.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 0; i < height; i++ {
		if !bytes.Equal(src.Row(i), dstBufs[pixel.PlaneY].Row(i)) {
			t.Fatalf("row %d differs from input", i)
		}
	}
}

func TestRepeatedRunsAreIdentical(t *testing.T) {
	// Running the same graph twice over the same input must produce
	// byte-identical output.
	const width, height = 32, 16
	g := greySource(t, width, height)
	attr := pixel.Attributes{Width: width, Height: height, PixelType: pixel.U8}
	if _, err := g.AppendPlane(pixel.PlaneY, filter.NewCopy(attr)); err != nil {
		t.Fatalf("AppendPlane: %v", err)
	}
	if err := g.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	src := rampBuffer(width, height)
	var srcBufs [4]Buffer
	srcBufs[pixel.PlaneY] = src

	run := func() []byte {
		var dstBufs [4]Buffer
		out := make([]byte, width*height)
		dstBufs[pixel.PlaneY] = NewBuffer(out, width, BufferMax)
		es, err := NewExecutionState(g, srcBufs, dstBufs, nil, nil, make([]byte, g.TmpSize()))
		if err != nil {
			t.Fatalf("NewExecutionState: %v", err)
		}
		if err := es.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return out
	}

	if !bytes.Equal(run(), run()) {
		t.Fatalf("two runs over identical input differ")
	}
}

func TestPackCallbackSeesEachRowOnce(t *testing.T) {
	const width, height = 16, 8
	g := greySource(t, width, height)
	if err := g.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var srcBufs, dstBufs [4]Buffer
	srcBufs[pixel.PlaneY] = rampBuffer(width, height)
	dstBufs[pixel.PlaneY] = NewBuffer(make([]byte, width*height), width, BufferMax)

	seen := make(map[int]int)
	pack := func(p pixel.Plane, rowStart, rowCount int) error {
		for i := rowStart; i < rowStart+rowCount; i++ {
			seen[i]++
		}
		return nil
	}

	es, err := NewExecutionState(g, srcBufs, dstBufs, nil, pack, make([]byte, g.TmpSize()))
	if err != nil {
		t.Fatalf("NewExecutionState: %v", err)
	}
	if err := es.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 0; i < height; i++ {
		if seen[i] != 1 {
			t.Errorf("row %d seen %d times by pack callback, want exactly once", i, seen[i])
		}
	}
}

func TestCallbackFailureStopsExecution(t *testing.T) {
	const width, height = 16, 8
	g := greySource(t, width, height)
	if err := g.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var srcBufs, dstBufs [4]Buffer
	srcBufs[pixel.PlaneY] = rampBuffer(width, height)
	dstBufs[pixel.PlaneY] = NewBuffer(make([]byte, width*height), width, BufferMax)

	calls := 0
	unpack := func(p pixel.Plane, rowStart, rowCount int) error {
		calls++
		if rowStart >= 4 {
			return errBoom
		}
		return nil
	}

	es, err := NewExecutionState(g, srcBufs, dstBufs, unpack, nil, make([]byte, g.TmpSize()))
	if err != nil {
		t.Fatalf("NewExecutionState: %v", err)
	}
	if err := es.Run(); err == nil {
		t.Fatalf("Run should propagate the callback failure")
	}
	if calls > 5 {
		t.Errorf("no further callbacks should run after a failure, got %d calls", calls)
	}
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}

func TestAppendPlaneRejectsMismatchedAttributes(t *testing.T) {
	g := greySource(t, 16, 16)
	wrong := pixel.Attributes{Width: 8, Height: 16, PixelType: pixel.U8}
	if _, err := g.AppendPlane(pixel.PlaneY, filter.NewCopy(wrong)); err == nil {
		t.Fatalf("appending a filter with mismatched input geometry should fail")
	}
}
