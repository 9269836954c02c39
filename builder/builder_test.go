package builder

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sekrit-twc/zimg/colorspace"
	"github.com/sekrit-twc/zimg/format"
	"github.com/sekrit-twc/zimg/graph"
	"github.com/sekrit-twc/zimg/pixel"
	"github.com/sekrit-twc/zimg/zimgerr"
)

func greyFormat(w, h int, t pixel.Type) format.ImageFormat {
	return format.NewImageFormat(w, h, t)
}

func execute(t *testing.T, g *graph.FilterGraph, src, dst [4]graph.Buffer) {
	t.Helper()
	es, err := graph.NewExecutionState(g, src, dst, nil, nil, make([]byte, g.TmpSize()))
	if err != nil {
		t.Fatalf("NewExecutionState: %v", err)
	}
	if err := es.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	es.Release()
}

func greyBuffers(width, height, byteWidth int) [4]graph.Buffer {
	var bufs [4]graph.Buffer
	stride := width * byteWidth
	bufs[pixel.PlaneY] = graph.NewBuffer(make([]byte, stride*height), stride, graph.BufferMax)
	return bufs
}

func TestNoopBuildsSingleCopy(t *testing.T) {
	// Identical source and target formats reduce to source + copy and
	// reproduce the input byte for byte.
	src := greyFormat(64, 32, pixel.U8)
	g, err := New(nil).Source(src).Target(src).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := g.NodeCount(); got != 2 {
		t.Fatalf("no-op pipeline should be source + copy, got %d nodes", got)
	}

	in := greyBuffers(64, 32, 1)
	for i := 0; i < 32; i++ {
		row := in[pixel.PlaneY].Row(i)
		for x := range row {
			row[x] = byte(x ^ i)
		}
	}
	out := greyBuffers(64, 32, 1)
	execute(t, g, in, out)

	for i := 0; i < 32; i++ {
		if diff := cmp.Diff(in[pixel.PlaneY].Row(i), out[pixel.PlaneY].Row(i)); diff != "" {
			t.Fatalf("row %d differs (-in +out):\n%s", i, diff)
		}
	}
}

func TestConstantPlaneSurvivesUpscale(t *testing.T) {
	// Resampling a constant image with a unity-sum kernel must keep it
	// constant through the float round trip.
	src := greyFormat(8, 8, pixel.U8)
	dst := greyFormat(16, 16, pixel.U8)
	params := format.NewGraphBuilderParams()
	params.ResampleFilter = format.FilterBilinear

	g, err := New(nil).Source(src).Target(dst).Params(params).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	in := greyBuffers(8, 8, 1)
	for i := 0; i < 8; i++ {
		row := in[pixel.PlaneY].Row(i)
		for x := range row {
			row[x] = 100
		}
	}
	out := greyBuffers(16, 16, 1)
	execute(t, g, in, out)

	for i := 0; i < 16; i++ {
		for x, v := range out[pixel.PlaneY].Row(i) {
			if v != 100 {
				t.Fatalf("(%d,%d) = %d, want 100", x, i, v)
			}
		}
	}
}

func TestDepthConversionRoundTrip(t *testing.T) {
	// U8 -> F32 -> U8 through two builder pipelines is the identity.
	src8 := greyFormat(32, 8, pixel.U8)
	dstF := greyFormat(32, 8, pixel.F32)

	up, err := New(nil).Source(src8).Target(dstF).Build()
	if err != nil {
		t.Fatalf("Build up: %v", err)
	}
	down, err := New(nil).Source(dstF).Target(src8).Build()
	if err != nil {
		t.Fatalf("Build down: %v", err)
	}

	in := greyBuffers(32, 8, 1)
	for i := 0; i < 8; i++ {
		row := in[pixel.PlaneY].Row(i)
		for x := range row {
			row[x] = byte(x*8 + i)
		}
	}
	mid := greyBuffers(32, 8, 4)
	execute(t, up, in, mid)
	out := greyBuffers(32, 8, 1)
	execute(t, down, mid, out)

	for i := 0; i < 8; i++ {
		if !bytes.Equal(in[pixel.PlaneY].Row(i), out[pixel.PlaneY].Row(i)) {
			t.Fatalf("row %d not identical after U8 -> F32 -> U8", i)
		}
	}
}

func yuvBuffers(f format.ImageFormat) [4]graph.Buffer {
	var bufs [4]graph.Buffer
	bw := f.PixelType.ByteWidth()
	mask := f.PlaneMask()
	for p := 0; p < 4; p++ {
		if !mask[p] {
			continue
		}
		w, h := f.Width, f.Height
		if p == int(pixel.PlaneU) || p == int(pixel.PlaneV) {
			w >>= uint(f.SubsampleW)
			h >>= uint(f.SubsampleH)
		}
		bufs[p] = graph.NewBuffer(make([]byte, w*h*bw), w*bw, graph.BufferMax)
	}
	return bufs
}

func TestYUV420ToRGBBuildsAndRuns(t *testing.T) {
	src := format.NewImageFormat(16, 16, pixel.U8)
	src.ColorFamily = pixel.FamilyYUV
	src.SubsampleW, src.SubsampleH = 1, 1
	src.Matrix = colorspace.MatrixBT709
	src.Transfer = colorspace.TransferBT709
	src.Primaries = colorspace.PrimariesBT709

	dst := format.NewImageFormat(16, 16, pixel.F32)
	dst.ColorFamily = pixel.FamilyRGB
	dst.Matrix = colorspace.MatrixRGB
	dst.Transfer = colorspace.TransferBT709
	dst.Primaries = colorspace.PrimariesBT709
	dst.PixelRange = pixel.RangeFull

	g, err := New(nil).
		Source(src).Target(dst).
		Colorspace(colorspace.NewGraph(nil)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	in := yuvBuffers(src)
	// Mid-grey: Y = 126 (limited), neutral chroma.
	for i := 0; i < 16; i++ {
		row := in[pixel.PlaneY].Row(i)
		for x := range row {
			row[x] = 126
		}
	}
	for _, p := range []pixel.Plane{pixel.PlaneU, pixel.PlaneV} {
		for i := 0; i < 8; i++ {
			row := in[p].Row(i)
			for x := range row {
				row[x] = 128
			}
		}
	}

	out := yuvBuffers(dst)
	execute(t, g, in, out)

	// Neutral chroma through any YUV -> RGB matrix leaves R = G = B, all
	// equal to the normalized luma.
	want := float32(126-16) / 219
	for _, p := range []pixel.Plane{pixel.PlaneY, pixel.PlaneU, pixel.PlaneV} {
		row := out[p].Row(8)
		for x := 0; x < 16; x++ {
			v := float32FromBytes(row, x)
			if v < want-1e-3 || v > want+1e-3 {
				t.Fatalf("plane %d col %d = %v, want ~%v", p, x, v, want)
			}
		}
	}
}

func float32FromBytes(row []byte, i int) float32 {
	bits := uint32(row[i*4]) | uint32(row[i*4+1])<<8 | uint32(row[i*4+2])<<16 | uint32(row[i*4+3])<<24
	return math.Float32frombits(bits)
}

func yuv420U16Format(depth int, loc format.ChromaLocation) format.ImageFormat {
	f := format.NewImageFormat(16, 16, pixel.U16)
	f.ColorFamily = pixel.FamilyYUV
	f.SubsampleW, f.SubsampleH = 1, 1
	f.Depth = depth
	f.ChromaLocationH = loc
	return f
}

func TestDepthWideningFastPath(t *testing.T) {
	// 10 -> 16 bit limited-range widening with unchanged geometry and
	// siting is a pure left shift: one stage per plane, no float round
	// trip.
	src := yuv420U16Format(10, format.ChromaLeft)
	dst := yuv420U16Format(16, format.ChromaLeft)

	g, err := New(nil).Source(src).Target(dst).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := g.NodeCount(); got != 6 {
		t.Fatalf("left-shift pipeline should be 3 sources + 3 shifts, got %d nodes", got)
	}

	in := yuvBuffers(src)
	for _, p := range []pixel.Plane{pixel.PlaneY, pixel.PlaneU, pixel.PlaneV} {
		h := 16
		if p != pixel.PlaneY {
			h = 8
		}
		for i := 0; i < h; i++ {
			row := in[p].Row(i)
			for x := 0; x < len(row)/2; x++ {
				putU16(row, x, uint16(64+x))
			}
		}
	}
	out := yuvBuffers(dst)
	execute(t, g, in, out)

	row := out[pixel.PlaneY].Row(3)
	for x := 0; x < 16; x++ {
		if got, want := getU16(row, x), uint16(64+x)<<6; got != want {
			t.Fatalf("col %d: got %d, want %d", x, got, want)
		}
	}
}

func TestChromaSitingChangeDisqualifiesFastPath(t *testing.T) {
	// The same widening with a declared left -> center chroma siting
	// change must resample the chroma planes, not just shift them.
	src := yuv420U16Format(10, format.ChromaLeft)
	dst := yuv420U16Format(16, format.ChromaCenter)

	g, err := New(nil).Source(src).Target(dst).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := g.NodeCount(); got <= 6 {
		t.Fatalf("siting change needs chroma resample stages, got only %d nodes", got)
	}
}

func putU16(row []byte, i int, v uint16) {
	row[i*2] = byte(v)
	row[i*2+1] = byte(v >> 8)
}

func getU16(row []byte, i int) uint16 {
	return uint16(row[i*2]) | uint16(row[i*2+1])<<8
}

func TestFamilyMismatchFails(t *testing.T) {
	src := greyFormat(16, 16, pixel.U8)
	dst := format.NewImageFormat(16, 16, pixel.U8)
	dst.ColorFamily = pixel.FamilyRGB
	dst.Matrix = colorspace.MatrixRGB
	dst.Transfer = colorspace.TransferBT709
	dst.Primaries = colorspace.PrimariesBT709

	_, err := New(nil).Source(src).Target(dst).Colorspace(colorspace.NewGraph(nil)).Build()
	if err == nil {
		t.Fatalf("grey -> RGB should fail")
	}
	if zimgerr.CodeOf(err) != zimgerr.ColorFamilyMismatch {
		t.Fatalf("want COLOR_FAMILY_MISMATCH, got %v", err)
	}
}

func TestFieldParityConversionFails(t *testing.T) {
	src := greyFormat(16, 16, pixel.U8)
	dst := greyFormat(16, 16, pixel.U8)
	dst.FieldParity = format.ParityTop

	_, err := New(nil).Source(src).Target(dst).Build()
	if zimgerr.CodeOf(err) != zimgerr.NoFieldParityConversion {
		t.Fatalf("want NO_FIELD_PARITY_CONVERSION, got %v", err)
	}
}

func TestUnreachableColorspaceFails(t *testing.T) {
	src := format.NewImageFormat(16, 16, pixel.F32)
	src.ColorFamily = pixel.FamilyRGB
	src.Matrix = colorspace.MatrixRGB
	src.Transfer = colorspace.TransferBT709
	src.Primaries = colorspace.PrimariesBT709

	dst := format.NewImageFormat(16, 16, pixel.F32)
	dst.ColorFamily = pixel.FamilyRGB
	// Fully unspecified target: a valid vertex, but no edges lead to it.

	_, err := New(nil).Source(src).Target(dst).Colorspace(colorspace.NewGraph(nil)).Build()
	if zimgerr.CodeOf(err) != zimgerr.NoColorspaceConversion {
		t.Fatalf("want NO_COLORSPACE_CONVERSION, got %v", err)
	}
}
