package filter

import (
	"github.com/sekrit-twc/zimg/internal/cpu"
	"github.com/sekrit-twc/zimg/pixel"
	"github.com/sekrit-twc/zimg/resize"
)

// HorizontalResize applies a resize.FilterContext across each row
// independently, operating on float32 working-precision samples.
type HorizontalResize struct {
	In, Out pixel.Attributes
	FC      *resize.FilterContext
	Lines   int
}

func NewHorizontalResize(in, out pixel.Attributes, fc *resize.FilterContext, level cpu.Level) *HorizontalResize {
	return &HorizontalResize{In: in, Out: out, FC: fc, Lines: cpu.SimultaneousLines(level)}
}

func (r *HorizontalResize) Flags() Flags { return Flags{SameRow: true} }

func (r *HorizontalResize) InputFormat() pixel.Attributes  { return r.In }
func (r *HorizontalResize) OutputFormat() pixel.Attributes { return r.Out }

func (r *HorizontalResize) RequiredRowRange(i int) Point { return Point{i, i + 1} }

func (r *HorizontalResize) RequiredColRange(left, right int) Point {
	if right <= left {
		return Point{0, 0}
	}
	lo := int(r.FC.Left[left])
	hiSample := right - 1
	hi := int(r.FC.Left[hiSample]) + r.FC.FilterWidth
	return Point{lo, hi}
}

func (r *HorizontalResize) SimultaneousLines() int { return r.Lines }
func (r *HorizontalResize) ContextSize() int       { return 0 }
func (r *HorizontalResize) TmpSize() int           { return 0 }
func (r *HorizontalResize) InitContext(ctx []byte) {}

func (r *HorizontalResize) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	in := bytesToFloat32(src[0])
	out := bytesToFloat32(dst[0])
	for x := left; x < right; x++ {
		taps := r.FC.At(x)
		base := int(r.FC.Left[x])
		var acc float32
		for k, c := range taps {
			acc += c * in[base+k]
		}
		out[x] = acc
	}
}

// VerticalResize applies a resize.FilterContext down each column,
// consuming a window of input rows per output row.
type VerticalResize struct {
	In, Out pixel.Attributes
	FC      *resize.FilterContext
	Lines   int
}

func NewVerticalResize(in, out pixel.Attributes, fc *resize.FilterContext, level cpu.Level) *VerticalResize {
	return &VerticalResize{In: in, Out: out, FC: fc, Lines: cpu.SimultaneousLines(level)}
}

func (r *VerticalResize) Flags() Flags { return Flags{} }

func (r *VerticalResize) InputFormat() pixel.Attributes  { return r.In }
func (r *VerticalResize) OutputFormat() pixel.Attributes { return r.Out }

func (r *VerticalResize) RequiredRowRange(i int) Point {
	taps := r.FC.At(i)
	return Point{int(r.FC.Left[i]), int(r.FC.Left[i]) + len(taps)}
}

func (r *VerticalResize) RequiredColRange(left, right int) Point { return Point{left, right} }

func (r *VerticalResize) SimultaneousLines() int { return r.Lines }
func (r *VerticalResize) ContextSize() int       { return 0 }
func (r *VerticalResize) TmpSize() int           { return 0 }
func (r *VerticalResize) InitContext(ctx []byte) {}

func (r *VerticalResize) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	taps := r.FC.At(i)
	out := bytesToFloat32(dst[0])
	rows := make([][]float32, len(taps))
	for k := range taps {
		rows[k] = bytesToFloat32(src[k])
	}
	for x := left; x < right; x++ {
		var acc float32
		for k, c := range taps {
			acc += c * rows[k][x]
		}
		out[x] = acc
	}
}
