package filter

import (
	"github.com/sekrit-twc/zimg/colorspace"
	"github.com/sekrit-twc/zimg/pixel"
)

// Transfer applies a transfer-curve function independently to every
// sample of a single plane (R, G, or B); the colorspace package supplies
// the exact curve math, this filter only supplies the scheduling
// contract and optionally substitutes the fast-approximate lookup table.
type Transfer struct {
	Attr   pixel.Attributes
	Curve  colorspace.Curve
	ToLin  bool
	Peak   float64
	Approx bool
	fn     func(float32) float32
}

func NewTransfer(attr pixel.Attributes, curve colorspace.Curve, toLinear bool, peakLuminance float64, approx bool) *Transfer {
	t := &Transfer{Attr: attr, Curve: curve, ToLin: toLinear, Peak: peakLuminance, Approx: approx}
	if approx {
		t.fn = colorspace.ApproxTransferFunc(curve, toLinear, peakLuminance)
	} else {
		t.fn = colorspace.TransferFunc(curve, toLinear, peakLuminance)
	}
	return t
}

func (t *Transfer) Flags() Flags { return Flags{SameRow: true, InPlace: true} }

func (t *Transfer) InputFormat() pixel.Attributes  { return t.Attr }
func (t *Transfer) OutputFormat() pixel.Attributes { return t.Attr }

func (t *Transfer) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (t *Transfer) RequiredColRange(left, right int) Point { return Point{left, right} }

func (t *Transfer) SimultaneousLines() int { return 1 }
func (t *Transfer) ContextSize() int       { return 0 }
func (t *Transfer) TmpSize() int           { return 0 }
func (t *Transfer) InitContext(ctx []byte) {}

func (t *Transfer) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	in := bytesToFloat32(src[0])
	out := bytesToFloat32(dst[0])
	f := t.fn
	for x := left; x < right; x++ {
		out[x] = f(in[x])
	}
}
