package filter

import (
	"math"

	"github.com/sekrit-twc/zimg/pixel"
)

// half <-> single conversion in software. The engine stores F16 planes as
// raw IEEE 754 binary16 and widens them to float32 working precision at
// the graph boundary; round-to-nearest-even on the narrowing side.

func halfToFloat(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	man := uint32(h) & 0x3ff

	switch {
	case exp == 0:
		if man == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal half: renormalize into the float32 exponent range.
		e := uint32(127 - 15 + 1)
		for man&0x400 == 0 {
			man <<= 1
			e--
		}
		man &= 0x3ff
		return math.Float32frombits(sign | e<<23 | man<<13)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | man<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | man<<13)
	}
}

func floatToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	man := bits & 0x7fffff

	switch {
	case exp >= 0x1f:
		if bits&0x7f800000 == 0x7f800000 && man != 0 {
			return sign | 0x7e00 // NaN
		}
		return sign | 0x7c00 // overflow -> infinity
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		man |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(man >> shift)
		if man>>(shift-1)&1 != 0 && (man&(1<<(shift-1)-1) != 0 || half&1 != 0) {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(man>>13)
		if man&0x1000 != 0 && man&0x2fff != 0 {
			half++ // rounds into the exponent correctly by carry
		}
		return half
	}
}

// HalfToFloat widens an F16 plane to F32 working precision.
type HalfToFloat struct {
	In, Out pixel.Attributes
}

func NewHalfToFloat(in pixel.Attributes) *HalfToFloat {
	return &HalfToFloat{
		In:  in,
		Out: pixel.Attributes{Width: in.Width, Height: in.Height, PixelType: pixel.F32},
	}
}

func (h *HalfToFloat) Flags() Flags { return Flags{SameRow: true} }

func (h *HalfToFloat) InputFormat() pixel.Attributes  { return h.In }
func (h *HalfToFloat) OutputFormat() pixel.Attributes { return h.Out }

func (h *HalfToFloat) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (h *HalfToFloat) RequiredColRange(left, right int) Point { return Point{left, right} }

func (h *HalfToFloat) SimultaneousLines() int { return 1 }
func (h *HalfToFloat) ContextSize() int       { return 0 }
func (h *HalfToFloat) TmpSize() int           { return 0 }
func (h *HalfToFloat) InitContext(ctx []byte) {}

func (h *HalfToFloat) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	in := bytesToUint16(src[0])
	out := bytesToFloat32(dst[0])
	for x := left; x < right; x++ {
		out[x] = halfToFloat(in[x])
	}
}

// FloatToHalf narrows an F32 plane to F16 storage.
type FloatToHalf struct {
	In, Out pixel.Attributes
}

func NewFloatToHalf(in pixel.Attributes) *FloatToHalf {
	return &FloatToHalf{
		In:  in,
		Out: pixel.Attributes{Width: in.Width, Height: in.Height, PixelType: pixel.F16},
	}
}

func (h *FloatToHalf) Flags() Flags { return Flags{SameRow: true} }

func (h *FloatToHalf) InputFormat() pixel.Attributes  { return h.In }
func (h *FloatToHalf) OutputFormat() pixel.Attributes { return h.Out }

func (h *FloatToHalf) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (h *FloatToHalf) RequiredColRange(left, right int) Point { return Point{left, right} }

func (h *FloatToHalf) SimultaneousLines() int { return 1 }
func (h *FloatToHalf) ContextSize() int       { return 0 }
func (h *FloatToHalf) TmpSize() int           { return 0 }
func (h *FloatToHalf) InitContext(ctx []byte) {}

func (h *FloatToHalf) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	in := bytesToFloat32(src[0])
	out := bytesToUint16(dst[0])
	for x := left; x < right; x++ {
		out[x] = floatToHalf(in[x])
	}
}
