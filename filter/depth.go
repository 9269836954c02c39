package filter

import "github.com/sekrit-twc/zimg/pixel"

// LeftShift converts between integer depths of the same container width
// relationship by a pure left (or right) bit shift, used when the source
// and destination share a pixel.Type but differ in significant bit depth.
type LeftShift struct {
	In, Out pixel.Attributes
	Shift   int // positive: widen (shift left); negative: narrow (shift right)
}

func NewLeftShift(in, out pixel.Attributes, srcDepth, dstDepth int) *LeftShift {
	return &LeftShift{In: in, Out: out, Shift: dstDepth - srcDepth}
}

func (l *LeftShift) Flags() Flags { return Flags{SameRow: true, InPlace: true} }

func (l *LeftShift) InputFormat() pixel.Attributes  { return l.In }
func (l *LeftShift) OutputFormat() pixel.Attributes { return l.Out }

func (l *LeftShift) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (l *LeftShift) RequiredColRange(left, right int) Point { return Point{left, right} }

func (l *LeftShift) SimultaneousLines() int { return 1 }
func (l *LeftShift) ContextSize() int       { return 0 }
func (l *LeftShift) TmpSize() int           { return 0 }
func (l *LeftShift) InitContext(ctx []byte) {}

func (l *LeftShift) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	in := bytesToUint16(src[0])
	out := bytesToUint16(dst[0])
	if l.Shift >= 0 {
		s := uint(l.Shift)
		for x := left; x < right; x++ {
			out[x] = in[x] << s
		}
	} else {
		s := uint(-l.Shift)
		for x := left; x < right; x++ {
			out[x] = in[x] >> s
		}
	}
}

// ToFloat unpacks an integer plane into normalized float32 working
// precision: full-range samples map container values to [0,1]; limited
// (studio) range samples map through the 16-235/240-style black/white
// points implied by the bit depth.
type ToFloat struct {
	In, Out  pixel.Attributes
	Depth    int
	FullRange bool
	Chroma   bool
}

func NewToFloat(in, out pixel.Attributes, depth int, fullRange, chroma bool) *ToFloat {
	return &ToFloat{In: in, Out: out, Depth: depth, FullRange: fullRange, Chroma: chroma}
}

func (f *ToFloat) Flags() Flags { return Flags{SameRow: true} }

func (f *ToFloat) InputFormat() pixel.Attributes  { return f.In }
func (f *ToFloat) OutputFormat() pixel.Attributes { return f.Out }

func (f *ToFloat) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (f *ToFloat) RequiredColRange(left, right int) Point { return Point{left, right} }

func (f *ToFloat) SimultaneousLines() int { return 1 }
func (f *ToFloat) ContextSize() int       { return 0 }
func (f *ToFloat) TmpSize() int           { return 0 }
func (f *ToFloat) InitContext(ctx []byte) {}

// rangeParams returns the (offset, scale) pair mapping a container value
// v to (v/maxVal - offset)/scale, following the limited-range black/white
// point convention (luma: 16/235 at 8 bits, scaled by 2^(depth-8); chroma:
// 128 neutral point, 224 span).
func (f *ToFloat) rangeParams() (offset, scale float32) {
	maxVal := float32((int64(1) << uint(f.Depth)) - 1)
	if f.FullRange {
		if f.Chroma {
			return float32(int64(1)<<uint(f.Depth-1)) / maxVal, 1
		}
		return 0, 1
	}
	scaleFactor := float32(int64(1) << uint(f.Depth-8))
	if f.Chroma {
		return (128 * scaleFactor) / maxVal, (224 * scaleFactor) / maxVal
	}
	return (16 * scaleFactor) / maxVal, (219 * scaleFactor) / maxVal
}

func (f *ToFloat) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	out := bytesToFloat32(dst[0])
	offset, scale := f.rangeParams()
	maxVal := float32((int64(1) << uint(f.Depth)) - 1)
	if f.In.PixelType == pixel.U8 {
		in := src[0]
		for x := left; x < right; x++ {
			out[x] = (float32(in[x])/maxVal - offset) / scale
		}
		return
	}
	in := bytesToUint16(src[0])
	for x := left; x < right; x++ {
		out[x] = (float32(in[x])/maxVal - offset) / scale
	}
}

// FromFloat is the inverse of ToFloat: it packs normalized float32
// working-precision samples back into an integer container at Depth
// bits, with half-up rounding and saturation to the container's range.
type FromFloat struct {
	In, Out   pixel.Attributes
	Depth     int
	FullRange bool
	Chroma    bool
}

func NewFromFloat(in, out pixel.Attributes, depth int, fullRange, chroma bool) *FromFloat {
	return &FromFloat{In: in, Out: out, Depth: depth, FullRange: fullRange, Chroma: chroma}
}

func (f *FromFloat) Flags() Flags { return Flags{SameRow: true} }

func (f *FromFloat) InputFormat() pixel.Attributes  { return f.In }
func (f *FromFloat) OutputFormat() pixel.Attributes { return f.Out }

func (f *FromFloat) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (f *FromFloat) RequiredColRange(left, right int) Point { return Point{left, right} }

func (f *FromFloat) SimultaneousLines() int { return 1 }
func (f *FromFloat) ContextSize() int       { return 0 }
func (f *FromFloat) TmpSize() int           { return 0 }
func (f *FromFloat) InitContext(ctx []byte) {}

func (f *FromFloat) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	in := bytesToFloat32(src[0])
	maxVal := float32((int64(1) << uint(f.Depth)) - 1)
	tf := (&ToFloat{Depth: f.Depth, FullRange: f.FullRange, Chroma: f.Chroma})
	offset, scale := tf.rangeParams()
	if f.Out.PixelType == pixel.U8 {
		out := dst[0]
		for x := left; x < right; x++ {
			v := (in[x]*scale + offset) * maxVal
			out[x] = uint8(quantizeClamp(v, maxVal))
		}
		return
	}
	out := bytesToUint16(dst[0])
	for x := left; x < right; x++ {
		v := (in[x]*scale + offset) * maxVal
		out[x] = quantizeClamp(v, maxVal)
	}
}
