package filter

import (
	"math"
	"math/rand"

	"github.com/sekrit-twc/zimg/pixel"
)

// DitherKind selects the error-shaping strategy used when quantizing a
// float32 working-precision plane down to an integer container.
type DitherKind int

const (
	DitherNone DitherKind = iota
	DitherOrdered
	DitherRandom
	DitherErrorDiffusion
)

// bayerTableLen and bayerTable are the 8x8 Bayer ordered-dither matrix and
// its normalizing scale.
const bayerTableLen = 8
const bayerTableScale = 65

var bayerTable = [bayerTableLen * bayerTableLen]uint8{
	1, 49, 13, 61, 4, 52, 16, 64,
	33, 17, 45, 29, 36, 20, 48, 32,
	9, 57, 5, 53, 12, 60, 8, 56,
	41, 25, 37, 21, 44, 28, 40, 24,
	3, 51, 15, 63, 2, 50, 14, 62,
	35, 19, 47, 31, 34, 18, 46, 30,
	11, 59, 7, 55, 10, 58, 6, 54,
	43, 27, 39, 23, 42, 26, 38, 22,
}

func bayerDither(i, j int) float32 {
	v := bayerTable[(i%bayerTableLen)*bayerTableLen+j%bayerTableLen]
	return float32(v)/bayerTableScale - 0.5
}

const randomTableSize = 1 << 14

// randomDitherTable is a fixed pseudo-random sequence in [-0.5, 0.5),
// generated once so repeated conversions of the same image are
// reproducible within a process.
var randomDitherTable = buildRandomDitherTable()

func buildRandomDitherTable() [randomTableSize]float32 {
	var tab [randomTableSize]float32
	r := rand.New(rand.NewSource(0))
	for i := range tab {
		tab[i] = float32(r.Float64()) - 0.5
	}
	return tab
}

// Dither packs a float32 working-precision plane into an integer
// container, applying the requested dither kind before rounding.
type Dither struct {
	In, Out   pixel.Attributes
	Depth     int
	FullRange bool
	Chroma    bool
	Kind      DitherKind
	width     int
}

func NewDither(in, out pixel.Attributes, depth int, fullRange, chroma bool, kind DitherKind) *Dither {
	return &Dither{In: in, Out: out, Depth: depth, FullRange: fullRange, Chroma: chroma, Kind: kind, width: in.Width}
}

func (d *Dither) Flags() Flags {
	return Flags{SameRow: d.Kind != DitherErrorDiffusion, EntireRow: d.Kind == DitherErrorDiffusion, Stateful: d.Kind == DitherErrorDiffusion}
}

func (d *Dither) InputFormat() pixel.Attributes  { return d.In }
func (d *Dither) OutputFormat() pixel.Attributes { return d.Out }

func (d *Dither) RequiredRowRange(i int) Point { return Point{i, i + 1} }
func (d *Dither) RequiredColRange(left, right int) Point {
	if d.Kind == DitherErrorDiffusion {
		return Point{0, d.width}
	}
	return Point{left, right}
}

func (d *Dither) SimultaneousLines() int { return 1 }

// ContextSize reserves two error rows (current, top), each padded by one
// sample on each side, for the Floyd-Steinberg error-diffusion state
// carried between Process calls.
func (d *Dither) ContextSize() int {
	if d.Kind != DitherErrorDiffusion {
		return 0
	}
	return 2 * (d.width + 2) * 4
}

func (d *Dither) TmpSize() int { return 0 }

func (d *Dither) InitContext(ctx []byte) {
	if d.Kind != DitherErrorDiffusion {
		return
	}
	rows := bytesToFloat32(ctx)
	for i := range rows {
		rows[i] = 0
	}
}

func (d *Dither) rangeParams() (offset, scale float32) {
	tf := &ToFloat{Depth: d.Depth, FullRange: d.FullRange, Chroma: d.Chroma}
	o, s := tf.rangeParams()
	// ToFloat maps container -> norm via (norm-o)/s; the inverse packing
	// direction needs norm -> container via norm*s+o, then *maxVal.
	return o, s
}

func (d *Dither) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	in := bytesToFloat32(src[0])
	offset, scale := d.rangeParams()
	maxVal := float32((int64(1) << uint(d.Depth)) - 1)

	var out16 []uint16
	var out8 []byte
	if d.Out.PixelType == pixel.U8 {
		out8 = dst[0]
	} else {
		out16 = bytesToUint16(dst[0])
	}
	store := func(x int, q uint16) {
		if out8 != nil {
			out8[x] = uint8(q)
		} else {
			out16[x] = q
		}
	}

	switch d.Kind {
	case DitherNone:
		for x := left; x < right; x++ {
			v := (in[x]*scale + offset) * maxVal
			store(x, quantizeClamp(v, maxVal))
		}
	case DitherOrdered:
		for x := left; x < right; x++ {
			v := (in[x]*scale+offset)*maxVal + bayerDither(i, x)
			store(x, quantizeClamp(v, maxVal))
		}
	case DitherRandom:
		for x := left; x < right; x++ {
			v := (in[x]*scale+offset)*maxVal + randomDitherTable[uint32(i*d.width+x)%randomTableSize]
			store(x, quantizeClamp(v, maxVal))
		}
	case DitherErrorDiffusion:
		d.processErrorDiffusion(ctx, in, store, offset, scale, maxVal)
	}
}

// processErrorDiffusion implements the Floyd-Steinberg wavefront: error
// from already-quantized neighbors (left, top-right, top, top-left) is
// gathered with weights 7/3/5/1 over 16, carried in a top/current
// error-row pair; each call copies the finished current row into top.
func (d *Dither) processErrorDiffusion(ctx []byte, in []float32, store func(int, uint16), offset, scale, maxVal float32) {
	rows := bytesToFloat32(ctx)
	width := d.width
	top := rows[0 : width+2]
	cur := rows[width+2 : 2*(width+2)]
	for j := range cur {
		cur[j] = 0
	}

	for x := 0; x < width; x++ {
		jErr := x + 1
		v := in[x]*scale + offset

		var errAcc float32
		errAcc += cur[jErr-1] * (7.0 / 16.0)
		errAcc += top[jErr+1] * (3.0 / 16.0)
		errAcc += top[jErr+0] * (5.0 / 16.0)
		errAcc += top[jErr-1] * (1.0 / 16.0)

		x2 := v*maxVal + errAcc
		q := quantizeClamp(x2, maxVal)
		store(x, q)
		cur[jErr] = x2 - float32(q)
	}

	copy(top, cur)
}

func quantizeClamp(x, maxVal float32) uint16 {
	if x < 0 {
		x = 0
	}
	if x > maxVal {
		x = maxVal
	}
	return uint16(math.Floor(float64(x) + 0.5))
}
