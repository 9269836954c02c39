package filter

import "github.com/sekrit-twc/zimg/pixel"

// ChromaUpsample2x doubles a chroma plane in both dimensions with the
// diamond-shaped 4-tap kernel: each output sample blends the 2x2 block of
// nearest chroma samples with weights 9/3/3/1 over 16. The kernel assumes
// center-sited chroma, which is why the builder only selects it for the
// CENTER chroma location; other sitings go through the general resampler
// with an explicit subpixel shift.
type ChromaUpsample2x struct {
	In, Out pixel.Attributes
}

func NewChromaUpsample2x(in pixel.Attributes) *ChromaUpsample2x {
	out := pixel.Attributes{Width: in.Width * 2, Height: in.Height * 2, PixelType: in.PixelType}
	return &ChromaUpsample2x{In: in, Out: out}
}

func (c *ChromaUpsample2x) Flags() Flags { return Flags{} }

func (c *ChromaUpsample2x) InputFormat() pixel.Attributes  { return c.In }
func (c *ChromaUpsample2x) OutputFormat() pixel.Attributes { return c.Out }

// nearFar returns the two source indices blended for output index i: the
// containing source sample and its diagonal neighbor, clamped at the
// image border (where the kernel degenerates to a 2-tap or 1-tap blend).
func nearFar(i, srcDim int) (near, far int) {
	near = i >> 1
	if i&1 == 0 {
		far = near - 1
	} else {
		far = near + 1
	}
	if far < 0 {
		far = 0
	}
	if far >= srcDim {
		far = srcDim - 1
	}
	return near, far
}

func (c *ChromaUpsample2x) RequiredRowRange(i int) Point {
	near, far := nearFar(i, c.In.Height)
	lo, hi := near, far
	if lo > hi {
		lo, hi = hi, lo
	}
	return Point{lo, hi + 1}
}

func (c *ChromaUpsample2x) RequiredColRange(left, right int) Point {
	if right <= left {
		return Point{0, 0}
	}
	lo := left>>1 - 1
	if lo < 0 {
		lo = 0
	}
	hi := (right-1)>>1 + 2
	if hi > c.In.Width {
		hi = c.In.Width
	}
	return Point{lo, hi}
}

func (c *ChromaUpsample2x) SimultaneousLines() int { return 1 }
func (c *ChromaUpsample2x) ContextSize() int       { return 0 }
func (c *ChromaUpsample2x) TmpSize() int           { return 0 }
func (c *ChromaUpsample2x) InitContext(ctx []byte) {}

func (c *ChromaUpsample2x) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	rowNear, rowFar := nearFar(i, c.In.Height)
	lo := rowNear
	if rowFar < lo {
		lo = rowFar
	}
	near := bytesToFloat32(src[rowNear-lo])
	far := bytesToFloat32(src[rowFar-lo])
	out := bytesToFloat32(dst[0])

	for x := left; x < right; x++ {
		cn, cf := nearFar(x, c.In.Width)
		out[x] = (9*near[cn] + 3*near[cf] + 3*far[cn] + far[cf]) * (1.0 / 16.0)
	}
}
