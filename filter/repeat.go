package filter

import "github.com/sekrit-twc/zimg/pixel"

// Repeat replicates each source sample factorW times horizontally and
// each source row factorH times vertically, without interpolation. It is
// the nearest-neighbor chroma upsampler the builder picks when the point
// resampling kernel is requested, and the "repeat plane" primitive used
// wherever a plane needs duplicating onto a denser grid.
type Repeat struct {
	In, Out          pixel.Attributes
	FactorW, FactorH int
}

func NewRepeat(in pixel.Attributes, factorW, factorH int) *Repeat {
	out := pixel.Attributes{
		Width:     in.Width * factorW,
		Height:    in.Height * factorH,
		PixelType: in.PixelType,
	}
	return &Repeat{In: in, Out: out, FactorW: factorW, FactorH: factorH}
}

func (r *Repeat) Flags() Flags { return Flags{} }

func (r *Repeat) InputFormat() pixel.Attributes  { return r.In }
func (r *Repeat) OutputFormat() pixel.Attributes { return r.Out }

func (r *Repeat) RequiredRowRange(i int) Point {
	src := i / r.FactorH
	return Point{src, src + 1}
}

func (r *Repeat) RequiredColRange(left, right int) Point {
	if right <= left {
		return Point{0, 0}
	}
	return Point{left / r.FactorW, (right-1)/r.FactorW + 1}
}

func (r *Repeat) SimultaneousLines() int { return 1 }
func (r *Repeat) ContextSize() int       { return 0 }
func (r *Repeat) TmpSize() int           { return 0 }
func (r *Repeat) InitContext(ctx []byte) {}

func (r *Repeat) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	bw := r.In.PixelType.ByteWidth()
	in := src[0]
	out := dst[0]
	if r.FactorW == 1 {
		copy(out[left*bw:right*bw], in[left*bw:right*bw])
		return
	}
	for x := left; x < right; x++ {
		s := x / r.FactorW
		copy(out[x*bw:(x+1)*bw], in[s*bw:(s+1)*bw])
	}
}
