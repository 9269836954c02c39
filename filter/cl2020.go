package filter

import (
	"github.com/sekrit-twc/zimg/colorspace"
	"github.com/sekrit-twc/zimg/pixel"
)

// BT.2020 constant-luminance asymmetric chroma scale constants. The
// numerator/denominator pairs differ for positive and negative B'-Y' and
// R'-Y' excursions, which is what makes the encode piecewise.
const (
	cl2020PB = 0.7910
	cl2020NB = 0.9702
	cl2020PR = 0.4969
	cl2020NR = 0.8591
)

// CL2020Encode converts linear RGB to constant-luminance Y'CbCr: the luma
// weights are applied in linear light, then Y, B, and R are individually
// gamma-encoded with the BT.709 OETF, and the chroma differences are
// scaled by the asymmetric pb/nb/pr/nr constants.
type CL2020Encode struct {
	Attr pixel.Attributes
}

func NewCL2020Encode(attr pixel.Attributes) *CL2020Encode {
	return &CL2020Encode{Attr: attr}
}

func (e *CL2020Encode) Flags() Flags { return Flags{SameRow: true, Color: true} }

func (e *CL2020Encode) InputFormat() pixel.Attributes  { return e.Attr }
func (e *CL2020Encode) OutputFormat() pixel.Attributes { return e.Attr }

func (e *CL2020Encode) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (e *CL2020Encode) RequiredColRange(left, right int) Point { return Point{left, right} }

func (e *CL2020Encode) SimultaneousLines() int { return 1 }
func (e *CL2020Encode) ContextSize() int       { return 0 }
func (e *CL2020Encode) TmpSize() int           { return 0 }
func (e *CL2020Encode) InitContext(ctx []byte) {}

func (e *CL2020Encode) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	r := bytesToFloat32(src[0])
	g := bytesToFloat32(src[1])
	b := bytesToFloat32(src[2])
	oy := bytesToFloat32(dst[0])
	ou := bytesToFloat32(dst[1])
	ov := bytesToFloat32(dst[2])

	const kr = colorspace.CL2020Kr
	const kb = colorspace.CL2020Kb
	const kg = 1 - kr - kb

	for x := left; x < right; x++ {
		yLin := kr*r[x] + kg*g[x] + kb*b[x]
		yg := colorspace.BT709OETF(yLin)
		bg := colorspace.BT709OETF(b[x])
		rg := colorspace.BT709OETF(r[x])

		db := bg - yg
		dr := rg - yg
		var u, v float32
		if db < 0 {
			u = db / (2 * cl2020NB)
		} else {
			u = db / (2 * cl2020PB)
		}
		if dr < 0 {
			v = dr / (2 * cl2020NR)
		} else {
			v = dr / (2 * cl2020PR)
		}
		oy[x] = yg
		ou[x] = u
		ov[x] = v
	}
}

// CL2020Decode is the exact inverse of CL2020Encode, recovering linear
// RGB from constant-luminance Y'CbCr.
type CL2020Decode struct {
	Attr pixel.Attributes
}

func NewCL2020Decode(attr pixel.Attributes) *CL2020Decode {
	return &CL2020Decode{Attr: attr}
}

func (d *CL2020Decode) Flags() Flags { return Flags{SameRow: true, Color: true} }

func (d *CL2020Decode) InputFormat() pixel.Attributes  { return d.Attr }
func (d *CL2020Decode) OutputFormat() pixel.Attributes { return d.Attr }

func (d *CL2020Decode) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (d *CL2020Decode) RequiredColRange(left, right int) Point { return Point{left, right} }

func (d *CL2020Decode) SimultaneousLines() int { return 1 }
func (d *CL2020Decode) ContextSize() int       { return 0 }
func (d *CL2020Decode) TmpSize() int           { return 0 }
func (d *CL2020Decode) InitContext(ctx []byte) {}

func (d *CL2020Decode) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	y := bytesToFloat32(src[0])
	u := bytesToFloat32(src[1])
	v := bytesToFloat32(src[2])
	or := bytesToFloat32(dst[0])
	og := bytesToFloat32(dst[1])
	ob := bytesToFloat32(dst[2])

	const kr = colorspace.CL2020Kr
	const kb = colorspace.CL2020Kb
	const kg = 1 - kr - kb

	for x := left; x < right; x++ {
		yg := y[x]
		var db, dr float32
		if u[x] < 0 {
			db = u[x] * (2 * cl2020NB)
		} else {
			db = u[x] * (2 * cl2020PB)
		}
		if v[x] < 0 {
			dr = v[x] * (2 * cl2020NR)
		} else {
			dr = v[x] * (2 * cl2020PR)
		}

		yLin := colorspace.BT709InverseOETF(yg)
		bLin := colorspace.BT709InverseOETF(db + yg)
		rLin := colorspace.BT709InverseOETF(dr + yg)
		gLin := (yLin - kr*rLin - kb*bLin) / kg

		or[x] = rLin
		og[x] = gLin
		ob[x] = bLin
	}
}
