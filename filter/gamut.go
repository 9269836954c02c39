package filter

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/sekrit-twc/zimg/colorspace"
	"github.com/sekrit-twc/zimg/pixel"
)

// chromaticity is a CIE xy chromaticity coordinate.
type chromaticity struct{ x, y float64 }

type primariesDef struct {
	r, g, b, white chromaticity
}

var primariesTable = map[colorspace.Primaries]primariesDef{
	colorspace.PrimariesBT709: {
		r: chromaticity{0.640, 0.330}, g: chromaticity{0.300, 0.600}, b: chromaticity{0.150, 0.060},
		white: chromaticity{0.3127, 0.3290},
	},
	colorspace.PrimariesBT470M: {
		r: chromaticity{0.670, 0.330}, g: chromaticity{0.210, 0.710}, b: chromaticity{0.140, 0.080},
		white: chromaticity{0.310, 0.316},
	},
	colorspace.PrimariesBT470BG: {
		r: chromaticity{0.640, 0.330}, g: chromaticity{0.290, 0.600}, b: chromaticity{0.150, 0.060},
		white: chromaticity{0.3127, 0.3290},
	},
	colorspace.PrimariesSMPTE170M: {
		r: chromaticity{0.630, 0.340}, g: chromaticity{0.310, 0.595}, b: chromaticity{0.155, 0.070},
		white: chromaticity{0.3127, 0.3290},
	},
	colorspace.PrimariesSMPTE240M: {
		r: chromaticity{0.630, 0.340}, g: chromaticity{0.310, 0.595}, b: chromaticity{0.155, 0.070},
		white: chromaticity{0.3127, 0.3290},
	},
	colorspace.PrimariesFilm: {
		r: chromaticity{0.681, 0.319}, g: chromaticity{0.243, 0.692}, b: chromaticity{0.145, 0.049},
		white: chromaticity{0.310, 0.316},
	},
	colorspace.PrimariesBT2020: {
		r: chromaticity{0.708, 0.292}, g: chromaticity{0.170, 0.797}, b: chromaticity{0.131, 0.046},
		white: chromaticity{0.3127, 0.3290},
	},
	colorspace.PrimariesST428: {
		r: chromaticity{0.7347, 0.2653}, g: chromaticity{0.0, 1.0}, b: chromaticity{0.0001, -0.077},
		white: chromaticity{1.0 / 3, 1.0 / 3},
	},
	colorspace.PrimariesP3DCI: {
		r: chromaticity{0.680, 0.320}, g: chromaticity{0.265, 0.690}, b: chromaticity{0.150, 0.060},
		white: chromaticity{0.314, 0.351},
	},
	colorspace.PrimariesP3Display: {
		r: chromaticity{0.680, 0.320}, g: chromaticity{0.265, 0.690}, b: chromaticity{0.150, 0.060},
		white: chromaticity{0.3127, 0.3290},
	},
}

// rgbToXYZ composes the 3x3 RGB->XYZ matrix for a primaries definition
// using gonum/mat to solve for the per-channel scale factors, following
// the standard chromaticity-to-matrix construction (Bruce Lindbloom's
// derivation): build the unscaled primary matrix, then solve for S such
// that M*S reproduces the white point's XYZ.
func rgbToXYZ(p primariesDef) *mat.Dense {
	xyz := func(c chromaticity) (float64, float64, float64) {
		return c.x / c.y, 1.0, (1 - c.x - c.y) / c.y
	}
	xr, yr, zr := xyz(p.r)
	xg, yg, zg := xyz(p.g)
	xb, yb, zb := xyz(p.b)
	xw, yw, zw := xyz(p.white)

	m := mat.NewDense(3, 3, []float64{
		xr, xg, xb,
		yr, yg, yb,
		zr, zg, zb,
	})

	var mInv mat.Dense
	if err := mInv.Inverse(m); err != nil {
		panic(err)
	}
	w := mat.NewVecDense(3, []float64{xw, yw, zw})
	var s mat.VecDense
	s.MulVec(&mInv, w)

	out := mat.NewDense(3, 3, nil)
	for col := 0; col < 3; col++ {
		out.Set(0, col, m.At(0, col)*s.AtVec(col))
		out.Set(1, col, m.At(1, col)*s.AtVec(col))
		out.Set(2, col, m.At(2, col)*s.AtVec(col))
	}
	return out
}

// gamutMatrixCache memoizes each (from, to) primaries pair's composed 3x3
// matrix: building it requires a matrix inversion and a solve, so it is
// computed once per process and reused by every graph that needs it,
// matching the "composed once, not per pixel" rule of the domain stack.
var gamutMatrixCache sync.Map // map[[2]colorspace.Primaries][3][3]float32

func gamutMatrix(from, to colorspace.Primaries) [3][3]float32 {
	key := [2]colorspace.Primaries{from, to}
	if v, ok := gamutMatrixCache.Load(key); ok {
		return v.([3][3]float32)
	}

	fromXYZ := rgbToXYZ(primariesTable[from])
	toXYZ := rgbToXYZ(primariesTable[to])
	var toXYZInv mat.Dense
	if err := toXYZInv.Inverse(toXYZ); err != nil {
		panic(err)
	}
	var combined mat.Dense
	combined.Mul(&toXYZInv, fromXYZ)

	var out [3][3]float32
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = float32(combined.At(i, j))
		}
	}
	gamutMatrixCache.Store(key, out)
	return out
}

// NewGamut builds a Matrix3x3 filter converting RGB from one set of
// primaries to another, composing the matrix once via gonum/mat.
func NewGamut(attr pixel.Attributes, from, to colorspace.Primaries) *Matrix3x3 {
	return NewMatrix3x3(attr, gamutMatrix(from, to))
}
