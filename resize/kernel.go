// Package resize implements filter tap synthesis: given a kernel,
// source/destination lengths, a shift, and an active subwindow, it
// produces the sparse row matrix of polyphase coefficients in both
// floating and 1.14 fixed-point layouts.
package resize

import (
	"math"

	"golang.org/x/image/draw"
)

// Kernel is golang.org/x/image/draw's resampling kernel shape: Support is
// the one-sided extent, in source samples, where At is non-zero.
// Aliasing the x/image type means the
// point/bilinear/bicubic/spline/Lanczos families below are usable
// directly with that package's scalers as well as this engine's tap
// synthesis.
type Kernel = draw.Kernel

// Point is the nearest-neighbor kernel.
var Point = Kernel{
	Support: 0.5,
	At: func(x float64) float64 {
		if -0.5 <= x && x < 0.5 {
			return 1
		}
		return 0
	},
}

// Bilinear is the triangle (linear) kernel.
var Bilinear = Kernel{
	Support: 1,
	At: func(x float64) float64 {
		x = math.Abs(x)
		if x < 1 {
			return 1 - x
		}
		return 0
	},
}

// Bicubic returns the Mitchell-Netravali/Catmull-Rom family bicubic kernel
// parameterized by (b, c); defaults to b=c=1/3 when both are NaN, the
// standard Mitchell-Netravali filter, while b=0,c=0.5 gives Catmull-Rom.
func Bicubic(b, c float64) Kernel {
	if math.IsNaN(b) {
		b = 1.0 / 3
	}
	if math.IsNaN(c) {
		c = 1.0 / 3
	}
	p0 := (6 - 2*b) / 6
	p2 := (-18 + 12*b + 6*c) / 6
	p3 := (12 - 9*b - 6*c) / 6
	q0 := (8*b + 24*c) / 6
	q1 := (-12*b - 48*c) / 6
	q2 := (6*b + 30*c) / 6
	q3 := (-b - 6*c) / 6
	return Kernel{
		Support: 2,
		At: func(x float64) float64 {
			x = math.Abs(x)
			switch {
			case x < 1:
				return p0 + x*x*(p2+x*p3)
			case x < 2:
				return q0 + x*(q1+x*(q2+x*q3))
			default:
				return 0
			}
		},
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// Lanczos returns the Lanczos-N kernel, where n is the number of lobes.
func Lanczos(n float64) Kernel {
	if n <= 0 {
		n = 3
	}
	return Kernel{
		Support: n,
		At: func(x float64) float64 {
			x = math.Abs(x)
			if x >= n {
				return 0
			}
			return sinc(x) * sinc(x/n)
		},
	}
}

// cubicBSplineSegment evaluates the cubic polynomial
// coeffs[0] + coeffs[1]*x + coeffs[2]*x^2 + coeffs[3]*x^3, used for the
// inner segment of Spline16.
func cubicBSplineSegment(x float64, coeffs [4]float64) float64 {
	return coeffs[0] + x*(coeffs[1]+x*(coeffs[2]+x*coeffs[3]))
}

// Spline16 is the 2-sample-support cubic spline kernel commonly used for
// moderate upscaling (AviSynth's "spline16").
var Spline16 = Kernel{
	Support: 2,
	At: func(x float64) float64 {
		x = math.Abs(x)
		switch {
		case x < 1:
			return cubicBSplineSegment(x, [4]float64{1, -1.0 / 5, -9.0 / 5, 1})
		case x < 2:
			xm1 := x - 1
			return (xm1*xm1*(-1.0/3*xm1+4.0/5) - 7.0/15*xm1)
		default:
			return 0
		}
	},
}

// Spline36 is the 3-sample-support cubic spline kernel (AviSynth's
// "spline36"), sharper than Spline16 at a larger support cost.
var Spline36 = Kernel{
	Support: 3,
	At: func(x float64) float64 {
		x = math.Abs(x)
		switch {
		case x < 1:
			return ((13.0/11*x-453.0/209)*x-3.0/209)*x + 1
		case x < 2:
			xm1 := x - 1
			return ((-6.0/11*xm1+270.0/209)*xm1 - 156.0/209) * xm1
		case x < 3:
			xm2 := x - 2
			return ((1.0/11*xm2-45.0/209)*xm2 + 26.0/209) * xm2
		default:
			return 0
		}
	},
}

// FilterID names a kernel family without importing the format package
// (which would create an import cycle); callers convert their own filter
// enum to a FilterID and pass the two optional parameters through.
type FilterID int

const (
	FilterPoint FilterID = iota
	FilterBilinear
	FilterBicubic
	FilterSpline16
	FilterSpline36
	FilterLanczos
)

// Select returns the Kernel for the given filter identity and parameters.
// NaN parameters fall back to each kernel's defaults.
func Select(id FilterID, paramA, paramB float64) Kernel {
	switch id {
	case FilterPoint:
		return Point
	case FilterBilinear:
		return Bilinear
	case FilterBicubic:
		return Bicubic(paramA, paramB)
	case FilterSpline16:
		return Spline16
	case FilterSpline36:
		return Spline36
	case FilterLanczos:
		n := paramA
		if math.IsNaN(n) || n <= 0 {
			n = 3
		}
		return Lanczos(n)
	default:
		return Bicubic(math.NaN(), math.NaN())
	}
}
