package colorspace

import (
	"math"
	"sync"
)

// Exact transfer-curve constants from the governing documents (BT.709,
// IEC 61966-2-1, ST.2084, ARIB STD-B67).
const (
	bt709Beta  = 0.0180539685108
	bt709Alpha = 1.09929682680944

	srgbBeta  = 0.0031308
	srgbAlpha = 1.055

	pq_m1 = 0.1593017578125
	pq_m2 = 78.84375
	pq_c1 = 0.8359375
	pq_c2 = 18.8515625
	pq_c3 = 18.6875

	hlgA = 0.17883277
	hlgB = 0.28466892
	hlgC = 0.55991073
)

func powf32(x, y float32) float32 { return float32(math.Pow(float64(x), float64(y))) }

// BT709OETF implements the BT.709 forward OETF (scene linear ->
// non-linear).
func BT709OETF(x float32) float32 {
	if x < bt709Beta {
		return 4.5 * x
	}
	return bt709Alpha*powf32(x, 0.45) - (bt709Alpha - 1)
}

// BT709InverseOETF implements the BT.709 inverse OETF.
func BT709InverseOETF(x float32) float32 {
	if x < 4.5*bt709Beta {
		return x / 4.5
	}
	return powf32((x+bt709Alpha-1)/bt709Alpha, 1/0.45)
}

// BT1886EOTF implements the BT.1886 power-law EOTF.
func BT1886EOTF(x float32) float32 {
	if x < 0 {
		return 0
	}
	return powf32(x, 2.4)
}

// BT1886InverseEOTF is the matching inverse (linear -> gamma) for BT.1886.
func BT1886InverseEOTF(x float32) float32 {
	if x < 0 {
		return 0
	}
	return powf32(x, 1.0/2.4)
}

// SRGBEOTF implements the IEC 61966-2-1 sRGB EOTF.
func SRGBEOTF(x float32) float32 {
	if x < 12.92*srgbBeta {
		return x / 12.92
	}
	return powf32((x+srgbAlpha-1)/srgbAlpha, 2.4)
}

// SRGBInverseEOTF implements the sRGB inverse EOTF (linear -> gamma).
func SRGBInverseEOTF(x float32) float32 {
	if x < srgbBeta {
		return x * 12.92
	}
	return srgbAlpha*powf32(x, 1.0/2.4) - (srgbAlpha - 1)
}

// ST2084EOTF implements the ST.2084 (PQ) EOTF. The input is a normalized
// [0,1] PQ code value; the output is linear light scaled by
// 10000/peakLuminance so that peak white maps to 1.0.
func ST2084EOTF(x float32, peakLuminance float64) float32 {
	if x <= 0 {
		return 0
	}
	xp := math.Pow(float64(x), 1/pq_m2)
	num := math.Max(xp-pq_c1, 0)
	den := math.Max(pq_c2-pq_c3*xp, math.SmallestNonzeroFloat64)
	linear := math.Pow(num/den, 1/pq_m1)
	return float32(linear * (10000.0 / peakLuminance))
}

// ST2084InverseEOTF implements the inverse of ST2084EOTF (linear -> PQ).
func ST2084InverseEOTF(x float32, peakLuminance float64) float32 {
	y := math.Max(float64(x)*(peakLuminance/10000.0), 0)
	yp := math.Pow(y, pq_m1)
	num := pq_c1 + pq_c2*yp
	den := 1 + pq_c3*yp
	return float32(math.Pow(num/den, pq_m2))
}

// AribB67OETF implements the ARIB B67 (HLG) OETF, operating
// on a scene-linear input already normalized by the fixed 1/12 scaling.
func AribB67OETF(x float32) float32 {
	if x <= 1.0/12.0 {
		return float32(math.Sqrt(3 * float64(x)))
	}
	return hlgA*float32(math.Log(12*float64(x)-hlgB)) + hlgC
}

// AribB67InverseOETF implements the inverse of AribB67OETF.
func AribB67InverseOETF(x float32) float32 {
	if x <= 0.5 {
		return (x * x) / 3
	}
	return float32((math.Exp((float64(x)-hlgC)/hlgA) + hlgB) / 12)
}

// AribB67OOTF applies the 1.2-power opto-optical transfer function used to
// convert scene-linear HLG signals to display-referred linear light.
func AribB67OOTF(x float32) float32 {
	if x < 0 {
		return 0
	}
	return powf32(x, 1.2)
}

// AribB67InverseOOTF is the inverse of AribB67OOTF.
func AribB67InverseOOTF(x float32) float32 {
	if x < 0 {
		return 0
	}
	return powf32(x, 1/1.2)
}

// Curve identifies one of the five transfer-curve families implementing
// EOTF/OETF pairs.
type Curve int

const (
	CurveBT709 Curve = iota
	CurveSRGB
	CurveST2084
	CurveARIBB67
	CurveBT1886
)

// TransferFunc returns the function mapping from the domain named by
// "toLinear" (true: non-linear -> linear; false: linear -> non-linear) for
// the given curve. peakLuminance only matters for CurveST2084.
func TransferFunc(c Curve, toLinear bool, peakLuminance float64) func(float32) float32 {
	switch c {
	case CurveBT709:
		if toLinear {
			return BT709InverseOETF
		}
		return BT709OETF
	case CurveSRGB:
		if toLinear {
			return SRGBEOTF
		}
		return SRGBInverseEOTF
	case CurveST2084:
		if toLinear {
			return func(x float32) float32 { return ST2084EOTF(x, peakLuminance) }
		}
		return func(x float32) float32 { return ST2084InverseEOTF(x, peakLuminance) }
	case CurveARIBB67:
		if toLinear {
			return func(x float32) float32 { return AribB67OOTF(AribB67InverseOETF(x)) }
		}
		return func(x float32) float32 { return AribB67OETF(AribB67InverseOOTF(x)) }
	case CurveBT1886:
		if toLinear {
			return BT1886EOTF
		}
		return BT1886InverseEOTF
	default:
		return func(x float32) float32 { return x }
	}
}

// approxTableBits sizes the fast-approximate lookup table at 2^15 entries.
const approxTableBits = 15
const approxTableSize = 1 << approxTableBits

type approxTable struct {
	once sync.Once
	tab  [approxTableSize + 1]float32
}

var approxTables sync.Map // map[approxTableKey]*approxTable

type approxTableKey struct {
	c        Curve
	toLinear bool
	peak     float64
}

// ApproxTransferFunc returns a fast approximate evaluator for the given
// curve backed by a lazily-built 2^15-entry lookup table indexed by scaled
// input. Inputs are clamped to [0,1] before indexing.
func ApproxTransferFunc(c Curve, toLinear bool, peakLuminance float64) func(float32) float32 {
	key := approxTableKey{c, toLinear, peakLuminance}
	v, _ := approxTables.LoadOrStore(key, &approxTable{})
	at := v.(*approxTable)
	at.once.Do(func() {
		f := TransferFunc(c, toLinear, peakLuminance)
		for i := 0; i <= approxTableSize; i++ {
			at.tab[i] = f(float32(i) / float32(approxTableSize))
		}
	})
	return func(x float32) float32 {
		if x < 0 {
			x = 0
		} else if x > 1 {
			x = 1
		}
		idx := int(x*float32(approxTableSize) + 0.5)
		return at.tab[idx]
	}
}
