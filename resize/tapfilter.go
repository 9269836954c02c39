package resize

import "math"

// FilterContext holds the sparse per-output-row tap matrix: for each
// destination sample, a starting source column (Left) and a contiguous run
// of FilterWidth coefficients. Rows are padded to a common width so the
// coefficient matrix can be addressed as row*Stride+col, matching the
// conventions of a polyphase resampler's immutable filter bank.
type FilterContext struct {
	FilterWidth int
	Stride      int
	Left        []int32
	Data        []float32 // len == len(Left)*Stride
	// Data14 is the 1.14 fixed-point quantization of Data: each value
	// represents x/16384.
	Data14 []int16
}

// At returns the coefficient row for destination sample i as a slice view
// into Data.
func (fc *FilterContext) At(i int) []float32 {
	return fc.Data[i*fc.Stride : i*fc.Stride+fc.FilterWidth]
}

// At14 is the fixed-point equivalent of At.
func (fc *FilterContext) At14(i int) []int16 {
	return fc.Data14[i*fc.Stride : i*fc.Stride+fc.FilterWidth]
}

// Buildable reports whether a tap table can be synthesized for the given
// geometry: the shift must land inside the source, the subwindow must not
// run past twice the source extent, and the (downscale-widened) kernel
// support must fit inside both the source and the subwindow. Callers map
// a false result to RESAMPLING_NOT_AVAILABLE.
func Buildable(k Kernel, srcDim, dstDim int, shift, activeDim float64) bool {
	if srcDim <= 0 || dstDim <= 0 {
		return false
	}
	if activeDim <= 0 {
		activeDim = float64(srcDim)
	}
	scale := float64(dstDim) / activeDim
	step := math.Min(scale, 1)
	support := k.Support / step
	if math.Abs(shift) >= float64(srcDim) {
		return false
	}
	if shift+activeDim >= 2*float64(srcDim) {
		return false
	}
	if float64(srcDim) <= support || activeDim <= support {
		return false
	}
	return true
}

// clampInt clamps x into [lo, hi].
func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Build synthesizes a FilterContext mapping srcDim source samples to
// dstDim destination samples using kernel k, honoring an active subwindow
// [shift, shift+activeDim) measured in source-sample units (the "active
// subwindow" and "shift" parameters). Tap positions falling outside the
// image are mirrored back into [0, srcDim) and their weight accumulated
// onto the mirrored sample, so border rows redistribute energy instead of
// fabricating it.
func Build(k Kernel, srcDim, dstDim int, shift, activeDim float64) *FilterContext {
	if activeDim <= 0 {
		activeDim = float64(srcDim)
	}
	scale := float64(dstDim) / activeDim
	step := math.Min(scale, 1)
	support := k.Support / step
	tapCount := int(math.Max(2*math.Ceil(support), 1))

	// First pass: accumulate mirrored taps into per-row bins and record
	// each row's occupied window; the sparse layout's common width is the
	// widest window seen.
	bins := make([]float64, srcDim)
	type window struct{ lo, hi int }
	windows := make([]window, dstDim)
	rows := make([][]float64, dstDim)
	filterWidth := 1

	for i := 0; i < dstDim; i++ {
		center := (float64(i)+0.5)/scale + shift
		begin := float64(roundHalfUp(center-float64(tapCount)/2)) + 0.5

		lo, hi := srcDim, 0
		for j := 0; j < tapCount; j++ {
			x := begin + float64(j)
			w := k.At((x - center) * step)
			if w == 0 {
				continue
			}
			// Mirror out-of-range positions back into the image:
			// x < 0 reflects at the left edge, x >= srcDim at the right.
			if x < 0 {
				x = -x
			}
			if x >= float64(srcDim) {
				x = math.Min(2*float64(srcDim)-x, float64(srcDim)-0.5)
			}
			idx := clampInt(int(x), 0, srcDim-1)
			bins[idx] += w
			if idx < lo {
				lo = idx
			}
			if idx+1 > hi {
				hi = idx + 1
			}
		}
		if lo >= hi {
			// Degenerate row (all taps zero); fall back to the nearest
			// source sample with unit weight.
			lo = clampInt(int(center), 0, srcDim-1)
			hi = lo + 1
			bins[lo] = 1
		}

		row := make([]float64, hi-lo)
		sum := 0.0
		for j := lo; j < hi; j++ {
			row[j-lo] = bins[j]
			sum += bins[j]
			bins[j] = 0
		}
		if sum != 0 {
			inv := 1 / sum
			for j := range row {
				row[j] *= inv
			}
		}
		rows[i] = row
		windows[i] = window{lo, hi}
		if len(row) > filterWidth {
			filterWidth = len(row)
		}
	}

	// Round the stride up to a multiple of 8 so SIMD-width dot products
	// never read past the end of a row (internal/cpu picks the lane
	// width; the tap matrix itself stays lane-agnostic).
	stride := (filterWidth + 7) &^ 7

	fc := &FilterContext{
		FilterWidth: filterWidth,
		Stride:      stride,
		Left:        make([]int32, dstDim),
		Data:        make([]float32, dstDim*stride),
		Data14:      make([]int16, dstDim*stride),
	}

	for i := 0; i < dstDim; i++ {
		left := clampInt(windows[i].lo, 0, srcDim-filterWidth)
		fc.Left[i] = int32(left)

		// Re-seat the row at the (possibly clamped) left offset; the
		// padding taps stay zero.
		row := make([]float64, filterWidth)
		copy(row[windows[i].lo-left:], rows[i])
		quantizeRowF32(row, fc.At(i))
		quantizeRow(row, fc.At14(i))
	}
	return fc
}

// quantizeRowF32 narrows a float64 tap row to float32 with the same
// carried-error dithering as the fixed-point path: the rounding error of
// each stored tap is folded into the next one, so the accumulated row sum
// stays within 1 ULP of the exact float64 sum instead of drifting by up
// to one ULP per tap.
func quantizeRowF32(row []float64, out []float32) {
	var carry float64
	for i, v := range row {
		q := float32(v + carry)
		carry = v + carry - float64(q)
		out[i] = q
	}
}

// roundHalfUp implements the carried-rounding convention used by the
// fixed-point quantizer: round(x) ties away from zero on the positive
// side, and round(x-1) == round(x)-1 holds for all x (so accumulated
// negative residue is distributed the same way as positive residue).
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// quantizeRow converts a normalized float tap row into 1.14 fixed point
// (scale 16384), carrying the per-sample rounding error into the next tap
// so the row's fixed-point sum matches 16384 exactly whenever the float
// row sums to 1.0.
func quantizeRow(row []float64, out []int16) {
	const scale = 1 << 14
	var carry float64
	var total int32
	for i, v := range row {
		scaled := v*scale + carry
		q := roundHalfUp(scaled)
		carry = scaled - float64(q)
		out[i] = int16(q)
		total += int32(q)
	}
	// Force the exact target sum onto the tap with the largest magnitude,
	// so that a unity-sum float row always produces a unity-sum (16384)
	// fixed-point row regardless of where rounding error accumulated.
	if len(out) > 0 && total != scale {
		diff := int32(scale) - total
		best := 0
		for i := 1; i < len(out); i++ {
			if abs16(out[i]) > abs16(out[best]) {
				best = i
			}
		}
		out[best] += int16(diff)
	}
}

func abs16(x int16) int16 {
	if x < 0 {
		return -x
	}
	return x
}
