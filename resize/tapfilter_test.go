package resize

import "testing"

func TestBuildRowSumsToOne(t *testing.T) {
	// Each row of the float tap matrix must sum to 1.0.
	k := Lanczos(3)
	fc := Build(k, 1920, 1280, 0, 0)
	for i := 0; i < 1280; i++ {
		sum := float32(0)
		for _, v := range fc.At(i) {
			sum += v
		}
		if sum < 0.999 || sum > 1.001 {
			t.Fatalf("row %d sums to %v, want ~1.0", i, sum)
		}
	}
}

func TestBuildRowSumWithinOneULP(t *testing.T) {
	// The float32 layout is quantized with a carried rounding error, so
	// each row's taps, accumulated exactly, land within ~1 ULP of 1.0
	// rather than drifting by a ULP per tap.
	k := Lanczos(4)
	fc := Build(k, 4096, 1000, 0, 0)
	for i := 0; i < 1000; i++ {
		sum := 0.0
		for _, v := range fc.At(i) {
			sum += float64(v)
		}
		if diff := sum - 1.0; diff < -2.4e-7 || diff > 2.4e-7 {
			t.Fatalf("row %d sums to %.9f, want 1.0 within 2 ULP", i, sum)
		}
	}
}

func TestBuildRow14SumsTo16384(t *testing.T) {
	k := Bicubic(1.0/3, 1.0/3)
	fc := Build(k, 1920, 1280, 0, 0)
	for i := 0; i < 1280; i++ {
		var sum int32
		for _, v := range fc.At14(i) {
			sum += int32(v)
		}
		if sum != 1<<14 {
			t.Fatalf("fixed-point row %d sums to %d, want %d", i, sum, 1<<14)
		}
	}
}

func TestBuildLeftStaysInBounds(t *testing.T) {
	k := Spline36
	const srcDim = 64
	fc := Build(k, srcDim, 200, 0, 0)
	for i, left := range fc.Left {
		if int(left) < 0 || int(left)+fc.FilterWidth > srcDim {
			t.Fatalf("row %d left=%d filterWidth=%d out of [0,%d) bounds", i, left, fc.FilterWidth, srcDim)
		}
	}
}

func TestRoundHalfUpCarryInvariant(t *testing.T) {
	for _, x := range []float64{0.5, 1.5, 2.5, -0.5, -1.5, 3.25, -3.25} {
		got := roundHalfUp(x - 1)
		want := roundHalfUp(x) - 1
		if got != want {
			t.Fatalf("roundHalfUp(%v-1)=%d, want roundHalfUp(%v)-1=%d", x, got, x, want)
		}
	}
}

func TestBuildUpscaleSupportMatchesKernel(t *testing.T) {
	k := Bilinear
	fc := Build(k, 100, 400, 0, 0)
	if fc.FilterWidth > 4 {
		t.Fatalf("bilinear upscale should need a small filter width, got %d", fc.FilterWidth)
	}
}

func TestBuildDownscaleWidensSupport(t *testing.T) {
	up := Build(Bilinear, 100, 400, 0, 0)
	down := Build(Bilinear, 400, 100, 0, 0)
	if down.FilterWidth <= up.FilterWidth {
		t.Fatalf("downscale filter width %d should exceed upscale filter width %d", down.FilterWidth, up.FilterWidth)
	}
}
