package filter

import (
	"math/rand"
	"testing"

	"github.com/sekrit-twc/zimg/pixel"
)

func TestCL2020EncodeDecodeRoundTrip(t *testing.T) {
	// Random linear RGB in [0,1]^3 encoded to constant-luminance Y'CbCr
	// and decoded back must deviate by less than 1e-4 per channel.
	const width = 256
	attr := pixel.Attributes{Width: width, Height: 1, PixelType: pixel.F32}
	rng := rand.New(rand.NewSource(42))

	r, g, b := f32Row(width), f32Row(width), f32Row(width)
	rf, gf, bf := bytesToFloat32(r), bytesToFloat32(g), bytesToFloat32(b)
	for i := 0; i < width; i++ {
		rf[i] = rng.Float32()
		gf[i] = rng.Float32()
		bf[i] = rng.Float32()
	}

	y, u, v := f32Row(width), f32Row(width), f32Row(width)
	NewCL2020Encode(attr).Process(nil, nil, [][]byte{r, g, b}, [][]byte{y, u, v}, 0, 0, width)

	r2, g2, b2 := f32Row(width), f32Row(width), f32Row(width)
	NewCL2020Decode(attr).Process(nil, nil, [][]byte{y, u, v}, [][]byte{r2, g2, b2}, 0, 0, width)

	rf2, gf2, bf2 := bytesToFloat32(r2), bytesToFloat32(g2), bytesToFloat32(b2)
	for i := 0; i < width; i++ {
		for _, pair := range [][2]float32{{rf[i], rf2[i]}, {gf[i], gf2[i]}, {bf[i], bf2[i]}} {
			diff := pair[0] - pair[1]
			if diff < -1e-4 || diff > 1e-4 {
				t.Fatalf("sample %d: %v round-tripped to %v", i, pair[0], pair[1])
			}
		}
	}
}

func TestCL2020EncodeGreyHasNoChroma(t *testing.T) {
	// Equal R=G=B implies B'-Y' and R'-Y' are zero, so both chroma
	// planes must come out (numerically) neutral.
	const width = 8
	attr := pixel.Attributes{Width: width, Height: 1, PixelType: pixel.F32}

	r, g, b := f32Row(width), f32Row(width), f32Row(width)
	for i, v := range []float32{0, 0.1, 0.25, 0.5, 0.6, 0.75, 0.9, 1} {
		bytesToFloat32(r)[i] = v
		bytesToFloat32(g)[i] = v
		bytesToFloat32(b)[i] = v
	}

	y, u, v := f32Row(width), f32Row(width), f32Row(width)
	NewCL2020Encode(attr).Process(nil, nil, [][]byte{r, g, b}, [][]byte{y, u, v}, 0, 0, width)

	for i := 0; i < width; i++ {
		if c := bytesToFloat32(u)[i]; c < -1e-6 || c > 1e-6 {
			t.Errorf("sample %d: Cb = %v, want 0", i, c)
		}
		if c := bytesToFloat32(v)[i]; c < -1e-6 || c > 1e-6 {
			t.Errorf("sample %d: Cr = %v, want 0", i, c)
		}
	}
}

func TestChromaUpsample2xConstantPlane(t *testing.T) {
	in := pixel.Attributes{Width: 4, Height: 4, PixelType: pixel.F32}
	up := NewChromaUpsample2x(in)
	if got := up.OutputFormat(); got.Width != 8 || got.Height != 8 {
		t.Fatalf("output should be 8x8, got %dx%d", got.Width, got.Height)
	}

	src := make([][]byte, 4)
	for i := range src {
		src[i] = f32Row(4)
		row := bytesToFloat32(src[i])
		for j := range row {
			row[j] = 0.25
		}
	}

	for y := 0; y < 8; y++ {
		rr := up.RequiredRowRange(y)
		if rr.First < 0 || rr.Second > 4 {
			t.Fatalf("row %d requires out-of-range input rows [%d,%d)", y, rr.First, rr.Second)
		}
		dst := f32Row(8)
		up.Process(nil, nil, src[rr.First:rr.Second], [][]byte{dst}, y, 0, 8)
		for x, v := range bytesToFloat32(dst) {
			if v < 0.25-1e-6 || v > 0.25+1e-6 {
				t.Fatalf("(%d,%d) = %v, want 0.25 (kernel must sum to 16/16)", x, y, v)
			}
		}
	}
}
