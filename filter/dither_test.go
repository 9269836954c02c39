package filter

import (
	"testing"

	"github.com/sekrit-twc/zimg/pixel"
)

func TestBayerTableIsZeroMean(t *testing.T) {
	var sum float32
	for i := 0; i < bayerTableLen; i++ {
		for j := 0; j < bayerTableLen; j++ {
			v := bayerDither(i, j)
			if v < -0.5 || v > 0.5 {
				t.Fatalf("bayer(%d,%d) = %v outside [-0.5, 0.5]", i, j, v)
			}
			sum += v
		}
	}
	mean := sum / (bayerTableLen * bayerTableLen)
	if mean < -0.01 || mean > 0.01 {
		t.Errorf("bayer matrix mean %v, want ~0", mean)
	}
}

func TestDitherNoneRoundsToNearest(t *testing.T) {
	in := pixel.Attributes{Width: 3, Height: 1, PixelType: pixel.F32}
	out := pixel.Attributes{Width: 3, Height: 1, PixelType: pixel.U8}
	src := f32Row(3)
	s := bytesToFloat32(src)
	s[0], s[1], s[2] = 0, 100.4/255, 1
	dst := make([]byte, 3)

	d := NewDither(in, out, 8, true, false, DitherNone)
	d.Process(nil, nil, [][]byte{src}, [][]byte{dst}, 0, 0, 3)
	if dst[0] != 0 || dst[1] != 100 || dst[2] != 255 {
		t.Errorf("got %v, want [0 100 255]", dst)
	}
}

func TestDitherClampsOutOfRange(t *testing.T) {
	in := pixel.Attributes{Width: 2, Height: 1, PixelType: pixel.F32}
	out := pixel.Attributes{Width: 2, Height: 1, PixelType: pixel.U8}
	src := f32Row(2)
	s := bytesToFloat32(src)
	s[0], s[1] = -0.5, 1.5
	dst := make([]byte, 2)

	d := NewDither(in, out, 8, true, false, DitherNone)
	d.Process(nil, nil, [][]byte{src}, [][]byte{dst}, 0, 0, 2)
	if dst[0] != 0 || dst[1] != 255 {
		t.Errorf("got %v, want [0 255]", dst)
	}
}

func TestErrorDiffusionPreservesAverage(t *testing.T) {
	// Quantizing a uniform 0.5 image to 1 bit must keep the total pixel
	// sum near half the frame: the only loss is the error carried out at
	// the row boundaries.
	const width, height = 64, 64
	in := pixel.Attributes{Width: width, Height: height, PixelType: pixel.F32}
	out := pixel.Attributes{Width: width, Height: height, PixelType: pixel.U8}

	d := NewDither(in, out, 1, true, false, DitherErrorDiffusion)
	ctx := make([]byte, d.ContextSize())
	d.InitContext(ctx)

	src := f32Row(width)
	for i, s := 0, bytesToFloat32(src); i < width; i++ {
		s[i] = 0.5
	}

	ones := 0
	dst := make([]byte, width)
	for i := 0; i < height; i++ {
		d.Process(ctx, nil, [][]byte{src}, [][]byte{dst}, i, 0, width)
		for _, v := range dst {
			if v == 1 {
				ones++
			} else if v != 0 {
				t.Fatalf("1-bit dither produced value %d", v)
			}
		}
	}

	want := width * height / 2
	if diff := ones - want; diff < -height || diff > height {
		t.Errorf("got %d ones, want %d +/- %d", ones, want, height)
	}
}

func TestErrorDiffusionIsStateful(t *testing.T) {
	d := NewDither(pixel.Attributes{Width: 8, Height: 8, PixelType: pixel.F32},
		pixel.Attributes{Width: 8, Height: 8, PixelType: pixel.U8},
		8, true, false, DitherErrorDiffusion)
	fl := d.Flags()
	if !fl.Stateful || !fl.EntireRow {
		t.Errorf("error diffusion must be stateful and entire-row, got %+v", fl)
	}
	if d.ContextSize() == 0 {
		t.Errorf("error diffusion needs persistent context")
	}
}
