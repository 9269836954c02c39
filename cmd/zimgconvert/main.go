// Command zimgconvert converts raw planar images between pixel formats,
// colorspaces, and resolutions from the command line.
//
// Usage:
//
//	zimgconvert [options] <input.raw> <output.raw>
//
// The input is a headerless planar dump: each present plane stored
// row-major with no padding, in Y, U, V, A order. The output uses the
// same layout at the target geometry.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/sekrit-twc/zimg/builder"
	"github.com/sekrit-twc/zimg/colorspace"
	"github.com/sekrit-twc/zimg/format"
	"github.com/sekrit-twc/zimg/graph"
	"github.com/sekrit-twc/zimg/pixel"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "zimgconvert: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("zimgconvert", flag.ExitOnError)
	var (
		inW   = fs.Int("in-width", 0, "source width")
		inH   = fs.Int("in-height", 0, "source height")
		outW  = fs.Int("out-width", 0, "target width (default: source width)")
		outH  = fs.Int("out-height", 0, "target height (default: source height)")
		inFmt = fs.String("in-format", "u8", "source pixel type: u8, u16, f16, f32")
		outF  = fs.String("out-format", "", "target pixel type (default: source type)")
		inSub = fs.String("in-subsample", "444", "source subsampling: 444, 422, 420, 411, 410")
		outS  = fs.String("out-subsample", "", "target subsampling (default: source)")
		fam   = fs.String("family", "grey", "color family: grey, rgb, yuv")
		filt  = fs.String("filter", "bicubic", "resample filter: point, bilinear, bicubic, spline16, spline36, lanczos")
		dith  = fs.String("dither", "none", "dither: none, ordered, random, error_diffusion")
		verb  = fs.Bool("v", false, "verbose graph construction logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("expected <input.raw> <output.raw>")
	}
	if *inW <= 0 || *inH <= 0 {
		return fmt.Errorf("-in-width and -in-height are required")
	}
	if *outW == 0 {
		*outW = *inW
	}
	if *outH == 0 {
		*outH = *inH
	}
	if *outF == "" {
		*outF = *inFmt
	}
	if *outS == "" {
		*outS = *inSub
	}

	srcType, err := parsePixelType(*inFmt)
	if err != nil {
		return err
	}
	dstType, err := parsePixelType(*outF)
	if err != nil {
		return err
	}
	ssw, ssh, err := parseSubsample(*inSub)
	if err != nil {
		return err
	}
	sdw, sdh, err := parseSubsample(*outS)
	if err != nil {
		return err
	}
	family, err := parseFamily(*fam)
	if err != nil {
		return err
	}

	src := format.NewImageFormat(*inW, *inH, srcType)
	src.ColorFamily = family
	src.SubsampleW, src.SubsampleH = ssw, ssh
	dst := format.NewImageFormat(*outW, *outH, dstType)
	dst.ColorFamily = family
	dst.SubsampleW, dst.SubsampleH = sdw, sdh

	params := format.NewGraphBuilderParams()
	if err := setFilter(&params, *filt); err != nil {
		return err
	}
	if err := setDither(&params, *dith); err != nil {
		return err
	}

	log := zap.NewNop()
	if *verb {
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}

	g, err := builder.New(log).
		Source(src).
		Target(dst).
		Params(params).
		Colorspace(colorspace.NewGraph(log)).
		Build()
	if err != nil {
		return err
	}

	srcBuf, err := readPlanar(fs.Arg(0), src)
	if err != nil {
		return err
	}
	dstBuf := allocPlanar(dst)

	es, err := graph.NewExecutionState(g, srcBuf, dstBuf, nil, nil, make([]byte, g.TmpSize()))
	if err != nil {
		return err
	}
	if err := es.Run(); err != nil {
		return err
	}
	es.Release()

	return writePlanar(fs.Arg(1), dst, dstBuf)
}

func parsePixelType(s string) (pixel.Type, error) {
	switch s {
	case "u8":
		return pixel.U8, nil
	case "u16":
		return pixel.U16, nil
	case "f16":
		return pixel.F16, nil
	case "f32":
		return pixel.F32, nil
	}
	return 0, fmt.Errorf("unknown pixel type %q", s)
}

func parseSubsample(s string) (int, int, error) {
	switch s {
	case "444":
		return 0, 0, nil
	case "422":
		return 1, 0, nil
	case "420":
		return 1, 1, nil
	case "411":
		return 2, 0, nil
	case "410":
		return 2, 1, nil
	}
	return 0, 0, fmt.Errorf("unknown subsampling %q", s)
}

func parseFamily(s string) (pixel.ColorFamily, error) {
	switch s {
	case "grey", "gray":
		return pixel.FamilyGrey, nil
	case "rgb":
		return pixel.FamilyRGB, nil
	case "yuv":
		return pixel.FamilyYUV, nil
	}
	return 0, fmt.Errorf("unknown color family %q", s)
}

func setFilter(p *format.GraphBuilderParams, s string) error {
	table := map[string]format.ResampleFilter{
		"point":    format.FilterPoint,
		"bilinear": format.FilterBilinear,
		"bicubic":  format.FilterBicubic,
		"spline16": format.FilterSpline16,
		"spline36": format.FilterSpline36,
		"lanczos":  format.FilterLanczos,
	}
	f, ok := table[s]
	if !ok {
		return fmt.Errorf("unknown resample filter %q", s)
	}
	p.ResampleFilter = f
	return nil
}

func setDither(p *format.GraphBuilderParams, s string) error {
	table := map[string]format.DitherType{
		"none":            format.DitherNone,
		"ordered":         format.DitherOrdered,
		"random":          format.DitherRandom,
		"error_diffusion": format.DitherErrorDiffusion,
	}
	d, ok := table[s]
	if !ok {
		return fmt.Errorf("unknown dither type %q", s)
	}
	p.DitherType = d
	return nil
}

// planeDims returns the per-plane geometry for a format, in plane order.
func planeDims(f format.ImageFormat) [4][2]int {
	var dims [4][2]int
	dims[pixel.PlaneY] = [2]int{f.Width, f.Height}
	dims[pixel.PlaneA] = dims[pixel.PlaneY]
	dims[pixel.PlaneU] = [2]int{f.Width >> uint(f.SubsampleW), f.Height >> uint(f.SubsampleH)}
	dims[pixel.PlaneV] = dims[pixel.PlaneU]
	return dims
}

func readPlanar(path string, f format.ImageFormat) ([4]graph.Buffer, error) {
	var bufs [4]graph.Buffer
	in, err := os.Open(path)
	if err != nil {
		return bufs, err
	}
	defer in.Close()

	mask := f.PlaneMask()
	dims := planeDims(f)
	bw := f.PixelType.ByteWidth()
	for p := 0; p < 4; p++ {
		if !mask[p] {
			continue
		}
		stride := dims[p][0] * bw
		data := make([]byte, stride*dims[p][1])
		if _, err := io.ReadFull(in, data); err != nil {
			return bufs, fmt.Errorf("reading plane %d: %w", p, err)
		}
		bufs[p] = graph.NewBuffer(data, stride, graph.BufferMax)
	}
	return bufs, nil
}

func allocPlanar(f format.ImageFormat) [4]graph.Buffer {
	var bufs [4]graph.Buffer
	mask := f.PlaneMask()
	dims := planeDims(f)
	bw := f.PixelType.ByteWidth()
	for p := 0; p < 4; p++ {
		if !mask[p] {
			continue
		}
		stride := dims[p][0] * bw
		bufs[p] = graph.NewBuffer(make([]byte, stride*dims[p][1]), stride, graph.BufferMax)
	}
	return bufs
}

func writePlanar(path string, f format.ImageFormat, bufs [4]graph.Buffer) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	mask := f.PlaneMask()
	dims := planeDims(f)
	for p := 0; p < 4; p++ {
		if !mask[p] {
			continue
		}
		for i := 0; i < dims[p][1]; i++ {
			if _, err := out.Write(bufs[p].Row(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
