// Package builder translates a (source format, target format, params)
// triple into a concrete filter graph: it decides which unpack, chroma
// resample, colorspace, resize, and pack stages are needed, in which
// order, and appends them to a graph.FilterGraph ready for execution.
package builder

import (
	"go.uber.org/zap"

	"github.com/sekrit-twc/zimg/colorspace"
	"github.com/sekrit-twc/zimg/filter"
	"github.com/sekrit-twc/zimg/format"
	"github.com/sekrit-twc/zimg/graph"
	"github.com/sekrit-twc/zimg/internal/cpu"
	"github.com/sekrit-twc/zimg/pixel"
	"github.com/sekrit-twc/zimg/resize"
	"github.com/sekrit-twc/zimg/zimgerr"
)

// GraphBuilder accumulates the source format, target format, and builder
// params, then Build() produces the completed filter graph. The zero
// builder is not usable; construct with New.
type GraphBuilder struct {
	src, dst format.ImageFormat
	params   format.GraphBuilderParams
	cs       *colorspace.Graph
	log      *zap.Logger
}

// New returns a GraphBuilder with default params. log may be nil.
func New(log *zap.Logger) *GraphBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &GraphBuilder{params: format.NewGraphBuilderParams(), log: log}
}

// Source sets the source image format.
func (b *GraphBuilder) Source(f format.ImageFormat) *GraphBuilder { b.src = f; return b }

// Target sets the target image format.
func (b *GraphBuilder) Target(f format.ImageFormat) *GraphBuilder { b.dst = f; return b }

// Params sets the graph builder parameters.
func (b *GraphBuilder) Params(p format.GraphBuilderParams) *GraphBuilder { b.params = p; return b }

// Colorspace injects the shared colorspace vertex/edge table. Required
// whenever source and target colorspace triples differ; the table is
// immutable and may be shared by any number of builders.
func (b *GraphBuilder) Colorspace(cs *colorspace.Graph) *GraphBuilder { b.cs = cs; return b }

func (b *GraphBuilder) cpuLevel() cpu.Level {
	switch b.params.CPUType {
	case format.CPUScalar:
		return cpu.LevelScalar
	case format.CPUSSE2:
		return cpu.Detect(cpu.LevelSSE2)
	case format.CPUAVX2:
		return cpu.Detect(cpu.LevelAVX2)
	case format.CPUAVX512:
		return cpu.Detect(cpu.LevelAVX512)
	case format.CPUNEON:
		return cpu.Detect(cpu.LevelNEON)
	default:
		return cpu.Detect(cpu.LevelScalar)
	}
}

func kernelFor(f format.ResampleFilter, a, c float64) resize.Kernel {
	return resize.Select(resize.FilterID(f), a, c)
}

func ditherKind(t format.DitherType) filter.DitherKind {
	return filter.DitherKind(t)
}

// curveFor maps an H.273 transfer characteristic onto one of the five
// implemented curve families. Characteristics without a dedicated curve
// fall back to the BT.1886 power law.
func curveFor(t colorspace.Transfer) colorspace.Curve {
	switch t {
	case colorspace.TransferBT709, colorspace.TransferSMPTE170M,
		colorspace.TransferBT2020_10, colorspace.TransferBT2020_12,
		colorspace.TransferBT1361:
		return colorspace.CurveBT709
	case colorspace.TransferSRGB, colorspace.TransferIEC61966:
		return colorspace.CurveSRGB
	case colorspace.TransferST2084:
		return colorspace.CurveST2084
	case colorspace.TransferARIB_B67:
		return colorspace.CurveARIBB67
	default:
		return colorspace.CurveBT1886
	}
}

func isLeftSited(loc format.ChromaLocation) bool {
	return loc == format.ChromaLeft || loc == format.ChromaTopLeft || loc == format.ChromaBottomLeft
}

func isTopSited(loc format.ChromaLocation) bool {
	return loc == format.ChromaTop || loc == format.ChromaTopLeft
}

func isBottomSited(loc format.ChromaLocation) bool {
	return loc == format.ChromaBottom || loc == format.ChromaBottomLeft
}

// sitingOffset returns the chroma sample center's offset from the
// centered position, in units of one chroma sample at subsampling factor
// 2^s. Sited chroma sits half a luma sample toward its named edge, which
// shrinks to -0.5*(1 - 2^-s) chroma samples; centered chroma has no
// offset. The same per-axis formula is applied to horizontal-only and
// vertical-only subsamplings (the extension beyond 4:2:0 is
// implementation-defined).
func sitingOffset(sited bool, negative bool, s int) float64 {
	if !sited || s == 0 {
		return 0
	}
	off := 0.5 * (1 - 1/float64(int(1)<<uint(s)))
	if negative {
		return -off
	}
	return off
}

// chromaShift computes the resampler shift, in source chroma samples, for
// converting a chroma grid at subsampling 2^ss with siting offset srcOff
// to one at 2^sd with siting offset dstOff, while the luma grid itself is
// rescaled by ratio = activeLumaDim / dstLumaDim and cropped at
// activeLeft (luma units).
func chromaShift(srcOff, dstOff float64, ss, sd int, ratio, activeLeft float64) float64 {
	ssF := float64(int(1) << uint(ss))
	sdF := float64(int(1) << uint(sd))
	return dstOff*sdF*ratio/ssF + activeLeft/ssF - srcOff
}

// Build validates the formats and params, then assembles and completes
// the filter graph.
func (b *GraphBuilder) Build() (*graph.FilterGraph, error) {
	if err := b.src.Validate(); err != nil {
		return nil, err
	}
	if err := b.dst.Validate(); err != nil {
		return nil, err
	}
	if err := b.params.Validate(); err != nil {
		return nil, err
	}
	if b.src.FieldParity != b.dst.FieldParity {
		return nil, zimgerr.New(zimgerr.NoFieldParityConversion,
			"field parity conversion (%d -> %d) is not implemented", b.src.FieldParity, b.dst.FieldParity)
	}
	srcColor := b.src.ColorFamily != pixel.FamilyGrey
	dstColor := b.dst.ColorFamily != pixel.FamilyGrey
	if srcColor != dstColor {
		return nil, zimgerr.New(zimgerr.ColorFamilyMismatch,
			"cannot convert between greyscale and color families (%d -> %d)", b.src.ColorFamily, b.dst.ColorFamily)
	}
	if b.dst.Alpha != format.AlphaNone && b.src.Alpha == format.AlphaNone {
		return nil, zimgerr.New(zimgerr.ColorFamilyMismatch, "cannot synthesize an alpha plane the source does not carry")
	}

	mask := pixel.Mask{pixel.PlaneY: true}
	mask[pixel.PlaneU] = srcColor
	mask[pixel.PlaneV] = srcColor
	mask[pixel.PlaneA] = b.src.Alpha != format.AlphaNone && b.dst.Alpha != format.AlphaNone

	var attrs [4]pixel.Attributes
	attrs[pixel.PlaneY] = pixel.Attributes{Width: b.src.Width, Height: b.src.Height, PixelType: b.src.PixelType}
	attrs[pixel.PlaneA] = attrs[pixel.PlaneY]
	if srcColor {
		attrs[pixel.PlaneU] = pixel.Attributes{
			Width:     b.src.Width >> uint(b.src.SubsampleW),
			Height:    b.src.Height >> uint(b.src.SubsampleH),
			PixelType: b.src.PixelType,
		}
		attrs[pixel.PlaneV] = attrs[pixel.PlaneU]
	}

	g, err := graph.NewSource(attrs, mask, b.log)
	if err != nil {
		return nil, err
	}

	if b.isNoop() {
		b.log.Debug("source equals target, building pass-through graph")
		return g, g.Complete()
	}

	level := b.cpuLevel()
	needCS := srcColor && !b.src.ColorspaceTriple().Equal(b.dst.ColorspaceTriple())
	active := b.src.ActiveRegion.Resolve(b.src.Width, b.src.Height)
	fullFrame := active == format.ActiveRegion{Left: 0, Top: 0, Width: float64(b.src.Width), Height: float64(b.src.Height)}
	needResize := b.src.Width != b.dst.Width || b.src.Height != b.dst.Height || !fullFrame
	subChange := b.src.SubsampleW != b.dst.SubsampleW || b.src.SubsampleH != b.dst.SubsampleH

	if needCS && b.cs == nil {
		return nil, zimgerr.New(zimgerr.NoColorspaceConversion, "no colorspace table injected")
	}

	// Pure depth widening between limited-range 16-bit containers stays
	// in the integer domain as a left shift. A declared chroma-siting
	// change on a subsampled image still needs the chroma resampler, so
	// it disqualifies the shortcut; without subsampling the siting
	// carries no subpixel offset and is moot. Alpha planes are always
	// full range, so an image carrying alpha takes the general path.
	sameSiting := (b.src.SubsampleW == 0 && b.src.SubsampleH == 0) ||
		(b.src.ChromaLocationH == b.dst.ChromaLocationH && b.src.ChromaLocationV == b.dst.ChromaLocationV)
	if !needCS && !needResize && !subChange && sameSiting && !mask[pixel.PlaneA] &&
		b.src.PixelType == pixel.U16 && b.dst.PixelType == pixel.U16 &&
		b.src.PixelRange == pixel.RangeLimited && b.dst.PixelRange == pixel.RangeLimited &&
		b.dst.EffectiveDepth() >= b.src.EffectiveDepth() {
		for p := 0; p < 4; p++ {
			if !mask[p] {
				continue
			}
			attr := g.HeadAttributes(pixel.Plane(p))
			lsh := filter.NewLeftShift(attr, attr, b.src.EffectiveDepth(), b.dst.EffectiveDepth())
			if _, err := g.AppendPlane(pixel.Plane(p), lsh); err != nil {
				return nil, err
			}
		}
		return g, g.Complete()
	}

	if err := b.appendUnpack(g, mask); err != nil {
		return nil, err
	}

	chromaAtLuma := false
	if needCS {
		if mask.HasChroma() && (b.src.SubsampleW > 0 || b.src.SubsampleH > 0) {
			if err := b.appendChromaUpsample(g, level); err != nil {
				return nil, err
			}
		}
		chromaAtLuma = true
		if err := b.appendColorspace(g); err != nil {
			return nil, err
		}
	}

	if err := b.appendResizeStages(g, mask, active, chromaAtLuma, level); err != nil {
		return nil, err
	}

	if err := b.appendPack(g, mask); err != nil {
		return nil, err
	}

	return g, g.Complete()
}

// isNoop reports whether source and target describe the same image in
// every field that affects the pixels, in which case the pipeline is a
// single copy.
func (b *GraphBuilder) isNoop() bool {
	srcFmt := pixel.Format{Type: b.src.PixelType, Depth: b.src.EffectiveDepth(), FullRange: b.src.PixelRange == pixel.RangeFull}
	dstFmt := pixel.Format{Type: b.dst.PixelType, Depth: b.dst.EffectiveDepth(), FullRange: b.dst.PixelRange == pixel.RangeFull}
	active := b.src.ActiveRegion.Resolve(b.src.Width, b.src.Height)
	fullFrame := active == format.ActiveRegion{Left: 0, Top: 0, Width: float64(b.src.Width), Height: float64(b.src.Height)}
	return b.src.Width == b.dst.Width && b.src.Height == b.dst.Height &&
		srcFmt.Equal(dstFmt) &&
		b.src.SubsampleW == b.dst.SubsampleW && b.src.SubsampleH == b.dst.SubsampleH &&
		b.src.ColorFamily == b.dst.ColorFamily &&
		b.src.ColorspaceTriple().Equal(b.dst.ColorspaceTriple()) &&
		b.src.ChromaLocationH == b.dst.ChromaLocationH && b.src.ChromaLocationV == b.dst.ChromaLocationV &&
		b.src.Alpha == b.dst.Alpha &&
		fullFrame
}

func (b *GraphBuilder) srcChroma(p pixel.Plane) bool {
	return b.src.ColorFamily == pixel.FamilyYUV && (p == pixel.PlaneU || p == pixel.PlaneV)
}

func (b *GraphBuilder) dstChroma(p pixel.Plane) bool {
	return b.dst.ColorFamily == pixel.FamilyYUV && (p == pixel.PlaneU || p == pixel.PlaneV)
}

// appendUnpack converts every present plane to float32 working precision
// (builder step 1).
func (b *GraphBuilder) appendUnpack(g *graph.FilterGraph, mask pixel.Mask) error {
	for p := 0; p < 4; p++ {
		if !mask[p] {
			continue
		}
		plane := pixel.Plane(p)
		attr := g.HeadAttributes(plane)
		switch attr.PixelType {
		case pixel.U8, pixel.U16:
			out := pixel.Attributes{Width: attr.Width, Height: attr.Height, PixelType: pixel.F32}
			full := b.src.PixelRange == pixel.RangeFull
			if plane == pixel.PlaneA {
				full = true
			}
			tf := filter.NewToFloat(attr, out, b.src.EffectiveDepth(), full, b.srcChroma(plane))
			if _, err := g.AppendPlane(plane, tf); err != nil {
				return err
			}
		case pixel.F16:
			if _, err := g.AppendPlane(plane, filter.NewHalfToFloat(attr)); err != nil {
				return err
			}
		}
	}
	return nil
}

// appendChromaUpsample brings U and V to the source luma grid (builder
// step 2), preferring the nearest-neighbor and diamond-kernel fast paths
// before the general polyphase resampler.
func (b *GraphBuilder) appendChromaUpsample(g *graph.FilterGraph, level cpu.Level) error {
	ssW, ssH := b.src.SubsampleW, b.src.SubsampleH
	centerH := !isLeftSited(b.src.ChromaLocationH)
	centerV := !isTopSited(b.src.ChromaLocationV) && !isBottomSited(b.src.ChromaLocationV)

	for _, plane := range []pixel.Plane{pixel.PlaneU, pixel.PlaneV} {
		attr := g.HeadAttributes(plane)
		switch {
		case b.params.ResampleFilterUV == format.FilterPoint:
			rp := filter.NewRepeat(attr, 1<<uint(ssW), 1<<uint(ssH))
			if _, err := g.AppendPlane(plane, rp); err != nil {
				return err
			}
		case b.params.ResampleFilterUV == format.FilterBilinear && ssW == 1 && ssH == 1 && centerH && centerV:
			if _, err := g.AppendPlane(plane, filter.NewChromaUpsample2x(attr)); err != nil {
				return err
			}
		default:
			k := kernelFor(b.params.ResampleFilterUV, b.params.FilterParamAUV, b.params.FilterParamBUV)
			srcOffH := sitingOffset(isLeftSited(b.src.ChromaLocationH), true, ssW)
			srcOffV := sitingOffset(isTopSited(b.src.ChromaLocationV), true, ssH) +
				sitingOffset(isBottomSited(b.src.ChromaLocationV), false, ssH)
			shiftH := chromaShift(srcOffH, 0, ssW, 0, 1, 0)
			shiftV := chromaShift(srcOffV, 0, ssH, 0, 1, 0)
			err := b.appendResizePlane(g, plane, k, b.src.Width, b.src.Height,
				shiftH, float64(attr.Width), shiftV, float64(attr.Height), level)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// appendColorspace walks the BFS path between the two colorspace triples
// and appends one matrix or curve stage per edge (builder step 3).
func (b *GraphBuilder) appendColorspace(g *graph.FilterGraph) error {
	path, err := b.cs.FindPath(b.src.ColorspaceTriple(), b.dst.ColorspaceTriple())
	if err != nil {
		return err
	}
	b.log.Debug("colorspace path found", zap.Int("edges", len(path)))

	peak := b.params.NominalPeakLuminance
	for _, e := range path {
		attr := g.HeadAttributes(pixel.PlaneY)
		switch e.Kind {
		case colorspace.OpRGBToYUV:
			m, ok := colorspace.RGBToYUVMatrix(colorspace.Matrix(e.Arg))
			if !ok {
				return zimgerr.New(zimgerr.NoColorspaceConversion, "no analysis matrix for %d", e.Arg)
			}
			if _, err := g.AppendColor(filter.NewMatrix3x3(attr, m)); err != nil {
				return err
			}
		case colorspace.OpYUVToRGB:
			m, ok := colorspace.YUVToRGBMatrix(colorspace.Matrix(e.Arg))
			if !ok {
				return zimgerr.New(zimgerr.NoColorspaceConversion, "no synthesis matrix for %d", e.Arg)
			}
			if _, err := g.AppendColor(filter.NewMatrix3x3(attr, m)); err != nil {
				return err
			}
		case colorspace.OpForwardTransfer, colorspace.OpInverseTransfer:
			curve := curveFor(colorspace.Transfer(e.Arg))
			toLinear := e.Kind == colorspace.OpForwardTransfer
			approx := b.params.AllowApproximateGamma && curve != colorspace.CurveST2084
			tr := filter.NewMux(filter.NewTransfer(attr, curve, toLinear, peak, approx))
			if _, err := g.AppendColor(tr); err != nil {
				return err
			}
		case colorspace.OpGamut:
			gm := filter.NewGamut(attr, colorspace.Primaries(e.Arg), e.To.Primaries)
			if _, err := g.AppendColor(gm); err != nil {
				return err
			}
		case colorspace.OpCL2020Encode:
			if _, err := g.AppendColor(filter.NewCL2020Encode(attr)); err != nil {
				return err
			}
		case colorspace.OpCL2020Decode:
			if _, err := g.AppendColor(filter.NewCL2020Decode(attr)); err != nil {
				return err
			}
		}
	}
	return nil
}

// appendResizeStages resizes every present plane to the target geometry
// (builder steps 4 and 5), folding the chroma up/downsampling shift and
// the active subwindow into the resampler's shift parameter.
func (b *GraphBuilder) appendResizeStages(g *graph.FilterGraph, mask pixel.Mask, active format.ActiveRegion, chromaAtLuma bool, level cpu.Level) error {
	ratioW := active.Width / float64(b.dst.Width)
	ratioH := active.Height / float64(b.dst.Height)

	kLuma := kernelFor(b.params.ResampleFilter, b.params.FilterParamA, b.params.FilterParamB)
	kUV := kernelFor(b.params.ResampleFilterUV, b.params.FilterParamAUV, b.params.FilterParamBUV)

	for p := 0; p < 4; p++ {
		if !mask[p] {
			continue
		}
		plane := pixel.Plane(p)
		if plane == pixel.PlaneU || plane == pixel.PlaneV {
			ss, st := b.src.SubsampleW, b.src.SubsampleH
			if chromaAtLuma {
				ss, st = 0, 0
			}
			sd, sv := b.dst.SubsampleW, b.dst.SubsampleH

			srcOffH := sitingOffset(isLeftSited(b.src.ChromaLocationH), true, ss)
			srcOffV := sitingOffset(isTopSited(b.src.ChromaLocationV), true, st) +
				sitingOffset(isBottomSited(b.src.ChromaLocationV), false, st)
			dstOffH := sitingOffset(isLeftSited(b.dst.ChromaLocationH), true, sd)
			dstOffV := sitingOffset(isTopSited(b.dst.ChromaLocationV), true, sv) +
				sitingOffset(isBottomSited(b.dst.ChromaLocationV), false, sv)

			shiftH := chromaShift(srcOffH, dstOffH, ss, sd, ratioW, active.Left)
			shiftV := chromaShift(srcOffV, dstOffV, st, sv, ratioH, active.Top)

			err := b.appendResizePlane(g, plane, kUV,
				b.dst.Width>>uint(sd), b.dst.Height>>uint(sv),
				shiftH, active.Width/float64(int(1)<<uint(ss)),
				shiftV, active.Height/float64(int(1)<<uint(st)), level)
			if err != nil {
				return err
			}
			continue
		}
		err := b.appendResizePlane(g, plane, kLuma, b.dst.Width, b.dst.Height,
			active.Left, active.Width, active.Top, active.Height, level)
		if err != nil {
			return err
		}
	}
	return nil
}

// appendResizePlane appends the horizontal and/or vertical resample
// stages needed to bring plane p to (dstW, dstH), skipping axes that are
// already exact and ordering the two passes so the intermediate image is
// the smaller one.
func (b *GraphBuilder) appendResizePlane(g *graph.FilterGraph, p pixel.Plane, k resize.Kernel,
	dstW, dstH int, shiftH, activeW, shiftV, activeH float64, level cpu.Level) error {

	attr := g.HeadAttributes(p)
	doH := dstW != attr.Width || shiftH != 0 || activeW != float64(attr.Width)
	doV := dstH != attr.Height || shiftV != 0 || activeH != float64(attr.Height)
	if !doH && !doV {
		return nil
	}

	appendH := func() error {
		in := g.HeadAttributes(p)
		if !resize.Buildable(k, in.Width, dstW, shiftH, activeW) {
			return zimgerr.New(zimgerr.ResamplingNotAvailable,
				"horizontal resample %d -> %d (shift %g, window %g) exceeds kernel support bounds", in.Width, dstW, shiftH, activeW)
		}
		fc := resize.Build(k, in.Width, dstW, shiftH, activeW)
		out := pixel.Attributes{Width: dstW, Height: in.Height, PixelType: in.PixelType}
		_, err := g.AppendPlane(p, filter.NewHorizontalResize(in, out, fc, level))
		return err
	}
	appendV := func() error {
		in := g.HeadAttributes(p)
		if !resize.Buildable(k, in.Height, dstH, shiftV, activeH) {
			return zimgerr.New(zimgerr.ResamplingNotAvailable,
				"vertical resample %d -> %d (shift %g, window %g) exceeds kernel support bounds", in.Height, dstH, shiftV, activeH)
		}
		fc := resize.Build(k, in.Height, dstH, shiftV, activeH)
		out := pixel.Attributes{Width: in.Width, Height: dstH, PixelType: in.PixelType}
		_, err := g.AppendPlane(p, filter.NewVerticalResize(in, out, fc, level))
		return err
	}

	switch {
	case doH && !doV:
		return appendH()
	case doV && !doH:
		return appendV()
	default:
		// Intermediate area decides the pass order.
		if dstW*attr.Height <= attr.Width*dstH {
			if err := appendH(); err != nil {
				return err
			}
			return appendV()
		}
		if err := appendV(); err != nil {
			return err
		}
		return appendH()
	}
}

// appendPack converts every present plane from float32 working precision
// to the target storage type (builder step 6).
func (b *GraphBuilder) appendPack(g *graph.FilterGraph, mask pixel.Mask) error {
	for p := 0; p < 4; p++ {
		if !mask[p] {
			continue
		}
		plane := pixel.Plane(p)
		attr := g.HeadAttributes(plane)
		switch b.dst.PixelType {
		case pixel.U8, pixel.U16:
			out := pixel.Attributes{Width: attr.Width, Height: attr.Height, PixelType: b.dst.PixelType}
			full := b.dst.PixelRange == pixel.RangeFull
			if plane == pixel.PlaneA {
				full = true
			}
			dt := filter.NewDither(attr, out, b.dst.EffectiveDepth(), full, b.dstChroma(plane), ditherKind(b.params.DitherType))
			if _, err := g.AppendPlane(plane, dt); err != nil {
				return err
			}
		case pixel.F16:
			if _, err := g.AppendPlane(plane, filter.NewFloatToHalf(attr)); err != nil {
				return err
			}
		}
	}
	return nil
}
