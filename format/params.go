// Package format defines the two versioned parameter blocks exchanged at
// the engine's boundary: the image format descriptor and the graph
// builder parameters. Both follow a version-tagged, append-only-field
// convention: version = (major<<8)|minor, newer minor versions only add
// trailing fields.
package format

import (
	"math"

	"github.com/sekrit-twc/zimg/colorspace"
	"github.com/sekrit-twc/zimg/pixel"
	"github.com/sekrit-twc/zimg/zimgerr"
)

// Version packs (major<<8)|minor.
type Version int

func MakeVersion(major, minor int) Version { return Version(major<<8 | minor) }

const CurrentMajor = 2

// FieldParity identifies interlaced field ordering.
type FieldParity int

const (
	ParityProgressive FieldParity = iota
	ParityTop
	ParityBottom
)

// ChromaLocation identifies the sub-pixel offset of chroma samples
// relative to the 4:4:4 grid.
type ChromaLocation int

const (
	ChromaLeft ChromaLocation = iota // MPEG-2
	ChromaCenter                     // MPEG-1/JPEG
	ChromaTopLeft
	ChromaTop
	ChromaBottomLeft
	ChromaBottom
)

// AlphaMode identifies how the alpha plane's color data is associated.
type AlphaMode int

const (
	AlphaNone AlphaMode = iota
	AlphaStraight
	AlphaPremultiplied
)

// ActiveRegion is the source image's active subwindow in subpixel
// coordinates. A NaN Left defaults the
// whole struct to (0, 0, width, height) at consumption time.
type ActiveRegion struct {
	Left, Top, Width, Height float64
}

// Resolve returns r, or the default full-image region if r.Left is NaN.
func (r ActiveRegion) Resolve(width, height int) ActiveRegion {
	if math.IsNaN(r.Left) {
		return ActiveRegion{0, 0, float64(width), float64(height)}
	}
	return r
}

// ImageFormat is the versioned image-format parameter block.
type ImageFormat struct {
	Version Version

	Width, Height int
	PixelType     pixel.Type

	SubsampleW, SubsampleH int // log2 subsampling factors

	ColorFamily pixel.ColorFamily

	Matrix     colorspace.Matrix
	Transfer   colorspace.Transfer
	Primaries  colorspace.Primaries

	Depth       int // bits per sample; 0 means "container bits"
	PixelRange  pixel.Range
	FieldParity FieldParity

	ChromaLocationH ChromaLocation
	ChromaLocationV ChromaLocation

	ActiveRegion ActiveRegion // since 2.1; NaN Left => 0/0/w/h

	Alpha AlphaMode // since 2.4
}

// NewImageFormat returns an ImageFormat with the documented defaults
// filled in.
func NewImageFormat(width, height int, pixelType pixel.Type) ImageFormat {
	return ImageFormat{
		Version:      MakeVersion(CurrentMajor, 4),
		Width:        width,
		Height:       height,
		PixelType:    pixelType,
		ColorFamily:  pixel.FamilyGrey,
		PixelRange:   pixel.RangeLimited,
		FieldParity:  ParityProgressive,
		ActiveRegion: ActiveRegion{Left: math.NaN()},
		Alpha:        AlphaNone,
	}
}

// EffectiveDepth returns Depth, defaulting to the pixel type's container
// width when unset.
func (f ImageFormat) EffectiveDepth() int {
	if f.Depth > 0 {
		return f.Depth
	}
	return f.PixelType.ContainerBits()
}

// ColorspaceTriple extracts the (matrix, transfer, primaries) triple.
func (f ImageFormat) ColorspaceTriple() colorspace.Triple {
	return colorspace.Triple{Matrix: f.Matrix, Transfer: f.Transfer, Primaries: f.Primaries}
}

// PlaneMask derives the plane presence mask from ColorFamily and Alpha,
// honoring the Y-always-present / U-V-co-present invariant.
func (f ImageFormat) PlaneMask() pixel.Mask {
	m := pixel.Mask{pixel.PlaneY: true}
	if f.ColorFamily != pixel.FamilyGrey {
		m[pixel.PlaneU] = true
		m[pixel.PlaneV] = true
	}
	m[pixel.PlaneA] = f.Alpha != AlphaNone
	return m
}

// Validate checks the field-level invariants that are local to this
// format alone (not cross-checked against a target format).
func (f ImageFormat) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return zimgerr.New(zimgerr.InvalidImageSize, "width/height must be positive, got %dx%d", f.Width, f.Height)
	}
	if f.ColorFamily == pixel.FamilyGrey && (f.SubsampleW != 0 || f.SubsampleH != 0) {
		return zimgerr.New(zimgerr.GreyscaleSubsampling, "greyscale images cannot be subsampled")
	}
	if f.SubsampleW < 0 || f.SubsampleW > 2 || f.SubsampleH < 0 || f.SubsampleH > 2 {
		return zimgerr.New(zimgerr.UnsupportedSubsampling, "subsample factors must be in [0,2] (max 4x), got %d,%d", f.SubsampleW, f.SubsampleH)
	}
	if f.SubsampleW > 0 || f.SubsampleH > 0 {
		if f.Width%(1<<uint(f.SubsampleW)) != 0 || f.Height%(1<<uint(f.SubsampleH)) != 0 {
			return zimgerr.New(zimgerr.ImageNotDivisible, "dimensions %dx%d not divisible by subsampling 2^%d x 2^%d", f.Width, f.Height, f.SubsampleW, f.SubsampleH)
		}
	}
	depth := f.EffectiveDepth()
	if !f.PixelType.IsFloat() && depth > f.PixelType.ContainerBits() {
		return zimgerr.New(zimgerr.BitDepthOverflow, "depth %d exceeds container width %d", depth, f.PixelType.ContainerBits())
	}
	if err := f.ColorspaceTriple().Validate(); err != nil {
		return err
	}
	return nil
}

// ResampleFilter identifies a resize kernel family.
type ResampleFilter int

const (
	FilterPoint ResampleFilter = iota
	FilterBilinear
	FilterBicubic
	FilterSpline16
	FilterSpline36
	FilterLanczos
)

// DitherType identifies the integer-rounding strategy.
type DitherType int

const (
	DitherNone DitherType = iota
	DitherOrdered
	DitherRandom
	DitherErrorDiffusion
)

// CPUType is the capability ceiling requested by the caller;
// AUTO lets the engine detect the host's real capability.
type CPUType int

const (
	CPUAuto CPUType = iota
	CPUScalar
	CPUSSE2
	CPUAVX2
	CPUAVX512
	CPUNEON
)

// GraphBuilderParams is the versioned graph-builder parameter block.
type GraphBuilderParams struct {
	Version Version

	ResampleFilter             ResampleFilter
	FilterParamA, FilterParamB float64 // NaN => kernel default

	ResampleFilterUV                 ResampleFilter
	FilterParamAUV, FilterParamBUV   float64

	DitherType DitherType

	CPUType CPUType

	NominalPeakLuminance float64 // since 2.2, cd/m^2
	AllowApproximateGamma bool
}

// NewGraphBuilderParams returns a GraphBuilderParams with defaults.
func NewGraphBuilderParams() GraphBuilderParams {
	return GraphBuilderParams{
		Version:               MakeVersion(CurrentMajor, 2),
		ResampleFilter:         FilterBicubic,
		FilterParamA:           math.NaN(),
		FilterParamB:           math.NaN(),
		ResampleFilterUV:       FilterBilinear,
		FilterParamAUV:         math.NaN(),
		FilterParamBUV:         math.NaN(),
		DitherType:             DitherNone,
		CPUType:                CPUAuto,
		NominalPeakLuminance:   100,
		AllowApproximateGamma:  false,
	}
}

// Validate checks enum ranges local to the params block.
func (p GraphBuilderParams) Validate() error {
	if p.ResampleFilter < FilterPoint || p.ResampleFilter > FilterLanczos {
		return zimgerr.New(zimgerr.EnumOutOfRange, "resample_filter %d out of range", p.ResampleFilter)
	}
	if p.DitherType < DitherNone || p.DitherType > DitherErrorDiffusion {
		return zimgerr.New(zimgerr.EnumOutOfRange, "dither_type %d out of range", p.DitherType)
	}
	if p.NominalPeakLuminance <= 0 {
		return zimgerr.New(zimgerr.EnumOutOfRange, "nominal_peak_luminance must be positive, got %g", p.NominalPeakLuminance)
	}
	return nil
}
