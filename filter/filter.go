// Package filter implements the per-plane image transformation primitives
// that a filter graph schedules: copy, mux, resample, depth conversion,
// dithering, matrix, transfer curve, gamut, and constant-luminance
// encode/decode.
package filter

import "github.com/sekrit-twc/zimg/pixel"

// Flags describes the scheduling contract a Filter exposes to the graph
// builder, mirroring the per-filter capability bits consulted when
// deciding whether two adjacent stages can share a buffer or run in a
// single pass over a tile.
type Flags struct {
	// SameRow is true when RequiredRowRange(i) == [i, i+1): the filter
	// consumes exactly the output row it produces, enabling immediate
	// pipelining with no extra row buffering.
	SameRow bool
	// InPlace is true when the filter can overwrite its input buffer
	// with its output (same pixel format, same dimensions).
	InPlace bool
	// Color is true when the filter processes all planes of a color
	// triple together instead of one plane independently.
	Color bool
	// EntireRow is true when the filter needs the complete row rather
	// than a column subrange (disables column tiling for this stage).
	EntireRow bool
	// Stateful is true when Process depends on results carried from the
	// previous invocation (e.g. error-diffusion dither), forcing serial,
	// left-to-right, top-to-bottom execution with no tile parallelism.
	Stateful bool
}

// Point is a 2D integer coordinate, used for both row and column ranges.
type Point struct{ First, Second int }

// Filter is the common interface every primitive in this package
// implements. A graph.FilterGraph node wraps exactly one Filter.
type Filter interface {
	// Flags returns the filter's scheduling contract.
	Flags() Flags
	// InputFormat/OutputFormat describe the plane shape and pixel type
	// the filter consumes and produces.
	InputFormat() pixel.Attributes
	OutputFormat() pixel.Attributes
	// RequiredRowRange returns the input row range [first,second) needed
	// to produce output row i.
	RequiredRowRange(i int) Point
	// RequiredColRange returns the input column range [first,second)
	// needed to produce output columns [left,right).
	RequiredColRange(left, right int) Point
	// SimultaneousLines reports how many output rows Process should be
	// asked to produce per call for best throughput (a SIMD/cache-driven
	// hint from internal/cpu, not a hard requirement).
	SimultaneousLines() int
	// ContextSize reports the number of bytes of persistent state
	// (across Process calls) the filter needs; 0 for stateless filters.
	ContextSize() int
	// TmpSize reports the number of scratch bytes Process needs per
	// invocation, sized for the widest call the filter will receive.
	TmpSize() int
	// InitContext initializes ctx (len == ContextSize()) before the
	// first Process call.
	InitContext(ctx []byte)
	// Process produces output rows [i, i+n) at columns [left,right)
	// from input data, using ctx for persistent state and tmp for
	// scratch. n is at most SimultaneousLines().
	Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int)
}
