// Package graph assembles per-plane Filter stages into an executable
// pipeline: a circular row buffer per plane, a node table recording each
// filter's stage dependencies and live row range, and a tiled scheduler
// that drives the whole graph with bounded working memory.
package graph

import "math/bits"

// BufferMax marks a Buffer as holding the entire image in memory (no
// wraparound), the circular-buffer equivalent of "infinite mask".
const BufferMax = ^uint32(0)

// Buffer is a row-addressable view over a plane's pixel storage. Rows
// are addressed modulo mask+1, so a buffer can represent either the full
// image (mask == BufferMax) or a power-of-two-sized sliding window that a
// producer/consumer pair advances together, without either side knowing
// which case applies.
type Buffer struct {
	data   []byte
	stride int // bytes per row; may be negative for a bottom-up source
	mask   uint32
}

// NewBuffer constructs a Buffer over data with the given byte stride and
// row mask. stride may be negative to represent a bottom-up image without
// copying it.
func NewBuffer(data []byte, stride int, mask uint32) Buffer {
	return Buffer{data: data, stride: stride, mask: mask}
}

// MaskOf returns the smallest mask (2^k - 1) covering at least n rows, or
// BufferMax if n rows should simply mean "no wraparound".
func MaskOf(n int, unlimited bool) uint32 {
	if unlimited || n <= 0 {
		return BufferMax
	}
	k := bits.Len(uint(n - 1))
	return uint32(1)<<uint(k) - 1
}

// Row returns the byte slice for row i, resolving wraparound through mask.
func (b Buffer) Row(i int) []byte {
	phys := int(uint32(i) & b.mask)
	if b.stride < 0 {
		// A negative stride represents a bottom-up image: row 0 is the
		// last stride-sized block of data, and successive rows walk
		// backward toward the start.
		w := -b.stride
		start := len(b.data) - (phys+1)*w
		return b.data[start : start+w]
	}
	off := phys * b.stride
	return b.data[off : off+b.stride]
}

// Mask reports the buffer's row mask.
func (b Buffer) Mask() uint32 { return b.mask }

// Stride reports the buffer's byte stride.
func (b Buffer) Stride() int { return b.stride }

// Unlimited reports whether the buffer holds the whole plane (no
// wraparound ever occurs).
func (b Buffer) Unlimited() bool { return b.mask == BufferMax }
