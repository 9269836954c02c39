package filter

import "github.com/sekrit-twc/zimg/pixel"

// Matrix3x3 applies a fixed 3x3 linear transform across the three planes
// of a color triple (RGB<->YUV, or a gamut's primaries matrix), operating
// on float32 working precision.
type Matrix3x3 struct {
	Attr pixel.Attributes
	M    [3][3]float32
}

func NewMatrix3x3(attr pixel.Attributes, m [3][3]float32) *Matrix3x3 {
	return &Matrix3x3{Attr: attr, M: m}
}

func (m *Matrix3x3) Flags() Flags { return Flags{SameRow: true, Color: true} }

func (m *Matrix3x3) InputFormat() pixel.Attributes  { return m.Attr }
func (m *Matrix3x3) OutputFormat() pixel.Attributes { return m.Attr }

func (m *Matrix3x3) RequiredRowRange(i int) Point           { return Point{i, i + 1} }
func (m *Matrix3x3) RequiredColRange(left, right int) Point { return Point{left, right} }

func (m *Matrix3x3) SimultaneousLines() int { return 1 }
func (m *Matrix3x3) ContextSize() int       { return 0 }
func (m *Matrix3x3) TmpSize() int           { return 0 }
func (m *Matrix3x3) InitContext(ctx []byte) {}

// Process reads three input planes and writes three output planes,
// applying out[p] = sum_q M[p][q] * in[q] per sample. Tile boundaries
// that do not cover the full plane width still write every column in
// [left,right) for all three outputs (no partial-plane masking is needed
// since the transform has no cross-column dependency).
func (m *Matrix3x3) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	a := bytesToFloat32(src[0])
	b := bytesToFloat32(src[1])
	c := bytesToFloat32(src[2])
	oa := bytesToFloat32(dst[0])
	ob := bytesToFloat32(dst[1])
	oc := bytesToFloat32(dst[2])

	r0, r1, r2 := m.M[0], m.M[1], m.M[2]
	for x := left; x < right; x++ {
		p0, p1, p2 := a[x], b[x], c[x]
		oa[x] = r0[0]*p0 + r0[1]*p1 + r0[2]*p2
		ob[x] = r1[0]*p0 + r1[1]*p1 + r1[2]*p2
		oc[x] = r2[0]*p0 + r2[1]*p1 + r2[2]*p2
	}
}
