// Package colorspace implements the colorspace triple validity rules,
// exact transfer-curve math, and the vertex/edge path finder used to plan
// conversions between colorspaces.
package colorspace

import "github.com/sekrit-twc/zimg/zimgerr"

// Matrix identifies the YUV<->RGB matrix coefficients (or RGB/UNSPECIFIED),
// drawn from a closed ITU-like enum plus UNSPECIFIED.
type Matrix int

const (
	MatrixUnspecified Matrix = iota
	MatrixRGB
	MatrixBT709
	MatrixFCC
	MatrixBT470BG
	MatrixSMPTE170M
	MatrixSMPTE240M
	MatrixYCgCo
	MatrixBT2020NCL
	MatrixBT2020CL // constant luminance
	MatrixICtCp
)

// MatrixCL2020 is a shorthand for the constant-luminance BT.2020 matrix.
const MatrixCL2020 = MatrixBT2020CL

// Transfer identifies the transfer function (OETF/EOTF family).
type Transfer int

const (
	TransferUnspecified Transfer = iota
	TransferBT709
	TransferUnused3
	TransferBT470M
	TransferBT470BG
	TransferSMPTE170M
	TransferSMPTE240M
	TransferLinear
	TransferLog100
	TransferLog100Sqrt10
	TransferIEC61966
	TransferBT1361
	TransferSRGB
	TransferBT2020_10
	TransferBT2020_12
	TransferST2084 // PQ
	TransferSMPTE428
	TransferARIB_B67 // HLG
)

// Primaries identifies the chromaticity primaries + white point.
type Primaries int

const (
	PrimariesUnspecified Primaries = iota
	PrimariesBT709
	PrimariesUnused2
	PrimariesBT470M
	PrimariesBT470BG
	PrimariesSMPTE170M
	PrimariesSMPTE240M
	PrimariesFilm
	PrimariesBT2020
	PrimariesST428
	PrimariesP3DCI
	PrimariesP3Display
)

// Triple is a (matrix, transfer, primaries) colorspace descriptor, and a
// vertex in the path-finder graph.
type Triple struct {
	Matrix    Matrix
	Transfer  Transfer
	Primaries Primaries
}

// Validate checks the three validity invariants:
//
//   - matrix == CONSTANT_LUMINANCE requires the matching non-linear gamma
//     curve (not LINEAR, not UNSPECIFIED).
//   - matrix == UNSPECIFIED requires transfer == UNSPECIFIED and
//     primaries == UNSPECIFIED.
//   - transfer == UNSPECIFIED requires primaries == UNSPECIFIED.
func (t Triple) Validate() error {
	if t.Matrix == MatrixCL2020 {
		if t.Transfer == TransferLinear || t.Transfer == TransferUnspecified {
			return zimgerr.New(zimgerr.EnumOutOfRange, "constant-luminance matrix requires a non-linear gamma transfer, got %d", t.Transfer)
		}
	}
	if t.Matrix == MatrixUnspecified {
		if t.Transfer != TransferUnspecified || t.Primaries != PrimariesUnspecified {
			return zimgerr.New(zimgerr.EnumOutOfRange, "unspecified matrix requires unspecified transfer and primaries")
		}
	}
	if t.Transfer == TransferUnspecified && t.Primaries != PrimariesUnspecified {
		return zimgerr.New(zimgerr.EnumOutOfRange, "unspecified transfer requires unspecified primaries")
	}
	return nil
}

// Equal reports whether two triples describe the same colorspace vertex.
func (t Triple) Equal(o Triple) bool {
	return t.Matrix == o.Matrix && t.Transfer == o.Transfer && t.Primaries == o.Primaries
}
