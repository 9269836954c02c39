package colorspace

// Kr/Kb luma weights per YUV matrix, from the corresponding ITU/SMPTE
// documents. YCgCo is not derived from luma weights and is special-cased.
var lumaWeights = map[Matrix][2]float64{
	MatrixBT709:     {0.2126, 0.0722},
	MatrixFCC:       {0.30, 0.11},
	MatrixBT470BG:   {0.299, 0.114},
	MatrixSMPTE170M: {0.299, 0.114},
	MatrixSMPTE240M: {0.212, 0.087},
	MatrixBT2020NCL: {0.2627, 0.0593},
}

// BT.2020 constant-luminance weights, shared with the CL encoder.
const (
	CL2020Kr = 0.2627
	CL2020Kb = 0.0593
)

// ycgcoForward is the RGB -> YCgCo analysis matrix.
var ycgcoForward = [3][3]float32{
	{0.25, 0.5, 0.25},
	{-0.25, 0.5, -0.25},
	{0.5, 0, -0.5},
}

// ycgcoInverse is the YCgCo -> RGB synthesis matrix.
var ycgcoInverse = [3][3]float32{
	{1, -1, 1},
	{1, 1, 0},
	{1, -1, -1},
}

// ICtCp support matrices from BT.2100/BT.2390, in 12-bit fixed point
// divided out to float. No default graph edges reference them; callers
// wanting ICtCp register edges explicitly via Graph.AddEdge.
var (
	RGB2020ToLMS = [3][3]float32{
		{1688.0 / 4096, 2146.0 / 4096, 262.0 / 4096},
		{683.0 / 4096, 2951.0 / 4096, 462.0 / 4096},
		{99.0 / 4096, 309.0 / 4096, 3688.0 / 4096},
	}
	LMSToICtCp = [3][3]float32{
		{2048.0 / 4096, 2048.0 / 4096, 0},
		{6610.0 / 4096, -13613.0 / 4096, 7003.0 / 4096},
		{17933.0 / 4096, -17390.0 / 4096, -543.0 / 4096},
	}
)

// RGBToYUVMatrix returns the 3x3 analysis matrix for m, mapping full-scale
// RGB to (Y, U, V) with chroma centered on zero. The weights follow the
// standard derivation: Y = Kr*R + Kg*G + Kb*B, U = (B-Y)/(2*(1-Kb)),
// V = (R-Y)/(2*(1-Kr)).
func RGBToYUVMatrix(m Matrix) ([3][3]float32, bool) {
	if m == MatrixYCgCo {
		return ycgcoForward, true
	}
	w, ok := lumaWeights[m]
	if !ok {
		return [3][3]float32{}, false
	}
	kr, kb := w[0], w[1]
	kg := 1 - kr - kb
	uScale := 1 / (2 * (1 - kb))
	vScale := 1 / (2 * (1 - kr))
	return [3][3]float32{
		{float32(kr), float32(kg), float32(kb)},
		{float32(-kr * uScale), float32(-kg * uScale), float32((1 - kb) * uScale)},
		{float32((1 - kr) * vScale), float32(-kg * vScale), float32(-kb * vScale)},
	}, true
}

// YUVToRGBMatrix returns the 3x3 synthesis matrix for m, the exact inverse
// of RGBToYUVMatrix without a numeric inversion step.
func YUVToRGBMatrix(m Matrix) ([3][3]float32, bool) {
	if m == MatrixYCgCo {
		return ycgcoInverse, true
	}
	w, ok := lumaWeights[m]
	if !ok {
		return [3][3]float32{}, false
	}
	kr, kb := w[0], w[1]
	kg := 1 - kr - kb
	return [3][3]float32{
		{1, 0, float32(2 * (1 - kr))},
		{1, float32(-2 * (1 - kb) * kb / kg), float32(-2 * (1 - kr) * kr / kg)},
		{1, float32(2 * (1 - kb)), 0},
	}, true
}
