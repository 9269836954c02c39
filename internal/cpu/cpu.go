// Package cpu probes CPU SIMD capability to pick a filter primitive's
// row-group granularity. Consulted once at graph-construction time; the
// engine never branches on capability inside a hot Process() loop.
package cpu

import "golang.org/x/sys/cpu"

// Level is a coarse SIMD capability ceiling. The x86 levels are ordered
// from narrowest to widest; LevelNEON is listed last.
type Level int

const (
	LevelScalar Level = iota
	LevelSSE2
	LevelAVX2
	LevelAVX512
	LevelNEON
)

func (l Level) String() string {
	switch l {
	case LevelScalar:
		return "scalar"
	case LevelSSE2:
		return "sse2"
	case LevelAVX2:
		return "avx2"
	case LevelAVX512:
		return "avx512"
	case LevelNEON:
		return "neon"
	default:
		return "unknown"
	}
}

// Detect returns the highest SIMD level usable on the current host,
// capped by ceiling. A ceiling of LevelScalar (the zero value) means no
// cap ("auto"); any other value caps the result.
func Detect(ceiling Level) Level {
	detected := detectAuto()
	if ceiling != LevelScalar && ceiling < detected {
		return ceiling
	}
	return detected
}

func detectAuto() Level {
	if cpu.ARM64.HasASIMD {
		return LevelNEON
	}
	if cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW {
		return LevelAVX512
	}
	if cpu.X86.HasAVX2 {
		return LevelAVX2
	}
	if cpu.X86.HasSSE2 {
		return LevelSSE2
	}
	return LevelScalar
}

// SimultaneousLines returns the row-group granularity (1, 4, 8, or 16) a
// filter primitive should process per Process() invocation at the given
// SIMD level.
func SimultaneousLines(l Level) int {
	switch l {
	case LevelAVX512:
		return 16
	case LevelAVX2, LevelNEON:
		return 8
	case LevelSSE2:
		return 4
	default:
		return 1
	}
}
