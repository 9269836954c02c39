package cpu

import "testing"

func TestDetectRespectsCeiling(t *testing.T) {
	if got := Detect(LevelSSE2); got > LevelSSE2 {
		t.Fatalf("Detect(LevelSSE2) = %v, want <= LevelSSE2", got)
	}
}

func TestSimultaneousLinesMonotonic(t *testing.T) {
	prev := 0
	for _, l := range []Level{LevelScalar, LevelSSE2, LevelAVX2, LevelAVX512} {
		n := SimultaneousLines(l)
		if n < prev {
			t.Errorf("SimultaneousLines(%v) = %d, expected non-decreasing with level", l, n)
		}
		prev = n
	}
}
