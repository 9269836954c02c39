package colorspace

import "testing"

func TestFindPathIdentityIsEmpty(t *testing.T) {
	g := NewGraph(nil)
	tr := Triple{Matrix: MatrixBT709, Transfer: TransferBT709, Primaries: PrimariesBT709}
	path, err := g.FindPath(tr, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 0 {
		t.Fatalf("identity path should be empty, got %d edges", len(path))
	}
}

func TestFindPathYUVToYUV(t *testing.T) {
	g := NewGraph(nil)
	src := Triple{Matrix: MatrixBT709, Transfer: TransferBT709, Primaries: PrimariesBT709}
	dst := Triple{Matrix: MatrixSMPTE170M, Transfer: TransferBT709, Primaries: PrimariesBT709}
	path, err := g.FindPath(src, dst)
	if err != nil {
		t.Fatalf("expected a path between two BT.709-ish YUV matrices: %v", err)
	}
	if len(path) == 0 {
		t.Fatalf("expected a non-empty path")
	}
	if path[0].From.Equal(src) == false {
		t.Fatalf("path should start at src")
	}
	if path[len(path)-1].To.Equal(dst) == false {
		t.Fatalf("path should end at dst, got %+v", path[len(path)-1].To)
	}
}

func TestFindPathSymmetry(t *testing.T) {
	// Every valid pair with a forward path must have a reverse path too.
	g := NewGraph(nil)
	a := Triple{Matrix: MatrixBT709, Transfer: TransferBT709, Primaries: PrimariesBT709}
	b := Triple{Matrix: MatrixSMPTE170M, Transfer: TransferSRGB, Primaries: PrimariesSMPTE170M}

	if _, err := g.FindPath(a, b); err != nil {
		t.Fatalf("a->b should have a path: %v", err)
	}
	if _, err := g.FindPath(b, a); err != nil {
		t.Fatalf("b->a should have a path: %v", err)
	}
}

func TestFindPathNoPathForInvalidVertex(t *testing.T) {
	g := NewGraph(nil)
	bogus := Triple{Matrix: MatrixCL2020, Transfer: TransferLinear, Primaries: PrimariesBT709}
	valid := Triple{Matrix: MatrixBT709, Transfer: TransferBT709, Primaries: PrimariesBT709}
	if _, err := g.FindPath(bogus, valid); err == nil {
		t.Fatalf("expected an error for an invalid (non-vertex) source triple")
	}
}

func TestFindPathDeterministic(t *testing.T) {
	// Repeated searches over the same endpoints must reproduce the exact
	// edge sequence. The route below crosses the high-fanout linear-RGB
	// vertices where neighbor-iteration order decides tie-breaks, so a
	// traversal driven by randomized map iteration flakes here.
	g := NewGraph(nil)
	cases := []struct{ src, dst Triple }{
		{
			Triple{Matrix: MatrixBT709, Transfer: TransferBT709, Primaries: PrimariesBT709},
			Triple{Matrix: MatrixRGB, Transfer: TransferLinear, Primaries: PrimariesBT2020},
		},
		{
			Triple{Matrix: MatrixBT709, Transfer: TransferST2084, Primaries: PrimariesBT2020},
			Triple{Matrix: MatrixSMPTE170M, Transfer: TransferSRGB, Primaries: PrimariesBT709},
		},
	}
	for _, c := range cases {
		ref, err := g.FindPath(c.src, c.dst)
		if err != nil {
			t.Fatalf("FindPath(%+v, %+v): %v", c.src, c.dst, err)
		}
		for trial := 0; trial < 16; trial++ {
			got, err := g.FindPath(c.src, c.dst)
			if err != nil {
				t.Fatalf("trial %d: %v", trial, err)
			}
			if len(got) != len(ref) {
				t.Fatalf("trial %d: path length %d, want %d", trial, len(got), len(ref))
			}
			for i := range got {
				if got[i] != ref[i] {
					t.Fatalf("trial %d: path diverges at step %d: %+v vs %+v", trial, i, got[i], ref[i])
				}
			}
		}
	}
}
