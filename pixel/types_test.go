package pixel

import "testing"

func TestFormatEqualFloatCarveOut(t *testing.T) {
	a := Format{Type: F32, Depth: 16, FullRange: true, Chroma: false}
	b := Format{Type: F32, Depth: 8, FullRange: false, Chroma: false}
	if !a.Equal(b) {
		t.Fatalf("float formats should be equal ignoring depth/range: %+v vs %+v", a, b)
	}

	c := Format{Type: F32, Depth: 8, FullRange: false, Chroma: true}
	if a.Equal(c) {
		t.Fatalf("float formats with different Chroma should not be equal")
	}
}

func TestFormatEqualIntegerFields(t *testing.T) {
	a := Format{Type: U8, Depth: 8, FullRange: false}
	b := Format{Type: U8, Depth: 8, FullRange: true}
	if a.Equal(b) {
		t.Fatalf("integer formats differing in range should not be equal")
	}
}

func TestAttributesValidate(t *testing.T) {
	cases := []struct {
		attrs   Attributes
		wantErr bool
	}{
		{Attributes{Width: 1920, Height: 1080, PixelType: U8}, false},
		{Attributes{Width: 0, Height: 1080, PixelType: U8}, true},
		{Attributes{Width: 1920, Height: 0, PixelType: U8}, true},
		{Attributes{Width: 1 << 30, Height: 1, PixelType: U8}, true},
	}
	for _, c := range cases {
		err := c.attrs.Validate()
		if (err != nil) != c.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", c.attrs, err, c.wantErr)
		}
	}
}

func TestMaskValidate(t *testing.T) {
	cases := []struct {
		mask    Mask
		wantErr bool
	}{
		{Mask{true, true, true, true}, false},
		{Mask{true, false, false, false}, false},
		{Mask{false, false, false, false}, true},
		{Mask{true, true, false, false}, true},
	}
	for _, c := range cases {
		err := c.mask.Validate()
		if (err != nil) != c.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", c.mask, err, c.wantErr)
		}
	}
}

func TestMaskSubset(t *testing.T) {
	full := Mask{true, true, true, true}
	yOnly := Mask{true, false, false, false}
	if !yOnly.Subset(full) {
		t.Fatalf("yOnly should be a subset of full")
	}
	if full.Subset(yOnly) {
		t.Fatalf("full should not be a subset of yOnly")
	}
}

func TestTypeMaxWidthOrdering(t *testing.T) {
	if U8.MaxWidth() <= 0 || F32.MaxWidth() <= 0 {
		t.Fatalf("MaxWidth must be positive")
	}
	if U8.MaxWidth() <= F32.MaxWidth() {
		t.Fatalf("narrower samples must allow wider images: U8 %d vs F32 %d", U8.MaxWidth(), F32.MaxWidth())
	}
}
