package filter

import "github.com/sekrit-twc/zimg/pixel"

// Copy is the identity filter: it reproduces its input unchanged. The
// graph builder inserts it whenever two stages would otherwise need to
// alias the same buffer, or when the source and target formats are
// already identical end to end.
type Copy struct {
	Attr pixel.Attributes
}

func NewCopy(attr pixel.Attributes) *Copy {
	return &Copy{Attr: attr}
}

func (c *Copy) Flags() Flags {
	return Flags{SameRow: true, InPlace: true}
}

func (c *Copy) InputFormat() pixel.Attributes  { return c.Attr }
func (c *Copy) OutputFormat() pixel.Attributes { return c.Attr }

func (c *Copy) RequiredRowRange(i int) Point { return Point{i, i + 1} }
func (c *Copy) RequiredColRange(left, right int) Point {
	return Point{left, right}
}

func (c *Copy) SimultaneousLines() int { return 1 }
func (c *Copy) ContextSize() int       { return 0 }
func (c *Copy) TmpSize() int           { return 0 }
func (c *Copy) InitContext(ctx []byte) {}

func (c *Copy) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	bw := c.Attr.PixelType.ByteWidth()
	copy(dst[0][left*bw:right*bw], src[0][left*bw:right*bw])
}
