package filter

import "github.com/sekrit-twc/zimg/pixel"

// Mux lifts a single-plane filter into a color filter: the wrapped
// filter runs once per color plane with its own third of the persistent
// context. The graph hands a color filter exactly one input row per
// plane, so only same-row filters can be lifted; NewMux enforces that.
type Mux struct {
	inner Filter
}

func NewMux(inner Filter) *Mux {
	if !inner.Flags().SameRow {
		panic("filter: Mux requires a same-row inner filter")
	}
	return &Mux{inner: inner}
}

func (m *Mux) Flags() Flags {
	f := m.inner.Flags()
	f.Color = true
	return f
}

func (m *Mux) InputFormat() pixel.Attributes  { return m.inner.InputFormat() }
func (m *Mux) OutputFormat() pixel.Attributes { return m.inner.OutputFormat() }

func (m *Mux) RequiredRowRange(i int) Point { return m.inner.RequiredRowRange(i) }
func (m *Mux) RequiredColRange(left, right int) Point {
	return m.inner.RequiredColRange(left, right)
}

func (m *Mux) SimultaneousLines() int { return m.inner.SimultaneousLines() }
func (m *Mux) ContextSize() int       { return 3 * m.inner.ContextSize() }
func (m *Mux) TmpSize() int           { return m.inner.TmpSize() }

func (m *Mux) InitContext(ctx []byte) {
	cs := m.inner.ContextSize()
	if cs == 0 {
		return
	}
	for p := 0; p < 3; p++ {
		m.inner.InitContext(ctx[p*cs : (p+1)*cs])
	}
}

func (m *Mux) Process(ctx, tmp []byte, src, dst [][]byte, i, left, right int) {
	cs := m.inner.ContextSize()
	for p := 0; p < len(src); p++ {
		var pctx []byte
		if cs > 0 {
			pctx = ctx[p*cs : (p+1)*cs]
		}
		m.inner.Process(pctx, tmp, src[p:p+1], dst[p:p+1], i, left, right)
	}
}
