package graph

import (
	"github.com/sekrit-twc/zimg/internal/pool"
	"github.com/sekrit-twc/zimg/pixel"
	"github.com/sekrit-twc/zimg/zimgerr"
)

// Execution tiling constants: strips default to HStep columns, aligned
// down to a multiple of Align, but the final strip of an image is never
// narrower than TileMin.
const (
	HStep = 512
	Align = 32
	TileMin = 64
)

// strips partitions [0, width) into column ranges of at most HStep width,
// folding a final remainder narrower than TileMin into the preceding strip
// rather than emitting a too-small tail strip.
func strips(width int) [][2]int {
	if width <= 0 {
		return nil
	}
	if width <= HStep {
		return [][2]int{{0, width}}
	}
	var out [][2]int
	left := 0
	for left < width {
		right := left + HStep
		if right >= width {
			right = width
		} else if width-right < TileMin {
			right = width
		}
		out = append(out, [2]int{left, right})
		left = right
	}
	return out
}

// UnpackFunc is invoked by a source node before it presents rows
// [rowStart, rowStart+rowCount) of the given plane. May be called more
// than once for the same rows across different column strips.
type UnpackFunc func(plane pixel.Plane, rowStart, rowCount int) error

// PackFunc is invoked exactly once per output row of the given plane,
// after the full row (every column strip) has been written. Callers may
// rely on seeing each output row exactly once.
type PackFunc func(plane pixel.Plane, rowStart, rowCount int) error

func onlyPlane(m pixel.Mask) pixel.Plane {
	for p := 0; p < 4; p++ {
		if m[p] {
			return pixel.Plane(p)
		}
	}
	panic("graph: empty plane mask")
}

// ExecutionState is the per-call mutable state: a table of per-node
// circular buffers, a table of per-node context byte slices, and
// per-node cursors, bound to one pair of caller-supplied source and
// destination buffers and destroyed when execution completes. Filter
// contexts and the FilterGraph itself are immutable and may be shared
// across concurrently running ExecutionStates on different goroutines.
type ExecutionState struct {
	g      *FilterGraph
	buf    [][4]Buffer // per node id, per plane it writes
	ctx    [][]byte    // per node id
	cursor []int       // per node id
	src    [4]Buffer
	dst    [4]Buffer
	unpack UnpackFunc
	pack   PackFunc
	tmp    []byte
	pooled [][]byte // circular-buffer backing slices, returned on Release
}

// NewExecutionState builds an ExecutionState over a completed graph. src
// and dst hold one Buffer per plane the graph's source/sink present
// (unused plane slots are ignored). tmp must be at least g.TmpSize()
// bytes; the caller owns its allocation and the engine never allocates
// scratch during Run.
func NewExecutionState(g *FilterGraph, src, dst [4]Buffer, unpack UnpackFunc, pack PackFunc, tmp []byte) (*ExecutionState, error) {
	if !g.completed {
		return nil, zimgerr.New(zimgerr.EnumOutOfRange, "graph must be completed before execution")
	}
	if len(tmp) < g.tmpSize {
		return nil, zimgerr.New(zimgerr.OutOfMemory, "tmp buffer is %d bytes, graph requires %d", len(tmp), g.tmpSize)
	}
	es := &ExecutionState{
		g:      g,
		buf:    make([][4]Buffer, len(g.nodes)),
		ctx:    make([][]byte, len(g.nodes)),
		cursor: make([]int, len(g.nodes)),
		src:    src,
		dst:    dst,
		unpack: unpack,
		pack:   pack,
		tmp:    tmp,
	}
	for _, n := range g.nodes {
		if n.isSource {
			es.buf[n.id][onlyPlane(n.mask)] = src[onlyPlane(n.mask)]
			continue
		}
		if n.isSink && n.adopted {
			p := onlyPlane(n.mask)
			es.buf[n.id][p] = dst[p]
		} else {
			bw := n.attr.PixelType.ByteWidth()
			stride := n.attr.Width * bw
			for p := 0; p < 4; p++ {
				if !n.mask[p] {
					continue
				}
				rows := int(n.rowMask) + 1
				if n.rowMask == BufferMax {
					rows = n.attr.Height
				}
				backing := pool.Get(rows * stride)
				es.pooled = append(es.pooled, backing)
				es.buf[n.id][p] = NewBuffer(backing, stride, n.rowMask)
			}
		}
		if cs := n.f.ContextSize(); cs > 0 {
			es.ctx[n.id] = make([]byte, cs)
			n.f.InitContext(es.ctx[n.id])
		}
	}
	return es, nil
}

// Release returns the pooled circular-buffer storage. The ExecutionState
// must not be used afterwards; the graph itself stays valid and new
// states can be built from it.
func (es *ExecutionState) Release() {
	for _, b := range es.pooled {
		pool.Put(b)
	}
	es.pooled = nil
	es.buf = nil
}

// parentPlane resolves which plane slot of a parent node's buffer a
// consumer of plane p reads: a Color parent keeps one buffer per plane it
// writes, while a single-plane parent stores its output under its own
// (sole) plane slot.
func (es *ExecutionState) parentPlane(pid NodeID, p pixel.Plane) pixel.Plane {
	pn := es.g.nodes[pid]
	if pn.color() {
		return p
	}
	return onlyPlane(pn.mask)
}

// resetStrip zeroes every node's cursor at the start of a column strip.
func (es *ExecutionState) resetStrip() {
	for i := range es.cursor {
		es.cursor[i] = 0
	}
}

// generate pulls node id forward until its cursor reaches target,
// recursing into parents as needed, restricted to columns [left, right).
// A cursor already at or past target is a no-op, so concurrent requests
// against a shared node from different branches re-enter safely.
func (es *ExecutionState) generate(id NodeID, target, left, right int) error {
	n := es.g.nodes[id]
	if n.isSource {
		if target > es.cursor[id] {
			if es.unpack != nil {
				if err := es.unpack(onlyPlane(n.mask), es.cursor[id], target-es.cursor[id]); err != nil {
					return zimgerr.Wrap(zimgerr.UserCallbackFailed, err, "unpack callback failed")
				}
			}
			es.cursor[id] = target
		}
		return nil
	}
	for es.cursor[id] < target {
		i := es.cursor[id]
		colLeft, colRight := clampRange(left, right, n.attr.Width)

		// Parent column footprint: EntireRow filters consume the whole
		// parent row; everything else declares its exact input range.
		// Each recursion level re-clamps against its own node's width.
		var pl, pr int
		if n.f.Flags().EntireRow {
			pl, pr = 0, int(^uint32(0)>>1)
		} else {
			cr := n.f.RequiredColRange(colLeft, colRight)
			pl, pr = cr.First, cr.Second
		}

		var srcRows [][]byte
		if n.color() {
			srcRows = make([][]byte, 0, 3)
			for p := 0; p < 4; p++ {
				pid := n.parent[p]
				if pid == invalidNode {
					continue
				}
				if err := es.generate(pid, i+1, pl, pr); err != nil {
					return err
				}
				srcRows = append(srcRows, es.buf[pid][es.parentPlane(pid, pixel.Plane(p))].Row(i))
			}
		} else {
			plane := onlyPlane(n.mask)
			parentID := n.parent[plane]
			rr := n.f.RequiredRowRange(i)
			if err := es.generate(parentID, rr.Second, pl, pr); err != nil {
				return err
			}
			pp := es.parentPlane(parentID, plane)
			srcRows = make([][]byte, rr.Second-rr.First)
			for k := range srcRows {
				srcRows[k] = es.buf[parentID][pp].Row(rr.First + k)
			}
		}

		var dstRows [][]byte
		for p := 0; p < 4; p++ {
			if n.mask[p] {
				dstRows = append(dstRows, es.buf[id][p].Row(i))
			}
		}

		n.f.Process(es.ctx[id], es.tmp, srcRows, dstRows, i, colLeft, colRight)
		es.cursor[id] = i + 1
	}
	return nil
}

func clampRange(left, right, width int) (int, int) {
	if left < 0 {
		left = 0
	}
	if right > width {
		right = width
	}
	if right < left {
		right = left
	}
	return left, right
}

func copyRow(dst, src []byte, left, right, byteWidth int) {
	lo, hi := left*byteWidth, right*byteWidth
	copy(dst[lo:hi], src[lo:hi])
}

// Run executes the graph end to end: for each column strip, every node's
// cursor is reset and the sinks are driven forward one row group at a
// time, all planes interleaved within the group, pulling each dependency
// chain on demand. The group step is the luma
// rows covered by one chroma row, so a node shared between planes is
// never driven further ahead of a consumer than the simulation pass
// accounted for. Column strips are derived from the luma plane's width
// and scaled proportionally for subsampled chroma.
func (es *ExecutionState) Run() error {
	g := es.g
	lumaID := g.heads[pixel.PlaneY]
	lumaWidth := g.nodes[lumaID].attr.Width
	if lumaWidth == 0 {
		return nil
	}
	tiles := strips(lumaWidth)
	// Stateful and EntireRow stages must see each output row exactly
	// once over its full width; their presence collapses execution to a
	// single full-width strip.
	for _, n := range g.nodes {
		if n.f == nil {
			continue
		}
		if fl := n.f.Flags(); fl.Stateful || fl.EntireRow {
			tiles = [][2]int{{0, lumaWidth}}
			break
		}
	}
	step, ratio := g.rowGroups()
	lumaH := g.nodes[g.heads[pixel.PlaneY]].attr.Height

	for _, strip := range tiles {
		es.resetStrip()
		last := strip[1] == lumaWidth
		var done [4]int
		for i := 0; i < lumaH; i += step {
			for p := 0; p < 4; p++ {
				if !g.present[p] {
					continue
				}
				sinkID := g.heads[p]
				sink := g.nodes[sinkID]
				left := strip[0] * sink.attr.Width / lumaWidth
				right := strip[1] * sink.attr.Width / lumaWidth
				if last {
					right = sink.attr.Width
				}
				target := (i + step) / ratio[p]
				if target > sink.attr.Height {
					target = sink.attr.Height
				}
				if target <= done[p] {
					continue
				}
				if err := es.generate(sinkID, target, left, right); err != nil {
					return err
				}
				bw := sink.attr.PixelType.ByteWidth()
				for row := done[p]; row < target; row++ {
					if !sink.adopted {
						copyRow(es.dst[p].Row(row), es.buf[sinkID][p].Row(row), left, right, bw)
					}
				}
				if last && es.pack != nil {
					if err := es.pack(pixel.Plane(p), done[p], target-done[p]); err != nil {
						return zimgerr.Wrap(zimgerr.UserCallbackFailed, err, "pack callback failed")
					}
				}
				done[p] = target
			}
		}
	}
	return nil
}
