package graph

import (
	"go.uber.org/zap"

	"github.com/sekrit-twc/zimg/filter"
	"github.com/sekrit-twc/zimg/pixel"
	"github.com/sekrit-twc/zimg/zimgerr"
)

// NodeID indexes the flat node table a FilterGraph owns. Nodes never
// hold direct references to one another: every parent/child relationship
// is a NodeID, resolved through the graph's node slice.
type NodeID int32

// invalidNode marks an unused parent slot (a plane the node does not read).
const invalidNode NodeID = -1

func singlePlaneMask(p pixel.Plane) pixel.Mask {
	var m pixel.Mask
	m[p] = true
	return m
}

// node is one stage of the graph: either a source (f == nil, presents the
// caller's input buffer) or a wrapped filter.Filter writing one or more
// planes (three for a Color filter, one otherwise).
type node struct {
	id       NodeID
	f        filter.Filter
	parent   [4]NodeID // per plane.Plane slot, invalidNode if unread
	mask     pixel.Mask
	attr     pixel.Attributes // this node's own output geometry
	isSource bool
	isSink   bool // true once Complete() designates this the terminal node for its plane(s)
	adopted  bool // true if this sink writes directly into the caller's destination buffer

	cacheHistory int
	rowMask      uint32
}

func (n *node) inPlace() bool {
	return n.f != nil && n.f.Flags().InPlace
}

func (n *node) color() bool {
	return n.f != nil && n.f.Flags().Color
}

func (n *node) simultaneousLines() int {
	if n.f == nil {
		return 1
	}
	return n.f.SimultaneousLines()
}

// FilterGraph is a directed acyclic graph of filter stages: a source node per
// present plane, a chain of filter nodes per plane (merging into shared
// nodes wherever a Color filter consumes all three color planes at once),
// and a sink determined at Complete() time. Construction is append-only;
// Complete() runs the chroma-consistency check, the in-place aliasing
// request, and the two-pass cache-history simulation, after which the
// graph is immutable and ExecutionState instances may be built against it
// repeatedly.
type FilterGraph struct {
	nodes   []*node
	heads   [4]NodeID // current producing node per plane, consulted while appending
	present pixel.Mask

	completed bool
	tmpSize   int
	log       *zap.Logger
}

// NewSource creates a FilterGraph whose source nodes present attrs[p] for
// every plane p set in mask. attrs[PlaneY] is mandatory; the others are
// read only where mask marks them present.
func NewSource(attrs [4]pixel.Attributes, mask pixel.Mask, log *zap.Logger) (*FilterGraph, error) {
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	g := &FilterGraph{present: mask, log: log}
	for p := 0; p < 4; p++ {
		g.heads[p] = invalidNode
		if !mask[p] {
			continue
		}
		if err := attrs[p].Validate(); err != nil {
			return nil, err
		}
		n := &node{
			id:       NodeID(len(g.nodes)),
			isSource: true,
			mask:     singlePlaneMask(pixel.Plane(p)),
			attr:     attrs[p],
			parent:   [4]NodeID{invalidNode, invalidNode, invalidNode, invalidNode},
		}
		g.nodes = append(g.nodes, n)
		g.heads[p] = n.id
	}
	g.log.Debug("filter graph source created", zap.Any("mask", mask))
	return g, nil
}

// Head returns the node currently producing plane p (for the builder to
// validate chaining compatibility before appending the next stage).
func (g *FilterGraph) Head(p pixel.Plane) NodeID { return g.heads[p] }

// HeadAttributes returns the output attributes of the node currently
// producing plane p.
func (g *FilterGraph) HeadAttributes(p pixel.Plane) pixel.Attributes {
	return g.nodes[g.heads[p]].attr
}

// AppendPlane chains f onto the single plane p, requiring f's declared
// InputFormat to match the current head's output geometry exactly in
// type, width, and height.
func (g *FilterGraph) AppendPlane(p pixel.Plane, f filter.Filter) (NodeID, error) {
	if g.completed {
		return invalidNode, zimgerr.New(zimgerr.EnumOutOfRange, "cannot append to a completed graph")
	}
	head := g.heads[p]
	if head == invalidNode {
		return invalidNode, zimgerr.New(zimgerr.ColorFamilyMismatch, "plane %d is not present in this graph", p)
	}
	parentAttr := g.nodes[head].attr
	in := f.InputFormat()
	if in.Width != parentAttr.Width || in.Height != parentAttr.Height || in.PixelType != parentAttr.PixelType {
		return invalidNode, zimgerr.New(zimgerr.ColorFamilyMismatch,
			"filter input %+v does not match parent plane %d output %+v", in, p, parentAttr)
	}
	n := &node{
		id:     NodeID(len(g.nodes)),
		f:      f,
		mask:   singlePlaneMask(p),
		attr:   f.OutputFormat(),
		parent: [4]NodeID{invalidNode, invalidNode, invalidNode, invalidNode},
	}
	n.parent[p] = head
	g.nodes = append(g.nodes, n)
	g.heads[p] = n.id
	return n.id, nil
}

// AppendColor chains a Color filter onto the Y/U/V heads simultaneously,
// requiring all three color planes present at the head with matching
// attributes.
func (g *FilterGraph) AppendColor(f filter.Filter) (NodeID, error) {
	if g.completed {
		return invalidNode, zimgerr.New(zimgerr.EnumOutOfRange, "cannot append to a completed graph")
	}
	if !f.Flags().Color {
		return invalidNode, zimgerr.New(zimgerr.EnumOutOfRange, "AppendColor requires a filter with the Color flag set")
	}
	yh, uh, vh := g.heads[pixel.PlaneY], g.heads[pixel.PlaneU], g.heads[pixel.PlaneV]
	if yh == invalidNode || uh == invalidNode || vh == invalidNode {
		return invalidNode, zimgerr.New(zimgerr.ColorFamilyMismatch, "color filter requires Y, U, and V all present")
	}
	ya, ua, va := g.nodes[yh].attr, g.nodes[uh].attr, g.nodes[vh].attr
	if ya != ua || ya != va {
		return invalidNode, zimgerr.New(zimgerr.ColorFamilyMismatch,
			"color filter requires matching Y/U/V attributes, got %+v/%+v/%+v", ya, ua, va)
	}
	in := f.InputFormat()
	if in.Width != ya.Width || in.Height != ya.Height || in.PixelType != ya.PixelType {
		return invalidNode, zimgerr.New(zimgerr.ColorFamilyMismatch, "filter input %+v does not match color head %+v", in, ya)
	}
	n := &node{
		id:     NodeID(len(g.nodes)),
		f:      f,
		mask:   pixel.Mask{pixel.PlaneY: true, pixel.PlaneU: true, pixel.PlaneV: true},
		attr:   f.OutputFormat(),
		parent: [4]NodeID{yh, uh, vh, invalidNode},
	}
	g.nodes = append(g.nodes, n)
	g.heads[pixel.PlaneY] = n.id
	g.heads[pixel.PlaneU] = n.id
	g.heads[pixel.PlaneV] = n.id
	return n.id, nil
}

// subsampleRatioOK checks that a/b is a power of two in {1,2,4}, the
// supported chroma subsampling ratios.
func subsampleRatioOK(a, b int) bool {
	if a <= 0 || b <= 0 || a%b != 0 {
		return false
	}
	ratio := a / b
	return ratio == 1 || ratio == 2 || ratio == 4
}

// Complete runs the terminal construction steps: chroma-consistency
// check, in-place-aliasing request, and the cache-history simulation that
// derives each node's circular-buffer row mask. After Complete succeeds
// the graph is read-only and ExecutionState instances can be built from
// it concurrently.
func (g *FilterGraph) Complete() error {
	if g.completed {
		return nil
	}
	if g.present.HasChroma() {
		ya := g.nodes[g.heads[pixel.PlaneY]].attr
		ua := g.nodes[g.heads[pixel.PlaneU]].attr
		if !subsampleRatioOK(ya.Width, ua.Width) || !subsampleRatioOK(ya.Height, ua.Height) {
			return zimgerr.New(zimgerr.UnsupportedSubsampling,
				"luma/chroma dimensions %+v vs %+v are not related by a power-of-two ratio in {1,2,4}", ya, ua)
		}
	}

	seen := make(map[NodeID]int)
	for p := 0; p < 4; p++ {
		if g.present[p] {
			seen[g.heads[p]]++
		}
	}

	// In-place request: a node may adopt the eventual
	// destination buffer directly if its filter is InPlace, it is not
	// itself a source, no other plane slot shares it, and its plane mask
	// is a subset of the planes actually present.
	for p := 0; p < 4; p++ {
		if !g.present[p] {
			continue
		}
		head := g.nodes[g.heads[p]]
		if head.inPlace() && !head.isSource && seen[head.id] <= 1 && head.mask.Subset(g.present) {
			head.adopted = true
		}
	}

	// Insert a defensive Copy ahead of any terminal node that is itself a
	// source, or shared by more than one plane slot (a Color filter head),
	// so execution never aliases the caller's source buffer into the
	// caller's destination buffer. Copy is itself
	// InPlace, so the inserted node adopts the destination directly.
	for p := 0; p < 4; p++ {
		if !g.present[p] {
			continue
		}
		head := g.nodes[g.heads[p]]
		if head.isSource || seen[head.id] > 1 {
			cp, err := g.AppendPlane(pixel.Plane(p), filter.NewCopy(head.attr))
			if err != nil {
				return err
			}
			g.nodes[cp].adopted = true
		}
	}

	for p := 0; p < 4; p++ {
		if g.present[p] {
			g.nodes[g.heads[p]].isSink = true
		}
	}

	g.simulate()
	g.computeTmpSize()
	g.completed = true
	g.log.Debug("filter graph completed", zap.Int("nodes", len(g.nodes)), zap.Int("tmp_size", g.tmpSize))
	return nil
}

// rowRangeUnion returns the smallest [lo,hi) containing f.RequiredRowRange
// for every row in [lo0,hi0).
func rowRangeUnion(f filter.Filter, lo0, hi0 int) (int, int) {
	lo, hi := -1, -1
	for i := lo0; i < hi0; i++ {
		r := f.RequiredRowRange(i)
		if lo == -1 || r.First < lo {
			lo = r.First
		}
		if hi == -1 || r.Second > hi {
			hi = r.Second
		}
	}
	if lo == -1 {
		return lo0, hi0
	}
	return lo, hi
}

// rowGroups returns the row-group structure execution walks: the group
// step in luma rows and, per present plane, the luma-to-plane height
// ratio. The ratios are powers of two by the Complete()-time subsampling
// check.
func (g *FilterGraph) rowGroups() (step int, ratio [4]int) {
	lumaH := g.nodes[g.heads[pixel.PlaneY]].attr.Height
	step = 1
	for p := 0; p < 4; p++ {
		if !g.present[p] {
			continue
		}
		ratio[p] = lumaH / g.nodes[g.heads[p]].attr.Height
		if ratio[p] < 1 {
			ratio[p] = 1
		}
		if ratio[p] > step {
			step = ratio[p]
		}
	}
	return step, ratio
}

// simulate performs the dry-run pass: it drives every
// sink forward one row group at a time (without touching pixel data),
// exactly mirroring the execution order, and records for each node the
// widest window between the oldest row a request still needs and the
// newest row the node has been driven to. Interleaved sinks sharing an
// upstream node can leave it driven ahead of a later consumer; tracking a
// simulated cursor per node captures that skew in cacheHistory.
func (g *FilterGraph) simulate() {
	cursor := make([]int, len(g.nodes))

	var walk func(id NodeID, lo, hi int)
	walk = func(id NodeID, lo, hi int) {
		n := g.nodes[id]
		gran := n.simultaneousLines()
		hi = ((hi + gran - 1) / gran) * gran
		if hi > n.attr.Height {
			hi = n.attr.Height
		}
		if lo < 0 {
			lo = 0
		}
		if lo >= hi {
			lo = hi - 1
		}
		newCur := hi
		if c := cursor[id]; c > newCur {
			newCur = c
		}
		if w := newCur - lo; w > n.cacheHistory {
			n.cacheHistory = w
		}
		cursor[id] = newCur
		if n.isSource {
			return
		}
		plo, phi := rowRangeUnion(n.f, lo, hi)
		for _, pid := range n.parent {
			if pid == invalidNode {
				continue
			}
			walk(pid, plo, phi)
		}
	}

	step, ratio := g.rowGroups()
	lumaH := g.nodes[g.heads[pixel.PlaneY]].attr.Height
	done := [4]int{}
	for i := 0; i < lumaH; i += step {
		for p := 0; p < 4; p++ {
			if !g.present[p] {
				continue
			}
			sink := g.nodes[g.heads[p]]
			target := (i + step) / ratio[p]
			if target > sink.attr.Height {
				target = sink.attr.Height
			}
			if target <= done[p] {
				continue
			}
			walk(sink.id, done[p], target)
			done[p] = target
		}
	}
	for _, n := range g.nodes {
		if n.isSource || (n.isSink && n.adopted) {
			// Sources present the caller's buffer; adopted sinks write
			// straight into the caller's destination. Neither allocates
			// a circular window of its own.
			n.rowMask = BufferMax
			continue
		}
		m := MaskOf(n.cacheHistory, false)
		if int(m)+1 >= n.attr.Height {
			m = BufferMax
		}
		n.rowMask = m
	}
}

// computeTmpSize sizes the shared scratch buffer at the max over nodes
// of filter.TmpSize() so Run never allocates scratch.
func (g *FilterGraph) computeTmpSize() {
	max := 0
	for _, n := range g.nodes {
		if n.f == nil {
			continue
		}
		if s := n.f.TmpSize(); s > max {
			max = s
		}
	}
	g.tmpSize = max
}

// TmpSize returns the scratch-buffer size an ExecutionState needs.
func (g *FilterGraph) TmpSize() int {
	return g.tmpSize
}

// NodeCount returns the number of nodes in the graph, for diagnostics.
func (g *FilterGraph) NodeCount() int { return len(g.nodes) }
