package colorspace

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/sekrit-twc/zimg/zimgerr"
)

// OperationKind identifies the numeric transform an Edge represents, so
// callers (filter/gamut.go, filter/matrix.go, filter/transfer.go,
// filter/cl2020.go) can build the concrete per-pixel operation without the
// colorspace package needing to depend on the filter package.
type OperationKind int

const (
	OpRGBToYUV OperationKind = iota
	OpYUVToRGB
	OpForwardTransfer
	OpInverseTransfer
	OpGamut
	OpCL2020Encode
	OpCL2020Decode
)

// Edge is one directed transition in the colorspace graph: from vertex To
// vertex, with the numeric OperationKind needed to realize it and the
// matrix coefficients argument that identifies which matrix/transfer
// constant applies (the caller interprets Arg against Kind).
type Edge struct {
	From, To Triple
	Kind     OperationKind
	// Arg carries the matrix/transfer/primaries enum value the operation
	// needs, e.g. the YUV matrix for OpRGBToYUV, or the source primaries
	// for OpGamut (the destination is To.Primaries).
	Arg int
}

// Graph is the immutable, process-wide colorspace vertex/edge table,
// built once and read thereafter.
type Graph struct {
	vertices []Triple
	vertexID map[Triple]int64
	edges    []Edge // insertion order, for deterministic BFS tie-breaking
	g        *simple.DirectedGraph
	adj      map[int64][]graph.Node // out-neighbors in edge-insertion order
	edgeOf   map[[2]int64]Edge
	log      *zap.Logger
}

// allMatrices/allTransfers/allPrimaries enumerate the values considered
// when building vertices.
var allMatrices = []Matrix{
	MatrixRGB, MatrixBT709, MatrixFCC, MatrixBT470BG, MatrixSMPTE170M,
	MatrixSMPTE240M, MatrixYCgCo, MatrixBT2020NCL, MatrixBT2020CL,
}

var allTransfers = []Transfer{
	TransferBT709, TransferBT470M, TransferBT470BG, TransferSMPTE170M,
	TransferSMPTE240M, TransferLinear, TransferLog100, TransferLog100Sqrt10,
	TransferIEC61966, TransferBT1361, TransferSRGB, TransferBT2020_10,
	TransferBT2020_12, TransferST2084, TransferSMPTE428, TransferARIB_B67,
}

var allPrimaries = []Primaries{
	PrimariesBT709, PrimariesBT470M, PrimariesBT470BG, PrimariesSMPTE170M,
	PrimariesSMPTE240M, PrimariesFilm, PrimariesBT2020, PrimariesST428,
	PrimariesP3DCI, PrimariesP3Display,
}

// NewGraph builds the colorspace vertex/edge table. log may
// be nil, in which case a no-op logger is used.
func NewGraph(log *zap.Logger) *Graph {
	if log == nil {
		log = zap.NewNop()
	}
	gr := &Graph{
		vertexID: make(map[Triple]int64),
		g:        simple.NewDirectedGraph(),
		adj:      make(map[int64][]graph.Node),
		edgeOf:   make(map[[2]int64]Edge),
		log:      log,
	}
	gr.buildVertices()
	gr.buildEdges()
	log.Debug("colorspace graph built", zap.Int("vertices", len(gr.vertices)), zap.Int("edges", len(gr.edges)))
	return gr
}

func (gr *Graph) addVertex(t Triple) int64 {
	if id, ok := gr.vertexID[t]; ok {
		return id
	}
	id := int64(len(gr.vertices))
	gr.vertices = append(gr.vertices, t)
	gr.vertexID[t] = id
	gr.g.AddNode(simple.Node(id))
	return id
}

func (gr *Graph) buildVertices() {
	// UNSPECIFIED/UNSPECIFIED/UNSPECIFIED is itself a (degenerate) vertex.
	gr.addVertex(Triple{})

	for _, m := range allMatrices {
		if m == MatrixRGB {
			for _, t := range allTransfers {
				if t == TransferUnspecified {
					continue
				}
				for _, p := range allPrimaries {
					tr := Triple{Matrix: MatrixRGB, Transfer: t, Primaries: p}
					if tr.Validate() == nil {
						gr.addVertex(tr)
					}
				}
			}
			continue
		}
		for _, t := range allTransfers {
			for _, p := range allPrimaries {
				tr := Triple{Matrix: m, Transfer: t, Primaries: p}
				if tr.Validate() == nil {
					gr.addVertex(tr)
				}
			}
		}
	}
}

func (gr *Graph) addEdge(from, to Triple, kind OperationKind, arg int) {
	fromID, ok := gr.vertexID[from]
	if !ok {
		return
	}
	toID, ok := gr.vertexID[to]
	if !ok {
		return
	}
	key := [2]int64{fromID, toID}
	e := Edge{From: from, To: to, Kind: kind, Arg: arg}
	gr.edges = append(gr.edges, e)
	gr.g.SetEdge(simple.Edge{F: simple.Node(fromID), T: simple.Node(toID)})
	if _, dup := gr.edgeOf[key]; !dup {
		gr.adj[fromID] = append(gr.adj[fromID], simple.Node(toID))
	}
	gr.edgeOf[key] = e
}

// buildEdges registers, for every vertex, the direct conversions that
// exist out of it: RGB vertices fan out to the YUV matrices and (when
// linear) to other transfers and primaries; YUV vertices decode back to
// RGB; constant-luminance 2020 gets its dedicated encoder and decoder.
func (gr *Graph) buildEdges() {
	for _, v := range gr.vertices {
		v := v
		if v.Matrix == MatrixRGB {
			for _, m := range allMatrices {
				if m == MatrixRGB || m == MatrixBT2020CL {
					continue
				}
				dst := Triple{Matrix: m, Transfer: v.Transfer, Primaries: v.Primaries}
				if dst.Validate() == nil {
					gr.addEdge(v, dst, OpRGBToYUV, int(m))
				}
			}
			if v.Transfer == TransferLinear {
				dst := Triple{Matrix: MatrixBT2020CL, Transfer: TransferBT709, Primaries: v.Primaries}
				if dst.Validate() == nil {
					gr.addEdge(v, dst, OpCL2020Encode, 0)
				}
			}

			if v.Transfer == TransferLinear {
				for _, t := range allTransfers {
					if t == TransferUnspecified || t == TransferLinear {
						continue
					}
					dst := Triple{Matrix: MatrixRGB, Transfer: t, Primaries: v.Primaries}
					if dst.Validate() == nil {
						gr.addEdge(v, dst, OpInverseTransfer, int(t))
					}
				}
				for _, p := range allPrimaries {
					if p == v.Primaries {
						continue
					}
					dst := Triple{Matrix: MatrixRGB, Transfer: TransferLinear, Primaries: p}
					if dst.Validate() == nil {
						gr.addEdge(v, dst, OpGamut, int(v.Primaries))
					}
				}
			} else if v.Transfer != TransferUnspecified {
				dst := Triple{Matrix: MatrixRGB, Transfer: TransferLinear, Primaries: v.Primaries}
				if dst.Validate() == nil {
					gr.addEdge(v, dst, OpForwardTransfer, int(v.Transfer))
				}
			}
		} else if v.Matrix != MatrixUnspecified {
			if v.Matrix == MatrixBT2020CL {
				dst := Triple{Matrix: MatrixRGB, Transfer: TransferLinear, Primaries: v.Primaries}
				if dst.Validate() == nil {
					gr.addEdge(v, dst, OpCL2020Decode, 0)
				}
			} else {
				dst := Triple{Matrix: MatrixRGB, Transfer: v.Transfer, Primaries: v.Primaries}
				if dst.Validate() == nil {
					gr.addEdge(v, dst, OpYUVToRGB, int(v.Matrix))
				}
			}
		}
	}
}

// AddEdge registers an extra conversion edge between two triples, adding
// them as vertices first if the default construction did not. This is the
// extension point for conversions the default table deliberately omits
// (ICtCp, whose matrix constants ship without default edges). Must be
// called before the Graph is shared across goroutines.
func (gr *Graph) AddEdge(from, to Triple, kind OperationKind, arg int) error {
	if err := from.Validate(); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return err
	}
	gr.addVertex(from)
	gr.addVertex(to)
	gr.addEdge(from, to, kind, arg)
	return nil
}

// Vertices returns the process-wide vertex set.
func (gr *Graph) Vertices() []Triple { return append([]Triple(nil), gr.vertices...) }

// orderedView adapts the Graph for traverse.BreadthFirst with neighbor
// iteration in edge-insertion order. simple.DirectedGraph's own From()
// iterates a map and is explicitly randomized, which would make BFS
// tie-breaking vary between runs; the adjacency slices preserve the
// order buildEdges (and AddEdge) registered the edges in, so ties always
// resolve to the earliest-inserted edge.
type orderedView struct {
	gr *Graph
}

func (v orderedView) From(id int64) graph.Nodes {
	return iterator.NewOrderedNodes(v.gr.adj[id])
}

func (v orderedView) Edge(uid, vid int64) graph.Edge {
	return v.gr.g.Edge(uid, vid)
}

// FindPath runs breadth-first search from src to dst and returns the
// ordered list of edges to traverse. An empty, nil-error
// result means src == dst (a copy stage is inserted elsewhere by the
// caller). Edges are visited in insertion order, so two calls with the
// same endpoints always yield the same path.
func (gr *Graph) FindPath(src, dst Triple) ([]Edge, error) {
	if src.Equal(dst) {
		return nil, nil
	}
	srcID, ok := gr.vertexID[src]
	if !ok {
		return nil, zimgerr.New(zimgerr.EnumOutOfRange, "source colorspace %+v is not a valid vertex", src)
	}
	dstID, ok := gr.vertexID[dst]
	if !ok {
		return nil, zimgerr.New(zimgerr.EnumOutOfRange, "target colorspace %+v is not a valid vertex", dst)
	}

	parent := make(map[int64]int64)

	bfs := traverse.BreadthFirst{
		// Traverse sees every candidate edge, including ones into
		// already-visited nodes; only the first sighting of a node
		// records its parent.
		Traverse: func(e graph.Edge) bool {
			to := e.To().ID()
			if _, seen := parent[to]; !seen && to != srcID {
				parent[to] = e.From().ID()
			}
			return true
		},
	}
	found := bfs.Walk(orderedView{gr}, simple.Node(srcID), func(n graph.Node, d int) bool {
		return n.ID() == dstID
	})

	if found == nil {
		return nil, zimgerr.New(zimgerr.NoColorspaceConversion, "no path from %+v to %+v", src, dst)
	}

	var ids []int64
	for id := dstID; id != srcID; {
		ids = append(ids, id)
		p, ok := parent[id]
		if !ok {
			return nil, zimgerr.New(zimgerr.NoColorspaceConversion, "broken path reconstruction from %+v to %+v", src, dst)
		}
		id = p
	}
	ids = append(ids, srcID)

	path := make([]Edge, 0, len(ids)-1)
	for i := len(ids) - 1; i > 0; i-- {
		e, ok := gr.edgeOf[[2]int64{ids[i], ids[i-1]}]
		if !ok {
			return nil, fmt.Errorf("colorspace: internal inconsistency reconstructing edge %d->%d", ids[i], ids[i-1])
		}
		path = append(path, e)
	}
	return path, nil
}
