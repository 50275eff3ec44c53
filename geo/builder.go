package geo

import (
	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
)

// edge is a directed boundary edge a->b.
type edge struct {
	a, b s2.Point
}

// edgeSet keeps directed edges in insertion order. Adding an edge that is
// already present, or whose reverse is present, removes both (XOR), which
// lets a hole sharing an edge with its shell merge into it.
type edgeSet struct {
	edges []edge
	live  []bool
	index map[edge]int
}

func newEdgeSet() *edgeSet {
	return &edgeSet{index: make(map[edge]int)}
}

func (s *edgeSet) add(e edge) {
	if i, ok := s.index[edge{a: e.b, b: e.a}]; ok && s.live[i] {
		s.live[i] = false
		delete(s.index, edge{a: e.b, b: e.a})
		return
	}
	if i, ok := s.index[e]; ok && s.live[i] {
		s.live[i] = false
		delete(s.index, e)
		return
	}
	s.index[e] = len(s.edges)
	s.edges = append(s.edges, e)
	s.live = append(s.live, true)
}

// assemble chains the live edges into simple loops. A walk that reaches a
// vertex with no unused outgoing edge leaves its edges unused, which is
// reported as an error.
func (s *edgeSet) assemble() ([][]s2.Point, error) {
	out := make(map[s2.Point][]int)
	for i, e := range s.edges {
		if s.live[i] {
			out[e.a] = append(out[e.a], i)
		}
	}
	used := make([]bool, len(s.edges))
	next := func(v s2.Point) int {
		for _, i := range out[v] {
			if !used[i] {
				return i
			}
		}
		return -1
	}

	var loops [][]s2.Point
	for start := range s.edges {
		if !s.live[start] || used[start] {
			continue
		}
		verts := []s2.Point{s.edges[start].a}
		pos := map[s2.Point]int{s.edges[start].a: 0}
		cur := start
		for cur >= 0 {
			used[cur] = true
			v := s.edges[cur].b
			if j, ok := pos[v]; ok {
				loop := make([]s2.Point, len(verts)-j)
				copy(loop, verts[j:])
				loops = append(loops, loop)
				for _, w := range verts[j+1:] {
					delete(pos, w)
				}
				verts = verts[:j+1]
			} else {
				pos[v] = len(verts)
				verts = append(verts, v)
			}
			cur = next(verts[len(verts)-1])
		}
		if len(verts) > 1 {
			return nil, eris.Wrapf(ErrParse,
				"geo: %d polygon edges could not be used; are the rings intersecting?", len(verts)-1)
		}
	}
	return loops, nil
}

// closeRing validates one GeoJSON ring and returns its distinct vertices.
func closeRing(ring []Point) ([]s2.Point, error) {
	if len(ring) == 0 {
		return nil, eris.Wrap(ErrParse, "geo: empty polygon ring")
	}
	vs := make([]s2.Point, 0, len(ring)+1)
	for _, p := range ring {
		vs = append(vs, p.v)
	}
	if vs[0] != vs[len(vs)-1] {
		vs = append(vs, vs[0])
	}
	if len(vs) < 4 {
		return nil, eris.Wrapf(ErrParse, "geo: polygon ring needs at least 4 positions, got %d", len(vs))
	}
	vs = vs[:len(vs)-1]
	for i, v := range vs {
		w := vs[(i+1)%len(vs)]
		if v == w {
			return nil, eris.Wrapf(ErrParse, "geo: polygon ring has duplicate vertex at %d", i)
		}
		if v.Vector == w.Mul(-1) {
			return nil, eris.Wrapf(ErrParse, "geo: polygon ring has antipodal vertices at %d", i)
		}
	}
	return vs, nil
}

// buildPolygon normalizes every ring, inverts the holes, XORs all directed
// edges and assembles the survivors into the polygon's loops.
func buildPolygon(rings [][]Point) (*Polygon, error) {
	set := newEdgeSet()
	for i, ring := range rings {
		vs, err := closeRing(ring)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: ring %d", i)
		}
		l := s2.LoopFromPoints(vs)
		l.Normalize()
		if i > 0 {
			l.Invert()
		}
		for j := 0; j < l.NumEdges(); j++ {
			e := l.Edge(j)
			set.add(edge{a: e.V0, b: e.V1})
		}
	}

	chains, err := set.assemble()
	if err != nil {
		return nil, err
	}
	if len(chains) == 0 {
		return EmptyPolygon(), nil
	}
	if err := checkCrossings(chains); err != nil {
		return nil, err
	}

	loops := make([]*s2.Loop, 0, len(chains))
	for _, c := range chains {
		if len(c) < 3 {
			return nil, eris.Wrap(ErrParse, "geo: degenerate polygon loop")
		}
		l := s2.LoopFromPoints(c)
		l.Normalize()
		loops = append(loops, l)
	}
	poly := s2.PolygonFromLoops(loops)
	if err := poly.Validate(); err != nil {
		return nil, eris.Wrapf(ErrParse, "geo: invalid polygon: %v", err)
	}
	return &Polygon{poly: poly}, nil
}

// checkCrossings rejects loops whose edges properly cross, either within one
// loop or between two loops.
func checkCrossings(chains [][]s2.Point) error {
	var edges []edge
	for _, c := range chains {
		for i := range c {
			edges = append(edges, edge{a: c[i], b: c[(i+1)%len(c)]})
		}
	}
	for i := range edges {
		crosser := s2.NewEdgeCrosser(edges[i].a, edges[i].b)
		for j := i + 1; j < len(edges); j++ {
			if crosser.CrossingSign(edges[j].a, edges[j].b) == s2.Cross {
				return eris.Wrap(ErrParse, "geo: polygon rings intersect")
			}
		}
	}
	return nil
}
