package mesh

import (
	"fmt"
)

// edgeKey is the canonical (sorted) vertex pair of an edge
type edgeKey [2]int

func newEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// buildConnectivity numbers edges in order of first appearance and fills EV,
// EF, FE and VF. An edge seen a second time must run in the opposite direction
// (consistent orientation) and an edge may not be seen a third time.
func (m *TriMesh) buildConnectivity() error {
	nf := len(m.F)
	edgeMap := make(map[edgeKey]int, 3*nf/2+1)
	m.FE = make([][3]int, nf)
	m.EV = make([][2]int, 0, 3*nf/2+1)
	m.EF = make([][2]int, 0, 3*nf/2+1)
	m.VF = make([]int, len(m.V))
	for v := range m.VF {
		m.VF[v] = -1
	}

	for f, tri := range m.F {
		for i := 0; i < 3; i++ {
			a, b := tri[i], tri[(i+1)%3]
			if m.VF[a] == -1 {
				m.VF[a] = f
			}
			key := newEdgeKey(a, b)
			e, found := edgeMap[key]
			if !found {
				e = len(m.EV)
				edgeMap[key] = e
				m.EV = append(m.EV, [2]int{a, b})
				m.EF = append(m.EF, [2]int{f, -1})
				m.FE[f][i] = e
				continue
			}
			if m.EF[e][1] != -1 {
				return fmt.Errorf("%w: edge (%d,%d) has more than two faces (%d, %d, %d)",
					ErrTopologyInconsistency, a, b, m.EF[e][0], m.EF[e][1], f)
			}
			if m.EV[e][0] == a {
				return fmt.Errorf("%w: faces %d and %d traverse edge (%d,%d) in the same direction",
					ErrTopologyInconsistency, m.EF[e][0], f, a, b)
			}
			m.EF[e][1] = f
			m.FE[f][i] = e
		}
	}

	m.InnerEdges = m.InnerEdges[:0]
	for e := range m.EF {
		if m.EF[e][1] != -1 {
			m.InnerEdges = append(m.InnerEdges, e)
		}
	}
	return nil
}

// buildBoundaryLoops chains boundary edges head to tail. A boundary edge runs
// counter-clockwise in its only face, so every loop keeps the surface on its left.
func (m *TriMesh) buildBoundaryLoops() error {
	next := make(map[int]int)
	m.IsBoundaryVertex = make([]bool, len(m.V))
	for e, ef := range m.EF {
		if ef[1] != -1 {
			continue
		}
		a, b := m.EV[e][0], m.EV[e][1]
		if _, dup := next[a]; dup {
			return fmt.Errorf("%w: vertex %d starts more than one boundary edge", ErrTopologyInconsistency, a)
		}
		next[a] = b
		m.IsBoundaryVertex[a] = true
		m.IsBoundaryVertex[b] = true
	}

	m.BoundaryLoops = nil
	visited := make([]bool, len(m.V))
	for v := range m.V {
		if _, ok := next[v]; !ok || visited[v] {
			continue
		}
		var loop []int
		for cur := v; !visited[cur]; {
			visited[cur] = true
			loop = append(loop, cur)
			nxt, ok := next[cur]
			if !ok {
				return fmt.Errorf("%w: boundary chain breaks at vertex %d", ErrTopologyInconsistency, cur)
			}
			cur = nxt
		}
		m.BoundaryLoops = append(m.BoundaryLoops, loop)
	}
	return nil
}

// FacesAroundVertex returns the faces incident to an interior vertex in
// counter-clockwise order together with the edge crossed from faces[k] to
// faces[(k+1)%len(faces)].
func (m *TriMesh) FacesAroundVertex(v int) (faces, crossings []int, err error) {
	if v < 0 || v >= len(m.V) {
		return nil, nil, fmt.Errorf("vertex %d out of range", v)
	}
	if m.IsBoundaryVertex[v] {
		return nil, nil, fmt.Errorf("vertex %d lies on the boundary", v)
	}
	start := m.VF[v]
	if start == -1 {
		return nil, nil, fmt.Errorf("vertex %d has no incident face", v)
	}
	f := start
	for {
		i := localIndex(m.F[f], v)
		if i < 0 {
			return nil, nil, fmt.Errorf("%w: face %d does not contain vertex %d", ErrTopologyInconsistency, f, v)
		}
		// the edge from the previous corner back to v bounds the next wedge
		e := m.FE[f][(i+2)%3]
		g := m.EF[e][0]
		if g == f {
			g = m.EF[e][1]
		}
		if g == -1 {
			return nil, nil, fmt.Errorf("%w: interior vertex %d touches boundary edge %d", ErrTopologyInconsistency, v, e)
		}
		faces = append(faces, f)
		crossings = append(crossings, e)
		if g == start {
			break
		}
		if len(faces) > len(m.F) {
			return nil, nil, fmt.Errorf("%w: fan around vertex %d does not close", ErrTopologyInconsistency, v)
		}
		f = g
	}
	return faces, crossings, nil
}

func localIndex(tri [3]int, v int) int {
	for i := 0; i < 3; i++ {
		if tri[i] == v {
			return i
		}
	}
	return -1
}

// BoundaryFan returns the faces incident to a boundary vertex in
// counter-clockwise order, from the face holding the boundary edge that leaves
// v to the face holding the one that enters it, together with the inner edge
// crossed from faces[k] to faces[k+1].
func (m *TriMesh) BoundaryFan(v int) (faces, crossings []int, err error) {
	if v < 0 || v >= len(m.V) {
		return nil, nil, fmt.Errorf("vertex %d out of range", v)
	}
	if !m.IsBoundaryVertex[v] {
		return nil, nil, fmt.Errorf("vertex %d is not on the boundary", v)
	}
	// walk clockwise to the face whose edge leaving v is on the boundary
	start := m.VF[v]
	for steps := 0; ; steps++ {
		if steps > len(m.F) {
			return nil, nil, fmt.Errorf("%w: fan around boundary vertex %d never reaches the boundary", ErrTopologyInconsistency, v)
		}
		i := localIndex(m.F[start], v)
		if i < 0 {
			return nil, nil, fmt.Errorf("%w: face %d does not contain vertex %d", ErrTopologyInconsistency, start, v)
		}
		e := m.FE[start][i]
		if !m.IsInnerEdge(e) {
			break
		}
		start = m.EF[e][0] + m.EF[e][1] - start
		if start == m.VF[v] {
			return nil, nil, fmt.Errorf("%w: fan around boundary vertex %d is closed", ErrTopologyInconsistency, v)
		}
	}

	f := start
	for {
		faces = append(faces, f)
		if len(faces) > len(m.F) {
			return nil, nil, fmt.Errorf("%w: fan around vertex %d does not end", ErrTopologyInconsistency, v)
		}
		e := m.FE[f][(localIndex(m.F[f], v)+2)%3]
		if !m.IsInnerEdge(e) {
			break
		}
		crossings = append(crossings, e)
		f = m.EF[e][0] + m.EF[e][1] - f
		if localIndex(m.F[f], v) < 0 {
			return nil, nil, fmt.Errorf("%w: face %d does not contain vertex %d", ErrTopologyInconsistency, f, v)
		}
	}
	return faces, crossings, nil
}
