package mesh

import (
	"fmt"
)

// Validate checks that the face-edge and edge-face tables agree with each other
// and with the face list. Algorithms downstream assume a mesh that passed this
// check and do not re-validate.
func (m *TriMesh) Validate() error {
	nf, ne := len(m.F), len(m.EV)
	if len(m.FE) != nf {
		return fmt.Errorf("%w: FE has %d rows for %d faces", ErrTopologyInconsistency, len(m.FE), nf)
	}
	if len(m.EF) != ne {
		return fmt.Errorf("%w: EF has %d rows for %d edges", ErrTopologyInconsistency, len(m.EF), ne)
	}

	// Verify 1: every face has three distinct valid edges that point back at it
	for f := 0; f < nf; f++ {
		for i := 0; i < 3; i++ {
			e := m.FE[f][i]
			if e < 0 || e >= ne {
				return fmt.Errorf("%w: face %d edge slot %d holds invalid edge %d", ErrTopologyInconsistency, f, i, e)
			}
			if m.EF[e][0] != f && m.EF[e][1] != f {
				return fmt.Errorf("%w: face %d lists edge %d which does not reference it back (EF=%v)",
					ErrTopologyInconsistency, f, e, m.EF[e])
			}
			a, b := m.F[f][i], m.F[f][(i+1)%3]
			if newEdgeKey(a, b) != newEdgeKey(m.EV[e][0], m.EV[e][1]) {
				return fmt.Errorf("%w: face %d edge slot %d is (%d,%d) but edge %d joins %v",
					ErrTopologyInconsistency, f, i, a, b, e, m.EV[e])
			}
		}
		if m.FE[f][0] == m.FE[f][1] || m.FE[f][1] == m.FE[f][2] || m.FE[f][0] == m.FE[f][2] {
			return fmt.Errorf("%w: face %d repeats an edge %v", ErrTopologyInconsistency, f, m.FE[f])
		}
	}

	// Verify 2: every edge has a first face, and each incident face lists the edge
	for e := 0; e < ne; e++ {
		f0, f1 := m.EF[e][0], m.EF[e][1]
		if f0 < 0 || f0 >= nf {
			return fmt.Errorf("%w: edge %d has no first face (EF=%v)", ErrTopologyInconsistency, e, m.EF[e])
		}
		if f1 >= nf || f1 < -1 || f1 == f0 {
			return fmt.Errorf("%w: edge %d has invalid second face (EF=%v)", ErrTopologyInconsistency, e, m.EF[e])
		}
		for _, f := range m.EF[e] {
			if f == -1 {
				continue
			}
			if m.FE[f][0] != e && m.FE[f][1] != e && m.FE[f][2] != e {
				return fmt.Errorf("%w: edge %d claims face %d which does not list it (FE=%v)",
					ErrTopologyInconsistency, e, f, m.FE[f])
			}
		}
	}

	// Verify 3: inner edge list matches EF
	inner := 0
	for e := 0; e < ne; e++ {
		if m.IsInnerEdge(e) {
			inner++
		}
	}
	if inner != len(m.InnerEdges) {
		return fmt.Errorf("%w: %d inner edges in EF, %d listed", ErrTopologyInconsistency, inner, len(m.InnerEdges))
	}

	// Verify 4: the faces around every vertex form a single fan
	incident := make([]int, len(m.V))
	for _, tri := range m.F {
		for _, v := range tri {
			incident[v]++
		}
	}
	for v, count := range incident {
		if count == 0 {
			continue
		}
		var fan []int
		var err error
		if m.IsBoundaryVertex[v] {
			fan, _, err = m.BoundaryFan(v)
		} else {
			fan, _, err = m.FacesAroundVertex(v)
		}
		if err != nil {
			return err
		}
		if len(fan) != count {
			return fmt.Errorf("%w: vertex %d is non-manifold, its fan holds %d of %d incident faces",
				ErrTopologyInconsistency, v, len(fan), count)
		}
	}
	return nil
}
