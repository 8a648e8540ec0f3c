package mesh

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrTopologyInconsistency marks adjacency tables that do not describe an
// oriented 2-manifold with boundary
var ErrTopologyInconsistency = errors.New("topology inconsistency")

// TriMesh is the read-only topology and geometry consumed by the tangent bundle.
// All per-face arrays have length NumFaces, per-edge arrays NumEdges and
// per-vertex arrays NumVertices.
type TriMesh struct {
	V  []r3.Vec // Vertex positions
	F  [][3]int // Face vertices, counter-clockwise about the outward normal
	EV [][2]int // Edge endpoints
	// EF[e][0] is the face in which EV[e][0]->EV[e][1] runs counter-clockwise,
	// EF[e][1] the opposite face or -1 on the boundary
	EF [][2]int
	FE [][3]int // FE[f][i] is the edge from F[f][i] to F[f][(i+1)%3]
	VF []int    // One incident face per vertex, -1 for isolated vertices

	// Local tangent frame per face: FBx along the first face edge, FBy = n x FBx
	FBx, FBy      []r3.Vec
	FaceNormals   []r3.Vec
	VertexNormals []r3.Vec // Area weighted
	Barycenters   []r3.Vec
	FaceAreas     []float64

	InnerEdges       []int   // Edges with two incident faces, ascending
	BoundaryLoops    [][]int // Vertex loops, each following the boundary edge direction
	IsBoundaryVertex []bool
}

// NewTriMesh builds adjacency, local frames and boundary data from a face list
func NewTriMesh(V []r3.Vec, F [][3]int) (*TriMesh, error) {
	if len(V) < 3 || len(F) < 1 {
		return nil, fmt.Errorf("mesh needs at least 3 vertices and 1 face, got %d and %d", len(V), len(F))
	}
	for f, tri := range F {
		for i := 0; i < 3; i++ {
			if tri[i] < 0 || tri[i] >= len(V) {
				return nil, fmt.Errorf("face %d references vertex %d, have %d vertices", f, tri[i], len(V))
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return nil, fmt.Errorf("%w: face %d repeats a vertex %v", ErrTopologyInconsistency, f, tri)
		}
	}

	m := &TriMesh{V: V, F: F}
	if err := m.buildConnectivity(); err != nil {
		return nil, err
	}
	if err := m.buildGeometry(); err != nil {
		return nil, err
	}
	if err := m.buildBoundaryLoops(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *TriMesh) NumVertices() int { return len(m.V) }
func (m *TriMesh) NumFaces() int    { return len(m.F) }
func (m *TriMesh) NumEdges() int    { return len(m.EV) }

// IsInnerEdge reports whether edge e has two incident faces
func (m *TriMesh) IsInnerEdge(e int) bool {
	return m.EF[e][0] != -1 && m.EF[e][1] != -1
}

// EulerCharacteristic returns V - E + F
func (m *TriMesh) EulerCharacteristic() int {
	return len(m.V) - len(m.EV) + len(m.F)
}

// TotalArea is the sum of face areas
func (m *TriMesh) TotalArea() float64 {
	return floats.Sum(m.FaceAreas)
}

// EdgeLength returns the primal length of edge e
func (m *TriMesh) EdgeLength(e int) float64 {
	return r3.Norm(r3.Sub(m.V[m.EV[e][1]], m.V[m.EV[e][0]]))
}

// CornerAngle returns the interior angle of face f at its i-th corner
func (m *TriMesh) CornerAngle(f, i int) float64 {
	p := m.V[m.F[f][i]]
	a := r3.Sub(m.V[m.F[f][(i+1)%3]], p)
	b := r3.Sub(m.V[m.F[f][(i+2)%3]], p)
	return math.Atan2(r3.Norm(r3.Cross(a, b)), r3.Dot(a, b))
}

// AngleDefects returns 2pi minus the corner angle sum at interior vertices and
// pi minus the sum at boundary vertices
func (m *TriMesh) AngleDefects() []float64 {
	sums := make([]float64, len(m.V))
	for f, tri := range m.F {
		for i := 0; i < 3; i++ {
			sums[tri[i]] += m.CornerAngle(f, i)
		}
	}
	defects := make([]float64, len(m.V))
	for v := range defects {
		if m.IsBoundaryVertex[v] {
			defects[v] = math.Pi - sums[v]
		} else {
			defects[v] = 2*math.Pi - sums[v]
		}
	}
	return defects
}

func (m *TriMesh) buildGeometry() error {
	nf := len(m.F)
	m.FBx = make([]r3.Vec, nf)
	m.FBy = make([]r3.Vec, nf)
	m.FaceNormals = make([]r3.Vec, nf)
	m.Barycenters = make([]r3.Vec, nf)
	m.FaceAreas = make([]float64, nf)
	m.VertexNormals = make([]r3.Vec, len(m.V))

	for f, tri := range m.F {
		v0, v1, v2 := m.V[tri[0]], m.V[tri[1]], m.V[tri[2]]
		e1, e2 := r3.Sub(v1, v0), r3.Sub(v2, v0)
		n := r3.Cross(e1, e2)
		doubleArea := r3.Norm(n)
		if doubleArea < 1e-14 {
			return fmt.Errorf("degenerate face %d: area %e", f, doubleArea/2)
		}
		m.FaceAreas[f] = doubleArea / 2
		m.FaceNormals[f] = r3.Scale(1/doubleArea, n)
		m.FBx[f] = r3.Unit(e1)
		m.FBy[f] = r3.Unit(r3.Cross(m.FaceNormals[f], m.FBx[f]))
		m.Barycenters[f] = r3.Scale(1.0/3.0, r3.Add(r3.Add(v0, v1), v2))
		for i := 0; i < 3; i++ {
			m.VertexNormals[tri[i]] = r3.Add(m.VertexNormals[tri[i]], n)
		}
	}
	for v, n := range m.VertexNormals {
		if r3.Norm(n) > 0 {
			m.VertexNormals[v] = r3.Unit(n)
		}
	}
	return nil
}

// String returns a short summary of the mesh
func (m *TriMesh) String() string {
	var sb strings.Builder
	sb.WriteString("=== TriMesh Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Vertices: %d\n", len(m.V)))
	sb.WriteString(fmt.Sprintf("  Faces: %d\n", len(m.F)))
	sb.WriteString(fmt.Sprintf("  Edges: %d (%d inner)\n", len(m.EV), len(m.InnerEdges)))
	sb.WriteString(fmt.Sprintf("  Boundary loops: %d\n", len(m.BoundaryLoops)))
	sb.WriteString(fmt.Sprintf("  Euler characteristic: %d\n", m.EulerCharacteristic()))
	if len(m.FaceAreas) > 0 {
		sb.WriteString(fmt.Sprintf("  Face area range: [%.4e, %.4e]\n", floats.Min(m.FaceAreas), floats.Max(m.FaceAreas)))
	}
	return sb.String()
}
