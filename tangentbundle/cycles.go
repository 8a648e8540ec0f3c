package tangentbundle

import (
	"math/cmplx"

	"github.com/james-bowman/sparse"
	"github.com/notargets/directional/mesh"
	"github.com/notargets/directional/utils"
)

// CycleEntry is one dual edge crossing of a cycle. Sign is +1 when the cycle
// crosses Edge from EF[Edge][0] to EF[Edge][1].
type CycleEntry struct {
	Edge int
	Sign int
}

// DualCycles is a basis of dual cycles: one around every interior vertex
// (local cycles, rows [0, NumLocal)), then the homology generators, then one
// cycle around each boundary loop except the last loop of every connected
// component.
type DualCycles struct {
	// Matrix is [#cycles x #inner edges] with +-1 entries; column c stands for
	// edge InnerAdjacencies[c]
	Matrix           *sparse.CSR
	Curvatures       []float64 // Angle defect (local) or wrapped holonomy (generators, boundary loops)
	Local2Cycle      []int     // Vertex -> local cycle row, -1 for boundary vertices
	Cycle2Local      []int     // Local cycle row -> vertex
	Loop2Cycle       []int     // Boundary loop -> cycle row, -1 when the loop has none
	InnerAdjacencies []int     // Column -> edge
	EdgeToColumn     []int     // Edge -> column, -1 on boundary edges
	Entries          [][]CycleEntry
	NumLocal         int
	NumGenerators    int
	NumBoundary      int
}

// NumCycles returns the number of rows of the cycle matrix
func (dc *DualCycles) NumCycles() int {
	return len(dc.Entries)
}

// Apply returns Matrix * x for x given per edge (boundary entries ignored)
func (dc *DualCycles) Apply(x []float64) []float64 {
	out := make([]float64, len(dc.Entries))
	for c, entries := range dc.Entries {
		for _, ce := range entries {
			out[c] += float64(ce.Sign) * x[ce.Edge]
		}
	}
	return out
}

// Holonomy returns the wrapped sum of signed connection angles along cycle c
func (dc *DualCycles) Holonomy(tb TangentBundle, c int) float64 {
	total := 0.0
	for _, ce := range dc.Entries[c] {
		total += float64(ce.Sign) * cmplx.Phase(tb.Transport(ce.Edge))
	}
	return utils.WrapAngle(total)
}

func buildDualCycles(tb *FaceTangentBundle) (*DualCycles, error) {
	m := tb.Mesh
	dc := &DualCycles{
		Local2Cycle:      make([]int, m.NumVertices()),
		EdgeToColumn:     make([]int, m.NumEdges()),
		InnerAdjacencies: append([]int(nil), m.InnerEdges...),
	}
	for e := range dc.EdgeToColumn {
		dc.EdgeToColumn[e] = -1
	}
	for c, e := range dc.InnerAdjacencies {
		dc.EdgeToColumn[e] = c
	}

	// Local cycles
	defects := m.AngleDefects()
	for v := 0; v < m.NumVertices(); v++ {
		dc.Local2Cycle[v] = -1
		if m.IsBoundaryVertex[v] || m.VF[v] == -1 {
			continue
		}
		faces, crossings, err := m.FacesAroundVertex(v)
		if err != nil {
			return nil, err
		}
		entries := make([]CycleEntry, len(crossings))
		for k, e := range crossings {
			entries[k] = CycleEntry{Edge: e, Sign: crossingSign(m.EF[e], faces[k])}
		}
		dc.Local2Cycle[v] = len(dc.Entries)
		dc.Cycle2Local = append(dc.Cycle2Local, v)
		dc.Entries = append(dc.Entries, entries)
		dc.Curvatures = append(dc.Curvatures, defects[v])
	}
	dc.NumLocal = len(dc.Entries)

	// Generators from a tree-cotree decomposition
	generators, err := treeCotreeGenerators(tb)
	if err != nil {
		return nil, err
	}
	for _, entries := range generators {
		dc.Entries = append(dc.Entries, entries)
		dc.Curvatures = append(dc.Curvatures, 0)
		c := len(dc.Entries) - 1
		dc.Curvatures[c] = dc.Holonomy(tb, c)
	}
	dc.NumGenerators = len(generators)

	// Boundary loops
	loops, err := boundaryLoopCycles(tb)
	if err != nil {
		return nil, err
	}
	dc.Loop2Cycle = make([]int, len(loops))
	for l, entries := range loops {
		dc.Loop2Cycle[l] = -1
		if len(entries) == 0 {
			continue
		}
		dc.Loop2Cycle[l] = len(dc.Entries)
		dc.Entries = append(dc.Entries, entries)
		dc.Curvatures = append(dc.Curvatures, 0)
		c := len(dc.Entries) - 1
		dc.Curvatures[c] = dc.Holonomy(tb, c)
		dc.NumBoundary++
	}

	var ia, ja []int
	var data []float64
	for c, entries := range dc.Entries {
		for _, ce := range entries {
			ia = append(ia, c)
			ja = append(ja, dc.EdgeToColumn[ce.Edge])
			data = append(data, float64(ce.Sign))
		}
	}
	rows, cols := len(dc.Entries), len(dc.InnerAdjacencies)
	if rows == 0 || cols == 0 {
		return dc, nil
	}
	dc.Matrix = sparse.NewCOO(rows, cols, ia, ja, data).ToCSR()
	return dc, nil
}

// crossingSign is +1 when leaving `from` crosses the edge in its stored direction
func crossingSign(ef [2]int, from int) int {
	if ef[0] == from {
		return 1
	}
	return -1
}

// treeCotreeGenerators returns one dual loop per inner edge that is neither in
// a primal spanning tree (boundary edges first) nor in the dual spanning tree
// built from the remaining inner edges
func treeCotreeGenerators(tb *FaceTangentBundle) ([][]CycleEntry, error) {
	m := tb.Mesh
	ne, nf := m.NumEdges(), m.NumFaces()

	parent := make([]int, m.NumVertices())
	for i := range parent {
		parent[i] = i
	}
	find := func(a int) int {
		for parent[a] != a {
			parent[a] = parent[parent[a]]
			a = parent[a]
		}
		return a
	}
	inTree := make([]bool, ne)
	addToTree := func(e int) {
		a, b := find(m.EV[e][0]), find(m.EV[e][1])
		if a != b {
			parent[a] = b
			inTree[e] = true
		}
	}
	for e := 0; e < ne; e++ {
		if !m.IsInnerEdge(e) {
			addToTree(e)
		}
	}
	for _, e := range m.InnerEdges {
		addToTree(e)
	}

	// dual spanning forest by BFS, one root per connected component
	parentFace := make([]int, nf)
	parentEdge := make([]int, nf)
	depth := make([]int, nf)
	for f := range parentFace {
		parentFace[f] = -2
	}
	inCotree := make([]bool, ne)
	for root := 0; root < nf; root++ {
		if parentFace[root] != -2 {
			continue
		}
		parentFace[root], parentEdge[root] = -1, -1
		queue := []int{root}
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			for _, e := range m.FE[f] {
				if !m.IsInnerEdge(e) || inTree[e] {
					continue
				}
				g := m.EF[e][0]
				if g == f {
					g = m.EF[e][1]
				}
				if parentFace[g] != -2 {
					continue
				}
				parentFace[g], parentEdge[g], depth[g] = f, e, depth[f]+1
				inCotree[e] = true
				queue = append(queue, g)
			}
		}
	}

	var generators [][]CycleEntry
	for _, e := range m.InnerEdges {
		if inTree[e] || inCotree[e] {
			continue
		}
		fa, fb := m.EF[e][0], m.EF[e][1]
		loop := []CycleEntry{{Edge: e, Sign: 1}}
		// climb from fb to the common ancestor, then descend to fa
		var down []CycleEntry
		a, b := fa, fb
		for a != b {
			if depth[b] >= depth[a] {
				pe := parentEdge[b]
				loop = append(loop, CycleEntry{Edge: pe, Sign: crossingSign(m.EF[pe], b)})
				b = parentFace[b]
			} else {
				pe := parentEdge[a]
				down = append(down, CycleEntry{Edge: pe, Sign: crossingSign(m.EF[pe], parentFace[a])})
				a = parentFace[a]
			}
		}
		for i := len(down) - 1; i >= 0; i-- {
			loop = append(loop, down[i])
		}
		generators = append(generators, loop)
	}
	return generators, nil
}

// boundaryLoopCycles returns, per boundary loop, the dual loop made of the fans
// around its vertices taken against the loop direction. The fans are
// counter-clockwise about each vertex, so summing every local and boundary
// cycle of a component cancels; the last loop of each component is left empty.
// Inner edges joining two vertices of the same loop are crossed once in each
// direction and drop out.
func boundaryLoopCycles(tb *FaceTangentBundle) ([][]CycleEntry, error) {
	m := tb.Mesh
	component := faceComponents(m)
	lastLoop := make(map[int]int)
	loopStart := make([]int, len(m.BoundaryLoops))
	for l, loop := range m.BoundaryLoops {
		faces, _, err := m.BoundaryFan(loop[0])
		if err != nil {
			return nil, err
		}
		loopStart[l] = faces[0]
		lastLoop[component[faces[0]]] = l
	}

	cycles := make([][]CycleEntry, len(m.BoundaryLoops))
	for l, loop := range m.BoundaryLoops {
		if lastLoop[component[loopStart[l]]] == l {
			continue
		}
		var entries []CycleEntry
		position := make(map[int]int)
		for k := len(loop) - 1; k >= 0; k-- {
			faces, crossings, err := m.BoundaryFan(loop[k])
			if err != nil {
				return nil, err
			}
			for i, e := range crossings {
				sign := crossingSign(m.EF[e], faces[i])
				if p, seen := position[e]; seen {
					entries[p].Sign += sign
					continue
				}
				position[e] = len(entries)
				entries = append(entries, CycleEntry{Edge: e, Sign: sign})
			}
		}
		kept := entries[:0]
		for _, ce := range entries {
			if ce.Sign != 0 {
				kept = append(kept, ce)
			}
		}
		cycles[l] = kept
	}
	return cycles, nil
}

// faceComponents labels every face with the lowest face of its connected
// component in the dual graph
func faceComponents(m *mesh.TriMesh) []int {
	component := make([]int, m.NumFaces())
	for f := range component {
		component[f] = -1
	}
	for root := range component {
		if component[root] != -1 {
			continue
		}
		component[root] = root
		queue := []int{root}
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			for _, e := range m.FE[f] {
				if !m.IsInnerEdge(e) {
					continue
				}
				g := m.EF[e][0] + m.EF[e][1] - f
				if component[g] == -1 {
					component[g] = root
					queue = append(queue, g)
				}
			}
		}
	}
	return component
}
